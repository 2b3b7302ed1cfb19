// Package prompter reads interactive answers from the terminal.
package prompter

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// Input is read for plain prompts; tests replace it
var Input io.Reader = os.Stdin

var reader *bufio.Reader

func lineReader() *bufio.Reader {
	if reader == nil {
		reader = bufio.NewReader(Input)
	}
	return reader
}

// SetInput replaces the prompt source
func SetInput(r io.Reader) {
	Input = r
	reader = nil
}

// PromptString asks for a line of text
func PromptString(label string) (string, error) {
	fmt.Print(label)
	input, err := lineReader().ReadString('\n')
	if err != nil && (err != io.EOF || input == "") {
		return "", err
	}
	return strings.TrimSpace(input), nil
}

// PromptPassword asks without echo when stdin is a terminal
func PromptPassword(label string) (string, error) {
	fd := int(os.Stdin.Fd())
	if Input != os.Stdin || !term.IsTerminal(fd) {
		return PromptString(label)
	}
	fmt.Print(label)
	pw, err := term.ReadPassword(fd)
	fmt.Println()
	if err != nil {
		return "", err
	}
	return string(pw), nil
}

// PromptConfirm asks a yes/no question
func PromptConfirm(label string) (bool, error) {
	answer, err := PromptString(label + " (y/n) ")
	if err != nil {
		return false, err
	}
	answer = strings.ToLower(answer)
	return answer == "y" || answer == "yes", nil
}
