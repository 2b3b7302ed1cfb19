package main

import "github.com/contentanonymity/backend/internal/cli/commands"

func main() {
	commands.Execute()
}
