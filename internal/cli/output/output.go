// Package output renders command results as text, table or JSON.
package output

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/contentanonymity/backend/internal/cli/config"
	"github.com/fatih/color"
	json "github.com/json-iterator/go"
)

type Format string

const (
	FormatJSON  Format = "json"
	FormatTable Format = "table"
	FormatText  Format = "text"
)

// Out is where results go; tests swap it for a buffer
var Out io.Writer = color.Output

// GetFormat returns the configured output format
func GetFormat() Format {
	switch config.GetString("output.format") {
	case "json":
		return FormatJSON
	case "table":
		return FormatTable
	default:
		return FormatText
	}
}

// ValidFormat reports whether format is one contentctl can render
func ValidFormat(format string) bool {
	return format == "json" || format == "table" || format == "text"
}

// Print renders a single value. Text and table both use pretty JSON.
func Print(data interface{}) error {
	if GetFormat() == FormatJSON {
		return printJSON(data)
	}
	s, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(Out, string(s))
	return nil
}

// PrintList renders rows under headers. In JSON mode raw is printed instead
// so scripts see the full API objects.
func PrintList(headers []string, rows [][]string, raw interface{}) error {
	switch GetFormat() {
	case FormatJSON:
		return printJSON(raw)
	case FormatTable:
		printTable(headers, rows)
	default:
		printText(headers, rows)
	}
	return nil
}

// PrintRecord renders key/value pairs in key order
func PrintRecord(record map[string]interface{}) error {
	if GetFormat() == FormatJSON {
		return printJSON(record)
	}
	keys := make([]string, 0, len(record))
	for k := range record {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	if GetFormat() == FormatTable {
		rows := make([][]string, 0, len(keys))
		for _, k := range keys {
			rows = append(rows, []string{k, fmt.Sprintf("%v", record[k])})
		}
		printTable([]string{"Field", "Value"}, rows)
		return nil
	}
	bold := color.New(color.Bold)
	for _, k := range keys {
		bold.Fprint(Out, k+": ")
		fmt.Fprintf(Out, "%v\n", record[k])
	}
	return nil
}

// PrintSuccess prints a green message
func PrintSuccess(msg string, args ...interface{}) {
	color.New(color.FgGreen).Fprintf(Out, "✓ "+msg+"\n", args...)
}

// PrintError prints a red message
func PrintError(msg string, args ...interface{}) {
	color.New(color.FgRed).Fprintf(Out, "Error: "+msg+"\n", args...)
}

// PrintInfo prints a cyan message
func PrintInfo(msg string, args ...interface{}) {
	color.New(color.FgCyan).Fprintf(Out, msg+"\n", args...)
}

// PrintWarning prints a yellow message
func PrintWarning(msg string, args ...interface{}) {
	color.New(color.FgYellow).Fprintf(Out, "Warning: "+msg+"\n", args...)
}

func printJSON(data interface{}) error {
	encoder := json.NewEncoder(Out)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}

func printTable(headers []string, rows [][]string) {
	w := tabwriter.NewWriter(Out, 0, 0, 2, ' ', 0)
	bold := color.New(color.Bold)
	bold.Fprintln(w, strings.Join(headers, "\t"))
	for _, row := range rows {
		fmt.Fprintln(w, strings.Join(row, "\t"))
	}
	_ = w.Flush()
}

func printText(headers []string, rows [][]string) {
	for i, row := range rows {
		if i > 0 {
			fmt.Fprintln(Out)
		}
		for j, cell := range row {
			if j < len(headers) {
				color.New(color.Bold).Fprint(Out, headers[j]+": ")
			}
			fmt.Fprintln(Out, cell)
		}
	}
}
