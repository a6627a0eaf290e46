package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/mattn/go-isatty"
)

// statusKind classifies a status line so its tag and color match.
type statusKind int

const (
	statusInfo statusKind = iota
	statusOK
	statusWarn
	statusError
)

const ansiReset = "\x1b[0m"

var statusTags = [...]struct {
	label string
	color string
}{
	statusInfo:  {"INFO", "\x1b[34m"},
	statusOK:    {"OK", "\x1b[32m"},
	statusWarn:  {"WARN", "\x1b[33m"},
	statusError: {"ERROR", "\x1b[31m"},
}

// renderStatusLine formats one "  Label:  [TAG] message" line. Only the tag
// carries color so padding stays aligned when escapes are present.
func renderStatusLine(label string, kind statusKind, message string, colorize bool) string {
	tag := statusTags[kind]
	marker := "[" + tag.label + "]"
	if colorize {
		marker = tag.color + marker + ansiReset
	}
	line := fmt.Sprintf("  %-18s %s", label+":", marker)
	if message != "" {
		line += " " + message
	}
	return line
}

func renderSectionHeader(title string, colorize bool) string {
	title = strings.TrimSpace(title)
	rule := strings.Repeat("=", len(title))
	if colorize {
		return "\x1b[1m" + title + ansiReset + "\n" + rule
	}
	return title + "\n" + rule
}

// renderPairs renders a two column listing. Every table optipress prints is
// key/value shaped, so the writer setup lives here once. numericValues right
// aligns the second column for counts and sizes.
func renderPairs(keyHeader, valueHeader string, rows [][2]string, numericValues bool) string {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleLight)
	tw.AppendHeader(table.Row{keyHeader, valueHeader})
	for _, row := range rows {
		tw.AppendRow(table.Row{row[0], row[1]})
	}
	if numericValues {
		tw.SetColumnConfigs([]table.ColumnConfig{
			{Number: 2, Align: text.AlignRight, AlignHeader: text.AlignLeft},
		})
	}
	return tw.Render()
}

func shouldColorize(writer io.Writer) bool {
	file, ok := writer.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
