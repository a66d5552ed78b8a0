package main

import (
	"encoding/json"
	"io"
	"os"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"actas/internal/document"
)

// writeJSON encodes v as indented JSON to the command's stdout.
func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func renderTable(out io.Writer, headers table.Row, rows []table.Row) {
	tw := table.NewWriter()
	tw.SetOutputMirror(out)
	tw.SetStyle(table.StyleLight)
	tw.AppendHeader(headers)
	tw.AppendRows(rows)
	tw.Render()
}

var labelCaser = cases.Title(language.Und)

// statusLabel turns a snake_case status or permission name into a display
// label, e.g. "pending_approval" becomes "Pending Approval".
func statusLabel(value string) string {
	return labelCaser.String(strings.ReplaceAll(value, "_", " "))
}

const (
	ansiReset  = "\x1b[0m"
	ansiRed    = "\x1b[31m"
	ansiGreen  = "\x1b[32m"
	ansiYellow = "\x1b[33m"
)

// colorStatus wraps a document status label in ANSI color when writing to a
// terminal.
func colorStatus(out io.Writer, status document.Status) string {
	label := statusLabel(string(status))
	if !shouldColorize(out) {
		return label
	}
	switch status {
	case document.StatusApproved, document.StatusPublished:
		return ansiGreen + label + ansiReset
	case document.StatusPendingApproval:
		return ansiYellow + label + ansiReset
	case document.StatusRejected:
		return ansiRed + label + ansiReset
	default:
		return label
	}
}

func shouldColorize(out io.Writer) bool {
	file, ok := out.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func formatTime(value time.Time) string {
	if value.IsZero() {
		return ""
	}
	return value.Local().Format("2006-01-02 15:04")
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
