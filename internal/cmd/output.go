package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"

	"crptapi/internal/models"
)

// printResult writes v as indented JSON, or the text produced by render.
func printResult(w io.Writer, format string, v any, render func() string) error {
	switch strings.ToLower(format) {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case "", "text":
		_, err := fmt.Fprintln(w, render())
		return err
	default:
		return fmt.Errorf("unsupported output format: %s", format)
	}
}

// renderRecords renders journal entries as a table, newest first.
func renderRecords(records []*models.DocumentRecord) string {
	if len(records) == 0 {
		return "No documents."
	}

	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"ID", "Group", "Type", "Created"})
	for _, rec := range records {
		t.AppendRow(table.Row{rec.ID, rec.ProductGroup, rec.Type, rec.CreatedAt.Local().Format(time.DateTime)})
	}
	t.AppendFooter(table.Row{"", "", "", fmt.Sprintf("%d documents", len(records))})
	return t.Render()
}
