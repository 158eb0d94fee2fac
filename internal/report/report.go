// Package report renders journalled capture sessions for `click status`.
package report

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/himansukumarhkr/Click/internal/session"
)

// Renderer serializes journal records to bytes.
type Renderer interface {
	Render(records []session.Record) ([]byte, error)
}

// ForFormat returns the renderer for "markdown" or "json".
func ForFormat(format string) (Renderer, error) {
	switch format {
	case "", "markdown", "md":
		return &MarkdownRenderer{}, nil
	case "json":
		return &JSONRenderer{}, nil
	}
	return nil, fmt.Errorf("unknown format %q (want markdown or json)", format)
}

// JSONRenderer renders records as indented JSON.
type JSONRenderer struct{}

func (r *JSONRenderer) Render(records []session.Record) ([]byte, error) {
	if records == nil {
		records = []session.Record{}
	}
	return json.MarshalIndent(records, "", "  ")
}

// MarkdownRenderer renders records as a Markdown summary: open sessions
// first, then finished ones, each with its parts.
type MarkdownRenderer struct {
	Now func() time.Time
}

const stampLayout = "2006-01-02 15:04"

func (r *MarkdownRenderer) Render(records []session.Record) ([]byte, error) {
	now := time.Now
	if r.Now != nil {
		now = r.Now
	}

	var open, done []session.Record
	for _, rec := range records {
		if rec.Open() {
			open = append(open, rec)
		} else {
			done = append(done, rec)
		}
	}

	var sb strings.Builder
	sb.WriteString("# Click sessions\n\n")

	sb.WriteString("## Open\n\n")
	if len(open) == 0 {
		sb.WriteString("_No open sessions._\n")
	} else {
		writeTable(&sb, open, now())
	}
	sb.WriteString("\n")

	sb.WriteString("## Finished\n\n")
	if len(done) == 0 {
		sb.WriteString("_No finished sessions._\n")
	} else {
		writeTable(&sb, done, now())
	}
	sb.WriteString("\n")

	var multi []session.Record
	for _, rec := range records {
		if len(rec.Parts) > 1 {
			multi = append(multi, rec)
		}
	}
	if len(multi) > 0 {
		sb.WriteString("## Parts\n\n")
		for _, rec := range multi {
			fmt.Fprintf(&sb, "### %s\n\n", displayName(rec.ID))
			for _, p := range rec.Parts {
				fmt.Fprintf(&sb, "- `%s`\n", p)
			}
			sb.WriteString("\n")
		}
	}

	return []byte(sb.String()), nil
}

func writeTable(sb *strings.Builder, records []session.Record, now time.Time) {
	sb.WriteString("| Artifact | Mode | Captures | Size | Status | Started | Last activity |\n")
	sb.WriteString("|----------|------|----------|------|--------|---------|---------------|\n")
	for _, rec := range records {
		fmt.Fprintf(sb, "| %s | %s | %d | %s | %s | %s | %s |\n",
			displayName(rec.ID),
			rec.Mode,
			rec.Count,
			rec.Size,
			rec.Status,
			rec.Started.Local().Format(stampLayout),
			Ago(now.Sub(rec.Updated)),
		)
	}
}

func displayName(id string) string {
	if id == "" {
		return "_unknown_"
	}
	return "`" + filepath.Base(id) + "`"
}

// Ago renders d coarsely, e.g. "just now", "5m ago", "3h ago", "2d ago".
func Ago(d time.Duration) string {
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 48*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	}
	return fmt.Sprintf("%dd ago", int(d.Hours()/24))
}
