// ABOUTME: Markdown reports for the admin dashboard and log integrity check, with HTML export
// ABOUTME: Rendering goes through goldmark with the table extension

package report

import (
	"bytes"
	"fmt"
	"html"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/2389/vault-dashboard/internal/normalize"
	"github.com/2389/vault-dashboard/internal/panel"
)

var md = goldmark.New(goldmark.WithExtensions(extension.Table))

// Integrity renders a verification result as markdown. Invalid entries are
// listed first.
func Integrity(v normalize.Verification, at time.Time) string {
	var b strings.Builder
	b.WriteString("# Log Integrity Report\n\n")
	fmt.Fprintf(&b, "Generated %s\n\n", at.UTC().Format(time.RFC3339))

	if v.Intrusion() {
		fmt.Fprintf(&b, "**Intrusion detected:** %d of %d logs failed verification.\n\n", v.InvalidLogs, v.TotalLogs)
	} else {
		b.WriteString("All logs verified. No tampering detected.\n\n")
	}

	b.WriteString("| Total | Valid | Invalid |\n|---|---|---|\n")
	fmt.Fprintf(&b, "| %d | %d | %d |\n\n", v.TotalLogs, v.ValidLogs, v.InvalidLogs)

	if len(v.Results) == 0 {
		return b.String()
	}
	b.WriteString("## Entries\n\n| Status | ID | Time | User | Action | Stored hash | Expected hash |\n|---|---|---|---|---|---|---|\n")
	for _, pass := range []bool{false, true} {
		for _, r := range v.Results {
			if r.Valid != pass {
				continue
			}
			status := "INVALID"
			if r.Valid {
				status = "valid"
			}
			fmt.Fprintf(&b, "| %s | %s | %s | %s | %s | `%s` | `%s` |\n",
				status, cell(r.ID), cell(r.Timestamp), cell(r.SubjectID), cell(r.Action),
				short(r.StoredHash), short(r.ExpectedHash))
		}
	}
	return b.String()
}

// Dashboard renders the admin summary as markdown.
func Dashboard(s panel.Summary, at time.Time) string {
	var b strings.Builder
	b.WriteString("# Dashboard Summary\n\n")
	fmt.Fprintf(&b, "Generated %s\n\n", at.UTC().Format(time.RFC3339))
	fmt.Fprintf(&b, "- Users: %d\n- Logs: %d\n- Log integrity: %d%% valid\n\n", s.TotalUsers, s.TotalLogs, s.Security.ValidPercent)

	counts := func(title, label string, cs []panel.Count) {
		fmt.Fprintf(&b, "## %s\n\n", title)
		if len(cs) == 0 {
			b.WriteString("None.\n\n")
			return
		}
		fmt.Fprintf(&b, "| %s | Count |\n|---|---|\n", label)
		for _, c := range cs {
			fmt.Fprintf(&b, "| %s | %d |\n", cell(c.Label), c.N)
		}
		b.WriteString("\n")
	}
	counts("Users by role", "Role", s.RoleDistribution)
	counts("Recent actions", "Action", s.ActionCounts)

	if len(s.RecentLogs) > 0 {
		b.WriteString("## Latest activity\n\n| Time | User | Role | Action |\n|---|---|---|---|\n")
		for _, l := range s.RecentLogs {
			fmt.Fprintf(&b, "| %s | %s | %s | %s |\n", cell(l.Timestamp), cell(l.SubjectID), cell(l.Role), cell(l.Action))
		}
	}
	return b.String()
}

// HTML converts markdown to an HTML fragment.
func HTML(markdown string) (string, error) {
	var buf bytes.Buffer
	if err := md.Convert([]byte(markdown), &buf); err != nil {
		return "", fmt.Errorf("rendering report: %w", err)
	}
	return buf.String(), nil
}

// Write renders markdown to path. A .html or .htm path gets a standalone
// HTML page; anything else receives the markdown as is.
func Write(path, title, markdown string) error {
	out := []byte(markdown)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".html", ".htm":
		body, err := HTML(markdown)
		if err != nil {
			return err
		}
		out = []byte("<!doctype html>\n<html><head><meta charset=\"utf-8\"><title>" +
			html.EscapeString(title) + "</title></head>\n<body>\n" + body + "</body></html>\n")
	}
	if err := os.WriteFile(path, out, 0o644); err != nil {
		return fmt.Errorf("writing report: %w", err)
	}
	return nil
}

func cell(s string) string {
	return strings.NewReplacer("|", `\|`, "\n", " ").Replace(s)
}

func short(hash string) string {
	if len(hash) > 12 {
		return hash[:12]
	}
	return hash
}
