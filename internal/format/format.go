// Package format renders a resolved tab set into the text that will be
// placed on the clipboard.
package format

import (
	"strings"

	"go.klb.dev/tabclip/internal/command"
	"go.klb.dev/tabclip/internal/tabs"
)

// Text renders ts according to cmd's format, newline mode, and separator.
// One line (or template expansion) per tab, joined by the newline sequence.
func Text(cmd *command.Command, ts []tabs.Tab) string {
	enter := cmd.Enter
	if enter == "" {
		enter = cmd.Newline.Sequence()
	}
	sep := cmd.Separator
	if sep == "" && cmd.Format == command.FormatTitleURL {
		sep = enter
	}

	parts := make([]string, 0, len(ts))
	for _, t := range ts {
		parts = append(parts, one(cmd, t, sep, enter))
	}
	return strings.Join(parts, enter)
}

func one(cmd *command.Command, t tabs.Tab, sep, enter string) string {
	switch cmd.Format {
	case command.FormatTitle:
		return t.Title
	case command.FormatURL:
		return t.URL
	case command.FormatMarkdown:
		return "[" + escapeMarkdown(t.Title) + "](" + t.URL + ")"
	case command.FormatCustom:
		return expand(cmd.Template, t, cmd, enter)
	default:
		return t.Title + sep + t.URL
	}
}

// expand substitutes the template placeholders. Unknown placeholders are
// left untouched so a typo is visible in the output rather than silently
// dropped.
func expand(tpl string, t tabs.Tab, cmd *command.Command, enter string) string {
	r := strings.NewReplacer(
		"${title}", t.Title,
		"${url}", t.URL,
		"${enter}", enter,
		"${tab}", "\t",
		"${selection}", cmd.SelectionText,
	)
	return r.Replace(tpl)
}

// escapeMarkdown backslash-escapes the characters that would break a
// markdown link label.
func escapeMarkdown(s string) string {
	r := strings.NewReplacer(
		`\`, `\\`,
		`[`, `\[`,
		`]`, `\]`,
	)
	return r.Replace(s)
}
