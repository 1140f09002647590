// Package command defines the copy command: what to copy, from which tabs,
// and how the result should be formatted. Commands arrive from the browser
// bridge or are built from CLI flags; the resolver and formatter consume
// them read-only except for the derived fields they attach.
package command

import (
	"strings"

	"go.klb.dev/tabclip/internal/tabs"
)

// Target is the breadth of tabs a copy applies to.
type Target string

const (
	TargetTab    Target = "tab"    // the current / invoked tab
	TargetWindow Target = "window" // all tabs in one window
	TargetAll    Target = "all"    // every tab in every window
)

// ParseTarget normalizes a target string, defaulting to TargetTab for
// anything unrecognized.
func ParseTarget(s string) Target {
	switch Target(strings.ToLower(s)) {
	case TargetWindow:
		return TargetWindow
	case TargetAll:
		return TargetAll
	default:
		return TargetTab
	}
}

// Newline selects the line terminator used between formatted tabs and for
// the ${enter} template placeholder.
type Newline string

const (
	NewlineLF   Newline = "lf"
	NewlineCRLF Newline = "crlf"
	NewlineCR   Newline = "cr"
)

// Sequence returns the character sequence for the newline mode.
// Unknown modes fall back to LF.
func (n Newline) Sequence() string {
	switch n {
	case NewlineCRLF:
		return "\r\n"
	case NewlineCR:
		return "\r"
	default:
		return "\n"
	}
}

// ParseNewline normalizes a newline mode string, defaulting to LF.
func ParseNewline(s string) Newline {
	switch Newline(strings.ToLower(s)) {
	case NewlineCRLF:
		return NewlineCRLF
	case NewlineCR:
		return NewlineCR
	default:
		return NewlineLF
	}
}

// Format selects the per-tab output shape.
type Format string

const (
	FormatTitleURL Format = "title-url" // title, separator, url
	FormatTitle    Format = "title"
	FormatURL      Format = "url"
	FormatMarkdown Format = "markdown" // [title](url)
	FormatCustom   Format = "custom"   // user template, see format package
)

// ParseFormat normalizes a format string, defaulting to FormatTitleURL.
func ParseFormat(s string) Format {
	switch Format(strings.ToLower(s)) {
	case FormatTitle:
		return FormatTitle
	case FormatURL:
		return FormatURL
	case FormatMarkdown:
		return FormatMarkdown
	case FormatCustom:
		return FormatCustom
	default:
		return FormatTitleURL
	}
}

// Options are the named boolean switches a command may carry.
type Options struct {
	ExcludePinned    bool `json:"exclude_pinned,omitempty"`
	ExcludeHidden    bool `json:"exclude_hidden,omitempty"`
	CopyIfEmpty      bool `json:"copy_if_empty,omitempty"`    // substitute " " for an empty payload
	CopyIfNoTabs     bool `json:"copy_if_no_tabs,omitempty"`  // fall back to the origin tab
	ScriptingExtract bool `json:"scripting_extract,omitempty"` // pull the page selection via script
}

// Invocation records where the command came from.
type Invocation struct {
	OriginTab       *tabs.Tab `json:"origin_tab,omitempty"`
	FromContextMenu bool      `json:"from_context_menu,omitempty"`
	WindowScoped    bool      `json:"window_scoped,omitempty"`
}

// Command is one copy request. Defaults for zero-valued formatting fields
// come from the preference store via ApplyDefaults.
type Command struct {
	Target     Target     `json:"target"`
	Invocation Invocation `json:"invocation"`
	Options    Options    `json:"options"`

	Format    Format  `json:"format,omitempty"`
	Template  string  `json:"template,omitempty"` // only for FormatCustom
	Newline   Newline `json:"newline,omitempty"`
	Separator string  `json:"separator,omitempty"`

	// CallbackID identifies the originating UI to notify on completion.
	// Empty means no notification.
	CallbackID string `json:"callback_id,omitempty"`

	// NativeSelection is selection text the invoker already knows (e.g. the
	// context-menu selection). Takes precedence over scripted extraction.
	NativeSelection string `json:"native_selection,omitempty"`

	// Derived during resolution; not inputs.
	Enter         string `json:"-"` // resolved newline sequence
	SelectionText string `json:"-"`
}

// Defaults are the preference-store values used for fields the command
// leaves unset.
type Defaults struct {
	Format    Format
	Template  string
	Newline   Newline
	Separator string
}

// ApplyDefaults fills zero-valued formatting fields from d and computes the
// Enter sequence.
func (c *Command) ApplyDefaults(d Defaults) {
	c.Target = ParseTarget(string(c.Target))
	if c.Format == "" {
		c.Format = d.Format
	}
	c.Format = ParseFormat(string(c.Format))
	if c.Format == FormatCustom && c.Template == "" {
		c.Template = d.Template
	}
	if c.Newline == "" {
		c.Newline = d.Newline
	}
	c.Newline = ParseNewline(string(c.Newline))
	if c.Separator == "" {
		c.Separator = d.Separator
	}
	c.Enter = c.Newline.Sequence()
}
