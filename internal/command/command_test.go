package command

import "testing"

func TestParseTarget(t *testing.T) {
	cases := []struct {
		in   string
		want Target
	}{
		{"tab", TargetTab},
		{"window", TargetWindow},
		{"all", TargetAll},
		{"WINDOW", TargetWindow},
		{"", TargetTab},
		{"bogus", TargetTab},
	}
	for _, tc := range cases {
		if got := ParseTarget(tc.in); got != tc.want {
			t.Errorf("ParseTarget(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestNewlineSequence(t *testing.T) {
	cases := []struct {
		in   Newline
		want string
	}{
		{NewlineLF, "\n"},
		{NewlineCRLF, "\r\n"},
		{NewlineCR, "\r"},
		{Newline("bogus"), "\n"},
	}
	for _, tc := range cases {
		if got := tc.in.Sequence(); got != tc.want {
			t.Errorf("%q.Sequence() = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestApplyDefaults(t *testing.T) {
	d := Defaults{
		Format:    FormatMarkdown,
		Template:  "${url}",
		Newline:   NewlineCRLF,
		Separator: " - ",
	}

	t.Run("fills unset fields", func(t *testing.T) {
		c := &Command{}
		c.ApplyDefaults(d)
		if c.Format != FormatMarkdown {
			t.Errorf("Format = %q, want markdown", c.Format)
		}
		if c.Newline != NewlineCRLF {
			t.Errorf("Newline = %q, want crlf", c.Newline)
		}
		if c.Separator != " - " {
			t.Errorf("Separator = %q", c.Separator)
		}
		if c.Enter != "\r\n" {
			t.Errorf("Enter = %q, want CRLF sequence", c.Enter)
		}
		if c.Target != TargetTab {
			t.Errorf("Target = %q, want tab", c.Target)
		}
	})

	t.Run("keeps explicit fields", func(t *testing.T) {
		c := &Command{
			Target:    TargetAll,
			Format:    FormatURL,
			Newline:   NewlineLF,
			Separator: "\t",
		}
		c.ApplyDefaults(d)
		if c.Format != FormatURL || c.Newline != NewlineLF || c.Separator != "\t" {
			t.Errorf("explicit fields overridden: %+v", c)
		}
		if c.Target != TargetAll {
			t.Errorf("Target = %q, want all", c.Target)
		}
	})

	t.Run("custom format inherits default template", func(t *testing.T) {
		c := &Command{Format: FormatCustom}
		c.ApplyDefaults(d)
		if c.Template != "${url}" {
			t.Errorf("Template = %q, want default", c.Template)
		}
	})
}
