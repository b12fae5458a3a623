package bot

import "testing"

func TestParse(t *testing.T) {
	cases := []struct {
		in   string
		verb string
		rest string
		norm string
	}{
		{"login", "login", "", "login"},
		{"  LOGIN  ", "login", "", "login"},
		{"search patient John Doe", "search", "patient John Doe", "search patient john doe"},
		{"  Patient   Info   P123  ", "patient", "Info P123", "patient info p123"},
		{"", "", "", ""},
		{"   ", "", "", ""},
	}
	for _, c := range cases {
		cmd := Parse(c.in)
		if cmd.Verb != c.verb || cmd.Rest != c.rest || cmd.Norm != c.norm {
			t.Errorf("Parse(%q) = %+v, want verb=%q rest=%q norm=%q", c.in, cmd, c.verb, c.rest, c.norm)
		}
	}
}

func TestKeyword_StripsGet(t *testing.T) {
	if got := Parse("get appointments").Keyword(); got != "appointments" {
		t.Errorf("expected appointments, got %q", got)
	}
	if got := Parse("appointments").Keyword(); got != "appointments" {
		t.Errorf("expected appointments, got %q", got)
	}
	if got := Parse("get").Keyword(); got != "get" {
		t.Errorf("bare get stays get, got %q", got)
	}
}

func TestHasPrefixAndAfter(t *testing.T) {
	cmd := Parse("Search Patient John Doe")
	if !cmd.HasPrefix("search patient") {
		t.Error("expected prefix match")
	}
	if cmd.HasPrefix("search patients") {
		t.Error("prefix must match whole words")
	}
	if got := cmd.After("search patient"); got != "John Doe" {
		t.Errorf("expected original-case remainder, got %q", got)
	}
	if got := Parse("search patient").After("search patient"); got != "" {
		t.Errorf("expected empty remainder, got %q", got)
	}
}
