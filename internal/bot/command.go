// Package bot is the conversation engine: it parses inbound text into
// commands, routes them through an ordered handler registry scoped by role
// and authentication state, and serializes processing per identity.
package bot

import "strings"

// Command is one parsed inbound message. It lives only for the duration of a
// single dispatch.
type Command struct {
	// Verb is the lower-cased first word.
	Verb string
	// Rest is everything after the verb, whitespace-normalized, original case.
	Rest string
	// Norm is the full lower-cased whitespace-normalized text.
	Norm string
	// Raw is the message as received, trimmed.
	Raw string
}

// Parse normalizes raw inbound text into a Command.
func Parse(raw string) Command {
	trimmed := strings.TrimSpace(raw)
	fields := strings.Fields(trimmed)
	if len(fields) == 0 {
		return Command{Raw: trimmed}
	}
	return Command{
		Verb: strings.ToLower(fields[0]),
		Rest: strings.Join(fields[1:], " "),
		Norm: strings.ToLower(strings.Join(fields, " ")),
		Raw:  trimmed,
	}
}

// Keyword is the effective command word: the verb, or the word after a
// leading "get" so "get appointments" and "appointments" dispatch alike.
func (c Command) Keyword() string {
	if c.Verb != "get" {
		return c.Verb
	}
	rest := strings.Fields(strings.ToLower(c.Rest))
	if len(rest) == 0 {
		return c.Verb
	}
	return rest[0]
}

// HasPrefix reports whether the normalized text begins with the given
// lower-case phrase as whole words.
func (c Command) HasPrefix(phrase string) bool {
	return c.Norm == phrase || strings.HasPrefix(c.Norm, phrase+" ")
}

// After returns the original-case remainder after the given phrase, trimmed.
func (c Command) After(phrase string) string {
	words := len(strings.Fields(phrase))
	fields := strings.Fields(c.Raw)
	if len(fields) <= words {
		return ""
	}
	return strings.Join(fields[words:], " ")
}
