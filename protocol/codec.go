package protocol

import "strings"

// Command is one parsed protocol message: a verb followed by key=value
// arguments. Tokens without '=' are ignored; values keep any literal quote
// characters the client sent, the parser never strips them.
type Command struct {
	Verb string
	Args map[string]string
	raw  string
}

// Parse splits text into a Command. The grammar is whitespace-separated:
// the first token is the verb, every following token of the form key=value
// becomes an argument (first '=' wins, values may contain further '=').
func Parse(text string) Command {
	parts := strings.Fields(strings.TrimSpace(text))
	cmd := Command{Args: make(map[string]string), raw: text}
	if len(parts) == 0 {
		return cmd
	}

	cmd.Verb = parts[0]
	for _, part := range parts[1:] {
		if key, value, found := strings.Cut(part, "="); found {
			cmd.Args[key] = value
		}
	}
	return cmd
}

// Arg returns the named argument, or "" if absent.
func (c Command) Arg(key string) string {
	return c.Args[key]
}

// RawAfter returns everything in the original message after the first
// occurrence of marker. Chat messages are extracted this way so embedded
// spaces survive the tokenizer.
func (c Command) RawAfter(marker string) (string, bool) {
	idx := strings.Index(c.raw, marker)
	if idx < 0 {
		return "", false
	}
	return c.raw[idx+len(marker):], true
}
