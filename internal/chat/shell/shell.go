// Package shell provides POSIX shell quoting for command lines that are
// handed to `sh -c` as a single string.
package shell

import "strings"

// Quote wraps s in single quotes so the POSIX shell treats it as a single
// literal word. An embedded single quote is handled by closing the quoted
// region, emitting a backslash-escaped quote, and reopening. The empty
// string quotes to an empty pair so it survives as a distinct argument.
func Quote(s string) string {
	if s == "" {
		return "''"
	}
	if !strings.ContainsAny(s, "'") {
		return "'" + s + "'"
	}
	var b strings.Builder
	b.Grow(len(s) + 2)
	b.WriteByte('\'')
	for i := 0; i < len(s); i++ {
		if s[i] == '\'' {
			b.WriteString(`'\''`)
			continue
		}
		b.WriteByte(s[i])
	}
	b.WriteByte('\'')
	return b.String()
}

// QuoteAll quotes each argument and joins them with single spaces.
func QuoteAll(args []string) string {
	quoted := make([]string, len(args))
	for i, a := range args {
		quoted[i] = Quote(a)
	}
	return strings.Join(quoted, " ")
}
