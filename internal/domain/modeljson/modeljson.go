// Package modeljson decodes JSON objects out of untrusted model replies.
//
// The repair surface is deliberately small: brace scanning, code-fence
// stripping, `\'` unescaping and trailing-comma removal. Anything that still
// fails to decode is reported as malformed and never retried here.
package modeljson

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

var reTrailingComma = regexp.MustCompile(`,\s*([}\]])`)

// MalformedError reports a reply that could not be turned into the expected
// object.
type MalformedError struct {
	Reason  string
	Snippet string
	Err     error
}

func (e *MalformedError) Error() string {
	msg := "malformed model output: " + e.Reason
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	if e.Snippet != "" {
		msg += fmt.Sprintf(" (got %q)", e.Snippet)
	}
	return msg
}

func (e *MalformedError) Unwrap() error { return e.Err }

// IsMalformed reports whether err is, or wraps, a *MalformedError.
func IsMalformed(err error) bool {
	var m *MalformedError
	return errors.As(err, &m)
}

// Extract returns the text between the first '{' and the last '}' after
// removing a surrounding markdown fence.
func Extract(s string) (string, error) {
	t := strings.TrimSpace(s)
	if t == "" {
		return "", &MalformedError{Reason: "empty reply"}
	}

	if strings.HasPrefix(t, "```") {
		if i := strings.Index(t, "\n"); i >= 0 {
			t = t[i+1:]
		}
		if j := strings.LastIndex(t, "```"); j >= 0 {
			t = t[:j]
		}
		t = strings.TrimSpace(t)
	}

	start := strings.Index(t, "{")
	end := strings.LastIndex(t, "}")
	if start < 0 || end <= start {
		return "", &MalformedError{Reason: "no JSON object found", Snippet: truncate(t, 200)}
	}
	return t[start : end+1], nil
}

// Sanitize applies the fixed set of repairs for mistakes models commonly make.
func Sanitize(s string) string {
	s = unescapeQuotes(s)
	s = strings.ReplaceAll(s, "```json", "")
	s = strings.ReplaceAll(s, "```", "")
	return reTrailingComma.ReplaceAllString(s, "$1")
}

// unescapeQuotes turns \' into ' when the backslash is not itself escaped,
// so a literal backslash before an apostrophe ("\\'") survives.
func unescapeQuotes(s string) string {
	if !strings.Contains(s, `\'`) {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	run := 0
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c == '\\' {
			run++
			continue
		}
		if c == '\'' && run%2 == 1 {
			run--
		}
		b.WriteString(strings.Repeat(`\`, run))
		run = 0
		b.WriteByte(c)
	}
	b.WriteString(strings.Repeat(`\`, run))
	return b.String()
}

// Decode extracts, sanitizes and unmarshals the reply into v. Every key in
// required must be present at the top level of the object.
func Decode(reply string, v any, required ...string) error {
	obj, err := Extract(reply)
	if err != nil {
		return err
	}
	obj = Sanitize(obj)

	var top map[string]json.RawMessage
	if err := json.Unmarshal([]byte(obj), &top); err != nil {
		return &MalformedError{Reason: "invalid JSON", Snippet: truncate(obj, 200), Err: err}
	}
	for _, k := range required {
		if _, ok := top[k]; !ok {
			return &MalformedError{Reason: fmt.Sprintf("missing key %q", k), Snippet: truncate(obj, 200)}
		}
	}
	if err := json.Unmarshal([]byte(obj), v); err != nil {
		return &MalformedError{Reason: "unexpected shape", Snippet: truncate(obj, 200), Err: err}
	}
	return nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
