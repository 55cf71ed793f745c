package commands

import (
	"errors"
	"fmt"
	"strings"
)

var errUnterminatedQuote = errors.New("unterminated quote")

// Tokenize splits a line on whitespace. Double quotes group text, including
// in the middle of a token (name="Write report"); inside quotes a backslash
// escapes the next character.
func Tokenize(line string) ([]string, error) {
	var (
		tokens  []string
		cur     strings.Builder
		inToken bool
		quoted  bool
		escaped bool
	)

	for _, r := range line {
		switch {
		case escaped:
			cur.WriteRune(r)
			escaped = false
		case quoted && r == '\\':
			escaped = true
		case r == '"':
			quoted = !quoted
			inToken = true
		case !quoted && (r == ' ' || r == '\t'):
			if inToken {
				tokens = append(tokens, cur.String())
				cur.Reset()
				inToken = false
			}
		default:
			cur.WriteRune(r)
			inToken = true
		}
	}

	if quoted || escaped {
		return nil, errUnterminatedQuote
	}
	if inToken {
		tokens = append(tokens, cur.String())
	}
	return tokens, nil
}

// ParseInvocation reads "tool key=value ..." into a tool name and an
// argument bag. Values stay strings; identifier fields accept numeric
// strings, so no conversion is needed.
func ParseInvocation(line string) (string, map[string]any, error) {
	tokens, err := Tokenize(line)
	if err != nil {
		return "", nil, err
	}
	if len(tokens) == 0 {
		return "", nil, errors.New("empty command")
	}

	name := strings.ToLower(tokens[0])
	args := make(map[string]any, len(tokens)-1)

	for _, tok := range tokens[1:] {
		key, value, ok := strings.Cut(tok, "=")
		if !ok || key == "" {
			return "", nil, fmt.Errorf("expected key=value, got %q", tok)
		}
		if _, dup := args[key]; dup {
			return "", nil, fmt.Errorf("argument %q given twice", key)
		}
		args[key] = value
	}

	return name, args, nil
}
