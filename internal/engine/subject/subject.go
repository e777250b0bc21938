// Package subject compiles subject patterns with named placeholders into
// broker wildcard subscriptions.
//
// A pattern is a dot-separated subject in which whole tokens may be written
// as {name}. Compile replaces every placeholder token with the single-token
// wildcard "*" and records the token index each name was found at, so that
// concrete values can be sliced back out of delivered subjects.
package subject

import (
	"fmt"
	"strings"

	errspkg "github.com/subwire/subwire/internal/engine/errors"
)

// Wildcard is the broker's single-token wildcard symbol.
const Wildcard = "*"

// Placeholders maps a placeholder name to the zero-based token index it
// occupies in the pattern.
type Placeholders map[string]int

// Compiled is the immutable result of compiling one subject pattern. It is
// built once at registration time and consulted for every delivered message.
type Compiled struct {
	// Pattern is the original pattern as registered, prefix included.
	Pattern string
	// Subject is the broker-compatible subscription subject, with every
	// placeholder token replaced by Wildcard.
	Subject string
	// Placeholders records where each named placeholder sits.
	Placeholders Placeholders
}

// Compile parses pattern and produces the wildcard subscription subject
// together with the placeholder position table.
//
// A placeholder must occupy an entire token: "pub.{id}.temp" is valid while
// "pub.sensor_{id}.temp" fails with ErrMalformedSubject. Names must be valid
// identifiers and unique within the pattern.
func Compile(pattern string) (Compiled, error) {
	if pattern == "" {
		return Compiled{}, errspkg.ErrEmptySubject
	}

	tokens := strings.Split(pattern, ".")
	placeholders := make(Placeholders)
	out := make([]string, len(tokens))

	for i, token := range tokens {
		name, ok, err := placeholderName(token)
		if err != nil {
			return Compiled{}, fmt.Errorf("token %q: %w", token, err)
		}
		if !ok {
			out[i] = token
			continue
		}
		if !validIdentifier(name) {
			return Compiled{}, fmt.Errorf("token %q: %w", token, errspkg.ErrInvalidPlaceholderName)
		}
		if _, dup := placeholders[name]; dup {
			return Compiled{}, fmt.Errorf("placeholder %q: %w", name, errspkg.ErrDuplicatePlaceholder)
		}
		placeholders[name] = i
		out[i] = Wildcard
	}

	return Compiled{
		Pattern:      pattern,
		Subject:      strings.Join(out, "."),
		Placeholders: placeholders,
	}, nil
}

// Tokens splits a concrete delivered subject into its dot-separated tokens.
func Tokens(subject string) []string {
	return strings.Split(subject, ".")
}

// placeholderName reports whether token is exactly "{name}". Braces anywhere
// else inside a token make the pattern malformed.
func placeholderName(token string) (string, bool, error) {
	open := strings.IndexByte(token, '{')
	closing := strings.IndexByte(token, '}')
	if open < 0 && closing < 0 {
		return "", false, nil
	}
	if open != 0 || closing != len(token)-1 || strings.ContainsAny(token[1:len(token)-1], "{}") {
		return "", false, errspkg.ErrMalformedSubject
	}
	return token[1 : len(token)-1], true, nil
}

func validIdentifier(name string) bool {
	if name == "" {
		return false
	}
	for i, r := range name {
		switch {
		case r == '_',
			r >= 'a' && r <= 'z',
			r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9':
			if i == 0 {
				return false
			}
		default:
			return false
		}
	}
	return true
}
