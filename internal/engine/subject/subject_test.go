package subject

import (
	"errors"
	"testing"

	errspkg "github.com/subwire/subwire/internal/engine/errors"
)

func TestCompileLiteralPattern(t *testing.T) {
	compiled, err := Compile("pub.sensor.temperature")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if compiled.Subject != "pub.sensor.temperature" {
		t.Fatalf("unexpected subject: %q", compiled.Subject)
	}
	if len(compiled.Placeholders) != 0 {
		t.Fatalf("expected no placeholders, got %v", compiled.Placeholders)
	}
}

func TestCompileSinglePlaceholder(t *testing.T) {
	compiled, err := Compile("pub.sensor.{id}.temperature")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if compiled.Subject != "pub.sensor.*.temperature" {
		t.Fatalf("unexpected subject: %q", compiled.Subject)
	}
	if index, ok := compiled.Placeholders["id"]; !ok || index != 2 {
		t.Fatalf("expected id at index 2, got %v", compiled.Placeholders)
	}
}

func TestCompileMultiplePlaceholders(t *testing.T) {
	compiled, err := Compile("{region}.sensor.{id}")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if compiled.Subject != "*.sensor.*" {
		t.Fatalf("unexpected subject: %q", compiled.Subject)
	}
	if compiled.Placeholders["region"] != 0 || compiled.Placeholders["id"] != 2 {
		t.Fatalf("unexpected table: %v", compiled.Placeholders)
	}
}

func TestCompileErrors(t *testing.T) {
	cases := []struct {
		name    string
		pattern string
		want    error
	}{
		{"embedded placeholder", "pub.sensor_{id}.temperature", errspkg.ErrMalformedSubject},
		{"suffix after placeholder", "pub.{id}x.temperature", errspkg.ErrMalformedSubject},
		{"stray closing brace", "pub.id}.temperature", errspkg.ErrMalformedSubject},
		{"nested braces", "pub.{i{d}}.temperature", errspkg.ErrMalformedSubject},
		{"duplicate placeholder", "{id}.sensor.{id}", errspkg.ErrDuplicatePlaceholder},
		{"empty name", "pub.{}.temperature", errspkg.ErrInvalidPlaceholderName},
		{"name with dash", "pub.{sensor-id}.temperature", errspkg.ErrInvalidPlaceholderName},
		{"name starting with digit", "pub.{1id}.temperature", errspkg.ErrInvalidPlaceholderName},
		{"empty pattern", "", errspkg.ErrEmptySubject},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Compile(tc.pattern)
			if !errors.Is(err, tc.want) {
				t.Fatalf("Compile(%q) = %v, want %v", tc.pattern, err, tc.want)
			}
		})
	}
}

func TestCompileRoundTrip(t *testing.T) {
	compiled, err := Compile("some.service.{a}.middle.{b}")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Instantiating the pattern and slicing the concrete subject at the
	// recorded indexes must recover the original values.
	tokens := Tokens("some.service.first.middle.second")
	if got := tokens[compiled.Placeholders["a"]]; got != "first" {
		t.Fatalf("placeholder a = %q, want %q", got, "first")
	}
	if got := tokens[compiled.Placeholders["b"]]; got != "second" {
		t.Fatalf("placeholder b = %q, want %q", got, "second")
	}
}

func TestValidIdentifier(t *testing.T) {
	for name, want := range map[string]bool{
		"id":      true,
		"_id":     true,
		"Id9":     true,
		"":        false,
		"9id":     false,
		"with id": false,
	} {
		if got := validIdentifier(name); got != want {
			t.Fatalf("validIdentifier(%q) = %v, want %v", name, got, want)
		}
	}
}
