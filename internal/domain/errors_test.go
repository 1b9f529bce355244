package domain

import (
	"errors"
	"fmt"
	"testing"
)

// TestErrorIsMatchesByKind verifies sentinel matching through wrapping.
func TestErrorIsMatchesByKind(t *testing.T) {
	err := fmt.Errorf("synthesize: %w", &Error{Kind: KindServer, Message: "boom", StatusCode: 500})

	if !errors.Is(err, ErrServer) {
		t.Fatalf("errors.Is(%v, ErrServer) = false", err)
	}
	if errors.Is(err, ErrConnection) {
		t.Fatal("server error should not match connection sentinel")
	}

	var typed *Error
	if !errors.As(err, &typed) || typed.StatusCode != 500 {
		t.Fatalf("errors.As = %+v", typed)
	}
}

// TestErrorUnwrapExposesCause checks cause propagation.
func TestErrorUnwrapExposesCause(t *testing.T) {
	cause := errors.New("disk full")
	err := NewError(KindIO, "write part", cause)

	if !errors.Is(err, cause) {
		t.Fatal("expected cause to be reachable")
	}
	if err.Error() != "write part: disk full" {
		t.Fatalf("Error() = %q", err.Error())
	}
}

// TestLanguageCatalogLookup checks ordered lookups.
func TestLanguageCatalogLookup(t *testing.T) {
	catalog := LanguageCatalog{{Name: "German", Code: "de"}, {Name: "English", Code: "en"}}

	if code, ok := catalog.Code("English"); !ok || code != "en" {
		t.Fatalf("Code(English) = %q, %v", code, ok)
	}
	if _, ok := catalog.Code("Klingon"); ok {
		t.Fatal("unexpected match")
	}
	names := catalog.Names()
	if len(names) != 2 || names[0] != "German" {
		t.Fatalf("Names() = %v", names)
	}
}
