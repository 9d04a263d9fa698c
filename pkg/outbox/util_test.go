package outbox

import (
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
)

func TestTruncateError(t *testing.T) {
	t.Parallel()

	if got := truncateError(nil, 10); got != "" {
		t.Fatalf("expected empty for nil error, got %q", got)
	}

	err := errors.New("hello world")
	if got := truncateError(err, 5); got != "hello" {
		t.Fatalf("expected %q, got %q", "hello", got)
	}
}

func TestTruncateString_MultibyteBoundary(t *testing.T) {
	t.Parallel()

	// 3-byte runes; a 4-byte cut must back off to a rune boundary.
	s := "日本語"
	if got := truncateString(s, 4); got != "日" {
		t.Fatalf("expected %q, got %q", "日", got)
	}
}

func TestParseIdentifier(t *testing.T) {
	t.Parallel()

	ident, err := ParseIdentifier("public.enrichment_outbox")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if TableLabel(ident) != "public.enrichment_outbox" {
		t.Fatalf("round trip mismatch: %q", TableLabel(ident))
	}

	for _, bad := range []string{"", "a.b.c", "bad-name", "a..b"} {
		if _, err := ParseIdentifier(bad); err == nil {
			t.Fatalf("expected error for %q", bad)
		}
	}

	if _, ok := any(ident).(pgx.Identifier); !ok {
		t.Fatal("expected pgx.Identifier")
	}
}
