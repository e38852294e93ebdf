package reports

import (
	"errors"
	"testing"
	"time"
)

var testNow = time.Date(2024, 3, 20, 15, 30, 0, 0, time.UTC)

func TestResolveRange_Defaults(t *testing.T) {
	r, err := ResolveRange("", "", 30, testNow)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	wantFrom := time.Date(2024, 2, 20, 0, 0, 0, 0, time.UTC)
	if !r.From.Equal(wantFrom) {
		t.Fatalf("from = %v, want %v", r.From, wantFrom)
	}
	if r.To.Before(testNow) {
		t.Fatalf("to = %v should cover now", r.To)
	}
	if r.Days() != 30 {
		t.Fatalf("days = %d, want 30", r.Days())
	}
}

func TestResolveRange_ExplicitDayBoundaries(t *testing.T) {
	r, err := ResolveRange("2024-01-01", "2024-01-31", 30, testNow)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.From.Hour() != 0 || r.From.Minute() != 0 {
		t.Fatalf("from not start of day: %v", r.From)
	}
	if r.To.Day() != 31 || r.To.Hour() != 23 {
		t.Fatalf("to not end of day: %v", r.To)
	}
	if r.Days() != 31 {
		t.Fatalf("days = %d, want 31", r.Days())
	}
}

// An inverted range falls back to the default window; this leniency is the
// documented contract, not an accident.
func TestResolveRange_InvertedFallsBackToDefault(t *testing.T) {
	r, err := ResolveRange("2024-03-10", "2024-03-01", 14, testNow)
	if err != nil {
		t.Fatalf("inverted range must not error, got %v", err)
	}
	def, _ := ResolveRange("", "", 14, testNow)
	if !r.From.Equal(def.From) || !r.To.Equal(def.To) {
		t.Fatalf("inverted range = %+v, want default %+v", r, def)
	}
}

func TestResolveRange_UnparseableIsError(t *testing.T) {
	for _, in := range [][2]string{{"03/01/2024", ""}, {"", "yesterday"}, {"2024-13-01", ""}} {
		_, err := ResolveRange(in[0], in[1], 30, testNow)
		if !errors.Is(err, ErrBadDate) {
			t.Fatalf("ResolveRange(%q, %q) err = %v, want ErrBadDate", in[0], in[1], err)
		}
	}
}

func TestResolveRange_PartialParams(t *testing.T) {
	// only "from": to defaults to end of today
	r, err := ResolveRange("2024-03-01", "", 30, testNow)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.From.Day() != 1 || r.To.Day() != 20 {
		t.Fatalf("unexpected range %+v", r)
	}
}
