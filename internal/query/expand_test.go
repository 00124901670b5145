package query

import (
	"errors"
	"testing"
)

func TestExpandSimple(t *testing.T) {
	defs := map[string]string{"vacation": "beach + mountain"}

	got, err := Expand("vacation -mountain", defs, 0)
	if err != nil {
		t.Fatalf("expand: %v", err)
	}
	want := "(beach + mountain) -mountain"
	if got != want {
		t.Errorf("expanded = %q, want %q", got, want)
	}
}

func TestExpandWholeWordsOnly(t *testing.T) {
	defs := map[string]string{"cat": "feline"}

	got, err := Expand("cat category bobcat", defs, 0)
	if err != nil {
		t.Fatalf("expand: %v", err)
	}
	// Only the standalone token is a compound-tag reference.
	want := "(feline) category bobcat"
	if got != want {
		t.Errorf("expanded = %q, want %q", got, want)
	}
}

func TestExpandNested(t *testing.T) {
	defs := map[string]string{
		"coast":   "beach + cliff",
		"holiday": "coast sunny",
	}

	got, err := Expand("holiday", defs, 0)
	if err != nil {
		t.Fatalf("expand: %v", err)
	}
	want := "((((beach + cliff)) sunny))"
	// Exact parenthesization depends on pass order; correctness is checked
	// by parsing both sides.
	gotExpr, err := Parse(got)
	if err != nil {
		t.Fatalf("parse expansion %q: %v", got, err)
	}
	wantExpr, err := Parse(want)
	if err != nil {
		t.Fatalf("parse %q: %v", want, err)
	}
	if !Equal(Normalize(gotExpr), Normalize(wantExpr)) {
		t.Errorf("expansion %q not equivalent to %q", got, want)
	}
}

func TestExpandNoDefinitions(t *testing.T) {
	got, err := Expand("cat -dog", nil, 0)
	if err != nil {
		t.Fatalf("expand: %v", err)
	}
	if got != "cat -dog" {
		t.Errorf("expanded = %q, want input unchanged", got)
	}
}

func TestExpandRecursionLimit(t *testing.T) {
	tests := []map[string]string{
		{"loop": "loop + extra"},
		{"a": "b", "b": "a"},
	}
	for _, defs := range tests {
		_, err := Expand("a loop", defs, 0)
		var limitErr *RecursionLimitError
		if !errors.As(err, &limitErr) {
			t.Errorf("defs %v: err = %v, want RecursionLimitError", defs, err)
			continue
		}
		if limitErr.Limit != DefaultMaxExpansionDepth {
			t.Errorf("limit = %d, want default %d", limitErr.Limit, DefaultMaxExpansionDepth)
		}
	}
}

func TestExpandCustomDepth(t *testing.T) {
	defs := map[string]string{"loop": "loop"}
	_, err := Expand("loop", defs, 3)
	var limitErr *RecursionLimitError
	if !errors.As(err, &limitErr) {
		t.Fatalf("err = %v, want RecursionLimitError", err)
	}
	if limitErr.Limit != 3 {
		t.Errorf("limit = %d, want 3", limitErr.Limit)
	}
}

func TestExpandMasksMetatagValues(t *testing.T) {
	defs := map[string]string{"vacation": "beach + mountain"}

	tests := []struct {
		input string
		want  string
	}{
		// A compound-tag label inside a metatag value is data, not a
		// reference.
		{"name:plain:vacation", "name:plain:vacation"},
		{"vacation name:plain:vacation", "(beach + mountain) name:plain:vacation"},
		{`vacation name:regex:"vacation \d+"`, `(beach + mountain) name:regex:"vacation \d+"`},
	}
	for _, tt := range tests {
		got, err := Expand(tt.input, defs, 0)
		if err != nil {
			t.Errorf("expand %q: %v", tt.input, err)
			continue
		}
		if got != tt.want {
			t.Errorf("expand %q = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestExpandDeterministic(t *testing.T) {
	defs := map[string]string{
		"a": "x + y",
		"b": "y + z",
		"c": "a b",
	}
	first, err := Expand("c", defs, 0)
	if err != nil {
		t.Fatalf("expand: %v", err)
	}
	for i := 0; i < 20; i++ {
		again, err := Expand("c", defs, 0)
		if err != nil {
			t.Fatalf("expand: %v", err)
		}
		if again != first {
			t.Fatalf("expansion is not deterministic: %q vs %q", first, again)
		}
	}
}
