package source

import (
	"path/filepath"
	"testing"
)

func TestNewNormalizesRelativePaths(t *testing.T) {
	a := New("a.py")
	abs, _ := filepath.Abs("a.py")

	if a.String() != filepath.Clean(abs) {
		t.Fatalf("New(a.py) = %q, want %q", a.String(), filepath.Clean(abs))
	}
}

func TestEqualityByNormalizedPath(t *testing.T) {
	a := New("./pkg/../a.py")
	b := New("a.py")

	if a != b {
		t.Fatalf("expected %q and %q to be interchangeable, got a=%q b=%q", "./pkg/../a.py", "a.py", a.String(), b.String())
	}
}

func TestSyntheticTokenKeptVerbatim(t *testing.T) {
	s := New("<stdin>")
	if s.String() != "<stdin>" {
		t.Fatalf("synthetic token should be kept verbatim, got %q", s.String())
	}
}

func TestZeroValue(t *testing.T) {
	var s Source
	if !s.IsZero() {
		t.Fatalf("zero Source should report IsZero")
	}
	if !New("").IsZero() {
		t.Fatalf("New(\"\") should report IsZero")
	}
}
