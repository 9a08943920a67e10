package shelve

import (
	"bytes"
	"testing"
)

func TestBuildOpenLookupRoundTrip(t *testing.T) {
	pairs := map[string][]byte{
		"a":     []byte("4"),
		"b":     []byte("30"),
		"eelco": []byte("3"),
	}

	var buf bytes.Buffer
	if err := Build(pairs, &buf); err != nil {
		t.Fatalf("Build: %v", err)
	}

	sh, err := Open(&buf)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	for key, want := range pairs {
		got, ok, err := sh.Lookup(key)
		if err != nil {
			t.Fatalf("Lookup(%q): %v", key, err)
		}
		if !ok {
			t.Fatalf("Lookup(%q): not found", key)
		}
		if !bytes.Equal(got, want) {
			t.Errorf("Lookup(%q) = %q, want %q", key, got, want)
		}
	}
}

func TestLookupMissingKey(t *testing.T) {
	var buf bytes.Buffer
	if err := Build(map[string][]byte{"a": []byte("1")}, &buf); err != nil {
		t.Fatalf("Build: %v", err)
	}
	sh, err := Open(&buf)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	_, ok, err := sh.Lookup("missing")
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if ok {
		t.Errorf("expected a miss for an unbuilt key")
	}
}

func TestBuildAcceptsEmptyInput(t *testing.T) {
	var buf bytes.Buffer
	if err := Build(map[string][]byte{}, &buf); err != nil {
		t.Fatalf("Build on empty input: %v", err)
	}
	sh, err := Open(&buf)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	_, ok, err := sh.Lookup("anything")
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if ok {
		t.Errorf("expected a miss against an empty shelve")
	}
}
