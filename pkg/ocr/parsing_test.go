package ocr

import "testing"

func TestExtractIdentifier(t *testing.T) {
	cases := []struct {
		in   string
		want string
		ok   bool
	}{
		{"AB-12", "AB-12", true},
		{"sc o45", "SC-045", true},
		{"SC O45", "SC-045", true},
		{"  sc\t\no45 ", "SC-045", true},
		{"SC-O45", "SC-045", true},
		{"no digits here", "", false},
		{"", "", false},
		{"KB 1234", "KB-1234", true},
		{"MV234", "MV-234", true},
		{"MV012", "MVO-12", true},
		{"HERO SC :: 045", "SC-045", true},
	}
	for _, c := range cases {
		got, ok := ExtractIdentifier(c.in)
		if ok != c.ok || got != c.want {
			t.Fatalf("ExtractIdentifier(%q) = %q,%v want %q,%v", c.in, got, ok, c.want, c.ok)
		}
	}
}

func TestExtractIdentifierRepairDirection(t *testing.T) {
	// 0 in the prefix becomes O, O in the number becomes 0.
	got, ok := ExtractIdentifier("S0-O5")
	if !ok || got != "SO-05" {
		t.Fatalf("expected SO-05 got %q", got)
	}
	got, ok = ExtractIdentifier("8A-SI")
	if !ok || got != "BA-51" {
		t.Fatalf("expected BA-51 got %q", got)
	}
}

func TestExtractIdentifierBarGlyphs(t *testing.T) {
	got, ok := ExtractIdentifier("SC-|2")
	if !ok || got != "SC-12" {
		t.Fatalf("expected SC-12 got %q", got)
	}
}

func TestExtractIdentifierStrictBeforeLoose(t *testing.T) {
	// the dash pattern wins over an earlier loose match
	got, ok := ExtractIdentifier("ZZZZZZ 99 AB-7")
	if !ok || got != "AB-7" {
		t.Fatalf("expected AB-7 got %q", got)
	}
}
