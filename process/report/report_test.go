package report

import (
	"strings"
	"testing"

	"cardscan/pkg/catalog"
)

func TestBuild(t *testing.T) {
	records := []catalog.Record{
		{Identifier: "SC-045", Name: "Ken", Set: "Street"},
		{Identifier: "SC-046", Name: "Ryu", Set: "Street"},
		{Identifier: "sc-045", Name: "Ken (foil)", Set: "Street"},
		{Identifier: "MV-1", Name: "", Set: "Marvel"},
		{Identifier: "XY-999", Name: "Zed", Set: "Other"},
	}
	r := Build("mem", records, 2)

	if r.Records != 5 || r.Identifiers != 4 {
		t.Fatalf("records/identifiers = %d/%d", r.Records, r.Identifiers)
	}
	if r.MissingName != 1 {
		t.Errorf("missing names = %d, want 1", r.MissingName)
	}
	if len(r.Sets) != 3 || r.Sets[0].Set != "Street" || r.Sets[0].Count != 3 {
		t.Errorf("unexpected sets %+v", r.Sets)
	}
	if len(r.Duplicates) != 1 || r.Duplicates[0].Identifier != "SC-045" || len(r.Duplicates[0].Names) != 2 {
		t.Errorf("unexpected duplicates %+v", r.Duplicates)
	}
	if len(r.Collisions) != 1 {
		t.Fatalf("unexpected collisions %+v", r.Collisions)
	}
	c := r.Collisions[0]
	if c.A != "SC-045" || c.B != "SC-046" || c.Distance != 1 {
		t.Errorf("collision = %+v", c)
	}
}

func TestCollisionsDisabled(t *testing.T) {
	r := Build("mem", []catalog.Record{{Identifier: "A-1"}, {Identifier: "A-2"}}, 0)
	if len(r.Collisions) != 0 {
		t.Fatalf("expected no collisions with zero distance, got %+v", r.Collisions)
	}
}

func TestWriteMarkdown(t *testing.T) {
	r := Build("catalog.json", []catalog.Record{
		{Identifier: "SC-045", Name: "Ken", Set: "Street"},
		{Identifier: "SC-046", Name: "Ryu", Set: "Street"},
	}, 2)
	var b strings.Builder
	if err := WriteMarkdown(&b, r); err != nil {
		t.Fatalf("markdown: %v", err)
	}
	out := b.String()
	for _, want := range []string{"# Catalog report", "## Sets", "`SC-045`", "Every identifier is unique."} {
		if !strings.Contains(out, want) {
			t.Errorf("markdown missing %q:\n%s", want, out)
		}
	}
}
