package models

import (
	"testing"

	"cardscan/pkg/catalog"
)

func TestEntryRecordRoundTrip(t *testing.T) {
	rec := catalog.Record{Identifier: "sc 045", Name: "Bo", Year: 2021, Set: "Shadow", Variant: "foil", Attributes: map[string]string{"rarity": "rare"}}
	e := EntryFromRecord(7, rec)
	if e.Position != 7 || e.Identifier != "SC045" {
		t.Fatalf("unexpected entry %+v", e)
	}
	back := e.Record()
	if back.Name != "Bo" || back.Set != "Shadow" || back.Attributes["rarity"] != "rare" {
		t.Fatalf("unexpected record %+v", back)
	}
}

func TestTableName(t *testing.T) {
	if (CatalogEntry{}).TableName() != "catalog_entries" {
		t.Fatalf("unexpected table name")
	}
}
