package models

import (
	"time"

	"cardscan/pkg/catalog"
)

// CatalogEntry is one catalog record stored in postgres. Position keeps the
// source order, which the matcher uses to break ties.
type CatalogEntry struct {
	ID         uint `gorm:"primaryKey"`
	CreatedAt  time.Time
	UpdatedAt  time.Time
	Position   int               `gorm:"index;not null"`
	Identifier string            `gorm:"size:32;index;not null"`
	Name       string            `gorm:"size:255;not null"`
	Year       int               `gorm:"index"`
	Set        string            `gorm:"column:set_name;size:255"`
	Variant    string            `gorm:"size:128"`
	Attributes map[string]string `gorm:"serializer:json"`
}

// TableName pins the table name independent of gorm's pluralizer.
func (CatalogEntry) TableName() string { return "catalog_entries" }

// Record converts the row to the matcher's record type.
func (e CatalogEntry) Record() catalog.Record {
	return catalog.Record{
		Identifier: e.Identifier,
		Name:       e.Name,
		Year:       e.Year,
		Set:        e.Set,
		Variant:    e.Variant,
		Attributes: e.Attributes,
	}
}

// EntryFromRecord builds a row for r at position pos. The identifier is
// stored normalized so exact lookups in SQL agree with the matcher.
func EntryFromRecord(pos int, r catalog.Record) CatalogEntry {
	return CatalogEntry{
		Position:   pos,
		Identifier: catalog.NormalizeIdentifier(r.Identifier),
		Name:       r.Name,
		Year:       r.Year,
		Set:        r.Set,
		Variant:    r.Variant,
		Attributes: r.Attributes,
	}
}
