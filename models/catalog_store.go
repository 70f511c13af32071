package models

import (
	"fmt"

	"gorm.io/gorm"

	"cardscan/pkg/catalog"
)

// Migrate creates or updates the catalog table.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&CatalogEntry{}); err != nil {
		return fmt.Errorf("migrate catalog_entries: %w", err)
	}
	return nil
}

// LoadRecords reads the whole catalog in source order.
func LoadRecords(db *gorm.DB) ([]catalog.Record, error) {
	var rows []CatalogEntry
	if err := db.Order("position asc, id asc").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("load catalog_entries: %w", err)
	}
	out := make([]catalog.Record, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.Record())
	}
	return out, nil
}

// ImportRecords appends records after the current last position, or replaces
// the table content when replace is set. It runs in one transaction.
func ImportRecords(db *gorm.DB, records []catalog.Record, replace bool) (int, error) {
	err := db.Transaction(func(tx *gorm.DB) error {
		if replace {
			if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&CatalogEntry{}).Error; err != nil {
				return fmt.Errorf("clear catalog: %w", err)
			}
		}
		var last struct{ Max int }
		if err := tx.Model(&CatalogEntry{}).Select("COALESCE(MAX(position), 0) AS max").Scan(&last).Error; err != nil {
			return fmt.Errorf("read last position: %w", err)
		}
		rows := make([]CatalogEntry, 0, len(records))
		for i, r := range records {
			rows = append(rows, EntryFromRecord(last.Max+i+1, r))
		}
		if len(rows) == 0 {
			return nil
		}
		return tx.CreateInBatches(rows, 500).Error
	})
	if err != nil {
		return 0, err
	}
	return len(records), nil
}
