// Package sanitize empties the catalog tables before a clean re-import.
package sanitize

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"cardscan/models"
)

// Plan lists what a truncation would remove.
type Plan struct {
	Table   string
	Present bool
	Rows    int64
}

// Inspect reports whether the catalog table exists and how many rows it has.
func Inspect(db *gorm.DB) (Plan, error) {
	p := Plan{Table: models.CatalogEntry{}.TableName()}
	var cnt int64
	if err := db.Raw("SELECT count(*) FROM pg_tables WHERE schemaname = 'public' AND tablename = ?", p.Table).Scan(&cnt).Error; err != nil {
		return p, fmt.Errorf("query pg_tables for %s: %w", p.Table, err)
	}
	if cnt == 0 {
		return p, nil
	}
	p.Present = true
	if err := db.Model(&models.CatalogEntry{}).Count(&p.Rows).Error; err != nil {
		return p, fmt.Errorf("count %s: %w", p.Table, err)
	}
	return p, nil
}

// Truncate empties the catalog table and resets its identity sequence.
func Truncate(ctx context.Context, db *gorm.DB, p Plan) error {
	if !p.Present {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()
	stmt := fmt.Sprintf("TRUNCATE TABLE %q RESTART IDENTITY", p.Table)
	if err := db.WithContext(ctx).Exec(stmt).Error; err != nil {
		return fmt.Errorf("truncate failed: %w", err)
	}
	return nil
}
