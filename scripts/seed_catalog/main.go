package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"cardscan/models"
	"cardscan/pkg/catalog"
	"cardscan/pkg/logger"
)

// sample is a small catalog for local development.
var sample = []catalog.Record{
	{Identifier: "SC-045", Name: "Ken", Year: 2021, Set: "Street Clash"},
	{Identifier: "SC-046", Name: "Ryu", Year: 2021, Set: "Street Clash"},
	{Identifier: "SC-047", Name: "Chun", Year: 2021, Set: "Street Clash"},
	{Identifier: "MV-012", Name: "Storm", Year: 2022, Set: "Mutant Vault"},
	{Identifier: "MV-013", Name: "Rogue", Year: 2022, Set: "Mutant Vault", Variant: "foil"},
	{Identifier: "BA-51", Name: "Bastion", Year: 2023, Set: "Bastion Arc"},
}

func mustDBFromEnv() *gorm.DB {
	dsn := os.Getenv("DB_DSN")
	if dsn == "" {
		log.Fatal().Msg("DB_DSN not set in env")
	}
	gdb, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatal().Err(err).Msg("open db")
	}
	return gdb
}

func main() {
	file := flag.String("file", "", "catalog file to seed from (json, jsonl or parquet); built-in sample when empty")
	replace := flag.Bool("replace", false, "delete existing entries first")
	dry := flag.Bool("dry-run", true, "dry-run: don't write to DB")
	flag.Parse()
	_ = godotenv.Load()
	_ = logger.Setup(logger.DefaultConfig())

	records := sample
	if *file != "" {
		var err error
		if records, err = catalog.LoadFile(*file); err != nil {
			log.Fatal().Err(err).Str("file", *file).Msg("load catalog")
		}
	}
	if *dry {
		for _, r := range records {
			fmt.Printf("%s|%s|%d|%s\n", r.Identifier, r.Name, r.Year, r.Set)
		}
		fmt.Printf("dry-run: %d records (pass -dry-run=false to write)\n", len(records))
		return
	}

	gdb := mustDBFromEnv()
	if err := models.Migrate(gdb); err != nil {
		log.Fatal().Err(err).Msg("migrate")
	}
	n, err := models.ImportRecords(gdb, records, *replace)
	if err != nil {
		log.Fatal().Err(err).Msg("import")
	}
	log.Info().Int("records", n).Bool("replace", *replace).Msg("catalog seeded")
}
