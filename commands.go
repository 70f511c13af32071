package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"cardscan/models"
	"cardscan/pkg/catalog"
	"cardscan/pkg/config"
	"cardscan/pkg/logger"
	"cardscan/pkg/ocr"
	"cardscan/pkg/scan"
	"cardscan/process/inbox"
	"cardscan/process/report"
	"cardscan/process/sanitize"
)

// cli carries state shared by every subcommand.
type cli struct {
	configPath string
	cfg        *config.Config
}

func newRootCmd() *cobra.Command {
	c := &cli{}
	cmd := &cobra.Command{
		Use:   "cardscan",
		Short: "Identify trading cards from photos",
		Long: `cardscan reads the printed identifier on a trading card photo and
resolves it against a catalog. A free local OCR read is tried first; a paid
vision model is called only when the free read is inconclusive.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// .env is optional
			_ = godotenv.Load()
			cfg, err := config.Load(c.configPath)
			if err != nil {
				return err
			}
			if err := logger.Setup(cfg.LoggerConfig()); err != nil {
				return err
			}
			c.cfg = cfg
			if cfg.File != "" {
				log.Debug().Str("file", cfg.File).Msg("config loaded")
			}
			return nil
		},
	}
	cmd.PersistentFlags().StringVarP(&c.configPath, "config", "c", "", "config file (default: ./cardscan.yaml or $XDG_CONFIG_HOME/cardscan/config.yaml)")

	cmd.AddCommand(
		c.newServeCmd(),
		c.newScanCmd(),
		c.newWatchCmd(),
		c.newMigrateCmd(),
		c.newCatalogCmd(),
	)
	return cmd
}

func (c *cli) newServeCmd() *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), c.cfg)
			if err != nil {
				return err
			}
			defer a.Close()
			if addr == "" {
				addr = c.cfg.ListenAddr
			}
			if len(c.cfg.JWTSecret) == 0 {
				log.Warn().Msg("JWT_SECRET not set; /api is unauthenticated")
			}

			srv := &http.Server{Addr: addr, Handler: newServer(a).engine(), ReadHeaderTimeout: 10 * time.Second}
			serverErr := make(chan error, 1)
			go func() {
				log.Info().Str("addr", addr).Msg("listening")
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					serverErr <- err
				}
			}()

			select {
			case <-cmd.Context().Done():
				log.Info().Msg("shutting down")
				ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				return srv.Shutdown(ctx)
			case err := <-serverErr:
				return err
			}
		},
	}
	cmd.Flags().StringVarP(&addr, "addr", "a", "", "listen address (default from LISTEN_ADDR)")
	return cmd
}

func (c *cli) newScanCmd() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:     "scan <image>...",
		Short:   "Scan card images and print the outcomes",
		Example: "  cardscan scan photos/*.jpg\n  cardscan scan --json card.png",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), c.cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			items := make([]scan.Item, len(args))
			for i, path := range args {
				items[i] = scan.Item{
					Source: path,
					Open:   func() (image.Image, error) { return ocr.OpenImage(path) },
				}
			}
			outs := a.orch.Batch(cmd.Context(), items, nil)

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				for _, o := range outs {
					if err := enc.Encode(o); err != nil {
						return err
					}
				}
				return nil
			}
			fmt.Fprintln(out, outcomeTable(outs))
			fmt.Fprintln(out, tallyTable(a.tally.Snapshot()))
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print one JSON outcome per line")
	return cmd
}

func (c *cli) newWatchCmd() *cobra.Command {
	var stability time.Duration
	cmd := &cobra.Command{
		Use:   "watch <dir>",
		Short: "Scan images as they are dropped into a directory",
		Long: `Scans existing images in <dir>, then watches it for new ones. Accepted
images move to <dir>/processed, the rest to <dir>/failed, each with a JSON
file holding its outcome.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), c.cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			hook := func(o scan.Outcome) {
				ev := log.Info().Str("file", o.Source).Str("state", string(o.State))
				if o.Record != nil {
					ev = ev.Str("identifier", o.Record.Identifier).Str("name", o.Record.Name)
				}
				if o.Reason != "" {
					ev = ev.Str("reason", string(o.Reason))
				}
				ev.Msg("scanned")
			}
			in := inbox.New(args[0], a.orch, inbox.WithStability(stability), inbox.WithOutcomeHook(hook))
			if err := in.Run(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), tallyTable(a.tally.Snapshot()))
			return nil
		},
	}
	cmd.Flags().DurationVar(&stability, "stability", 300*time.Millisecond, "how long a file must stay unchanged before it is scanned")
	return cmd
}

func (c *cli) newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the catalog tables",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := openDB(c.cfg.DBDSN, false)
			if err != nil {
				return err
			}
			defer closeDB(db)
			if err := models.Migrate(db); err != nil {
				return err
			}
			log.Info().Msg("migration completed")
			return nil
		},
	}
}

func (c *cli) newCatalogCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Inspect and manage the card catalog",
	}
	cmd.AddCommand(
		c.newCatalogImportCmd(),
		c.newCatalogExportCmd(),
		c.newCatalogReportCmd(),
		c.newCatalogMatchCmd(),
		c.newCatalogClearCmd(),
	)
	return cmd
}

func (c *cli) newCatalogImportCmd() *cobra.Command {
	var replace bool
	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Load a json, jsonl or parquet catalog into postgres",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			records, err := catalog.LoadFile(args[0])
			if err != nil {
				return err
			}
			db, err := openDB(c.cfg.DBDSN, true)
			if err != nil {
				return err
			}
			defer closeDB(db)
			n, err := models.ImportRecords(db, records, replace)
			if err != nil {
				return err
			}
			log.Info().Int("records", n).Bool("replace", replace).Str("file", args[0]).Msg("catalog imported")
			return nil
		},
	}
	cmd.Flags().BoolVar(&replace, "replace", false, "delete existing entries before importing")
	return cmd
}

func (c *cli) newCatalogExportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "export <file>",
		Short: "Write the configured catalog as parquet or jsonl",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var db *gorm.DB
			records, _, err := readCatalog(c.cfg, &db)
			if db != nil {
				defer closeDB(db)
			}
			if err != nil {
				return err
			}
			dst := args[0]
			switch strings.ToLower(filepath.Ext(dst)) {
			case ".parquet":
				err = catalog.WriteParquet(dst, records)
			case ".jsonl", ".ndjson":
				err = writeJSONLFile(dst, records)
			default:
				return fmt.Errorf("%w: %s", catalog.ErrUnsupportedFormat, dst)
			}
			if err != nil {
				return err
			}
			log.Info().Int("records", len(records)).Str("file", dst).Msg("catalog exported")
			return nil
		},
	}
}

func writeJSONLFile(path string, records []catalog.Record) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := catalog.WriteJSONL(f, records); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

func (c *cli) newCatalogReportCmd() *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Summarize the catalog and flag identifiers that could be confused",
		RunE: func(cmd *cobra.Command, args []string) error {
			var db *gorm.DB
			records, source, err := readCatalog(c.cfg, &db)
			if db != nil {
				defer closeDB(db)
			}
			if err != nil {
				return err
			}
			r := report.Build(source, records, c.cfg.Tuning.MaxDistance)
			out := cmd.OutOrStdout()
			switch format {
			case "json":
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(r)
			case "markdown", "md":
				return report.WriteMarkdown(out, r)
			case "table":
				fmt.Fprintln(out, reportTables(r))
				return nil
			}
			return fmt.Errorf("unknown format %q (table, json, markdown)", format)
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "table", "output format: table, json or markdown")
	return cmd
}

func (c *cli) newCatalogMatchCmd() *cobra.Command {
	var name string
	cmd := &cobra.Command{
		Use:   "match <identifier>",
		Short: "Look an identifier up without scanning",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var db *gorm.DB
			records, source, err := readCatalog(c.cfg, &db)
			if db != nil {
				defer closeDB(db)
			}
			if err != nil {
				return err
			}
			cat := &catalog.Catalog{}
			cat.Load(records, source)
			m := catalog.NewMatcher(cat,
				catalog.WithMaxDistance(c.cfg.Tuning.MaxDistance),
				catalog.WithAutoAcceptDistance(c.cfg.Tuning.AutoAcceptDistance),
			).Match(args[0], name)

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "status=%s method=%s\n", m.Status, m.Method)
			fmt.Fprintln(out, matchTable(m))
			return nil
		},
	}
	cmd.Flags().StringVarP(&name, "name", "n", "", "name hint used to break ties")
	return cmd
}

func (c *cli) newCatalogClearCmd() *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete every catalog entry from postgres",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := openDB(c.cfg.DBDSN, false)
			if err != nil {
				return err
			}
			defer closeDB(db)
			plan, err := sanitize.Inspect(db)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if !plan.Present {
				fmt.Fprintf(out, "table %s not found; nothing to do\n", plan.Table)
				return nil
			}
			fmt.Fprintf(out, "%s: %d rows\n", plan.Table, plan.Rows)
			if !yes {
				fmt.Fprintln(out, "Destructive operation. Pass --yes to confirm execution. Aborting.")
				return nil
			}
			if err := sanitize.Truncate(cmd.Context(), db, plan); err != nil {
				return err
			}
			log.Info().Str("table", plan.Table).Int64("rows", plan.Rows).Msg("catalog cleared")
			return nil
		},
	}
	cmd.Flags().BoolVar(&yes, "yes", false, "confirm the truncation")
	return cmd
}

func closeDB(db *gorm.DB) {
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}
