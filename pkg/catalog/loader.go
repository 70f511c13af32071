package catalog

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/parquet-go/parquet-go"
	"github.com/rs/zerolog/log"
)

// ErrUnsupportedFormat is returned for catalog files that are not JSON,
// JSONL or Parquet.
var ErrUnsupportedFormat = errors.New("unsupported catalog format")

// ErrEmptyCatalog is returned when a source parsed but held no records.
var ErrEmptyCatalog = errors.New("catalog source has no records")

// parquetRow is the on-disk Parquet layout. Attributes are stored as a JSON
// object string so the schema stays flat.
type parquetRow struct {
	Identifier string `parquet:"identifier"`
	Name       string `parquet:"name"`
	Year       int32  `parquet:"year,optional"`
	Set        string `parquet:"set,optional"`
	Variant    string `parquet:"variant,optional"`
	Attributes string `parquet:"attributes,optional"`
}

// LoadFile reads records from path, picking the decoder by extension.
func LoadFile(path string) ([]Record, error) {
	var (
		records []Record
		err     error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".parquet":
		records, err = loadParquet(path)
	case ".jsonl", ".ndjson":
		records, err = loadJSONL(path)
	case ".json":
		records, err = loadJSON(path)
	default:
		return nil, fmt.Errorf("%w: %s (supported: .json, .jsonl, .parquet)", ErrUnsupportedFormat, filepath.Ext(path))
	}
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrEmptyCatalog, path)
	}
	log.Debug().Str("path", path).Int("records", len(records)).Msg("catalog file loaded")
	return records, nil
}

// loadJSON accepts a JSON array, or falls back to JSONL when the file does
// not start with '['.
func loadJSON(path string) ([]Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] != '[' {
		return decodeJSONL(bytes.NewReader(trimmed))
	}
	var records []Record
	if err := json.Unmarshal(trimmed, &records); err != nil {
		return nil, fmt.Errorf("decode catalog json: %w", err)
	}
	return records, nil
}

func loadJSONL(path string) ([]Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open catalog: %w", err)
	}
	defer f.Close()
	return decodeJSONL(f)
}

func decodeJSONL(r io.Reader) ([]Record, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	var records []Record
	line := 0
	for sc.Scan() {
		line++
		raw := bytes.TrimSpace(sc.Bytes())
		if len(raw) == 0 {
			continue
		}
		var rec Record
		if err := json.Unmarshal(raw, &rec); err != nil {
			return nil, fmt.Errorf("decode catalog line %d: %w", line, err)
		}
		records = append(records, rec)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("scan catalog: %w", err)
	}
	return records, nil
}

func loadParquet(path string) ([]Record, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open parquet file: %w", err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}
	pf, err := parquet.OpenFile(file, info.Size())
	if err != nil {
		return nil, fmt.Errorf("failed to open parquet: %w", err)
	}

	reader := parquet.NewGenericReader[parquetRow](pf)
	defer reader.Close()

	var records []Record
	rows := make([]parquetRow, 128)
	for {
		n, err := reader.Read(rows)
		for _, row := range rows[:n] {
			rec, cerr := row.record()
			if cerr != nil {
				return nil, cerr
			}
			records = append(records, rec)
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read parquet rows: %w", err)
		}
	}
	return records, nil
}

func (row parquetRow) record() (Record, error) {
	rec := Record{
		Identifier: row.Identifier,
		Name:       row.Name,
		Year:       int(row.Year),
		Set:        row.Set,
		Variant:    row.Variant,
	}
	if row.Attributes != "" {
		if err := json.Unmarshal([]byte(row.Attributes), &rec.Attributes); err != nil {
			return Record{}, fmt.Errorf("attributes of %s: %w", row.Identifier, err)
		}
	}
	return rec, nil
}

// WriteParquet stores records in the layout LoadFile reads back.
func WriteParquet(path string, records []Record) error {
	rows := make([]parquetRow, 0, len(records))
	for _, r := range records {
		row := parquetRow{
			Identifier: r.Identifier,
			Name:       r.Name,
			Year:       int32(r.Year),
			Set:        r.Set,
			Variant:    r.Variant,
		}
		if len(r.Attributes) > 0 {
			b, err := json.Marshal(r.Attributes)
			if err != nil {
				return fmt.Errorf("attributes of %s: %w", r.Identifier, err)
			}
			row.Attributes = string(b)
		}
		rows = append(rows, row)
	}
	if err := parquet.WriteFile(path, rows); err != nil {
		return fmt.Errorf("write parquet: %w", err)
	}
	return nil
}

// WriteJSONL stores records one JSON object per line.
func WriteJSONL(w io.Writer, records []Record) error {
	enc := json.NewEncoder(w)
	for _, r := range records {
		if err := enc.Encode(r); err != nil {
			return err
		}
	}
	return nil
}
