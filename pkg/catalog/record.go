// Package catalog holds the read-only card catalog and resolves recognized
// identifiers against it.
package catalog

import (
	"strings"
	"sync/atomic"
)

// Record is one catalog slot. Several records may share an Identifier; the
// Name tells them apart.
type Record struct {
	Identifier string            `json:"identifier"`
	Name       string            `json:"name"`
	Year       int               `json:"year,omitempty"`
	Set        string            `json:"set,omitempty"`
	Variant    string            `json:"variant,omitempty"`
	Attributes map[string]string `json:"attributes,omitempty"`
}

// Catalog is an ordered, immutable record set. The zero value is an unloaded
// catalog; Load swaps in records exactly once per source refresh and readers
// never see a partial set.
type Catalog struct {
	records atomic.Pointer[[]Record]
	source  atomic.Value // string
}

// New returns a loaded catalog over records. The slice is copied.
func New(records []Record) *Catalog {
	c := &Catalog{}
	c.Load(records, "memory")
	return c
}

// Load publishes records. Order is the tie-break order for matching.
func (c *Catalog) Load(records []Record, source string) {
	cp := make([]Record, len(records))
	copy(cp, records)
	c.records.Store(&cp)
	c.source.Store(source)
}

// Loaded reports whether a record set has been published.
func (c *Catalog) Loaded() bool {
	return c != nil && c.records.Load() != nil
}

// Records returns the published records, nil when not loaded. Callers must
// not modify the returned slice.
func (c *Catalog) Records() []Record {
	if c == nil {
		return nil
	}
	p := c.records.Load()
	if p == nil {
		return nil
	}
	return *p
}

// Len is the number of published records.
func (c *Catalog) Len() int { return len(c.Records()) }

// Source describes where the records came from.
func (c *Catalog) Source() string {
	if c == nil {
		return ""
	}
	s, _ := c.source.Load().(string)
	return s
}

// NormalizeIdentifier upper-cases and drops all whitespace.
func NormalizeIdentifier(id string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\t', '\n', '\r', '\v', '\f':
			return -1
		}
		return r
	}, strings.ToUpper(id))
}

// NormalizeName lower-cases, collapses whitespace runs and trims.
func NormalizeName(name string) string {
	return strings.Join(strings.Fields(strings.ToLower(name)), " ")
}
