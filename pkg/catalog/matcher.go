package catalog

import (
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	// DefaultMaxDistance bounds how far a fuzzy candidate may be from the query.
	DefaultMaxDistance = 2
	// DefaultAutoAcceptDistance is the distance at which a lone candidate is
	// accepted without a name hint.
	DefaultAutoAcceptDistance = 1

	// names this short make substring containment close to meaningless
	shortNameRunes = 3
)

// Method says which rule produced a match.
type Method string

const (
	MethodExact     Method = "exact"
	MethodExactName Method = "exact+name"
	MethodFuzzy     Method = "fuzzy"
	MethodFuzzyName Method = "fuzzy+name"
)

// Status is the outcome class of a lookup.
type Status string

const (
	StatusResolved    Status = "resolved"
	StatusAmbiguous   Status = "ambiguous"
	StatusNotFound    Status = "not_found"
	StatusUnavailable Status = "unavailable"
)

// Candidate is a record considered during resolution.
type Candidate struct {
	Record   Record  `json:"record"`
	Distance int     `json:"distance"`
	Score    float64 `json:"score"`
}

// Match explains a lookup: the record picked (if any), the rule that picked
// it and every candidate that was in play.
type Match struct {
	Query      string      `json:"query"`
	Hint       string      `json:"hint,omitempty"`
	Status     Status      `json:"status"`
	Method     Method      `json:"method,omitempty"`
	NameRule   string      `json:"name_rule,omitempty"` // "equal" or "substring"
	Record     *Record     `json:"record,omitempty"`
	Candidates []Candidate `json:"candidates,omitempty"`
}

// Resolved reports whether exactly one record was chosen.
func (m Match) Resolved() bool { return m.Status == StatusResolved && m.Record != nil }

// Matcher resolves identifiers against a catalog: exact first, fuzzy only
// when nothing matched exactly.
type Matcher struct {
	cat         *Catalog
	maxDistance int
	autoAccept  int
	log         zerolog.Logger
}

// MatcherOption configures a Matcher.
type MatcherOption func(*Matcher)

// WithMaxDistance sets the fuzzy tolerance.
func WithMaxDistance(d int) MatcherOption {
	return func(m *Matcher) { m.maxDistance = d }
}

// WithAutoAcceptDistance sets the distance at which a single candidate is
// accepted without a hint.
func WithAutoAcceptDistance(d int) MatcherOption {
	return func(m *Matcher) { m.autoAccept = d }
}

// WithMatcherLogger sets the matcher logger.
func WithMatcherLogger(l zerolog.Logger) MatcherOption {
	return func(m *Matcher) { m.log = l }
}

// NewMatcher returns a matcher over cat.
func NewMatcher(cat *Catalog, opts ...MatcherOption) *Matcher {
	m := &Matcher{
		cat:         cat,
		maxDistance: DefaultMaxDistance,
		autoAccept:  DefaultAutoAcceptDistance,
		log:         log.Logger.With().Str("component", "catalog").Logger(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Ready reports whether the catalog has been loaded.
func (m *Matcher) Ready() bool { return m.cat.Loaded() }

// Catalog returns the catalog the matcher reads.
func (m *Matcher) Catalog() *Catalog { return m.cat }

// Match resolves identifier with an optional name hint.
func (m *Matcher) Match(identifier, hint string) Match {
	res := Match{Query: NormalizeIdentifier(identifier), Hint: hint}
	if !m.cat.Loaded() {
		res.Status = StatusUnavailable
		return res
	}
	if res.Query == "" {
		res.Status = StatusNotFound
		return res
	}
	records := m.cat.Records()

	var exact []Candidate
	for _, r := range records {
		if NormalizeIdentifier(r.Identifier) == res.Query {
			exact = append(exact, Candidate{Record: r, Distance: 0, Score: 1})
		}
	}
	switch len(exact) {
	case 0:
		return m.fuzzy(res, records)
	case 1:
		return resolve(res, exact, 0, MethodExact, "")
	}

	res.Candidates = exact
	if i, rule, ok := m.byName(exact, hint); ok {
		return resolve(res, exact, i, MethodExactName, rule)
	}
	res.Status = StatusAmbiguous
	m.log.Debug().Str("query", res.Query).Int("records", len(exact)).Str("hint", hint).
		Msg("identifier shared by several records and no hint resolved it")
	return res
}

func (m *Matcher) fuzzy(res Match, records []Record) Match {
	var cands []Candidate
	for _, r := range records {
		id := NormalizeIdentifier(r.Identifier)
		d := Levenshtein(res.Query, id)
		if d > m.maxDistance {
			continue
		}
		cands = append(cands, Candidate{Record: r, Distance: d, Score: similarity(res.Query, id, d)})
	}
	sort.SliceStable(cands, func(i, j int) bool { return cands[i].Distance < cands[j].Distance })
	res.Candidates = cands
	if len(cands) == 0 {
		res.Status = StatusNotFound
		return res
	}

	if i, rule, ok := m.byName(cands, res.Hint); ok {
		return resolve(res, cands, i, MethodFuzzyName, rule)
	}

	at, idx := 0, -1
	for i, c := range cands {
		if c.Distance == m.autoAccept {
			at++
			idx = i
		}
	}
	if at == 1 {
		return resolve(res, cands, idx, MethodFuzzy, "")
	}
	// a lone candidate beyond the auto-accept distance is not a guess worth making
	if len(cands) == 1 {
		res.Status = StatusNotFound
		return res
	}
	res.Status = StatusAmbiguous
	m.log.Debug().Str("query", res.Query).Int("candidates", len(cands)).Int("at_auto_accept", at).
		Msg("fuzzy lookup left several plausible corrections")
	return res
}

// byName picks the first candidate whose name equals the hint, then the
// first whose name contains or is contained in the hint.
func (m *Matcher) byName(cands []Candidate, hint string) (int, string, bool) {
	h := NormalizeName(hint)
	if h == "" {
		return 0, "", false
	}
	for i, c := range cands {
		if NormalizeName(c.Record.Name) == h {
			return i, "equal", true
		}
	}
	for i, c := range cands {
		n := NormalizeName(c.Record.Name)
		if n == "" {
			continue
		}
		if containsEither(h, n) {
			if utf8.RuneCountInString(n) < shortNameRunes || utf8.RuneCountInString(h) < shortNameRunes {
				m.log.Warn().Str("hint", hint).Str("name", c.Record.Name).
					Msg("name resolved by substring on a very short name")
			}
			return i, "substring", true
		}
	}
	return 0, "", false
}

func resolve(res Match, cands []Candidate, i int, method Method, rule string) Match {
	rec := cands[i].Record
	res.Status = StatusResolved
	res.Method = method
	res.NameRule = rule
	res.Record = &rec
	if res.Candidates == nil {
		res.Candidates = cands
	}
	return res
}

func containsEither(a, b string) bool {
	return len(a) > 0 && len(b) > 0 && (strings.Contains(a, b) || strings.Contains(b, a))
}

// similarity is 1 - distance/longest, in runes.
func similarity(a, b string, d int) float64 {
	n := max(utf8.RuneCountInString(a), utf8.RuneCountInString(b))
	if n == 0 {
		return 1
	}
	return 1 - float64(d)/float64(n)
}
