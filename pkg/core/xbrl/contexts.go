package xbrl

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"xbrl_facts/pkg/core/markup"
)

const dateLayout = "20060102"

// Period is the time bound of one context: either a single instant or a
// start/end duration.
type Period struct {
	Instant bool      `json:"instant"`
	Start   time.Time `json:"start,omitzero"`
	End     time.Time `json:"end"`
}

// InstantPeriod returns a period for a single date.
func InstantPeriod(date time.Time) Period {
	return Period{Instant: true, End: civil(date)}
}

// DurationPeriod returns a start/end period.
func DurationPeriod(start, end time.Time) Period {
	return Period{Start: civil(start), End: civil(end)}
}

// Days returns the length of a duration in whole days; 0 for instants.
func (p Period) Days() int {
	if p.Instant {
		return 0
	}
	return int(p.End.Sub(p.Start).Hours() / 24)
}

func (p Period) String() string {
	if p.Instant {
		return p.End.Format("2006-01-02")
	}
	return p.Start.Format("2006-01-02") + "/" + p.End.Format("2006-01-02")
}

// Catalog maps context ids to their periods while remembering the order in
// which the document declared them.
type Catalog struct {
	order []string
	byID  map[string]Period
}

// NewCatalog returns an empty catalog.
func NewCatalog() *Catalog {
	return &Catalog{byID: make(map[string]Period)}
}

// Add records a context. Re-adding an id keeps its original position.
func (c *Catalog) Add(id string, p Period) {
	if _, ok := c.byID[id]; !ok {
		c.order = append(c.order, id)
	}
	c.byID[id] = p
}

// Get returns the period for id.
func (c *Catalog) Get(id string) (Period, bool) {
	p, ok := c.byID[id]
	return p, ok
}

// Has reports whether id is in the catalog.
func (c *Catalog) Has(id string) bool {
	_, ok := c.byID[id]
	return ok
}

// IDs returns context ids in document order.
func (c *Catalog) IDs() []string {
	return append([]string(nil), c.order...)
}

// Len returns the number of contexts.
func (c *Catalog) Len() int { return len(c.order) }

type catalogEntry struct {
	ID string `json:"id"`
	Period
}

func (c *Catalog) MarshalJSON() ([]byte, error) {
	entries := make([]catalogEntry, 0, len(c.order))
	for _, id := range c.order {
		entries = append(entries, catalogEntry{ID: id, Period: c.byID[id]})
	}
	return json.Marshal(entries)
}

func (c *Catalog) UnmarshalJSON(data []byte) error {
	var entries []catalogEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return err
	}
	*c = *NewCatalog()
	for _, e := range entries {
		c.Add(e.ID, e.Period)
	}
	return nil
}

// BuildContexts reads every consolidated-entity context from doc.
//
// The namespace prefix of the first context-like element ("xbrli:" in most
// filings) is applied to every structural lookup. Contexts whose entity
// carries a segment are sub-entity breakdowns and are skipped, as are
// contexts with no usable dates.
func BuildContexts(doc markup.Node) (*Catalog, error) {
	if doc.FindFirst(rootMatcher) == nil {
		return nil, ErrEmptyDocument
	}

	catalog := NewCatalog()
	lookahead := doc.FindFirst(markup.Contains("context"))
	if lookahead == nil {
		return catalog, nil
	}
	prefix := ""
	if ns, _, ok := markup.SplitName(lookahead.Name()); ok {
		prefix = ns + ":"
	}
	tag := func(local string) markup.Matcher { return markup.Exact(prefix + local) }

	for _, ctx := range doc.FindAll(tag("context")) {
		entity := ctx.FindFirst(tag("entity"))
		if entity == nil || entity.FindFirst(tag("segment")) != nil {
			continue
		}
		id, _ := ctx.Attr("id")

		if instant := ctx.FindFirst(tag("instant")); instant != nil {
			date, err := parseContextDate(instant.Text())
			if err != nil {
				return nil, fmt.Errorf("%w: context %q instant: %v", ErrContextParsing, id, err)
			}
			catalog.Add(id, Period{Instant: true, End: date})
			continue
		}

		period := ctx.FindFirst(tag("period"))
		if period == nil {
			continue
		}
		var start, end time.Time
		var haveStart, haveEnd bool
		if n := period.FindFirst(tag("startdate")); n != nil {
			d, err := parseContextDate(n.Text())
			if err != nil {
				return nil, fmt.Errorf("%w: context %q start date: %v", ErrContextParsing, id, err)
			}
			start, haveStart = d, true
		}
		if n := period.FindFirst(tag("enddate")); n != nil {
			d, err := parseContextDate(n.Text())
			if err != nil {
				return nil, fmt.Errorf("%w: context %q end date: %v", ErrContextParsing, id, err)
			}
			end, haveEnd = d, true
		}
		if !haveStart || !haveEnd {
			continue
		}
		if start.After(end) {
			return nil, fmt.Errorf("%w: context %q starts after it ends", ErrContextParsing, id)
		}
		catalog.Add(id, Period{Start: start, End: end})
	}
	return catalog, nil
}

var rootMatcher = markup.MatcherFunc(func(name string) bool {
	return markup.LocalName(name) == "xbrl"
})

// parseContextDate keeps only the digits of s and reads the first eight as
// YYYYMMDD, so "2020-06-30", "2020-06-30T00:00:00" and "20200630" agree.
func parseContextDate(s string) (time.Time, error) {
	var digits strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			digits.WriteRune(r)
		}
	}
	d := digits.String()
	if len(d) < 8 {
		return time.Time{}, fmt.Errorf("date %q has fewer than 8 digits", strings.TrimSpace(s))
	}
	t, err := time.Parse(dateLayout, d[:8])
	if err != nil {
		return time.Time{}, fmt.Errorf("date %q: %w", strings.TrimSpace(s), err)
	}
	return t, nil
}

// civil truncates t to its calendar date in UTC.
func civil(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
