package xbrl

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

var (
	quarterLabel = regexp.MustCompile(`[0-9]{4}Q[1-4]`)
	yearLabel    = regexp.MustCompile(`[0-9]{4}`)
)

// Quarterly groups the requested GAAP fields by quarter. Quarter contexts
// are those whose id ends in "QTD"; the label is the first "YYYYQn" in the
// id. Ids are visited in string order, so a later id with the same label
// replaces an earlier one. Contexts without a value read as null.
func (r *ParseResult) Quarterly(fields []string) (map[string]map[string]Value, error) {
	ids := r.periodIDs("QTD", quarterLabel)
	data := make(map[string]map[string]Value, len(fields))
	for _, f := range fields {
		byContext, ok := r.GAAP[f]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownConcept, f)
		}
		row := make(map[string]Value, len(ids))
		for _, p := range ids {
			row[p.label] = byContext[p.id]
		}
		data[f] = row
	}
	return data, nil
}

// Yearly groups the requested GAAP fields by fiscal year, using contexts
// whose id ends in "Q4YTD" and the first four-digit run as the year.
func (r *ParseResult) Yearly(fields []string) (map[string]map[int]Value, error) {
	ids := r.periodIDs("Q4YTD", yearLabel)
	data := make(map[string]map[int]Value, len(fields))
	for _, f := range fields {
		byContext, ok := r.GAAP[f]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownConcept, f)
		}
		row := make(map[int]Value, len(ids))
		for _, p := range ids {
			year, err := strconv.Atoi(p.label)
			if err != nil {
				continue
			}
			row[year] = byContext[p.id]
		}
		data[f] = row
	}
	return data, nil
}

type labelledID struct {
	id    string
	label string
}

// periodIDs returns catalog ids ending in suffix that carry a label,
// sorted as plain strings.
func (r *ParseResult) periodIDs(suffix string, label *regexp.Regexp) []labelledID {
	var ids []string
	for _, id := range r.Contexts.IDs() {
		if strings.HasSuffix(id, suffix) {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)

	out := make([]labelledID, 0, len(ids))
	for _, id := range ids {
		if l := label.FindString(id); l != "" {
			out = append(out, labelledID{id: id, label: l})
		}
	}
	return out
}
