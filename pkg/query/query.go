// Package query filters and summarizes the dock board. Nothing here mutates
// the records it is given.
package query

import (
	"fmt"
	"strings"

	"github.com/muelle-planner/platform/pkg/dock"
)

type StatusFilter string

const (
	FilterAll      StatusFilter = "all"
	FilterPending  StatusFilter = "pending"
	FilterAccepted StatusFilter = "accepted"
	FilterIncident StatusFilter = "incident"
)

// ParseStatusFilter accepts the filter names case-insensitively. An empty
// string means FilterAll.
func ParseStatusFilter(s string) (StatusFilter, error) {
	switch f := StatusFilter(strings.ToLower(strings.TrimSpace(s))); f {
	case "":
		return FilterAll, nil
	case FilterAll, FilterPending, FilterAccepted, FilterIncident:
		return f, nil
	}
	return "", fmt.Errorf("unknown status filter %q", s)
}

func (f StatusFilter) match(r dock.Record) bool {
	switch f {
	case FilterPending:
		return r.Status == dock.StatusPending
	case FilterAccepted:
		return r.Status == dock.StatusAccepted
	case FilterIncident:
		return r.Incident()
	}
	return true
}

// Filter returns the records passing both the status filter and the search
// term, in collection order.
func Filter(records []dock.Record, filter StatusFilter, term string) []dock.Record {
	needle := strings.ToLower(strings.TrimSpace(term))
	out := make([]dock.Record, 0, len(records))
	for _, r := range records {
		if !filter.match(r) {
			continue
		}
		if needle != "" && !matchesTerm(r, needle) {
			continue
		}
		out = append(out, r)
	}
	return out
}

func matchesTerm(r dock.Record, needle string) bool {
	for _, v := range []string{r.Carrier, r.Destination, r.Plate, r.Dock} {
		if strings.Contains(strings.ToLower(v), needle) {
			return true
		}
	}
	return false
}

// Stats are the board counters. They are always computed over the whole
// collection, never over a filtered view.
type Stats struct {
	Total     int `json:"total"`
	Pending   int `json:"pending"`
	Accepted  int `json:"accepted"`
	Incidents int `json:"incidents"`
}

func Summarize(records []dock.Record) Stats {
	stats := Stats{Total: len(records)}
	for _, r := range records {
		switch r.Status {
		case dock.StatusPending:
			stats.Pending++
		case dock.StatusAccepted:
			stats.Accepted++
		}
		if r.Incident() {
			stats.Incidents++
		}
	}
	return stats
}
