// Package alert evaluates freshly reconciled records against stored alert
// criteria. Matching is pure and in-memory; delivery belongs to the notifier.
package alert

import (
	"fmt"
	"strings"

	"circular_fetcher/internal/domain"
)

type Matcher struct{}

func NewMatcher() *Matcher {
	return &Matcher{}
}

// Match evaluates rec against every criteria and returns one event per
// satisfied pair. A criteria matches when all of its configured filters pass:
// at least one keyword appears in the title+department+skills text, and the
// location/department filters (when set) equal the record's values
// case-insensitively. A criteria with no filters configured is vacuously
// satisfied and matches every record. Events are not deduplicated across
// runs.
func (m *Matcher) Match(rec domain.JobRecord, criteria []domain.AlertCriteria) []domain.MatchEvent {
	haystack := strings.ToLower(
		rec.Fields.Title + " " + rec.Fields.Department + " " + strings.Join(rec.Fields.Skills, " "),
	)

	var events []domain.MatchEvent
	for _, c := range criteria {
		matched, ok := evaluate(rec, c, haystack)
		if !ok {
			continue
		}
		events = append(events, domain.MatchEvent{
			JobRecordID:     rec.ID,
			AlertCriteriaID: c.ID,
			MatchedFields:   matched,
			SourceID:        rec.SourceID,
			Title:           rec.Fields.Title,
		})
	}
	return events
}

func evaluate(rec domain.JobRecord, c domain.AlertCriteria, haystack string) ([]string, bool) {
	var matched []string

	if len(c.Keywords) > 0 {
		hit := false
		for _, kw := range c.Keywords {
			if kw == "" {
				continue
			}
			if strings.Contains(haystack, strings.ToLower(kw)) {
				matched = append(matched, fmt.Sprintf("keyword:%s", kw))
				hit = true
			}
		}
		if !hit {
			return nil, false
		}
	}

	if c.LocationFilter != "" {
		if !strings.EqualFold(c.LocationFilter, rec.Fields.Location) {
			return nil, false
		}
		matched = append(matched, "location")
	}

	if c.DepartmentFilter != "" {
		if !strings.EqualFold(c.DepartmentFilter, rec.Fields.Department) {
			return nil, false
		}
		matched = append(matched, "department")
	}

	return matched, true
}
