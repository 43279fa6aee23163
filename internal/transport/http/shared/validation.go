package shared

import (
	"net/http"
	"strings"
	"time"

	"perftrack/internal/domain/workflow"
)

// ParseDateRange parses two optional date fields and reports every malformed
// one. Required and ordering rules stay with the domain input validation.
func ParseDateRange(startField, startRaw, endField, endRaw string) (time.Time, time.Time, error) {
	var issues []workflow.FieldIssue
	parse := func(field, raw string) time.Time {
		parsed, err := ParseDate(strings.TrimSpace(raw))
		if err != nil {
			issues = append(issues, workflow.FieldIssue{Field: field, Reason: "must be a valid date in YYYY-MM-DD format"})
		}
		return parsed
	}
	start := parse(startField, startRaw)
	end := parse(endField, endRaw)
	if len(issues) > 0 {
		return time.Time{}, time.Time{}, &workflow.ValidationError{Issues: issues}
	}
	return start, end, nil
}

// QueryIDs parses optional integer query parameters in order.
func QueryIDs(r *http.Request, names ...string) ([]int64, error) {
	out := make([]int64, len(names))
	for i, name := range names {
		id, err := QueryID(r, name)
		if err != nil {
			return nil, workflow.InvalidField(name, "must be an integer")
		}
		out[i] = id
	}
	return out, nil
}
