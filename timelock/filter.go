package timelock

import "strings"

// Filter selects records. Empty fields match everything; set fields are combined with AND.
type Filter struct {
	// Signature matches a substring of the scheduled call signature, ignoring case.
	Signature string
	// Function matches a substring of the timelock function name, ignoring case.
	Function string
	// Status matches the lifecycle status exactly, ignoring case.
	Status string
}

// IsZero reports whether f matches every record.
func (f Filter) IsZero() bool {
	return f == Filter{}
}

// Matches reports whether r satisfies every set condition of f.
func (f Filter) Matches(r Record) bool {
	if f.Signature != "" && !containsFold(r.Signature, f.Signature) {
		return false
	}
	if f.Function != "" && !containsFold(r.Function, f.Function) {
		return false
	}
	if f.Status != "" && !strings.EqualFold(string(r.Status), f.Status) {
		return false
	}

	return true
}

// Apply returns the records matching f, in order.
func (f Filter) Apply(records []Record) []Record {
	if f.IsZero() {
		return records
	}

	out := make([]Record, 0, len(records))
	for _, r := range records {
		if f.Matches(r) {
			out = append(out, r)
		}
	}

	return out
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}
