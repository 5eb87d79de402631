// Package locations holds the geographical regions the candidate search API
// understands, mapped to its numeric geo codes. The serialized form is injected
// into the sourcing agent's system prompt so it can translate user phrasing
// into geo_codes tool arguments.
package locations

import (
	"fmt"
	"sort"
	"strings"
)

var Available = map[string]int{
	"United States":          103644278,
	"San Francisco Bay Area": 90000084,
	"New York City":          90000070,
	"Greater Seattle Area":   90000091,
	"Greater Boston":         90000007,
	"Austin Metro Area":      90000064,
	"Greater Chicago Area":   90000014,
	"Los Angeles Metro":      90000049,
	"United Kingdom":         101165590,
	"Greater London":         90009496,
	"Germany":                101282230,
	"Berlin Metro":           90009712,
	"Netherlands":            102890719,
	"France":                 105015875,
	"Canada":                 101174742,
	"Greater Toronto Area":   90009551,
	"India":                  102713980,
	"Bengaluru":              105214831,
	"Singapore":              102454443,
	"Australia":              101452733,
}

// Serialized renders the table as "Name: code, Name: code, ..." with stable
// ordering, the shape the agent instructions expect.
func Serialized() string {
	names := make([]string, 0, len(Available))
	for name := range Available {
		names = append(names, name)
	}
	sort.Strings(names)

	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, fmt.Sprintf("%s: %d", name, Available[name]))
	}
	return strings.Join(parts, ", ")
}
