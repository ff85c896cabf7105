// Package schedule holds the fixed catalogue of daily time slots shared
// verbatim between the admin UI and the core. Routes pick weekday and
// weekend departure slots from this closed set.
package schedule

import "fmt"

// SlotsPerDay is the number of 15-minute slots in the catalogue
const SlotsPerDay = 96

var (
	catalogue []string
	valid     map[string]bool
)

func init() {
	catalogue = make([]string, 0, SlotsPerDay)
	valid = make(map[string]bool, SlotsPerDay)
	for h := 0; h < 24; h++ {
		for m := 0; m < 60; m += 15 {
			slot := fmt.Sprintf("%02d:%02d", h, m)
			catalogue = append(catalogue, slot)
			valid[slot] = true
		}
	}
}

// Valid reports whether slot belongs to the catalogue
func Valid(slot string) bool {
	return valid[slot]
}

// Catalogue returns the full slot list in day order, 00:00 through 23:45
func Catalogue() []string {
	return append([]string{}, catalogue...)
}
