package seed

import (
	"testing"

	"github.com/go-playground/assert/v2"
)

func TestDefaultVenuesHaveStableIDs(t *testing.T) {
	venues := DefaultVenues()
	assert.Equal(t, len(venues) > 0, true)

	seen := make(map[uint64]bool, len(venues))
	for _, v := range venues {
		if v.ID == 0 {
			t.Fatalf("venue %q has no id; it could never be fetched or checked into", v.Name)
		}
		if seen[v.ID] {
			t.Fatalf("duplicate venue id %d", v.ID)
		}
		seen[v.ID] = true
	}
}

func TestDefaultVenuesReturnsFreshCopy(t *testing.T) {
	first := DefaultVenues()
	first[0].Name = "mutated"

	assert.Equal(t, DefaultVenues()[0].Name, "Neon Garden")
}
