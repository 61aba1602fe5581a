// Package seed holds the bundled default venue list. It serves two
// purposes: the places table is seeded from it at first run when the
// remote store is empty, and the sync gateway returns it as the final
// read fallback so the UI never receives an empty nil result before the
// cache was ever populated.
package seed

import (
	"context"
	"log"

	"github.com/velora/nightpulse/internal/model"
	"github.com/velora/nightpulse/internal/repository"
)

// DefaultVenues returns a fresh copy of the bundled venue list so
// callers can mutate their slice freely.
func DefaultVenues() []model.Venue {
	out := make([]model.Venue, len(defaultVenues))
	copy(out, defaultVenues)
	return out
}

var defaultVenues = []model.Venue{
	{
		ID: 1, Name: "Neon Garden", Type: "club", PeopleCount: 128, CapacityPercentage: 82,
		ImageURL: "https://images.nightpulse.app/venues/neon-garden.jpg", IsTrending: true,
		Lat: 52.5200, Lng: 13.4050, Address: "Warschauer Str. 34, Berlin",
		Tags: []string{"techno", "rooftop"},
		Menu: []model.MenuItem{
			{ID: "ng-1", Name: "House Negroni", PriceCents: 1200, Category: "cocktails"},
			{ID: "ng-2", Name: "Mezcal Mule", PriceCents: 1100, Category: "cocktails"},
		},
	},
	{
		ID: 2, Name: "Velvet Room", Type: "lounge", PeopleCount: 54, CapacityPercentage: 45,
		ImageURL: "https://images.nightpulse.app/venues/velvet-room.jpg",
		Lat: 52.4996, Lng: 13.4180, Address: "Skalitzer Str. 101, Berlin",
		Tags: []string{"jazz", "cocktails"},
		Menu: []model.MenuItem{
			{ID: "vr-1", Name: "Old Fashioned", PriceCents: 1300, Category: "cocktails"},
		},
	},
	{
		ID: 3, Name: "Basslane", Type: "club", PeopleCount: 203, CapacityPercentage: 96,
		ImageURL: "https://images.nightpulse.app/venues/basslane.jpg", IsTrending: true,
		Lat: 52.5110, Lng: 13.4390, Address: "Revaler Str. 9, Berlin",
		Tags: []string{"drum and bass", "late"},
	},
	{
		ID: 4, Name: "Cervecería Norte", Type: "bar", PeopleCount: 31, CapacityPercentage: 38,
		ImageURL: "https://images.nightpulse.app/venues/cerveceria-norte.jpg",
		Lat: 52.5310, Lng: 13.4020, Address: "Kastanienallee 77, Berlin",
		Tags: []string{"craft beer"},
		Menu: []model.MenuItem{
			{ID: "cn-1", Name: "IPA 0.4l", PriceCents: 550, Category: "beer"},
			{ID: "cn-2", Name: "Stout 0.4l", PriceCents: 580, Category: "beer"},
		},
	},
}

// EnsurePlaces seeds the places table with the bundled venues when it
// is empty. Failures are logged, not fatal: the service still runs and
// reads fall back to the bundled list.
func EnsurePlaces(ctx context.Context, places *repository.PlaceRepo) {
	n, err := places.Count(ctx)
	if err != nil {
		log.Printf("seed: count places failed: %v", err)
		return
	}
	if n > 0 {
		return
	}
	if err := places.CreateBulk(ctx, DefaultVenues()); err != nil {
		log.Printf("seed: insert default venues failed: %v", err)
		return
	}
	log.Printf("seed: inserted %d default venues", len(defaultVenues))
}
