package ride

import "errors"

// ErrUnknownSpot is returned when a pickup or dropoff spot is not in the network.
var ErrUnknownSpot = errors.New("unknown spot")

// ErrSameSpot is returned when pickup and dropoff are identical.
var ErrSameSpot = errors.New("pickup and dropoff must differ")

// Spot is a fixed pickup/dropoff location in the AirBear network.
type Spot struct {
	ID   string  `json:"id"`
	Name string  `json:"name"`
	Lat  float64 `json:"lat"`
	Lng  float64 `json:"lng"`
}

// The fixed spot network. Fares are flat per zone hop rather than metered.
var spots = []Spot{
	{ID: "campus-north", Name: "Campus North", Lat: 42.2808, Lng: -83.7430},
	{ID: "campus-south", Name: "Campus South", Lat: 42.2681, Lng: -83.7312},
	{ID: "downtown", Name: "Downtown", Lat: 42.2814, Lng: -83.7483},
	{ID: "stadium", Name: "Stadium", Lat: 42.2658, Lng: -83.7487},
	{ID: "medical-center", Name: "Medical Center", Lat: 42.2847, Lng: -83.7305},
}

// baseFare is the flat fare in cents for any trip between two spots.
const baseFare int64 = 400

// Spots returns the fixed spot network.
func Spots() []Spot {
	out := make([]Spot, len(spots))
	copy(out, spots)
	return out
}

// SpotByID returns the spot with the given ID.
func SpotByID(id string) (Spot, bool) {
	for _, s := range spots {
		if s.ID == id {
			return s, true
		}
	}
	return Spot{}, false
}

// FareFor returns the fixed fare in cents for a trip between two spots.
// Returns ErrUnknownSpot if either spot is not in the network and ErrSameSpot
// if the spots are identical.
func FareFor(pickupID, dropoffID string) (int64, error) {
	if _, ok := SpotByID(pickupID); !ok {
		return 0, ErrUnknownSpot
	}
	if _, ok := SpotByID(dropoffID); !ok {
		return 0, ErrUnknownSpot
	}
	if pickupID == dropoffID {
		return 0, ErrSameSpot
	}
	return baseFare, nil
}
