// Package ride provides models and persistence for AirBear rides.
package ride

import "time"

// Ride status values. A ride is created pending, moves to booked once the
// checkout session exists, and ends in exactly one of the terminal states.
const (
	StatusPending    = "pending"
	StatusBooked     = "booked"
	StatusInProgress = "in_progress"
	StatusCompleted  = "completed"
	StatusCancelled  = "cancelled"
)

// Ride represents a fixed-fare trip between two fixed spots.
type Ride struct {
	ID          string     `json:"id"`
	RiderID     string     `json:"rider_id"`
	PickupSpot  string     `json:"pickup_spot"`
	DropoffSpot string     `json:"dropoff_spot"`
	Fare        int64      `json:"fare"` // Fare in cents
	Status      string     `json:"status"`
	CreatedAt   *time.Time `json:"created_at,omitempty"`
	UpdatedAt   *time.Time `json:"updated_at,omitempty"`
}

// IsTerminal reports whether the ride has reached a final status.
// Redelivered payment events must not move a terminal ride again.
func (r *Ride) IsTerminal() bool {
	return r.Status == StatusCompleted || r.Status == StatusCancelled
}
