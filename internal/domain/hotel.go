package domain

import (
	"math"
	"time"
)

type Hotel struct {
	ID       int64
	Name     string
	City     string
	Lat, Lon *float64
}

// RoomType tags a room; capacity defaults derive from it at creation.
type RoomType string

const (
	RoomStandard RoomType = "Standard"
	RoomDouble   RoomType = "Double"
	RoomTriple   RoomType = "Triple"
	RoomSuite    RoomType = "Suite"
)

// DefaultCapacity returns the guest count a room of this type sleeps unless
// overridden at creation. Unknown types fall back to 1.
func (t RoomType) DefaultCapacity() int {
	switch t {
	case RoomStandard:
		return 1
	case RoomDouble:
		return 2
	case RoomTriple:
		return 3
	case RoomSuite:
		return 4
	}
	return 1
}

func (t RoomType) Valid() bool {
	switch t {
	case RoomStandard, RoomDouble, RoomTriple, RoomSuite:
		return true
	}
	return false
}

type Room struct {
	ID       int64
	HotelID  int64
	Type     RoomType
	Capacity int
}

// AvailabilityWindow is a contiguous date range [Start, End) during which
// AvailableCount rooms are sellable at Price per night. Windows for the same
// room never overlap; AvailableCount only ever decreases, and only via a
// committed booking.
type AvailabilityWindow struct {
	ID             int64
	RoomID         int64
	Start, End     time.Time
	AvailableCount int
	Price          float64
}

// Contains reports whether the window fully covers the stay [qStart, qEnd].
func (w AvailabilityWindow) Contains(qStart, qEnd time.Time) bool {
	return !w.Start.After(qStart) && !w.End.Before(qEnd)
}

// Overlaps reports whether [s, e) intersects the window's range.
func (w AvailabilityWindow) Overlaps(s, e time.Time) bool {
	return w.End.After(s) && w.Start.Before(e)
}

// Reservation is written exactly once per successful booking and never
// updated afterwards.
type Reservation struct {
	ID         int64
	RoomID     int64
	UserID     string
	Start, End time.Time
	CreatedAt  time.Time
}

// Nights counts billable nights for a stay, one per started 24h period.
func Nights(start, end time.Time) int {
	return int(math.Ceil(end.Sub(start).Hours() / 24))
}

// Identity is the opaque requesting identity supplied by the auth
// collaborator. The engine never verifies it.
type Identity struct {
	UserID           string
	Email            string
	DiscountEligible bool
}
