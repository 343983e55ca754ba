package domain

import (
	"context"
	"time"
)

type InventoryRepository interface {
	// Write paths
	CreateHotel(ctx context.Context, h Hotel) (Hotel, error)
	CreateRoom(ctx context.Context, r Room) (Room, error)
	InsertWindow(ctx context.Context, w AvailabilityWindow) (AvailabilityWindow, error)
	Book(ctx context.Context, roomID int64, userID string, start, end time.Time) (BookingResult, error)

	// Read paths
	FindWindow(ctx context.Context, roomID int64, start, end time.Time) (AvailabilityWindow, error)
	DecrementIfAvailable(ctx context.Context, windowID int64) (bool, error)
	Search(ctx context.Context, q SearchQuery) ([]SearchResult, error)
}

type Cache interface {
	Get(ctx context.Context, key string, dst any) (bool, error)
	Set(ctx context.Context, key string, v any, ttlSec int) error
	Del(ctx context.Context, key string) error
}

// EventPublisher is the outbound at-least-once channel for reservation
// events. Implementations must never be called before the booking commit.
type EventPublisher interface {
	Publish(ctx context.Context, ev ReservationEvent) error
}

// BookingResult carries the committed reservation plus the window context
// needed to build the notification event.
type BookingResult struct {
	Reservation Reservation
	HotelName   string
	RoomType    RoomType
	Price       float64
}

// Queries & read models

type SearchQuery struct {
	City             string
	Start, End       time.Time
	Guests           int
	DiscountEligible bool
	Limit, Offset    int
}

type SearchResult struct {
	HotelID        int64     `json:"hotelId"`
	HotelName      string    `json:"hotelName"`
	City           string    `json:"city"`
	Location       *Coords   `json:"location,omitempty"`
	RoomID         int64     `json:"roomId"`
	RoomType       RoomType  `json:"roomType"`
	Capacity       int       `json:"capacity"`
	PricePerNight  float64   `json:"pricePerNight"`
	AvailableCount int       `json:"availableCount"`
	WindowID       int64     `json:"-"`
}

type Coords struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lng"`
}

// ReservationEvent is the outbound message emitted after a committed booking.
type ReservationEvent struct {
	Type          string    `json:"type"` // always "NEW_RESERVATION"
	EventID       string    `json:"eventId"`
	BookingID     int64     `json:"bookingId"`
	RoomID        int64     `json:"roomId"`
	UserID        string    `json:"userId"`
	UserEmail     string    `json:"userEmail,omitempty"`
	HotelName     string    `json:"hotelName,omitempty"`
	RoomType      RoomType  `json:"roomType,omitempty"`
	StartDate     string    `json:"startDate"`
	EndDate       string    `json:"endDate"`
	Nights        int       `json:"nights"`
	PricePerNight float64   `json:"pricePerNight"`
	TotalPrice    float64   `json:"totalPrice"`
	Timestamp     time.Time `json:"timestamp"`
}

const EventTypeNewReservation = "NEW_RESERVATION"
