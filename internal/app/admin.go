package app

import (
	"context"
	"errors"
	"strings"
	"time"

	"staybook/internal/domain"
)

// ErrInvalidInput covers malformed admin payloads (blank names, unknown room
// types, non-positive counts or prices). Range problems use
// domain.ErrInvalidRange so they map to the same status as elsewhere.
var ErrInvalidInput = errors.New("invalid input")

// AdminService handles the write operations that feed the inventory store.
// Inputs arrive already authenticated; this layer only validates shape.
type AdminService struct {
	repo domain.InventoryRepository
}

func NewAdminService(r domain.InventoryRepository) *AdminService {
	return &AdminService{repo: r}
}

func (s *AdminService) CreateHotel(ctx context.Context, name, city string, lat, lon *float64) (domain.Hotel, error) {
	name = strings.TrimSpace(name)
	city = strings.TrimSpace(city)
	if name == "" || city == "" {
		return domain.Hotel{}, ErrInvalidInput
	}
	return s.repo.CreateHotel(ctx, domain.Hotel{Name: name, City: city, Lat: lat, Lon: lon})
}

// AddRoom creates a room under the hotel. A non-positive capacity takes the
// room type's default.
func (s *AdminService) AddRoom(ctx context.Context, hotelID int64, roomType domain.RoomType, capacity int) (domain.Room, error) {
	if !roomType.Valid() {
		return domain.Room{}, ErrInvalidInput
	}
	if capacity <= 0 {
		capacity = roomType.DefaultCapacity()
	}
	return s.repo.CreateRoom(ctx, domain.Room{HotelID: hotelID, Type: roomType, Capacity: capacity})
}

func (s *AdminService) AddAvailability(ctx context.Context, roomID int64, start, end time.Time, count int, price float64) (domain.AvailabilityWindow, error) {
	if count <= 0 || price <= 0 {
		return domain.AvailabilityWindow{}, ErrInvalidInput
	}
	if !start.Before(end) {
		return domain.AvailabilityWindow{}, domain.ErrInvalidRange
	}
	return s.repo.InsertWindow(ctx, domain.AvailabilityWindow{
		RoomID:         roomID,
		Start:          start,
		End:            end,
		AvailableCount: count,
		Price:          price,
	})
}
