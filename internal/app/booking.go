package app

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"staybook/internal/adapters/observability"
	"staybook/internal/domain"
)

// BookingService is the only path that mutates availability. Each attempt
// runs the store transaction under a bounded timeout; a committed booking
// hands its event to a buffered queue drained by a single publisher
// goroutine, so dispatch can never block or fail the booking itself.
type BookingService struct {
	repo    domain.InventoryRepository
	pub     domain.EventPublisher
	log     zerolog.Logger
	timeout time.Duration

	events chan domain.ReservationEvent
	wg     sync.WaitGroup
	once   sync.Once
}

func NewBookingService(r domain.InventoryRepository, pub domain.EventPublisher, log zerolog.Logger, timeout time.Duration, queueSize int) *BookingService {
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	if queueSize <= 0 {
		queueSize = 256
	}
	s := &BookingService{
		repo:    r,
		pub:     pub,
		log:     log,
		timeout: timeout,
		events:  make(chan domain.ReservationEvent, queueSize),
	}
	s.wg.Add(1)
	go s.dispatch()
	return s
}

// Book attempts the reservation. On success the notification event is
// already queued; the returned reservation is committed regardless of what
// happens to the event afterwards.
func (s *BookingService) Book(ctx context.Context, roomID int64, id domain.Identity, start, end time.Time) (domain.Reservation, error) {
	if !start.Before(end) {
		observability.ObserveBooking("invalid_range")
		return domain.Reservation{}, domain.ErrInvalidRange
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	res, err := s.repo.Book(ctx, roomID, id.UserID, start, end)
	if err != nil {
		observability.ObserveBooking(outcomeLabel(err))
		return domain.Reservation{}, err
	}
	observability.ObserveBooking("committed")

	s.enqueue(buildEvent(res, id))
	return res.Reservation, nil
}

func buildEvent(res domain.BookingResult, id domain.Identity) domain.ReservationEvent {
	nights := domain.Nights(res.Reservation.Start, res.Reservation.End)
	return domain.ReservationEvent{
		Type:          domain.EventTypeNewReservation,
		EventID:       uuid.NewString(),
		BookingID:     res.Reservation.ID,
		RoomID:        res.Reservation.RoomID,
		UserID:        id.UserID,
		UserEmail:     id.Email,
		HotelName:     res.HotelName,
		RoomType:      res.RoomType,
		StartDate:     res.Reservation.Start.UTC().Format("2006-01-02"),
		EndDate:       res.Reservation.End.UTC().Format("2006-01-02"),
		Nights:        nights,
		PricePerNight: res.Price,
		TotalPrice:    res.Price * float64(nights),
		Timestamp:     time.Now().UTC(),
	}
}

// enqueue never blocks: a full queue drops the event. The booking is already
// committed, so the only correct failure mode here is log-and-drop.
func (s *BookingService) enqueue(ev domain.ReservationEvent) {
	select {
	case s.events <- ev:
	default:
		observability.ObserveEvent("dropped")
		s.log.Warn().Int64("booking_id", ev.BookingID).Msg("event queue full, notification dropped")
	}
}

func (s *BookingService) dispatch() {
	defer s.wg.Done()
	for ev := range s.events {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		err := s.pub.Publish(ctx, ev)
		cancel()
		if err != nil {
			observability.ObserveEvent("failed")
			s.log.Error().Err(err).Int64("booking_id", ev.BookingID).Msg("notification publish failed")
			continue
		}
		observability.ObserveEvent("published")
	}
}

// Close drains and stops the dispatcher. Call on shutdown only.
func (s *BookingService) Close() {
	s.once.Do(func() { close(s.events) })
	s.wg.Wait()
}

func outcomeLabel(err error) string {
	switch {
	case err == nil:
		return "committed"
	case errors.Is(err, domain.ErrNoAvailability):
		return "no_availability"
	case errors.Is(err, domain.ErrNotFound):
		return "not_found"
	case errors.Is(err, domain.ErrTransientStore):
		return "transient"
	case errors.Is(err, domain.ErrInvalidRange):
		return "invalid_range"
	}
	return "error"
}
