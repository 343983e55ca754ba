package main

import (
	"context"
	"errors"
	"os/signal"
	"sync"
	"syscall"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"

	kafkaad "staybook/internal/adapters/kafka"
	"staybook/internal/adapters/observability"
	"staybook/internal/domain"
	"staybook/internal/shared"
)

// The notifier drains the reservation topic and renders each booking into a
// guest notification. Delivery is at-least-once, so a booking may be
// rendered twice; that is acceptable for notifications.
func main() {
	cfg := shared.Load()
	log.Logger = observability.NewLogger(cfg.AppEnv)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	consumer := kafkaad.NewConsumer(cfg.KafkaBrokers, cfg.KafkaTopic, cfg.KafkaGroupID)
	defer consumer.Close()

	log.Info().
		Strs("brokers", cfg.KafkaBrokers).
		Str("topic", cfg.KafkaTopic).
		Int("workers", cfg.NotifyWorkers).
		Msg("notifier starting")

	// the downstream mail relay tolerates ~10 sends/second
	limiter := rate.NewLimiter(rate.Limit(10), 10)
	sem := semaphore.NewWeighted(int64(cfg.NotifyWorkers))
	var wg sync.WaitGroup

	for {
		ev, msg, err := consumer.Fetch(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				break
			}
			log.Warn().Err(err).Msg("fetch failed")
			// decode failures carry the fetched message; commit to skip it
			if msg.Topic != "" {
				_ = consumer.Commit(ctx, msg)
			}
			continue
		}

		if err := sem.Acquire(ctx, 1); err != nil {
			break
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer sem.Release(1)

			if err := limiter.Wait(ctx); err != nil {
				return
			}
			notify(ev)
			if err := consumer.Commit(ctx, msg); err != nil {
				log.Warn().Err(err).Int64("booking_id", ev.BookingID).Msg("commit failed")
			}
		}()
	}

	wg.Wait()
	log.Info().Msg("notifier stopped")
}

// notify renders the reservation summary. A real deployment would hand this
// to a mail sender; the summary itself is the contract.
func notify(ev domain.ReservationEvent) {
	if ev.Type != domain.EventTypeNewReservation {
		log.Warn().Str("type", ev.Type).Msg("unknown event type, ignoring")
		return
	}
	log.Info().
		Int64("booking_id", ev.BookingID).
		Str("hotel", ev.HotelName).
		Str("room_type", string(ev.RoomType)).
		Str("check_in", ev.StartDate).
		Str("check_out", ev.EndDate).
		Int("nights", ev.Nights).
		Float64("price_per_night", ev.PricePerNight).
		Float64("total", ev.TotalPrice).
		Str("email", ev.UserEmail).
		Msg("new reservation notification")
}
