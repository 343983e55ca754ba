package domain

import "errors"

var (
	// ErrNotFound: referenced hotel, room or window does not exist.
	ErrNotFound = errors.New("not found")
	// ErrInvalidRange: start >= end; rejected before any store access.
	ErrInvalidRange = errors.New("invalid date range")
	// ErrOverlap: a new availability window intersects an existing one for
	// the same room.
	ErrOverlap = errors.New("availability window overlaps existing range")
	// ErrNoAvailability: no window covers the requested range with count > 0.
	// Retryable with different dates; surfaced as a conflict.
	ErrNoAvailability = errors.New("no availability for selected dates")
	// ErrTransientStore: lock-wait timeout or connectivity failure.
	// Retryable with backoff.
	ErrTransientStore = errors.New("transient storage failure")
)
