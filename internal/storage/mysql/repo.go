package mysql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-sql-driver/mysql"

	"staybook/internal/domain"
)

const dateLayout = "2006-01-02"

func valF64(p *float64) any {
	if p == nil {
		return nil
	}
	return *p
}

type Repo struct{ db *sql.DB }

func New(db *sql.DB) *Repo { return &Repo{db: db} }

// mapStoreErr folds lock-wait timeouts, deadlocks and deadline expiry into
// the retryable ErrTransientStore; everything else passes through.
func mapStoreErr(err error) error {
	if err == nil {
		return nil
	}
	var me *mysql.MySQLError
	if errors.As(err, &me) {
		// 1205 = lock wait timeout, 1213 = deadlock victim
		if me.Number == 1205 || me.Number == 1213 {
			return fmt.Errorf("%w: %v", domain.ErrTransientStore, err)
		}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", domain.ErrTransientStore, err)
	}
	return err
}

func (r *Repo) CreateHotel(ctx context.Context, h domain.Hotel) (domain.Hotel, error) {
	res, err := r.db.ExecContext(ctx, insertHotelSQL, h.Name, h.City, valF64(h.Lat), valF64(h.Lon))
	if err != nil {
		return domain.Hotel{}, fmt.Errorf("insert hotel: %w", mapStoreErr(err))
	}
	h.ID, err = res.LastInsertId()
	if err != nil {
		return domain.Hotel{}, err
	}
	return h, nil
}

func (r *Repo) CreateRoom(ctx context.Context, rm domain.Room) (domain.Room, error) {
	var exists int64
	if err := r.db.QueryRowContext(ctx, `SELECT id FROM hotels WHERE id = ?`, rm.HotelID).Scan(&exists); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Room{}, fmt.Errorf("hotel %d: %w", rm.HotelID, domain.ErrNotFound)
		}
		return domain.Room{}, mapStoreErr(err)
	}
	res, err := r.db.ExecContext(ctx, insertRoomSQL, rm.HotelID, string(rm.Type), rm.Capacity)
	if err != nil {
		return domain.Room{}, fmt.Errorf("insert room: %w", mapStoreErr(err))
	}
	rm.ID, err = res.LastInsertId()
	if err != nil {
		return domain.Room{}, err
	}
	return rm, nil
}

// InsertWindow creates an availability window, rejecting ranges that
// intersect an existing window for the same room. The overlap check and the
// insert run in one transaction with the existing rows locked, so concurrent
// admin inserts serialize instead of both passing the check.
func (r *Repo) InsertWindow(ctx context.Context, w domain.AvailabilityWindow) (domain.AvailabilityWindow, error) {
	if !w.Start.Before(w.End) {
		return domain.AvailabilityWindow{}, domain.ErrInvalidRange
	}

	var exists int64
	if err := r.db.QueryRowContext(ctx, `SELECT id FROM rooms WHERE id = ?`, w.RoomID).Scan(&exists); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.AvailabilityWindow{}, fmt.Errorf("room %d: %w", w.RoomID, domain.ErrNotFound)
		}
		return domain.AvailabilityWindow{}, mapStoreErr(err)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.AvailabilityWindow{}, fmt.Errorf("begin tx: %w", mapStoreErr(err))
	}
	defer tx.Rollback()

	var one int
	err = tx.QueryRowContext(ctx, overlapCheckSQL, w.RoomID, fmtDate(w.Start), fmtDate(w.End)).Scan(&one)
	switch {
	case err == nil:
		return domain.AvailabilityWindow{}, domain.ErrOverlap
	case !errors.Is(err, sql.ErrNoRows):
		return domain.AvailabilityWindow{}, mapStoreErr(err)
	}

	res, err := tx.ExecContext(ctx, insertWindowSQL,
		w.RoomID, fmtDate(w.Start), fmtDate(w.End), w.AvailableCount, w.Price)
	if err != nil {
		return domain.AvailabilityWindow{}, fmt.Errorf("insert window: %w", mapStoreErr(err))
	}
	w.ID, err = res.LastInsertId()
	if err != nil {
		return domain.AvailabilityWindow{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.AvailabilityWindow{}, mapStoreErr(err)
	}
	return w, nil
}

func (r *Repo) FindWindow(ctx context.Context, roomID int64, start, end time.Time) (domain.AvailabilityWindow, error) {
	var w domain.AvailabilityWindow
	err := r.db.QueryRowContext(ctx, findWindowSQL, roomID, fmtDate(start), fmtDate(end)).
		Scan(&w.ID, &w.RoomID, &w.Start, &w.End, &w.AvailableCount, &w.Price)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.AvailabilityWindow{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.AvailabilityWindow{}, mapStoreErr(err)
	}
	return w, nil
}

// DecrementIfAvailable atomically takes one unit off the window iff its
// count is still positive. Race-free without an explicit lock: the WHERE
// guard plus RowsAffected decide the outcome.
func (r *Repo) DecrementIfAvailable(ctx context.Context, windowID int64) (bool, error) {
	res, err := r.db.ExecContext(ctx, decrementWindowSQL, windowID)
	if err != nil {
		return false, mapStoreErr(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// Book runs the whole booking transaction: lock the covering window, take
// one unit, record the reservation, commit. The decrement and the insert
// succeed or fail together; the caller gets ErrNoAvailability when no
// covering window has stock left.
func (r *Repo) Book(ctx context.Context, roomID int64, userID string, start, end time.Time) (domain.BookingResult, error) {
	var out domain.BookingResult

	var (
		rm        domain.Room
		roomType  string
		hotelName string
	)
	err := r.db.QueryRowContext(ctx, getRoomContextSQL, roomID).
		Scan(&rm.ID, &rm.HotelID, &roomType, &rm.Capacity, &hotelName)
	if errors.Is(err, sql.ErrNoRows) {
		return out, fmt.Errorf("room %d: %w", roomID, domain.ErrNotFound)
	}
	if err != nil {
		return out, mapStoreErr(err)
	}

	tx, err := r.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return out, fmt.Errorf("begin tx: %w", mapStoreErr(err))
	}
	defer tx.Rollback()

	var (
		windowID int64
		count    int
		price    float64
	)
	err = tx.QueryRowContext(ctx, findWindowForUpdateSQL, roomID, fmtDate(start), fmtDate(end)).
		Scan(&windowID, &count, &price)
	if errors.Is(err, sql.ErrNoRows) {
		return out, domain.ErrNoAvailability
	}
	if err != nil {
		return out, mapStoreErr(err)
	}

	res, err := tx.ExecContext(ctx, decrementWindowSQL, windowID)
	if err != nil {
		return out, fmt.Errorf("decrement window %d: %w", windowID, mapStoreErr(err))
	}
	if n, _ := res.RowsAffected(); n != 1 {
		// The row lock should make this unreachable; the guard keeps the
		// invariant independent of it.
		return out, domain.ErrNoAvailability
	}

	ins, err := tx.ExecContext(ctx, insertReservationSQL, roomID, userID, fmtDate(start), fmtDate(end))
	if err != nil {
		return out, fmt.Errorf("insert reservation: %w", mapStoreErr(err))
	}
	bookingID, err := ins.LastInsertId()
	if err != nil {
		return out, err
	}
	if err := tx.Commit(); err != nil {
		return out, fmt.Errorf("commit booking: %w", mapStoreErr(err))
	}

	out = domain.BookingResult{
		Reservation: domain.Reservation{
			ID:        bookingID,
			RoomID:    roomID,
			UserID:    userID,
			Start:     start,
			End:       end,
			CreatedAt: time.Now().UTC(),
		},
		HotelName: hotelName,
		RoomType:  domain.RoomType(roomType),
		Price:     price,
	}
	return out, nil
}

func (r *Repo) Search(ctx context.Context, q domain.SearchQuery) ([]domain.SearchResult, error) {
	rows, err := r.db.QueryContext(ctx, searchSQL,
		q.City, fmtDate(q.Start), fmtDate(q.End), q.Guests, q.Limit, q.Offset)
	if err != nil {
		return nil, fmt.Errorf("search: %w", mapStoreErr(err))
	}
	defer rows.Close()

	var out []domain.SearchResult
	for rows.Next() {
		var (
			sr       domain.SearchResult
			lat, lon sql.NullFloat64
			roomType string
		)
		if err := rows.Scan(
			&sr.HotelID, &sr.HotelName, &sr.City, &lat, &lon,
			&sr.RoomID, &roomType, &sr.Capacity,
			&sr.WindowID, &sr.PricePerNight, &sr.AvailableCount,
		); err != nil {
			return nil, err
		}
		if lat.Valid && lon.Valid {
			sr.Location = &domain.Coords{Lat: lat.Float64, Lon: lon.Float64}
		}
		sr.RoomType = domain.RoomType(roomType)
		out = append(out, sr)
	}
	if err := rows.Err(); err != nil {
		return nil, mapStoreErr(err)
	}
	return out, nil
}

// DATE columns compare as strings; normalize to UTC calendar dates so a
// timestamped input can never shift the stay by a day.
func fmtDate(t time.Time) string { return t.UTC().Format(dateLayout) }
