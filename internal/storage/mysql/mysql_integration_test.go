//go:build integration || !unit

package mysql_test

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"testing"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/ory/dockertest/v3"
	"github.com/ory/dockertest/v3/docker"
	"golang.org/x/sync/errgroup"

	"staybook/internal/domain"
	mysqlrepo "staybook/internal/storage/mysql"
)

// ---------- helpers ----------

func d(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func migrationsDir(t *testing.T) string {
	t.Helper()
	if dir := os.Getenv("MIGRATIONS_DIR"); dir != "" {
		return dir
	}
	return filepath.Join("..", "..", "..", "migrations")
}

func applyMigrations(t *testing.T, db *sql.DB) {
	t.Helper()
	dir := migrationsDir(t)

	ents, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read migrations dir %s: %v", dir, err)
	}
	var files []string
	for _, e := range ents {
		if !e.IsDir() && filepath.Ext(e.Name()) == ".sql" {
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	if len(files) == 0 {
		t.Fatalf("no .sql files in %s", dir)
	}
	sort.Strings(files)

	for _, f := range files {
		sqlBytes, err := os.ReadFile(f)
		if err != nil {
			t.Fatalf("read %s: %v", f, err)
		}
		if _, err := db.Exec(string(sqlBytes)); err != nil {
			t.Fatalf("exec %s: %v", f, err)
		}
	}
}

func startMySQL(t *testing.T) *sql.DB {
	t.Helper()
	pool, err := dockertest.NewPool("")
	if err != nil {
		t.Fatalf("dockertest: %v", err)
	}

	runOpts := &dockertest.RunOptions{
		Repository: "mysql",
		Tag:        "8.0.36",
		Env: []string{
			"MYSQL_ROOT_PASSWORD=root",
			"MYSQL_DATABASE=staybook",
		},
	}
	resource, err := pool.RunWithOptions(runOpts, func(hc *docker.HostConfig) {
		hc.AutoRemove = true
		hc.RestartPolicy = docker.RestartPolicy{Name: "no"}
	})
	if err != nil {
		t.Fatalf("run mysql: %v", err)
	}
	t.Cleanup(func() { _ = pool.Purge(resource) })

	hostPort := resource.GetPort("3306/tcp")
	dsn := fmt.Sprintf("root:%s@tcp(127.0.0.1:%s)/%s?parseTime=true&multiStatements=true&charset=utf8mb4,utf8&loc=UTC",
		"root", hostPort, "staybook")

	var db *sql.DB
	if err := pool.Retry(func() error {
		var e error
		db, e = sql.Open("mysql", dsn)
		if e != nil {
			return e
		}
		return db.Ping()
	}); err != nil {
		t.Fatalf("connect mysql: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	applyMigrations(t, db)
	return db
}

func seedRoom(t *testing.T, repo *mysqlrepo.Repo) domain.Room {
	t.Helper()
	ctx := context.Background()
	hotel, err := repo.CreateHotel(ctx, domain.Hotel{Name: "Grand", City: "Istanbul"})
	if err != nil {
		t.Fatalf("CreateHotel: %v", err)
	}
	room, err := repo.CreateRoom(ctx, domain.Room{HotelID: hotel.ID, Type: domain.RoomDouble, Capacity: 2})
	if err != nil {
		t.Fatalf("CreateRoom: %v", err)
	}
	return room
}

// ---------- the tests ----------

func TestRepo_WindowInsertAndOverlap(t *testing.T) {
	db := startMySQL(t)
	repo := mysqlrepo.New(db)
	ctx := context.Background()
	room := seedRoom(t, repo)

	if _, err := repo.InsertWindow(ctx, domain.AvailabilityWindow{
		RoomID: room.ID, Start: d("2025-06-01"), End: d("2025-06-10"), AvailableCount: 3, Price: 100,
	}); err != nil {
		t.Fatalf("InsertWindow: %v", err)
	}

	// intersecting range is rejected
	_, err := repo.InsertWindow(ctx, domain.AvailabilityWindow{
		RoomID: room.ID, Start: d("2025-06-05"), End: d("2025-06-15"), AvailableCount: 2, Price: 90,
	})
	if !errors.Is(err, domain.ErrOverlap) {
		t.Fatalf("expected ErrOverlap, got %v", err)
	}

	// touching is not overlapping
	if _, err := repo.InsertWindow(ctx, domain.AvailabilityWindow{
		RoomID: room.ID, Start: d("2025-06-10"), End: d("2025-06-15"), AvailableCount: 2, Price: 90,
	}); err != nil {
		t.Fatalf("touching range must insert: %v", err)
	}

	// inverted range never reaches the store
	if _, err := repo.InsertWindow(ctx, domain.AvailabilityWindow{
		RoomID: room.ID, Start: d("2025-07-10"), End: d("2025-07-01"), AvailableCount: 2, Price: 90,
	}); !errors.Is(err, domain.ErrInvalidRange) {
		t.Fatalf("expected ErrInvalidRange, got %v", err)
	}

	// other rooms are unaffected by this room's windows
	other, err := repo.CreateRoom(ctx, domain.Room{HotelID: room.HotelID, Type: domain.RoomSuite, Capacity: 4})
	if err != nil {
		t.Fatalf("CreateRoom: %v", err)
	}
	if _, err := repo.InsertWindow(ctx, domain.AvailabilityWindow{
		RoomID: other.ID, Start: d("2025-06-01"), End: d("2025-06-10"), AvailableCount: 1, Price: 200,
	}); err != nil {
		t.Fatalf("same range on another room must insert: %v", err)
	}
}

func TestRepo_ContainmentMatch(t *testing.T) {
	db := startMySQL(t)
	repo := mysqlrepo.New(db)
	ctx := context.Background()
	room := seedRoom(t, repo)

	if _, err := repo.InsertWindow(ctx, domain.AvailabilityWindow{
		RoomID: room.ID, Start: d("2025-06-01"), End: d("2025-06-10"), AvailableCount: 3, Price: 100,
	}); err != nil {
		t.Fatalf("InsertWindow: %v", err)
	}

	w, err := repo.FindWindow(ctx, room.ID, d("2025-06-02"), d("2025-06-05"))
	if err != nil {
		t.Fatalf("contained stay must match: %v", err)
	}
	if w.AvailableCount != 3 || w.Price != 100 {
		t.Fatalf("unexpected window: %+v", w)
	}

	// partial overlap is not containment
	if _, err := repo.FindWindow(ctx, room.ID, d("2025-06-09"), d("2025-06-12")); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for partial overlap, got %v", err)
	}
}

func TestRepo_DecrementIfAvailable(t *testing.T) {
	db := startMySQL(t)
	repo := mysqlrepo.New(db)
	ctx := context.Background()
	room := seedRoom(t, repo)

	w, err := repo.InsertWindow(ctx, domain.AvailabilityWindow{
		RoomID: room.ID, Start: d("2025-06-01"), End: d("2025-06-10"), AvailableCount: 2, Price: 100,
	})
	if err != nil {
		t.Fatalf("InsertWindow: %v", err)
	}

	for i := 0; i < 2; i++ {
		ok, err := repo.DecrementIfAvailable(ctx, w.ID)
		if err != nil || !ok {
			t.Fatalf("decrement %d: ok=%v err=%v", i, ok, err)
		}
	}
	ok, err := repo.DecrementIfAvailable(ctx, w.ID)
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if ok {
		t.Fatal("decrement below zero must report false")
	}
}

func TestRepo_BookLifecycle(t *testing.T) {
	db := startMySQL(t)
	repo := mysqlrepo.New(db)
	ctx := context.Background()
	room := seedRoom(t, repo)

	if _, err := repo.InsertWindow(ctx, domain.AvailabilityWindow{
		RoomID: room.ID, Start: d("2025-06-01"), End: d("2025-06-10"), AvailableCount: 1, Price: 120,
	}); err != nil {
		t.Fatalf("InsertWindow: %v", err)
	}

	res, err := repo.Book(ctx, room.ID, "user-a", d("2025-06-01"), d("2025-06-05"))
	if err != nil {
		t.Fatalf("Book: %v", err)
	}
	if res.Reservation.ID == 0 || res.HotelName != "Grand" || res.RoomType != domain.RoomDouble || res.Price != 120 {
		t.Fatalf("unexpected result: %+v", res)
	}

	// window exhausted: second attempt conflicts, nothing partially written
	if _, err := repo.Book(ctx, room.ID, "user-b", d("2025-06-01"), d("2025-06-05")); !errors.Is(err, domain.ErrNoAvailability) {
		t.Fatalf("expected ErrNoAvailability, got %v", err)
	}
	var reservations int
	if err := db.QueryRow(`SELECT COUNT(*) FROM reservations`).Scan(&reservations); err != nil {
		t.Fatalf("count: %v", err)
	}
	if reservations != 1 {
		t.Fatalf("expected exactly 1 reservation, got %d", reservations)
	}

	// unknown room
	if _, err := repo.Book(ctx, 99999, "user-c", d("2025-06-01"), d("2025-06-05")); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

// The core correctness property: M concurrent attempts against a window with
// count N commit exactly N reservations and leave the count at zero.
func TestRepo_NoOversellUnderContention(t *testing.T) {
	db := startMySQL(t)
	db.SetMaxOpenConns(20)
	repo := mysqlrepo.New(db)
	ctx := context.Background()
	room := seedRoom(t, repo)

	const (
		available = 3
		attempts  = 10
	)
	if _, err := repo.InsertWindow(ctx, domain.AvailabilityWindow{
		RoomID: room.ID, Start: d("2025-06-01"), End: d("2025-06-10"), AvailableCount: available, Price: 100,
	}); err != nil {
		t.Fatalf("InsertWindow: %v", err)
	}

	results := make(chan error, attempts)
	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < attempts; i++ {
		i := i
		g.Go(func() error {
			_, err := repo.Book(gctx, room.ID, fmt.Sprintf("user-%d", i), d("2025-06-02"), d("2025-06-06"))
			results <- err
			if err != nil && !errors.Is(err, domain.ErrNoAvailability) {
				return err
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		t.Fatalf("unexpected booking error: %v", err)
	}
	close(results)

	var committed, conflicted int
	for err := range results {
		if err == nil {
			committed++
		} else {
			conflicted++
		}
	}
	if committed != available || conflicted != attempts-available {
		t.Fatalf("expected %d commits and %d conflicts, got %d/%d",
			available, attempts-available, committed, conflicted)
	}

	final, err := repo.FindWindow(ctx, room.ID, d("2025-06-02"), d("2025-06-06"))
	if err != nil {
		t.Fatalf("FindWindow: %v", err)
	}
	if final.AvailableCount != 0 {
		t.Fatalf("expected window drained to 0, got %d", final.AvailableCount)
	}
	var reservations int
	if err := db.QueryRow(`SELECT COUNT(*) FROM reservations WHERE room_id = ?`, room.ID).Scan(&reservations); err != nil {
		t.Fatalf("count: %v", err)
	}
	if reservations != available {
		t.Fatalf("committed reservations exceed original count: %d > %d", reservations, available)
	}
}

func TestRepo_Search(t *testing.T) {
	db := startMySQL(t)
	repo := mysqlrepo.New(db)
	ctx := context.Background()

	hotel, err := repo.CreateHotel(ctx, domain.Hotel{Name: "Grand", City: "Istanbul"})
	if err != nil {
		t.Fatalf("CreateHotel: %v", err)
	}
	cheap, err := repo.CreateRoom(ctx, domain.Room{HotelID: hotel.ID, Type: domain.RoomStandard, Capacity: 2})
	if err != nil {
		t.Fatalf("CreateRoom: %v", err)
	}
	pricey, err := repo.CreateRoom(ctx, domain.Room{HotelID: hotel.ID, Type: domain.RoomSuite, Capacity: 4})
	if err != nil {
		t.Fatalf("CreateRoom: %v", err)
	}
	small, err := repo.CreateRoom(ctx, domain.Room{HotelID: hotel.ID, Type: domain.RoomStandard, Capacity: 1})
	if err != nil {
		t.Fatalf("CreateRoom: %v", err)
	}
	for _, w := range []domain.AvailabilityWindow{
		{RoomID: cheap.ID, Start: d("2025-06-01"), End: d("2025-06-10"), AvailableCount: 3, Price: 80},
		{RoomID: pricey.ID, Start: d("2025-06-01"), End: d("2025-06-10"), AvailableCount: 1, Price: 250},
		{RoomID: small.ID, Start: d("2025-06-01"), End: d("2025-06-10"), AvailableCount: 5, Price: 40}, // capacity 1, filtered out
	} {
		if _, err := repo.InsertWindow(ctx, w); err != nil {
			t.Fatalf("InsertWindow: %v", err)
		}
	}

	out, err := repo.Search(ctx, domain.SearchQuery{
		City: "Istanbul", Start: d("2025-06-02"), End: d("2025-06-05"), Guests: 2, Limit: 50,
	})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(out) != 2 {
		t.Fatalf("expected 2 results, got %d: %+v", len(out), out)
	}
	if out[0].RoomID != cheap.ID || out[1].RoomID != pricey.ID {
		t.Fatalf("expected price-ascending order, got %+v", out)
	}
	if out[0].PricePerNight != 80 || out[0].AvailableCount != 3 {
		t.Fatalf("unexpected first row: %+v", out[0])
	}

	// city is matched exactly against the stored value; the binary collation
	// on hotels.city keeps the server from folding case or accents
	for _, variant := range []string{"istanbul", "ISTANBUL", "İstanbul"} {
		out, err = repo.Search(ctx, domain.SearchQuery{
			City: variant, Start: d("2025-06-02"), End: d("2025-06-05"), Guests: 2, Limit: 50,
		})
		if err != nil {
			t.Fatalf("Search(%q): %v", variant, err)
		}
		if len(out) != 0 {
			t.Fatalf("city %q must not match stored %q, got %+v", variant, "Istanbul", out)
		}
	}
}
