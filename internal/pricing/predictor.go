// Package pricing holds the nightly-price suggestion model: a small linear
// regression over historical booking rows. The model is an explicitly
// passed, reloadable handle, never process-global state, and it is
// advisory only; nothing on the booking path depends on it.
package pricing

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"sync"

	"github.com/rs/zerolog"
)

const (
	fallbackPrice = 100
	floorPrice    = 30
	minRows       = 100
	maxPrice      = 1000
)

var monthIndex = map[string]int{
	"January": 1, "February": 2, "March": 3, "April": 4,
	"May": 5, "June": 6, "July": 7, "August": 8,
	"September": 9, "October": 10, "November": 11, "December": 12,
}

var roomTypes = []string{"Standard", "Double", "Triple", "Suite"}
var hotelTypes = []string{"Resort Hotel", "City Hotel"}

type Features struct {
	Month     int
	Capacity  int
	RoomType  string
	HotelType string
}

func (f Features) vector() []float64 {
	month := f.Month
	if month < 1 || month > 12 {
		month = 6
	}
	return []float64{1, float64(month), float64(f.Capacity), float64(indexOf(roomTypes, f.RoomType)), float64(indexOf(hotelTypes, f.HotelType))}
}

func indexOf(xs []string, s string) int {
	for i, x := range xs {
		if x == s {
			return i
		}
	}
	return 0
}

// Model is safe for concurrent Predict/Reload.
type Model struct {
	mu      sync.RWMutex
	weights []float64 // nil until trained
	log     zerolog.Logger
}

func NewModel(log zerolog.Logger) *Model {
	return &Model{log: log}
}

// Predict returns a suggested nightly price. Untrained models fall back to a
// flat default; trained predictions are floored and rounded to cents.
func (m *Model) Predict(f Features) float64 {
	m.mu.RLock()
	w := m.weights
	m.mu.RUnlock()
	if w == nil {
		return fallbackPrice
	}
	var p float64
	for i, x := range f.vector() {
		p += w[i] * x
	}
	p = math.Max(p, floorPrice)
	return math.Round(p*100) / 100
}

// Trained reports whether a model has been loaded.
func (m *Model) Trained() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.weights != nil
}

// ReloadFromCSV retrains from a historical-bookings CSV (columns: adr,
// arrival_date_month, adults, children, reserved_room_type, hotel) and swaps
// the weights in atomically. A missing file leaves the current model in
// place.
func (m *Model) ReloadFromCSV(path string) error {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			m.log.Warn().Str("path", path).Msg("price data not found, keeping current model")
			return nil
		}
		return err
	}
	defer f.Close()
	return m.Reload(f)
}

// Reload trains from CSV rows on r and swaps the weights in atomically.
func (m *Model) Reload(r io.Reader) error {
	X, y, err := readTrainingRows(r)
	if err != nil {
		return err
	}
	if len(X) < minRows {
		m.log.Warn().Int("rows", len(X)).Msg("not enough price data to train")
		return nil
	}
	w, err := leastSquares(X, y)
	if err != nil {
		return fmt.Errorf("fit price model: %w", err)
	}
	m.mu.Lock()
	m.weights = w
	m.mu.Unlock()
	m.log.Info().Int("rows", len(X)).Msg("price model trained")
	return nil
}

func readTrainingRows(r io.Reader) ([][]float64, []float64, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	header, err := cr.Read()
	if err != nil {
		return nil, nil, fmt.Errorf("read csv header: %w", err)
	}
	col := map[string]int{}
	for i, name := range header {
		col[name] = i
	}
	for _, required := range []string{"adr", "arrival_date_month", "adults", "reserved_room_type", "hotel"} {
		if _, ok := col[required]; !ok {
			return nil, nil, fmt.Errorf("price csv missing column %q", required)
		}
	}

	var (
		X [][]float64
		y []float64
	)
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, nil, err
		}
		get := func(name string) string {
			i := col[name]
			if i >= len(rec) {
				return ""
			}
			return rec[i]
		}
		adr, err := strconv.ParseFloat(get("adr"), 64)
		if err != nil || adr <= 0 || adr > maxPrice {
			continue
		}
		adults, _ := strconv.Atoi(get("adults"))
		children, _ := strconv.ParseFloat(get("children"), 64)
		capacity := float64(adults) + children
		if capacity <= 0 {
			continue
		}
		month, ok := monthIndex[get("arrival_date_month")]
		if !ok {
			month = 6
		}
		X = append(X, Features{
			Month:     month,
			Capacity:  int(capacity),
			RoomType:  get("reserved_room_type"),
			HotelType: get("hotel"),
		}.vector())
		y = append(y, adr)
	}
	return X, y, nil
}

// ridge guards against collinear or constant feature columns (a CSV with a
// single hotel type would otherwise be singular); small enough to leave
// predictions effectively unbiased.
const ridge = 1e-3

// leastSquares solves the regularized normal equations (XᵀX + λI)w = Xᵀy by
// Gaussian elimination with partial pivoting. The design matrix is 5 columns
// wide, so a dense solve is plenty.
func leastSquares(X [][]float64, y []float64) ([]float64, error) {
	n := len(X[0])
	a := make([][]float64, n) // augmented [XᵀX + λI | Xᵀy]
	for i := range a {
		a[i] = make([]float64, n+1)
		a[i][i] = ridge
	}
	for r, row := range X {
		for i := 0; i < n; i++ {
			for j := 0; j < n; j++ {
				a[i][j] += row[i] * row[j]
			}
			a[i][n] += row[i] * y[r]
		}
	}

	for i := 0; i < n; i++ {
		pivot := i
		for r := i + 1; r < n; r++ {
			if math.Abs(a[r][i]) > math.Abs(a[pivot][i]) {
				pivot = r
			}
		}
		a[i], a[pivot] = a[pivot], a[i]
		if math.Abs(a[i][i]) < 1e-12 {
			return nil, fmt.Errorf("singular design matrix")
		}
		for r := i + 1; r < n; r++ {
			f := a[r][i] / a[i][i]
			for c := i; c <= n; c++ {
				a[r][c] -= f * a[i][c]
			}
		}
	}
	w := make([]float64, n)
	for i := n - 1; i >= 0; i-- {
		sum := a[i][n]
		for j := i + 1; j < n; j++ {
			sum -= a[i][j] * w[j]
		}
		w[i] = sum / a[i][i]
	}
	return w, nil
}
