package httpserver

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"staybook/internal/app"
	"staybook/internal/domain"
	"staybook/internal/pricing"
)

type Handlers struct {
	Search  *app.SearchService
	Booking *app.BookingService
	Admin   *app.AdminService
	Pricer  *pricing.Model
}

type problem struct {
	Type   string `json:"type"`
	Title  string `json:"title"`
	Status int    `json:"status"`
	Detail string `json:"detail,omitempty"`
}

func (s *Server) MountHandlers(h *Handlers) {
	s.mux.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200); _, _ = w.Write([]byte("ok")) })
	s.mux.Get("/v1/hotels/search", h.search)
	s.mux.Post("/v1/reservations", h.book)
	s.mux.Post("/v1/admin/hotels", h.createHotel)
	s.mux.Post("/v1/admin/hotels/{id}/rooms", h.addRoom)
	s.mux.Post("/v1/admin/rooms/{id}/availability", h.addAvailability)
	s.mux.Get("/v1/admin/price-suggestion", h.priceSuggestion)
}

func writeProblem(w http.ResponseWriter, status int, title, detail string) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(problem{Type: "about:blank", Title: title, Status: status, Detail: detail}); err != nil {
		log.Error().Err(err).Msg("write JSON problem response failed")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("write JSON response failed")
	}
}

// writeDomainErr maps the engine's error taxonomy onto HTTP statuses:
// invalid input 400, unknown references 404, overlap/no-availability 409,
// transient store failures 503.
func writeDomainErr(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidRange), errors.Is(err, app.ErrInvalidInput):
		writeProblem(w, http.StatusBadRequest, "Invalid Request", err.Error())
	case errors.Is(err, domain.ErrNotFound):
		writeProblem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, domain.ErrOverlap), errors.Is(err, domain.ErrNoAvailability):
		writeProblem(w, http.StatusConflict, "Conflict", err.Error())
	case errors.Is(err, domain.ErrTransientStore):
		writeProblem(w, http.StatusServiceUnavailable, "Temporarily Unavailable", "please retry")
	default:
		log.Error().Err(err).Msg("request failed")
		writeProblem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}

const dateLayout = "2006-01-02"

func parseDate(s string) (time.Time, bool) {
	t, err := time.Parse(dateLayout, s)
	return t, err == nil
}

func (h *Handlers) search(w http.ResponseWriter, r *http.Request) {
	qp := r.URL.Query()
	city := qp.Get("city")
	if city == "" || qp.Get("startDate") == "" || qp.Get("endDate") == "" || qp.Get("guests") == "" {
		writeProblem(w, http.StatusBadRequest, "Invalid Request", "city, startDate, endDate and guests are required")
		return
	}
	start, ok1 := parseDate(qp.Get("startDate"))
	end, ok2 := parseDate(qp.Get("endDate"))
	guests, err := strconv.Atoi(qp.Get("guests"))
	if !ok1 || !ok2 || err != nil || guests <= 0 {
		writeProblem(w, http.StatusBadRequest, "Invalid Request", "malformed dates or guests")
		return
	}

	limit, offset := 50, 0
	if ls := qp.Get("limit"); ls != "" {
		if l, err := strconv.Atoi(ls); err == nil && l > 0 && l <= 200 {
			limit = l
		}
	}
	if os := qp.Get("offset"); os != "" {
		if o, err := strconv.Atoi(os); err == nil && o >= 0 {
			offset = o
		}
	}

	id := identityFrom(r.Context())
	out, err := h.Search.Search(r.Context(), domain.SearchQuery{
		City:             city,
		Start:            start,
		End:              end,
		Guests:           guests,
		DiscountEligible: id.DiscountEligible,
		Limit:            limit,
		Offset:           offset,
	})
	if err != nil {
		writeDomainErr(w, err)
		return
	}
	if out == nil {
		out = []domain.SearchResult{}
	}
	writeJSON(w, http.StatusOK, out)
}

type bookRequest struct {
	RoomID    int64  `json:"roomId"`
	StartDate string `json:"startDate"`
	EndDate   string `json:"endDate"`
}

func (h *Handlers) book(w http.ResponseWriter, r *http.Request) {
	var req bookRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid Request", "malformed JSON body")
		return
	}
	id := identityFrom(r.Context())
	if req.RoomID == 0 || req.StartDate == "" || req.EndDate == "" || id.UserID == "" {
		writeProblem(w, http.StatusBadRequest, "Invalid Request", "roomId, startDate, endDate and identity are required")
		return
	}
	start, ok1 := parseDate(req.StartDate)
	end, ok2 := parseDate(req.EndDate)
	if !ok1 || !ok2 {
		writeProblem(w, http.StatusBadRequest, "Invalid Request", "malformed dates")
		return
	}

	res, err := h.Booking.Book(r.Context(), req.RoomID, id, start, end)
	if err != nil {
		writeDomainErr(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, struct {
		ID        int64  `json:"id"`
		RoomID    int64  `json:"roomId"`
		UserID    string `json:"userId"`
		StartDate string `json:"startDate"`
		EndDate   string `json:"endDate"`
	}{res.ID, res.RoomID, res.UserID, res.Start.Format(dateLayout), res.End.Format(dateLayout)})
}

type createHotelRequest struct {
	Name      string   `json:"name"`
	City      string   `json:"city"`
	Latitude  *float64 `json:"latitude,omitempty"`
	Longitude *float64 `json:"longitude,omitempty"`
}

func (h *Handlers) createHotel(w http.ResponseWriter, r *http.Request) {
	var req createHotelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid Request", "malformed JSON body")
		return
	}
	hotel, err := h.Admin.CreateHotel(r.Context(), req.Name, req.City, req.Latitude, req.Longitude)
	if err != nil {
		writeDomainErr(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, hotel)
}

type addRoomRequest struct {
	Type     string `json:"type"`
	Capacity int    `json:"capacity,omitempty"`
}

func (h *Handlers) addRoom(w http.ResponseWriter, r *http.Request) {
	hotelID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid Request", "hotel id must be a number")
		return
	}
	var req addRoomRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid Request", "malformed JSON body")
		return
	}
	room, err := h.Admin.AddRoom(r.Context(), hotelID, domain.RoomType(req.Type), req.Capacity)
	if err != nil {
		writeDomainErr(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, room)
}

type addAvailabilityRequest struct {
	StartDate      string  `json:"startDate"`
	EndDate        string  `json:"endDate"`
	AvailableCount int     `json:"availableCount"`
	Price          float64 `json:"price"`
}

func (h *Handlers) addAvailability(w http.ResponseWriter, r *http.Request) {
	roomID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid Request", "room id must be a number")
		return
	}
	var req addAvailabilityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid Request", "malformed JSON body")
		return
	}
	start, ok1 := parseDate(req.StartDate)
	end, ok2 := parseDate(req.EndDate)
	if !ok1 || !ok2 {
		writeProblem(w, http.StatusBadRequest, "Invalid Request", "malformed dates")
		return
	}
	win, err := h.Admin.AddAvailability(r.Context(), roomID, start, end, req.AvailableCount, req.Price)
	if err != nil {
		writeDomainErr(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, win)
}

// priceSuggestion exposes the regression model as an advisory quote for the
// admin UI. It never feeds the booking path.
func (h *Handlers) priceSuggestion(w http.ResponseWriter, r *http.Request) {
	qp := r.URL.Query()
	capacity, err := strconv.Atoi(qp.Get("capacity"))
	if err != nil || capacity <= 0 {
		writeProblem(w, http.StatusBadRequest, "Invalid Request", "capacity must be a positive integer")
		return
	}
	month := 6
	if ms := qp.Get("month"); ms != "" {
		if m, err := strconv.Atoi(ms); err == nil && m >= 1 && m <= 12 {
			month = m
		}
	}
	price := h.Pricer.Predict(pricing.Features{
		Month:     month,
		Capacity:  capacity,
		RoomType:  qp.Get("roomType"),
		HotelType: qp.Get("hotelType"),
	})
	writeJSON(w, http.StatusOK, struct {
		SuggestedPrice float64 `json:"suggestedPrice"`
	}{price})
}
