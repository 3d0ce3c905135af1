package httpserver

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"property_manager/internal/app"
	"property_manager/internal/domain"
)

const maxBodyBytes = 1 << 20

type Syncer interface {
	SyncReservations(ctx context.Context, propertyID *int64) (app.SyncResult, error)
	SyncProperties(ctx context.Context) (app.SyncResult, error)
}

type RateProjector interface {
	ProjectRates(ctx context.Context, propertyID int64, r domain.DateRange) ([]domain.DayRate, error)
	SetRateRange(ctx context.Context, propertyID int64, r domain.DateRange, rate float64) (int, error)
	ClearRateRange(ctx context.Context, propertyID int64, r domain.DateRange) (int, error)
}

type Calendar interface {
	CreateBooking(ctx context.Context, in app.BookingInput) (domain.Booking, error)
	GetBooking(ctx context.Context, id int64) (app.BookingDetail, error)
	IsOccupied(ctx context.Context, propertyID int64, day time.Time) (bool, error)
	CheckAvailability(ctx context.Context, propertyID int64, r domain.DateRange) (app.Availability, error)
	BlockDates(ctx context.Context, propertyID int64, in app.BlockInput) (domain.Booking, error)
	UnblockDates(ctx context.Context, bookingID int64) error
	RemoteRates(ctx context.Context, propertyID int64, r domain.DateRange) ([]domain.RemoteRate, error)
	UpdateRemoteRates(ctx context.Context, propertyID int64, in app.RemoteRateInput) error
}

type Messenger interface {
	ListMessages(ctx context.Context, bookingID int64) ([]domain.Message, error)
	SendMessage(ctx context.Context, bookingID int64, in app.SendMessageInput) (domain.Message, error)
}

type Properties interface {
	Create(ctx context.Context, in app.PropertyInput) (domain.Property, error)
	Get(ctx context.Context, id int64) (domain.Property, error)
	Update(ctx context.Context, id int64, in app.PropertyInput) (domain.Property, error)
	Delete(ctx context.Context, id int64) error
}

type Handlers struct {
	Sync       Syncer
	Rates      RateProjector
	Calendar   Calendar
	Messages   Messenger
	Properties Properties
}

type problem struct {
	Type   string `json:"type"`
	Title  string `json:"title"`
	Status int    `json:"status"`
	Detail string `json:"detail,omitempty"`
}

// MountHandlers registers the API. Sync routes run under syncTimeout, the
// rest under the default request timeout.
func (s *Server) MountHandlers(h *Handlers) {
	s.mux.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200); _, _ = w.Write([]byte("ok")) })

	s.mux.Group(func(r chi.Router) {
		r.Use(Timeout(s.syncTimeout))
		r.Post("/v1/sync/reservations", h.syncReservations)
		r.Post("/v1/sync/properties", h.syncProperties)
	})

	s.mux.Group(func(r chi.Router) {
		r.Use(Timeout(s.requestTimeout))

		r.Post("/v1/properties", h.createProperty)
		r.Route("/v1/properties/{id}", func(r chi.Router) {
			r.Get("/", h.getProperty)
			r.Put("/", h.updateProperty)
			r.Delete("/", h.deleteProperty)

			r.Get("/rates", h.projectRates)
			r.Put("/rates", h.setRates)
			r.Delete("/rates", h.clearRates)
			r.Get("/remote-rates", h.remoteRates)
			r.Put("/remote-rates", h.updateRemoteRates)

			r.Get("/occupancy", h.occupancy)
			r.Get("/availability", h.availability)
			r.Post("/blocks", h.blockDates)
		})
		r.Delete("/v1/blocks/{bookingId}", h.unblockDates)

		r.Post("/v1/bookings", h.createBooking)
		r.Get("/v1/bookings/{id}", h.getBooking)
		r.Get("/v1/bookings/{id}/messages", h.listMessages)
		r.Post("/v1/bookings/{id}/messages", h.sendMessage)
	})
}

func writeProblem(w http.ResponseWriter, status int, title, detail string) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(problem{Type: "about:blank", Title: title, Status: status, Detail: detail}); err != nil {
		log.Error().Err(err).Msg("write JSON problem response failed")
	}
}

// writeError maps domain errors onto problem responses.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case domain.IsValidation(err):
		writeProblem(w, http.StatusBadRequest, "Invalid Request", err.Error())
	case domain.IsNotFound(err):
		writeProblem(w, http.StatusNotFound, "Not Found", err.Error())
	case domain.IsConflict(err):
		writeProblem(w, http.StatusConflict, "Conflict", err.Error())
	case domain.IsConfiguration(err):
		writeProblem(w, http.StatusServiceUnavailable, "Service Not Configured", err.Error())
	case domain.IsRemote(err):
		writeProblem(w, http.StatusBadGateway, "Upstream Error", err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		writeProblem(w, http.StatusGatewayTimeout, "Timeout", "request took too long")
	default:
		log.Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
		writeProblem(w, http.StatusInternalServerError, "Internal Server Error", "unexpected error")
	}
}

// calcETagAndBody marshals once and hashes once, returning both ETag and body.
func calcETagAndBody(v any) (string, []byte) {
	body, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Msg("failed to marshal object for ETag/body")
		return "", nil
	}
	sum := sha1.Sum(body)
	etag := `W/"` + hex.EncodeToString(sum[:]) + `"`
	return etag, body
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("write JSON response failed")
	}
}

// writeCached serves v with a weak ETag, answering 304 when the client has it.
func writeCached(w http.ResponseWriter, r *http.Request, v any) {
	etag, body := calcETagAndBody(v)
	if inm := r.Header.Get("If-None-Match"); inm != "" && inm == etag {
		w.Header().Set("ETag", etag)
		w.WriteHeader(http.StatusNotModified)
		return
	}
	w.Header().Set("ETag", etag)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(body); err != nil {
		log.Error().Err(err).Msg("failed to write cached body")
	}
}

// decodeBody reads a JSON body into dst. An empty body is accepted when
// optional is set.
func decodeBody(r *http.Request, dst any, optional bool) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) && optional {
			return nil
		}
		return domain.ValidationError{Field: "body", Msg: "invalid JSON: " + err.Error(), Err: err}
	}
	return nil
}

func pathID(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		return 0, domain.ValidationError{Field: name, Msg: "must be a positive number"}
	}
	return id, nil
}

func queryRange(r *http.Request) (domain.DateRange, error) {
	q := r.URL.Query()
	return domain.NewDateRange(q.Get("start"), q.Get("end"))
}

// ---------- sync ----------

type syncRequest struct {
	PropertyID *int64 `json:"propertyId"`
}

func (h *Handlers) syncReservations(w http.ResponseWriter, r *http.Request) {
	var req syncRequest
	if err := decodeBody(r, &req, true); err != nil {
		writeError(w, r, err)
		return
	}
	res, err := h.Sync.SyncReservations(r.Context(), req.PropertyID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeSyncResult(w, res)
}

func (h *Handlers) syncProperties(w http.ResponseWriter, r *http.Request) {
	res, err := h.Sync.SyncProperties(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeSyncResult(w, res)
}

func writeSyncResult(w http.ResponseWriter, res app.SyncResult) {
	if res.RunID != "" {
		w.Header().Set(SyncRunHeader, res.RunID)
	}
	writeJSON(w, http.StatusOK, res)
}

// ---------- properties ----------

func (h *Handlers) createProperty(w http.ResponseWriter, r *http.Request) {
	var in app.PropertyInput
	if err := decodeBody(r, &in, false); err != nil {
		writeError(w, r, err)
		return
	}
	p, err := h.Properties.Create(r.Context(), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

func (h *Handlers) getProperty(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	p, err := h.Properties.Get(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeCached(w, r, p)
}

func (h *Handlers) updateProperty(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var in app.PropertyInput
	if err := decodeBody(r, &in, false); err != nil {
		writeError(w, r, err)
		return
	}
	p, err := h.Properties.Update(r.Context(), id, in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *Handlers) deleteProperty(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.Properties.Delete(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ---------- rates ----------

func (h *Handlers) projectRates(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	rng, err := queryRange(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	out, err := h.Rates.ProjectRates(r.Context(), id, rng)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeCached(w, r, out)
}

type rateRangeRequest struct {
	Start string   `json:"startDate"`
	End   string   `json:"endDate"`
	Rate  *float64 `json:"rate"`
}

func (h *Handlers) setRates(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req rateRangeRequest
	if err := decodeBody(r, &req, false); err != nil {
		writeError(w, r, err)
		return
	}
	if req.Rate == nil {
		writeError(w, r, domain.ValidationError{Field: "rate", Msg: "is required"})
		return
	}
	rng, err := domain.NewDateRange(req.Start, req.End)
	if err != nil {
		writeError(w, r, err)
		return
	}
	n, err := h.Rates.SetRateRange(r.Context(), id, rng, *req.Rate)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"updated": n})
}

func (h *Handlers) clearRates(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	rng, err := queryRange(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	n, err := h.Rates.ClearRateRange(r.Context(), id, rng)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"deleted": n})
}

func (h *Handlers) remoteRates(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	rng, err := queryRange(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	out, err := h.Calendar.RemoteRates(r.Context(), id, rng)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handlers) updateRemoteRates(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var in app.RemoteRateInput
	if err := decodeBody(r, &in, false); err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.Calendar.UpdateRemoteRates(r.Context(), id, in); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ---------- calendar ----------

func (h *Handlers) occupancy(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	d, err := domain.ParseDate(r.URL.Query().Get("date"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	occupied, err := h.Calendar.IsOccupied(r.Context(), id, d)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"propertyId": id,
		"date":       domain.FormatDate(d),
		"occupied":   occupied,
	})
}

func (h *Handlers) availability(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	rng, err := queryRange(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	a, err := h.Calendar.CheckAvailability(r.Context(), id, rng)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

func (h *Handlers) blockDates(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var in app.BlockInput
	if err := decodeBody(r, &in, false); err != nil {
		writeError(w, r, err)
		return
	}
	b, err := h.Calendar.BlockDates(r.Context(), id, in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, b)
}

func (h *Handlers) unblockDates(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "bookingId")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.Calendar.UnblockDates(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) createBooking(w http.ResponseWriter, r *http.Request) {
	var in app.BookingInput
	if err := decodeBody(r, &in, false); err != nil {
		writeError(w, r, err)
		return
	}
	b, err := h.Calendar.CreateBooking(r.Context(), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, b)
}

func (h *Handlers) getBooking(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	d, err := h.Calendar.GetBooking(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeCached(w, r, d)
}

// ---------- messages ----------

func (h *Handlers) listMessages(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	msgs, err := h.Messages.ListMessages(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if msgs == nil {
		msgs = []domain.Message{}
	}
	writeJSON(w, http.StatusOK, msgs)
}

func (h *Handlers) sendMessage(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var in app.SendMessageInput
	if err := decodeBody(r, &in, false); err != nil {
		writeError(w, r, err)
		return
	}
	m, err := h.Messages.SendMessage(r.Context(), id, in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, m)
}
