package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/fleetdesk/dispatch/internal/domain"
)

// pagination is the envelope metadata returned by list endpoints.
type pagination struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
	Total int `json:"total"`
}

// actionRequest is the body of pickup and drop-off confirmations.
type actionRequest struct {
	BookingRequestID uuid.UUID `json:"booking_request_id"`
}

// absenceRequest is the body of absence confirmations.
type absenceRequest struct {
	BookingRequestID uuid.UUID `json:"booking_request_id"`
	Reason           string    `json:"reason"`
}

// listTrips handles GET /trips.
// Supports ?page= and ?limit= query parameters (defaults: page=1, limit=20, max=100).
func (s *Server) listTrips(w http.ResponseWriter, r *http.Request) {
	params := paginationFromQuery(r)

	trips, total, err := s.trips.List(r.Context(), params)
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"data": trips,
		"pagination": pagination{
			Page:  params.Page,
			Limit: params.Limit,
			Total: int(total),
		},
	})
}

// getTrip handles GET /trips/{tripID}.
// Loading a trip runs a reconciliation pass first, so the view a driver sees
// after reopening the app already reflects any stops that settled while the
// session was away.
func (s *Server) getTrip(w http.ResponseWriter, r *http.Request) {
	tripID, ok := pathUUID(w, r, "tripID")
	if !ok {
		return
	}

	view, err := s.exec.Reconcile(r.Context(), tripID)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, view)
}

// startTrip handles POST /trips/{tripID}/start.
// Returns 200 with the refreshed view on acceptance, 409 when the trip is not
// in a startable state.
func (s *Server) startTrip(w http.ResponseWriter, r *http.Request) {
	tripID, ok := pathUUID(w, r, "tripID")
	if !ok {
		return
	}

	started, view, err := s.exec.Start(r.Context(), tripID)
	if err != nil {
		respondError(w, err)
		return
	}
	if !started {
		respondJSON(w, http.StatusConflict, errorResponse{errorDetail{
			Code:    "illegal_transition",
			Message: fmt.Sprintf("trip is %s, not startable", view.Trip.Status),
		}})
		return
	}
	respondJSON(w, http.StatusOK, view)
}

// reconcileTrip handles POST /trips/{tripID}/reconcile.
// Explicit trigger for the auto-completion pass, used by the periodic client
// refresh.
func (s *Server) reconcileTrip(w http.ResponseWriter, r *http.Request) {
	tripID, ok := pathUUID(w, r, "tripID")
	if !ok {
		return
	}

	view, err := s.exec.Reconcile(r.Context(), tripID)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, view)
}

// confirmPickup handles POST /trips/{tripID}/stops/{stopID}/pickup.
func (s *Server) confirmPickup(w http.ResponseWriter, r *http.Request) {
	tripID, stopID, body, ok := actionParams(w, r)
	if !ok {
		return
	}

	view, err := s.exec.Pickup(r.Context(), tripID, body.BookingRequestID, stopID)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, view)
}

// confirmDropOff handles POST /trips/{tripID}/stops/{stopID}/dropoff.
func (s *Server) confirmDropOff(w http.ResponseWriter, r *http.Request) {
	tripID, stopID, body, ok := actionParams(w, r)
	if !ok {
		return
	}

	view, err := s.exec.DropOff(r.Context(), tripID, body.BookingRequestID, stopID)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, view)
}

// confirmAbsence handles POST /trips/{tripID}/stops/{stopID}/absence.
func (s *Server) confirmAbsence(w http.ResponseWriter, r *http.Request) {
	tripID, ok := pathUUID(w, r, "tripID")
	if !ok {
		return
	}
	stopID, ok := pathUUID(w, r, "stopID")
	if !ok {
		return
	}

	var body absenceRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		badRequest(w, "malformed request body")
		return
	}
	if body.BookingRequestID == uuid.Nil {
		badRequest(w, "booking_request_id is required")
		return
	}

	view, err := s.exec.Absence(r.Context(), tripID, body.BookingRequestID, body.Reason, stopID)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, view)
}

// getTripSheet handles GET /trips/{tripID}/sheet.
// Streams the printable driver manifest as a PDF.
func (s *Server) getTripSheet(w http.ResponseWriter, r *http.Request) {
	tripID, ok := pathUUID(w, r, "tripID")
	if !ok {
		return
	}

	pdf, filename, err := s.sheets.Render(r.Context(), tripID)
	if err != nil {
		respondError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`inline; filename=%q`, filename))
	w.WriteHeader(http.StatusOK)
	w.Write(pdf) //nolint:errcheck
}

// actionParams extracts the path ids and the action body shared by pickup and
// drop-off confirmations. It writes the error response itself and reports
// success via ok.
func actionParams(w http.ResponseWriter, r *http.Request) (tripID, stopID uuid.UUID, body actionRequest, ok bool) {
	tripID, ok = pathUUID(w, r, "tripID")
	if !ok {
		return
	}
	stopID, ok = pathUUID(w, r, "stopID")
	if !ok {
		return
	}

	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		badRequest(w, "malformed request body")
		return tripID, stopID, body, false
	}
	if body.BookingRequestID == uuid.Nil {
		badRequest(w, "booking_request_id is required")
		return tripID, stopID, body, false
	}
	return tripID, stopID, body, true
}

// pathUUID parses the named chi URL parameter as a UUID, writing a 422 on
// malformed input.
func pathUUID(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		badRequest(w, name+" must be a valid UUID")
		return uuid.Nil, false
	}
	return id, true
}

// paginationFromQuery reads optional ?page= and ?limit= query parameters.
func paginationFromQuery(r *http.Request) domain.PaginationParams {
	var page, limit *int
	if v, err := strconv.Atoi(r.URL.Query().Get("page")); err == nil {
		page = &v
	}
	if v, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil {
		limit = &v
	}
	return domain.NewPaginationParams(page, limit)
}
