package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/fleetdesk/dispatch/internal/domain"
)

// scheduleEntryRequest is the body of POST /schedule-entries.
type scheduleEntryRequest struct {
	DriverID uuid.UUID `json:"driver_id"`
	Origin   string    `json:"origin"`
	Start    time.Time `json:"start"`
	End      time.Time `json:"end"`
}

// conflictCheckRequest is the body of POST /schedule-entries/check.
type conflictCheckRequest struct {
	DriverID       uuid.UUID  `json:"driver_id"`
	Start          time.Time  `json:"start"`
	End            time.Time  `json:"end"`
	ExcludeEntryID *uuid.UUID `json:"exclude_entry_id,omitempty"`
}

// createScheduleEntry handles POST /schedule-entries.
// Commits a time block to a driver's calendar; 409 when it overlaps an
// existing commitment.
func (s *Server) createScheduleEntry(w http.ResponseWriter, r *http.Request) {
	var body scheduleEntryRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		badRequest(w, "malformed request body")
		return
	}
	if body.DriverID == uuid.Nil {
		badRequest(w, "driver_id is required")
		return
	}

	created, err := s.schedule.CreateEntry(r.Context(), domain.ScheduleEntry{
		DriverID: body.DriverID,
		Origin:   domain.ScheduleOrigin(body.Origin),
		Start:    body.Start,
		End:      body.End,
	})
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, created)
}

// checkScheduleConflict handles POST /schedule-entries/check.
// Dry-run conflict probe: reports every committed entry overlapping the
// window without writing anything.
func (s *Server) checkScheduleConflict(w http.ResponseWriter, r *http.Request) {
	var body conflictCheckRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		badRequest(w, "malformed request body")
		return
	}
	if body.DriverID == uuid.Nil {
		badRequest(w, "driver_id is required")
		return
	}

	result, err := s.schedule.CheckConflict(r.Context(), body.DriverID, body.Start, body.End, body.ExcludeEntryID)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

// listDriverSchedule handles GET /drivers/{driverID}/schedule-entries.
func (s *Server) listDriverSchedule(w http.ResponseWriter, r *http.Request) {
	driverID, ok := pathUUID(w, r, "driverID")
	if !ok {
		return
	}

	entries, err := s.schedule.ListByDriver(r.Context(), driverID)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"data": entries})
}

// deleteScheduleEntry handles DELETE /schedule-entries/{entryID}.
func (s *Server) deleteScheduleEntry(w http.ResponseWriter, r *http.Request) {
	entryID, ok := pathUUID(w, r, "entryID")
	if !ok {
		return
	}

	if err := s.schedule.DeleteEntry(r.Context(), entryID); err != nil {
		respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
