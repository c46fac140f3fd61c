package handler

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/sakif/photolog/internal/model"
	"github.com/sakif/photolog/internal/qr"
	"github.com/sakif/photolog/internal/service"
)

// EventHandler serves the host's /events routes.
//
// HANDLER RESPONSIBILITIES:
// Parse the request, pull the resolved user from the context, call one
// EventService method and shape its result. Ownership and validation live
// in the service.
type EventHandler struct {
	events *service.EventService
	logger *slog.Logger
}

func NewEventHandler(events *service.EventService, logger *slog.Logger) *EventHandler {
	return &EventHandler{events: events, logger: logger}
}

type createEventRequest struct {
	Name        string     `json:"name" validate:"required"`
	Description *string    `json:"description"`
	Date        *time.Time `json:"date"`
	Password    *string    `json:"password"`
}

type bulkEventRequest struct {
	EventIDs []string `json:"event_ids" validate:"required"`
	Action   string   `json:"action" validate:"required"`
}

// EventListResponse is one page of the host's events.
type EventListResponse struct {
	Events   []model.HostEventView `json:"events"`
	Total    int                   `json:"total"`
	Page     int                   `json:"page"`
	PageSize int                   `json:"page_size"`
	HasMore  bool                  `json:"has_more"`
}

// BulkActionResponse reports how many rows a bulk action touched.
type BulkActionResponse struct {
	Message  string `json:"message"`
	Affected int    `json:"affected"`
}

// HandleCreate
//
// HTTP: POST /events
// REQUEST BODY: {"name": "Wedding", "description": "...", "date": "2024-06-01T15:00:00Z", "password": "secret"}
func (h *EventHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	u, ok := requireUser(w, r, h.logger)
	if !ok {
		return
	}
	var req createEventRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	v, err := h.events.Create(r.Context(), u.ID, service.CreateEventInput{
		Name:        req.Name,
		Description: req.Description,
		Date:        req.Date,
		Password:    req.Password,
	})
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, v)
}

// HandleList
//
// HTTP: GET /events?page=1&page_size=10
func (h *EventHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	u, ok := requireUser(w, r, h.logger)
	if !ok {
		return
	}
	req, err := pageRequest(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	page, err := h.events.List(r.Context(), u.ID, req)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, EventListResponse{
		Events:   page.Items,
		Total:    page.Total,
		Page:     page.Page,
		PageSize: page.PageSize,
		HasMore:  page.HasMore,
	})
}

// HandleGet
//
// HTTP: GET /events/{eventID}
func (h *EventHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	u, ok := requireUser(w, r, h.logger)
	if !ok {
		return
	}
	v, err := h.events.Get(r.Context(), u.ID, r.PathValue("eventID"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

// HandleUpdate applies a merge patch.
//
// HTTP: PATCH /events/{eventID}
//
// Only keys present in the body change. {"password": null} removes the
// password; omitting "password" keeps it.
func (h *EventHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	u, ok := requireUser(w, r, h.logger)
	if !ok {
		return
	}
	var patch model.EventPatch
	if err := decodeJSON(w, r, &patch); err != nil {
		writeError(w, h.logger, err)
		return
	}

	v, err := h.events.Update(r.Context(), u.ID, r.PathValue("eventID"), patch)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

// HandleDelete
//
// HTTP: DELETE /events/{eventID}
func (h *EventHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	u, ok := requireUser(w, r, h.logger)
	if !ok {
		return
	}
	eventID := r.PathValue("eventID")
	if err := h.events.Delete(r.Context(), u.ID, eventID); err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeMessage(w, http.StatusOK,
		fmt.Sprintf("Event '%s' and all associated assets have been deleted.", eventID))
}

// HandleUploadCover
//
// HTTP: POST /events/{eventID}/cover (multipart, field "file")
func (h *EventHandler) HandleUploadCover(w http.ResponseWriter, r *http.Request) {
	u, ok := requireUser(w, r, h.logger)
	if !ok {
		return
	}
	file, err := readUpload(w, r, service.QuotaCeiling, quotaTooLarge)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	v, err := h.events.UploadCover(r.Context(), u.ID, r.PathValue("eventID"), file)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

// HandleQRCode returns a PNG of the share link.
//
// HTTP: GET /events/{eventID}/qr?box_size=10
func (h *EventHandler) HandleQRCode(w http.ResponseWriter, r *http.Request) {
	u, ok := requireUser(w, r, h.logger)
	if !ok {
		return
	}
	box, ok, err := queryInt(r, "box_size")
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	if !ok {
		box = qr.DefaultBoxSize
	}

	png, err := h.events.QRCode(r.Context(), u.ID, r.PathValue("eventID"), box)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "private, max-age=3600")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(png); err != nil {
		h.logger.Warn("failed to write qr code", slog.String("error", err.Error()))
	}
}

// HandleDownload would stream a ZIP of the event; it answers 501.
//
// HTTP: POST /events/{eventID}/download
func (h *EventHandler) HandleDownload(w http.ResponseWriter, r *http.Request) {
	u, ok := requireUser(w, r, h.logger)
	if !ok {
		return
	}
	if err := h.events.Export(r.Context(), u.ID, r.PathValue("eventID")); err != nil {
		writeError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleBulk
//
// HTTP: POST /events/actions/bulk
// REQUEST BODY: {"event_ids": ["a", "b"], "action": "archive"}
func (h *EventHandler) HandleBulk(w http.ResponseWriter, r *http.Request) {
	u, ok := requireUser(w, r, h.logger)
	if !ok {
		return
	}
	var req bulkEventRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	n, err := h.events.Bulk(r.Context(), u.ID, req.EventIDs, req.Action)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, BulkActionResponse{
		Message:  fmt.Sprintf("Successfully performed action '%s' on %d event(s).", req.Action, n),
		Affected: n,
	})
}
