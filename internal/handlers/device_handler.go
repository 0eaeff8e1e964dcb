package handlers

import (
	"encoding/json"
	"net/http"

	"ecoquest/internal/logging"
)

const maxFrameUpload = 8 << 20

// DeviceHandler connects the page script to the session's page controller
type DeviceHandler struct {
	controllers *Controllers
	logger      logging.Logger
}

func NewDeviceHandler(controllers *Controllers, logger logging.Logger) *DeviceHandler {
	return &DeviceHandler{controllers: controllers, logger: logger}
}

func (h *DeviceHandler) controller(w http.ResponseWriter, r *http.Request) (*Controller, bool) {
	ctrl, ok := h.controllers.Get(SessionIDFromContext(r.Context()), r.URL.Query().Get("page"))
	if !ok {
		// the page was replaced by a newer one or disposed
		http.Error(w, "page controller gone", http.StatusGone)
		return nil, false
	}
	return ctrl, true
}

// Frame accepts one JPEG or PNG camera frame from the browser
func (h *DeviceHandler) Frame(w http.ResponseWriter, r *http.Request) {
	ctrl, ok := h.controller(w, r)
	if !ok {
		return
	}
	body := http.MaxBytesReader(w, r.Body, maxFrameUpload)
	if err := ctrl.PushFrame(body); err != nil {
		http.Error(w, "unreadable frame", http.StatusBadRequest)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Events returns and clears the queued controller events as JSON
func (h *DeviceHandler) Events(w http.ResponseWriter, r *http.Request) {
	ctrl, ok := h.controller(w, r)
	if !ok {
		return
	}
	events := ctrl.Drain()
	if events == nil {
		events = []Event{}
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	if err := json.NewEncoder(w).Encode(events); err != nil {
		h.logger.Warn("Error writing device events", err)
	}
}

// Dispose releases the page controller when the page unloads
func (h *DeviceHandler) Dispose(w http.ResponseWriter, r *http.Request) {
	page := r.URL.Query().Get("page")
	if page == "" {
		page = r.FormValue("page")
	}
	if page == "" {
		http.Error(w, "page is required", http.StatusBadRequest)
		return
	}
	h.controllers.Dispose(SessionIDFromContext(r.Context()), page)
	w.WriteHeader(http.StatusNoContent)
}
