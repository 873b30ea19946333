package handlers

import (
	"net/http"

	"github.com/kozaktomas/vms-kiosk/internal/kiosk"
)

// ClockHandler serves the header clock.
type ClockHandler struct {
	clock *kiosk.Clock
}

func NewClockHandler(clock *kiosk.Clock) *ClockHandler {
	return &ClockHandler{clock: clock}
}

func (h *ClockHandler) Get(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.clock.Current())
}
