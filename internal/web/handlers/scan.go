package handlers

import (
	"net/http"
	"strconv"

	"github.com/kozaktomas/vms-kiosk/internal/kiosk"
	"go.uber.org/zap"
)

// ScanHandler drives the face scan dialog of the current screen.
type ScanHandler struct {
	kiosk  *kiosk.Kiosk
	logger *zap.Logger
}

func NewScanHandler(k *kiosk.Kiosk, logger *zap.Logger) *ScanHandler {
	return &ScanHandler{kiosk: k, logger: logger}
}

// Open starts the camera. With ?wait=true it answers once the live feed is showing
// or the camera failed.
func (h *ScanHandler) Open(w http.ResponseWriter, r *http.Request) {
	if err := h.kiosk.OpenScan(); err != nil {
		respondFailure(w, err)
		return
	}
	flow, err := h.kiosk.Scan()
	if err != nil {
		respondFailure(w, err)
		return
	}
	if wait, _ := strconv.ParseBool(r.URL.Query().Get("wait")); wait {
		if err := flow.Ready(r.Context()); err != nil {
			respondFailure(w, err)
			return
		}
	}
	respondJSON(w, http.StatusAccepted, flow.Status())
}

// Status returns the scan state.
func (h *ScanHandler) Status(w http.ResponseWriter, r *http.Request) {
	flow, err := h.kiosk.Scan()
	if err != nil {
		respondFailure(w, err)
		return
	}
	respondJSON(w, http.StatusOK, flow.Status())
}

// Preview serves the current live frame as a scaled JPEG.
func (h *ScanHandler) Preview(w http.ResponseWriter, r *http.Request) {
	flow, err := h.kiosk.Scan()
	if err != nil {
		respondFailure(w, err)
		return
	}
	data, err := flow.Preview()
	if err != nil {
		respondFailure(w, err)
		return
	}
	writeJPEG(w, data)
}

// Image serves the captured still awaiting review.
func (h *ScanHandler) Image(w http.ResponseWriter, r *http.Request) {
	flow, err := h.kiosk.Scan()
	if err != nil {
		respondFailure(w, err)
		return
	}
	img, err := flow.Image()
	if err != nil {
		respondFailure(w, err)
		return
	}
	writeJPEG(w, img.Data)
}

// Capture takes the still and stops the camera.
func (h *ScanHandler) Capture(w http.ResponseWriter, r *http.Request) {
	flow, err := h.kiosk.Scan()
	if err != nil {
		respondFailure(w, err)
		return
	}
	if _, err := flow.Capture(); err != nil {
		respondFailure(w, err)
		return
	}
	respondJSON(w, http.StatusOK, flow.Status())
}

// Retake discards the still and restarts the camera.
func (h *ScanHandler) Retake(w http.ResponseWriter, r *http.Request) {
	if err := h.kiosk.RetakeScan(); err != nil {
		respondFailure(w, err)
		return
	}
	h.Status(w, r)
}

// Submit hands the still to the screen: matched on verification, held for the
// form on registration.
func (h *ScanHandler) Submit(w http.ResponseWriter, r *http.Request) {
	out, err := h.kiosk.SubmitScan(r.Context())
	if err != nil {
		respondFailure(w, err)
		return
	}
	if out.Match != nil {
		h.logger.Info("face match finished", zap.String("outcome", string(out.Match.Outcome)))
	}
	respondJSON(w, http.StatusOK, out)
}

// Cancel closes the dialog without a result.
func (h *ScanHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	if err := h.kiosk.CancelScan(); err != nil {
		respondFailure(w, err)
		return
	}
	h.Status(w, r)
}

// Events streams scan transitions as server-sent events.
func (h *ScanHandler) Events(w http.ResponseWriter, r *http.Request) {
	flow, err := h.kiosk.Scan()
	if err != nil {
		respondFailure(w, err)
		return
	}
	streamScanEvents(w, r, flow.Events(), flow.Status())
}

func writeJPEG(w http.ResponseWriter, data []byte) {
	w.Header().Set("Content-Type", "image/jpeg")
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}
