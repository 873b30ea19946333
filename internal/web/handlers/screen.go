package handlers

import (
	"net/http"

	"github.com/kozaktomas/vms-kiosk/internal/kiosk"
	"go.uber.org/zap"
)

// ScreenHandler switches kiosk screens and edits the registration draft.
type ScreenHandler struct {
	kiosk  *kiosk.Kiosk
	logger *zap.Logger
}

func NewScreenHandler(k *kiosk.Kiosk, logger *zap.Logger) *ScreenHandler {
	return &ScreenHandler{kiosk: k, logger: logger}
}

// Get returns the current screen.
func (h *ScreenHandler) Get(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.kiosk.View())
}

type enterRequest struct {
	Screen string `json:"screen"`
}

// Enter switches to the requested screen.
func (h *ScreenHandler) Enter(w http.ResponseWriter, r *http.Request) {
	var req enterRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	screen, err := kiosk.ParseScreen(req.Screen)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	view, err := h.kiosk.Enter(screen)
	if err != nil {
		respondFailure(w, err)
		return
	}
	respondJSON(w, http.StatusOK, view)
}

// Leave tears the current screen down.
func (h *ScreenHandler) Leave(w http.ResponseWriter, r *http.Request) {
	h.kiosk.Leave()
	respondJSON(w, http.StatusOK, h.kiosk.View())
}

type draftRequest struct {
	Fields map[string]string `json:"fields"`
}

// UpdateDraft sets draft fields. A rejected field leaves the whole draft unchanged.
func (h *ScreenHandler) UpdateDraft(w http.ResponseWriter, r *http.Request) {
	var req draftRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if len(req.Fields) == 0 {
		respondError(w, http.StatusBadRequest, "fields are required")
		return
	}
	if err := h.kiosk.SetFields(req.Fields); err != nil {
		respondFailure(w, err)
		return
	}
	respondJSON(w, http.StatusOK, h.kiosk.View())
}

// ResetDraft clears the registration form.
func (h *ScreenHandler) ResetDraft(w http.ResponseWriter, r *http.Request) {
	if err := h.kiosk.ResetDraft(); err != nil {
		respondFailure(w, err)
		return
	}
	respondJSON(w, http.StatusOK, h.kiosk.View())
}

// SubmitVisitor registers the visitor of the current draft. Backend rejections are
// reported in the acknowledgement with the draft left as it was.
func (h *ScreenHandler) SubmitVisitor(w http.ResponseWriter, r *http.Request) {
	ack, err := h.kiosk.Submit(r.Context())
	if err != nil {
		respondFailure(w, err)
		return
	}
	status := http.StatusOK
	if !ack.Success {
		status = http.StatusBadGateway
	}
	h.logger.Info("visitor submitted", zap.Bool("success", ack.Success), zap.String("message", sanitizeForLog(ack.Message)))
	respondJSON(w, status, map[string]any{"ack": ack, "view": h.kiosk.View()})
}
