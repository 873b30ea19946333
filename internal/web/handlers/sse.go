package handlers

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"

	"github.com/kozaktomas/vms-kiosk/internal/facescan"
)

// setupSSEConnection sets the event stream headers. On failure it writes an error
// response and returns false.
func setupSSEConnection(w http.ResponseWriter) (http.Flusher, bool) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		respondError(w, http.StatusInternalServerError, "streaming not supported")
		return nil, false
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	return flusher, true
}

// streamScanEvents sends the initial status and then every flow event until the
// flow is closed or the client disconnects.
func streamScanEvents(w http.ResponseWriter, r *http.Request, events *facescan.Broadcaster, initial any) {
	flusher, ok := setupSSEConnection(w)
	if !ok {
		return
	}

	eventCh := events.AddListener()
	defer events.RemoveListener(eventCh)

	sendSSEEvent(w, flusher, "status", initial)

	for {
		select {
		case <-r.Context().Done():
			return
		case event, ok := <-eventCh:
			if !ok {
				return
			}
			sendSSEEvent(w, flusher, string(event.Type), event)
			if event.Type == facescan.EventClosed {
				return
			}
		}
	}
}

func sendSSEEvent(w http.ResponseWriter, flusher http.Flusher, eventType string, data any) {
	jsonData, _ := json.Marshal(data)
	_, _ = io.WriteString(w, "event: "+eventType+"\n")
	_, _ = io.WriteString(w, "data: ")
	_, _ = io.Copy(w, bytes.NewReader(jsonData))
	_, _ = io.WriteString(w, "\n\n")
	flusher.Flush()
}
