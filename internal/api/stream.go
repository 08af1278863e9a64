package api

import (
	"encoding/json"
	"net/http"

	"github.com/variantd/variantd/internal/snapshot"
	"github.com/variantd/variantd/internal/telemetry"
)

// handleStream serves snapshot updates over Server-Sent Events. Each
// publish emits an "update" event carrying the new ETag; clients re-fetch
// the snapshot when the ETag changes.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ch, unsub := snapshot.Subscribe()
	defer unsub()

	telemetry.SSEClients.Inc()
	defer telemetry.SSEClients.Dec()

	// Initial event so clients learn the current ETag immediately.
	writeSSEEvent(w, snapshot.Load().ETag)
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case etag, open := <-ch:
			if !open {
				return
			}
			writeSSEEvent(w, etag)
			flusher.Flush()
		}
	}
}

func writeSSEEvent(w http.ResponseWriter, etag string) {
	data, _ := json.Marshal(map[string]string{"etag": etag})
	_, _ = w.Write([]byte("event: update\ndata: " + string(data) + "\n\n"))
}
