package handlers

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/nikhilbhutani/clinicfeedback/internal/completion"
)

const keepAliveInterval = 15 * time.Second

// SlotSource is a completion slot observed over server-sent events.
type SlotSource interface {
	State() completion.Snapshot
	Subscribe(fn func(completion.Snapshot)) func()
}

// Events streams the source's current snapshot followed by every state change
// until the client goes away or done is closed.
func Events(src SlotSource, done <-chan struct{}) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		flusher, ok := w.(http.Flusher)
		if !ok {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "streaming not supported"})
			return
		}

		updates := make(chan completion.Snapshot, 16)
		unsubscribe := src.Subscribe(func(s completion.Snapshot) {
			select {
			case updates <- s:
			default:
				slog.Warn("dropping slot event for slow client", "slot", s.Slot, "request_id", s.RequestID)
			}
		})
		defer unsubscribe()

		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")
		w.WriteHeader(http.StatusOK)

		writeEvent(w, src.State())
		flusher.Flush()

		ticker := time.NewTicker(keepAliveInterval)
		defer ticker.Stop()

		for {
			select {
			case <-r.Context().Done():
				return
			case <-done:
				return
			case s := <-updates:
				writeEvent(w, s)
				flusher.Flush()
			case <-ticker.C:
				fmt.Fprint(w, ": keep-alive\n\n")
				flusher.Flush()
			}
		}
	}
}

func writeEvent(w http.ResponseWriter, s completion.Snapshot) {
	data, _ := json.Marshal(s)
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", s.Status, data)
}
