package server

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// wsEvent is one frame of the event stream.
type wsEvent struct {
	Type  string `json:"type"`
	Event any    `json:"event,omitempty"`
	Final any    `json:"progress,omitempty"`
}

// handleJobEvents streams a job's timeline over WebSocket. Existing
// entries are replayed first; the timeline is then polled and new
// entries pushed until the job reaches a terminal status.
func (s *Server) handleJobEvents(w http.ResponseWriter, r *http.Request) {
	jobID := r.PathValue("id")

	if _, err := s.progress.GetJobProgress(r.Context(), jobID); err != nil {
		writeError(w, http.StatusNotFound, "job not found")
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("websocket upgrade failed", "job_id", jobID, "error", err)
		return
	}
	defer conn.Close()

	sent := 0
	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()

	for {
		p, err := s.progress.GetJobProgress(r.Context(), jobID)
		if err != nil {
			s.logger.Error("progress poll failed", "job_id", jobID, "error", err)
			return
		}

		for ; sent < len(p.Timeline); sent++ {
			if err := conn.WriteJSON(wsEvent{Type: "event", Event: p.Timeline[sent]}); err != nil {
				return
			}
		}

		if p.Status.Terminal() {
			// Last frame carries the final progress view.
			_ = conn.WriteJSON(wsEvent{Type: "done", Final: p})
			_ = conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, string(p.Status)))
			return
		}

		select {
		case <-r.Context().Done():
			return
		case <-ticker.C:
		}
	}
}
