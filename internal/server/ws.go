package server

import (
	"log"
	"net/http"
	"sync"

	"github.com/plotforge/plotforge/internal/progress"
	"github.com/plotforge/plotforge/internal/session"
)

// wsMessage frames everything sent over the research websocket.
type wsMessage struct {
	Type     string           `json:"type"` // progress | result | error
	Progress *progress.Event  `json:"progress,omitempty"`
	Payload  *session.Payload `json:"payload,omitempty"`
	Error    string           `json:"error,omitempty"`
}

// handleResearchWS runs a research pass and streams progress events to the
// client, followed by a final result or error frame. Parameters come from
// the query string: goal, brief, force, offline, plus repeatable
// world_constraint and forbidden parameters.
func (s *Server) handleResearchWS(w http.ResponseWriter, r *http.Request) {
	goal := r.URL.Query().Get("goal")
	if goal == "" {
		writeError(w, http.StatusBadRequest, errMissingGoal)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("warning: websocket upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	// Gorilla connections allow one concurrent writer; progress events fire
	// from inside the research loop while we wait for the result.
	var mu sync.Mutex
	send := func(msg wsMessage) {
		mu.Lock()
		defer mu.Unlock()
		if err := conn.WriteJSON(msg); err != nil {
			log.Printf("warning: websocket write failed: %v", err)
		}
	}

	pack, err := s.session.EnsurePack(r.Context(), session.Request{
		ProjectID:   pathParam(r, "projectID"),
		Chapter:     pathParam(r, "chapter"),
		Goal:        goal,
		Brief:       r.URL.Query().Get("brief"),
		Constraints: r.URL.Query()["world_constraint"],
		Forbidden:   r.URL.Query()["forbidden"],
		Force:       r.URL.Query().Get("force") == "true",
		Offline:     r.URL.Query().Get("offline") == "true",
		Progress: func(e progress.Event) {
			send(wsMessage{Type: "progress", Progress: &e})
		},
	})
	if err != nil {
		send(wsMessage{Type: "error", Error: err.Error()})
		return
	}

	payload, err := session.Decode(pack)
	if err != nil {
		send(wsMessage{Type: "error", Error: err.Error()})
		return
	}
	send(wsMessage{Type: "result", Payload: payload})
}
