package api

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/bobarin/reelworks/internal/jobdir"
	"github.com/bobarin/reelworks/internal/models"
	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Origin is enforced by the CORS layer; the socket itself carries no
	// credentials beyond what the router's auth middleware already checked.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// StreamReelEvents handles GET /v1/reels/{id}/events. It upgrades to a
// websocket, replays the job's current status, then forwards every progress
// update from the status channel until a terminal update is sent.
func (h *Handler) StreamReelEvents(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "id")
	if err := jobdir.ValidateJobID(jobID); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid job ID")
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[API] Websocket upgrade failed for job %s: %v", jobID, err)
		return
	}
	defer conn.Close()

	ctx := r.Context()

	// Subscribe before replaying the snapshot so no update falls between.
	sub := h.tracker.Subscribe(ctx, jobID)
	defer sub.Close()

	if current, err := h.tracker.Status(ctx, jobID); err == nil {
		if err := conn.WriteJSON(current); err != nil {
			return
		}
		if current.Terminal() {
			return
		}
	}

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}

			var update models.ProgressUpdate
			if err := json.Unmarshal([]byte(msg.Payload), &update); err != nil {
				log.Printf("[API] Bad progress payload for job %s: %v", jobID, err)
				continue
			}

			if err := conn.WriteJSON(update); err != nil {
				return
			}
			if update.Terminal() {
				return
			}
		}
	}
}
