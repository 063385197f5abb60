package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"hotelbook/internal/events"
)

// GET /api/events?room_type_id=
//
// Each connection is one observer. Slow clients miss events rather than
// holding up the broadcaster; the SSE id field carries the hub sequence so
// clients can spot gaps and re-fetch.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	var roomTypeID int64
	if raw := r.URL.Query().Get("room_type_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			writeError(w, http.StatusBadRequest, "room_type_id must be a positive integer")
			return
		}
		roomTypeID = id
	}

	sub := s.deps.Hub.Subscribe(s.sseBuffer)
	defer sub.Close()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, ": connected\n\n")
	flusher.Flush()

	heartbeat := time.NewTicker(s.heartbeat)
	defer heartbeat.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-heartbeat.C:
			if _, err := fmt.Fprint(w, ": ping\n\n"); err != nil {
				return
			}
			flusher.Flush()
		case env, ok := <-sub.C():
			if !ok {
				return
			}
			if roomTypeID != 0 && env.Event.RoomType() != roomTypeID {
				continue
			}
			if err := writeEvent(w, env); err != nil {
				s.logger.Debug().Err(err).Msg("event stream closed")
				return
			}
			flusher.Flush()
		}
	}
}

func writeEvent(w http.ResponseWriter, env events.Envelope) error {
	data, err := json.Marshal(env)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "id: %d\nevent: %s\ndata: %s\n\n", env.Seq, env.Event.Kind(), data)
	return err
}
