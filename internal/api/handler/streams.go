package handler

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/wheremyfriends/webapp/internal/api/middleware"
	"github.com/wheremyfriends/webapp/internal/services/subscription"
)

// keepaliveInterval is how often an SSE comment is written to detect dead
// connections. The server write timeout must exceed this.
const keepaliveInterval = 15 * time.Second

// StreamHandler handles the SSE subscription endpoints
type StreamHandler struct {
	subscriptionService *subscription.Service
}

// NewStreamHandler creates a new stream handler
func NewStreamHandler(subscriptionService *subscription.Service) *StreamHandler {
	return &StreamHandler{
		subscriptionService: subscriptionService,
	}
}

// Lessons handles GET /api/v1/rooms/{room}/lessons/stream
func (h *StreamHandler) Lessons(w http.ResponseWriter, r *http.Request) {
	stream, err := h.subscriptionService.Lessons(r.Context(), roomVar(r))
	if err != nil {
		WriteError(w, err)
		return
	}
	serveStream(w, r, "lesson-change", stream)
}

// Members handles GET /api/v1/rooms/{room}/members/stream
func (h *StreamHandler) Members(w http.ResponseWriter, r *http.Request) {
	stream, err := h.subscriptionService.Members(r.Context(), roomVar(r))
	if err != nil {
		WriteError(w, err)
		return
	}
	serveStream(w, r, "user-change", stream)
}

// Config handles GET /api/v1/users/{id}/config/stream
func (h *StreamHandler) Config(w http.ResponseWriter, r *http.Request) {
	id, err := userIDVar(r)
	if err != nil {
		WriteError(w, err)
		return
	}

	caller := middleware.GetAccount(r.Context())
	stream, err := h.subscriptionService.Config(r.Context(), roomQuery(r), id, caller)
	if err != nil {
		WriteError(w, err)
		return
	}
	serveStream(w, r, "config-change", rawStream(stream))
}

// rawStream adapts a string stream so config payloads are written verbatim
// instead of being JSON-encoded a second time
func rawStream(in <-chan string) <-chan json.RawMessage {
	out := make(chan json.RawMessage)
	go func() {
		defer close(out)
		for data := range in {
			out <- json.RawMessage(data)
		}
	}()
	return out
}

// serveStream writes the event channel to the client as SSE frames until
// the client disconnects or the stream ends
func serveStream[P any](w http.ResponseWriter, r *http.Request, eventName string, stream <-chan P) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		WriteError(w, NewInvalidRequestError("streaming not supported"))
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	keepalive := time.NewTicker(keepaliveInterval)
	defer keepalive.Stop()

	for {
		select {
		case event, ok := <-stream:
			if !ok {
				return
			}
			data, err := json.Marshal(event)
			if err != nil {
				continue
			}
			_, _ = w.Write(formatSSEMessage(eventName, string(data)))
			flusher.Flush()

		case <-keepalive.C:
			_, _ = w.Write([]byte(": keepalive\n\n"))
			flusher.Flush()

		case <-r.Context().Done():
			return
		}
	}
}

// formatSSEMessage formats an SSE message with event name and data.
// Each line of data gets its own "data: " prefix.
func formatSSEMessage(eventName, data string) []byte {
	var b strings.Builder
	b.WriteString("event: ")
	b.WriteString(eventName)
	b.WriteString("\n")
	for _, line := range strings.Split(strings.ReplaceAll(data, "\r\n", "\n"), "\n") {
		b.WriteString("data: ")
		b.WriteString(line)
		b.WriteString("\n")
	}
	b.WriteString("\n")
	return []byte(b.String())
}
