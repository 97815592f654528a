package statusserver

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Kavex/Third3D-uploader/internal/httpresponse"
	"github.com/Kavex/Third3D-uploader/internal/orchestrator"
)

// Server is the local-only HTTP surface a UI or test harness watches a
// publication through.
type Server struct {
	hub *hub
}

// New builds a Server.
func New() *Server {
	return &Server{hub: newHub()}
}

// Track begins forwarding sink's events under publicationID. Call this
// once per publication before handing sink to orchestrator.Publish.
func (s *Server) Track(publicationID string, sink <-chan orchestrator.Event) {
	go s.hub.forward(publicationID, sink)
}

// RegisterRoutes mounts the status endpoints on r.
func (s *Server) RegisterRoutes(r *gin.Engine) {
	status := r.Group("/status")
	{
		status.GET("/:id", s.streamStatus)
		status.GET("/:id/history", s.getHistory)
	}
}

// streamStatus serves a publication's events as Server-Sent Events,
// replaying any history recorded before the client connected.
func (s *Server) streamStatus(c *gin.Context) {
	id := c.Param("id")
	sub, backlog, cancel := s.hub.subscribe(id)
	defer cancel()

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")

	flusher, ok := c.Writer.(http.Flusher)
	if !ok {
		httpresponse.InternalError(c, "streaming unsupported")
		return
	}

	writeEvent := func(p eventPayload) bool {
		data, err := encodeSSE(p)
		if err != nil {
			return false
		}
		fmt.Fprintf(c.Writer, "data: %s\n\n", data)
		flusher.Flush()
		return p.Kind != "completed" && p.Kind != "error"
	}

	for _, p := range backlog {
		if !writeEvent(p) {
			return
		}
	}

	heartbeat := time.NewTicker(15 * time.Second)
	defer heartbeat.Stop()

	for {
		select {
		case <-c.Request.Context().Done():
			return
		case p := <-sub:
			if !writeEvent(p) {
				return
			}
		case <-heartbeat.C:
			fmt.Fprint(c.Writer, ": keepalive\n\n")
			flusher.Flush()
		}
	}
}

// getHistory returns every event recorded for a publication so far as a
// plain JSON array, for clients that don't want to hold an SSE connection
// open.
func (s *Server) getHistory(c *gin.Context) {
	id := c.Param("id")
	s.hub.mu.Lock()
	backlog := append([]eventPayload(nil), s.hub.history[id]...)
	s.hub.mu.Unlock()
	httpresponse.OK(c, backlog)
}
