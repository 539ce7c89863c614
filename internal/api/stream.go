package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/yourusername/edgecard/internal/metrics"
	"github.com/yourusername/edgecard/internal/models"
)

// Close codes for the analysis stream
const (
	closeNotFound = 4004
	closeInternal = 4000
)

const writeWait = 5 * time.Second

// Stream message types
const (
	msgProgress  = "progress"
	msgHeartbeat = "heartbeat"
	msgComplete  = "complete"
	msgError     = "error"
)

type streamMessage struct {
	Type      string `json:"type"`
	Progress  *int   `json:"progress,omitempty"`
	Phase     string `json:"phase,omitempty"`
	Results   any    `json:"results,omitempty"`
	Message   string `json:"message,omitempty"`
	Timestamp string `json:"timestamp"`
}

// ProgressFunc reports analysis progress as a 0..100 percentage and a phase
type ProgressFunc func(progress int, phase string)

// Analyzer runs one on-demand analysis for a game
type Analyzer interface {
	Analyze(ctx context.Context, game *models.Game, report ProgressFunc) (any, error)
}

type progressEvent struct {
	progress int
	phase    string
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// handleAnalyzeStream streams progress, heartbeats and the final result of
// an on-demand analysis over a websocket. An unknown game closes with 4004;
// an analysis failure sends an error message and closes with 4000. The
// heartbeat cadence guarantees a server send at least every two seconds.
func (s *Server) handleAnalyzeStream(w http.ResponseWriter, r *http.Request) {
	gameID := r.PathValue("id")

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	metrics.WSConnectionOpened()
	defer metrics.WSConnectionClosed()

	ctx := r.Context()

	game, err := s.games.GetByID(ctx, gameID)
	if err != nil {
		s.closeWith(conn, closeNotFound, "game not found")
		return
	}

	events := make(chan progressEvent, 16)
	done := make(chan struct{})
	var results any
	var runErr error

	go func() {
		defer close(done)
		results, runErr = s.analyzer.Analyze(ctx, game, func(progress int, phase string) {
			select {
			case events <- progressEvent{progress: progress, phase: phase}:
			case <-ctx.Done():
			}
		})
	}()

	heartbeat := time.NewTicker(time.Duration(s.cfg.HeartbeatSeconds) * time.Second)
	defer heartbeat.Stop()

	for {
		select {
		case ev := <-events:
			if err := s.send(conn, streamMessage{Type: msgProgress, Progress: &ev.progress, Phase: ev.phase}); err != nil {
				return
			}
		case <-heartbeat.C:
			if err := s.send(conn, streamMessage{Type: msgHeartbeat}); err != nil {
				return
			}
		case <-done:
			s.drain(conn, events)
			if runErr != nil {
				s.send(conn, streamMessage{Type: msgError, Message: runErr.Error()})
				s.closeWith(conn, closeInternal, "analysis failed")
				return
			}
			s.send(conn, streamMessage{Type: msgComplete, Results: results})
			s.closeWith(conn, websocket.CloseNormalClosure, "")
			return
		case <-ctx.Done():
			return
		}
	}
}

func (s *Server) send(conn *websocket.Conn, msg streamMessage) error {
	msg.Timestamp = s.nowFn().UTC().Format(time.RFC3339)
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteJSON(msg)
}

// drain flushes progress events buffered before the analysis finished
func (s *Server) drain(conn *websocket.Conn, events chan progressEvent) {
	for {
		select {
		case ev := <-events:
			if err := s.send(conn, streamMessage{Type: msgProgress, Progress: &ev.progress, Phase: ev.phase}); err != nil {
				return
			}
		default:
			return
		}
	}
}

func (s *Server) closeWith(conn *websocket.Conn, code int, reason string) {
	deadline := time.Now().Add(writeWait)
	conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, reason), deadline)
}
