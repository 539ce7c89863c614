package api

import (
	"errors"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/edgecard/internal/models"
)

func dialStream(t *testing.T, s *Server, gameID string) (*websocket.Conn, func()) {
	t.Helper()

	srv := httptest.NewServer(s.Handler())
	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/analyze/" + gameID + "/stream"

	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)

	return conn, func() {
		conn.Close()
		srv.Close()
	}
}

func TestStreamUnknownGameCloses4004(t *testing.T) {
	s := newTestServer(t, Deps{
		Games:    &fakeGameRepo{byID: map[string]*models.Game{}},
		Analyzer: &fakeAnalyzer{},
	})

	conn, cleanup := dialStream(t, s, "game-nhl-missing")
	defer cleanup()

	conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	_, _, err := conn.ReadMessage()

	var closeErr *websocket.CloseError
	require.ErrorAs(t, err, &closeErr)
	assert.Equal(t, closeNotFound, closeErr.Code)
}

func TestStreamProgressThenComplete(t *testing.T) {
	game := &models.Game{GameID: "game-nhl-abc", Sport: "nhl"}
	s := newTestServer(t, Deps{
		Games: &fakeGameRepo{byID: map[string]*models.Game{"game-nhl-abc": game}},
		Analyzer: &fakeAnalyzer{
			phases:  []string{"loading_snapshot", "running_drivers"},
			results: map[string]string{"composite_direction": "HOME"},
		},
	})

	conn, cleanup := dialStream(t, s, "game-nhl-abc")
	defer cleanup()

	var progressSeen []string
	var complete *streamMessage

	for complete == nil {
		conn.SetReadDeadline(time.Now().Add(3 * time.Second))
		var msg streamMessage
		require.NoError(t, conn.ReadJSON(&msg))
		require.NotEmpty(t, msg.Timestamp)

		switch msg.Type {
		case msgProgress:
			require.NotNil(t, msg.Progress)
			assert.GreaterOrEqual(t, *msg.Progress, 0)
			assert.LessOrEqual(t, *msg.Progress, 100)
			progressSeen = append(progressSeen, msg.Phase)
		case msgComplete:
			complete = &msg
		case msgHeartbeat:
		default:
			t.Fatalf("unexpected message type %q", msg.Type)
		}
	}

	assert.Contains(t, progressSeen, "loading_snapshot")
	assert.Contains(t, progressSeen, "running_drivers")

	results, ok := complete.Results.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "HOME", results["composite_direction"])

	// The server closes normally after complete
	conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	_, _, err := conn.ReadMessage()
	var closeErr *websocket.CloseError
	require.ErrorAs(t, err, &closeErr)
	assert.Equal(t, websocket.CloseNormalClosure, closeErr.Code)
}

func TestStreamFailureCloses4000(t *testing.T) {
	game := &models.Game{GameID: "game-nhl-abc", Sport: "nhl"}
	s := newTestServer(t, Deps{
		Games:    &fakeGameRepo{byID: map[string]*models.Game{"game-nhl-abc": game}},
		Analyzer: &fakeAnalyzer{err: errors.New("no recent odds snapshot")},
	})

	conn, cleanup := dialStream(t, s, "game-nhl-abc")
	defer cleanup()

	var sawError bool
	for {
		conn.SetReadDeadline(time.Now().Add(3 * time.Second))
		var msg streamMessage
		if err := conn.ReadJSON(&msg); err != nil {
			var closeErr *websocket.CloseError
			require.ErrorAs(t, err, &closeErr)
			assert.Equal(t, closeInternal, closeErr.Code)
			break
		}
		if msg.Type == msgError {
			sawError = true
			assert.Contains(t, msg.Message, "no recent odds snapshot")
		}
	}

	assert.True(t, sawError)
}
