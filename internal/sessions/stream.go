package sessions

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/JaimeStill/mammoguard/internal/workflow"
)

const (
	writeWait    = 10 * time.Second
	pongWait     = 60 * time.Second
	pingInterval = pongWait * 9 / 10
	readLimit    = 512
)

type streamer struct {
	upgrader websocket.Upgrader
	logger   *slog.Logger
}

func newStreamer(checkOrigin func(*http.Request) bool, logger *slog.Logger) *streamer {
	return &streamer{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     checkOrigin,
		},
		logger: logger,
	}
}

// serve pushes snapshots until the client disconnects or the session ends.
func (st *streamer) serve(w http.ResponseWriter, r *http.Request, s *Session) {
	conn, err := st.upgrader.Upgrade(w, r, nil)
	if err != nil {
		st.logger.Warn("stream upgrade failed", "session", s.ID, "error", err)
		return
	}

	snapshots, cancel := s.Controller.Subscribe()
	defer cancel()

	closed := make(chan struct{})
	go st.readPump(conn, closed)

	st.logger.Debug("stream opened", "session", s.ID)
	st.writePump(conn, snapshots, closed)
	st.logger.Debug("stream closed", "session", s.ID)
}

func (st *streamer) writePump(conn *websocket.Conn, snapshots <-chan workflow.Snapshot, closed <-chan struct{}) {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		conn.Close()
	}()

	for {
		select {
		case snap, ok := <-snapshots:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				conn.WriteMessage(
					websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "session ended"),
				)
				return
			}
			if err := conn.WriteJSON(snap); err != nil {
				st.logger.Debug("stream write failed", "error", err)
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-closed:
			return
		}
	}
}

// readPump drains client frames so control messages are processed. Client
// payloads are ignored.
func (st *streamer) readPump(conn *websocket.Conn, closed chan<- struct{}) {
	defer close(closed)

	conn.SetReadLimit(readLimit)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				st.logger.Warn("stream read failed", "error", err)
			}
			return
		}
	}
}
