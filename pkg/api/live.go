package api

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rubiojr/eventa/pkg/core"
	"github.com/rubiojr/eventa/pkg/metrics"
	"github.com/rubiojr/eventa/pkg/realtime"
)

const (
	liveWriteWait  = 10 * time.Second
	livePongWait   = 60 * time.Second
	livePingPeriod = livePongWait * 9 / 10
)

// HandleLive upgrades to a websocket and pushes a hello notice followed by
// every approval until the client goes away. Client messages are ignored.
func (s *Server) HandleLive(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warnf("live feed upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	id, notices := s.hub.Register()
	defer s.hub.Unregister(id)
	metrics.LiveClients.Inc()
	defer metrics.LiveClients.Dec()
	s.logger.Debugf("live client %d connected from %s", id, r.RemoteAddr)

	done := make(chan struct{})
	go func() {
		defer close(done)
		conn.SetReadLimit(512)
		_ = conn.SetReadDeadline(time.Now().Add(livePongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(livePongWait))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	if err := s.send(conn, realtime.Notice{Type: realtime.NoticeHello, At: core.FormatTimestamp(s.now())}); err != nil {
		return
	}

	ticker := time.NewTicker(livePingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			s.logger.Debugf("live client %d disconnected", id)
			return
		case <-r.Context().Done():
			return
		case n, ok := <-notices:
			if !ok {
				return
			}
			if err := s.send(conn, n); err != nil {
				s.logger.Debugf("live client %d write failed: %v", id, err)
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(liveWriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (s *Server) send(conn *websocket.Conn, n realtime.Notice) error {
	_ = conn.SetWriteDeadline(time.Now().Add(liveWriteWait))
	return conn.WriteJSON(n)
}
