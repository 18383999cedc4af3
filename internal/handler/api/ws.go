package api

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"HyperTrack/internal/domain/models"
	domrepo "HyperTrack/internal/domain/repository"
	xlogger "HyperTrack/pkg/logger"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
)

const (
	writeWait      = 10 * time.Second
	pingInterval   = 30 * time.Second
	pongWait       = 60 * time.Second
	sendBufferSize = 8
)

// Hub pushes every published snapshot set to connected WebSocket clients.
// It implements repository.Broadcaster; the refresher calls Broadcast once
// per tick. A subscriber that cannot keep up is dropped, never blocked on.
type Hub struct {
	log      *xlogger.Logger
	store    domrepo.SnapshotStore
	metrics  domrepo.Metrics
	upgrader websocket.Upgrader

	mu     sync.Mutex
	subs   map[*subscriber]struct{}
	closed bool
}

type subscriber struct {
	conn *websocket.Conn
	send chan []byte
	once sync.Once
}

func NewHub(log *xlogger.Logger, store domrepo.SnapshotStore, metrics domrepo.Metrics) *Hub {
	return &Hub{
		log:   log.WithComponent("ws"),
		store: store,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			// The dashboard is served from arbitrary origins (local file,
			// container port-mapping); same rule as the HTTP CORS config.
			CheckOrigin: func(*http.Request) bool { return true },
		},
		metrics: metrics,
		subs:    make(map[*subscriber]struct{}),
	}
}

// Serve upgrades the request and streams snapshot sets until the client
// disconnects. The current set, when one exists, is sent immediately so a
// fresh page does not wait a full refresh interval for data.
func (h *Hub) Serve(c echo.Context) error {
	conn, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return err
	}

	sub := &subscriber{conn: conn, send: make(chan []byte, sendBufferSize)}
	if set := h.store.Current(); set != nil {
		if b, err := json.Marshal(set); err == nil {
			sub.send <- b
		}
	}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return conn.Close()
	}
	h.subs[sub] = struct{}{}
	n := len(h.subs)
	h.mu.Unlock()
	h.metrics.RecordWSSubscribers(n)
	h.log.Debug("subscriber connected", xlogger.String("remote", conn.RemoteAddr().String()))

	go h.writePump(sub)
	h.readPump(sub)
	return nil
}

// Broadcast serializes the set once and fans it out. Full send buffers mean
// the subscriber stopped reading; it is dropped so the refresher never waits.
func (h *Hub) Broadcast(set *models.SnapshotSet) {
	b, err := json.Marshal(set)
	if err != nil {
		h.log.Error("snapshot set marshal failed", xlogger.Error(err))
		return
	}

	var stale []*subscriber
	h.mu.Lock()
	for sub := range h.subs {
		select {
		case sub.send <- b:
		default:
			stale = append(stale, sub)
			delete(h.subs, sub)
		}
	}
	n := len(h.subs)
	h.mu.Unlock()

	for _, sub := range stale {
		sub.close()
		h.log.Warn("slow subscriber dropped", xlogger.String("remote", sub.conn.RemoteAddr().String()))
	}
	h.metrics.RecordWSSubscribers(n)
}

// Close disconnects every subscriber. Used on shutdown.
func (h *Hub) Close() {
	h.mu.Lock()
	h.closed = true
	subs := make([]*subscriber, 0, len(h.subs))
	for sub := range h.subs {
		subs = append(subs, sub)
	}
	h.subs = make(map[*subscriber]struct{})
	h.mu.Unlock()

	for _, sub := range subs {
		sub.close()
	}
	h.metrics.RecordWSSubscribers(0)
}

func (h *Hub) remove(sub *subscriber) {
	h.mu.Lock()
	delete(h.subs, sub)
	n := len(h.subs)
	h.mu.Unlock()
	sub.close()
	h.metrics.RecordWSSubscribers(n)
}

// readPump discards inbound frames; the socket is push-only. It exists to
// process pongs and to notice the peer going away.
func (h *Hub) readPump(sub *subscriber) {
	defer h.remove(sub)
	sub.conn.SetReadLimit(512)
	_ = sub.conn.SetReadDeadline(time.Now().Add(pongWait))
	sub.conn.SetPongHandler(func(string) error {
		return sub.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := sub.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) writePump(sub *subscriber) {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		h.remove(sub)
	}()
	for {
		select {
		case b, ok := <-sub.send:
			if !ok {
				return
			}
			_ = sub.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := sub.conn.WriteMessage(websocket.TextMessage, b); err != nil {
				return
			}
		case <-ticker.C:
			_ = sub.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := sub.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (s *subscriber) close() {
	s.once.Do(func() {
		close(s.send)
		_ = s.conn.Close()
	})
}
