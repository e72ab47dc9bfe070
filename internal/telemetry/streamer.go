// Package telemetry provides a best-effort WebSocket tap for external dev
// tooling: it broadcasts the raw simulation state, nothing more. It has no
// say over the simulation and drops frames under backpressure rather than
// block the HIL loop.
package telemetry

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/arobi/drone-hil-sim/internal/dynamics"
)

// Streamer broadcasts state frames to connected WebSocket clients.
type Streamer struct {
	mu      sync.RWMutex
	clients map[*client]bool

	broadcast chan *Frame
	upgrader  websocket.Upgrader
	logger    *logrus.Logger

	framesSent uint64
}

// client is one connected diagnostics WebSocket.
type client struct {
	conn *websocket.Conn
	send chan *Frame
	id   string
}

// Frame is the JSON shape pushed to connected clients: the 12-vector state
// plus its derivative and the sim clock, unpacked for readability.
type Frame struct {
	SimTimeUs    uint64     `json:"sim_time_us"`
	Position     [3]float64 `json:"position_ned"`
	Velocity     [3]float64 `json:"velocity_body"`
	Attitude     [3]float64 `json:"euler_rpy"`
	AngularRate  [3]float64 `json:"angular_rate_body"`
	Airborne     bool       `json:"airborne"`
	Armed        bool       `json:"armed"`
}

// NewStreamer builds an idle Streamer; call Run to start dispatching.
func NewStreamer(log *logrus.Logger) *Streamer {
	return &Streamer{
		clients:   make(map[*client]bool),
		broadcast: make(chan *Frame, 64),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		logger: log,
	}
}

// Publish encodes the current state as a Frame and enqueues it for
// broadcast, dropping the oldest queued frame if the buffer is full. Safe
// to call from the simulation tick; never blocks.
func (s *Streamer) Publish(x dynamics.State, simTimeUs uint64, airborne, armed bool) {
	n, e, d := x.Position()
	u, v, w := x.Velocity()
	phi, theta, psi := x.Euler()
	p, q, r := x.AngularRate()
	f := &Frame{
		SimTimeUs:   simTimeUs,
		Position:    [3]float64{n, e, d},
		Velocity:    [3]float64{u, v, w},
		Attitude:    [3]float64{phi, theta, psi},
		AngularRate: [3]float64{p, q, r},
		Airborne:    airborne,
		Armed:       armed,
	}
	select {
	case s.broadcast <- f:
	default:
		select {
		case <-s.broadcast:
		default:
		}
		select {
		case s.broadcast <- f:
		default:
		}
	}
}

// HandleWebSocket upgrades an HTTP request to a diagnostics WebSocket and
// registers it as a broadcast recipient.
func (s *Streamer) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.WithError(err).Error("telemetry: websocket upgrade failed")
		return
	}

	c := &client{conn: conn, send: make(chan *Frame, 16), id: r.RemoteAddr}
	s.register(c)
	s.logger.WithField("client", c.id).Info("telemetry: client connected")

	ctx, cancel := context.WithCancel(context.Background())
	go s.writePump(ctx, c)
	go s.readPump(ctx, cancel, c)
}

func (s *Streamer) register(c *client) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clients[c] = true
}

func (s *Streamer) unregister(c *client) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.clients[c]; ok {
		delete(s.clients, c)
		close(c.send)
	}
}

// Run dispatches queued frames to every connected client until ctx is
// cancelled, then closes all connections.
func (s *Streamer) Run(ctx context.Context) error {
	s.logger.Info("telemetry: streamer started")
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("telemetry: streamer stopping")
			s.closeAll()
			return ctx.Err()

		case f := <-s.broadcast:
			s.fanOut(f)
		}
	}
}

func (s *Streamer) fanOut(f *Frame) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for c := range s.clients {
		select {
		case c.send <- f:
			s.framesSent++
		default:
			// client too slow, drop this frame for it
		}
	}
}

func (s *Streamer) closeAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for c := range s.clients {
		c.conn.Close()
		close(c.send)
		delete(s.clients, c)
	}
}

func (s *Streamer) writePump(ctx context.Context, c *client) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case f, ok := <-c.send:
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			data, err := json.Marshal(f)
			if err != nil {
				continue
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump discards client input; the tap is one-way. It still services
// the connection's read side so pong frames and close frames are handled.
func (s *Streamer) readPump(ctx context.Context, cancel context.CancelFunc, c *client) {
	defer func() {
		cancel()
		s.unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(512)
	c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				s.logger.WithError(err).Debug("telemetry: websocket read error")
			}
			return
		}
	}
}
