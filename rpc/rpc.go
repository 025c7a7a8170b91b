// Package rpc exposes the transport over a websocket, so that a browser or a
// second process can follow the playback position and drive the transport.
package rpc

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/wizzlekids/tunebox/tracker"
)

type (
	// Controller is the part of the transport the server drives.
	Controller interface {
		Play()
		Pause()
		Stop()
		Seek(seconds float64)
		State() tracker.State
		Position() float64
		Subscribe(buffer int) (<-chan tracker.Event, func())
	}

	// Message is sent from the server to the clients. Type is one of "state",
	// "time", "end" or "error".
	Message struct {
		Type    string  `json:"type"`
		Seconds float64 `json:"seconds"`
		State   string  `json:"state,omitempty"`
		Message string  `json:"message,omitempty"`
	}

	// Command is sent from a client to the server. Op is one of "play",
	// "pause", "stop" or "seek"; Seconds is only used by "seek".
	Command struct {
		Op      string  `json:"op"`
		Seconds float64 `json:"seconds,omitempty"`
	}

	// Server is an http.Handler upgrading every request to a websocket
	// session. On connect the client gets the current state, then every
	// transport event.
	Server struct {
		ctrl     Controller
		logger   *slog.Logger
		upgrader websocket.Upgrader
	}

	// Client is a websocket session with a Server.
	Client struct {
		conn *websocket.Conn
		mu   sync.Mutex
	}
)

const eventBuffer = 64

func NewServer(ctrl Controller, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		ctrl:   ctrl,
		logger: logger,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "remote", r.RemoteAddr, "err", err)
		return
	}
	defer conn.Close()
	s.logger.Info("client connected", "remote", r.RemoteAddr)
	events, unsubscribe := s.ctrl.Subscribe(eventBuffer)
	out := make(chan Message, eventBuffer)
	out <- Message{Type: "state", State: s.ctrl.State().String(), Seconds: s.ctrl.Position()}
	done := make(chan struct{})
	go func() {
		defer close(done)
		s.writeLoop(conn, events, out)
	}()
	s.readLoop(conn, out)
	unsubscribe()
	<-done
	s.logger.Info("client disconnected", "remote", r.RemoteAddr)
}

func (s *Server) writeLoop(conn *websocket.Conn, events <-chan tracker.Event, out <-chan Message) {
	for {
		var m Message
		select {
		case e, ok := <-events:
			if !ok {
				return
			}
			m = toMessage(e)
		case m = <-out:
		}
		if err := conn.WriteJSON(m); err != nil {
			s.logger.Debug("websocket write failed", "err", err)
			conn.Close() // unblocks the read loop
			return
		}
	}
}

func (s *Server) readLoop(conn *websocket.Conn, out chan<- Message) {
	for {
		_, b, err := conn.ReadMessage()
		if err != nil {
			return
		}
		var cmd Command
		if err := json.Unmarshal(b, &cmd); err != nil {
			tracker.TrySend(out, Message{Type: "error", Message: fmt.Sprintf("malformed command: %v", err)})
			continue
		}
		if err := s.apply(cmd); err != nil {
			tracker.TrySend(out, Message{Type: "error", Message: err.Error()})
		}
	}
}

func (s *Server) apply(cmd Command) error {
	s.logger.Debug("command", "op", cmd.Op, "seconds", cmd.Seconds)
	switch cmd.Op {
	case "play":
		s.ctrl.Play()
	case "pause":
		s.ctrl.Pause()
	case "stop":
		s.ctrl.Stop()
	case "seek":
		s.ctrl.Seek(cmd.Seconds)
	default:
		return fmt.Errorf("unknown op %q", cmd.Op)
	}
	return nil
}

func toMessage(e tracker.Event) Message {
	switch e.Kind {
	case tracker.StateChange:
		return Message{Type: "state", State: e.State.String()}
	case tracker.PlaybackEnd:
		return Message{Type: "end"}
	default:
		return Message{Type: "time", Seconds: e.Seconds}
	}
}

// Dial connects to a Server, e.g. at ws://localhost:31337/.
func Dial(ctx context.Context, url string) (*Client, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("websocket dial %v failed: %w", url, err)
	}
	return &Client{conn: conn}, nil
}

func (c *Client) Send(cmd Command) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteJSON(cmd)
}

// Receive blocks until the next message from the server.
func (c *Client) Receive() (Message, error) {
	var m Message
	err := c.conn.ReadJSON(&m)
	return m, err
}

func (c *Client) Close() error {
	return c.conn.Close()
}
