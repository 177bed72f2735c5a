package cluster

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/dreamware/storegrid/internal/fault"
)

// DefaultDialTimeout bounds connection setup when the context has no deadline.
const DefaultDialTimeout = 5 * time.Second

// Conn frames JSON values over a stream connection, one value per message.
type Conn struct {
	c   net.Conn
	enc *json.Encoder
	dec *json.Decoder
}

// NewConn wraps c.
func NewConn(c net.Conn) *Conn {
	return &Conn{c: c, enc: json.NewEncoder(c), dec: json.NewDecoder(c)}
}

// Send writes one value.
func (c *Conn) Send(v any) error {
	return c.enc.Encode(v)
}

// Receive reads one value into v.
func (c *Conn) Receive(v any) error {
	return c.dec.Decode(v)
}

// RemoteAddr returns the peer address.
func (c *Conn) RemoteAddr() string {
	return c.c.RemoteAddr().String()
}

// SetDeadline sets the read and write deadline of the underlying connection.
func (c *Conn) SetDeadline(t time.Time) error {
	return c.c.SetDeadline(t)
}

// Close closes the underlying connection.
func (c *Conn) Close() error {
	return c.c.Close()
}

// Dial opens a connection to addr. Failures wrap fault.ErrUnreachable.
// The context deadline, if any, also bounds all I/O on the returned Conn.
func Dial(ctx context.Context, addr string) (*Conn, error) {
	d := net.Dialer{Timeout: DefaultDialTimeout}
	nc, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", fault.ErrUnreachable, addr, err)
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = nc.SetDeadline(deadline)
	}
	return NewConn(nc), nil
}

// Call sends one command to a shard and decodes the reply data into out.
// Transport failures wrap fault.ErrUnreachable; a failed reply returns the
// shard's error with its kind preserved.
func Call(ctx context.Context, addr, command string, payload any, out any) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("%w: encoding %s payload: %v", fault.ErrProtocol, command, err)
	}

	conn, err := Dial(ctx, addr)
	if err != nil {
		return err
	}
	defer conn.Close()

	if err := conn.Send(Request{Command: command, Payload: raw}); err != nil {
		return fmt.Errorf("%w: %s: sending %s: %v", fault.ErrUnreachable, addr, command, err)
	}
	var reply Reply
	if err := conn.Receive(&reply); err != nil {
		return fmt.Errorf("%w: %s: reading %s reply: %v", fault.ErrUnreachable, addr, command, err)
	}
	if !reply.OK {
		return reply.Err()
	}
	if out == nil || len(reply.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(reply.Data, out); err != nil {
		return fmt.Errorf("%w: decoding %s reply: %v", fault.ErrProtocol, command, err)
	}
	return nil
}

// Push delivers a one-way message to addr and waits for its Ack.
func Push(ctx context.Context, addr string, msg any) error {
	conn, err := Dial(ctx, addr)
	if err != nil {
		return err
	}
	defer conn.Close()

	if err := conn.Send(msg); err != nil {
		return fmt.Errorf("%w: %s: %v", fault.ErrUnreachable, addr, err)
	}
	var ack Ack
	if err := conn.Receive(&ack); err != nil {
		return fmt.Errorf("%w: %s: waiting for ack: %v", fault.ErrUnreachable, addr, err)
	}
	if !ack.OK {
		return fmt.Errorf("%w: %s rejected message", fault.ErrProtocol, addr)
	}
	return nil
}

// Handler serves one accepted connection. The server closes conn when it returns.
type Handler func(conn *Conn)

// Server accepts connections and runs one goroutine per connection.
type Server struct {
	ln      net.Listener
	handler Handler
	log     *log.Entry

	mu     sync.Mutex
	conns  map[*Conn]struct{}
	closed bool
	wg     sync.WaitGroup
}

// Listen binds addr. Call Serve to start accepting.
func Listen(addr string, handler Handler, logger *log.Entry) (*Server, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listen %s: %w", addr, err)
	}
	if logger == nil {
		logger = log.NewEntry(log.StandardLogger())
	}
	return &Server{
		ln:      ln,
		handler: handler,
		log:     logger,
		conns:   make(map[*Conn]struct{}),
	}, nil
}

// Addr returns the bound address, useful when listening on port 0.
func (s *Server) Addr() string {
	return s.ln.Addr().String()
}

// Serve blocks accepting connections until Close is called.
func (s *Server) Serve() error {
	for {
		nc, err := s.ln.Accept()
		if err != nil {
			s.mu.Lock()
			closed := s.closed
			s.mu.Unlock()
			if closed || errors.Is(err, net.ErrClosed) {
				return nil
			}
			return err
		}

		conn := NewConn(nc)
		if !s.track(conn) {
			conn.Close()
			return nil
		}
		go func() {
			defer s.wg.Done()
			defer s.untrack(conn)
			defer conn.Close()
			defer func() {
				if r := recover(); r != nil {
					s.log.WithFields(log.Fields{
						"remote": conn.RemoteAddr(),
						"panic":  r,
					}).Error("connection handler panicked")
				}
			}()
			s.handler(conn)
		}()
	}
}

func (s *Server) track(c *Conn) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	s.conns[c] = struct{}{}
	s.wg.Add(1)
	return true
}

func (s *Server) untrack(c *Conn) {
	s.mu.Lock()
	delete(s.conns, c)
	s.mu.Unlock()
}

// Close stops accepting, closes open connections and waits for handlers to return.
func (s *Server) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	err := s.ln.Close()
	for c := range s.conns {
		c.Close()
	}
	s.mu.Unlock()

	s.wg.Wait()
	s.log.Debugf("listener %s closed", s.ln.Addr())
	return err
}
