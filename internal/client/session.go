// Package client speaks the coordinator's session protocol.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dreamware/storegrid/internal/cluster"
	"github.com/dreamware/storegrid/internal/fault"
)

// ReplyError is an error-shaped reply from the coordinator.
type ReplyError struct {
	Message string
}

func (e *ReplyError) Error() string { return e.Message }

// Session is one long-lived connection to the coordinator. It is not safe
// for concurrent use.
type Session struct {
	conn     *cluster.Conn
	awaiting bool // a reply was received and the server waits for a continuation
}

// Dial opens a session.
func Dial(ctx context.Context, addr string) (*Session, error) {
	conn, err := cluster.Dial(ctx, addr)
	if err != nil {
		return nil, err
	}
	// Dial applies ctx's deadline to the connection; sessions manage their own.
	_ = conn.SetDeadline(time.Time{})
	return &Session{conn: conn}, nil
}

// Do sends command with payload and decodes the reply into out, which may be
// nil. An error-shaped reply is returned as *ReplyError.
func (s *Session) Do(ctx context.Context, command string, payload, out any) error {
	if deadline, ok := ctx.Deadline(); ok {
		_ = s.conn.SetDeadline(deadline)
		defer s.conn.SetDeadline(time.Time{})
	}

	if s.awaiting {
		if err := s.conn.Send(cluster.Continue); err != nil {
			return fmt.Errorf("%w: sending continuation: %v", fault.ErrUnreachable, err)
		}
		s.awaiting = false
	}

	if err := s.conn.Send(command); err != nil {
		return fmt.Errorf("%w: sending command: %v", fault.ErrUnreachable, err)
	}
	if err := s.conn.Send(payload); err != nil {
		return fmt.Errorf("%w: sending payload: %v", fault.ErrUnreachable, err)
	}

	var raw json.RawMessage
	if err := s.conn.Receive(&raw); err != nil {
		return fmt.Errorf("%w: reading reply: %v", fault.ErrUnreachable, err)
	}
	s.awaiting = true

	var text string
	if json.Unmarshal(raw, &text) == nil && fault.IsReply(text) {
		return &ReplyError{Message: strings.TrimPrefix(text, "Error: ")}
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("%w: decoding %s reply: %v", fault.ErrProtocol, command, err)
	}
	return nil
}

// Text sends command and returns the reply as a string.
func (s *Session) Text(ctx context.Context, command string, payload any) (string, error) {
	var text string
	err := s.Do(ctx, command, payload, &text)
	return text, err
}

// Close ends the session.
func (s *Session) Close() error {
	var err error
	if s.awaiting {
		err = s.conn.Send("no")
	} else {
		err = errors.Join(s.conn.Send(cluster.CmdExit), s.conn.Send(nil))
	}
	return errors.Join(err, s.conn.Close())
}
