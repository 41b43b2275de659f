package messaging

import (
	"context"
	"errors"
	"sync"

	"github.com/gorilla/websocket"
)

// ConnSender delivers messages over a websocket connection. Writes are
// serialized; gorilla conns allow only one concurrent writer.
type ConnSender struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func NewConnSender(conn *websocket.Conn) *ConnSender {
	return &ConnSender{conn: conn}
}

// Send writes the message as a JSON text frame. The peer does not
// acknowledge individual frames, so a successful write is reported as a
// success response.
func (s *ConnSender) Send(_ context.Context, msg Message) (Response, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn == nil {
		return Response{}, errors.New("no receiver attached")
	}
	if err := s.conn.WriteJSON(msg); err != nil {
		return Response{}, err
	}
	return Response{Success: true}, nil
}
