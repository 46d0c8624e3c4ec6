package session

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	viewerSendBuf  = 64
	maxMessageSize = 1 << 20
)

// connWrapper serializes writes to one websocket connection. Gorilla allows
// only a single concurrent writer.
type connWrapper struct {
	conn  *websocket.Conn
	mutex sync.Mutex
}

func newConnWrapper(c *websocket.Conn) *connWrapper {
	return &connWrapper{conn: c}
}

func (w *connWrapper) WriteJSON(v any) error {
	w.mutex.Lock()
	defer w.mutex.Unlock()
	w.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return w.conn.WriteJSON(v)
}

// CloseWith sends a close frame with the given code and reason, then tears
// the connection down.
func (w *connWrapper) CloseWith(code int, reason string) error {
	w.mutex.Lock()
	defer w.mutex.Unlock()
	msg := websocket.FormatCloseMessage(code, reason)
	_ = w.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))
	return w.conn.Close()
}

func (w *connWrapper) Close() error {
	w.mutex.Lock()
	defer w.mutex.Unlock()
	return w.conn.Close()
}

// viewer is one read-only subscriber of a room's broadcast set.
type viewer struct {
	id   string
	conn *connWrapper

	// send is written only by the owning actor while it holds its lock, so
	// frames reach the write pump in broadcast order.
	send chan any

	// closeReason is set by the actor before it closes send.
	closeReason string
}

// writePump drains the send channel onto the socket. It exits when the actor
// closes the channel or the socket write fails.
func (v *viewer) writePump() {
	for frame := range v.send {
		if err := v.conn.WriteJSON(frame); err != nil {
			log.Printf("ws write error (viewer %s): %v", v.id, err)
			_ = v.conn.Close()
			return
		}
	}

	reason := v.closeReason
	if reason == "" {
		reason = closeReasonEnded
	}
	_ = v.conn.CloseWith(websocket.CloseNormalClosure, reason)
}

// readPump discards inbound frames; viewers are never allowed to mutate room
// state. Its only job is noticing that the peer went away.
func (v *viewer) readPump(onClose func(*viewer)) {
	defer onClose(v)

	v.conn.conn.SetReadLimit(maxMessageSize)
	for {
		if _, _, err := v.conn.conn.ReadMessage(); err != nil {
			return
		}
	}
}

// hostConn is the single authoritative writer connection of a room.
type hostConn struct {
	id   string
	conn *connWrapper
}

// readPump parses host state frames and hands them to the actor. A frame
// that fails to parse is dropped without terminating the connection.
func (h *hostConn) readPump(a *Actor) {
	defer func() {
		a.hostClosed(h)
		_ = h.conn.Close()
	}()

	h.conn.conn.SetReadLimit(maxMessageSize)
	for {
		_, raw, err := h.conn.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				log.Printf("ws read error (host %s): %v", h.id, err)
			}
			return
		}

		var msg hostMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			// Malformed frame: drop it, keep the session alive.
			continue
		}
		if msg.Type != FrameState {
			continue
		}

		if err := a.ApplyHostUpdate(h, &msg); err != nil {
			// Stale socket on an ended room; nothing more to relay.
			return
		}
	}
}
