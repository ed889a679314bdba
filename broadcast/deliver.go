package broadcast

import (
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// ChannelDeliverer hands payloads to an in-process consumer. Delivery
// never blocks: when the consumer lags, the oldest undelivered
// payload is dropped first.
type ChannelDeliverer struct {
	ch chan Payload
}

func NewChannelDeliverer(buffer int) *ChannelDeliverer {
	return &ChannelDeliverer{ch: make(chan Payload, buffer)}
}

func (d *ChannelDeliverer) Deliver(p Payload) error {
	for {
		select {
		case d.ch <- p:
			return nil
		default:
			select {
			case <-d.ch:
			default:
			}
		}
	}
}

func (d *ChannelDeliverer) Ch() <-chan Payload { return d.ch }

const wsWriteTimeout = 5 * time.Second

// WSDeliverer writes payloads as JSON to one listener's WebSocket.
// Writes are serialized; the broadcaster calls Deliver from several
// language goroutines at once.
type WSDeliverer struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func NewWSDeliverer(conn *websocket.Conn) *WSDeliverer {
	return &WSDeliverer{conn: conn}
}

func (d *WSDeliverer) Deliver(p Payload) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
	if err := d.conn.WriteJSON(p); err != nil {
		return fmt.Errorf("writing to listener: %w", err)
	}
	return nil
}

func (d *WSDeliverer) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
	return d.conn.Close()
}
