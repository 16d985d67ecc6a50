package ws

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/kfish-market/auction-service/internal/broker"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 54 * time.Second
)

// client is one connected WebSocket peer.
type client struct {
	id    string
	conn  *websocket.Conn
	send  chan []byte
	leave func()
	once  sync.Once
}

// close detaches the client from the broker exactly once. The broker then
// closes the subscription channel, which lets forward drain any buffered
// envelopes and shut the write pump down; send is never closed here, so a
// disconnect racing in-flight events cannot panic the forward goroutine.
func (c *client) close() {
	c.once.Do(c.leave)
}

// forward marshals broker envelopes into the send channel. Delivery to the
// socket is best-effort: a full send buffer drops the event for this client.
// forward is the sole closer of send; the loop only exits once the broker
// has detached the subscription, so no further envelopes can arrive.
func (c *client) forward(sub *broker.Subscription) {
	for env := range sub.Events() {
		payload, err := json.Marshal(env.Event)
		if err != nil {
			log.Printf("[WS] failed to marshal event: %v", err)
			continue
		}
		select {
		case c.send <- payload:
		default:
		}
	}
	close(c.send)
}

// writePump pumps messages from the send channel to the websocket
// connection, pinging periodically to keep the connection alive.
func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump drains the connection so disconnects are noticed; inbound
// messages carry no commands, room membership is chosen by the endpoint.
func (c *client) readPump() {
	defer c.close()

	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("[WS] client %s read error: %v", c.id, err)
			}
			return
		}
	}
}
