// Package status streams progress messages to the inspector clients.
package status

import (
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	INFO = iota
	WARNING
	ERROR
)

const historySize = 64

type Message struct {
	Text string    `json:"text"`
	Time time.Time `json:"time"`
	Type int       `json:"type"`
}

type client struct {
	conn *websocket.Conn
	send chan []byte
}

// Hub fans messages out to every connected client. New clients get the
// recent history first.
type Hub struct {
	lock    sync.Mutex
	clients map[*client]bool
	history [][]byte
}

func NewHub() *Hub {
	return &Hub{clients: make(map[*client]bool)}
}

func (h *Hub) Publish(text string, _type int) {
	data, err := json.Marshal(&Message{Text: text, Time: time.Now(), Type: _type})
	if err != nil {
		log.Printf("[status] marshal error: %v", err)
		return
	}

	h.lock.Lock()
	defer h.lock.Unlock()
	h.history = append(h.history, data)
	if len(h.history) > historySize {
		h.history = h.history[len(h.history)-historySize:]
	}
	for c := range h.clients {
		select {
		case c.send <- data:
		default:
			// slow reader
			delete(h.clients, c)
			close(c.send)
		}
	}
}

func (h *Hub) Info(format string, a ...interface{}) {
	h.Publish(fmt.Sprintf(format, a...), INFO)
}

func (h *Hub) Warning(format string, a ...interface{}) {
	h.Publish(fmt.Sprintf(format, a...), WARNING)
}

func (h *Hub) Error(format string, a ...interface{}) {
	h.Publish(fmt.Sprintf(format, a...), ERROR)
}

// Serve attaches conn to the hub and blocks until the client goes away.
func (h *Hub) Serve(conn *websocket.Conn) {
	c := &client{conn: conn, send: make(chan []byte, historySize+16)}

	h.lock.Lock()
	for _, data := range h.history {
		c.send <- data
	}
	h.clients[c] = true
	h.lock.Unlock()

	go h.writePump(c)

	// only control frames are expected, reading detects the close
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
	h.unregister(c)
}

func (h *Hub) unregister(c *client) {
	h.lock.Lock()
	defer h.lock.Unlock()
	if h.clients[c] {
		delete(h.clients, c)
		close(c.send)
	}
}

func (h *Hub) writePump(c *client) {
	ticker := time.NewTicker(time.Second * 30)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(40 * time.Second))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				log.Printf("[status] ws write msg error: %v", err)
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(40 * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				log.Printf("[status] ws write ping error: %v", err)
				return
			}
		}
	}
}
