package services

import (
	"encoding/json"
	"sync"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/tambolalive/tambola-backend/game"
)

// Client is one websocket connection bound to a player inside a room.
type Client struct {
	playerID string
	name     string
	roomCode string
	room     *game.Room
	hub      *Hub
	conn     *websocket.Conn
	send     chan []byte
	once     sync.Once
	log      *zap.SugaredLogger
}

// clientMessage is the envelope for everything a client sends over the wire.
type clientMessage struct {
	Action        string `json:"action"`
	PrizeType     string `json:"prizeType,omitempty"`
	TicketID      string `json:"ticketId,omitempty"`
	MarkedNumbers []int  `json:"markedNumbers,omitempty"`
	Number        int    `json:"number,omitempty"`
}

func (c *Client) Close() {
	c.once.Do(func() {
		close(c.send)
		if c.conn != nil {
			c.conn.Close()
		}
	})
}

// enqueue hands a frame to the write pump, dropping it if the client can't
// keep up. A slow consumer must never stall a room broadcast.
func (c *Client) enqueue(b []byte) {
	defer func() {
		// enqueue races with Close; a send on the closed channel just means
		// the frame is dropped along with the client.
		_ = recover()
	}()
	select {
	case c.send <- b:
	default:
		c.log.Warnf("[Client %s] dropping frame in room %s", c.playerID, c.roomCode)
	}
}

func (c *Client) readPump() {
	defer func() {
		c.room.Leave(c.playerID)
		c.hub.unregister(c)
		c.Close()
	}()

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				c.log.Infof("[Client %s] disconnected from room %s", c.playerID, c.roomCode)
			} else {
				c.log.Warnf("[Client %s] read error: %v", c.playerID, err)
			}
			return
		}
		c.handle(message)
	}
}

func (c *Client) handle(raw []byte) {
	var msg clientMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		c.log.Warnf("[Client %s] invalid message: %v", c.playerID, err)
		return
	}

	switch msg.Action {
	case "claim-prize":
		// The room answers with a claim-result either way; nothing to do
		// with the return values here.
		_, _ = c.room.Claim(c.playerID, game.PrizeType(msg.PrizeType), msg.TicketID, msg.MarkedNumbers)
	case "mark-number":
		if err := c.room.MarkNumber(c.playerID, msg.Number); err != nil {
			c.notifyError(err.Error())
		}
	default:
		c.log.Warnf("[Client %s] unknown action %q", c.playerID, msg.Action)
	}
}

func (c *Client) notifyError(message string) {
	b, _ := json.Marshal(map[string]string{
		"type":    "notification",
		"message": message,
	})
	c.enqueue(b)
}

func (c *Client) writePump() {
	defer c.conn.Close()
	for msg := range c.send {
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			c.log.Warnf("[Client %s] write error: %v", c.playerID, err)
			return
		}
	}
}
