package services

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/tambolalive/tambola-backend/game"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// HandleWebSocket joins an authenticated player to a room: the token is
// resolved through the identity collaborator, the connection is upgraded, and
// the client receives the room's game-state snapshot before live events.
func HandleWebSocket(registry *game.Registry, hub *Hub, identity Identity, log *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		room, err := registry.Get(c.Param("code"))
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "room not found"})
			return
		}

		who, err := identity.Verify(c.Request.Context(), c.Query("token"))
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			log.Warnf("[WS] upgrade error: %v", err)
			return
		}

		client := &Client{
			playerID: who.ID,
			name:     who.Name,
			roomCode: room.Code(),
			room:     room,
			hub:      hub,
			conn:     conn,
			send:     make(chan []byte, 32),
			log:      log,
		}
		hub.register(client)
		go client.writePump()

		snap, err := room.Join(who.ID, who.Name)
		if err != nil {
			client.notifyError(err.Error())
			hub.unregister(client)
			client.Close()
			return
		}
		if b, err := json.Marshal(snap); err == nil {
			client.enqueue(b)
		}

		log.Infof("[WS] player %s connected to room %s", who.ID, room.Code())
		client.readPump()
	}
}
