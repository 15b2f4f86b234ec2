package controllers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/tambolalive/tambola-backend/game"
	"github.com/tambolalive/tambola-backend/services"
)

// RoomsController exposes the room-management REST surface: create, list,
// status, ticket purchase and host start.
type RoomsController struct {
	Registry *game.Registry
	Gateway  services.PaymentGateway
	Identity services.Identity
	Log      *zap.SugaredLogger
}

// errStatus maps the engine's error taxonomy onto HTTP status codes.
func errStatus(err error) int {
	switch {
	case errors.Is(err, game.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, game.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, game.ErrValidation), errors.Is(err, game.ErrIntegrityViolation):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// authenticate resolves the Bearer token through the identity collaborator.
func (rc *RoomsController) authenticate(c *gin.Context) (services.PlayerIdentity, bool) {
	token := strings.TrimPrefix(c.GetHeader("Authorization"), "Bearer ")
	who, err := rc.Identity.Verify(c.Request.Context(), token)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
		return services.PlayerIdentity{}, false
	}
	return who, true
}

type createRoomRequest struct {
	Title        string          `json:"title"`
	TicketPrice  decimal.Decimal `json:"ticketPrice"`
	MinTickets   int             `json:"minTickets"`
	MaxTickets   int             `json:"maxTickets"`
	DrawInterval int             `json:"drawIntervalSeconds"`
}

// CreateRoom opens a new room with the caller as host.
func (rc *RoomsController) CreateRoom(c *gin.Context) {
	who, ok := rc.authenticate(c)
	if !ok {
		return
	}

	var req createRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	room, err := rc.Registry.Create(game.RoomConfig{
		Title:        req.Title,
		OwnerID:      who.ID,
		OwnerName:    who.Name,
		TicketPrice:  req.TicketPrice,
		MinTickets:   req.MinTickets,
		MaxTickets:   req.MaxTickets,
		DrawInterval: time.Duration(req.DrawInterval) * time.Second,
	})
	if err != nil {
		c.JSON(errStatus(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"success": true, "room": room.Status()})
}

// ListActive returns every room still selling or playing.
func (rc *RoomsController) ListActive(c *gin.Context) {
	statuses := make([]game.RoomStatus, 0)
	for _, room := range rc.Registry.Rooms() {
		if st := room.Status(); st.State != game.StateCompleted {
			statuses = append(statuses, st)
		}
	}
	c.JSON(http.StatusOK, gin.H{"rooms": statuses})
}

// RoomStatus returns one room's snapshot.
func (rc *RoomsController) RoomStatus(c *gin.Context) {
	room, err := rc.Registry.Get(c.Param("code"))
	if err != nil {
		c.JSON(errStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, room.Status())
}

type buyTicketRequest struct {
	GameCode string `json:"gameCode" binding:"required"`
	Count    int    `json:"count"`
}

// BuyTicket captures the charge through the payment collaborator and then
// records the sale with the room. Capture happens first and outside any room
// lock; a sale the room subsequently refuses leaves the captured order to be
// reversed by the gateway's reconciliation.
func (rc *RoomsController) BuyTicket(c *gin.Context) {
	who, ok := rc.authenticate(c)
	if !ok {
		return
	}

	var req buyTicketRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Count == 0 {
		req.Count = 1
	}
	if req.Count < 1 || req.Count > game.MaxTicketsPerPlayer {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid ticket count"})
		return
	}

	room, err := rc.Registry.Get(req.GameCode)
	if err != nil {
		c.JSON(errStatus(err), gin.H{"error": err.Error()})
		return
	}

	total := room.Config().TicketPrice.Mul(decimal.NewFromInt(int64(req.Count)))
	order, err := rc.Gateway.CaptureCharge(c.Request.Context(), who.ID, room.Code(), total)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": "payment capture failed"})
		return
	}

	tickets, err := room.BuyTickets(who.ID, who.Name, req.Count)
	if err != nil {
		rc.Log.Errorf("[API] sale refused after capture %s in room %s: %v", order.OrderID, room.Code(), err)
		c.JSON(errStatus(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"tickets": tickets,
		"payment": order,
	})
}

// ForceStart lets the host begin calling before the minimum is reached.
func (rc *RoomsController) ForceStart(c *gin.Context) {
	who, ok := rc.authenticate(c)
	if !ok {
		return
	}

	room, err := rc.Registry.Get(c.Param("code"))
	if err != nil {
		c.JSON(errStatus(err), gin.H{"error": err.Error()})
		return
	}
	if err := room.ForceStart(who.ID); err != nil {
		c.JSON(errStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}
