package game

import "github.com/shopspring/decimal"

// Wire event names. Every payload carries a "type" discriminator so clients
// can switch on it.
const (
	EventGameState    = "game-state"
	EventPlayerJoined = "player-joined"
	EventPlayerLeft   = "player-left"
	EventNumberCalled = "number-called"
	EventGameStarted  = "game-started"
	EventClaimResult  = "claim-result"
	EventPrizeClaimed = "prize-claimed"
	EventGameEnded    = "game-ended"
)

// EventSink delivers room events to connected clients. Implementations must
// not block the caller; the room emits outside its own lock.
type EventSink interface {
	// Broadcast sends an event to every client in the room.
	Broadcast(roomCode string, event any)
	// Notify sends an event to a single player in the room.
	Notify(roomCode, playerID string, event any)
}

// PrizeSlot is one row of a room's five-slot prize table.
type PrizeSlot struct {
	Prize    PrizeType       `json:"prize"`
	Claimed  bool            `json:"claimed"`
	Winner   string          `json:"winner,omitempty"`
	TicketID string          `json:"ticketId,omitempty"`
	Amount   decimal.Decimal `json:"amount"`
}

// GameStateEvent is sent to a player on join.
type GameStateEvent struct {
	Type          string         `json:"type"`
	Code          string         `json:"code"`
	State         LifecycleState `json:"state"`
	CalledNumbers []int          `json:"calledNumbers"`
	Prizes        []PrizeSlot    `json:"prizes"`
	MemberCount   int            `json:"memberCount"`
	TicketsSold   int            `json:"ticketsSold"`
}

type PlayerJoinedEvent struct {
	Type        string `json:"type"`
	PlayerID    string `json:"playerId"`
	PlayerName  string `json:"playerName"`
	MemberCount int    `json:"memberCount"`
}

type PlayerLeftEvent struct {
	Type        string `json:"type"`
	PlayerID    string `json:"playerId"`
	MemberCount int    `json:"memberCount"`
}

type NumberCalledEvent struct {
	Type          string `json:"type"`
	Number        int    `json:"number"`
	TotalCalled   int    `json:"totalCalled"`
	CalledNumbers []int  `json:"calledNumbers"`
}

type GameStartedEvent struct {
	Type string `json:"type"`
	Code string `json:"code"`
}

// ClaimResultEvent goes only to the submitting client.
type ClaimResultEvent struct {
	Type    string           `json:"type"`
	Success bool             `json:"success"`
	Prize   PrizeType        `json:"prizeType"`
	Amount  *decimal.Decimal `json:"amount,omitempty"`
	Error   string           `json:"error,omitempty"`
}

// PrizeClaimedEvent is broadcast to the whole room, only on success.
type PrizeClaimedEvent struct {
	Type     string    `json:"type"`
	Prize    PrizeType `json:"prizeType"`
	Winner   string    `json:"winnerDisplayName"`
	TicketID string    `json:"ticketId"`
}

type GameEndedEvent struct {
	Type          string      `json:"type"`
	Reason        string      `json:"reason"`
	Prizes        []PrizeSlot `json:"prizes"`
	CalledNumbers []int       `json:"calledNumbers"`
}
