package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type ClaimRecord struct {
	ID        uint            `gorm:"primaryKey" json:"id"`
	RoomCode  string          `gorm:"uniqueIndex:idx_room_prize" json:"room_code"`
	PrizeType string          `gorm:"uniqueIndex:idx_room_prize;size:16" json:"prize_type"`
	PlayerID  string          `gorm:"index" json:"player_id"`
	TicketID  string          `json:"ticket_id"`
	Amount    decimal.Decimal `gorm:"type:numeric" json:"amount"`
	ClaimedAt time.Time       `json:"claimed_at"`
	CreatedAt time.Time       `json:"created_at"`
}
