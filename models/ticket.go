package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

type TicketRecord struct {
	ID         uint            `gorm:"primaryKey" json:"id"`
	RoomCode   string          `gorm:"index" json:"room_code"`
	TicketID   string          `gorm:"uniqueIndex;size:40" json:"ticket_id"`
	PlayerID   string          `gorm:"index" json:"player_id"`
	PlayerName string          `json:"player_name"`
	GridJSON   datatypes.JSON  `json:"grid_json"` // 3x9 grid, zero = empty cell
	Price      decimal.Decimal `gorm:"type:numeric" json:"price"`
	CreatedAt  time.Time       `json:"created_at"`
}
