package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

type GameRecord struct {
	ID          uint            `gorm:"primaryKey" json:"id"`
	Code        string          `gorm:"uniqueIndex;size:8" json:"code"`
	Title       string          `json:"title"`
	OwnerID     string          `gorm:"index" json:"owner_id"`
	Status      string          `json:"status"` // waiting | active | completed
	TicketPrice decimal.Decimal `gorm:"type:numeric" json:"ticket_price"`
	MinTickets  int             `json:"min_tickets"`
	MaxTickets  int             `json:"max_tickets"`
	TicketsSold int             `json:"tickets_sold"`
	NumbersJSON datatypes.JSON  `json:"numbers_json"` // drawn sequence, in call order
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}
