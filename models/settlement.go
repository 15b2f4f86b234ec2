package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type SettlementRecord struct {
	ID                uint            `gorm:"primaryKey" json:"id"`
	RoomCode          string          `gorm:"uniqueIndex" json:"room_code"`
	Collected         decimal.Decimal `gorm:"type:numeric" json:"collected"`
	PrizePool         decimal.Decimal `gorm:"type:numeric" json:"prize_pool"`
	OwnerCommission   decimal.Decimal `gorm:"type:numeric" json:"owner_commission"`
	PlatformFee       decimal.Decimal `gorm:"type:numeric" json:"platform_fee"`
	PrizesDistributed decimal.Decimal `gorm:"type:numeric" json:"prizes_distributed"`
	Reference         string          `json:"reference"` // external payout reference, if any
	CreatedAt         time.Time       `json:"created_at"`
}
