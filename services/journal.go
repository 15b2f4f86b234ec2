package services

import (
	"encoding/json"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/tambolalive/tambola-backend/game"
	"github.com/tambolalive/tambola-backend/models"
)

// GormJournal persists room activity through a single writer goroutine.
// Writes are fire-and-forget: a full queue drops the entry with an error log
// rather than ever stalling a room.
type GormJournal struct {
	db    *gorm.DB
	log   *zap.SugaredLogger
	queue chan func(*gorm.DB) error
}

func NewGormJournal(db *gorm.DB, log *zap.SugaredLogger) *GormJournal {
	j := &GormJournal{
		db:    db,
		log:   log,
		queue: make(chan func(*gorm.DB) error, 256),
	}
	go j.run()
	return j
}

func (j *GormJournal) run() {
	for fn := range j.queue {
		if err := fn(j.db); err != nil {
			j.log.Errorf("[Journal] write failed: %v", err)
		}
	}
}

// Close drains and stops the writer.
func (j *GormJournal) Close() {
	close(j.queue)
}

func (j *GormJournal) enqueue(fn func(*gorm.DB) error) {
	select {
	case j.queue <- fn:
	default:
		j.log.Errorf("[Journal] queue full, dropping write")
	}
}

func (j *GormJournal) RoomCreated(cfg game.RoomConfig) {
	j.enqueue(func(db *gorm.DB) error {
		return db.Create(&models.GameRecord{
			Code:        cfg.Code,
			Title:       cfg.Title,
			OwnerID:     cfg.OwnerID,
			Status:      string(game.StateWaiting),
			TicketPrice: cfg.TicketPrice,
			MinTickets:  cfg.MinTickets,
			MaxTickets:  cfg.MaxTickets,
			NumbersJSON: datatypes.JSON([]byte("[]")),
		}).Error
	})
}

func (j *GormJournal) TicketSold(roomCode string, t game.Ticket, playerID, playerName string, price decimal.Decimal) {
	grid, err := json.Marshal(t.Grid)
	if err != nil {
		j.log.Errorf("[Journal] marshal ticket %s: %v", t.ID, err)
		return
	}
	j.enqueue(func(db *gorm.DB) error {
		if err := db.Create(&models.TicketRecord{
			RoomCode:   roomCode,
			TicketID:   t.ID,
			PlayerID:   playerID,
			PlayerName: playerName,
			GridJSON:   datatypes.JSON(grid),
			Price:      price,
		}).Error; err != nil {
			return err
		}
		return db.Model(&models.GameRecord{}).
			Where("code = ?", roomCode).
			UpdateColumn("tickets_sold", gorm.Expr("tickets_sold + 1")).Error
	})
}

func (j *GormJournal) NumbersDrawn(roomCode string, called []int) {
	numbers, err := json.Marshal(called)
	if err != nil {
		j.log.Errorf("[Journal] marshal numbers for room %s: %v", roomCode, err)
		return
	}
	j.enqueue(func(db *gorm.DB) error {
		return db.Model(&models.GameRecord{}).
			Where("code = ?", roomCode).
			Updates(map[string]any{
				"status":       string(game.StateActive),
				"numbers_json": datatypes.JSON(numbers),
			}).Error
	})
}

func (j *GormJournal) PrizeClaimed(roomCode string, claim game.PrizeClaim) {
	j.enqueue(func(db *gorm.DB) error {
		return db.Create(&models.ClaimRecord{
			RoomCode:  roomCode,
			PrizeType: string(claim.Prize),
			PlayerID:  claim.PlayerID,
			TicketID:  claim.TicketID,
			Amount:    claim.Amount,
			ClaimedAt: claim.ClaimedAt,
		}).Error
	})
}

func (j *GormJournal) RoomSettled(roomCode string, snap game.LedgerSnapshot) {
	j.enqueue(func(db *gorm.DB) error {
		if err := db.Model(&models.GameRecord{}).
			Where("code = ?", roomCode).
			UpdateColumn("status", string(game.StateCompleted)).Error; err != nil {
			return err
		}
		return db.Create(&models.SettlementRecord{
			RoomCode:          roomCode,
			Collected:         snap.Collected,
			PrizePool:         snap.PrizePool,
			OwnerCommission:   snap.OwnerCommission,
			PlatformFee:       snap.PlatformFee,
			PrizesDistributed: snap.PrizesDistributed,
		}).Error
	})
}
