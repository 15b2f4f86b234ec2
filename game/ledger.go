package game

import (
	"fmt"
	"sync"

	"github.com/shopspring/decimal"
)

// Revenue split applied to every ticket sale.
var (
	prizePoolShare       = decimal.RequireFromString("0.55")
	ownerCommissionShare = decimal.RequireFromString("0.30")
	platformFeeShare     = decimal.RequireFromString("0.15")
)

// Ledger tracks the three-way split of a room's collected stakes. All amounts
// are decimals, so repeated small sales sum to exactly the same totals as one
// bulk sale and prizePool + ownerCommission + platformFee == collected holds
// with no drift.
type Ledger struct {
	mu                sync.Mutex
	collected         decimal.Decimal
	prizePool         decimal.Decimal
	ownerCommission   decimal.Decimal
	platformFee       decimal.Decimal
	prizesDistributed decimal.Decimal
	settled           bool
}

// LedgerSnapshot is a point-in-time copy of the ledger totals.
type LedgerSnapshot struct {
	Collected         decimal.Decimal `json:"collected"`
	PrizePool         decimal.Decimal `json:"prizePool"`
	OwnerCommission   decimal.Decimal `json:"ownerCommission"`
	PlatformFee       decimal.Decimal `json:"platformFee"`
	PrizesDistributed decimal.Decimal `json:"prizesDistributed"`
	Settled           bool            `json:"settled"`
}

func NewLedger() *Ledger {
	return &Ledger{}
}

// RecordSale splits amount into the prize pool (55%), the owner commission
// (30%) and the platform fee (15%) and adds it to the running totals.
func (l *Ledger) RecordSale(amount decimal.Decimal) error {
	if amount.Sign() <= 0 {
		return fmt.Errorf("%w: sale amount must be positive, got %s", ErrValidation, amount)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.settled {
		return fmt.Errorf("%w: ledger already settled", ErrConflict)
	}
	l.collected = l.collected.Add(amount)
	l.prizePool = l.prizePool.Add(amount.Mul(prizePoolShare))
	l.ownerCommission = l.ownerCommission.Add(amount.Mul(ownerCommissionShare))
	l.platformFee = l.platformFee.Add(amount.Mul(platformFeeShare))
	return nil
}

// PrizeAmount returns the fixed pool share awarded for a prize type at the
// current pool size.
func (l *Ledger) PrizeAmount(pt PrizeType) (decimal.Decimal, error) {
	share, err := PrizeShare(pt)
	if err != nil {
		return decimal.Zero, err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.prizePool.Mul(share), nil
}

// RecordPayout commits a prize amount. It fails if the payout would push the
// distributed total past the prize pool.
func (l *Ledger) RecordPayout(amount decimal.Decimal) error {
	if amount.Sign() < 0 {
		return fmt.Errorf("%w: payout amount must not be negative, got %s", ErrValidation, amount)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	next := l.prizesDistributed.Add(amount)
	if next.GreaterThan(l.prizePool) {
		return fmt.Errorf("%w: payout %s exceeds remaining prize pool %s",
			ErrConflict, amount, l.prizePool.Sub(l.prizesDistributed))
	}
	l.prizesDistributed = next
	return nil
}

// Settle marks the ledger settled and returns the owner commission to pay
// out. The second return is false on every call after the first, so a repeat
// settlement never double-pays.
func (l *Ledger) Settle() (decimal.Decimal, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.settled {
		return decimal.Zero, false
	}
	l.settled = true
	return l.ownerCommission, true
}

// Snapshot returns a copy of the current totals.
func (l *Ledger) Snapshot() LedgerSnapshot {
	l.mu.Lock()
	defer l.mu.Unlock()
	return LedgerSnapshot{
		Collected:         l.collected,
		PrizePool:         l.prizePool,
		OwnerCommission:   l.ownerCommission,
		PlatformFee:       l.platformFee,
		PrizesDistributed: l.prizesDistributed,
		Settled:           l.settled,
	}
}
