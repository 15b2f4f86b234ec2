package game

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// PrizeType names one of the five winning patterns.
type PrizeType string

const (
	EarlyFive  PrizeType = "earlyFive"
	TopLine    PrizeType = "topLine"
	MiddleLine PrizeType = "middleLine"
	BottomLine PrizeType = "bottomLine"
	FullHouse  PrizeType = "fullHouse"
)

// PrizeTypes lists every pattern in claim-table order.
var PrizeTypes = []PrizeType{EarlyFive, TopLine, MiddleLine, BottomLine, FullHouse}

// prizeShares maps each pattern to its fixed share of the room's prize pool.
var prizeShares = map[PrizeType]decimal.Decimal{
	EarlyFive:  decimal.RequireFromString("0.15"),
	TopLine:    decimal.RequireFromString("0.25"),
	MiddleLine: decimal.RequireFromString("0.25"),
	BottomLine: decimal.RequireFromString("0.25"),
	FullHouse:  decimal.RequireFromString("0.10"),
}

// PrizeShare returns the pool share of a pattern, or an error for an unknown
// prize type.
func PrizeShare(pt PrizeType) (decimal.Decimal, error) {
	share, ok := prizeShares[pt]
	if !ok {
		return decimal.Zero, fmt.Errorf("%w: unknown prize type %q", ErrValidation, pt)
	}
	return share, nil
}

// lineComplete reports whether every occupied cell of ticket row r is marked.
func lineComplete(t Ticket, marked map[int]bool, r int) bool {
	for _, n := range t.RowNumbers(r) {
		if !marked[n] {
			return false
		}
	}
	return true
}

// patternComplete evaluates one pattern against a ticket and the set of
// marked numbers on that ticket.
func patternComplete(pt PrizeType, t Ticket, marked map[int]bool) bool {
	switch pt {
	case EarlyFive:
		return len(marked) >= 5
	case TopLine:
		return lineComplete(t, marked, 0)
	case MiddleLine:
		return lineComplete(t, marked, 1)
	case BottomLine:
		return lineComplete(t, marked, 2)
	case FullHouse:
		return lineComplete(t, marked, 0) && lineComplete(t, marked, 1) && lineComplete(t, marked, 2)
	default:
		return false
	}
}

// VerifyClaim checks a claim against the room's canonical drawn set. Marked
// numbers absent from the ticket are a validation error; marked numbers never
// drawn in this room are an integrity violation regardless of what the client
// reports. Only marks that survive both checks count toward the pattern.
func VerifyClaim(pt PrizeType, t Ticket, markedNumbers []int, drawn map[int]bool) error {
	if _, err := PrizeShare(pt); err != nil {
		return err
	}

	marked := make(map[int]bool, len(markedNumbers))
	for _, n := range markedNumbers {
		if !t.Contains(n) {
			return fmt.Errorf("%w: number %d is not on ticket %s", ErrValidation, n, t.ID)
		}
		if !drawn[n] {
			return fmt.Errorf("%w: number %d was never drawn", ErrIntegrityViolation, n)
		}
		marked[n] = true
	}

	if !patternComplete(pt, t, marked) {
		return fmt.Errorf("%w: pattern %s is not complete", ErrValidation, pt)
	}
	return nil
}
