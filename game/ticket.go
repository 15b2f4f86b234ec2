package game

import (
	"math/rand"
	"sort"

	"github.com/google/uuid"
)

const (
	TicketRows = 3
	TicketCols = 9
	// TicketNumbers is the count of occupied cells on a full ticket.
	TicketNumbers = 15
	numbersPerRow = 5
	// MaxDrawNumber is the size of the draw pool (numbers 1..90).
	MaxDrawNumber = 90
)

// Ticket is a 3x9 tambola grid. A zero cell is empty. Each row carries exactly
// five numbers, each column stays inside its decade range, and all fifteen
// numbers are distinct. Tickets are immutable once issued.
type Ticket struct {
	ID   string                      `json:"id"`
	Grid [TicketRows][TicketCols]int `json:"grid"`
}

// columnRange returns the inclusive number range of column c:
// 1-9 for column 0, 80-90 for column 8, c*10..c*10+9 in between.
func columnRange(c int) (int, int) {
	lo := c * 10
	if c == 0 {
		lo = 1
	}
	hi := c*10 + 9
	if c == TicketCols-1 {
		hi = MaxDrawNumber
	}
	return lo, hi
}

// GenerateTicket produces one valid ticket. Row placement is retried until the
// per-row totals land on exactly five, so callers never see a partial grid.
func GenerateTicket(rng *rand.Rand) Ticket {
	t := Ticket{ID: uuid.NewString()}
	counts := columnCounts(rng)
	occupied := placeRows(rng, counts)

	for c := 0; c < TicketCols; c++ {
		lo, hi := columnRange(c)
		nums := sampleRange(rng, lo, hi, counts[c])
		sort.Ints(nums)
		i := 0
		for r := 0; r < TicketRows; r++ {
			if occupied[r][c] {
				t.Grid[r][c] = nums[i]
				i++
			}
		}
	}
	return t
}

// columnCounts spreads the fifteen numbers over the nine columns: every column
// gets at least one, no column more than three.
func columnCounts(rng *rand.Rand) [TicketCols]int {
	var counts [TicketCols]int
	for c := range counts {
		counts[c] = 1
	}
	remaining := TicketNumbers - TicketCols
	for remaining > 0 {
		c := rng.Intn(TicketCols)
		if counts[c] < TicketRows {
			counts[c]++
			remaining--
		}
	}
	return counts
}

// placeRows assigns each column's numbers to rows so that every row ends up
// with exactly five occupied cells. A random greedy pass can paint itself into
// a corner, in which case the whole placement is retried.
func placeRows(rng *rand.Rand, counts [TicketCols]int) [TicketRows][TicketCols]bool {
	for {
		var occupied [TicketRows][TicketCols]bool
		var rowLoad [TicketRows]int
		ok := true

		for c := 0; c < TicketCols && ok; c++ {
			for k := 0; k < counts[c]; k++ {
				eligible := make([]int, 0, TicketRows)
				for r := 0; r < TicketRows; r++ {
					if rowLoad[r] < numbersPerRow && !occupied[r][c] {
						eligible = append(eligible, r)
					}
				}
				if len(eligible) == 0 {
					ok = false
					break
				}
				r := eligible[rng.Intn(len(eligible))]
				occupied[r][c] = true
				rowLoad[r]++
			}
		}
		if ok {
			return occupied
		}
	}
}

// sampleRange picks k distinct numbers from [lo, hi].
func sampleRange(rng *rand.Rand, lo, hi, k int) []int {
	pool := make([]int, 0, hi-lo+1)
	for n := lo; n <= hi; n++ {
		pool = append(pool, n)
	}
	rng.Shuffle(len(pool), func(i, j int) { pool[i], pool[j] = pool[j], pool[i] })
	return pool[:k]
}

// RowNumbers returns the occupied cells of row r in column order.
func (t Ticket) RowNumbers(r int) []int {
	nums := make([]int, 0, numbersPerRow)
	for c := 0; c < TicketCols; c++ {
		if n := t.Grid[r][c]; n != 0 {
			nums = append(nums, n)
		}
	}
	return nums
}

// Numbers returns all fifteen numbers on the ticket.
func (t Ticket) Numbers() []int {
	nums := make([]int, 0, TicketNumbers)
	for r := 0; r < TicketRows; r++ {
		nums = append(nums, t.RowNumbers(r)...)
	}
	return nums
}

// Contains reports whether n appears anywhere on the ticket.
func (t Ticket) Contains(n int) bool {
	if n < 1 || n > MaxDrawNumber {
		return false
	}
	for r := 0; r < TicketRows; r++ {
		for c := 0; c < TicketCols; c++ {
			if t.Grid[r][c] == n {
				return true
			}
		}
	}
	return false
}

// Valid reports whether the grid satisfies every ticket invariant.
func (t Ticket) Valid() bool {
	seen := make(map[int]bool, TicketNumbers)
	for r := 0; r < TicketRows; r++ {
		filled := 0
		for c := 0; c < TicketCols; c++ {
			n := t.Grid[r][c]
			if n == 0 {
				continue
			}
			lo, hi := columnRange(c)
			if n < lo || n > hi || seen[n] {
				return false
			}
			seen[n] = true
			filled++
		}
		if filled != numbersPerRow {
			return false
		}
	}
	return len(seen) == TicketNumbers
}
