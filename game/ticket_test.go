package game

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateTicketIsValid(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 1000; i++ {
		ticket := GenerateTicket(rng)
		require.True(t, ticket.Valid(), "generated ticket %d is invalid: %v", i, ticket.Grid)
		require.NotEmpty(t, ticket.ID)
	}
}

func TestGenerateTicketRowAndColumnShape(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	for i := 0; i < 200; i++ {
		ticket := GenerateTicket(rng)

		seen := make(map[int]bool)
		for r := 0; r < TicketRows; r++ {
			filled := 0
			for c := 0; c < TicketCols; c++ {
				n := ticket.Grid[r][c]
				if n == 0 {
					continue
				}
				filled++
				lo, hi := columnRange(c)
				assert.GreaterOrEqual(t, n, lo, "row %d col %d", r, c)
				assert.LessOrEqual(t, n, hi, "row %d col %d", r, c)
				assert.False(t, seen[n], "duplicate number %d", n)
				seen[n] = true
			}
			assert.Equal(t, numbersPerRow, filled, "row %d occupancy", r)
		}
		assert.Len(t, seen, TicketNumbers)
	}
}

func TestGenerateTicketColumnsAscendDownward(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 200; i++ {
		ticket := GenerateTicket(rng)
		for c := 0; c < TicketCols; c++ {
			prev := 0
			for r := 0; r < TicketRows; r++ {
				n := ticket.Grid[r][c]
				if n == 0 {
					continue
				}
				assert.Greater(t, n, prev, "column %d not ascending", c)
				prev = n
			}
		}
	}
}

func TestTicketAccessors(t *testing.T) {
	ticket := testTicket()

	assert.Equal(t, []int{1, 10, 20, 30, 40}, ticket.RowNumbers(0))
	assert.Equal(t, []int{41, 50, 60, 70, 80}, ticket.RowNumbers(1))
	assert.Equal(t, []int{2, 11, 51, 71, 81}, ticket.RowNumbers(2))
	assert.Len(t, ticket.Numbers(), TicketNumbers)

	assert.True(t, ticket.Contains(41))
	assert.False(t, ticket.Contains(42))
	assert.False(t, ticket.Contains(0))
	assert.False(t, ticket.Contains(91))
}

func TestTicketValidRejectsBadGrids(t *testing.T) {
	bad := testTicket()
	bad.Grid[0][0] = 15 // out of column 0's range
	assert.False(t, bad.Valid())

	bad = testTicket()
	bad.Grid[0][1] = 11 // duplicates row 2
	assert.False(t, bad.Valid())

	bad = testTicket()
	bad.Grid[0][4] = 0 // row 0 down to four numbers
	assert.False(t, bad.Valid())
}
