package game

import (
	"context"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/coder/quartz"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubSink records every emitted event.
type stubSink struct {
	mu         sync.Mutex
	broadcasts []any
	notifies   map[string][]any
}

func newStubSink() *stubSink {
	return &stubSink{notifies: make(map[string][]any)}
}

func (s *stubSink) Broadcast(_ string, event any) {
	s.mu.Lock()
	s.broadcasts = append(s.broadcasts, event)
	s.mu.Unlock()
}

func (s *stubSink) Notify(_ string, playerID string, event any) {
	s.mu.Lock()
	s.notifies[playerID] = append(s.notifies[playerID], event)
	s.mu.Unlock()
}

func (s *stubSink) countBroadcasts(match func(any) bool) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, e := range s.broadcasts {
		if match(e) {
			n++
		}
	}
	return n
}

// stubSettler records commission payouts.
type stubSettler struct {
	mu    sync.Mutex
	calls []decimal.Decimal
}

func (s *stubSettler) PayCommission(_, _ string, amount decimal.Decimal) {
	s.mu.Lock()
	s.calls = append(s.calls, amount)
	s.mu.Unlock()
}

func (s *stubSettler) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.calls)
}

func newTestRoom(t *testing.T, cfg RoomConfig, deps RoomDeps) *Room {
	t.Helper()
	if cfg.Code == "" {
		cfg.Code = "TEST42"
	}
	if cfg.OwnerID == "" {
		cfg.OwnerID = "host"
	}
	if cfg.TicketPrice.IsZero() {
		cfg.TicketPrice = decimal.NewFromInt(10)
	}
	if cfg.MinTickets == 0 {
		cfg.MinTickets = 2
	}
	if cfg.MaxTickets == 0 {
		cfg.MaxTickets = 15
	}
	if deps.Rand == nil {
		deps.Rand = rand.New(rand.NewSource(1))
	}
	room, err := NewRoom(cfg, deps)
	require.NoError(t, err)
	return room
}

// forceDrawn injects numbers into the room's drawn sequence, bypassing the
// scheduler, so claim tests can stage an exact board.
func forceDrawn(r *Room, nums ...int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, n := range nums {
		if r.calledSet[n] {
			continue
		}
		r.called = append(r.called, n)
		r.calledSet[n] = true
		for i, u := range r.undrawn {
			if u == n {
				r.undrawn[i] = r.undrawn[len(r.undrawn)-1]
				r.undrawn = r.undrawn[:len(r.undrawn)-1]
				break
			}
		}
	}
}

func TestRoomAutoStartAndSplit(t *testing.T) {
	sink := newStubSink()
	room := newTestRoom(t, RoomConfig{MinTickets: 10, MaxTickets: 15}, RoomDeps{
		Sink:  sink,
		Clock: quartz.NewMock(t),
	})

	_, err := room.BuyTickets("alice", "Alice", 5)
	require.NoError(t, err)
	assert.Equal(t, StateWaiting, room.State())

	_, err = room.BuyTickets("bob", "Bob", 5)
	require.NoError(t, err)
	assert.Equal(t, StateActive, room.State())

	snap := room.Ledger().Snapshot()
	assert.True(t, snap.Collected.Equal(decimal.NewFromInt(100)))
	assert.True(t, snap.PrizePool.Equal(decimal.NewFromInt(55)))
	assert.True(t, snap.OwnerCommission.Equal(decimal.NewFromInt(30)))
	assert.True(t, snap.PlatformFee.Equal(decimal.NewFromInt(15)))

	started := sink.countBroadcasts(func(e any) bool {
		_, ok := e.(GameStartedEvent)
		return ok
	})
	assert.Equal(t, 1, started)
}

func TestRoomPurchaseBounds(t *testing.T) {
	room := newTestRoom(t, RoomConfig{MinTickets: 10, MaxTickets: 12}, RoomDeps{
		Clock: quartz.NewMock(t),
	})

	_, err := room.BuyTickets("alice", "Alice", 0)
	assert.ErrorIs(t, err, ErrValidation)

	_, err = room.BuyTickets("alice", "Alice", MaxTicketsPerPlayer+1)
	assert.ErrorIs(t, err, ErrValidation)

	_, err = room.BuyTickets("alice", "Alice", 6)
	require.NoError(t, err)
	_, err = room.BuyTickets("bob", "Bob", 6)
	require.NoError(t, err)

	// 12 of 12 sold: the room is full.
	_, err = room.BuyTickets("carol", "Carol", 1)
	assert.ErrorIs(t, err, ErrConflict)
}

func TestRoomForceStart(t *testing.T) {
	room := newTestRoom(t, RoomConfig{MinTickets: 10, MaxTickets: 15}, RoomDeps{
		Clock: quartz.NewMock(t),
	})

	err := room.ForceStart("host")
	assert.ErrorIs(t, err, ErrConflict, "no tickets sold yet")

	_, err = room.BuyTickets("alice", "Alice", 1)
	require.NoError(t, err)

	assert.ErrorIs(t, room.ForceStart("alice"), ErrConflict, "only the owner may start")

	require.NoError(t, room.ForceStart("host"))
	assert.Equal(t, StateActive, room.State())

	assert.ErrorIs(t, room.ForceStart("host"), ErrConflict, "already active")
}

func TestRoomMarkNumber(t *testing.T) {
	room := newTestRoom(t, RoomConfig{MinTickets: 1}, RoomDeps{Clock: quartz.NewMock(t)})
	_, err := room.BuyTickets("alice", "Alice", 1)
	require.NoError(t, err)

	assert.ErrorIs(t, room.MarkNumber("bob", 5), ErrNotFound)
	assert.ErrorIs(t, room.MarkNumber("alice", 5), ErrValidation, "number not drawn yet")

	forceDrawn(room, 5)
	require.NoError(t, room.MarkNumber("alice", 5))
	require.NoError(t, room.MarkNumber("alice", 5), "marking is idempotent")
}

func TestSchedulerDrawsUniqueNumbersAndExhausts(t *testing.T) {
	ctx := context.Background()
	mock := quartz.NewMock(t)
	sink := newStubSink()
	settler := &stubSettler{}
	interval := time.Second

	room := newTestRoom(t, RoomConfig{MinTickets: 1, MaxTickets: 15, DrawInterval: interval}, RoomDeps{
		Sink:    sink,
		Settler: settler,
		Clock:   mock,
	})
	_, err := room.BuyTickets("alice", "Alice", 1)
	require.NoError(t, err)
	require.Equal(t, StateActive, room.State())

	for i := 0; i < MaxDrawNumber; i++ {
		mock.Advance(interval).MustWait(ctx)
	}

	st := room.Status()
	assert.Equal(t, StateCompleted, st.State)
	require.Len(t, st.CalledNumbers, MaxDrawNumber)

	seen := make(map[int]bool)
	for _, n := range st.CalledNumbers {
		assert.GreaterOrEqual(t, n, 1)
		assert.LessOrEqual(t, n, MaxDrawNumber)
		assert.False(t, seen[n], "number %d drawn twice", n)
		seen[n] = true
	}

	// A stopped caller must not keep firing for a completed room.
	mock.Advance(10 * interval)
	assert.Len(t, room.Status().CalledNumbers, MaxDrawNumber)

	ended := sink.countBroadcasts(func(e any) bool {
		_, ok := e.(GameEndedEvent)
		return ok
	})
	assert.Equal(t, 1, ended)

	assert.Eventually(t, func() bool { return settler.count() == 1 },
		time.Second, 10*time.Millisecond, "settlement runs exactly once")
}

func TestSchedulerStartIsIdempotent(t *testing.T) {
	ctx := context.Background()
	mock := quartz.NewMock(t)
	interval := time.Second

	room := newTestRoom(t, RoomConfig{MinTickets: 1, DrawInterval: interval}, RoomDeps{Clock: mock})
	_, err := room.BuyTickets("alice", "Alice", 1)
	require.NoError(t, err)

	// A second start signal while the caller is running must not arm a
	// second timer.
	room.mu.Lock()
	room.startCallerLocked()
	room.startCallerLocked()
	room.mu.Unlock()

	mock.Advance(interval).MustWait(ctx)
	assert.Len(t, room.Status().CalledNumbers, 1)
}

func TestClaimRaceHasExactlyOneWinner(t *testing.T) {
	sink := newStubSink()
	room := newTestRoom(t, RoomConfig{MinTickets: 2, MaxTickets: 15}, RoomDeps{
		Sink:  sink,
		Clock: quartz.NewMock(t),
	})

	aliceTickets, err := room.BuyTickets("alice", "Alice", 1)
	require.NoError(t, err)
	bobTickets, err := room.BuyTickets("bob", "Bob", 1)
	require.NoError(t, err)
	require.Equal(t, StateActive, room.State())

	aliceRow := aliceTickets[0].RowNumbers(0)
	bobRow := bobTickets[0].RowNumbers(0)
	forceDrawn(room, aliceRow...)
	forceDrawn(room, bobRow...)

	var wg sync.WaitGroup
	results := make([]error, 2)
	wg.Add(2)
	go func() {
		defer wg.Done()
		_, results[0] = room.Claim("alice", TopLine, aliceTickets[0].ID, aliceRow)
	}()
	go func() {
		defer wg.Done()
		_, results[1] = room.Claim("bob", TopLine, bobTickets[0].ID, bobRow)
	}()
	wg.Wait()

	wins, conflicts := 0, 0
	for _, err := range results {
		switch {
		case err == nil:
			wins++
		default:
			require.ErrorIs(t, err, ErrConflict)
			conflicts++
		}
	}
	assert.Equal(t, 1, wins)
	assert.Equal(t, 1, conflicts)

	claimed := sink.countBroadcasts(func(e any) bool {
		_, ok := e.(PrizeClaimedEvent)
		return ok
	})
	assert.Equal(t, 1, claimed, "exactly one prize-claimed broadcast")
}

func TestClaimAmountIsFixedPoolShare(t *testing.T) {
	room := newTestRoom(t, RoomConfig{MinTickets: 2, MaxTickets: 15}, RoomDeps{
		Clock: quartz.NewMock(t),
	})

	tickets, err := room.BuyTickets("alice", "Alice", 2)
	require.NoError(t, err)
	require.Equal(t, StateActive, room.State())

	row := tickets[0].RowNumbers(0)
	forceDrawn(room, row...)

	claim, err := room.Claim("alice", TopLine, tickets[0].ID, row)
	require.NoError(t, err)

	// pool = 2 * 10 * 0.55 = 11; topLine share 25% = 2.75
	assert.True(t, claim.Amount.Equal(decimal.RequireFromString("2.75")), "amount=%s", claim.Amount)
	assert.True(t, room.Ledger().Snapshot().PrizesDistributed.Equal(claim.Amount))
}

func TestClaimIntegrityViolationLeavesStateUntouched(t *testing.T) {
	sink := newStubSink()
	room := newTestRoom(t, RoomConfig{MinTickets: 1}, RoomDeps{
		Sink:  sink,
		Clock: quartz.NewMock(t),
	})

	tickets, err := room.BuyTickets("alice", "Alice", 1)
	require.NoError(t, err)

	numbers := tickets[0].Numbers()
	forceDrawn(room, numbers[:14]...)

	before := room.Ledger().Snapshot()

	// Full house claimed with one number the room never drew.
	_, err = room.Claim("alice", FullHouse, tickets[0].ID, numbers)
	require.ErrorIs(t, err, ErrIntegrityViolation)

	after := room.Ledger().Snapshot()
	assert.True(t, before.PrizesDistributed.Equal(after.PrizesDistributed))
	for _, slot := range room.Status().Prizes {
		assert.False(t, slot.Claimed)
	}

	claimed := sink.countBroadcasts(func(e any) bool {
		_, ok := e.(PrizeClaimedEvent)
		return ok
	})
	assert.Zero(t, claimed, "rejected claims are not broadcast")
}

func TestAllPrizesClaimedCompletesRoom(t *testing.T) {
	sink := newStubSink()
	settler := &stubSettler{}
	room := newTestRoom(t, RoomConfig{MinTickets: 1, MaxTickets: 15}, RoomDeps{
		Sink:    sink,
		Settler: settler,
		Clock:   quartz.NewMock(t),
	})

	tickets, err := room.BuyTickets("alice", "Alice", 1)
	require.NoError(t, err)
	ticket := tickets[0]
	forceDrawn(room, ticket.Numbers()...)

	_, err = room.Claim("alice", EarlyFive, ticket.ID, ticket.RowNumbers(0))
	require.NoError(t, err)
	_, err = room.Claim("alice", TopLine, ticket.ID, ticket.RowNumbers(0))
	require.NoError(t, err)
	_, err = room.Claim("alice", MiddleLine, ticket.ID, ticket.RowNumbers(1))
	require.NoError(t, err)
	_, err = room.Claim("alice", BottomLine, ticket.ID, ticket.RowNumbers(2))
	require.NoError(t, err)

	assert.Equal(t, StateActive, room.State())

	_, err = room.Claim("alice", FullHouse, ticket.ID, ticket.Numbers())
	require.NoError(t, err)

	assert.Equal(t, StateCompleted, room.State())

	// Completed is terminal.
	_, err = room.BuyTickets("bob", "Bob", 1)
	assert.ErrorIs(t, err, ErrConflict)
	_, err = room.Join("bob", "Bob")
	assert.ErrorIs(t, err, ErrConflict)
	_, err = room.Claim("alice", FullHouse, ticket.ID, ticket.Numbers())
	assert.ErrorIs(t, err, ErrConflict)

	assert.Eventually(t, func() bool { return settler.count() == 1 },
		time.Second, 10*time.Millisecond)

	// A repeated shutdown must not settle twice.
	room.Shutdown()
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, 1, settler.count())
}

func TestJoinAndLeaveEvents(t *testing.T) {
	sink := newStubSink()
	room := newTestRoom(t, RoomConfig{}, RoomDeps{Sink: sink, Clock: quartz.NewMock(t)})

	snap, err := room.Join("alice", "Alice")
	require.NoError(t, err)
	assert.Equal(t, EventGameState, snap.Type)
	assert.Equal(t, StateWaiting, snap.State)
	assert.Equal(t, 1, snap.MemberCount)
	assert.Len(t, snap.Prizes, len(PrizeTypes))

	// Rejoining is idempotent and does not re-announce.
	_, err = room.Join("alice", "Alice")
	require.NoError(t, err)
	joined := sink.countBroadcasts(func(e any) bool {
		_, ok := e.(PlayerJoinedEvent)
		return ok
	})
	assert.Equal(t, 1, joined)

	room.Leave("alice")
	room.Leave("alice") // no-op
	left := sink.countBroadcasts(func(e any) bool {
		_, ok := e.(PlayerLeftEvent)
		return ok
	})
	assert.Equal(t, 1, left)
}

func TestNewRoomValidation(t *testing.T) {
	_, err := NewRoom(RoomConfig{Code: "X", TicketPrice: decimal.Zero, MinTickets: 1, MaxTickets: 2}, RoomDeps{})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = NewRoom(RoomConfig{Code: "X", TicketPrice: decimal.NewFromInt(1), MinTickets: 5, MaxTickets: 2}, RoomDeps{})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = NewRoom(RoomConfig{TicketPrice: decimal.NewFromInt(1), MinTickets: 1, MaxTickets: 2}, RoomDeps{})
	assert.ErrorIs(t, err, ErrValidation)
}
