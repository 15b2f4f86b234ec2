package game

import (
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/coder/quartz"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// LifecycleState is a room's position in its waiting → active → completed
// lifecycle. Completed is terminal.
type LifecycleState string

const (
	StateWaiting   LifecycleState = "waiting"
	StateActive    LifecycleState = "active"
	StateCompleted LifecycleState = "completed"
)

const (
	// DefaultDrawInterval is the caller cadence when a room does not set one.
	DefaultDrawInterval = 5 * time.Second
	// MaxTicketsPerPlayer bounds how many tickets one player may hold in a room.
	MaxTicketsPerPlayer = 6
)

// RoomConfig fixes a room's parameters at creation time.
type RoomConfig struct {
	Code         string
	Title        string
	OwnerID      string
	OwnerName    string
	TicketPrice  decimal.Decimal
	MinTickets   int
	MaxTickets   int
	DrawInterval time.Duration
}

// Player is a membership record inside one room, not a global identity.
type Player struct {
	ID      string
	Name    string
	Tickets []Ticket
	Marked  map[int]bool
}

// PrizeClaim is an accepted claim. Immutable once stored in the prize table.
type PrizeClaim struct {
	Prize      PrizeType
	PlayerID   string
	PlayerName string
	TicketID   string
	Amount     decimal.Decimal
	ClaimedAt  time.Time
}

// Journal durably records room activity. It is a write-behind collaborator:
// the room never blocks on it and in-memory state stays authoritative while
// the room is live.
type Journal interface {
	RoomCreated(cfg RoomConfig)
	TicketSold(roomCode string, t Ticket, playerID, playerName string, price decimal.Decimal)
	NumbersDrawn(roomCode string, called []int)
	PrizeClaimed(roomCode string, claim PrizeClaim)
	RoomSettled(roomCode string, snap LedgerSnapshot)
}

// Settler transfers the owner commission once a room settles. Called outside
// the room lock; failures are the settler's to report, the room only records
// that settlement was requested.
type Settler interface {
	PayCommission(roomCode, ownerID string, amount decimal.Decimal)
}

// RoomDeps are the collaborators a room is wired with. Zero values fall back
// to no-op or real implementations.
type RoomDeps struct {
	Sink       EventSink
	Journal    Journal
	Settler    Settler
	Clock      quartz.Clock
	Rand       *rand.Rand
	Log        *zap.SugaredLogger
	OnComplete func(roomCode string)
}

// Room is one live game round. All mutating operations serialize on the room
// mutex; operations on different rooms never block each other. Nothing does
// I/O while the lock is held - events, journal writes and settlement are all
// dispatched after unlocking.
type Room struct {
	cfg RoomConfig

	mu           sync.Mutex
	state        LifecycleState
	players      map[string]*Player
	ticketsSold  int
	called       []int
	calledSet    map[int]bool
	undrawn      []int
	claims       map[PrizeType]*PrizeClaim
	callerActive bool
	drawTimer    *quartz.Timer

	ledger *Ledger

	sink       EventSink
	journal    Journal
	settler    Settler
	clock      quartz.Clock
	rng        *rand.Rand
	log        *zap.SugaredLogger
	onComplete func(string)
}

type noopSink struct{}

func (noopSink) Broadcast(string, any)      {}
func (noopSink) Notify(string, string, any) {}

// NewRoom validates the config and builds a waiting room.
func NewRoom(cfg RoomConfig, deps RoomDeps) (*Room, error) {
	if cfg.Code == "" {
		return nil, fmt.Errorf("%w: room code is required", ErrValidation)
	}
	if cfg.TicketPrice.Sign() <= 0 {
		return nil, fmt.Errorf("%w: ticket price must be positive, got %s", ErrValidation, cfg.TicketPrice)
	}
	if cfg.MinTickets < 1 || cfg.MaxTickets < cfg.MinTickets {
		return nil, fmt.Errorf("%w: ticket bounds min=%d max=%d", ErrValidation, cfg.MinTickets, cfg.MaxTickets)
	}
	if cfg.DrawInterval <= 0 {
		cfg.DrawInterval = DefaultDrawInterval
	}

	if deps.Sink == nil {
		deps.Sink = noopSink{}
	}
	if deps.Clock == nil {
		deps.Clock = quartz.NewReal()
	}
	if deps.Rand == nil {
		deps.Rand = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if deps.Log == nil {
		deps.Log = zap.NewNop().Sugar()
	}

	undrawn := make([]int, MaxDrawNumber)
	for i := range undrawn {
		undrawn[i] = i + 1
	}

	r := &Room{
		cfg:        cfg,
		state:      StateWaiting,
		players:    make(map[string]*Player),
		calledSet:  make(map[int]bool, MaxDrawNumber),
		undrawn:    undrawn,
		claims:     make(map[PrizeType]*PrizeClaim, len(PrizeTypes)),
		ledger:     NewLedger(),
		sink:       deps.Sink,
		journal:    deps.Journal,
		settler:    deps.Settler,
		clock:      deps.Clock,
		rng:        deps.Rand,
		log:        deps.Log,
		onComplete: deps.OnComplete,
	}
	return r, nil
}

// Code returns the room's code.
func (r *Room) Code() string { return r.cfg.Code }

// Config returns the room's immutable configuration.
func (r *Room) Config() RoomConfig { return r.cfg }

// Ledger exposes the room's stake ledger.
func (r *Room) Ledger() *Ledger { return r.ledger }

// State returns the current lifecycle state.
func (r *Room) State() LifecycleState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Join adds a player to the room's membership and returns the state snapshot
// owed to a joining client. Joining is idempotent per player.
func (r *Room) Join(playerID, name string) (GameStateEvent, error) {
	r.mu.Lock()
	if r.state == StateCompleted {
		r.mu.Unlock()
		return GameStateEvent{}, fmt.Errorf("%w: room %s has completed", ErrConflict, r.cfg.Code)
	}
	joined := false
	if _, ok := r.players[playerID]; !ok {
		r.players[playerID] = &Player{ID: playerID, Name: name, Marked: make(map[int]bool)}
		joined = true
	}
	snap := r.stateEventLocked()
	members := len(r.players)
	r.mu.Unlock()

	if joined {
		r.log.Infof("[Room %s] player %s joined (members=%d)", r.cfg.Code, playerID, members)
		r.sink.Broadcast(r.cfg.Code, PlayerJoinedEvent{
			Type:        EventPlayerJoined,
			PlayerID:    playerID,
			PlayerName:  name,
			MemberCount: members,
		})
	}
	return snap, nil
}

// Leave releases a player's membership. Tickets already sold stay counted
// against the room and the ledger; only the live membership goes away.
func (r *Room) Leave(playerID string) {
	r.mu.Lock()
	if _, ok := r.players[playerID]; !ok {
		r.mu.Unlock()
		return
	}
	delete(r.players, playerID)
	members := len(r.players)
	r.mu.Unlock()

	r.log.Infof("[Room %s] player %s left (members=%d)", r.cfg.Code, playerID, members)
	r.sink.Broadcast(r.cfg.Code, PlayerLeftEvent{
		Type:        EventPlayerLeft,
		PlayerID:    playerID,
		MemberCount: members,
	})
}

// BuyTickets issues count tickets to a player, records the sale in the ledger
// and auto-starts the room once the configured minimum is reached. Payment
// capture is the caller's business and must happen before this, outside the
// room lock.
func (r *Room) BuyTickets(playerID, name string, count int) ([]Ticket, error) {
	if count < 1 {
		return nil, fmt.Errorf("%w: ticket count must be at least 1, got %d", ErrValidation, count)
	}

	r.mu.Lock()
	if r.state == StateCompleted {
		r.mu.Unlock()
		return nil, fmt.Errorf("%w: room %s is not selling tickets", ErrConflict, r.cfg.Code)
	}
	if r.ticketsSold+count > r.cfg.MaxTickets {
		r.mu.Unlock()
		return nil, fmt.Errorf("%w: room %s is full (%d/%d sold)", ErrConflict, r.cfg.Code, r.ticketsSold, r.cfg.MaxTickets)
	}

	p, ok := r.players[playerID]
	if !ok {
		p = &Player{ID: playerID, Name: name, Marked: make(map[int]bool)}
		r.players[playerID] = p
	}
	if len(p.Tickets)+count > MaxTicketsPerPlayer {
		r.mu.Unlock()
		return nil, fmt.Errorf("%w: at most %d tickets per player", ErrValidation, MaxTicketsPerPlayer)
	}

	tickets := make([]Ticket, 0, count)
	for i := 0; i < count; i++ {
		t := GenerateTicket(r.rng)
		tickets = append(tickets, t)
		p.Tickets = append(p.Tickets, t)
		if err := r.ledger.RecordSale(r.cfg.TicketPrice); err != nil {
			// Sales only fail on a settled ledger, which completed state
			// already rules out here.
			r.mu.Unlock()
			return nil, err
		}
	}
	r.ticketsSold += count

	started := false
	if r.state == StateWaiting && r.ticketsSold >= r.cfg.MinTickets {
		r.activateLocked()
		started = true
	}
	sold := r.ticketsSold
	r.mu.Unlock()

	r.log.Infof("[Room %s] player %s bought %d ticket(s) (sold=%d)", r.cfg.Code, playerID, count, sold)
	if r.journal != nil {
		for _, t := range tickets {
			r.journal.TicketSold(r.cfg.Code, t, playerID, name, r.cfg.TicketPrice)
		}
	}
	if started {
		r.emitStarted()
	}
	return tickets, nil
}

// ForceStart lets the host begin calling before the minimum is reached.
func (r *Room) ForceStart(playerID string) error {
	if playerID != r.cfg.OwnerID {
		return fmt.Errorf("%w: only the room owner may start the game", ErrConflict)
	}

	r.mu.Lock()
	if r.state != StateWaiting {
		r.mu.Unlock()
		return fmt.Errorf("%w: room %s is %s", ErrConflict, r.cfg.Code, r.state)
	}
	if r.ticketsSold == 0 {
		r.mu.Unlock()
		return fmt.Errorf("%w: no tickets sold yet", ErrConflict)
	}
	r.activateLocked()
	r.mu.Unlock()

	r.emitStarted()
	return nil
}

// activateLocked flips waiting → active and starts the caller. Callers hold
// the room lock.
func (r *Room) activateLocked() {
	r.state = StateActive
	r.startCallerLocked()
}

func (r *Room) emitStarted() {
	r.log.Infof("[Room %s] game started", r.cfg.Code)
	r.sink.Broadcast(r.cfg.Code, GameStartedEvent{Type: EventGameStarted, Code: r.cfg.Code})
}

// startCallerLocked arms the draw timer. Idempotent: a second start while the
// caller is already running is a no-op.
func (r *Room) startCallerLocked() {
	if r.callerActive || r.state != StateActive {
		return
	}
	r.callerActive = true
	r.drawTimer = r.clock.AfterFunc(r.cfg.DrawInterval, r.drawTick)
}

// drawTick draws one number, broadcasts it, and re-arms the timer. Runs on
// the clock's timer goroutine.
func (r *Room) drawTick() {
	r.mu.Lock()
	if r.state != StateActive {
		r.callerActive = false
		r.mu.Unlock()
		return
	}

	i := r.rng.Intn(len(r.undrawn))
	n := r.undrawn[i]
	r.undrawn[i] = r.undrawn[len(r.undrawn)-1]
	r.undrawn = r.undrawn[:len(r.undrawn)-1]
	r.called = append(r.called, n)
	r.calledSet[n] = true

	ev := NumberCalledEvent{
		Type:          EventNumberCalled,
		Number:        n,
		TotalCalled:   len(r.called),
		CalledNumbers: append([]int(nil), r.called...),
	}

	exhausted := len(r.undrawn) == 0
	if exhausted {
		r.completeLocked("draw pool exhausted")
	} else {
		r.drawTimer = r.clock.AfterFunc(r.cfg.DrawInterval, r.drawTick)
	}
	r.mu.Unlock()

	r.log.Debugf("[Room %s] number called: %d (%d/%d)", r.cfg.Code, n, ev.TotalCalled, MaxDrawNumber)
	r.sink.Broadcast(r.cfg.Code, ev)
	if r.journal != nil {
		r.journal.NumbersDrawn(r.cfg.Code, ev.CalledNumbers)
	}
	if exhausted {
		r.finishCompletion("draw pool exhausted")
	}
}

// MarkNumber records a number on a player's marked set. Only numbers already
// drawn in this room can be marked; marking is idempotent.
func (r *Room) MarkNumber(playerID string, n int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.players[playerID]
	if !ok {
		return fmt.Errorf("%w: player %s is not in room %s", ErrNotFound, playerID, r.cfg.Code)
	}
	if !r.calledSet[n] {
		return fmt.Errorf("%w: number %d has not been called", ErrValidation, n)
	}
	p.Marked[n] = true
	return nil
}

// Claim adjudicates a prize claim. Verification and the unclaimed check-and-
// set happen under the room lock, so for any interleaving of concurrent
// claims on the same prize exactly one wins; every other submitter gets a
// conflict even if their own pattern was valid. The claimant is always sent a
// claim-result; prize-claimed is broadcast only on success.
func (r *Room) Claim(playerID string, pt PrizeType, ticketID string, markedNumbers []int) (*PrizeClaim, error) {
	claim, completed, err := r.adjudicate(playerID, pt, ticketID, markedNumbers)
	if err != nil {
		r.log.Infof("[Room %s] claim %s by %s rejected: %v", r.cfg.Code, pt, playerID, err)
		r.sink.Notify(r.cfg.Code, playerID, ClaimResultEvent{
			Type:  EventClaimResult,
			Prize: pt,
			Error: err.Error(),
		})
		return nil, err
	}

	r.log.Infof("[Room %s] prize %s claimed by %s (amount=%s)", r.cfg.Code, pt, playerID, claim.Amount)
	amount := claim.Amount
	r.sink.Notify(r.cfg.Code, playerID, ClaimResultEvent{
		Type:    EventClaimResult,
		Success: true,
		Prize:   pt,
		Amount:  &amount,
	})
	r.sink.Broadcast(r.cfg.Code, PrizeClaimedEvent{
		Type:     EventPrizeClaimed,
		Prize:    pt,
		Winner:   claim.PlayerName,
		TicketID: claim.TicketID,
	})
	if r.journal != nil {
		r.journal.PrizeClaimed(r.cfg.Code, *claim)
	}

	if completed {
		r.finishCompletion("all prizes claimed")
	}
	return claim, nil
}

// adjudicate performs the locked portion of Claim. The second return value
// reports whether this claim completed the room.
func (r *Room) adjudicate(playerID string, pt PrizeType, ticketID string, markedNumbers []int) (*PrizeClaim, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state != StateActive {
		return nil, false, fmt.Errorf("%w: room %s is not accepting claims", ErrConflict, r.cfg.Code)
	}
	p, ok := r.players[playerID]
	if !ok {
		return nil, false, fmt.Errorf("%w: player %s is not in room %s", ErrNotFound, playerID, r.cfg.Code)
	}
	var ticket *Ticket
	for i := range p.Tickets {
		if p.Tickets[i].ID == ticketID {
			ticket = &p.Tickets[i]
			break
		}
	}
	if ticket == nil {
		return nil, false, fmt.Errorf("%w: ticket %s does not belong to player %s", ErrNotFound, ticketID, playerID)
	}

	if err := VerifyClaim(pt, *ticket, markedNumbers, r.calledSet); err != nil {
		return nil, false, err
	}

	// Atomic check-and-set: first verified claim to reach this point wins.
	if _, taken := r.claims[pt]; taken {
		return nil, false, fmt.Errorf("%w: prize %s already claimed", ErrConflict, pt)
	}

	amount, err := r.ledger.PrizeAmount(pt)
	if err != nil {
		return nil, false, err
	}
	if err := r.ledger.RecordPayout(amount); err != nil {
		return nil, false, err
	}

	claim := &PrizeClaim{
		Prize:      pt,
		PlayerID:   playerID,
		PlayerName: p.Name,
		TicketID:   ticketID,
		Amount:     amount,
		ClaimedAt:  r.clock.Now(),
	}
	r.claims[pt] = claim
	for _, n := range markedNumbers {
		p.Marked[n] = true
	}

	completed := false
	if len(r.claims) == len(PrizeTypes) {
		r.completeLocked("all prizes claimed")
		completed = true
	}
	return claim, completed, nil
}

// completeLocked flips the room to its terminal state and releases the draw
// timer. Safe to call more than once; only the first call does anything.
func (r *Room) completeLocked(reason string) {
	if r.state == StateCompleted {
		return
	}
	r.state = StateCompleted
	r.callerActive = false
	if r.drawTimer != nil {
		r.drawTimer.Stop()
		r.drawTimer = nil
	}
	r.log.Infof("[Room %s] completed: %s", r.cfg.Code, reason)
}

// finishCompletion runs the out-of-lock tail of completion: the game-ended
// broadcast, settlement dispatch, and the registry's eviction hook.
func (r *Room) finishCompletion(reason string) {
	r.mu.Lock()
	ev := GameEndedEvent{
		Type:          EventGameEnded,
		Reason:        reason,
		Prizes:        r.prizeTableLocked(),
		CalledNumbers: append([]int(nil), r.called...),
	}
	r.mu.Unlock()

	r.sink.Broadcast(r.cfg.Code, ev)
	go r.settle()
	if r.onComplete != nil {
		r.onComplete(r.cfg.Code)
	}
}

// settle pays the owner commission exactly once. Runs outside the room lock
// so the payout call never blocks room traffic.
func (r *Room) settle() {
	commission, ok := r.ledger.Settle()
	if !ok {
		return
	}
	r.log.Infof("[Room %s] settling: owner commission %s to %s", r.cfg.Code, commission, r.cfg.OwnerID)
	if r.settler != nil {
		r.settler.PayCommission(r.cfg.Code, r.cfg.OwnerID, commission)
	}
	if r.journal != nil {
		r.journal.RoomSettled(r.cfg.Code, r.ledger.Snapshot())
	}
}

// Shutdown stops the caller and completes the room, used on process exit or
// when a room's timer resources must be reclaimed early.
func (r *Room) Shutdown() {
	r.mu.Lock()
	already := r.state == StateCompleted
	if !already {
		r.completeLocked("shutdown")
	}
	r.mu.Unlock()
	if !already {
		r.finishCompletion("shutdown")
	}
}

// prizeTableLocked renders the five-slot prize table.
func (r *Room) prizeTableLocked() []PrizeSlot {
	slots := make([]PrizeSlot, 0, len(PrizeTypes))
	for _, pt := range PrizeTypes {
		slot := PrizeSlot{Prize: pt}
		if c, ok := r.claims[pt]; ok {
			slot.Claimed = true
			slot.Winner = c.PlayerName
			slot.TicketID = c.TicketID
			slot.Amount = c.Amount
		}
		slots = append(slots, slot)
	}
	return slots
}

func (r *Room) stateEventLocked() GameStateEvent {
	return GameStateEvent{
		Type:          EventGameState,
		Code:          r.cfg.Code,
		State:         r.state,
		CalledNumbers: append([]int(nil), r.called...),
		Prizes:        r.prizeTableLocked(),
		MemberCount:   len(r.players),
		TicketsSold:   r.ticketsSold,
	}
}

// RoomStatus is the REST snapshot of a room.
type RoomStatus struct {
	Code          string          `json:"code"`
	Title         string          `json:"title"`
	State         LifecycleState  `json:"state"`
	TicketPrice   decimal.Decimal `json:"ticketPrice"`
	MinTickets    int             `json:"minTickets"`
	MaxTickets    int             `json:"maxTickets"`
	TicketsSold   int             `json:"ticketsSold"`
	MemberCount   int             `json:"memberCount"`
	CalledNumbers []int           `json:"calledNumbers"`
	Prizes        []PrizeSlot     `json:"prizes"`
	Ledger        LedgerSnapshot  `json:"ledger"`
}

// Status returns a point-in-time snapshot for the REST surface.
func (r *Room) Status() RoomStatus {
	r.mu.Lock()
	st := RoomStatus{
		Code:          r.cfg.Code,
		Title:         r.cfg.Title,
		State:         r.state,
		TicketPrice:   r.cfg.TicketPrice,
		MinTickets:    r.cfg.MinTickets,
		MaxTickets:    r.cfg.MaxTickets,
		TicketsSold:   r.ticketsSold,
		MemberCount:   len(r.players),
		CalledNumbers: append([]int(nil), r.called...),
		Prizes:        r.prizeTableLocked(),
	}
	r.mu.Unlock()
	st.Ledger = r.ledger.Snapshot()
	return st
}
