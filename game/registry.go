package game

import (
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/coder/quartz"
	"go.uber.org/zap"
)

// DefaultEvictDelay is how long a completed room stays resolvable before the
// registry drops it.
const DefaultEvictDelay = 5 * time.Minute

// Unambiguous uppercase alphanumerics for room codes (no 0/O/1/I).
const codeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

const codeLength = 6

// Registry is the process-wide room-code → room mapping. It only guards its
// own map; room state has its own lock, so operations on different rooms
// never contend here beyond insert/lookup/delete.
type Registry struct {
	mu    sync.RWMutex
	rooms map[string]*Room

	sink         EventSink
	journal      Journal
	settler      Settler
	clock        quartz.Clock
	rng          *rand.Rand
	log          *zap.SugaredLogger
	evictDelay   time.Duration
	drawInterval time.Duration
}

// RegistryOptions configure a registry. Zero values fall back to real
// implementations and defaults.
type RegistryOptions struct {
	Sink         EventSink
	Journal      Journal
	Settler      Settler
	Clock        quartz.Clock
	Rand         *rand.Rand
	Log          *zap.SugaredLogger
	EvictDelay   time.Duration
	DrawInterval time.Duration
}

func NewRegistry(opts RegistryOptions) *Registry {
	if opts.Clock == nil {
		opts.Clock = quartz.NewReal()
	}
	if opts.Rand == nil {
		opts.Rand = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if opts.Log == nil {
		opts.Log = zap.NewNop().Sugar()
	}
	if opts.EvictDelay <= 0 {
		opts.EvictDelay = DefaultEvictDelay
	}
	if opts.DrawInterval <= 0 {
		opts.DrawInterval = DefaultDrawInterval
	}
	return &Registry{
		rooms:        make(map[string]*Room),
		sink:         opts.Sink,
		journal:      opts.Journal,
		settler:      opts.Settler,
		clock:        opts.Clock,
		rng:          opts.Rand,
		log:          opts.Log,
		evictDelay:   opts.EvictDelay,
		drawInterval: opts.DrawInterval,
	}
}

// Create builds a room from cfg and registers it. An empty code is filled in
// with a fresh 6-character one; a taken code is a conflict.
func (g *Registry) Create(cfg RoomConfig) (*Room, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if cfg.Code == "" {
		cfg.Code = g.freeCodeLocked()
	} else if _, exists := g.rooms[cfg.Code]; exists {
		return nil, fmt.Errorf("%w: room code %s already in use", ErrConflict, cfg.Code)
	}
	if cfg.DrawInterval <= 0 {
		cfg.DrawInterval = g.drawInterval
	}

	room, err := NewRoom(cfg, RoomDeps{
		Sink:       g.sink,
		Journal:    g.journal,
		Settler:    g.settler,
		Clock:      g.clock,
		Rand:       rand.New(rand.NewSource(g.rng.Int63())),
		Log:        g.log,
		OnComplete: g.scheduleEvict,
	})
	if err != nil {
		return nil, err
	}
	g.rooms[cfg.Code] = room

	g.log.Infof("[Registry] room %s created (price=%s min=%d max=%d)",
		cfg.Code, cfg.TicketPrice, cfg.MinTickets, cfg.MaxTickets)
	if g.journal != nil {
		g.journal.RoomCreated(cfg)
	}
	return room, nil
}

// Get resolves a room code.
func (g *Registry) Get(code string) (*Room, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	room, ok := g.rooms[code]
	if !ok {
		return nil, fmt.Errorf("%w: unknown room code %s", ErrNotFound, code)
	}
	return room, nil
}

// Rooms returns every registered room.
func (g *Registry) Rooms() []*Room {
	g.mu.RLock()
	defer g.mu.RUnlock()
	rooms := make([]*Room, 0, len(g.rooms))
	for _, r := range g.rooms {
		rooms = append(rooms, r)
	}
	return rooms
}

// Close shuts every room down, releasing their timers. Used on process exit.
func (g *Registry) Close() {
	for _, room := range g.Rooms() {
		room.Shutdown()
	}
}

// scheduleEvict drops a completed room from the map after the eviction delay.
func (g *Registry) scheduleEvict(code string) {
	g.clock.AfterFunc(g.evictDelay, func() {
		g.mu.Lock()
		delete(g.rooms, code)
		g.mu.Unlock()
		g.log.Infof("[Registry] room %s evicted", code)
	})
}

// freeCodeLocked generates a code not currently in use.
func (g *Registry) freeCodeLocked() string {
	for {
		buf := make([]byte, codeLength)
		for i := range buf {
			buf[i] = codeAlphabet[g.rng.Intn(len(codeAlphabet))]
		}
		code := string(buf)
		if _, taken := g.rooms[code]; !taken {
			return code
		}
	}
}
