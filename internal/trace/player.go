package trace

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/clearqueue/clearqueue/internal/clock"
	"github.com/clearqueue/clearqueue/internal/model"
)

// DefaultReplayInterval is the pace of the replay animation.
const DefaultReplayInterval = 800 * time.Millisecond

// State is the player's lifecycle position.
type State int

const (
	// StateIdle means no ticket is selected and no trace is held.
	StateIdle State = iota
	// StateLoading means a fetch (or synthesis) for the selected ticket is
	// in flight.
	StateLoading
	// StateReady means a trace is held and the replay is not running.
	StateReady
	// StateReplaying means the replay animation is advancing the active
	// node pointer.
	StateReplaying
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateLoading:
		return "loading"
	case StateReady:
		return "ready"
	case StateReplaying:
		return "replaying"
	}
	return "unknown"
}

// Fetcher retrieves the real trace for a ticket from the trace API.
type Fetcher interface {
	FetchTrace(ctx context.Context, ticketID string) ([]model.DecisionStep, error)
}

// PlayerConfig holds the dependencies for a Player. Fetcher is required;
// everything else has a default.
type PlayerConfig struct {
	Fetcher        Fetcher
	Clock          clock.Clock
	Logger         *slog.Logger
	ReplayInterval time.Duration

	// OnChange is invoked (outside the player's lock) after every state
	// change: load transitions, replay ticks, expansion toggles.
	OnChange func()
}

// Player produces and presents the decision trace for exactly one ticket at
// a time and runs the cancellable replay animation over it.
//
// Trace fetch failures are never surfaced: any error, malformed response, or
// empty step list falls back to synthesis, so the trace pane never goes
// blank. A load generation counter guards against stale responses — a fetch
// that completes after the selection has moved on is discarded silently.
type Player struct {
	fetcher  Fetcher
	clk      clock.Clock
	logger   *slog.Logger
	interval time.Duration
	onChange func()

	mu         sync.Mutex
	state      State
	ticket     model.Ticket
	hasTicket  bool
	steps      []model.DecisionStep
	active     int
	expanded   map[int]bool
	generation uint64
	replayStop chan struct{} // non-nil while the replay goroutine runs
}

// NewPlayer creates a Player in the idle state.
func NewPlayer(cfg PlayerConfig) *Player {
	clk := cfg.Clock
	if clk == nil {
		clk = clock.Real()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	interval := cfg.ReplayInterval
	if interval <= 0 {
		interval = DefaultReplayInterval
	}
	onChange := cfg.OnChange
	if onChange == nil {
		onChange = func() {}
	}
	return &Player{
		fetcher:  cfg.Fetcher,
		clk:      clk,
		logger:   logger,
		interval: interval,
		onChange: onChange,
		active:   -1,
		expanded: map[int]bool{},
	}
}

// Load selects a ticket and blocks until its trace is in place. Selecting a
// new ticket from any state cancels a running replay immediately and marks
// any in-flight fetch stale; the stale fetch's result is discarded when it
// arrives. A fresh trace is built on every call — traces are never merged
// with a previous one.
func (p *Player) Load(ctx context.Context, t model.Ticket) {
	p.mu.Lock()
	p.generation++
	gen := p.generation
	p.stopReplayLocked()
	p.state = StateLoading
	p.ticket = t
	p.hasTicket = true
	p.steps = nil
	p.active = -1
	p.expanded = map[int]bool{}
	p.mu.Unlock()
	p.onChange()

	steps := p.fetchOrSynthesize(ctx, t)

	p.mu.Lock()
	if p.generation != gen {
		// Selection moved on while the fetch was in flight.
		p.mu.Unlock()
		return
	}
	p.steps = steps
	p.state = StateReady
	p.mu.Unlock()
	p.onChange()
}

func (p *Player) fetchOrSynthesize(ctx context.Context, t model.Ticket) []model.DecisionStep {
	steps, err := p.fetcher.FetchTrace(ctx, t.ID)
	switch {
	case err != nil:
		p.logger.Debug("trace fetch failed, synthesizing", "ticket_id", t.ID, "error", err)
	case len(steps) == 0:
		p.logger.Debug("trace fetch returned no steps, synthesizing", "ticket_id", t.ID)
	case model.ValidateTrace(steps) != nil:
		p.logger.Debug("trace fetch returned malformed steps, synthesizing", "ticket_id", t.ID)
	default:
		return steps
	}
	return Synthesize(p.clk.Now(), t)
}

// Clear deselects the ticket, cancels any replay, and discards the trace.
func (p *Player) Clear() {
	p.mu.Lock()
	p.generation++
	p.stopReplayLocked()
	p.state = StateIdle
	p.ticket = model.Ticket{}
	p.hasTicket = false
	p.steps = nil
	p.active = -1
	p.expanded = map[int]bool{}
	p.mu.Unlock()
	p.onChange()
}

// StartReplay begins the animation: the active node pointer moves to the
// first step immediately, then advances one step per interval. On reaching
// the last step the replay stops by itself and the player returns to Ready
// with the pointer left on the last index. Valid only in Ready.
func (p *Player) StartReplay() error {
	p.mu.Lock()
	if p.state != StateReady {
		state := p.state
		p.mu.Unlock()
		return &StateError{Op: "start replay", State: state}
	}
	if len(p.steps) == 0 {
		p.mu.Unlock()
		return &StateError{Op: "start replay", State: StateReady}
	}

	p.state = StateReplaying
	p.active = 0
	stop := make(chan struct{})
	p.replayStop = stop
	done := len(p.steps) == 1
	if done {
		// Single-step trace: nothing to advance through.
		p.state = StateReady
		p.replayStop = nil
	}
	p.mu.Unlock()
	p.onChange()
	if done {
		return nil
	}

	ticker := p.clk.NewTicker(p.interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				if p.advanceReplay(stop) {
					return
				}
			}
		}
	}()
	return nil
}

// advanceReplay moves the pointer one step. Returns true when the replay
// goroutine should exit (finished or superseded).
func (p *Player) advanceReplay(stop chan struct{}) bool {
	p.mu.Lock()
	if p.state != StateReplaying || p.replayStop != stop {
		p.mu.Unlock()
		return true
	}
	p.active++
	finished := p.active >= len(p.steps)-1
	if finished {
		p.active = len(p.steps) - 1
		p.state = StateReady
		p.replayStop = nil
	}
	p.mu.Unlock()
	p.onChange()
	return finished
}

// StopReplay cancels a running replay and returns the player to Ready.
// Idempotent: stopping an already-stopped player is a no-op.
func (p *Player) StopReplay() {
	p.mu.Lock()
	changed := p.state == StateReplaying || p.replayStop != nil
	p.stopReplayLocked()
	p.mu.Unlock()
	if changed {
		p.onChange()
	}
}

// stopReplayLocked cancels the replay goroutine and restores Ready if the
// animation was running. Caller holds p.mu.
func (p *Player) stopReplayLocked() {
	if p.replayStop != nil {
		close(p.replayStop)
		p.replayStop = nil
	}
	if p.state == StateReplaying {
		p.state = StateReady
	}
}

// ToggleStep flips the expansion flag for one step. Pure presentation state:
// it is independent of the replay and never touches trace content.
// Out-of-range indexes are ignored.
func (p *Player) ToggleStep(index int) {
	p.mu.Lock()
	if index < 0 || index >= len(p.steps) {
		p.mu.Unlock()
		return
	}
	p.expanded[index] = !p.expanded[index]
	p.mu.Unlock()
	p.onChange()
}

// Snapshot is a consistent copy of the player's presentation state.
type Snapshot struct {
	State       State
	Ticket      model.Ticket
	HasTicket   bool
	Steps       []model.DecisionStep
	ActiveIndex int
	Expanded    map[int]bool
}

// Snapshot returns a copy of the current state safe to read without holding
// any lock.
func (p *Player) Snapshot() Snapshot {
	p.mu.Lock()
	defer p.mu.Unlock()

	steps := make([]model.DecisionStep, len(p.steps))
	copy(steps, p.steps)
	expanded := make(map[int]bool, len(p.expanded))
	for i, v := range p.expanded {
		expanded[i] = v
	}
	return Snapshot{
		State:       p.state,
		Ticket:      p.ticket,
		HasTicket:   p.hasTicket,
		Steps:       steps,
		ActiveIndex: p.active,
		Expanded:    expanded,
	}
}

// StateError reports an operation attempted in a state that does not
// permit it.
type StateError struct {
	Op    string
	State State
}

func (e *StateError) Error() string {
	return "trace: cannot " + e.Op + " in state " + e.State.String()
}
