package quiz

import (
	"fmt"
	"math/rand"
	"sync"
	"time"

	"edu-arena/internal/domain"
	"edu-arena/internal/notify"
)

// Phase is the per-level progression state.
type Phase string

const (
	PhaseAwaiting Phase = "awaiting-selection"
	PhaseLocked   Phase = "selection-locked"
	PhaseRevealed Phase = "result-revealed"
	PhaseFinished Phase = "finished"
)

// Outcome is how a finished game ended.
type Outcome string

const (
	OutcomeVictory Outcome = "victory"
	OutcomeDefeat  Outcome = "defeat"
	OutcomeTimeout Outcome = "timeout"
	OutcomeExited  Outcome = "exited"
)

// Lifeline is a single-use aid.
type Lifeline string

const (
	LifelineEliminateTwo Lifeline = "eliminate-two"
	LifelinePollAudience Lifeline = "poll-audience"
	LifelinePhoneFriend  Lifeline = "phone-a-friend"
)

// Lifelines lists every lifeline in display order.
var Lifelines = []Lifeline{LifelineEliminateTwo, LifelinePollAudience, LifelinePhoneFriend}

const (
	DefaultTimePerQuestion = 45 * time.Second
	DefaultRevealDelay     = 2 * time.Second
	DefaultAdvanceDelay    = 1500 * time.Millisecond
	DefaultDefeatDelay     = 2 * time.Second

	friendCorrectThreshold = 0.15
)

// Rand is the random source used by lifelines. *rand.Rand satisfies it.
type Rand interface {
	Intn(n int) int
	Float64() float64
}

// Options tunes an Engine. Zero values fall back to the defaults.
type Options struct {
	Ladder          []domain.Tier
	TimePerQuestion time.Duration
	RevealDelay     time.Duration
	AdvanceDelay    time.Duration
	DefeatDelay     time.Duration
	Rand            Rand
	Clock           Clock
	Notifier        notify.Notifier
	// OnFinish runs once, outside the engine lock, when the game ends.
	OnFinish func(Snapshot)
}

// Snapshot is a copy of the engine state.
type Snapshot struct {
	Level     int               `json:"level"`
	Levels    int               `json:"levels"`
	Question  domain.Question   `json:"question"`
	Phase     Phase             `json:"phase"`
	Remaining int               `json:"remaining"`
	Selected  int               `json:"selected"`
	Revealed  bool              `json:"revealed"`
	Correct   bool              `json:"correct"`
	Disabled  []int             `json:"disabled,omitempty"`
	Poll      []int             `json:"poll,omitempty"`
	Lifelines map[Lifeline]bool `json:"lifelines"`
	Outcome   Outcome           `json:"outcome,omitempty"`
	Payout    int               `json:"payout"`
	Ladder    []domain.Tier     `json:"ladder"`
}

// LifelineResult reports the effect of a lifeline.
type LifelineResult struct {
	Lifeline   Lifeline `json:"lifeline"`
	Disabled   []int    `json:"disabled,omitempty"`
	Poll       []int    `json:"poll,omitempty"`
	Suggestion int      `json:"suggestion"`
}

// Engine drives one play-through of a question ladder.
type Engine struct {
	opts      Options
	questions []domain.Question
	ladder    []domain.Tier
	seconds   int

	mu            sync.Mutex
	started       bool
	closed        bool
	gen           uint64
	timer         Timer
	level         int
	phase         Phase
	remaining     int
	selected      int
	revealed      bool
	correct       bool
	disabled      [4]bool
	poll          []int
	used          map[Lifeline]bool
	outcome       Outcome
	payout        int
	finishPending bool
	subscribers   map[chan Snapshot]struct{}
}

// NewEngine builds an engine over the first min(15, len(questions)) questions.
func NewEngine(questions []domain.Question, opts Options) (*Engine, error) {
	if len(opts.Ladder) == 0 {
		opts.Ladder = DefaultLadder()
	}
	if opts.TimePerQuestion <= 0 {
		opts.TimePerQuestion = DefaultTimePerQuestion
	}
	if opts.RevealDelay <= 0 {
		opts.RevealDelay = DefaultRevealDelay
	}
	if opts.AdvanceDelay <= 0 {
		opts.AdvanceDelay = DefaultAdvanceDelay
	}
	if opts.DefeatDelay <= 0 {
		opts.DefeatDelay = DefaultDefeatDelay
	}
	if opts.Rand == nil {
		opts.Rand = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if opts.Clock == nil {
		opts.Clock = RealClock()
	}

	ladder := LadderFor(opts.Ladder, len(questions))
	if len(ladder) == 0 {
		return nil, domain.ErrNoQuestions
	}
	picked := make([]domain.Question, len(ladder))
	copy(picked, questions[:len(ladder)])
	for _, q := range picked {
		if len(q.Options) != 4 || q.CorrectIndex < 0 || q.CorrectIndex > 3 {
			return nil, fmt.Errorf("question %q: %w", q.ID, domain.ErrInvalidOption)
		}
	}

	seconds := int(opts.TimePerQuestion / time.Second)
	if seconds < 1 {
		seconds = 1
	}

	return &Engine{
		opts:        opts,
		questions:   picked,
		ladder:      ladder,
		seconds:     seconds,
		phase:       PhaseAwaiting,
		selected:    -1,
		remaining:   seconds,
		used:        make(map[Lifeline]bool, len(Lifelines)),
		subscribers: make(map[chan Snapshot]struct{}),
	}, nil
}

// Start begins the countdown of the first level. Later calls are no-ops.
func (e *Engine) Start() {
	e.mu.Lock()
	if e.started || e.closed {
		e.mu.Unlock()
		return
	}
	e.started = true
	e.beginLevelLocked()
	e.broadcastLocked()
	e.unlockAndReport()
}

// Select locks in option i and schedules the reveal.
func (e *Engine) Select(i int) error {
	e.mu.Lock()
	if err := e.commandableLocked(); err != nil {
		e.mu.Unlock()
		return err
	}
	if i < 0 || i >= len(e.disabled) {
		e.mu.Unlock()
		return domain.ErrInvalidOption
	}
	if e.disabled[i] {
		e.mu.Unlock()
		return domain.ErrOptionDisabled
	}

	e.selected = i
	e.phase = PhaseLocked
	e.scheduleLocked(e.opts.RevealDelay, e.revealLocked)
	e.broadcastLocked()
	e.unlockAndReport()
	return nil
}

// UseLifeline dispatches to the named lifeline.
func (e *Engine) UseLifeline(l Lifeline) (LifelineResult, error) {
	switch l {
	case LifelineEliminateTwo:
		disabled, err := e.EliminateTwo()
		return LifelineResult{Lifeline: l, Disabled: disabled, Suggestion: -1}, err
	case LifelinePollAudience:
		poll, err := e.PollAudience()
		return LifelineResult{Lifeline: l, Poll: poll, Suggestion: -1}, err
	case LifelinePhoneFriend:
		suggestion, err := e.PhoneFriend()
		return LifelineResult{Lifeline: l, Suggestion: suggestion}, err
	}
	return LifelineResult{}, domain.ErrUnknownLifeline
}

// EliminateTwo disables two of the three wrong options, chosen at random.
func (e *Engine) EliminateTwo() ([]int, error) {
	e.mu.Lock()
	if err := e.consumeLocked(LifelineEliminateTwo); err != nil {
		e.mu.Unlock()
		return nil, err
	}

	wrong := e.wrongOptionsLocked()
	k := e.opts.Rand.Intn(len(wrong))
	wrong = append(wrong[:k], wrong[k+1:]...)
	for _, i := range wrong {
		e.disabled[i] = true
	}

	e.broadcastLocked()
	e.unlockAndReport()
	return wrong, nil
}

// PollAudience synthesizes a cosmetic vote distribution summing to 100.
// The correct option takes a share in [45,85); the rest is split by
// sequential random partition with the last wrong option taking the remainder.
func (e *Engine) PollAudience() ([]int, error) {
	e.mu.Lock()
	if err := e.consumeLocked(LifelinePollAudience); err != nil {
		e.mu.Unlock()
		return nil, err
	}

	poll := make([]int, 4)
	correct := e.questions[e.level].CorrectIndex
	poll[correct] = e.opts.Rand.Intn(40) + 45
	left := 100 - poll[correct]

	wrong := e.wrongOptionsLocked()
	for n, i := range wrong {
		if n == len(wrong)-1 {
			poll[i] = left
			break
		}
		share := 0
		if left > 0 {
			share = e.opts.Rand.Intn(left)
		}
		poll[i] = share
		left -= share
	}
	e.poll = poll

	out := append([]int(nil), poll...)
	e.broadcastLocked()
	e.unlockAndReport()
	return out, nil
}

// PhoneFriend suggests the correct option 85% of the time, otherwise a random
// wrong one. The suggestion is delivered through the notifier.
func (e *Engine) PhoneFriend() (int, error) {
	e.mu.Lock()
	if err := e.consumeLocked(LifelinePhoneFriend); err != nil {
		e.mu.Unlock()
		return -1, err
	}

	q := e.questions[e.level]
	suggestion := q.CorrectIndex
	if e.opts.Rand.Float64() <= friendCorrectThreshold {
		wrong := e.wrongOptionsLocked()
		suggestion = wrong[e.opts.Rand.Intn(len(wrong))]
	}
	text := q.Options[suggestion]

	e.broadcastLocked()
	e.unlockAndReport()

	notify.Info(e.opts.Notifier, fmt.Sprintf("Your friend: not entirely sure, but I think it's %q", text))
	return suggestion, nil
}

// Exit ends the game at the player's request. No payout is recorded.
func (e *Engine) Exit(confirmed bool) error {
	if !confirmed {
		return domain.ErrExitNotConfirmed
	}
	e.mu.Lock()
	if e.closed || e.phase == PhaseFinished {
		e.mu.Unlock()
		return domain.ErrGameOver
	}
	e.finishLocked(OutcomeExited, 0)
	e.broadcastLocked()
	e.unlockAndReport()
	return nil
}

// Close cancels pending timers and releases subscribers.
func (e *Engine) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return
	}
	e.closed = true
	e.stopTimerLocked()
	e.gen++
	for ch := range e.subscribers {
		delete(e.subscribers, ch)
		close(ch)
	}
}

// Snapshot returns the current state.
func (e *Engine) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.snapshotLocked()
}

// Subscribe returns a channel of snapshots. Slow readers only see the latest
// state. The caller must invoke cancel.
func (e *Engine) Subscribe() (<-chan Snapshot, func()) {
	ch := make(chan Snapshot, 8)

	e.mu.Lock()
	ch <- e.snapshotLocked()
	if e.closed {
		close(ch)
		e.mu.Unlock()
		return ch, func() {}
	}
	e.subscribers[ch] = struct{}{}
	e.mu.Unlock()

	cancel := func() {
		e.mu.Lock()
		if _, ok := e.subscribers[ch]; ok {
			delete(e.subscribers, ch)
			close(ch)
		}
		e.mu.Unlock()
	}
	return ch, cancel
}

func (e *Engine) beginLevelLocked() {
	e.phase = PhaseAwaiting
	e.remaining = e.seconds
	e.selected = -1
	e.revealed = false
	e.correct = false
	e.disabled = [4]bool{}
	e.poll = nil
	e.scheduleLocked(time.Second, e.tickLocked)
}

func (e *Engine) tickLocked() {
	e.remaining--
	if e.remaining <= 0 {
		e.remaining = 0
		e.finishLocked(OutcomeTimeout, SafeHavenPayout(e.ladder, e.level))
		return
	}
	e.scheduleLocked(time.Second, e.tickLocked)
}

func (e *Engine) revealLocked() {
	e.phase = PhaseRevealed
	e.revealed = true
	e.correct = e.selected == e.questions[e.level].CorrectIndex
	if e.correct {
		e.scheduleLocked(e.opts.AdvanceDelay, e.advanceLocked)
		return
	}
	e.scheduleLocked(e.opts.DefeatDelay, func() {
		e.finishLocked(OutcomeDefeat, SafeHavenPayout(e.ladder, e.level))
	})
}

func (e *Engine) advanceLocked() {
	if e.level+1 >= len(e.questions) {
		e.finishLocked(OutcomeVictory, e.ladder[len(e.ladder)-1].Value)
		return
	}
	e.level++
	e.beginLevelLocked()
}

func (e *Engine) finishLocked(outcome Outcome, payout int) {
	e.stopTimerLocked()
	e.gen++
	e.phase = PhaseFinished
	e.outcome = outcome
	e.payout = payout
	e.finishPending = true
}

// scheduleLocked replaces the pending timer. The callback is dropped if the
// engine moved on (generation changed) or was closed before it fired.
func (e *Engine) scheduleLocked(d time.Duration, step func()) {
	e.stopTimerLocked()
	e.gen++
	gen := e.gen
	e.timer = e.opts.Clock.AfterFunc(d, func() {
		e.mu.Lock()
		if e.closed || gen != e.gen {
			e.mu.Unlock()
			return
		}
		e.timer = nil
		step()
		e.broadcastLocked()
		e.unlockAndReport()
	})
}

func (e *Engine) stopTimerLocked() {
	if e.timer != nil {
		e.timer.Stop()
		e.timer = nil
	}
}

func (e *Engine) commandableLocked() error {
	if e.closed || e.phase == PhaseFinished {
		return domain.ErrGameOver
	}
	if !e.started || e.phase != PhaseAwaiting {
		return domain.ErrNotAwaiting
	}
	return nil
}

func (e *Engine) consumeLocked(l Lifeline) error {
	if err := e.commandableLocked(); err != nil {
		return err
	}
	if e.used[l] {
		return domain.ErrLifelineUsed
	}
	e.used[l] = true
	return nil
}

func (e *Engine) wrongOptionsLocked() []int {
	correct := e.questions[e.level].CorrectIndex
	wrong := make([]int, 0, 3)
	for i := range e.disabled {
		if i != correct {
			wrong = append(wrong, i)
		}
	}
	return wrong
}

// unlockAndReport releases the lock and runs OnFinish if the game just ended.
func (e *Engine) unlockAndReport() {
	var finished *Snapshot
	if e.finishPending {
		e.finishPending = false
		snap := e.snapshotLocked()
		finished = &snap
	}
	e.mu.Unlock()
	if finished != nil && e.opts.OnFinish != nil {
		e.opts.OnFinish(*finished)
	}
}

func (e *Engine) broadcastLocked() {
	snap := e.snapshotLocked()
	for ch := range e.subscribers {
		select {
		case ch <- snap:
		default:
			select {
			case <-ch:
			default:
			}
			ch <- snap
		}
	}
}

func (e *Engine) snapshotLocked() Snapshot {
	var disabled []int
	for i, off := range e.disabled {
		if off {
			disabled = append(disabled, i)
		}
	}
	lifelines := make(map[Lifeline]bool, len(Lifelines))
	for _, l := range Lifelines {
		lifelines[l] = !e.used[l]
	}
	ladder := make([]domain.Tier, len(e.ladder))
	copy(ladder, e.ladder)

	return Snapshot{
		Level:     e.level,
		Levels:    len(e.questions),
		Question:  e.questions[e.level],
		Phase:     e.phase,
		Remaining: e.remaining,
		Selected:  e.selected,
		Revealed:  e.revealed,
		Correct:   e.correct,
		Disabled:  disabled,
		Poll:      append([]int(nil), e.poll...),
		Lifelines: lifelines,
		Outcome:   e.outcome,
		Payout:    e.payout,
		Ladder:    ladder,
	}
}
