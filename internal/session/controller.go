package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/ppiankov/rubriccheck/internal/model"
)

var (
	// ErrCoolingDown is returned by Check while a quota cooldown runs
	ErrCoolingDown = errors.New("quota cooldown in progress")

	// ErrIncomplete is returned by Check without a rubric or submission
	ErrIncomplete = errors.New("rubric and submission are both required")
)

// Grader is the part of the grading orchestrator the controller drives
type Grader interface {
	Analyze(ctx context.Context, req model.GradeRequest) (*model.AnalysisResult, error)
}

// Options tunes a Controller
type Options struct {
	// Cooldown is how long a quota error blocks new checks
	Cooldown time.Duration

	// Now replaces the wall clock in tests
	Now func() time.Time
}

// Controller owns the interactive session state. Every change goes
// through Dispatch; readers get copies.
type Controller struct {
	mu       sync.Mutex
	state    State
	version  uint64
	saveMu   sync.Mutex
	saved    uint64
	grader   Grader
	drafts   *DraftStore
	opts     Options
	inflight sync.WaitGroup
	logger   zerolog.Logger
}

// NewController creates a controller. drafts may be nil.
func NewController(grader Grader, drafts *DraftStore, opts Options, logger zerolog.Logger) *Controller {
	if opts.Cooldown <= 0 {
		opts.Cooldown = 60 * time.Second
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Controller{
		grader: grader,
		drafts: drafts,
		opts:   opts,
		logger: logger.With().Str("component", "session").Logger(),
	}
}

// Snapshot returns a copy of the current state
func (c *Controller) Snapshot() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.clone()
}

// CooldownRemaining is the time left before Check is allowed again
func (c *Controller) CooldownRemaining() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.CooldownRemaining(c.opts.Now())
}

// Dispatch applies an action and returns the new state. Input changes are
// saved as a draft; a reset discards it.
func (c *Controller) Dispatch(a Action) (State, error) {
	c.mu.Lock()
	next := c.state.clone()
	if err := a.apply(&next, env{now: c.opts.Now(), cooldown: c.opts.Cooldown}); err != nil {
		c.mu.Unlock()
		return c.Snapshot(), err
	}
	c.state = next
	c.version++
	version := c.version
	snapshot := c.state.clone()
	c.mu.Unlock()

	if c.drafts != nil && (changesInputs(a) || isReset(a)) {
		c.persist(a, snapshot.Inputs, version)
	}
	return snapshot, nil
}

// persist writes or discards the draft for the state at version. A write
// for a version older than the last one persisted is dropped.
func (c *Controller) persist(a Action, inputs model.Draft, version uint64) {
	c.saveMu.Lock()
	defer c.saveMu.Unlock()
	if version < c.saved {
		return
	}
	c.saved = version

	if isReset(a) {
		if err := c.drafts.Discard(); err != nil {
			c.logger.Warn().Err(err).Msg("failed to discard draft")
		}
		return
	}
	c.drafts.Save(inputs)
}

func isReset(a Action) bool {
	_, ok := a.(Reset)
	return ok
}

func changesInputs(a Action) bool {
	switch a.(type) {
	case SetInput, SetFiles, SetInputs, LoadExample:
		return true
	}
	return false
}

// Check grades the current inputs in the background. The returned channel
// closes once the answer has been dispatched. An answer that arrives after
// a newer Check or a Reset is dropped.
func (c *Controller) Check(ctx context.Context) (<-chan struct{}, error) {
	c.mu.Lock()
	if remaining := c.state.CooldownRemaining(c.opts.Now()); remaining > 0 {
		c.mu.Unlock()
		return nil, fmt.Errorf("%w: %ds left", ErrCoolingDown, int((remaining+time.Second-1)/time.Second))
	}
	in := c.state.Inputs
	if (strings.TrimSpace(in.RubricText) == "" && len(in.RubricFiles) == 0) || !hasSubmission(in) {
		c.mu.Unlock()
		return nil, ErrIncomplete
	}

	next := c.state.clone()
	_ = Begin{}.apply(&next, env{})
	c.state = next
	seq := next.Seq
	req := next.Inputs
	c.inflight.Add(1)
	c.mu.Unlock()

	log := c.logger.With().Uint64("seq", seq).Logger()
	log.Debug().Msg("check started")

	done := make(chan struct{})
	go func() {
		defer c.inflight.Done()
		defer close(done)

		result, err := c.grader.Analyze(ctx, req)
		if err != nil {
			log.Warn().Err(err).Msg("check failed")
			_, _ = c.Dispatch(Fail{Seq: seq, Err: err})
			return
		}
		log.Debug().Int("score", result.Summary.Score).Msg("check finished")
		_, _ = c.Dispatch(Resolve{Seq: seq, Result: result})
	}()

	return done, nil
}

// Wait blocks until every started check has been dispatched
func (c *Controller) Wait() {
	c.inflight.Wait()
}

// HasDraft reports whether a non-empty draft is stored
func (c *Controller) HasDraft() bool {
	return c.drafts != nil && c.drafts.HasDraft()
}

// RestoreDraft loads the saved draft into the inputs
func (c *Controller) RestoreDraft() (State, bool, error) {
	if c.drafts == nil {
		return c.Snapshot(), false, nil
	}
	draft, ok := c.drafts.Load()
	if !ok {
		return c.Snapshot(), false, nil
	}
	state, err := c.Dispatch(SetInputs{Inputs: draft})
	return state, err == nil, err
}

func hasSubmission(in model.GradeRequest) bool {
	return strings.TrimSpace(in.SubmissionText) != "" || len(in.SubmissionFiles) > 0
}
