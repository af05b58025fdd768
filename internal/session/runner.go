// Package session runs a timed test: per-question countdown, answer
// submission sequencing (submit, reveal, advance, complete), and the
// auto-submit path when the countdown expires. All state is in-memory and
// local to the runner; the backend owns the authoritative session.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/flashdeck/flashdeck-cli/internal/match"
	"github.com/flashdeck/flashdeck-cli/internal/models"
	"github.com/flashdeck/flashdeck-cli/internal/storage"
)

var (
	ErrNoCards            = errors.New("no cards to test")
	ErrAlreadySubmitted   = errors.New("answer already submitted for this question")
	ErrNotRevealed        = errors.New("submit an answer before advancing")
	ErrSubmissionInFlight = errors.New("a submission is already in flight")
	ErrSessionFinished    = errors.New("session already completed")
	ErrPairsIncomplete    = errors.New("pair all four items before submitting")
	ErrEmptyAnswer        = errors.New("enter an answer before submitting")
)

// QuestionState tracks the submit-then-reveal sequencing of one question.
type QuestionState int

const (
	// StateAnswering accepts input; the countdown is ticking.
	StateAnswering QuestionState = iota
	// StateRevealed shows the canonical answer and awaits manual advance.
	StateRevealed
)

// TestsAPI is the slice of the backend the runner drives. Implemented by
// the api.Client; tests substitute a fake.
type TestsAPI interface {
	SubmitAnswer(ctx context.Context, sessionID string, submit models.TestAnswerSubmit) error
	CompleteTest(ctx context.Context, sessionID string, answers []models.TestAnswer) (*models.TestSessionResult, error)
}

// Hooks are optional UI callbacks. They run on the ticker goroutine and must
// not block.
type Hooks struct {
	// OnTick fires each second with the remaining budget.
	OnTick func(remaining int)
	// OnAutoSubmit fires after the expiry auto-submission attempt; err is
	// non-nil when the submission failed and the question stays answerable.
	OnAutoSubmit func(err error)
}

// Runner sequences one test session over a fixed card list.
type Runner struct {
	api    TestsAPI
	store  storage.Store
	logger *slog.Logger
	hooks  Hooks

	sessionID string
	cards     []models.Card
	perCard   int

	countdown *Countdown

	mu          sync.Mutex
	ctx         context.Context
	index       int
	state       QuestionState
	shownAt     time.Time
	submitting  bool
	finished    bool
	submissions []models.TestAnswerSubmit
	matchEngine *match.Engine
	result      *models.TestSessionResult
}

// NewRunner builds a runner for an already-started backend session. The
// per-question budget is clamped to the minimum, defaulting when absent.
func NewRunner(api TestsAPI, store storage.Store, logger *slog.Logger, sessionID string, cards []models.Card, perCardSeconds int, hooks Hooks) (*Runner, error) {
	if len(cards) == 0 {
		return nil, ErrNoCards
	}

	r := &Runner{
		api:       api,
		store:     store,
		logger:    logger,
		hooks:     hooks,
		sessionID: sessionID,
		cards:     cards,
		perCard:   models.ClampPerCardSeconds(perCardSeconds),
	}
	r.countdown = NewCountdown(r.tick, r.expire)
	return r, nil
}

// Start shows the first question and begins its countdown. The context is
// held for auto-submissions, which happen off any caller's call stack.
func (r *Runner) Start(ctx context.Context) {
	r.mu.Lock()
	r.ctx = ctx
	r.index = 0
	r.mu.Unlock()
	r.showQuestion()
}

// showQuestion resets per-question state and restarts the countdown.
func (r *Runner) showQuestion() {
	r.mu.Lock()
	card := r.cards[r.index]
	r.state = StateAnswering
	r.shownAt = time.Now()
	r.submitting = false
	if card.QType == models.QTypeMatch {
		r.matchEngine = match.NewEngine(&card, nil)
	} else {
		r.matchEngine = nil
	}
	r.mu.Unlock()

	r.countdown.Start(r.perCard)
}

func (r *Runner) tick(remaining int) {
	if r.hooks.OnTick != nil {
		r.hooks.OnTick(remaining)
	}
}

// expire is the countdown's auto-submit path: submit an empty answer, reveal
// and halt, never advance. Any partial input the user had typed is
// deliberately discarded.
func (r *Runner) expire() {
	r.mu.Lock()
	ctx := r.ctx
	r.mu.Unlock()
	if ctx == nil {
		ctx = context.Background()
	}

	err := r.submit(ctx, "", true)
	if errors.Is(err, ErrAlreadySubmitted) || errors.Is(err, ErrSubmissionInFlight) {
		// A manual submission won the race; nothing to do.
		return
	}
	if err != nil {
		r.logger.Warn("Auto-submission failed", "session_id", r.sessionID, "error", err)
	}
	if r.hooks.OnAutoSubmit != nil {
		r.hooks.OnAutoSubmit(err)
	}
}

// Submit sends the user's answer for the current question. For match cards
// the pairing map must be complete; the serialized pairing is submitted and
// the answer argument is ignored. Blank answers are rejected — only the
// expiry path may send an empty submission.
func (r *Runner) Submit(ctx context.Context, answer string) error {
	r.mu.Lock()
	if r.matchEngine != nil {
		if !r.matchEngine.Complete() {
			r.mu.Unlock()
			return ErrPairsIncomplete
		}
		answer = r.matchEngine.Serialize()
	} else if strings.TrimSpace(answer) == "" {
		r.mu.Unlock()
		return ErrEmptyAnswer
	}
	r.mu.Unlock()

	return r.submit(ctx, answer, false)
}

// submit runs the shared submission pipeline. On backend failure the
// question state is left unchanged so the user may retry.
func (r *Runner) submit(ctx context.Context, answer string, auto bool) error {
	r.mu.Lock()
	if r.finished {
		r.mu.Unlock()
		return ErrSessionFinished
	}
	if r.state == StateRevealed {
		r.mu.Unlock()
		return ErrAlreadySubmitted
	}
	if r.submitting {
		r.mu.Unlock()
		return ErrSubmissionInFlight
	}
	r.submitting = true
	card := r.cards[r.index]
	elapsed := int(time.Since(r.shownAt).Seconds())
	r.mu.Unlock()

	submission := models.TestAnswerSubmit{
		CardID:     card.ID,
		UserAnswer: answer,
		TimeTaken:  &elapsed,
	}

	if err := r.api.SubmitAnswer(ctx, r.sessionID, submission); err != nil {
		r.mu.Lock()
		r.submitting = false
		r.mu.Unlock()
		return fmt.Errorf("failed to submit answer: %w", err)
	}

	r.mu.Lock()
	r.submissions = append(r.submissions, submission)
	r.state = StateRevealed
	r.submitting = false
	r.mu.Unlock()

	r.countdown.Stop()
	r.logger.Debug("Answer submitted",
		"session_id", r.sessionID,
		"card_id", card.ID,
		"auto", auto,
		"time_taken", elapsed)
	return nil
}

// Advance moves past a revealed question: to the next card, or on the last
// card through session completion.
func (r *Runner) Advance(ctx context.Context) error {
	r.mu.Lock()
	if r.finished {
		r.mu.Unlock()
		return ErrSessionFinished
	}
	if r.state != StateRevealed {
		r.mu.Unlock()
		return ErrNotRevealed
	}
	last := r.index+1 >= len(r.cards)
	if !last {
		r.index++
	}
	r.mu.Unlock()

	if !last {
		r.showQuestion()
		return nil
	}
	return r.complete(ctx)
}

// complete finalizes the session. Answers were already submitted
// incrementally, so the completion call carries an empty list; the returned
// result is cached locally for the result view. On failure the runner stays
// open so completion can be retried.
func (r *Runner) complete(ctx context.Context) error {
	r.countdown.Stop()

	result, err := r.api.CompleteTest(ctx, r.sessionID, nil)
	if err != nil {
		return fmt.Errorf("failed to complete test: %w", err)
	}

	if raw, err := json.Marshal(result); err == nil {
		if err := r.store.Set(storage.KeyLatestResult, string(raw)); err != nil {
			r.logger.Warn("Failed to cache test result", "error", err)
		}
	}

	r.mu.Lock()
	r.finished = true
	r.result = result
	r.mu.Unlock()

	r.logger.Info("Test session completed",
		"session_id", r.sessionID,
		"correct", result.CorrectAnswers,
		"total", result.TotalCards)
	return nil
}

// Current returns the active card, its index, and its sequencing state.
func (r *Runner) Current() (int, *models.Card, QuestionState) {
	r.mu.Lock()
	defer r.mu.Unlock()
	card := r.cards[r.index]
	return r.index, &card, r.state
}

// Match returns the pairing engine for the current question, or nil when the
// card is not match-type.
func (r *Runner) Match() *match.Engine {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.matchEngine
}

// Remaining returns the countdown's remaining seconds.
func (r *Runner) Remaining() int { return r.countdown.Remaining() }

// Total returns the card count.
func (r *Runner) Total() int { return len(r.cards) }

// IsLast reports whether the current question is the final one.
func (r *Runner) IsLast() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.index+1 >= len(r.cards)
}

// Finished reports whether the session completed.
func (r *Runner) Finished() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.finished
}

// Result returns the final scored session once Finished.
func (r *Runner) Result() *models.TestSessionResult {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.result
}

// Submissions returns the answers sent so far, for display.
func (r *Runner) Submissions() []models.TestAnswerSubmit {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]models.TestAnswerSubmit(nil), r.submissions...)
}

// Close cancels the countdown. Late ticks after Close are no-ops; in-flight
// requests are left to finish and their results discarded.
func (r *Runner) Close() {
	r.countdown.Stop()
}
