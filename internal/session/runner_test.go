package session

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flashdeck/flashdeck-cli/internal/models"
	"github.com/flashdeck/flashdeck-cli/internal/storage"
)

type fakeTestsAPI struct {
	mu            sync.Mutex
	submits       []models.TestAnswerSubmit
	completeCalls int
	failSubmit    error
	result        *models.TestSessionResult
}

func (f *fakeTestsAPI) SubmitAnswer(_ context.Context, _ string, submit models.TestAnswerSubmit) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failSubmit != nil {
		return f.failSubmit
	}
	f.submits = append(f.submits, submit)
	return nil
}

func (f *fakeTestsAPI) CompleteTest(_ context.Context, sessionID string, _ []models.TestAnswer) (*models.TestSessionResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.completeCalls++
	if f.result != nil {
		return f.result, nil
	}
	return &models.TestSessionResult{
		SessionID:  sessionID,
		TotalCards: len(f.submits),
	}, nil
}

func (f *fakeTestsAPI) submitted() []models.TestAnswerSubmit {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.TestAnswerSubmit(nil), f.submits...)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func textCards(n int) []models.Card {
	cards := make([]models.Card, n)
	for i := range cards {
		cards[i] = models.Card{
			ID:       uint(i + 1),
			Question: "question",
			Answer:   "answer",
			QType:    models.QTypeFillIn,
		}
	}
	return cards
}

func newTestRunner(t *testing.T, api TestsAPI, cards []models.Card, hooks Hooks) (*Runner, *storage.MemoryStore) {
	t.Helper()
	store := storage.NewMemoryStore()
	runner, err := NewRunner(api, store, testLogger(), "sess-1", cards, 30, hooks)
	require.NoError(t, err)
	t.Cleanup(runner.Close)
	return runner, store
}

func TestNewRunnerRequiresCards(t *testing.T) {
	_, err := NewRunner(&fakeTestsAPI{}, storage.NewMemoryStore(), testLogger(), "sess-1", nil, 10, Hooks{})
	assert.ErrorIs(t, err, ErrNoCards)
}

func TestNewRunnerClampsBudget(t *testing.T) {
	runner, _ := newTestRunner(t, &fakeTestsAPI{}, textCards(1), Hooks{})
	assert.Equal(t, 30, runner.perCard)

	short, err := NewRunner(&fakeTestsAPI{}, storage.NewMemoryStore(), testLogger(), "sess-2", textCards(1), 1, Hooks{})
	require.NoError(t, err)
	defer short.Close()
	assert.Equal(t, models.MinPerCardSeconds, short.perCard)

	zero, err := NewRunner(&fakeTestsAPI{}, storage.NewMemoryStore(), testLogger(), "sess-3", textCards(1), 0, Hooks{})
	require.NoError(t, err)
	defer zero.Close()
	assert.Equal(t, models.DefaultPerCardSeconds, zero.perCard)
}

func TestRunnerManualFlow(t *testing.T) {
	api := &fakeTestsAPI{}
	runner, store := newTestRunner(t, api, textCards(2), Hooks{})
	ctx := context.Background()

	runner.Start(ctx)
	index, card, state := runner.Current()
	assert.Equal(t, 0, index)
	assert.Equal(t, uint(1), card.ID)
	assert.Equal(t, StateAnswering, state)

	require.NoError(t, runner.Submit(ctx, "first"))
	_, _, state = runner.Current()
	assert.Equal(t, StateRevealed, state)

	require.NoError(t, runner.Advance(ctx))
	index, card, state = runner.Current()
	assert.Equal(t, 1, index)
	assert.Equal(t, uint(2), card.ID)
	assert.Equal(t, StateAnswering, state)
	assert.True(t, runner.IsLast())

	require.NoError(t, runner.Submit(ctx, "second"))
	require.NoError(t, runner.Advance(ctx))

	assert.True(t, runner.Finished())
	require.NotNil(t, runner.Result())
	assert.Equal(t, 1, api.completeCalls)

	submits := api.submitted()
	require.Len(t, submits, 2)
	assert.Equal(t, "first", submits[0].UserAnswer)
	assert.Equal(t, "second", submits[1].UserAnswer)
	require.NotNil(t, submits[0].TimeTaken)

	// The final result is cached for the result view.
	raw, ok, err := store.Get(storage.KeyLatestResult)
	require.NoError(t, err)
	require.True(t, ok)
	var cached models.TestSessionResult
	require.NoError(t, json.Unmarshal([]byte(raw), &cached))
	assert.Equal(t, "sess-1", cached.SessionID)
}

func TestRunnerSequencingGuards(t *testing.T) {
	api := &fakeTestsAPI{}
	runner, _ := newTestRunner(t, api, textCards(2), Hooks{})
	ctx := context.Background()
	runner.Start(ctx)

	t.Run("advance before reveal", func(t *testing.T) {
		assert.ErrorIs(t, runner.Advance(ctx), ErrNotRevealed)
	})

	t.Run("double submit", func(t *testing.T) {
		require.NoError(t, runner.Submit(ctx, "once"))
		assert.ErrorIs(t, runner.Submit(ctx, "twice"), ErrAlreadySubmitted)
		assert.Len(t, api.submitted(), 1)
	})
}

// Only the expiry path may send an empty answer; a manual blank submission is
// rejected without touching the backend or the question state.
func TestRunnerRejectsEmptyAnswer(t *testing.T) {
	api := &fakeTestsAPI{}
	runner, _ := newTestRunner(t, api, textCards(1), Hooks{})
	ctx := context.Background()
	runner.Start(ctx)

	assert.ErrorIs(t, runner.Submit(ctx, ""), ErrEmptyAnswer)
	assert.ErrorIs(t, runner.Submit(ctx, "   \t"), ErrEmptyAnswer)

	_, _, state := runner.Current()
	assert.Equal(t, StateAnswering, state, "question stays open")
	assert.Empty(t, api.submitted())

	runner.expire()
	submits := api.submitted()
	require.Len(t, submits, 1, "expiry still auto-submits the blank")
	assert.Equal(t, "", submits[0].UserAnswer)
}

// Expiry submits an empty answer, reveals, and does not advance. A second
// expiry for the same question is a no-op.
func TestRunnerAutoSubmit(t *testing.T) {
	var autoErrs []error
	api := &fakeTestsAPI{}
	runner, _ := newTestRunner(t, api, textCards(2), Hooks{
		OnAutoSubmit: func(err error) { autoErrs = append(autoErrs, err) },
	})
	runner.Start(context.Background())

	runner.expire()

	index, _, state := runner.Current()
	assert.Equal(t, 0, index, "expiry must not advance")
	assert.Equal(t, StateRevealed, state)

	submits := api.submitted()
	require.Len(t, submits, 1)
	assert.Equal(t, "", submits[0].UserAnswer)
	require.Len(t, autoErrs, 1)
	assert.NoError(t, autoErrs[0])

	runner.expire()
	assert.Len(t, api.submitted(), 1, "stale expiry must not submit again")
	assert.Len(t, autoErrs, 1, "stale expiry must not re-fire the hook")
}

func TestRunnerSubmitFailureKeepsQuestionOpen(t *testing.T) {
	api := &fakeTestsAPI{failSubmit: errors.New("backend down")}
	runner, _ := newTestRunner(t, api, textCards(1), Hooks{})
	ctx := context.Background()
	runner.Start(ctx)

	err := runner.Submit(ctx, "answer")
	require.Error(t, err)

	_, _, state := runner.Current()
	assert.Equal(t, StateAnswering, state, "failed submission must not reveal")

	// Retry succeeds once the backend recovers.
	api.mu.Lock()
	api.failSubmit = nil
	api.mu.Unlock()
	require.NoError(t, runner.Submit(ctx, "answer"))
	assert.Len(t, api.submitted(), 1)
}

func TestRunnerMatchSubmission(t *testing.T) {
	cards := []models.Card{{
		ID:       7,
		Question: "a|b|c|d",
		QType:    models.QTypeMatch,
		Options:  []string{"1", "2", "3", "4"},
	}}
	api := &fakeTestsAPI{}
	runner, _ := newTestRunner(t, api, cards, Hooks{})
	ctx := context.Background()
	runner.Start(ctx)

	engine := runner.Match()
	require.NotNil(t, engine)

	assert.ErrorIs(t, runner.Submit(ctx, ""), ErrPairsIncomplete)

	for pos, orig := range engine.RightOrder() {
		require.NoError(t, engine.Pair(orig, pos))
	}
	require.NoError(t, runner.Submit(ctx, "ignored"))

	submits := api.submitted()
	require.Len(t, submits, 1)
	assert.Equal(t, "0->0,1->1,2->2,3->3", submits[0].UserAnswer)
}

func TestRunnerFinishedGuards(t *testing.T) {
	api := &fakeTestsAPI{}
	runner, _ := newTestRunner(t, api, textCards(1), Hooks{})
	ctx := context.Background()
	runner.Start(ctx)

	require.NoError(t, runner.Submit(ctx, "only"))
	require.NoError(t, runner.Advance(ctx))
	require.True(t, runner.Finished())

	assert.ErrorIs(t, runner.Submit(ctx, "late"), ErrSessionFinished)
	assert.ErrorIs(t, runner.Advance(ctx), ErrSessionFinished)
}
