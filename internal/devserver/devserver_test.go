package devserver

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flashdeck/flashdeck-cli/internal/api"
	"github.com/flashdeck/flashdeck-cli/internal/auth"
	"github.com/flashdeck/flashdeck-cli/internal/models"
	"github.com/flashdeck/flashdeck-cli/internal/session"
	"github.com/flashdeck/flashdeck-cli/internal/storage"
	"github.com/flashdeck/flashdeck-cli/internal/utils"
)

type testEnv struct {
	server *Server
	client *api.Client
	auth   *auth.Manager
	store  *storage.MemoryStore
}

func newEnv(t *testing.T) *testEnv {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	server := New(utils.NewSlogLogger(logger))
	httpServer := httptest.NewServer(server.Router())
	t.Cleanup(httpServer.Close)

	bus := auth.NewExpiryBus(logger)
	t.Cleanup(func() { bus.Close() })
	store := storage.NewMemoryStore()
	manager := auth.NewManager(store, bus, logger)
	client := api.NewClient(httpServer.URL, 5*time.Second, manager, logger)

	return &testEnv{server: server, client: client, auth: manager, store: store}
}

var userSeq int

func (env *testEnv) signUp(t *testing.T) string {
	t.Helper()
	userSeq++
	email := fmt.Sprintf("user%d@test.dev", userSeq)
	creds := models.Credentials{Email: email, Password: "longpassword"}
	require.NoError(t, env.auth.Register(context.Background(), env.client, creds))
	return email
}

func (env *testEnv) makeDeck(t *testing.T, visibility models.DeckVisibility, cards ...models.CardCreate) *models.Deck {
	t.Helper()
	ctx := context.Background()
	deck, err := env.client.CreateDeck(ctx, models.DeckCreate{
		Title:      "Biology basics",
		Tags:       "biology",
		Visibility: visibility,
	})
	require.NoError(t, err)
	for _, c := range cards {
		_, err := env.client.CreateCard(ctx, deck.ID, c)
		require.NoError(t, err)
	}
	return deck
}

func fillIn(question, answer string) models.CardCreate {
	return models.CardCreate{Question: question, Answer: answer, QType: models.QTypeFillIn}
}

func TestAuthFlow(t *testing.T) {
	env := newEnv(t)
	ctx := context.Background()
	email := env.signUp(t)

	require.True(t, env.auth.IsAuthenticated())
	me, err := env.client.Me(ctx)
	require.NoError(t, err)
	assert.Equal(t, email, me.Email)

	t.Run("duplicate registration rejected", func(t *testing.T) {
		err := env.client.Register(ctx, models.Credentials{Email: email, Password: "longpassword"})
		assert.True(t, api.IsStatus(err, http.StatusBadRequest))
	})

	t.Run("wrong password rejected", func(t *testing.T) {
		_, err := env.client.Login(ctx, email, "not-the-password")
		assert.True(t, api.IsStatus(err, http.StatusUnauthorized))
	})

	t.Run("logout clears local state", func(t *testing.T) {
		require.NoError(t, env.auth.Logout(ctx, env.client))
		assert.False(t, env.auth.IsAuthenticated())
	})
}

// Expiring the access token server-side must be invisible to the caller: the
// client refreshes and retries within the same call.
func TestTransparentTokenRefresh(t *testing.T) {
	env := newEnv(t)
	ctx := context.Background()
	email := env.signUp(t)

	env.server.ExpireAccessTokens()

	me, err := env.client.Me(ctx)
	require.NoError(t, err)
	assert.Equal(t, email, me.Email)
}

func TestDeckVisibility(t *testing.T) {
	env := newEnv(t)
	ctx := context.Background()

	env.signUp(t)
	private := env.makeDeck(t, models.VisibilityPrivate, fillIn("q", "a"))
	public := env.makeDeck(t, models.VisibilityPublic, fillIn("q", "a"))

	// Second account cannot see or test the private deck.
	env.signUp(t)
	_, err := env.client.GetDeck(ctx, private.ID)
	assert.True(t, api.IsStatus(err, http.StatusForbidden))

	_, err = env.client.StartTest(ctx, models.TestSessionCreate{DeckID: private.ID})
	assert.True(t, api.IsStatus(err, http.StatusForbidden))

	deck, err := env.client.GetDeck(ctx, public.ID)
	require.NoError(t, err)
	assert.Equal(t, public.ID, deck.ID)

	decks, err := env.client.ListDecks(ctx, models.DeckFilters{})
	require.NoError(t, err)
	for _, d := range decks {
		assert.NotEqual(t, private.ID, d.ID, "private deck leaked into listing")
	}
}

func TestDeckLikesAndFavorites(t *testing.T) {
	env := newEnv(t)
	ctx := context.Background()
	env.signUp(t)
	deck := env.makeDeck(t, models.VisibilityPublic, fillIn("q", "a"))

	require.NoError(t, env.client.LikeDeck(ctx, deck.ID))
	require.NoError(t, env.client.FavoriteDeck(ctx, deck.ID))

	got, err := env.client.GetDeck(ctx, deck.ID)
	require.NoError(t, err)
	assert.True(t, got.Liked)
	assert.True(t, got.Favourite)
	assert.Equal(t, 1, got.LikeCount)
	assert.Equal(t, 1, got.CardCount)

	require.NoError(t, env.client.UnlikeDeck(ctx, deck.ID))
	got, err = env.client.GetDeck(ctx, deck.ID)
	require.NoError(t, err)
	assert.False(t, got.Liked)
	assert.Equal(t, 0, got.LikeCount)
}

func TestCardCRUD(t *testing.T) {
	env := newEnv(t)
	ctx := context.Background()
	env.signUp(t)
	deck := env.makeDeck(t, models.VisibilityPrivate)

	card, err := env.client.CreateCard(ctx, deck.ID, models.CardCreate{
		Question: "Capital of France?",
		Answer:   "Paris",
		QType:    models.QTypeSingleChoice,
		Options:  []string{"Paris", "Lyon"},
	})
	require.NoError(t, err)

	newAnswer := "Paris"
	newQuestion := "What is the capital of France?"
	updated, err := env.client.UpdateCard(ctx, deck.ID, card.ID, models.CardUpdate{
		Question: &newQuestion,
		Answer:   &newAnswer,
	})
	require.NoError(t, err)
	assert.Equal(t, newQuestion, updated.Question)

	cards, err := env.client.ListCards(ctx, deck.ID)
	require.NoError(t, err)
	require.Len(t, cards, 1)

	require.NoError(t, env.client.DeleteCard(ctx, deck.ID, card.ID))
	cards, err = env.client.ListCards(ctx, deck.ID)
	require.NoError(t, err)
	assert.Empty(t, cards)
}

// Full session through the runner: one correct answer, one wrong, then
// completion with the result cached locally. A blank manual submission is
// rejected before it reaches the wire.
func TestTestSessionEndToEnd(t *testing.T) {
	env := newEnv(t)
	ctx := context.Background()
	env.signUp(t)
	deck := env.makeDeck(t, models.VisibilityPrivate,
		fillIn("Powerhouse of the cell: ____", "mitochondria"),
		fillIn("Largest planet: ____", "Jupiter"),
	)

	cards, err := env.client.ListCards(ctx, deck.ID)
	require.NoError(t, err)

	started, err := env.client.StartTest(ctx, models.TestSessionCreate{
		DeckID:         deck.ID,
		PerCardSeconds: 30,
	})
	require.NoError(t, err)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	runner, err := session.NewRunner(env.client, env.store, logger, started.SessionID, cards, 30, session.Hooks{})
	require.NoError(t, err)
	defer runner.Close()
	runner.Start(ctx)

	require.NoError(t, runner.Submit(ctx, "Mitochondria"))
	require.NoError(t, runner.Advance(ctx))
	require.ErrorIs(t, runner.Submit(ctx, ""), session.ErrEmptyAnswer)
	require.NoError(t, runner.Submit(ctx, "Saturn"))
	require.NoError(t, runner.Advance(ctx))

	require.True(t, runner.Finished())
	result := runner.Result()
	require.NotNil(t, result)
	assert.Equal(t, 2, result.TotalCards)
	assert.Equal(t, 1, result.CorrectAnswers)
	assert.InDelta(t, 50.0, result.Accuracy, 0.01)

	raw, ok, err := env.store.Get(storage.KeyLatestResult)
	require.NoError(t, err)
	require.True(t, ok)
	var cached models.TestSessionResult
	require.NoError(t, json.Unmarshal([]byte(raw), &cached))
	assert.Equal(t, started.SessionID, cached.SessionID)

	t.Run("summary matches", func(t *testing.T) {
		summary, err := env.client.ResultSummary(ctx, started.SessionID)
		require.NoError(t, err)
		assert.Equal(t, 2, summary.TotalQuestions)
		assert.Equal(t, 1, summary.CorrectCount)
		assert.Equal(t, 1, summary.MistakeCount)
	})

	t.Run("history records the session", func(t *testing.T) {
		history, err := env.client.TestHistory(ctx, models.HistoryFilters{})
		require.NoError(t, err)
		require.Len(t, history.Items, 1)
		assert.Equal(t, started.SessionID, history.Items[0].SessionID)
		assert.True(t, history.Items[0].IsCompleted)
	})

	t.Run("stats aggregate", func(t *testing.T) {
		stats, err := env.client.TestStats(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, stats.TotalTestsTaken)
		assert.Equal(t, 1, stats.TotalDecksTested)
		assert.InDelta(t, 50.0, stats.AverageAccuracy, 0.01)
	})

	t.Run("history deletion", func(t *testing.T) {
		require.NoError(t, env.client.DeleteHistory(ctx, started.SessionID))
		history, err := env.client.TestHistory(ctx, models.HistoryFilters{})
		require.NoError(t, err)
		assert.Empty(t, history.Items)
	})
}

// Match answers are graded from the serialized pairing, independent of the
// client's display shuffle.
func TestMatchGrading(t *testing.T) {
	env := newEnv(t)
	ctx := context.Background()
	env.signUp(t)
	deck := env.makeDeck(t, models.VisibilityPrivate, models.CardCreate{
		Question: "cat|dog|bird|fish",
		QType:    models.QTypeMatch,
		Options:  []string{"meow", "woof", "tweet", "blub"},
	})
	cards, err := env.client.ListCards(ctx, deck.ID)
	require.NoError(t, err)

	run := func(answer string) *models.TestSessionResult {
		started, err := env.client.StartTest(ctx, models.TestSessionCreate{DeckID: deck.ID})
		require.NoError(t, err)
		require.NoError(t, env.client.SubmitAnswer(ctx, started.SessionID, models.TestAnswerSubmit{
			CardID:     cards[0].ID,
			UserAnswer: answer,
		}))
		result, err := env.client.CompleteTest(ctx, started.SessionID, nil)
		require.NoError(t, err)
		return result
	}

	assert.Equal(t, 1, run("0->0,1->1,2->2,3->3").CorrectAnswers)
	assert.Equal(t, 0, run("0->1,1->0,2->2,3->3").CorrectAnswers)
	assert.Equal(t, 0, run("0->0,1->1").CorrectAnswers)
	assert.Equal(t, 0, run("").CorrectAnswers)
}

func TestGenerateCard(t *testing.T) {
	env := newEnv(t)
	ctx := context.Background()
	env.signUp(t)

	question, err := env.client.GenerateCard(ctx, models.AIGenerateRequest{
		Prompt:       "photosynthesis",
		DesiredQType: models.QTypeSingleChoice,
	})
	require.NoError(t, err)
	assert.Equal(t, models.QTypeSingleChoice, question.QType)
	assert.Len(t, question.Options, 4)
	assert.Contains(t, question.Options, question.Answer)

	t.Run("generated match card passes validation", func(t *testing.T) {
		generated, err := env.client.GenerateCard(ctx, models.AIGenerateRequest{
			Prompt:       "cell organelles",
			DesiredQType: models.QTypeMatch,
		})
		require.NoError(t, err)

		deck := env.makeDeck(t, models.VisibilityPrivate)
		_, err = env.client.CreateCard(ctx, deck.ID, models.CardCreate{
			Question: generated.Question,
			Answer:   generated.Answer,
			QType:    generated.QType,
			Options:  generated.Options,
		})
		assert.NoError(t, err)
	})
}

func TestOwnershipRules(t *testing.T) {
	env := newEnv(t)
	ctx := context.Background()

	env.signUp(t)
	deck := env.makeDeck(t, models.VisibilityPublic, fillIn("q", "a"))

	env.signUp(t)
	title := "hijacked"
	_, err := env.client.UpdateDeck(ctx, deck.ID, models.DeckUpdate{Title: &title})
	assert.True(t, api.IsStatus(err, http.StatusForbidden))

	err = env.client.DeleteDeck(ctx, deck.ID)
	assert.True(t, api.IsStatus(err, http.StatusForbidden))

	_, err = env.client.CreateCard(ctx, deck.ID, fillIn("rogue", "card"))
	assert.True(t, api.IsStatus(err, http.StatusForbidden))
}
