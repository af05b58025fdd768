package devserver

import (
	"math/rand"
	"net/http"
	"sort"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/flashdeck/flashdeck-cli/internal/match"
	"github.com/flashdeck/flashdeck-cli/internal/models"
	"github.com/flashdeck/flashdeck-cli/internal/utils"
)

type testHandler struct {
	store  *store
	logger utils.Logger
}

// loadSession resolves ?session_id= to the caller's own session.
func (h *testHandler) loadSession(c *gin.Context) (*testSession, bool) {
	id := c.Query("session_id")
	if id == "" {
		abortDetail(c, http.StatusUnprocessableEntity, "session_id is required")
		return nil, false
	}

	sess, ok := h.store.session(id)
	if !ok || sess.UserID != currentUser(c).ID {
		abortDetail(c, http.StatusNotFound, "Test session not found")
		return nil, false
	}
	return sess, true
}

func (h *testHandler) Start(c *gin.Context) {
	var create models.TestSessionCreate
	if err := c.ShouldBindJSON(&create); err != nil {
		abortDetail(c, http.StatusUnprocessableEntity, "invalid request body")
		return
	}

	u := currentUser(c)
	deck, ok := h.store.deck(create.DeckID)
	if !ok {
		abortDetail(c, http.StatusNotFound, "Deck not found")
		return
	}
	if deck.Visibility == models.VisibilityPrivate && deck.OwnerID != u.ID {
		abortDetail(c, http.StatusForbidden, "This deck is private")
		return
	}
	if len(h.store.listCards(deck.ID)) == 0 {
		abortDetail(c, http.StatusBadRequest, "Deck has no cards")
		return
	}

	sess := h.store.startSession(u.ID, create)
	h.logger.Info("test session started", "session_id", sess.ID, "deck_id", deck.ID)
	c.JSON(http.StatusOK, models.TestSessionStarted{SessionID: sess.ID})
}

func (h *testHandler) SubmitAnswer(c *gin.Context) {
	sess, ok := h.loadSession(c)
	if !ok {
		return
	}
	if sess.Completed {
		abortDetail(c, http.StatusBadRequest, "Session already completed")
		return
	}

	var submit models.TestAnswerSubmit
	if err := c.ShouldBindJSON(&submit); err != nil {
		abortDetail(c, http.StatusUnprocessableEntity, "invalid request body")
		return
	}

	card, found := h.store.card(sess.DeckID, submit.CardID)
	if !found {
		abortDetail(c, http.StatusNotFound, "Card not found in deck")
		return
	}

	h.store.recordAnswer(sess, models.TestAnswer{
		CardID:     submit.CardID,
		UserAnswer: submit.UserAnswer,
		TimeTaken:  submit.TimeTaken,
		IsCorrect:  gradeAnswer(&card, submit.UserAnswer),
	})
	c.JSON(http.StatusOK, gin.H{"detail": "answer recorded"})
}

func (h *testHandler) Complete(c *gin.Context) {
	sess, ok := h.loadSession(c)
	if !ok {
		return
	}
	if !sess.Completed {
		h.store.completeSession(sess)
	}
	c.JSON(http.StatusOK, h.buildResult(sess, currentUser(c)))
}

func (h *testHandler) Results(c *gin.Context) {
	sess, ok := h.loadSession(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, h.buildResult(sess, currentUser(c)))
}

func (h *testHandler) ResultSummary(c *gin.Context) {
	sess, ok := h.loadSession(c)
	if !ok {
		return
	}

	result := h.buildResult(sess, currentUser(c))
	c.JSON(http.StatusOK, models.ResultSummary{
		TotalQuestions: result.TotalCards,
		CorrectCount:   result.CorrectAnswers,
		MistakeCount:   result.TotalCards - result.CorrectAnswers,
		ScorePercent:   result.Accuracy,
	})
}

func (h *testHandler) History(c *gin.Context) {
	u := currentUser(c)
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	size, _ := strconv.Atoi(c.DefaultQuery("size", "20"))
	if page < 1 {
		page = 1
	}
	if size < 1 {
		size = 20
	}

	sessions := h.store.userSessions(u.ID)
	sort.Slice(sessions, func(i, j int) bool {
		return sessions[i].StartedAt.After(sessions[j].StartedAt)
	})

	items := make([]models.TestHistoryItem, 0, len(sessions))
	for _, sess := range sessions {
		if deckQ := c.Query("deck_id"); deckQ != "" {
			id, err := strconv.ParseUint(deckQ, 10, 64)
			if err != nil || uint(id) != sess.DeckID {
				continue
			}
		}
		if onlyQ := c.Query("only_completed"); onlyQ == "true" && !sess.Completed {
			continue
		}

		item := models.TestHistoryItem{
			SessionID:   sess.ID,
			DeckID:      sess.DeckID,
			IsCompleted: sess.Completed,
		}
		if deck, ok := h.store.deck(sess.DeckID); ok {
			item.DeckTitle = deck.Title
		}
		item.TotalCards = len(h.store.listCards(sess.DeckID))
		for _, a := range sess.Answers {
			if a.IsCorrect {
				item.CorrectAnswers++
			}
		}
		if item.TotalCards > 0 {
			item.Accuracy = 100 * float64(item.CorrectAnswers) / float64(item.TotalCards)
		}
		if sess.Completed {
			completedAt := sess.CompletedAt
			item.CompletedAt = &completedAt
		}
		items = append(items, item)
	}

	total := len(items)
	start := (page - 1) * size
	if start > total {
		start = total
	}
	end := start + size
	if end > total {
		end = total
	}

	c.JSON(http.StatusOK, models.TestHistoryPage{
		Items: items[start:end],
		Total: total,
		Page:  page,
		Size:  size,
	})
}

func (h *testHandler) Stats(c *gin.Context) {
	u := currentUser(c)
	sessions := h.store.userSessions(u.ID)

	stats := models.TestStats{
		FavoriteSubjects: []string{},
		RecentTests:      []map[string]interface{}{},
	}
	decksSeen := make(map[uint]bool)
	var accuracySum float64
	for _, sess := range sessions {
		if !sess.Completed {
			continue
		}
		stats.TotalTestsTaken++
		decksSeen[sess.DeckID] = true

		total := len(h.store.listCards(sess.DeckID))
		correct := 0
		for _, a := range sess.Answers {
			if a.IsCorrect {
				correct++
			}
		}
		if total > 0 {
			accuracySum += 100 * float64(correct) / float64(total)
		}
	}
	stats.TotalDecksTested = len(decksSeen)
	if stats.TotalTestsTaken > 0 {
		stats.AverageAccuracy = accuracySum / float64(stats.TotalTestsTaken)
	}
	c.JSON(http.StatusOK, stats)
}

func (h *testHandler) Leaderboard(c *gin.Context) {
	c.JSON(http.StatusOK, []map[string]interface{}{})
}

func (h *testHandler) RandomDeck(c *gin.Context) {
	u := currentUser(c)
	subject := strings.ToLower(c.Query("subject"))

	decks := h.store.listDecks(u.ID, func(d *models.Deck) bool {
		if d.Visibility != models.VisibilityPublic {
			return false
		}
		return subject == "" || strings.Contains(strings.ToLower(d.Tags), subject)
	})
	if len(decks) == 0 {
		abortDetail(c, http.StatusNotFound, "No public decks available")
		return
	}
	c.JSON(http.StatusOK, decks[rand.Intn(len(decks))])
}

func (h *testHandler) DeleteHistory(c *gin.Context) {
	id := c.Param("session_id")
	sess, ok := h.store.session(id)
	if !ok || sess.UserID != currentUser(c).ID {
		abortDetail(c, http.StatusNotFound, "Test session not found")
		return
	}
	h.store.deleteSession(id)
	c.JSON(http.StatusOK, gin.H{"detail": "deleted"})
}

func (h *testHandler) buildResult(sess *testSession, u *user) models.TestSessionResult {
	result := models.TestSessionResult{
		SessionID:   sess.ID,
		DeckOwner:   u.Email,
		TotalTime:   sess.TotalTime,
		CompletedAt: sess.CompletedAt,
		Answers:     append([]models.TestAnswer{}, sess.Answers...),
	}
	if deck, ok := h.store.deck(sess.DeckID); ok {
		result.DeckTitle = deck.Title
	}
	result.TotalCards = len(h.store.listCards(sess.DeckID))
	for _, a := range sess.Answers {
		if a.IsCorrect {
			result.CorrectAnswers++
		}
	}
	if result.TotalCards > 0 {
		result.Accuracy = 100 * float64(result.CorrectAnswers) / float64(result.TotalCards)
	}
	return result
}

// gradeAnswer scores one answer against its card. Text answers compare
// case-insensitively after trimming. Match answers are graded from the
// serialized pairing: every left prompt must map to its original right
// index, which is position-independent of whatever shuffle the client
// displayed.
func gradeAnswer(card *models.Card, userAnswer string) bool {
	if card.QType == models.QTypeMatch {
		mapping, err := match.ParseSerialized(userAnswer)
		if err != nil || len(mapping) != match.PairCount {
			return false
		}
		for left, right := range mapping {
			if left != right {
				return false
			}
		}
		return true
	}

	given := strings.TrimSpace(userAnswer)
	want := strings.TrimSpace(card.Answer)
	return given != "" && strings.EqualFold(given, want)
}
