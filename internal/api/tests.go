package api

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/flashdeck/flashdeck-cli/internal/models"
)

// StartTest starts a timed session. PerCardSeconds is clamped to the
// backend's minimum before it is sent.
func (c *Client) StartTest(ctx context.Context, create models.TestSessionCreate) (*models.TestSessionStarted, error) {
	create.PerCardSeconds = models.ClampPerCardSeconds(create.PerCardSeconds)

	var started models.TestSessionStarted
	if err := c.postJSON(ctx, "/tests/start", nil, create, &started); err != nil {
		return nil, err
	}
	return &started, nil
}

// SubmitAnswer submits one card's answer. The free-text answer is sanitized
// here so every caller (manual submit, auto-submit, match serialization)
// goes through the same transform.
func (c *Client) SubmitAnswer(ctx context.Context, sessionID string, submit models.TestAnswerSubmit) error {
	submit.UserAnswer = SanitizeAnswer(submit.UserAnswer)

	query := url.Values{}
	query.Set("session_id", sessionID)
	return c.postJSON(ctx, "/tests/submit-answer", query, submit, nil)
}

// CompleteTest finalizes a session. Answers were submitted incrementally, so
// callers normally pass nil; the backend scores from its own record.
func (c *Client) CompleteTest(ctx context.Context, sessionID string, answers []models.TestAnswer) (*models.TestSessionResult, error) {
	query := url.Values{}
	query.Set("session_id", sessionID)

	if answers == nil {
		answers = []models.TestAnswer{}
	}
	for i := range answers {
		answers[i].UserAnswer = StripControlChars(answers[i].UserAnswer)
	}

	var result models.TestSessionResult
	if err := c.postJSON(ctx, "/tests/complete", query, answers, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// TestResult fetches the full scored result for a session.
func (c *Client) TestResult(ctx context.Context, sessionID string) (*models.TestSessionResult, error) {
	query := url.Values{}
	query.Set("session_id", sessionID)

	var result models.TestSessionResult
	if err := c.getJSON(ctx, "/tests/results", query, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// ResultSummary fetches the condensed per-session summary.
func (c *Client) ResultSummary(ctx context.Context, sessionID string) (*models.ResultSummary, error) {
	query := url.Values{}
	query.Set("session_id", sessionID)

	var summary models.ResultSummary
	if err := c.getJSON(ctx, "/tests/result-summary", query, &summary); err != nil {
		return nil, err
	}
	return &summary, nil
}

// TestHistory pages through past sessions.
func (c *Client) TestHistory(ctx context.Context, filters models.HistoryFilters) (*models.TestHistoryPage, error) {
	if filters.Page <= 0 {
		filters.Page = 1
	}
	if filters.Size <= 0 {
		filters.Size = 20
	}

	query := url.Values{}
	query.Set("page", strconv.Itoa(filters.Page))
	query.Set("size", strconv.Itoa(filters.Size))
	if filters.DeckID != nil {
		query.Set("deck_id", strconv.FormatUint(uint64(*filters.DeckID), 10))
	}
	if filters.OnlyCompleted != nil {
		query.Set("only_completed", strconv.FormatBool(*filters.OnlyCompleted))
	}

	var page models.TestHistoryPage
	if err := c.getJSON(ctx, "/tests/history", query, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// TestStats fetches the caller's aggregate testing statistics.
func (c *Client) TestStats(ctx context.Context) (*models.TestStats, error) {
	var stats models.TestStats
	if err := c.getJSON(ctx, "/tests/stats", nil, &stats); err != nil {
		return nil, err
	}
	return &stats, nil
}

// Leaderboard fetches the ranking, optionally scoped to one deck.
func (c *Client) Leaderboard(ctx context.Context, deckID *uint, limit int) ([]map[string]interface{}, error) {
	query := url.Values{}
	if deckID != nil {
		query.Set("deck_id", strconv.FormatUint(uint64(*deckID), 10))
	}
	if limit > 0 {
		query.Set("limit", strconv.Itoa(limit))
	}

	var entries []map[string]interface{}
	if err := c.getJSON(ctx, "/tests/leaderboard", query, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

// RandomPublicDeck picks a public deck for a quick test.
func (c *Client) RandomPublicDeck(ctx context.Context, subject string) (*models.Deck, error) {
	query := url.Values{}
	if subject != "" {
		query.Set("subject", subject)
	}

	var deck models.Deck
	if err := c.getJSON(ctx, "/tests/random-deck", query, &deck); err != nil {
		return nil, err
	}
	return &deck, nil
}

// DeleteHistory removes one session from the caller's history.
func (c *Client) DeleteHistory(ctx context.Context, sessionID string) error {
	return c.deleteJSON(ctx, fmt.Sprintf("/history/%s", url.PathEscape(sessionID)))
}
