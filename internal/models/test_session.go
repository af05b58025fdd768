package models

import "time"

const (
	// DefaultPerCardSeconds applies when a session gives no per-question
	// budget. MinPerCardSeconds is the floor the backend enforces.
	DefaultPerCardSeconds = 10
	MinPerCardSeconds     = 3
)

// TestSessionCreate starts a timed test over a deck.
type TestSessionCreate struct {
	DeckID           uint `json:"deck_id" validate:"required,min=1"`
	PerCardSeconds   int  `json:"per_card_seconds" validate:"min=3,max=600"`
	TotalTimeSeconds *int `json:"total_time_seconds,omitempty" validate:"omitempty,min=10"`
}

// TestSessionStarted is the backend's reply to POST /tests/start. The client
// holds only the identifier and timing parameters; session lifecycle is
// tracked server-side.
type TestSessionStarted struct {
	SessionID string `json:"session_id"`
}

// TestAnswerSubmit is one answer for one card. TimeTaken is integer seconds
// since the question was shown, or nil when unavailable.
type TestAnswerSubmit struct {
	CardID     uint   `json:"card_id"`
	UserAnswer string `json:"user_answer"`
	TimeTaken  *int   `json:"time_taken,omitempty"`
}

// TestAnswer is a submitted answer with the backend's verdict.
type TestAnswer struct {
	CardID     uint   `json:"card_id"`
	UserAnswer string `json:"user_answer"`
	TimeTaken  *int   `json:"time_taken,omitempty"`
	IsCorrect  bool   `json:"is_correct"`
}

// TestSessionResult is the final scored session returned by /tests/complete
// and /tests/results.
type TestSessionResult struct {
	SessionID      string       `json:"session_id"`
	DeckTitle      string       `json:"deck_title"`
	DeckOwner      string       `json:"deck_owner"`
	TotalCards     int          `json:"total_cards"`
	CorrectAnswers int          `json:"correct_answers"`
	Accuracy       float64      `json:"accuracy"`
	TotalTime      *int         `json:"total_time,omitempty"`
	CompletedAt    time.Time    `json:"completed_at"`
	Answers        []TestAnswer `json:"answers"`
}

// ResultSummary is the condensed view from /tests/result-summary.
type ResultSummary struct {
	TotalQuestions int     `json:"total_questions"`
	CorrectCount   int     `json:"correct_count"`
	MistakeCount   int     `json:"mistake_count"`
	ScorePercent   float64 `json:"score_percent"`
}

type TestHistoryItem struct {
	SessionID      string     `json:"session_id"`
	DeckID         uint       `json:"deck_id"`
	DeckTitle      string     `json:"deck_title"`
	TotalCards     int        `json:"total_cards"`
	CorrectAnswers int        `json:"correct_answers"`
	Accuracy       float64    `json:"accuracy"`
	CompletedAt    *time.Time `json:"completed_at,omitempty"`
	IsCompleted    bool       `json:"is_completed"`
}

type TestHistoryPage struct {
	Items []TestHistoryItem `json:"items"`
	Total int               `json:"total"`
	Page  int               `json:"page"`
	Size  int               `json:"size"`
}

// HistoryFilters narrows /tests/history.
type HistoryFilters struct {
	Page          int
	Size          int
	DeckID        *uint
	OnlyCompleted *bool
}

type TestStats struct {
	TotalTestsTaken  int                      `json:"total_tests_taken"`
	TotalDecksTested int                      `json:"total_decks_tested"`
	AverageAccuracy  float64                  `json:"average_accuracy"`
	FavoriteSubjects []string                 `json:"favorite_subjects"`
	RecentTests      []map[string]interface{} `json:"recent_tests"`
}

// ClampPerCardSeconds applies the default and minimum per-question budget.
func ClampPerCardSeconds(seconds int) int {
	if seconds == 0 {
		return DefaultPerCardSeconds
	}
	if seconds < MinPerCardSeconds {
		return MinPerCardSeconds
	}
	return seconds
}
