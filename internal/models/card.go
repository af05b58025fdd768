package models

import "fmt"

// QType identifies how a card is asked and answered.
type QType string

const (
	QTypeSingleChoice QType = "mcq"
	QTypeFillIn       QType = "fillups"
	QTypeMatch        QType = "match"
	QTypeFlashcard    QType = "flashcard"
)

func (q QType) Valid() bool {
	switch q {
	case QTypeSingleChoice, QTypeFillIn, QTypeMatch, QTypeFlashcard:
		return true
	}
	return false
}

// AllQTypes lists every question type in render order.
func AllQTypes() []QType {
	return []QType{QTypeSingleChoice, QTypeFillIn, QTypeMatch, QTypeFlashcard}
}

// Card is a single question owned by a deck. Cards are read-only once
// fetched for a test session; the backend is the source of truth.
//
// For match cards, Question holds up to four left-hand prompts delimited by
// "|" and Options holds the four right-hand values in canonical order.
type Card struct {
	ID       uint     `json:"id"`
	Question string   `json:"question" validate:"required,min=1,max=2000"`
	Answer   string   `json:"answer" validate:"max=2000"`
	QType    QType    `json:"qtype" validate:"required,qtype"`
	Options  []string `json:"options,omitempty" validate:"omitempty,max=10,dive,max=500"`
}

// CardCreate is the payload for creating or generating a card.
type CardCreate struct {
	Question string   `json:"question" validate:"required,min=1,max=2000"`
	Answer   string   `json:"answer" validate:"max=2000"`
	QType    QType    `json:"qtype" validate:"required,qtype"`
	Options  []string `json:"options,omitempty" validate:"omitempty,max=10,dive,max=500"`
}

// CardUpdate carries a partial card update; nil fields are left untouched.
type CardUpdate struct {
	Question *string   `json:"question,omitempty" validate:"omitempty,min=1,max=2000"`
	Answer   *string   `json:"answer,omitempty" validate:"omitempty,max=2000"`
	QType    *QType    `json:"qtype,omitempty" validate:"omitempty,qtype"`
	Options  *[]string `json:"options,omitempty"`
}

// DispatchQType routes a card to the handler for its question type.
// Exactly one of the callbacks runs; unknown types return an error so the
// render layer cannot silently skip a card.
func DispatchQType[T any](card *Card, onSingleChoice, onFillIn, onMatch, onFlashcard func(*Card) T) (T, error) {
	var zero T
	switch card.QType {
	case QTypeSingleChoice:
		return onSingleChoice(card), nil
	case QTypeFillIn:
		return onFillIn(card), nil
	case QTypeMatch:
		return onMatch(card), nil
	case QTypeFlashcard:
		return onFlashcard(card), nil
	default:
		return zero, fmt.Errorf("unknown question type %q", card.QType)
	}
}
