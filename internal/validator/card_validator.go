package validator

import (
	"strings"

	"github.com/flashdeck/flashdeck-cli/internal/models"
)

// MatchPairCount is the number of left/right pairs a match card carries.
const MatchPairCount = 4

// CardValidator handles card-content validation per question type.
type CardValidator struct{}

// NewCardValidator creates a new card validator
func NewCardValidator() *CardValidator {
	return &CardValidator{}
}

// ValidateCreate validates a card creation payload.
func (v *CardValidator) ValidateCreate(card *models.CardCreate) ValidationErrors {
	return v.validateContent(card.QType, card.Question, card.Answer, card.Options)
}

// ValidateCard validates a full card object.
func (v *CardValidator) ValidateCard(card *models.Card) ValidationErrors {
	return v.validateContent(card.QType, card.Question, card.Answer, card.Options)
}

func (v *CardValidator) validateContent(qtype models.QType, question, answer string, options []string) ValidationErrors {
	switch qtype {
	case models.QTypeSingleChoice:
		return v.validateSingleChoice(answer, options)
	case models.QTypeMatch:
		return v.validateMatch(question, options)
	case models.QTypeFillIn, models.QTypeFlashcard:
		return v.validateFreeText(answer)
	default:
		return ValidationErrors{
			*NewValidationErrorWithRule("qtype", "must be a valid question type (mcq, fillups, match, flashcard)", "qtype", string(qtype)),
		}
	}
}

func (v *CardValidator) validateSingleChoice(answer string, options []string) ValidationErrors {
	var errs ValidationErrors

	if len(options) < 2 {
		errs = append(errs, *NewValidationError("options", "single-choice cards need at least 2 options", len(options)))
	}
	if answer == "" {
		errs = append(errs, *NewValidationError("answer", "is required", nil))
		return errs
	}

	for _, opt := range options {
		if opt == answer {
			return errs
		}
	}
	errs = append(errs, *NewValidationErrorWithRule("answer", "answer must be one of the options", "answer_in_options", answer))
	return errs
}

func (v *CardValidator) validateMatch(question string, options []string) ValidationErrors {
	var errs ValidationErrors

	if len(options) != MatchPairCount {
		errs = append(errs, *NewValidationErrorWithRule("options", "match cards need exactly 4 options", "match_options", len(options)))
	}

	prompts := 0
	for _, part := range strings.Split(question, "|") {
		if strings.TrimSpace(part) != "" {
			prompts++
		}
	}
	if prompts != MatchPairCount {
		errs = append(errs, *NewValidationErrorWithRule("question", "match cards need exactly 4 |-delimited prompts", "match_prompts", prompts))
	}

	return errs
}

func (v *CardValidator) validateFreeText(answer string) ValidationErrors {
	if strings.TrimSpace(answer) == "" {
		return ValidationErrors{*NewValidationError("answer", "is required", nil)}
	}
	return nil
}
