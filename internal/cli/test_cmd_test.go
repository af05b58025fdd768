package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/flashdeck/flashdeck-cli/internal/models"
)

func TestAnswerProblem(t *testing.T) {
	mcq := &models.Card{
		QType:   models.QTypeSingleChoice,
		Options: []string{"Mercury", "Venus", "Earth", "Mars"},
	}
	fill := &models.Card{QType: models.QTypeFillIn}

	tests := []struct {
		name    string
		card    *models.Card
		answer  string
		problem bool
	}{
		{"blank fill-in", fill, "", true},
		{"whitespace fill-in", fill, "   \t", true},
		{"fill-in text", fill, "mitochondria", false},
		{"blank single-choice", mcq, "", true},
		{"option text", mcq, "Venus", false},
		{"option text case-insensitive", mcq, "  venus ", false},
		{"free text not among options", mcq, "Pluto", true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			problem := answerProblem(tc.card, tc.answer)
			if tc.problem {
				assert.NotEmpty(t, problem)
			} else {
				assert.Empty(t, problem)
			}
		})
	}
}
