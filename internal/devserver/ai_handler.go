package devserver

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/flashdeck/flashdeck-cli/internal/models"
	"github.com/flashdeck/flashdeck-cli/internal/utils"
	"github.com/flashdeck/flashdeck-cli/internal/validator"
)

// aiHandler fakes the generation endpoint with deterministic templates so
// the client's binding can be exercised without a model behind it.
type aiHandler struct {
	logger    utils.Logger
	validator *validator.Validator
}

func (h *aiHandler) GenerateCard(c *gin.Context) {
	var req models.AIGenerateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortDetail(c, http.StatusUnprocessableEntity, "invalid request body")
		return
	}
	if err := h.validator.Validate(&req); err != nil {
		abortDetail(c, http.StatusUnprocessableEntity, err.Error())
		return
	}

	topic := strings.TrimSpace(req.Prompt)
	question := templateFor(req.DesiredQType, topic)
	h.logger.Info("generated card", "qtype", req.DesiredQType)
	c.JSON(http.StatusOK, question)
}

func templateFor(qtype models.QType, topic string) models.AIQuestion {
	switch qtype {
	case models.QTypeSingleChoice:
		return models.AIQuestion{
			Question: fmt.Sprintf("Which statement about %s is true?", topic),
			Answer:   fmt.Sprintf("%s: statement A", topic),
			QType:    qtype,
			Options: []string{
				fmt.Sprintf("%s: statement A", topic),
				fmt.Sprintf("%s: statement B", topic),
				fmt.Sprintf("%s: statement C", topic),
				fmt.Sprintf("%s: statement D", topic),
			},
		}
	case models.QTypeMatch:
		return models.AIQuestion{
			Question: fmt.Sprintf("%s term 1|%s term 2|%s term 3|%s term 4", topic, topic, topic, topic),
			QType:    qtype,
			Options: []string{
				"definition 1", "definition 2", "definition 3", "definition 4",
			},
		}
	case models.QTypeFlashcard:
		return models.AIQuestion{
			Question: fmt.Sprintf("Explain: %s", topic),
			Answer:   fmt.Sprintf("A short explanation of %s.", topic),
			QType:    qtype,
		}
	default:
		return models.AIQuestion{
			Question: fmt.Sprintf("Fill in the blank about %s: ____", topic),
			Answer:   topic,
			QType:    models.QTypeFillIn,
		}
	}
}
