package models

// AIGenerateRequest asks the backend to draft a card from a prompt. The
// generation itself runs server-side; the client only carries the request.
type AIGenerateRequest struct {
	Prompt       string `json:"prompt" validate:"required,min=3,max=2000"`
	DesiredQType QType  `json:"desired_qtype" validate:"required,qtype"`
	Count        int    `json:"count,omitempty" validate:"omitempty,min=1,max=20"`
}

// AIQuestion is a generated card candidate, not yet persisted to any deck.
type AIQuestion struct {
	Question string   `json:"question"`
	Answer   string   `json:"answer"`
	QType    QType    `json:"qtype"`
	Options  []string `json:"options,omitempty"`
}
