package models

import "time"

type DeckVisibility string

const (
	VisibilityPublic  DeckVisibility = "public"
	VisibilityPrivate DeckVisibility = "private"
)

func (v DeckVisibility) Valid() bool {
	return v == VisibilityPublic || v == VisibilityPrivate
}

// Deck is a collection of cards as the backend reports it.
type Deck struct {
	ID          uint           `json:"id"`
	Title       string         `json:"title"`
	Description string         `json:"description,omitempty"`
	Tags        string         `json:"tags,omitempty"`
	Visibility  DeckVisibility `json:"visibility"`
	OwnerID     uint           `json:"owner_id"`
	CreatedAt   time.Time      `json:"created_at"`
	CardCount   int            `json:"card_count,omitempty"`
	Favourite   bool           `json:"favourite"`
	LikeCount   int            `json:"like_count"`
	Liked       bool           `json:"liked"`
}

type DeckCreate struct {
	Title       string         `json:"title" validate:"required,min=1,max=200"`
	Description string         `json:"description,omitempty" validate:"max=1000"`
	Tags        string         `json:"tags,omitempty" validate:"max=200"`
	Visibility  DeckVisibility `json:"visibility" validate:"required,visibility"`
}

type DeckUpdate struct {
	Title       *string `json:"title,omitempty" validate:"omitempty,min=1,max=200"`
	Description *string `json:"description,omitempty" validate:"omitempty,max=1000"`
}

// DeckFilters narrows deck listing on the backend.
type DeckFilters struct {
	Search     string
	Tag        string
	Visibility string
	Page       int
	Size       int
}
