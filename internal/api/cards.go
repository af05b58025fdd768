package api

import (
	"context"
	"fmt"

	"github.com/flashdeck/flashdeck-cli/internal/models"
)

// ListCards returns a deck's cards in their stored order.
func (c *Client) ListCards(ctx context.Context, deckID uint) ([]models.Card, error) {
	var cards []models.Card
	if err := c.getJSON(ctx, fmt.Sprintf("/decks/%d/cards", deckID), nil, &cards); err != nil {
		return nil, err
	}
	return cards, nil
}

func (c *Client) CreateCard(ctx context.Context, deckID uint, create models.CardCreate) (*models.Card, error) {
	var card models.Card
	if err := c.postJSON(ctx, fmt.Sprintf("/decks/%d/cards", deckID), nil, create, &card); err != nil {
		return nil, err
	}
	return &card, nil
}

func (c *Client) GetCard(ctx context.Context, deckID, cardID uint) (*models.Card, error) {
	var card models.Card
	if err := c.getJSON(ctx, fmt.Sprintf("/decks/%d/cards/%d", deckID, cardID), nil, &card); err != nil {
		return nil, err
	}
	return &card, nil
}

func (c *Client) UpdateCard(ctx context.Context, deckID, cardID uint, update models.CardUpdate) (*models.Card, error) {
	var card models.Card
	if err := c.patchJSON(ctx, fmt.Sprintf("/decks/%d/cards/%d", deckID, cardID), update, &card); err != nil {
		return nil, err
	}
	return &card, nil
}

func (c *Client) DeleteCard(ctx context.Context, deckID, cardID uint) error {
	return c.deleteJSON(ctx, fmt.Sprintf("/decks/%d/cards/%d", deckID, cardID))
}

// GenerateCard asks the backend's AI endpoint to draft a card. Generation
// itself is the backend's concern; this is only the binding.
func (c *Client) GenerateCard(ctx context.Context, req models.AIGenerateRequest) (*models.AIQuestion, error) {
	var question models.AIQuestion
	if err := c.postJSON(ctx, "/ai/generate-card", nil, req, &question); err != nil {
		return nil, err
	}
	return &question, nil
}
