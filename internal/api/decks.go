package api

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/flashdeck/flashdeck-cli/internal/models"
)

// ListDecks lists decks with optional search/tag/visibility/paging filters.
func (c *Client) ListDecks(ctx context.Context, filters models.DeckFilters) ([]models.Deck, error) {
	query := url.Values{}
	if filters.Search != "" {
		query.Set("search", filters.Search)
	}
	if filters.Tag != "" {
		query.Set("tag", filters.Tag)
	}
	if filters.Visibility != "" {
		query.Set("visibility", filters.Visibility)
	}
	if filters.Page > 0 {
		query.Set("page", strconv.Itoa(filters.Page))
	}
	if filters.Size > 0 {
		query.Set("size", strconv.Itoa(filters.Size))
	}

	var decks []models.Deck
	if err := c.getJSON(ctx, "/decks/", query, &decks); err != nil {
		return nil, err
	}
	return decks, nil
}

// MyDecks lists the caller's own decks.
func (c *Client) MyDecks(ctx context.Context) ([]models.Deck, error) {
	var decks []models.Deck
	if err := c.getJSON(ctx, "/decks/my", nil, &decks); err != nil {
		return nil, err
	}
	return decks, nil
}

// PublicDecks lists decks anyone may browse and test against.
func (c *Client) PublicDecks(ctx context.Context) ([]models.Deck, error) {
	var decks []models.Deck
	if err := c.getJSON(ctx, "/decks/public", nil, &decks); err != nil {
		return nil, err
	}
	return decks, nil
}

func (c *Client) CreateDeck(ctx context.Context, create models.DeckCreate) (*models.Deck, error) {
	var deck models.Deck
	if err := c.postJSON(ctx, "/decks/", nil, create, &deck); err != nil {
		return nil, err
	}
	return &deck, nil
}

func (c *Client) GetDeck(ctx context.Context, deckID uint) (*models.Deck, error) {
	var deck models.Deck
	if err := c.getJSON(ctx, fmt.Sprintf("/decks/%d", deckID), nil, &deck); err != nil {
		return nil, err
	}
	return &deck, nil
}

func (c *Client) UpdateDeck(ctx context.Context, deckID uint, update models.DeckUpdate) (*models.Deck, error) {
	var deck models.Deck
	if err := c.patchJSON(ctx, fmt.Sprintf("/decks/%d", deckID), update, &deck); err != nil {
		return nil, err
	}
	return &deck, nil
}

func (c *Client) DeleteDeck(ctx context.Context, deckID uint) error {
	return c.deleteJSON(ctx, fmt.Sprintf("/decks/%d", deckID))
}

func (c *Client) LikeDeck(ctx context.Context, deckID uint) error {
	return c.postJSON(ctx, fmt.Sprintf("/decks/%d/like", deckID), nil, nil, nil)
}

func (c *Client) UnlikeDeck(ctx context.Context, deckID uint) error {
	return c.deleteJSON(ctx, fmt.Sprintf("/decks/%d/like", deckID))
}

func (c *Client) FavoriteDeck(ctx context.Context, deckID uint) error {
	return c.postJSON(ctx, fmt.Sprintf("/decks/%d/favorite", deckID), nil, nil, nil)
}

func (c *Client) UnfavoriteDeck(ctx context.Context, deckID uint) error {
	return c.deleteJSON(ctx, fmt.Sprintf("/decks/%d/favorite", deckID))
}
