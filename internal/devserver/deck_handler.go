package devserver

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/flashdeck/flashdeck-cli/internal/models"
	"github.com/flashdeck/flashdeck-cli/internal/utils"
	"github.com/flashdeck/flashdeck-cli/internal/validator"
)

type deckHandler struct {
	store     *store
	logger    utils.Logger
	validator *validator.Validator
}

func parseID(c *gin.Context, param string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(param), 10, 64)
	if err != nil || id == 0 {
		abortDetail(c, http.StatusUnprocessableEntity, "invalid identifier")
		return 0, false
	}
	return uint(id), true
}

// loadDeck fetches a deck and enforces visibility: private decks are only
// visible to their owner.
func (h *deckHandler) loadDeck(c *gin.Context) (*models.Deck, bool) {
	id, ok := parseID(c, "id")
	if !ok {
		return nil, false
	}

	deck, found := h.store.deck(id)
	if !found {
		abortDetail(c, http.StatusNotFound, "Deck not found")
		return nil, false
	}

	u := currentUser(c)
	if deck.Visibility == models.VisibilityPrivate && deck.OwnerID != u.ID {
		abortDetail(c, http.StatusForbidden, "This deck is private")
		return nil, false
	}
	return deck, true
}

// loadOwnedDeck is loadDeck plus an ownership check for mutations.
func (h *deckHandler) loadOwnedDeck(c *gin.Context) (*models.Deck, bool) {
	deck, ok := h.loadDeck(c)
	if !ok {
		return nil, false
	}
	if deck.OwnerID != currentUser(c).ID {
		abortDetail(c, http.StatusForbidden, "Not the deck owner")
		return nil, false
	}
	return deck, true
}

func (h *deckHandler) List(c *gin.Context) {
	u := currentUser(c)
	search := strings.ToLower(c.Query("search"))
	tag := strings.ToLower(c.Query("tag"))
	visibility := c.Query("visibility")

	decks := h.store.listDecks(u.ID, func(d *models.Deck) bool {
		if d.Visibility == models.VisibilityPrivate && d.OwnerID != u.ID {
			return false
		}
		if visibility != "" && string(d.Visibility) != visibility {
			return false
		}
		if search != "" && !strings.Contains(strings.ToLower(d.Title), search) &&
			!strings.Contains(strings.ToLower(d.Description), search) {
			return false
		}
		if tag != "" && !strings.Contains(strings.ToLower(d.Tags), tag) {
			return false
		}
		return true
	})
	c.JSON(http.StatusOK, decks)
}

func (h *deckHandler) Mine(c *gin.Context) {
	u := currentUser(c)
	decks := h.store.listDecks(u.ID, func(d *models.Deck) bool {
		return d.OwnerID == u.ID
	})
	c.JSON(http.StatusOK, decks)
}

func (h *deckHandler) Public(c *gin.Context) {
	u := currentUser(c)
	decks := h.store.listDecks(u.ID, func(d *models.Deck) bool {
		return d.Visibility == models.VisibilityPublic
	})
	c.JSON(http.StatusOK, decks)
}

func (h *deckHandler) Create(c *gin.Context) {
	var create models.DeckCreate
	if err := c.ShouldBindJSON(&create); err != nil {
		abortDetail(c, http.StatusUnprocessableEntity, "invalid request body")
		return
	}
	if err := h.validator.Validate(&create); err != nil {
		abortDetail(c, http.StatusUnprocessableEntity, err.Error())
		return
	}

	u := currentUser(c)
	deck := h.store.createDeck(u.ID, create)
	h.logger.Info("deck created", "deck_id", deck.ID, "owner_id", u.ID)
	c.JSON(http.StatusCreated, h.store.deckView(deck, u.ID))
}

func (h *deckHandler) Get(c *gin.Context) {
	deck, ok := h.loadDeck(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, h.store.deckView(deck, currentUser(c).ID))
}

func (h *deckHandler) Update(c *gin.Context) {
	deck, ok := h.loadOwnedDeck(c)
	if !ok {
		return
	}

	var update models.DeckUpdate
	if err := c.ShouldBindJSON(&update); err != nil {
		abortDetail(c, http.StatusUnprocessableEntity, "invalid request body")
		return
	}
	if err := h.validator.Validate(&update); err != nil {
		abortDetail(c, http.StatusUnprocessableEntity, err.Error())
		return
	}

	updated, _ := h.store.updateDeck(deck.ID, update)
	c.JSON(http.StatusOK, h.store.deckView(updated, currentUser(c).ID))
}

func (h *deckHandler) Delete(c *gin.Context) {
	deck, ok := h.loadOwnedDeck(c)
	if !ok {
		return
	}
	h.store.deleteDeck(deck.ID)
	c.JSON(http.StatusOK, gin.H{"detail": "deleted"})
}

func (h *deckHandler) Like(c *gin.Context) {
	deck, ok := h.loadDeck(c)
	if !ok {
		return
	}
	h.store.setLike(deck.ID, currentUser(c).ID, true)
	c.JSON(http.StatusOK, gin.H{"detail": "liked"})
}

func (h *deckHandler) Unlike(c *gin.Context) {
	deck, ok := h.loadDeck(c)
	if !ok {
		return
	}
	h.store.setLike(deck.ID, currentUser(c).ID, false)
	c.JSON(http.StatusOK, gin.H{"detail": "unliked"})
}

func (h *deckHandler) Favorite(c *gin.Context) {
	deck, ok := h.loadDeck(c)
	if !ok {
		return
	}
	h.store.setFavourite(deck.ID, currentUser(c).ID, true)
	c.JSON(http.StatusOK, gin.H{"detail": "favorited"})
}

func (h *deckHandler) Unfavorite(c *gin.Context) {
	deck, ok := h.loadDeck(c)
	if !ok {
		return
	}
	h.store.setFavourite(deck.ID, currentUser(c).ID, false)
	c.JSON(http.StatusOK, gin.H{"detail": "unfavorited"})
}

// ===== CARDS =====

func (h *deckHandler) ListCards(c *gin.Context) {
	deck, ok := h.loadDeck(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, h.store.listCards(deck.ID))
}

func (h *deckHandler) CreateCard(c *gin.Context) {
	deck, ok := h.loadOwnedDeck(c)
	if !ok {
		return
	}

	var create models.CardCreate
	if err := c.ShouldBindJSON(&create); err != nil {
		abortDetail(c, http.StatusUnprocessableEntity, "invalid request body")
		return
	}
	if err := h.validator.Validate(&create); err != nil {
		abortDetail(c, http.StatusUnprocessableEntity, err.Error())
		return
	}

	card := h.store.createCard(deck.ID, create)
	c.JSON(http.StatusCreated, card)
}

func (h *deckHandler) GetCard(c *gin.Context) {
	deck, ok := h.loadDeck(c)
	if !ok {
		return
	}
	cardID, ok := parseID(c, "card_id")
	if !ok {
		return
	}

	card, found := h.store.card(deck.ID, cardID)
	if !found {
		abortDetail(c, http.StatusNotFound, "Card not found")
		return
	}
	c.JSON(http.StatusOK, card)
}

func (h *deckHandler) UpdateCard(c *gin.Context) {
	deck, ok := h.loadOwnedDeck(c)
	if !ok {
		return
	}
	cardID, ok := parseID(c, "card_id")
	if !ok {
		return
	}

	var update models.CardUpdate
	if err := c.ShouldBindJSON(&update); err != nil {
		abortDetail(c, http.StatusUnprocessableEntity, "invalid request body")
		return
	}

	card, found := h.store.updateCard(deck.ID, cardID, update)
	if !found {
		abortDetail(c, http.StatusNotFound, "Card not found")
		return
	}
	c.JSON(http.StatusOK, card)
}

func (h *deckHandler) DeleteCard(c *gin.Context) {
	deck, ok := h.loadOwnedDeck(c)
	if !ok {
		return
	}
	cardID, ok := parseID(c, "card_id")
	if !ok {
		return
	}

	if !h.store.deleteCard(deck.ID, cardID) {
		abortDetail(c, http.StatusNotFound, "Card not found")
		return
	}
	c.JSON(http.StatusOK, gin.H{"detail": "deleted"})
}
