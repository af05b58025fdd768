package devserver

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/flashdeck/flashdeck-cli/internal/models"
)

var (
	errNotFound       = errors.New("not found")
	errEmailTaken     = errors.New("email already registered")
	errBadCredentials = errors.New("incorrect email or password")
)

type user struct {
	ID       uint
	Email    string
	Password string
}

type testSession struct {
	ID          string
	DeckID      uint
	UserID      uint
	PerCard     int
	TotalTime   *int
	StartedAt   time.Time
	Answers     []models.TestAnswer
	Completed   bool
	CompletedAt time.Time
}

// store is the dev server's in-memory state. It exists so the client can be
// exercised without the production backend; nothing here persists.
type store struct {
	mu sync.Mutex

	userSeq uint
	users   map[uint]*user
	byEmail map[string]*user

	deckSeq uint
	decks   map[uint]*models.Deck
	cardSeq uint
	cards   map[uint][]models.Card // deck id -> cards in stored order

	likes      map[uint]map[uint]bool // deck id -> user ids
	favourites map[uint]map[uint]bool

	access   map[string]uint // access token -> user id
	refresh  map[string]uint
	sessions map[string]*testSession
}

func newStore() *store {
	return &store{
		users:      make(map[uint]*user),
		byEmail:    make(map[string]*user),
		decks:      make(map[uint]*models.Deck),
		cards:      make(map[uint][]models.Card),
		likes:      make(map[uint]map[uint]bool),
		favourites: make(map[uint]map[uint]bool),
		access:     make(map[string]uint),
		refresh:    make(map[string]uint),
		sessions:   make(map[string]*testSession),
	}
}

func newToken() string {
	buf := make([]byte, 24)
	rand.Read(buf)
	return hex.EncodeToString(buf)
}

// ===== USERS & TOKENS =====

func (s *store) createUser(email, password string) (*user, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := strings.ToLower(email)
	if _, exists := s.byEmail[key]; exists {
		return nil, errEmailTaken
	}

	s.userSeq++
	u := &user{ID: s.userSeq, Email: email, Password: password}
	s.users[u.ID] = u
	s.byEmail[key] = u
	return u, nil
}

func (s *store) issueTokens(email, password string) (*models.Token, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.byEmail[strings.ToLower(email)]
	if !ok || u.Password != password {
		return nil, errBadCredentials
	}
	return s.issueLocked(u.ID), nil
}

// rotateTokens swaps a refresh token for a new pair, invalidating the old
// one.
func (s *store) rotateTokens(refreshToken string) (*models.Token, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	userID, ok := s.refresh[refreshToken]
	if !ok {
		return nil, errNotFound
	}
	delete(s.refresh, refreshToken)
	return s.issueLocked(userID), nil
}

func (s *store) issueLocked(userID uint) *models.Token {
	token := &models.Token{
		AccessToken:  newToken(),
		RefreshToken: newToken(),
		TokenType:    "bearer",
	}
	s.access[token.AccessToken] = userID
	s.refresh[token.RefreshToken] = userID
	return token
}

func (s *store) userByAccessToken(token string) (*user, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.access[token]
	if !ok {
		return nil, false
	}
	u, ok := s.users[id]
	return u, ok
}

func (s *store) revokeUserTokens(userID uint) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for t, id := range s.access {
		if id == userID {
			delete(s.access, t)
		}
	}
	for t, id := range s.refresh {
		if id == userID {
			delete(s.refresh, t)
		}
	}
}

// expireAccessTokens invalidates all access tokens but keeps refresh tokens
// valid. Test hook for exercising the client's refresh-and-retry.
func (s *store) expireAccessTokens() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.access = make(map[string]uint)
}

// ===== DECKS & CARDS =====

func (s *store) createDeck(ownerID uint, create models.DeckCreate) *models.Deck {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.deckSeq++
	deck := &models.Deck{
		ID:          s.deckSeq,
		Title:       create.Title,
		Description: create.Description,
		Tags:        create.Tags,
		Visibility:  create.Visibility,
		OwnerID:     ownerID,
		CreatedAt:   time.Now(),
	}
	s.decks[deck.ID] = deck
	s.likes[deck.ID] = make(map[uint]bool)
	s.favourites[deck.ID] = make(map[uint]bool)
	return deck
}

func (s *store) deck(id uint) (*models.Deck, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	deck, ok := s.decks[id]
	return deck, ok
}

// deckView decorates a deck with the caller's like/favourite state and the
// card count.
func (s *store) deckView(deck *models.Deck, userID uint) models.Deck {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.deckViewLocked(deck, userID)
}

func (s *store) deckViewLocked(deck *models.Deck, userID uint) models.Deck {
	view := *deck
	view.CardCount = len(s.cards[deck.ID])
	view.LikeCount = len(s.likes[deck.ID])
	view.Liked = s.likes[deck.ID][userID]
	view.Favourite = s.favourites[deck.ID][userID]
	return view
}

func (s *store) listDecks(userID uint, filter func(*models.Deck) bool) []models.Deck {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]models.Deck, 0)
	for id := uint(1); id <= s.deckSeq; id++ {
		deck, ok := s.decks[id]
		if !ok || !filter(deck) {
			continue
		}
		out = append(out, s.deckViewLocked(deck, userID))
	}
	return out
}

func (s *store) updateDeck(id uint, update models.DeckUpdate) (*models.Deck, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	deck, ok := s.decks[id]
	if !ok {
		return nil, false
	}
	if update.Title != nil {
		deck.Title = *update.Title
	}
	if update.Description != nil {
		deck.Description = *update.Description
	}
	return deck, true
}

func (s *store) deleteDeck(id uint) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.decks, id)
	delete(s.cards, id)
	delete(s.likes, id)
	delete(s.favourites, id)
}

func (s *store) setLike(deckID, userID uint, liked bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if set, ok := s.likes[deckID]; ok {
		if liked {
			set[userID] = true
		} else {
			delete(set, userID)
		}
	}
}

func (s *store) setFavourite(deckID, userID uint, fav bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if set, ok := s.favourites[deckID]; ok {
		if fav {
			set[userID] = true
		} else {
			delete(set, userID)
		}
	}
}

func (s *store) createCard(deckID uint, create models.CardCreate) models.Card {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cardSeq++
	card := models.Card{
		ID:       s.cardSeq,
		Question: create.Question,
		Answer:   create.Answer,
		QType:    create.QType,
		Options:  create.Options,
	}
	s.cards[deckID] = append(s.cards[deckID], card)
	return card
}

func (s *store) listCards(deckID uint) []models.Card {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.Card(nil), s.cards[deckID]...)
}

func (s *store) card(deckID, cardID uint) (models.Card, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, card := range s.cards[deckID] {
		if card.ID == cardID {
			return card, true
		}
	}
	return models.Card{}, false
}

func (s *store) updateCard(deckID, cardID uint, update models.CardUpdate) (models.Card, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cards := s.cards[deckID]
	for i := range cards {
		if cards[i].ID != cardID {
			continue
		}
		if update.Question != nil {
			cards[i].Question = *update.Question
		}
		if update.Answer != nil {
			cards[i].Answer = *update.Answer
		}
		if update.QType != nil {
			cards[i].QType = *update.QType
		}
		if update.Options != nil {
			cards[i].Options = *update.Options
		}
		return cards[i], true
	}
	return models.Card{}, false
}

func (s *store) deleteCard(deckID, cardID uint) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	cards := s.cards[deckID]
	for i := range cards {
		if cards[i].ID == cardID {
			s.cards[deckID] = append(cards[:i], cards[i+1:]...)
			return true
		}
	}
	return false
}

// ===== TEST SESSIONS =====

func (s *store) startSession(userID uint, create models.TestSessionCreate) *testSession {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess := &testSession{
		ID:        newToken(),
		DeckID:    create.DeckID,
		UserID:    userID,
		PerCard:   models.ClampPerCardSeconds(create.PerCardSeconds),
		TotalTime: create.TotalTimeSeconds,
		StartedAt: time.Now(),
	}
	s.sessions[sess.ID] = sess
	return sess
}

func (s *store) session(id string) (*testSession, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	return sess, ok
}

func (s *store) recordAnswer(sess *testSession, answer models.TestAnswer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess.Answers = append(sess.Answers, answer)
}

func (s *store) completeSession(sess *testSession) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess.Completed = true
	sess.CompletedAt = time.Now()
}

func (s *store) userSessions(userID uint) []*testSession {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*testSession, 0)
	for _, sess := range s.sessions {
		if sess.UserID == userID {
			out = append(out, sess)
		}
	}
	return out
}

func (s *store) deleteSession(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[id]; !ok {
		return false
	}
	delete(s.sessions, id)
	return true
}
