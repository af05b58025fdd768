package devserver

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/flashdeck/flashdeck-cli/internal/utils"
	"github.com/flashdeck/flashdeck-cli/internal/validator"
)

const userKey = "devserver_user"

// Server is a self-contained in-memory backend speaking the same REST
// surface as the production service. It backs offline development and the
// end-to-end tests; state lives only as long as the process.
type Server struct {
	store     *store
	logger    utils.Logger
	validator *validator.Validator

	auth  *authHandler
	decks *deckHandler
	tests *testHandler
	ai    *aiHandler
}

func New(logger utils.Logger) *Server {
	st := newStore()
	v := validator.New()

	return &Server{
		store:     st,
		logger:    logger,
		validator: v,
		auth:      &authHandler{store: st, logger: logger, validator: v},
		decks:     &deckHandler{store: st, logger: logger, validator: v},
		tests:     &testHandler{store: st, logger: logger},
		ai:        &aiHandler{logger: logger, validator: v},
	}
}

// Router builds the gin engine with all routes registered.
func (s *Server) Router() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(utils.LoggerMiddleware(s.logger))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	auth := router.Group("/auth")
	{
		auth.POST("/register", s.auth.Register)
		auth.POST("/login", s.auth.Login)
		auth.POST("/refresh", s.auth.Refresh)
		auth.POST("/logout", s.requireAuth, s.auth.Logout)
		auth.GET("/me", s.requireAuth, s.auth.Me)
	}

	decks := router.Group("/decks", s.requireAuth)
	{
		decks.GET("/", s.decks.List)
		decks.POST("/", s.decks.Create)
		decks.GET("/my", s.decks.Mine)
		decks.GET("/public", s.decks.Public)
		decks.GET("/:id", s.decks.Get)
		decks.PATCH("/:id", s.decks.Update)
		decks.DELETE("/:id", s.decks.Delete)
		decks.POST("/:id/like", s.decks.Like)
		decks.DELETE("/:id/like", s.decks.Unlike)
		decks.POST("/:id/favorite", s.decks.Favorite)
		decks.DELETE("/:id/favorite", s.decks.Unfavorite)
		decks.GET("/:id/cards", s.decks.ListCards)
		decks.POST("/:id/cards", s.decks.CreateCard)
		decks.GET("/:id/cards/:card_id", s.decks.GetCard)
		decks.PATCH("/:id/cards/:card_id", s.decks.UpdateCard)
		decks.DELETE("/:id/cards/:card_id", s.decks.DeleteCard)
	}

	tests := router.Group("/tests", s.requireAuth)
	{
		tests.POST("/start", s.tests.Start)
		tests.POST("/submit-answer", s.tests.SubmitAnswer)
		tests.POST("/complete", s.tests.Complete)
		tests.GET("/results", s.tests.Results)
		tests.GET("/result-summary", s.tests.ResultSummary)
		tests.GET("/history", s.tests.History)
		tests.GET("/stats", s.tests.Stats)
		tests.GET("/leaderboard", s.tests.Leaderboard)
		tests.GET("/random-deck", s.tests.RandomDeck)
	}

	router.DELETE("/history/:session_id", s.requireAuth, s.tests.DeleteHistory)
	router.POST("/ai/generate-card", s.requireAuth, s.ai.GenerateCard)

	return router
}

// ExpireAccessTokens invalidates every live access token while leaving
// refresh tokens valid. Tests use it to force the client's refresh path.
func (s *Server) ExpireAccessTokens() {
	s.store.expireAccessTokens()
}

// requireAuth resolves the bearer token to a user and aborts with the
// backend's 401 shape when it cannot.
func (s *Server) requireAuth(c *gin.Context) {
	header := c.GetHeader("Authorization")
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || token == "" {
		abortDetail(c, http.StatusUnauthorized, "Not authenticated")
		return
	}

	u, found := s.store.userByAccessToken(token)
	if !found {
		abortDetail(c, http.StatusUnauthorized, "Could not validate credentials")
		return
	}

	c.Set(userKey, u)
	c.Next()
}

func currentUser(c *gin.Context) *user {
	u, _ := c.Get(userKey)
	return u.(*user)
}

// abortDetail writes the backend's error envelope.
func abortDetail(c *gin.Context, status int, detail string) {
	c.AbortWithStatusJSON(status, gin.H{"detail": detail})
}
