package devserver

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/flashdeck/flashdeck-cli/internal/models"
	"github.com/flashdeck/flashdeck-cli/internal/utils"
	"github.com/flashdeck/flashdeck-cli/internal/validator"
)

type authHandler struct {
	store     *store
	logger    utils.Logger
	validator *validator.Validator
}

func (h *authHandler) Register(c *gin.Context) {
	var creds models.Credentials
	if err := c.ShouldBindJSON(&creds); err != nil {
		abortDetail(c, http.StatusUnprocessableEntity, "invalid request body")
		return
	}
	if err := h.validator.Validate(&creds); err != nil {
		abortDetail(c, http.StatusUnprocessableEntity, err.Error())
		return
	}

	u, err := h.store.createUser(creds.Email, creds.Password)
	if err != nil {
		abortDetail(c, http.StatusBadRequest, "Email already registered")
		return
	}

	h.logger.Info("user registered", "user_id", u.ID)
	c.JSON(http.StatusCreated, models.Me{ID: u.ID, Email: u.Email})
}

// Login accepts the OAuth2 password-grant form: username, password,
// grant_type.
func (h *authHandler) Login(c *gin.Context) {
	email := c.PostForm("username")
	password := c.PostForm("password")
	if email == "" || password == "" {
		abortDetail(c, http.StatusUnprocessableEntity, "username and password are required")
		return
	}

	token, err := h.store.issueTokens(email, password)
	if err != nil {
		abortDetail(c, http.StatusUnauthorized, "Incorrect email or password")
		return
	}
	c.JSON(http.StatusOK, token)
}

func (h *authHandler) Refresh(c *gin.Context) {
	var body struct {
		RefreshToken string `json:"refresh_token"`
	}
	if err := c.ShouldBindJSON(&body); err != nil || body.RefreshToken == "" {
		abortDetail(c, http.StatusUnprocessableEntity, "refresh_token is required")
		return
	}

	token, err := h.store.rotateTokens(body.RefreshToken)
	if err != nil {
		if errors.Is(err, errNotFound) {
			abortDetail(c, http.StatusUnauthorized, "Invalid refresh token")
			return
		}
		abortDetail(c, http.StatusInternalServerError, err.Error())
		return
	}
	c.JSON(http.StatusOK, token)
}

func (h *authHandler) Logout(c *gin.Context) {
	u := currentUser(c)
	h.store.revokeUserTokens(u.ID)
	c.JSON(http.StatusOK, gin.H{"detail": "logged out"})
}

func (h *authHandler) Me(c *gin.Context) {
	u := currentUser(c)
	c.JSON(http.StatusOK, models.Me{ID: u.ID, Email: u.Email})
}
