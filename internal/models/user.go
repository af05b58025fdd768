package models

// Credentials is the registration payload.
type Credentials struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8,max=128"`
}

// Me is the authenticated user as reported by GET /auth/me.
type Me struct {
	ID    uint   `json:"id"`
	Email string `json:"email"`
}

// Token is the pair issued by login and refresh.
type Token struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
}
