package dto

type LoginRequest struct {
	Email    string `json:"email" validate:"max=320"`
	Password string `json:"password" validate:"max=256"`
}

type ConsentURLResponse struct {
	URL string `json:"url"`
}

type ExchangeCodeRequest struct {
	Code string `json:"code" validate:"required"`
}

type TokenResponse struct {
	AccessToken  string        `json:"access_token"`
	RefreshToken string        `json:"refresh_token"`
	ExpiresIn    int64         `json:"expires_in"`
	User         *UserResponse `json:"user,omitempty"`
}

type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token"`
}
