package oauth

import (
	"context"
	"net/http"

	"github.com/dimitrije/lectern-api/internal/config"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

const googleUserInfoURL = "https://www.googleapis.com/oauth2/v2/userinfo"

func NewGoogleProvider(cfg config.OAuthConfig) Provider {
	return newGoogleProvider(cfg, googleUserInfoURL)
}

func newGoogleProvider(cfg config.OAuthConfig, userInfoURL string) *oauth2Provider {
	return &oauth2Provider{
		name: "google",
		config: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes: []string{
				"https://www.googleapis.com/auth/userinfo.email",
				"https://www.googleapis.com/auth/userinfo.profile",
			},
			Endpoint: google.Endpoint,
		},
		profile: func(ctx context.Context, client *http.Client) (*Assertion, error) {
			var gUser struct {
				ID            string `json:"id"`
				Email         string `json:"email"`
				VerifiedEmail bool   `json:"verified_email"`
				Name          string `json:"name"`
				Picture       string `json:"picture"`
			}
			if err := getJSON(ctx, client, userInfoURL, &gUser); err != nil {
				return nil, err
			}
			if !gUser.VerifiedEmail {
				return nil, ErrNoEmail
			}
			return &Assertion{
				Email:     gUser.Email,
				Name:      gUser.Name,
				AvatarURL: gUser.Picture,
				Subject:   gUser.ID,
			}, nil
		},
	}
}
