package oauth

import (
	"context"
	"net/http"
	"strconv"

	"github.com/dimitrije/lectern-api/internal/config"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/github"
)

const githubAPIURL = "https://api.github.com"

func NewGitHubProvider(cfg config.OAuthConfig) Provider {
	return newGitHubProvider(cfg, githubAPIURL)
}

func newGitHubProvider(cfg config.OAuthConfig, apiURL string) *oauth2Provider {
	return &oauth2Provider{
		name: "github",
		config: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       []string{"user:email", "read:user"},
			Endpoint:     github.Endpoint,
		},
		profile: func(ctx context.Context, client *http.Client) (*Assertion, error) {
			var ghUser struct {
				ID        int64  `json:"id"`
				Login     string `json:"login"`
				Name      string `json:"name"`
				AvatarURL string `json:"avatar_url"`
			}
			if err := getJSON(ctx, client, apiURL+"/user", &ghUser); err != nil {
				return nil, err
			}

			// The public profile email is unverified; only trust /user/emails.
			email, err := githubVerifiedEmail(ctx, client, apiURL)
			if err != nil {
				return nil, err
			}

			name := ghUser.Name
			if name == "" {
				name = ghUser.Login
			}

			return &Assertion{
				Email:     email,
				Name:      name,
				AvatarURL: ghUser.AvatarURL,
				Subject:   strconv.FormatInt(ghUser.ID, 10),
			}, nil
		},
	}
}

func githubVerifiedEmail(ctx context.Context, client *http.Client, apiURL string) (string, error) {
	var emails []struct {
		Email    string `json:"email"`
		Primary  bool   `json:"primary"`
		Verified bool   `json:"verified"`
	}
	if err := getJSON(ctx, client, apiURL+"/user/emails", &emails); err != nil {
		return "", err
	}

	var fallback string
	for _, e := range emails {
		if !e.Verified {
			continue
		}
		if e.Primary {
			return e.Email, nil
		}
		if fallback == "" {
			fallback = e.Email
		}
	}
	if fallback == "" {
		return "", ErrNoEmail
	}
	return fallback, nil
}
