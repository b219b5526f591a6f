package oauth

import (
	"context"
	"testing"

	"github.com/dimitrije/lectern-api/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

func TestGoogleProvider_Name(t *testing.T) {
	provider := NewGoogleProvider(config.OAuthConfig{})
	assert.Equal(t, "google", provider.Name())
}

func TestGoogleProvider_ConsentURL(t *testing.T) {
	provider := NewGoogleProvider(config.OAuthConfig{
		ClientID:    "test-client-id",
		RedirectURL: "http://localhost/callback",
	})

	url := provider.ConsentURL("test-state")

	assert.Contains(t, url, "accounts.google.com")
	assert.Contains(t, url, "client_id=test-client-id")
	assert.Contains(t, url, "state=test-state")
}

func TestGoogleProvider_Config(t *testing.T) {
	p := newGoogleProvider(config.OAuthConfig{ClientID: "id"}, googleUserInfoURL)

	assert.Contains(t, p.config.Scopes, "https://www.googleapis.com/auth/userinfo.email")
	assert.Contains(t, p.config.Scopes, "https://www.googleapis.com/auth/userinfo.profile")
	assert.Equal(t, google.Endpoint.AuthURL, p.config.Endpoint.AuthURL)
	assert.Equal(t, google.Endpoint.TokenURL, p.config.Endpoint.TokenURL)
}

func TestGoogleProvider_Exchange(t *testing.T) {
	srv := newFakeProviderServer(t, map[string]string{
		"/userinfo": `{"id": "g-1", "email": "jane@example.com", "verified_email": true, "name": "Jane", "picture": "https://pic"}`,
	})
	p := newGoogleProvider(config.OAuthConfig{ClientID: "id"}, srv.URL+"/userinfo")
	p.config.Endpoint = oauth2.Endpoint{TokenURL: srv.URL + "/token"}

	a, err := p.Exchange(context.Background(), "code")

	require.NoError(t, err)
	assert.Equal(t, &Assertion{
		Email:     "jane@example.com",
		Name:      "Jane",
		AvatarURL: "https://pic",
		Subject:   "g-1",
		Provider:  "google",
	}, a)
}

func TestGoogleProvider_Exchange_UnverifiedEmail(t *testing.T) {
	srv := newFakeProviderServer(t, map[string]string{
		"/userinfo": `{"id": "g-1", "email": "jane@example.com", "verified_email": false, "name": "Jane"}`,
	})
	p := newGoogleProvider(config.OAuthConfig{ClientID: "id"}, srv.URL+"/userinfo")
	p.config.Endpoint = oauth2.Endpoint{TokenURL: srv.URL + "/token"}

	_, err := p.Exchange(context.Background(), "code")

	assert.ErrorIs(t, err, ErrNoEmail)
}
