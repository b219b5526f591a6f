package oauth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"golang.org/x/oauth2"
)

// profileFunc turns an authenticated client into an assertion.
type profileFunc func(ctx context.Context, client *http.Client) (*Assertion, error)

type oauth2Provider struct {
	name    string
	config  *oauth2.Config
	profile profileFunc
}

func (p *oauth2Provider) Name() string {
	return p.name
}

func (p *oauth2Provider) ConsentURL(state string) string {
	return p.config.AuthCodeURL(state, oauth2.AccessTypeOnline)
}

func (p *oauth2Provider) Exchange(ctx context.Context, code string) (*Assertion, error) {
	token, err := p.config.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange code: %w", err)
	}

	a, err := p.profile(ctx, p.config.Client(ctx, token))
	if err != nil {
		return nil, err
	}
	if a.Email == "" {
		return nil, ErrNoEmail
	}
	a.Provider = p.name
	return a, nil
}

func getJSON(ctx context.Context, client *http.Client, url string, dst any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("get %s: %w", url, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("get %s: status %d", url, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		return fmt.Errorf("decode %s: %w", url, err)
	}
	return nil
}
