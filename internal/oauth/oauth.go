package oauth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
)

// Assertion is a verified identity claim returned by an external provider
// after its own authentication.
type Assertion struct {
	Email     string
	Name      string
	AvatarURL string
	Subject   string
	Provider  string
}

var ErrNoEmail = errors.New("provider returned no email address")

type Provider interface {
	Name() string
	ConsentURL(state string) string
	Exchange(ctx context.Context, code string) (*Assertion, error)
}

func GenerateState() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(b), nil
}
