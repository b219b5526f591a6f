package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
)

var ErrInvalidKey = errors.New("invalid object key")

type LocalProvider struct {
	root      string
	publicURL string
}

// NewLocalProvider writes objects below root and links them under publicURL,
// which defaults to /uploads.
func NewLocalProvider(root, publicURL string) (*LocalProvider, error) {
	if root == "" {
		root = "uploads"
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create storage dir: %w", err)
	}
	if publicURL == "" {
		publicURL = "/uploads"
	}
	return &LocalProvider{root: root, publicURL: strings.TrimRight(publicURL, "/")}, nil
}

func (p *LocalProvider) Root() string {
	return p.root
}

func (p *LocalProvider) path(key string) (string, error) {
	clean := path.Clean("/" + key)
	if key == "" || clean == "/" || clean != "/"+key {
		return "", ErrInvalidKey
	}
	return filepath.Join(p.root, filepath.FromSlash(clean)), nil
}

func (p *LocalProvider) Upload(ctx context.Context, key string, r io.Reader, size int64, contentType string) (string, error) {
	dst, err := p.path(key)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return "", err
	}

	out, err := os.Create(dst)
	if err != nil {
		return "", err
	}

	if _, err := io.Copy(out, r); err != nil {
		_ = out.Close()
		_ = os.Remove(dst)
		return "", err
	}
	if err := out.Close(); err != nil {
		_ = os.Remove(dst)
		return "", err
	}

	return p.URL(key), nil
}

func (p *LocalProvider) Delete(ctx context.Context, key string) error {
	dst, err := p.path(key)
	if err != nil {
		return err
	}
	if err := os.Remove(dst); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

func (p *LocalProvider) URL(key string) string {
	return p.publicURL + "/" + key
}
