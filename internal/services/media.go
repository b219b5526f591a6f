package services

import (
	"io"
	"mime"
	"path/filepath"
	"strings"

	"github.com/dimitrije/lectern-api/internal/sse"
	"github.com/google/uuid"
)

const (
	MaxVideoBytes     int64 = 100 << 20
	MaxDocumentBytes  int64 = 25 << 20
	MaxThumbnailBytes int64 = 5 << 20

	videoPrefix     = "class-videos"
	documentPrefix  = "documents"
	thumbnailPrefix = "thumbnails"
)

// Publisher fans content events out to live subscribers.
type Publisher interface {
	Publish(eventType string, ev sse.ContentEvent)
}

// Upload is a media body plus what the client declared about it.
type Upload struct {
	Body        io.Reader
	Size        int64
	ContentType string
	Filename    string
}

func (u Upload) mediaType() string {
	mt, _, err := mime.ParseMediaType(u.ContentType)
	if err != nil {
		return ""
	}
	return mt
}

func (u Upload) check(max int64) error {
	if u.Size <= 0 {
		return ErrMediaSize
	}
	if u.Size > max {
		return ErrMediaTooLarge
	}
	return nil
}

// objectKey builds prefix/<uuid><ext>. The client filename only contributes
// its extension.
func objectKey(prefix string, u Upload) string {
	ext := strings.ToLower(filepath.Ext(u.Filename))
	if ext == "" || len(ext) > 10 {
		ext = ""
		if exts, err := mime.ExtensionsByType(u.mediaType()); err == nil && len(exts) > 0 {
			ext = exts[0]
		}
	}
	return prefix + "/" + uuid.NewString() + ext
}

// body caps reads at the declared size so a lying Content-Length cannot
// push more than that into storage.
func (u Upload) body() io.Reader {
	return io.LimitReader(u.Body, u.Size)
}
