package media

import (
	"context"
	"fmt"
	"strings"

	"github.com/quartermasterhq/quartermaster-backend/pkg/config"
	pkgerrors "github.com/quartermasterhq/quartermaster-backend/pkg/errors"
)

type objectStore interface {
	Put(ctx context.Context, key string, body []byte, contentType string) error
}

// UploadResult reports what was stored after a successful upload.
type UploadResult struct {
	OK          bool   `json:"ok"`
	Key         string `json:"key"`
	ContentType string `json:"content_type"`
	Bytes       int    `json:"bytes"`
}

// Service validates data-URL image payloads and writes them to the
// object store.
type Service interface {
	// Upload stores a user-supplied image under the shared images/
	// prefix. Exactly one object write happens per accepted payload.
	Upload(ctx context.Context, key, dataURL string) (*UploadResult, error)
	// Store writes an image at the exact (sanitized) key. Used by
	// services that manage their own key layout.
	Store(ctx context.Context, key, dataURL string) (*UploadResult, error)
}

type service struct {
	store    objectStore
	maxBytes int
}

// NewService constructs the media service with the provided object store.
func NewService(store objectStore, cfg config.MediaConfig) (Service, error) {
	if store == nil {
		return nil, fmt.Errorf("object store required")
	}
	maxMB := cfg.MaxUploadMB
	if maxMB <= 0 {
		return nil, fmt.Errorf("max upload size must be positive")
	}
	return &service{store: store, maxBytes: maxMB * 1024 * 1024}, nil
}

func (s *service) Upload(ctx context.Context, key, dataURL string) (*UploadResult, error) {
	key = SanitizeKey(key)
	if key == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "upload key is required")
	}
	return s.Store(ctx, "images/"+key, dataURL)
}

func (s *service) Store(ctx context.Context, key, dataURL string) (*UploadResult, error) {
	key = SanitizeKey(key)
	if key == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "upload key is required")
	}

	contentType, payload, err := ParseDataURL(dataURL)
	if err != nil {
		return nil, err
	}
	if !strings.HasPrefix(contentType, "image/") {
		return nil, pkgerrors.New(pkgerrors.CodeValidation,
			fmt.Sprintf("Invalid content-type: %s. Expected image/*", contentType))
	}
	if len(payload) > s.maxBytes {
		return nil, pkgerrors.New(pkgerrors.CodeValidation,
			fmt.Sprintf("image exceeds the %d MB upload limit", s.maxBytes/(1024*1024)))
	}

	if err := s.store.Put(ctx, key, payload, contentType); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store image")
	}

	return &UploadResult{
		OK:          true,
		Key:         key,
		ContentType: contentType,
		Bytes:       len(payload),
	}, nil
}
