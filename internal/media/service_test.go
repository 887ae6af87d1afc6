package media

import (
	"context"
	"encoding/base64"
	"strings"
	"testing"

	"github.com/quartermasterhq/quartermaster-backend/pkg/config"
	pkgerrors "github.com/quartermasterhq/quartermaster-backend/pkg/errors"
)

type fakeObjectStore struct {
	puts        int
	lastKey     string
	lastType    string
	lastPayload []byte
	err         error
}

func (f *fakeObjectStore) Put(_ context.Context, key string, body []byte, contentType string) error {
	if f.err != nil {
		return f.err
	}
	f.puts++
	f.lastKey = key
	f.lastType = contentType
	f.lastPayload = body
	return nil
}

func pngDataURL(t *testing.T, payload []byte) string {
	t.Helper()
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(payload)
}

func newMediaService(t *testing.T, store *fakeObjectStore) Service {
	t.Helper()
	svc, err := NewService(store, config.MediaConfig{MaxUploadMB: 1})
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc
}

func TestUploadWritesExactlyOnce(t *testing.T) {
	store := &fakeObjectStore{}
	svc := newMediaService(t, store)

	payload := []byte{0x89, 0x50, 0x4e, 0x47}
	result, err := svc.Upload(context.Background(), "badge.png", pngDataURL(t, payload))
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if store.puts != 1 {
		t.Fatalf("expected exactly one object write, got %d", store.puts)
	}
	if store.lastKey != "images/badge.png" {
		t.Fatalf("unexpected key %q", store.lastKey)
	}
	if !result.OK || result.ContentType != "image/png" || result.Bytes != len(payload) {
		t.Fatalf("unexpected result %+v", result)
	}
}

func TestUploadRejectsMalformedDataURL(t *testing.T) {
	store := &fakeObjectStore{}
	svc := newMediaService(t, store)

	for _, raw := range []string{
		"not a data url",
		"data:image/png;base64",
		"data:image/png;base64,@@@not-base64@@@",
	} {
		_, err := svc.Upload(context.Background(), "x.png", raw)
		if err == nil || pkgerrors.As(err).Message() != "Invalid data URL" {
			t.Errorf("input %q: expected Invalid data URL, got %v", raw, err)
		}
	}
	if store.puts != 0 {
		t.Fatalf("rejected payloads must not reach the store, got %d writes", store.puts)
	}
}

func TestUploadRejectsNonImage(t *testing.T) {
	store := &fakeObjectStore{}
	svc := newMediaService(t, store)

	raw := "data:application/pdf;base64," + base64.StdEncoding.EncodeToString([]byte("%PDF"))
	_, err := svc.Upload(context.Background(), "doc.pdf", raw)
	if err == nil || !strings.Contains(err.Error(), "Invalid content-type: application/pdf. Expected image/*") {
		t.Fatalf("expected content-type rejection, got %v", err)
	}
	if store.puts != 0 {
		t.Fatalf("rejected payloads must not reach the store")
	}
}

func TestUploadRejectsOversizedPayload(t *testing.T) {
	store := &fakeObjectStore{}
	svc := newMediaService(t, store)

	big := make([]byte, 1024*1024+1)
	_, err := svc.Upload(context.Background(), "big.png", pngDataURL(t, big))
	if pkgerrors.As(err).Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
	if store.puts != 0 {
		t.Fatalf("oversized payloads must not reach the store")
	}
}

func TestUploadAcceptsCaseInsensitiveScheme(t *testing.T) {
	store := &fakeObjectStore{}
	svc := newMediaService(t, store)

	raw := "DATA:IMAGE/JPEG;BASE64," + base64.StdEncoding.EncodeToString([]byte{0xff, 0xd8})
	result, err := svc.Upload(context.Background(), "photo", raw)
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if result.ContentType != "image/jpeg" {
		t.Fatalf("expected lowered content type, got %q", result.ContentType)
	}
}

func TestStoreSanitizesKeys(t *testing.T) {
	store := &fakeObjectStore{}
	svc := newMediaService(t, store)

	result, err := svc.Store(context.Background(), "//items/../../secret\r\n.png", pngDataURL(t, []byte{1}))
	if err != nil {
		t.Fatalf("Store: %v", err)
	}
	if strings.Contains(result.Key, "..") || strings.HasPrefix(result.Key, "/") ||
		strings.ContainsAny(result.Key, "\r\n") {
		t.Fatalf("key not sanitized: %q", result.Key)
	}
}

func TestExtensionFor(t *testing.T) {
	cases := map[string]string{
		"image/jpeg":    "jpg",
		"image/png":     "png",
		"image/webp":    "webp",
		"image/svg+xml": "svg",
		"image/heic":    "heic",
		"nonsense":      "bin",
	}
	for in, want := range cases {
		if got := ExtensionFor(in); got != want {
			t.Errorf("ExtensionFor(%q) = %q, want %q", in, got, want)
		}
	}
}
