package media

import (
	"encoding/base64"
	"mime"
	"regexp"
	"strings"

	pkgerrors "github.com/quartermasterhq/quartermaster-backend/pkg/errors"
)

var dataURLPattern = regexp.MustCompile(`(?i)^data:([\w.+/-]+);base64,(.+)$`)

// ParseDataURL splits a base64 data URL into its content type and
// decoded payload. The payload is rejected when the envelope or the
// base64 body is malformed.
func ParseDataURL(raw string) (string, []byte, error) {
	match := dataURLPattern.FindStringSubmatch(strings.TrimSpace(raw))
	if match == nil {
		return "", nil, pkgerrors.New(pkgerrors.CodeValidation, "Invalid data URL")
	}

	contentType := strings.ToLower(match[1])
	payload, err := base64.StdEncoding.DecodeString(match[2])
	if err != nil {
		return "", nil, pkgerrors.New(pkgerrors.CodeValidation, "Invalid data URL")
	}
	return contentType, payload, nil
}

// ExtensionFor maps an image content type to a file extension without
// the leading dot. JPEG normalizes to "jpg"; unknown subtypes fall back
// to the raw subtype.
func ExtensionFor(contentType string) string {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		mediaType = contentType
	}
	_, subtype, found := strings.Cut(mediaType, "/")
	if !found || subtype == "" {
		return "bin"
	}
	switch subtype {
	case "jpeg":
		return "jpg"
	case "svg+xml":
		return "svg"
	default:
		return subtype
	}
}

// SanitizeKey strips characters that would let a caller escape the
// intended object prefix: leading slashes, parent traversals, CR, LF.
func SanitizeKey(key string) string {
	key = strings.TrimSpace(key)
	key = strings.ReplaceAll(key, "\r", "")
	key = strings.ReplaceAll(key, "\n", "")
	key = strings.ReplaceAll(key, "..", "")
	for strings.HasPrefix(key, "/") {
		key = strings.TrimPrefix(key, "/")
	}
	return key
}
