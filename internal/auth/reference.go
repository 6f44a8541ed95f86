package auth

import (
	"encoding/base64"
	"errors"
	"strings"

	"github.com/google/uuid"
)

// ErrReferenceInvalid is returned for a user reference that is not
// base64url text of a UUID.
var ErrReferenceInvalid = errors.New("invalid user reference")

// EncodeUserReference encodes a user id for use in URLs (base64url, unpadded).
func EncodeUserReference(userID string) string {
	return base64.RawURLEncoding.EncodeToString([]byte(userID))
}

// DecodeUserReference reverses EncodeUserReference. Padded input is accepted.
func DecodeUserReference(uidb64 string) (string, error) {
	raw, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(uidb64, "="))
	if err != nil {
		return "", ErrReferenceInvalid
	}
	id, err := uuid.Parse(string(raw))
	if err != nil {
		return "", ErrReferenceInvalid
	}
	return id.String(), nil
}
