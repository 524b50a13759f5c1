package object

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"path"
	"strings"
)

// ErrInvalidName is returned for object names that could escape the owner prefix.
var ErrInvalidName = errors.New("invalid object name")

// OwnerPrefix maps an owner ID to a fixed-length hex prefix so user
// identifiers never appear in object keys.
func OwnerPrefix(ownerID string) string {
	sum := sha256.Sum256([]byte(ownerID))
	return hex.EncodeToString(sum[:])
}

// CleanName flattens separators and rejects traversal.
func CleanName(name string) (string, error) {
	if strings.Contains(name, "..") {
		return "", ErrInvalidName
	}
	s := strings.TrimSpace(name)
	s = strings.NewReplacer("/", "_", `\`, "_").Replace(s)
	if s == "" {
		return "", ErrInvalidName
	}
	return s, nil
}

// Key joins the owner prefix and a cleaned name.
func Key(ownerID, name string) (string, error) {
	clean, err := CleanName(name)
	if err != nil {
		return "", err
	}
	return path.Join(OwnerPrefix(ownerID), clean), nil
}
