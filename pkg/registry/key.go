package registry

import (
	"encoding/base64"
	"strings"

	"github.com/premid/pmd/errors"
)

// CommandPrefix starts every teardown command id.
const CommandPrefix = "stopCompiler-"

// Key identifies an instance. It is the URL-safe, unpadded base64 encoding
// of the presence name, so it is safe in URLs and command ids.
type Key string

// EncodeKey derives the key for a presence name.
func EncodeKey(name string) Key {
	return Key(base64.RawURLEncoding.EncodeToString([]byte(name)))
}

// Decode recovers the presence name.
func (k Key) Decode() (string, error) {
	data, err := base64.RawURLEncoding.DecodeString(string(k))
	if err != nil {
		return "", errors.Wrap(err, errors.ErrCodeInvalidInput, "malformed instance key").
			WithDetail("key", string(k))
	}
	return string(data), nil
}

func (k Key) String() string { return string(k) }

// CommandID is the teardown command id for key.
func CommandID(key Key) string {
	return CommandPrefix + string(key)
}

// KeyFromCommandID extracts the key from a teardown command id.
func KeyFromCommandID(id string) (Key, bool) {
	if !strings.HasPrefix(id, CommandPrefix) {
		return "", false
	}
	return Key(strings.TrimPrefix(id, CommandPrefix)), true
}
