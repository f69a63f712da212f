package utils

import (
	"crypto/sha256"
	"encoding/base64"
	"fmt"

	"gopkg.in/yaml.v3"
)

// GenerateID returns a deterministic content-addressable identifier for the
// input string: the SHA-256 digest encoded as URL-safe base64. The same input
// always yields the same id; distinct inputs collide only with cryptographic
// improbability.
func GenerateID(input string) string {
	sum := sha256.Sum256([]byte(input))
	return base64.URLEncoding.EncodeToString(sum[:])
}

// ToYAML renders v as a YAML document. Used to serialize tool schemas into
// the planning prompt's <Tool> blocks.
func ToYAML(v any) (string, error) {
	out, err := yaml.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("yaml marshal: %w", err)
	}
	return string(out), nil
}
