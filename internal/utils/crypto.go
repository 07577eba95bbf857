// internal/utils/crypto.go
package utils

import (
	"crypto/rand"
	"encoding/hex"
	"strings"

	"github.com/google/uuid"
)

func generateHexString(length int) (string, error) {
	b := make([]byte, (length+1)/2)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return strings.ToUpper(hex.EncodeToString(b))[:length], nil
}

// GenerateTransactionID returns a public transaction reference like
// EVT_3F2A9C....
func GenerateTransactionID() (string, error) {
	s, err := generateHexString(20)
	if err != nil {
		return "", err
	}
	return "EVT_" + s, nil
}

// GenerateRefundID returns a public refund reference like EVR_8D41B2....
func GenerateRefundID() (string, error) {
	s, err := generateHexString(20)
	if err != nil {
		return "", err
	}
	return "EVR_" + s, nil
}

// GenerateAccessToken issues an opaque token for API-type access grants.
func GenerateAccessToken() string {
	return "evdt_" + strings.ReplaceAll(uuid.New().String(), "-", "")
}

// GenerateAPIKey issues a key for a dataset's API endpoint.
func GenerateAPIKey() string {
	return "evdata_" + strings.ReplaceAll(uuid.New().String(), "-", "")
}
