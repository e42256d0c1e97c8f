package utils

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
	"time"
)

// GenerateCode returns an uppercase hex string built from n random bytes.
func GenerateCode(n int) (string, error) {
	byt := make([]byte, n)

	if _, err := rand.Read(byt); err != nil {
		return "", err
	}

	return strings.ToUpper(hex.EncodeToString(byt)), nil
}

// GrantReference builds the reference label sent to the wallet provider for a
// claim. The random suffix keeps retried grants distinguishable on the
// provider side.
func GrantReference(requestID string) (string, error) {
	code, err := GenerateCode(4)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s-%s-%d", requestID, code, time.Now().Unix()), nil
}
