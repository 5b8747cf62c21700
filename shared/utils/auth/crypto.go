package utils

import (
	"crypto/rand"
	"encoding/hex"
)

// GenerateRandomToken returns length random bytes hex-encoded
func GenerateRandomToken(length int) (string, error) {
	bytes := make([]byte, length)
	_, err := rand.Read(bytes)
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(bytes), nil
}

// GenerateAPIKey returns a new organization API key
func GenerateAPIKey() (string, error) {
	token, err := GenerateRandomToken(32)
	if err != nil {
		return "", err
	}
	return "org_" + token, nil
}

// GenerateRequestID returns a correlation id for one request
func GenerateRequestID() (string, error) {
	return GenerateRandomToken(16)
}
