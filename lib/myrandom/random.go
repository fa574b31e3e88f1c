package myrandom

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"io"
	"math/big"
)

const passwordAlphabet = "abcdefghijkmnpqrstuvwxyzABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// Hex returns count random bytes hex-encoded
func Hex(count int) (string, error) {
	buf, err := randomBytes(count)
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

// Token returns count random bytes as url-safe base64
func Token(count int) (string, error) {
	buf, err := randomBytes(count)
	if err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// Password returns a human-typable password without look-alike characters
func Password(length int) (string, error) {
	max := big.NewInt(int64(len(passwordAlphabet)))
	result := make([]byte, length)
	for i := range result {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("could not generate password: %v", err)
		}
		result[i] = passwordAlphabet[n.Int64()]
	}
	return string(result), nil
}

func randomBytes(count int) ([]byte, error) {
	buf := make([]byte, count)

	_, err := io.ReadFull(rand.Reader, buf)
	if err != nil {
		return nil, fmt.Errorf("could not generate %d random bytes: %v", count, err)
	}

	return buf, nil
}
