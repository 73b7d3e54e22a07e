package storage

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// SignedURLSigner creates and validates signed object tokens for the local backend.
type SignedURLSigner struct {
	secret []byte
	ttl    time.Duration
}

// NewSignedURLSigner constructs a signer with the provided secret and default TTL.
func NewSignedURLSigner(secret string, ttl time.Duration) *SignedURLSigner {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &SignedURLSigner{
		secret: []byte(secret),
		ttl:    ttl,
	}
}

// Generate returns a token granting read access to bucket/key until the expiry.
// A non-positive ttl falls back to the signer default.
func (s *SignedURLSigner) Generate(bucket, key string, ttl time.Duration) (string, time.Time, error) {
	if bucket == "" || key == "" {
		return "", time.Time{}, fmt.Errorf("bucket and key required")
	}
	if len(s.secret) == 0 {
		return "", time.Time{}, fmt.Errorf("signing secret missing")
	}
	if ttl <= 0 {
		ttl = s.ttl
	}
	expiresAt := time.Now().Add(ttl)
	encodedBucket := base64.RawURLEncoding.EncodeToString([]byte(bucket))
	encodedKey := base64.RawURLEncoding.EncodeToString([]byte(key))
	exp := strconv.FormatInt(expiresAt.Unix(), 10)
	signature := s.sign(encodedBucket, exp, encodedKey)
	token := strings.Join([]string{encodedBucket, exp, encodedKey, signature}, ".")
	return token, expiresAt, nil
}

// Parse validates a token and returns the embedded bucket and key.
func (s *SignedURLSigner) Parse(token string) (bucket, key string, expiresAt time.Time, err error) {
	parts := strings.Split(token, ".")
	if len(parts) != 4 {
		return "", "", time.Time{}, fmt.Errorf("invalid token format")
	}
	encodedBucket, exp, encodedKey, signature := parts[0], parts[1], parts[2], parts[3]

	expected := s.sign(encodedBucket, exp, encodedKey)
	if !hmac.Equal([]byte(expected), []byte(signature)) {
		return "", "", time.Time{}, fmt.Errorf("invalid token signature")
	}

	expUnix, err := strconv.ParseInt(exp, 10, 64)
	if err != nil {
		return "", "", time.Time{}, fmt.Errorf("invalid timestamp")
	}
	expiresAt = time.Unix(expUnix, 0)
	if time.Now().After(expiresAt) {
		return "", "", time.Time{}, fmt.Errorf("token expired")
	}

	rawBucket, err := base64.RawURLEncoding.DecodeString(encodedBucket)
	if err != nil {
		return "", "", time.Time{}, fmt.Errorf("decode bucket: %w", err)
	}
	rawKey, err := base64.RawURLEncoding.DecodeString(encodedKey)
	if err != nil {
		return "", "", time.Time{}, fmt.Errorf("decode key: %w", err)
	}
	return string(rawBucket), string(rawKey), expiresAt, nil
}

func (s *SignedURLSigner) sign(bucket, exp, key string) string {
	mac := hmac.New(sha256.New, s.secret)
	_, _ = mac.Write([]byte(bucket + "|" + exp + "|" + key))
	return hex.EncodeToString(mac.Sum(nil))
}
