package adapter

import (
	"encoding/base64"
	"fmt"
)

// TokenCodec turns a store position into an opaque continuation token and back
//
//go:generate mockgen -source=encoding.go -destination=../mocks/encoding.go -package=mocks -mock_names=TokenCodec=MockTokenCodec
type TokenCodec interface {
	Encode(position string) string
	Decode(token string) (string, error)
}

// RealTokenCodec implements TokenCodec with URL-safe unpadded base64
type RealTokenCodec struct{}

// NewTokenCodec creates a new token codec
func NewTokenCodec() TokenCodec {
	return &RealTokenCodec{}
}

func (c *RealTokenCodec) Encode(position string) string {
	return base64.RawURLEncoding.EncodeToString([]byte(position))
}

func (c *RealTokenCodec) Decode(token string) (string, error) {
	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return "", fmt.Errorf("invalid continuation token %q: %w", token, err)
	}
	return string(raw), nil
}
