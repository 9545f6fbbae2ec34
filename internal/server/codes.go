package server

import (
	"context"
	"errors"
	"math/rand/v2"
)

const (
	codeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	codeLength   = 6
	codeAttempts = 100
)

// ErrCodeSpaceExhausted is returned when no unused code could be drawn
// within the attempt bound. With a 36^6 space this only happens when
// the table is nearly saturated or the existence check is broken.
var ErrCodeSpaceExhausted = errors.New("could not generate an unused cache code")

func randomCode() string {
	b := make([]byte, codeLength)
	for i := range b {
		b[i] = codeAlphabet[rand.IntN(len(codeAlphabet))]
	}
	return string(b)
}

// generateCode draws random codes until one passes the exists check.
func generateCode(ctx context.Context, exists func(context.Context, string) (bool, error)) (string, error) {
	for i := 0; i < codeAttempts; i++ {
		code := randomCode()
		taken, err := exists(ctx, code)
		if err != nil {
			return "", err
		}
		if !taken {
			return code, nil
		}
	}
	return "", ErrCodeSpaceExhausted
}
