package passphrase

import (
	"context"
	"errors"

	"github.com/illarion/sous/internal/crypto"
)

// ErrMismatch is returned when a confirmation does not match.
var ErrMismatch = errors.New("passphrases do not match")

// Confirm asks its source twice and requires both answers to match.
// Use it where a mistyped passphrase would produce a wrong key silently.
type Confirm struct {
	Source Source
}

func (c Confirm) Passphrase(ctx context.Context, req Request) ([]byte, error) {
	if c.Source == nil {
		return nil, ErrUnavailable
	}

	first, err := c.Source.Passphrase(ctx, req)
	if err != nil {
		return nil, err
	}

	again := req
	again.Prompt = "Confirm passphrase: "
	second, err := c.Source.Passphrase(ctx, again)
	if err != nil {
		crypto.ClearBytes(first)
		return nil, err
	}
	defer crypto.ClearBytes(second)

	if !crypto.ConstantTimeCompare(first, second) {
		crypto.ClearBytes(first)
		return nil, ErrMismatch
	}
	return first, nil
}
