package simplenotes

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"

	"github.com/google/uuid"
)

const (
	slugAlphabet = "0123456789abcdefghijklmnopqrstuvwxyz"
	slugLength   = 16
	slugAttempts = 8
)

// SlugGenerator produces candidate public slugs.
type SlugGenerator func() (string, error)

// NewID returns a fresh random identifier.
func NewID() uuid.UUID {
	return uuid.New()
}

// RandomSlug returns a 16 character lowercase base36 slug.
func RandomSlug() (string, error) {
	base := big.NewInt(int64(len(slugAlphabet)))
	buf := make([]byte, slugLength)
	for i := range buf {
		n, err := rand.Int(rand.Reader, base)
		if err != nil {
			return "", fmt.Errorf("generate slug: %w", err)
		}
		buf[i] = slugAlphabet[n.Int64()]
	}
	return string(buf), nil
}

// uniqueSlug draws slugs until one is unused in repo.
func (s *service) uniqueSlug(ctx context.Context, repo Repository, reserved map[string]struct{}) (string, error) {
	for i := 0; i < slugAttempts; i++ {
		slug, err := s.slugs()
		if err != nil {
			return "", err
		}
		if _, taken := reserved[slug]; taken {
			continue
		}
		exists, err := repo.SlugExists(ctx, slug)
		if err != nil {
			return "", err
		}
		if !exists {
			if reserved != nil {
				reserved[slug] = struct{}{}
			}
			return slug, nil
		}
	}
	return "", ErrSlugTaken
}
