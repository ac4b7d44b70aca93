package order

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/go-faster/errors"
)

// NewNumber formats an order number as ORD-YYYYMMDD-###### using the UTC date of now.
func NewNumber(now time.Time) string {
	return fmt.Sprintf("ORD-%s-%06d", now.UTC().Format("20060102"), rand.IntN(1_000_000))
}

// nextNumber draws order numbers until one is not taken.
func (s *Service) nextNumber(ctx context.Context, orders Repository) (string, error) {
	for range s.numberAttempts {
		n := s.newNumber(s.now())
		exists, err := orders.ExistsOrderNumber(ctx, n)
		if err != nil {
			return "", errors.Wrap(err, "check order number")
		}
		if !exists {
			return n, nil
		}
	}
	return "", errors.Wrapf(ErrDuplicateOrderNumber, "no free order number after %d attempts", s.numberAttempts)
}
