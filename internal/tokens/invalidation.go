package tokens

import (
	"context"
	"errors"
	"time"

	"github.com/djhunter67/study-site/internal/cache"
)

const (
	tokenKeyPrefix   = "tokens:id:"
	subjectKeyPrefix = "tokens:subject:"
)

// InvalidationStore tracks which issued credentials are still redeemable.
// A credential that is not recorded, or that has already been consumed,
// is rejected regardless of its signature.
type InvalidationStore struct {
	store cache.Store
}

// NewInvalidationStore constructs an InvalidationStore backed by the shared cache.
func NewInvalidationStore(store cache.Store) (*InvalidationStore, error) {
	if store == nil {
		return nil, errors.New("tokens: cache store is required")
	}
	return &InvalidationStore{store: store}, nil
}

// Record registers a freshly issued credential. Any previously recorded
// credential for the same subject is invalidated, so only the latest
// issuance can be redeemed.
func (s *InvalidationStore) Record(ctx context.Context, tokenID, subjectID string, ttl time.Duration) error {
	if tokenID == "" {
		return errors.New("tokens: token id is required")
	}
	if subjectID == "" {
		return errors.New("tokens: subject id is required")
	}

	prior, found, err := s.store.Get(ctx, subjectKeyPrefix+subjectID)
	if err != nil {
		return err
	}
	if found && string(prior) != tokenID {
		if err := s.store.Delete(ctx, tokenKeyPrefix+string(prior)); err != nil {
			return err
		}
	}

	if err := s.store.Set(ctx, tokenKeyPrefix+tokenID, []byte(subjectID), ttl); err != nil {
		return err
	}
	return s.store.Set(ctx, subjectKeyPrefix+subjectID, []byte(tokenID), ttl)
}

// Consume atomically redeems a credential record. It returns the subject the
// credential was issued for and whether the record was still present; at most
// one concurrent caller observes found=true for a given token ID.
func (s *InvalidationStore) Consume(ctx context.Context, tokenID string) (string, bool, error) {
	if tokenID == "" {
		return "", false, errors.New("tokens: token id is required")
	}

	value, found, err := s.store.TakeDelete(ctx, tokenKeyPrefix+tokenID)
	if err != nil {
		return "", false, err
	}
	if !found {
		return "", false, nil
	}

	subjectID := string(value)
	_ = s.store.Delete(ctx, subjectKeyPrefix+subjectID)
	return subjectID, true, nil
}

// Pending reports whether the subject still has a redeemable credential.
func (s *InvalidationStore) Pending(ctx context.Context, subjectID string) (bool, error) {
	if subjectID == "" {
		return false, errors.New("tokens: subject id is required")
	}

	tokenID, found, err := s.store.Get(ctx, subjectKeyPrefix+subjectID)
	if err != nil || !found {
		return false, err
	}

	// The subject pointer may outlive the token record when both were written
	// with slightly different expiry instants; trust the token record.
	_, found, err = s.store.Get(ctx, tokenKeyPrefix+string(tokenID))
	return found, err
}
