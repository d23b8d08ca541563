package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/djhunter67/study-site/internal/models"
	"github.com/djhunter67/study-site/internal/tokens"
	apperrors "github.com/djhunter67/study-site/pkg/errors"
	"github.com/djhunter67/study-site/pkg/logger"
	"github.com/djhunter67/study-site/pkg/metrics"
)

// DefaultConfirmationTTL defines the fallback validity window for confirmation credentials.
const DefaultConfirmationTTL = 24 * time.Hour

// ConfirmationOption customises the ConfirmationService.
type ConfirmationOption func(*ConfirmationService)

// WithConfirmationTTL overrides the credential lifetime.
func WithConfirmationTTL(d time.Duration) ConfirmationOption {
	return func(s *ConfirmationService) {
		if d > 0 {
			s.ttl = d
		}
	}
}

// ConfirmationService drives the account confirmation protocol: it issues
// single-use confirmation credentials and redeems them to activate accounts.
type ConfirmationService struct {
	db      *gorm.DB
	codec   *tokens.Codec
	records *tokens.InvalidationStore
	ttl     time.Duration
	log     *zap.Logger
}

// NewConfirmationService constructs a confirmation service with the provided dependencies.
func NewConfirmationService(db *gorm.DB, codec *tokens.Codec, records *tokens.InvalidationStore, opts ...ConfirmationOption) (*ConfirmationService, error) {
	if db == nil {
		return nil, errors.New("confirmation service: db is required")
	}
	if codec == nil {
		return nil, errors.New("confirmation service: codec is required")
	}
	if records == nil {
		return nil, errors.New("confirmation service: invalidation store is required")
	}

	service := &ConfirmationService{
		db:      db,
		codec:   codec,
		records: records,
		ttl:     DefaultConfirmationTTL,
		log:     logger.WithModule("services.confirmation"),
	}

	for _, opt := range opts {
		opt(service)
	}

	return service, nil
}

// TTL reports the configured credential lifetime.
func (s *ConfirmationService) TTL() time.Duration {
	return s.ttl
}

// Start issues a fresh confirmation credential for the user. Issuing again
// for the same user invalidates any earlier credential, so only the most
// recent email link can ever be redeemed.
func (s *ConfirmationService) Start(ctx context.Context, userID string) (string, error) {
	ctx = ensureContext(ctx)

	if userID == "" {
		return "", errors.New("confirmation service: user id is required")
	}

	token, tokenID, err := s.codec.Issue(tokens.PurposeConfirm, userID, s.ttl)
	if err != nil {
		return "", fmt.Errorf("confirmation service: issue credential: %w", err)
	}

	if err := s.records.Record(ctx, tokenID, userID, s.ttl); err != nil {
		return "", fmt.Errorf("confirmation service: record credential: %w", err)
	}

	return token, nil
}

// Pending reports whether the user still has an unredeemed confirmation credential.
func (s *ConfirmationService) Pending(ctx context.Context, userID string) (bool, error) {
	return s.records.Pending(ensureContext(ctx), userID)
}

// Complete verifies and redeems a confirmation credential, activating the
// matching account. A credential that fails verification never touches the
// invalidation store; a verified credential is consumed exactly once.
func (s *ConfirmationService) Complete(ctx context.Context, token string) (*models.User, error) {
	ctx = ensureContext(ctx)

	claims, err := s.codec.Verify(token, tokens.PurposeConfirm)
	if err != nil {
		return nil, s.translateVerifyError(err)
	}

	subjectID, found, err := s.records.Consume(ctx, claims.ID)
	if err != nil {
		return nil, fmt.Errorf("confirmation service: consume credential: %w", err)
	}
	if !found {
		metrics.ConfirmationResults.WithLabelValues("already_used").Inc()
		return nil, apperrors.ErrTokenAlreadyUsed
	}
	if subjectID != claims.Subject {
		metrics.ConfirmationResults.WithLabelValues("invalid").Inc()
		return nil, apperrors.ErrTokenMalformed
	}

	result := s.db.WithContext(ctx).Model(&models.User{}).
		Where("id = ?", subjectID).
		Update("is_active", true)
	if result.Error != nil || result.RowsAffected == 0 {
		// The credential is spent but the account stays inactive; the user
		// must request a fresh confirmation email.
		s.log.Error("account activation failed after credential redemption",
			zap.String("user_id", subjectID),
			zap.String("token_id", claims.ID),
			zap.Error(result.Error),
		)
		metrics.ConfirmationResults.WithLabelValues("persist_failed").Inc()
		return nil, apperrors.ErrActivationPersist.WithInternal(result.Error)
	}

	var user models.User
	if err := s.db.WithContext(ctx).First(&user, "id = ?", subjectID).Error; err != nil {
		return nil, fmt.Errorf("confirmation service: reload user: %w", err)
	}

	metrics.ConfirmationResults.WithLabelValues("success").Inc()
	return &user, nil
}

func (s *ConfirmationService) translateVerifyError(err error) error {
	switch {
	case errors.Is(err, tokens.ErrExpired):
		metrics.ConfirmationResults.WithLabelValues("expired").Inc()
		return apperrors.ErrTokenExpired
	case errors.Is(err, tokens.ErrSignatureInvalid):
		metrics.ConfirmationResults.WithLabelValues("invalid").Inc()
		return apperrors.ErrTokenSignatureInvalid
	case errors.Is(err, tokens.ErrPurposeMismatch):
		metrics.ConfirmationResults.WithLabelValues("invalid").Inc()
		return apperrors.ErrTokenPurposeMismatch
	default:
		metrics.ConfirmationResults.WithLabelValues("invalid").Inc()
		return apperrors.ErrTokenMalformed
	}
}
