package services

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"github.com/djhunter67/study-site/internal/models"
	apperrors "github.com/djhunter67/study-site/pkg/errors"
	"github.com/djhunter67/study-site/pkg/logger"
	"github.com/djhunter67/study-site/pkg/mail"
	"github.com/djhunter67/study-site/pkg/metrics"
)

// EmailFailurePolicy controls how registration reacts when the confirmation
// email cannot be dispatched.
type EmailFailurePolicy string

const (
	// EmailFailureFatal fails the registration request when the email cannot be sent.
	EmailFailureFatal EmailFailurePolicy = "fatal"
	// EmailFailureBestEffort keeps the account and lets the user request a resend.
	EmailFailureBestEffort EmailFailurePolicy = "best_effort"
)

// RegistrationConfig bundles the knobs of the registration flow.
type RegistrationConfig struct {
	// BaseURL is the externally reachable confirmation endpoint, e.g.
	// "https://example.com/register/confirm".
	BaseURL      string
	EmailFailure EmailFailurePolicy
}

// RegisterInput describes a new account request.
type RegisterInput struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
}

// RegistrationService orchestrates account creation: persist the inactive
// account, issue a confirmation credential and dispatch the confirmation email.
type RegistrationService struct {
	users         *UserService
	confirmations *ConfirmationService
	gateway       mail.Gateway
	baseURL       string
	policy        EmailFailurePolicy
	log           *zap.Logger
}

// NewRegistrationService constructs a RegistrationService instance.
func NewRegistrationService(users *UserService, confirmations *ConfirmationService, gateway mail.Gateway, cfg RegistrationConfig) (*RegistrationService, error) {
	if users == nil {
		return nil, errors.New("registration service: user service is required")
	}
	if confirmations == nil {
		return nil, errors.New("registration service: confirmation service is required")
	}

	policy := cfg.EmailFailure
	switch policy {
	case EmailFailureFatal, EmailFailureBestEffort:
	case "":
		policy = EmailFailureFatal
	default:
		return nil, fmt.Errorf("registration service: unknown email failure policy %q", cfg.EmailFailure)
	}

	return &RegistrationService{
		users:         users,
		confirmations: confirmations,
		gateway:       gateway,
		baseURL:       strings.TrimRight(cfg.BaseURL, "/"),
		policy:        policy,
		log:           logger.WithModule("services.registration"),
	}, nil
}

// Register creates an inactive account and sends the confirmation email.
// With the fatal email policy a dispatch failure fails the whole request;
// the account still exists and a resend can recover it.
func (s *RegistrationService) Register(ctx context.Context, input RegisterInput) (*models.User, error) {
	ctx = ensureContext(ctx)

	user, err := s.users.Create(ctx, CreateUserInput{
		Email:     input.Email,
		Password:  input.Password,
		FirstName: input.FirstName,
		LastName:  input.LastName,
	})
	if err != nil {
		metrics.RegistrationAttempts.WithLabelValues("failure").Inc()
		return nil, err
	}

	token, err := s.confirmations.Start(ctx, user.ID)
	if err != nil {
		metrics.RegistrationAttempts.WithLabelValues("failure").Inc()
		return nil, err
	}

	if err := s.dispatch(ctx, mail.TemplateConfirmation, user, token); err != nil {
		metrics.RegistrationAttempts.WithLabelValues("failure").Inc()
		return nil, err
	}

	metrics.RegistrationAttempts.WithLabelValues("success").Inc()
	return user, nil
}

// Confirm redeems a confirmation credential and activates the matching account.
func (s *RegistrationService) Confirm(ctx context.Context, token string) (*models.User, error) {
	return s.confirmations.Complete(ensureContext(ctx), token)
}

// ResendConfirmation issues a fresh credential and email for an unconfirmed
// account. Unknown addresses and already-active accounts are silently
// ignored so the endpoint does not reveal which emails are registered.
func (s *RegistrationService) ResendConfirmation(ctx context.Context, email string) error {
	ctx = ensureContext(ctx)

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil
		}
		return err
	}
	if user.IsActive {
		return nil
	}

	token, err := s.confirmations.Start(ctx, user.ID)
	if err != nil {
		return err
	}

	return s.dispatch(ctx, mail.TemplateConfirmationResend, user, token)
}

func (s *RegistrationService) dispatch(ctx context.Context, template string, user *models.User, token string) error {
	if s.gateway == nil {
		metrics.EmailDispatches.WithLabelValues("skipped").Inc()
		return nil
	}

	err := s.gateway.SendTemplate(ctx, template, user.Email, mail.TemplateFields{
		UserID:    user.ID,
		FirstName: user.FirstName,
		LastName:  user.LastName,
		Token:     token,
		Link:      s.confirmationLink(token),
	})
	if err == nil {
		metrics.EmailDispatches.WithLabelValues("sent").Inc()
		return nil
	}
	if errors.Is(err, mail.ErrSMTPDisabled) {
		metrics.EmailDispatches.WithLabelValues("skipped").Inc()
		return nil
	}

	metrics.EmailDispatches.WithLabelValues("failed").Inc()
	s.log.Error("confirmation email dispatch failed",
		zap.String("user_id", user.ID),
		zap.String("template", template),
		zap.Error(err),
	)

	if s.policy == EmailFailureBestEffort {
		return nil
	}
	return apperrors.ErrNotificationSend.WithInternal(err)
}

func (s *RegistrationService) confirmationLink(token string) string {
	if s.baseURL == "" {
		return token
	}
	return s.baseURL + "?token=" + url.QueryEscape(token)
}
