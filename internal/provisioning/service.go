package provisioning

import (
	"context"
	"fmt"
	"strings"
	"unicode"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/amorize/checkout-backend/pkg/config"
	"github.com/amorize/checkout-backend/pkg/db/models"
	pkgerrors "github.com/amorize/checkout-backend/pkg/errors"
	"github.com/amorize/checkout-backend/pkg/logger"
	"github.com/amorize/checkout-backend/pkg/security"
)

type uniqueViolationChecker func(err error) bool

// Service provisions customer identities idempotently.
type Service interface {
	CreateOrUpdateUser(ctx context.Context, input NewUserInput) (*ProvisionResult, error)
}

type service struct {
	repo     Repository
	password config.PasswordConfig
	logg     *logger.Logger
	isUnique uniqueViolationChecker
}

// NewServiceParams carries the dependencies for the provisioning service.
type NewServiceParams struct {
	Repo            Repository
	Password        config.PasswordConfig
	Logger          *logger.Logger
	UniqueViolation uniqueViolationChecker
}

// NewService builds a provisioning service with the required dependencies.
func NewService(params NewServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("provisioning repository required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.UniqueViolation == nil {
		return nil, fmt.Errorf("unique violation checker required")
	}
	return &service{
		repo:     params.Repo,
		password: params.Password,
		logg:     params.Logger,
		isUnique: params.UniqueViolation,
	}, nil
}

// CreateOrUpdateUser resolves the identity for the given email, creating the
// credential/profile pair when absent. Calling it twice with the same email
// yields one identity; the second call reports IsNew=false.
func (s *service) CreateOrUpdateUser(ctx context.Context, input NewUserInput) (*ProvisionResult, error) {
	email := NormalizeEmail(input.Email)
	if email == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "email required")
	}
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name required")
	}
	cpf := DigitsOnly(input.CPF)
	if cpf == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cpf required")
	}
	whatsapp := DigitsOnly(input.Whatsapp)

	existing, err := s.repo.FindProfileByEmail(ctx, email)
	if err != nil && err != gorm.ErrRecordNotFound {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup profile by email")
	}

	if existing != nil {
		updated := *existing
		updated.Name = name
		updated.CPF = cpf
		updated.Whatsapp = whatsapp
		if err := s.repo.UpsertProfile(ctx, &updated); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update profile")
		}
		return &ProvisionResult{UserID: updated.ID, IsNew: false, Profile: &updated}, nil
	}

	profile, err := s.createIdentity(ctx, name, email, cpf, whatsapp)
	if err != nil {
		if !s.isUnique(err) {
			return nil, err
		}
		// Lost a race against a concurrent request for the same email.
		winner, findErr := s.repo.FindProfileByEmail(ctx, email)
		if findErr != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, findErr, "reload profile after conflict")
		}
		return &ProvisionResult{UserID: winner.ID, IsNew: false, Profile: winner}, nil
	}

	return &ProvisionResult{UserID: profile.ID, IsNew: true, Profile: profile}, nil
}

// createIdentity creates the credential first, then the profile. The cleaned
// CPF is the initial password; first login forces a change. If the profile
// write fails the credential is deleted so no orphaned identity remains.
func (s *service) createIdentity(ctx context.Context, name, email, cpf, whatsapp string) (*models.Profile, error) {
	hash, err := security.HashPassword(cpf, s.password)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash initial password")
	}

	id := uuid.New()
	profile := &models.Profile{
		ID:                 id,
		Name:               name,
		Email:              email,
		CPF:                cpf,
		Whatsapp:           whatsapp,
		Access:             []string{},
		FirstAccess:        true,
		HasChangedPassword: false,
	}

	credential := &models.Credential{ID: id, Email: email, PasswordHash: hash}
	if err := s.repo.CreateCredential(ctx, credential); err != nil {
		if s.isUnique(err) {
			return nil, err
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create credential")
	}

	// The credential and profile live in different stores historically, so the
	// pair is kept consistent by compensation rather than a transaction.
	if err := s.repo.UpsertProfile(ctx, profile); err != nil {
		if delErr := s.repo.DeleteCredential(ctx, id); delErr != nil {
			s.logg.Error(ctx, "compensating credential delete failed", delErr)
		}
		if s.isUnique(err) {
			return nil, err
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create profile")
	}
	return profile, nil
}

// NormalizeEmail lowercases and trims the address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// DigitsOnly strips every non-digit rune, matching how CPF and phone numbers
// arrive with punctuation from the checkout form.
func DigitsOnly(raw string) string {
	var b strings.Builder
	for _, r := range raw {
		if unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}
