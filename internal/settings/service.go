package settings

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/cartacocktail/carta-backend/internal/users"
	"github.com/cartacocktail/carta-backend/pkg/config"
	"github.com/cartacocktail/carta-backend/pkg/db"
	pkgerrors "github.com/cartacocktail/carta-backend/pkg/errors"
	"github.com/cartacocktail/carta-backend/pkg/security"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Service reads and edits site settings and the signed-in user's profile.
type Service interface {
	Get(ctx context.Context) (*SiteSettings, error)
	Update(ctx context.Context, input SiteSettingsInput) (*SiteSettings, error)
	Profile(ctx context.Context, userID uuid.UUID) (*users.UserDTO, error)
	UpdateProfile(ctx context.Context, userID uuid.UUID, input ProfileInput) (*users.UserDTO, error)
}

type ServiceParams struct {
	DB             *db.Client
	PasswordConfig config.PasswordConfig
}

type service struct {
	db          *db.Client
	repo        *Repository
	passwordCfg config.PasswordConfig
}

func NewService(params ServiceParams) (Service, error) {
	if params.DB == nil {
		return nil, fmt.Errorf("database client required")
	}
	return &service{
		db:          params.DB,
		repo:        NewRepository(params.DB.DB()),
		passwordCfg: params.PasswordConfig,
	}, nil
}

func (s *service) Get(ctx context.Context) (*SiteSettings, error) {
	values, err := s.repo.All(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load settings")
	}
	out := fromValues(values)
	return &out, nil
}

func (s *service) Update(ctx context.Context, input SiteSettingsInput) (*SiteSettings, error) {
	values := input.values()
	for key, value := range values {
		values[key] = strings.TrimSpace(value)
	}
	if name, ok := values[KeyBarName]; ok && name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "barName cannot be empty")
	}
	if currency, ok := values[KeyCurrency]; ok {
		values[KeyCurrency] = strings.ToUpper(currency)
	}
	if err := s.repo.Upsert(ctx, values); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "save settings")
	}
	return s.Get(ctx)
}

func (s *service) Profile(ctx context.Context, userID uuid.UUID) (*users.UserDTO, error) {
	user, err := users.NewRepository(s.db.DB()).FindByID(ctx, userID)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load user")
	}
	return users.FromModel(user), nil
}

func (s *service) UpdateProfile(ctx context.Context, userID uuid.UUID, input ProfileInput) (*users.UserDTO, error) {
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := users.NewRepository(tx)
		user, err := repo.FindByID(ctx, userID)
		if err != nil {
			if db.IsNotFound(err) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load user")
		}

		displayName := user.DisplayName
		if input.DisplayName != nil {
			displayName = strings.TrimSpace(*input.DisplayName)
			if displayName == "" {
				return pkgerrors.New(pkgerrors.CodeValidation, "displayName cannot be empty")
			}
		}
		email := user.Email
		if input.Email != nil {
			email = users.NormalizeEmail(*input.Email)
			if email == "" {
				return pkgerrors.New(pkgerrors.CodeValidation, "email cannot be empty")
			}
			taken, err := repo.EmailTaken(ctx, email, user.ID)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "check email")
			}
			if taken {
				return pkgerrors.New(pkgerrors.CodeConflict, "email already registered")
			}
		}
		if err := repo.UpdateProfile(ctx, user.ID, displayName, email); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update profile")
		}

		if input.NewPassword == "" {
			return nil
		}
		ok, err := security.VerifyPassword(input.CurrentPassword, user.PasswordHash)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "verify password")
		}
		if !ok {
			return pkgerrors.New(pkgerrors.CodeValidation, "current password is incorrect").
				WithDetails(map[string]any{"field": "currentPassword"})
		}
		if err := security.CheckStrength(input.NewPassword); err != nil {
			if errors.Is(err, security.ErrPasswordTooShort) || errors.Is(err, security.ErrPasswordTooWeak) {
				return pkgerrors.Wrap(pkgerrors.CodeValidation, err, err.Error()).
					WithDetails(map[string]any{"field": "newPassword"})
			}
			return err
		}
		hash, err := security.HashPassword(input.NewPassword, s.passwordCfg)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
		}
		if err := repo.UpdatePasswordHash(ctx, user.ID, hash); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update password")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.Profile(ctx, userID)
}
