package auth

import (
	"context"
	"fmt"
	"strings"

	"github.com/cartacocktail/carta-backend/internal/users"
	"github.com/cartacocktail/carta-backend/pkg/config"
	"github.com/cartacocktail/carta-backend/pkg/db"
	"github.com/cartacocktail/carta-backend/pkg/db/models"
	"github.com/cartacocktail/carta-backend/pkg/enums"
	pkgerrors "github.com/cartacocktail/carta-backend/pkg/errors"
	"github.com/cartacocktail/carta-backend/pkg/security"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// AccountService lets admins list and add operator accounts.
type AccountService interface {
	List(ctx context.Context) ([]users.UserDTO, error)
	Create(ctx context.Context, req CreateAccountRequest) (*users.UserDTO, error)
}

type AccountServiceParams struct {
	DB             *db.Client
	PasswordConfig config.PasswordConfig
}

type accountService struct {
	db          *db.Client
	passwordCfg config.PasswordConfig
}

func NewAccountService(params AccountServiceParams) (AccountService, error) {
	if params.DB == nil {
		return nil, fmt.Errorf("database client required")
	}
	return &accountService{
		db:          params.DB,
		passwordCfg: params.PasswordConfig,
	}, nil
}

func (s *accountService) List(ctx context.Context) ([]users.UserDTO, error) {
	var rows []models.User
	if err := s.db.DB().WithContext(ctx).Order("created_at ASC").Find(&rows).Error; err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list users")
	}
	out := make([]users.UserDTO, 0, len(rows))
	for i := range rows {
		out = append(out, *users.FromModel(&rows[i]))
	}
	return out, nil
}

func (s *accountService) Create(ctx context.Context, req CreateAccountRequest) (*users.UserDTO, error) {
	email := users.NormalizeEmail(req.Email)
	if email == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "email is required")
	}
	name := strings.TrimSpace(req.DisplayName)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "displayName is required")
	}
	role := req.Role
	if role == "" {
		role = enums.UserRoleStaff
	}
	if !role.IsValid() {
		return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "unknown role %q", role)
	}

	passwordHash, err := security.HashPassword(req.Password, s.passwordCfg)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
	}

	var created *users.UserDTO
	err = s.db.WithTx(ctx, func(tx *gorm.DB) error {
		userRepo := users.NewRepository(tx)

		taken, err := userRepo.EmailTaken(ctx, email, uuid.Nil)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "check user email")
		}
		if taken {
			return pkgerrors.New(pkgerrors.CodeConflict, "email already registered")
		}

		user, err := userRepo.Create(ctx, users.CreateUserDTO{
			Email:        email,
			PasswordHash: passwordHash,
			DisplayName:  name,
			Role:         role,
		})
		if err != nil {
			if db.IsUniqueViolation(err, "idx_users_email") {
				return pkgerrors.Wrap(pkgerrors.CodeConflict, err, "email already registered")
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create user")
		}
		created = users.FromModel(user)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}
