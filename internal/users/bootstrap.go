package users

import (
	"context"
	"fmt"

	"github.com/cartacocktail/carta-backend/pkg/config"
	"github.com/cartacocktail/carta-backend/pkg/enums"
	"github.com/cartacocktail/carta-backend/pkg/logger"
	"github.com/cartacocktail/carta-backend/pkg/security"
)

const generatedPasswordLength = 20

// EnsureBootstrapAdmin creates the first admin when the users table is empty and an
// admin email is configured. Without a configured password a random one is generated
// and logged once.
func EnsureBootstrapAdmin(ctx context.Context, repo *Repository, cfg config.BootstrapConfig, pwCfg config.PasswordConfig, logg *logger.Logger) (*UserDTO, error) {
	if NormalizeEmail(cfg.AdminEmail) == "" {
		return nil, nil
	}
	count, err := repo.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("count users: %w", err)
	}
	if count > 0 {
		return nil, nil
	}

	password := cfg.AdminPassword
	generated := password == ""
	if generated {
		password, err = security.GenerateTempPassword(generatedPasswordLength)
		if err != nil {
			return nil, fmt.Errorf("generate admin password: %w", err)
		}
	}
	hash, err := security.HashPassword(password, pwCfg)
	if err != nil {
		return nil, fmt.Errorf("hash admin password: %w", err)
	}
	user, err := repo.Create(ctx, CreateUserDTO{
		Email:        cfg.AdminEmail,
		PasswordHash: hash,
		DisplayName:  cfg.AdminName,
		Role:         enums.UserRoleAdmin,
	})
	if err != nil {
		return nil, fmt.Errorf("create admin: %w", err)
	}

	if logg != nil {
		logCtx := logg.WithField(ctx, "email", user.Email)
		if generated {
			logCtx = logg.WithField(logCtx, "temporary_password", password)
			logg.Warn(logCtx, "bootstrap admin created with a generated password; change it after first login")
		} else {
			logg.Info(logCtx, "bootstrap admin created")
		}
	}
	return FromModel(user), nil
}
