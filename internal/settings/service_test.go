package settings

import (
	"context"
	"testing"

	"github.com/cartacocktail/carta-backend/internal/users"
	"github.com/cartacocktail/carta-backend/pkg/config"
	"github.com/cartacocktail/carta-backend/pkg/db/dbtest"
	pkgerrors "github.com/cartacocktail/carta-backend/pkg/errors"
	"github.com/cartacocktail/carta-backend/pkg/security"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fastArgon = config.PasswordConfig{ArgonMemoryKB: 8, ArgonTime: 1, ArgonParallelism: 1, ArgonSaltLen: 16, ArgonKeyLen: 32}

func strPtr(v string) *string { return &v }

func TestSiteSettingsDefaultsAndUpdate(t *testing.T) {
	svc, err := NewService(ServiceParams{DB: dbtest.Client(t), PasswordConfig: fastArgon})
	require.NoError(t, err)
	ctx := context.Background()

	current, err := svc.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, Defaults(), *current)

	hide := false
	updated, err := svc.Update(ctx, SiteSettingsInput{
		BarName:    strPtr("  Le Zinc "),
		Currency:   strPtr("chf"),
		ShowPrices: &hide,
	})
	require.NoError(t, err)
	assert.Equal(t, "Le Zinc", updated.BarName)
	assert.Equal(t, "CHF", updated.Currency)
	assert.False(t, updated.ShowPrices)
	assert.Equal(t, "#7c3aed", updated.PrimaryColor)

	again, err := svc.Update(ctx, SiteSettingsInput{Tagline: strPtr("Since 1998")})
	require.NoError(t, err)
	assert.Equal(t, "Le Zinc", again.BarName)
	assert.Equal(t, "Since 1998", again.Tagline)

	_, err = svc.Update(ctx, SiteSettingsInput{BarName: strPtr("   ")})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestUpdateProfileChangesPassword(t *testing.T) {
	client := dbtest.Client(t)
	svc, err := NewService(ServiceParams{DB: client, PasswordConfig: fastArgon})
	require.NoError(t, err)
	ctx := context.Background()

	repo := users.NewRepository(client.DB())
	hash, err := security.HashPassword("first-pass1", fastArgon)
	require.NoError(t, err)
	owner, err := repo.Create(ctx, users.CreateUserDTO{Email: "owner@carta.test", PasswordHash: hash, DisplayName: "Owner"})
	require.NoError(t, err)
	_, err = repo.Create(ctx, users.CreateUserDTO{Email: "staff@carta.test", PasswordHash: hash, DisplayName: "Staff"})
	require.NoError(t, err)

	_, err = svc.UpdateProfile(ctx, owner.ID, ProfileInput{Email: strPtr("STAFF@carta.test")})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeConflict))

	_, err = svc.UpdateProfile(ctx, owner.ID, ProfileInput{CurrentPassword: "wrong", NewPassword: "second-pass2"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	_, err = svc.UpdateProfile(ctx, owner.ID, ProfileInput{CurrentPassword: "first-pass1", NewPassword: "short"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	profile, err := svc.UpdateProfile(ctx, owner.ID, ProfileInput{
		DisplayName:     strPtr("Head Bartender"),
		CurrentPassword: "first-pass1",
		NewPassword:     "second-pass2",
	})
	require.NoError(t, err)
	assert.Equal(t, "Head Bartender", profile.DisplayName)

	stored, err := repo.FindByID(ctx, owner.ID)
	require.NoError(t, err)
	ok, err := security.VerifyPassword("second-pass2", stored.PasswordHash)
	require.NoError(t, err)
	assert.True(t, ok)
}
