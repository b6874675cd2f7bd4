package migrate

import (
	"context"
	"testing"

	"github.com/cartacocktail/carta-backend/pkg/config"
	"github.com/cartacocktail/carta-backend/pkg/db"
	"github.com/cartacocktail/carta-backend/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func TestMaybeRunDevAutoMigratesSQLite(t *testing.T) {
	conn, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)
	client := db.NewFromGorm(conn)

	cfg := &config.Config{App: config.AppConfig{Env: "prod"}}
	require.NoError(t, MaybeRunDev(context.Background(), cfg, logger.Nop(), client))

	for _, table := range []string{"users", "settings", "units", "bottles", "cocktail_ingredients", "cocktail_preferred_bottles", "menus", "menu_bottles"} {
		assert.True(t, conn.Migrator().HasTable(table), "table %s", table)
	}
}
