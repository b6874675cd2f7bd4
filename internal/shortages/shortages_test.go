package shortages

import (
	"context"
	"testing"
	"time"

	"github.com/cartacocktail/carta-backend/pkg/db/dbtest"
	"github.com/cartacocktail/carta-backend/pkg/db/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListCountsOnlySealedBottles(t *testing.T) {
	conn := dbtest.Open(t)
	ctx := context.Background()

	rum := dbtest.Category(t, conn, "Rum", "SPIRIT", 3)
	gin := dbtest.Category(t, conn, "Gin", "SPIRIT", 1)
	vodka := dbtest.Category(t, conn, "Vodka", "SPIRIT", 2)
	dbtest.Category(t, conn, "Orgeat", "SYRUP", 0)

	dbtest.Bottle(t, conn, "Havana", rum, 700, 100)
	opened := dbtest.Bottle(t, conn, "Plantation", rum, 700, 100)
	now := time.Now().UTC()
	require.NoError(t, conn.Model(&models.Bottle{}).Where("id = ?", opened.ID).Update("opened_at", now).Error)
	dbtest.Bottle(t, conn, "Half rum", rum, 700, 60)
	dbtest.Bottle(t, conn, "Tanqueray", gin, 700, 100)

	svc, err := NewService(conn)
	require.NoError(t, err)
	list, err := svc.List(ctx)
	require.NoError(t, err)

	require.Len(t, list, 2)
	assert.Equal(t, "Rum", list[0].CategoryName)
	assert.Equal(t, 1, list[0].SealedCount)
	assert.Equal(t, 2, list[0].Missing)
	assert.Equal(t, "SPIRIT", list[0].TypeName)
	assert.Equal(t, vodka.ID, list[1].CategoryID)
	assert.Equal(t, 2, list[1].Missing)
}

func TestComputeSortsTiesByName(t *testing.T) {
	a := models.Category{Name: "beta", DesiredStock: 1}
	b := models.Category{Name: "Alpha", DesiredStock: 1}
	out := Compute([]models.Category{a, b}, nil)
	require.Len(t, out, 2)
	assert.Equal(t, "Alpha", out[0].CategoryName)
}
