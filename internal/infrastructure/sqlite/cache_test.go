package sqlite_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/farmacia-api/internal/application/session"
	"github.com/jhoicas/farmacia-api/internal/domain/entity"
	"github.com/jhoicas/farmacia-api/internal/infrastructure/sqlite"
)

func openCache(t *testing.T) (*sqlite.Cache, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sub", "cache.db")
	c, err := sqlite.Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c, path
}

func TestMedications_PersistenEntreAperturas(t *testing.T) {
	ctx := context.Background()
	c, path := openCache(t)

	meds, err := c.LoadMedications(ctx)
	require.NoError(t, err)
	assert.Nil(t, meds, "sin datos guardados")

	exp := time.Date(2027, 1, 31, 0, 0, 0, 0, time.UTC)
	require.NoError(t, c.SaveMedications(ctx, []*entity.Medication{
		{ID: "m1", Name: "Ibuprofeno", Quantity: 4, Price: decimal.RequireFromString("3.25"), ExpirationDate: &exp},
		{ID: "local-x", Name: "Jarabe", Quantity: 1},
	}))
	require.NoError(t, c.Close())

	c2, err := sqlite.Open(path)
	require.NoError(t, err)
	defer c2.Close()

	meds, err = c2.LoadMedications(ctx)
	require.NoError(t, err)
	require.Len(t, meds, 2)
	assert.Equal(t, "Ibuprofeno", meds[0].Name)
	assert.True(t, decimal.RequireFromString("3.25").Equal(meds[0].Price))
	require.NotNil(t, meds[0].ExpirationDate)
	assert.True(t, exp.Equal(*meds[0].ExpirationDate))
	assert.True(t, meds[1].IsLocal())
}

func TestPendingMovements_AppendYReemplazo(t *testing.T) {
	ctx := context.Background()
	c, _ := openCache(t)
	now := time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC)

	for i, typ := range []string{entity.MovementTypeSalida, entity.MovementTypeEntrada} {
		require.NoError(t, c.AppendPendingMovement(ctx, &entity.Movement{
			MedicationID: "m1", Type: typ, Quantity: i + 1, MovementDate: now,
		}))
	}
	movs, err := c.PendingMovements(ctx)
	require.NoError(t, err)
	require.Len(t, movs, 2)
	assert.Equal(t, entity.MovementTypeSalida, movs[0].Type)
	assert.Equal(t, 2, movs[1].Quantity)

	require.NoError(t, c.SetPendingMovements(ctx, movs[1:]))
	movs, err = c.PendingMovements(ctx)
	require.NoError(t, err)
	assert.Len(t, movs, 1)

	require.NoError(t, c.SetPendingMovements(ctx, nil))
	movs, err = c.PendingMovements(ctx)
	require.NoError(t, err)
	assert.Empty(t, movs)
}

func TestSesionYBloqueos(t *testing.T) {
	ctx := context.Background()
	c, _ := openCache(t)

	s, err := c.LoadSession(ctx)
	require.NoError(t, err)
	assert.Nil(t, s)

	in := &session.Session{User: session.User{ID: "u1", Username: "ana", Role: "user", PharmacyID: 1}, Token: "jwt"}
	require.NoError(t, c.SaveSession(ctx, in))
	s, err = c.LoadSession(ctx)
	require.NoError(t, err)
	assert.Equal(t, in, s)

	require.NoError(t, c.ClearSession(ctx))
	s, err = c.LoadSession(ctx)
	require.NoError(t, err)
	assert.Nil(t, s)

	until := time.Date(2026, 3, 10, 8, 15, 0, 0, time.UTC)
	require.NoError(t, c.SaveLockout(ctx, &session.LockoutRecord{Username: "ana", Attempts: 3, BlockedUntil: until}))
	r, err := c.LoadLockout(ctx, "ana")
	require.NoError(t, err)
	require.NotNil(t, r)
	assert.Equal(t, 3, r.Attempts)
	assert.True(t, until.Equal(r.BlockedUntil))

	other, err := c.LoadLockout(ctx, "beto")
	require.NoError(t, err)
	assert.Nil(t, other)

	require.NoError(t, c.ClearLockout(ctx, "ana"))
	r, err = c.LoadLockout(ctx, "ana")
	require.NoError(t, err)
	assert.Nil(t, r)
}

func TestClear(t *testing.T) {
	ctx := context.Background()
	c, _ := openCache(t)
	require.NoError(t, c.SaveSession(ctx, &session.Session{Token: "x"}))
	require.NoError(t, c.Clear(ctx))
	s, err := c.LoadSession(ctx)
	require.NoError(t, err)
	assert.Nil(t, s)
}
