package provisioning

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/amorize/checkout-backend/pkg/db/models"
)

func setupProvisioningTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	profiles := `
CREATE TABLE IF NOT EXISTS profiles (
  id TEXT PRIMARY KEY,
  name TEXT NOT NULL,
  email TEXT NOT NULL UNIQUE,
  cpf TEXT NOT NULL DEFAULT '',
  whatsapp TEXT NOT NULL DEFAULT '',
  access TEXT NOT NULL DEFAULT '{}',
  primeiro_acesso INTEGER NOT NULL DEFAULT 1,
  has_changed_password INTEGER NOT NULL DEFAULT 0,
  is_admin INTEGER NOT NULL DEFAULT 0,
  created_at DATETIME,
  updated_at DATETIME
);`
	credentials := `
CREATE TABLE IF NOT EXISTS credentials (
  id TEXT PRIMARY KEY,
  email TEXT NOT NULL UNIQUE,
  password_hash TEXT NOT NULL,
  created_at DATETIME,
  updated_at DATETIME
);`

	require.NoError(t, db.Exec(profiles).Error)
	require.NoError(t, db.Exec(credentials).Error)

	t.Cleanup(func() {
		db.Exec("DELETE FROM credentials")
		db.Exec("DELETE FROM profiles")
	})

	return db
}

func TestRepositoryUpsertProfileConvergesOnID(t *testing.T) {
	db := setupProvisioningTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	id := uuid.New()
	first := &models.Profile{
		ID:     id,
		Name:   "Maria",
		Email:  "maria@example.com",
		CPF:    "12345678909",
		Access: []string{},
	}
	require.NoError(t, repo.UpsertProfile(ctx, first))

	second := &models.Profile{
		ID:     id,
		Name:   "Maria Souza",
		Email:  "maria@example.com",
		CPF:    "12345678909",
		Access: []string{},
	}
	require.NoError(t, repo.UpsertProfile(ctx, second))

	var count int64
	require.NoError(t, db.Model(&models.Profile{}).Count(&count).Error)
	require.Equal(t, int64(1), count)

	found, err := repo.FindProfileByEmail(ctx, "maria@example.com")
	require.NoError(t, err)
	require.Equal(t, "Maria Souza", found.Name)
}

func TestRepositoryFindProfileByEmailNotFound(t *testing.T) {
	db := setupProvisioningTestDB(t)
	repo := NewRepository(db)

	_, err := repo.FindProfileByEmail(context.Background(), "ghost@example.com")
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestRepositoryCredentialLifecycle(t *testing.T) {
	db := setupProvisioningTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	id := uuid.New()
	require.NoError(t, repo.CreateCredential(ctx, &models.Credential{
		ID:           id,
		Email:        "maria@example.com",
		PasswordHash: "$argon2id$test",
	}))

	// Duplicate email must hit the unique index.
	err := repo.CreateCredential(ctx, &models.Credential{
		ID:           uuid.New(),
		Email:        "maria@example.com",
		PasswordHash: "$argon2id$other",
	})
	require.Error(t, err)

	require.NoError(t, repo.DeleteCredential(ctx, id))

	var count int64
	require.NoError(t, db.Model(&models.Credential{}).Count(&count).Error)
	require.Equal(t, int64(0), count)
}
