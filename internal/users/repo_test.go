package users

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/storefront-backend/pkg/db"
	"github.com/angelmondragon/storefront-backend/pkg/db/dbtest"
)

func TestRepositoryCreateAndFind(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository(dbtest.Open(t))

	created, err := repo.Create(ctx, CreateUserDTO{
		Username:     "jane",
		Email:        " Jane@Example.com ",
		PasswordHash: "hash",
		FirstName:    "Jane",
	})
	require.NoError(t, err)
	assert.Equal(t, "jane@example.com", created.Email)
	assert.True(t, created.IsActive)

	byName, err := repo.FindByUsername(ctx, "jane")
	require.NoError(t, err)
	assert.Equal(t, created.ID, byName.ID)

	byEmail, err := repo.FindByEmail(ctx, "JANE@example.com")
	require.NoError(t, err)
	assert.Equal(t, created.ID, byEmail.ID)

	_, err = repo.FindByUsername(ctx, "nobody")
	assert.True(t, db.IsNotFound(err))

	at := time.Now().UTC().Truncate(time.Second)
	require.NoError(t, repo.UpdateLastLogin(ctx, created.ID, at))
	reloaded, err := repo.FindByID(ctx, created.ID)
	require.NoError(t, err)
	require.NotNil(t, reloaded.LastLoginAt)
	assert.True(t, reloaded.LastLoginAt.Equal(at))
}

func TestConflictField(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository(dbtest.Open(t))

	_, err := repo.Create(ctx, CreateUserDTO{Username: "sam", Email: "sam@example.com", PasswordHash: "h"})
	require.NoError(t, err)

	_, err = repo.Create(ctx, CreateUserDTO{Username: "sam", Email: "other@example.com", PasswordHash: "h"})
	assert.Equal(t, FieldUsername, ConflictField(err))

	_, err = repo.Create(ctx, CreateUserDTO{Username: "sam2", Email: "SAM@example.com", PasswordHash: "h"})
	assert.Equal(t, FieldEmail, ConflictField(err))

	pgErr := fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23505", ConstraintName: "idx_users_email"})
	assert.Equal(t, FieldEmail, ConflictField(pgErr))
	assert.Equal(t, "", ConflictField(nil))
}
