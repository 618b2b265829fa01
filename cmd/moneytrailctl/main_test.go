package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moneytrail/moneytrail/internal/auth"
	"github.com/moneytrail/moneytrail/internal/cache"
	"github.com/moneytrail/moneytrail/internal/middleware"
	"github.com/moneytrail/moneytrail/internal/model"
	"github.com/moneytrail/moneytrail/internal/repository"
	"github.com/moneytrail/moneytrail/internal/testutil"
)

func testHasher(t *testing.T) *auth.HashPool {
	t.Helper()
	hasher, err := auth.NewHasher(auth.AlgoBcrypt, 4)
	require.NoError(t, err)
	return auth.NewHashPool(hasher, 1, 10*time.Second, nil)
}

func TestAddUser(t *testing.T) {
	store := testutil.NewMemoryStore()
	hasher := testHasher(t)

	user, err := addUser(context.Background(), store, hasher, middleware.SignupRequest{
		Name:     "  Ann  ",
		Email:    "ann@x.com",
		Password: "s3cret",
	})
	require.NoError(t, err)
	assert.Equal(t, "Ann", user.Name)

	stored := store.User("ann@x.com")
	require.NotNil(t, stored)
	ok, err := hasher.Verify(context.Background(), "s3cret", stored.PasswordHash)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestAddUser_LongPassword(t *testing.T) {
	store := testutil.NewMemoryStore()
	hasher := testHasher(t)
	password := strings.Repeat("pässwörd", 12)

	_, err := addUser(context.Background(), store, hasher, middleware.SignupRequest{
		Name: "Ann", Email: "ann@x.com", Password: password,
	})
	require.NoError(t, err)

	stored := store.User("ann@x.com")
	require.NotNil(t, stored)
	ok, err := hasher.Verify(context.Background(), password, stored.PasswordHash)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestAddUser_Rejections(t *testing.T) {
	store := testutil.NewMemoryStore()
	hasher := testHasher(t)

	_, err := addUser(context.Background(), store, hasher, middleware.SignupRequest{
		Name: "Ann", Email: "ann@x.com", Password: "s3cret",
	})
	require.NoError(t, err)

	tests := []struct {
		name    string
		req     middleware.SignupRequest
		wantErr string
	}{
		{"short password", middleware.SignupRequest{Name: "Bob", Email: "bob@x.com", Password: "abc"}, `"password" length must be at least 4 characters long`},
		{"bad email", middleware.SignupRequest{Name: "Bob", Email: "bob", Password: "abcd"}, `"email" must be a valid email`},
		{"duplicate", middleware.SignupRequest{Name: "Other", Email: "ann@x.com", Password: "abcd"}, "an account for ann@x.com already exists"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := addUser(context.Background(), store, hasher, tt.req)
			require.Error(t, err)
			assert.Equal(t, tt.wantErr, err.Error())
		})
	}
}

func TestDeleteUser_EvictsIdentity(t *testing.T) {
	ctx := context.Background()
	store := testutil.NewMemoryStore()
	user, err := addUser(ctx, store, testHasher(t), middleware.SignupRequest{
		Name: "Ann", Email: "ann@x.com", Password: "s3cret",
	})
	require.NoError(t, err)

	local, err := cache.NewLocal(time.Minute)
	require.NoError(t, err)
	defer local.Close()
	require.NoError(t, local.SetIdentity(ctx, &model.Identity{ID: user.ID, Name: "Ann", Email: "ann@x.com"}, time.Minute))

	id, err := deleteUser(ctx, store, local, "ann@x.com")
	require.NoError(t, err)
	assert.Equal(t, user.ID, id)

	_, err = store.GetIdentity(ctx, user.ID)
	assert.True(t, errors.Is(err, repository.ErrUserNotFound))

	cached, err := local.GetIdentity(ctx, user.ID)
	require.NoError(t, err)
	assert.Nil(t, cached)
}

func TestDeleteUser_Unknown(t *testing.T) {
	_, err := deleteUser(context.Background(), testutil.NewMemoryStore(), nil, "ghost@x.com")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no account for ghost@x.com")
}

func TestReadPassword_FromPipe(t *testing.T) {
	got, err := readPassword(strings.NewReader("s3cret\nignored\n"))
	require.NoError(t, err)
	assert.Equal(t, "s3cret", got)

	_, err = readPassword(strings.NewReader(""))
	assert.Error(t, err)
}

func TestPrintMigrationStatus(t *testing.T) {
	var out bytes.Buffer

	migrations, err := repository.Migrations()
	require.NoError(t, err)
	require.NotEmpty(t, migrations)

	printMigrationStatus(&out, migrations, []string{migrations[0].Version})

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, len(migrations))
	assert.True(t, strings.HasPrefix(lines[0], "applied"))
	if len(lines) > 1 {
		assert.True(t, strings.HasPrefix(lines[1], "pending"))
	}
}

func TestApp_RequiresDatabaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	require.NoError(t, os.Unsetenv("DATABASE_URL"))
	app := newApp()
	var out bytes.Buffer
	app.Writer = &out
	app.ErrWriter = &out

	err := app.Run([]string{"moneytrailctl", "migrate"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "database-url")
}
