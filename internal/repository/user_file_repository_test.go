package repository

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"fsanano/shopcart/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserFileRepository_CreatesMissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "users.txt")
	repo := NewUserFileRepository(path, nil)

	users, err := repo.LoadUsers(context.Background())
	require.NoError(t, err)
	assert.Empty(t, users)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Zero(t, info.Size())
}

func TestUserFileRepository_SkipsMalformedRecords(t *testing.T) {
	path := filepath.Join(t.TempDir(), "users.txt")
	content := "Alice,alice@example.com,secret,555-0100,30\n" +
		"Bob,bob@example.com,hunter2,555-0101,thirty\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	users, err := NewUserFileRepository(path, nil).LoadUsers(context.Background())
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, model.User{
		Name:        "Alice",
		Email:       "alice@example.com",
		Password:    "secret",
		PhoneNumber: "555-0100",
		Age:         30,
	}, users[0])
}

func TestUserFileRepository_MalformedShapes(t *testing.T) {
	path := filepath.Join(t.TempDir(), "users.txt")
	content := "\n" +
		"only,four,fields,here\n" +
		"too,many,fields,in,this,one\n" +
		"Neg,neg@example.com,pw,555,-4\n" +
		"Carol,carol@example.com,pw,555-0102,41\r\n" +
		"Dave,dave@example.com,pw,555-0103, 22\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	users, err := NewUserFileRepository(path, nil).LoadUsers(context.Background())
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, "Carol", users[0].Name)
	assert.Equal(t, 41, users[0].Age)
}

func TestUserFileRepository_SaveAppends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "users.txt")
	repo := NewUserFileRepository(path, nil)
	ctx := context.Background()

	require.NoError(t, repo.SaveUser(ctx, model.User{Name: "Alice", Email: "alice@example.com", Password: "pw", PhoneNumber: "555-0100", Age: 30}))
	require.NoError(t, repo.SaveUser(ctx, model.User{Name: "Bob", Email: "bob@example.com", Password: "pw2", PhoneNumber: "555-0101", Age: 25}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "Alice,alice@example.com,pw,555-0100,30\nBob,bob@example.com,pw2,555-0101,25\n", string(data))

	users, err := repo.LoadUsers(ctx)
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, "Bob", users[1].Name)
}

func TestUserFileRepository_CommaInField(t *testing.T) {
	path := filepath.Join(t.TempDir(), "users.txt")
	repo := NewUserFileRepository(path, nil)
	ctx := context.Background()

	user := model.User{Name: "Smith, John", Email: "john@example.com", Password: "a,b", PhoneNumber: "555", Age: 50}
	require.NoError(t, repo.SaveUser(ctx, user))

	users, err := repo.LoadUsers(ctx)
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, user, users[0])
}

func TestUserFileRepository_UnquotedLegacyQuote(t *testing.T) {
	path := filepath.Join(t.TempDir(), "users.txt")
	content := "Al,al@x.com,\"pw,555,30\n" +
		"Bo,bo@x.com,pw,556,31\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	users, err := NewUserFileRepository(path, nil).LoadUsers(context.Background())
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, "Al", users[0].Name)
	assert.Equal(t, `"pw`, users[0].Password)
	assert.Equal(t, 30, users[0].Age)
	assert.Equal(t, "Bo", users[1].Name)
}
