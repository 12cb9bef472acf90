package repositories

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"rentezy-chat/errors"
)

func Test_CreateUser_And_ResolveLabel(t *testing.T) {
	req := require.New(t)
	repository := NewUserRepository(openTestDB(t))

	id, err := repository.CreateUser("alice", "tenant", "$argon2id$fake")
	req.NoError(err)
	req.NotEmpty(id)

	label, err := repository.ResolveLabel(context.Background(), id)
	req.NoError(err)
	req.Equal("alice", label)

	byName, err := repository.GetByUsername("alice")
	req.NoError(err)
	req.Equal(id, byName.ID)
	req.Equal("tenant", byName.Role)
}

func Test_CreateUser_Duplicate_Username(t *testing.T) {
	req := require.New(t)
	repository := NewUserRepository(openTestDB(t))

	_, err := repository.CreateUser("bob", "landlord", "hash")
	req.NoError(err)
	_, err = repository.CreateUser("bob", "landlord", "hash")
	req.ErrorIs(err, errors.ErrUserAlreadyExists)
}

func Test_ResolveLabel_Unknown_User(t *testing.T) {
	req := require.New(t)
	repository := NewUserRepository(openTestDB(t))

	_, err := repository.ResolveLabel(context.Background(), "deleted-account")
	req.ErrorIs(err, errors.ErrNotFound)
}
