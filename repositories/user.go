package repositories

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"

	"rentezy-chat/errors"
)

// User is the repository-level representation of an account. Only the
// fields the chat core needs: an identifier, a display label and the
// credential hash for the auth collaborator.
type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	Role         string    `json:"role"`
	PasswordHash string    `json:"password_hash"`
	CreatedAt    time.Time `json:"created_at"`
}

// UserRepository is the user directory: it backs both login and the
// roster's label resolution.
type UserRepository struct {
	db *badger.DB
}

func NewUserRepository(db *badger.DB) *UserRepository {
	return &UserRepository{db: db}
}

func userKey(id string) []byte       { return []byte("user:" + id) }
func usernameKey(name string) []byte { return []byte("username:" + name) }

// CreateUser persists a new user and returns the generated id. The
// username is unique; a second registration with the same name fails
// with ErrUserAlreadyExists.
func (u *UserRepository) CreateUser(username, role, hashedPassword string) (string, error) {
	user := User{
		ID:           uuid.New().String(),
		Username:     username,
		Role:         role,
		PasswordHash: hashedPassword,
		CreatedAt:    time.Now().UTC(),
	}
	data, err := json.Marshal(user)
	if err != nil {
		return "", fmt.Errorf("marshal failed: %w", err)
	}

	err = u.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get(usernameKey(username)); err == nil {
			return errors.ErrUserAlreadyExists
		}
		if err := txn.Set(usernameKey(username), []byte(user.ID)); err != nil {
			return err
		}
		return txn.Set(userKey(user.ID), data)
	})
	if err != nil {
		return "", err
	}
	return user.ID, nil
}

// GetByID retrieves a user by id, ErrNotFound when absent.
func (u *UserRepository) GetByID(id string) (User, error) {
	return u.get(userKey(id))
}

// GetByUsername retrieves a user through the username index.
func (u *UserRepository) GetByUsername(username string) (User, error) {
	var id []byte
	err := u.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(usernameKey(username))
		if err != nil {
			return err
		}
		id, err = item.ValueCopy(nil)
		return err
	})
	if err != nil {
		if err == badger.ErrKeyNotFound {
			return User{}, errors.ErrNotFound
		}
		return User{}, err
	}
	return u.get(userKey(string(id)))
}

// ResolveLabel implements the contract.Directory lookup the roster uses.
func (u *UserRepository) ResolveLabel(ctx context.Context, userID string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	user, err := u.GetByID(userID)
	if err != nil {
		return "", err
	}
	return user.Username, nil
}

func (u *UserRepository) get(key []byte) (User, error) {
	var user User
	err := u.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &user)
		})
	})
	if err != nil {
		if err == badger.ErrKeyNotFound {
			return User{}, errors.ErrNotFound
		}
		return User{}, err
	}
	return user, nil
}
