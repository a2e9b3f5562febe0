// Package memstorage holds the in-memory admin user store. There is a single
// operator account seeded from configuration; a users table would be
// overkill for this service.
package memstorage

import (
	"context"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/recapstack/decide-api/internal/domain/user"
	"github.com/recapstack/decide-api/internal/ierr"
	"golang.org/x/crypto/bcrypt"
)

type UserRepository struct {
	mu    sync.RWMutex
	users map[string]*user.User
}

// NewUserRepository seeds the repository with the configured admin account.
// The plaintext password is hashed here and never kept around.
func NewUserRepository(adminUsername, adminPassword string) (*UserRepository, error) {
	repo := &UserRepository{
		users: make(map[string]*user.User),
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(adminPassword), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	adminUser := &user.User{
		ID:           uuid.New(),
		Username:     adminUsername,
		PasswordHash: string(hashedPassword),
		Role:         "admin",
	}
	repo.users[strings.ToLower(adminUser.Username)] = adminUser

	return repo, nil
}

func (r *UserRepository) FindByUsername(ctx context.Context, username string) (*user.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.users[strings.ToLower(username)]
	if !ok {
		return nil, ierr.ErrUserNotFound
	}

	userCopy := *u
	return &userCopy, nil
}

func CheckPassword(hashedPassword, password string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hashedPassword), []byte(password))
	return err == nil
}
