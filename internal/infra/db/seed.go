package db

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"shopapi/internal/domain/model"
	"shopapi/internal/repository"
)

type PasswordHasher interface {
	Hash(plain string) (string, error)
}

// 管理者の初期アカウント
type AdminSeed struct {
	Name          string
	Email         string
	Password      string
	ContactNumber string
}

// SeedAdmin は管理者が居なければ作る。既にあれば何もしない。
// 作ったらtrue。
func SeedAdmin(ctx context.Context, users repository.UserRepository, hasher PasswordHasher, seed AdminSeed) (bool, error) {
	email := strings.ToLower(strings.TrimSpace(seed.Email))
	if email == "" {
		return false, nil
	}

	_, err := users.FindByEmail(ctx, email)
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return false, fmt.Errorf("find admin: %w", err)
	}

	hash, err := hasher.Hash(seed.Password)
	if err != nil {
		return false, fmt.Errorf("hash admin password: %w", err)
	}

	admin := &model.User{
		Name:          seed.Name,
		Email:         email,
		PasswordHash:  hash,
		ContactNumber: seed.ContactNumber,
		Role:          model.RoleAdmin,
	}
	if err := users.Create(ctx, admin); err != nil {
		// 複数台同時起動
		if errors.Is(err, repository.ErrDuplicate) {
			return false, nil
		}
		return false, fmt.Errorf("create admin: %w", err)
	}
	return true, nil
}
