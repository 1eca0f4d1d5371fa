package auth

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// bcryptでハッシュ化・照合する
type BcryptHasher struct {
	cost int
}

func NewBcryptHasher(cost int) *BcryptHasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &BcryptHasher{cost: cost}
}

func (h *BcryptHasher) Hash(plain string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(plain), h.cost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Verify は一致すればtrue
func (h *BcryptHasher) Verify(plain string, hashed string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hashed), []byte(plain))
	return err == nil
}

// パスワードで使ってよい記号
const passwordSymbols = "@$!%*?&"

var (
	ErrPasswordTooShort = errors.New("password must be at least 8 characters")
	ErrPasswordPolicy   = errors.New("Password must contain at least one uppercase letter, one lowercase letter, one number and one special character.")
)

// CheckPasswordPolicy は大文字・小文字・数字・記号を1つ以上含むか確認する。
// 英数字と passwordSymbols 以外の文字はNG。
func CheckPasswordPolicy(pw string) error {
	if len(pw) < 8 {
		return ErrPasswordTooShort
	}

	var upper, lower, digit, symbol bool
	for _, r := range pw {
		switch {
		case r >= 'A' && r <= 'Z':
			upper = true
		case r >= 'a' && r <= 'z':
			lower = true
		case r >= '0' && r <= '9':
			digit = true
		case isPasswordSymbol(r):
			symbol = true
		default:
			return ErrPasswordPolicy
		}
	}
	if !upper || !lower || !digit || !symbol {
		return ErrPasswordPolicy
	}
	return nil
}

func isPasswordSymbol(r rune) bool {
	for _, s := range passwordSymbols {
		if r == s {
			return true
		}
	}
	return false
}
