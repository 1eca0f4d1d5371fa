package model

import (
	"fmt"
	"time"
)

// ロールは user / admin の2種類だけ
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// ParseRole は文字列を Role に変換する。未知の値はエラー。
func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleUser:
		return RoleUser, nil
	case RoleAdmin:
		return RoleAdmin, nil
	default:
		return "", fmt.Errorf("unknown role %q", s)
	}
}

func (r Role) IsAdmin() bool {
	return r == RoleAdmin
}

type User struct {
	ID            int64  `gorm:"primaryKey;autoIncrement" json:"id"`
	Name          string `gorm:"type:varchar(255);not null" json:"name"`
	Email         string `gorm:"type:varchar(255);uniqueIndex;not null" json:"email"`
	PasswordHash  string `gorm:"column:password_hash;not null" json:"-"`
	ContactNumber string `gorm:"type:varchar(30);not null" json:"contact_number"`
	Role          Role   `gorm:"type:varchar(20);not null;default:'user'" json:"role"`
	//ログアウトで+1して、発行済みトークンを全部無効にする
	TokenVersion int       `gorm:"not null;default:0" json:"-"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
