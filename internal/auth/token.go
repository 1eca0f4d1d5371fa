package auth

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v4"

	"shopapi/internal/domain/model"
)

var ErrInvalidToken = errors.New("invalid token")

// トークンから取り出す値
type Claims struct {
	UserID       int64
	Role         model.Role
	TokenVersion int
	ExpiresAt    time.Time
}

// HS256のアクセストークンを発行・検証する
type TokenManager struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewTokenManager(secret string, ttl time.Duration) *TokenManager {
	return &TokenManager{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// Issue は sub / role / tv / iat / exp を持つJWTを作る
func (m *TokenManager) Issue(user model.User) (string, error) {
	now := m.now()
	claims := jwt.MapClaims{
		"sub":  strconv.FormatInt(user.ID, 10),
		"role": string(user.Role),
		"tv":   user.TokenVersion,
		"iat":  now.Unix(),
		"exp":  now.Add(m.ttl).Unix(),
	}

	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := t.SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

func (m *TokenManager) TTL() time.Duration {
	return m.ttl
}

// Parse は署名・期限を確認してclaimsを返す
func (m *TokenManager) Parse(raw string) (Claims, error) {
	parser := jwt.Parser{}
	token, err := parser.Parse(raw, func(t *jwt.Token) (interface{}, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing method")
		}
		return m.secret, nil
	})
	if err != nil || token == nil || !token.Valid {
		return Claims{}, ErrInvalidToken
	}

	mc, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return Claims{}, ErrInvalidToken
	}

	userID, err := parseUserID(mc["sub"])
	if err != nil || userID <= 0 {
		return Claims{}, ErrInvalidToken
	}

	rawRole, _ := mc["role"].(string)
	role, err := model.ParseRole(rawRole)
	if err != nil {
		return Claims{}, ErrInvalidToken
	}

	tv, err := parseInt(mc["tv"])
	if err != nil || tv < 0 {
		return Claims{}, ErrInvalidToken
	}

	var exp time.Time
	if v, ok := mc["exp"].(float64); ok {
		exp = time.Unix(int64(v), 0)
	}

	return Claims{UserID: userID, Role: role, TokenVersion: tv, ExpiresAt: exp}, nil
}

// subをint64に変換する
func parseUserID(v interface{}) (int64, error) {
	switch t := v.(type) {
	case float64:
		return int64(t), nil
	case string:
		return strconv.ParseInt(t, 10, 64)
	default:
		return 0, errors.New("invalid sub")
	}
}

func parseInt(v interface{}) (int, error) {
	switch t := v.(type) {
	case float64:
		return int(t), nil
	case string:
		i64, err := strconv.ParseInt(t, 10, 32)
		if err != nil {
			return 0, err
		}
		return int(i64), nil
	default:
		return 0, errors.New("invalid int")
	}
}
