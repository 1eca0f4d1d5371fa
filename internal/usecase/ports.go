package usecase

import (
	"context"

	"shopapi/internal/domain/model"
)

// パスワードのハッシュ化と照合
type PasswordHasher interface {
	Hash(plain string) (string, error)
	Verify(plain string, hashed string) bool
}

// アクセストークン発行
type TokenIssuer interface {
	Issue(user model.User) (string, error)
}

// 入力チェック。OKならnil map
type InputValidator interface {
	Struct(s interface{}) (map[string]string, error)
}

// カテゴリ一覧のキャッシュ。失敗しても呼び出し側は止めない
type CategoryCache interface {
	Get(ctx context.Context) ([]string, bool)
	Set(ctx context.Context, categories []string)
	Invalidate(ctx context.Context)
}

// 注文イベントの送信（ベストエフォート）
type OrderEventPublisher interface {
	PublishOrderEvent(ctx context.Context, evt model.OrderEvent) error
}
