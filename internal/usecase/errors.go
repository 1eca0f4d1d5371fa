package usecase

import (
	"errors"
	"fmt"
	"net/http"
)

// handlerでそのままレスポンスにするエラー
type HTTPError struct {
	Status  int
	Message string
	// 入力エラー（フィールド名 → メッセージ）
	Fields map[string]string
	// 在庫不足の商品IDなど
	Details map[string]interface{}
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("%d: %s", e.Status, e.Message)
}

func NewHTTPError(status int, message string) error {
	return &HTTPError{
		Status:  status,
		Message: message,
	}
}

// 422 + フィールドごとのメッセージ
func NewValidationError(fields map[string]string) error {
	return &HTTPError{
		Status:  http.StatusUnprocessableEntity,
		Message: "the given data was invalid",
		Fields:  fields,
	}
}

func newFieldError(field, message string) error {
	return NewValidationError(map[string]string{field: message})
}

func newDetailError(status int, message string, details map[string]interface{}) error {
	return &HTTPError{
		Status:  status,
		Message: message,
		Details: details,
	}
}

func AsHTTPError(err error) (*HTTPError, bool) {
	var he *HTTPError
	ok := errors.As(err, &he)
	return he, ok
}

// 500はメッセージを固定（中身はログにだけ出す）
func errInternal() error {
	return NewHTTPError(http.StatusInternalServerError, "internal server error")
}
