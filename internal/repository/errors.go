package repository

import "errors"

var (
	// 見つからない
	ErrNotFound = errors.New("not found")

	// 一意制約違反（email / barcode / cart の user×product）
	ErrDuplicate = errors.New("duplicate")
)
