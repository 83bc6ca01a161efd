package domain

import "errors"

var (
	// ErrInvalidProductID - идентификатор товара отсутствует или равен нулю.
	ErrInvalidProductID = errors.New("invalid product ID")
	// ErrProductNotFound - товара нет в корзине.
	ErrProductNotFound = errors.New("product not found in cart")
	// ErrSessionRequired - не передан идентификатор сессии корзины.
	ErrSessionRequired = errors.New("session id is required")
	// ErrSnapshotNotFound возвращается, если для сессии нет сохранённого снимка.
	ErrSnapshotNotFound = errors.New("cart snapshot not found")
	// ErrSnapshotCorrupt - сохранённый снимок не удалось разобрать.
	ErrSnapshotCorrupt = errors.New("cart snapshot is corrupt")
	// ErrStorageUnavailable - временная ошибка хранилища, можно повторить попытку.
	ErrStorageUnavailable = errors.New("cart storage unavailable")
)

// IsSnapshotNotFound проверяет, что снимок отсутствует в хранилище.
func IsSnapshotNotFound(err error) bool {
	return errors.Is(err, ErrSnapshotNotFound)
}
