// Package storage содержит ошибки уровня хранилища, общие для всех реализаций.
// Сервисы сравнивают их через errors.Is и не зависят от конкретной базы данных.
package storage

import "errors"

var (
	// ErrDuplicateKey запись с таким ключом уже существует (payment_id, content_id или title)
	ErrDuplicateKey = errors.New("duplicate key")
	// ErrNotFound запрошенный платёж, контент или пользователь отсутствует
	ErrNotFound = errors.New("not found")
	// ErrInvalidTransition текущий статус платежа не допускает перехода
	ErrInvalidTransition = errors.New("invalid status transition")
)
