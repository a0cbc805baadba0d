// Package models содержит доменные структуры бота: пользователя платформы,
// платёж с его жизненным циклом, элемент контент-библиотеки, агрегированную
// статистику и события аудита.
package models

import "time"

// User представляет пользователя чат-платформы.
// Идентификатор назначается платформой, запись обновляется при каждом действии пользователя.
type User struct {
	UserID     int64     `json:"user_id"`
	Username   string    `json:"username,omitempty"`
	FirstName  string    `json:"first_name,omitempty"`
	LastName   string    `json:"last_name,omitempty"`
	LastActive time.Time `json:"last_active"`
}

// DisplayName возвращает @username, иначе имя и фамилию.
func (u *User) DisplayName() string {
	if u == nil {
		return ""
	}
	if u.Username != "" {
		return "@" + u.Username
	}
	name := u.FirstName
	if u.LastName != "" {
		if name != "" {
			name += " "
		}
		name += u.LastName
	}
	return name
}
