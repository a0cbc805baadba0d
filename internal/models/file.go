package models

// File файл для отправки пользователю.
type File struct {
	Name    string
	Data    []byte
	Caption string
}
