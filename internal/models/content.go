package models

import "time"

// FileType подсказка о способе отправки контента.
type FileType string

const (
	FileTypeVideo    FileType = "video"
	FileTypeDocument FileType = "document"
	FileTypeOther    FileType = "other"
)

// Content элемент контент-библиотеки, зарегистрированный администратором.
// FilePath непрозрачный локатор, который разрешает хранилище контента
// (id файла Google Drive или http(s) ссылка).
type Content struct {
	ContentID  string    `json:"content_id"`
	Title      string    `json:"title"`
	FilePath   string    `json:"file_path"`
	FileType   FileType  `json:"file_type"`
	UploadedAt time.Time `json:"uploaded_at"`
	AdminID    int64     `json:"admin_id"`
}

// AddContentRequest аргументы команды addcontent до генерации идентификатора.
type AddContentRequest struct {
	Title    string `validate:"required,max=255"`
	Locator  string `validate:"required"`
	FileType string `validate:"omitempty,oneof=video document other"`
}
