package storage

import (
	"context"
	"io"
)

// UploadResult описывает сохранённый в хранилище объект.
type UploadResult struct {
	Key      string
	Location string
	ETag     string
}

// FileUploader абстрагирует объектное хранилище для аватаров
// пользователей и изображений площадок.
type FileUploader interface {
	Upload(ctx context.Context, key string, contentType string, reader io.Reader) (*UploadResult, error)

	Delete(ctx context.Context, key string) error

	GetPublicURL(key string) string
}
