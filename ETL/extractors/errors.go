package extractors

import (
	"errors"
	"fmt"
)

// ErrFileNotFound - файл обязательного источника отсутствует
var ErrFileNotFound = errors.New("файл источника не найден")

// FileNotFoundError уточняет, какой источник и по какому пути не найден
type FileNotFoundError struct {
	Source string
	Path   string
}

func (e *FileNotFoundError) Error() string {
	return fmt.Sprintf("источник %q: файл %s не найден", e.Source, e.Path)
}

// Is позволяет сравнивать ошибку с ErrFileNotFound через errors.Is
func (e *FileNotFoundError) Is(target error) bool {
	return target == ErrFileNotFound
}
