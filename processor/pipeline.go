package processor

import (
	"encoding/json"
	"fmt"
)

// EncodeSnapshot объединяет два этапа подготовки снимка к хранению:
// 1. Сериализация значения в JSON
// 2. Сжатие результата Snappy (CompressPayload из compress.go)
func EncodeSnapshot(v interface{}) ([]byte, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("ошибка сериализации снимка: %w", err)
	}
	return CompressPayload(raw), nil
}

// DecodeSnapshot выполняет обратный процесс: распаковка и разбор JSON в v
func DecodeSnapshot(data []byte, v interface{}) error {
	raw, err := DecompressPayload(data)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("ошибка разбора снимка: %w", err)
	}
	return nil
}
