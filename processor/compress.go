package processor

import (
	"fmt"

	"github.com/golang/snappy"
)

// CompressPayload сжимает данные алгоритмом Snappy
func CompressPayload(data []byte) []byte {
	return snappy.Encode(nil, data)
}

// DecompressPayload распаковывает данные, сжатые CompressPayload
func DecompressPayload(data []byte) ([]byte, error) {
	decompressed, err := snappy.Decode(nil, data)
	if err != nil {
		return nil, fmt.Errorf("ошибка распаковки snappy: %w", err)
	}
	return decompressed, nil
}
