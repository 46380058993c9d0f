package model

import (
	"fmt"

	jsoniter "github.com/json-iterator/go"
)

type Size int64

func formatSize(size int64) string {
	if size < 0 {
		return "Unknown"
	}
	units := []string{"B", "KB", "MB", "GB", "TB", "PB"}
	index := 0
	fsize := float64(size)
	for fsize > 1024 && index < len(units)-1 {
		fsize /= 1024
		index++
	}
	return fmt.Sprintf("%.2f %s", fsize, units[index])
}

func (s Size) String() string {
	return formatSize(int64(s))
}

// MarshalJSON keeps sizes numeric on the wire.
func (s Size) MarshalJSON() ([]byte, error) {
	return jsoniter.Marshal(int64(s))
}
