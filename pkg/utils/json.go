package utils

import (
	jsoniter "github.com/json-iterator/go"
)

var Json = jsoniter.ConfigCompatibleWithStandardLibrary

// WriteJsonToFile marshals v indented and hands the bytes to write.
func WriteJsonToFile(write func(data []byte) error, v any) error {
	data, err := Json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return write(data)
}
