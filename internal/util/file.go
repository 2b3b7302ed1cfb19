package util

import (
	"fmt"
	"io"
	"mime/multipart"
)

// ErrFileTooLarge is returned by ReadUploadedFile when the upload exceeds the limit
var ErrFileTooLarge = fmt.Errorf("file too large")

// ReadUploadedFile reads a multipart file fully, refusing anything over maxBytes
func ReadUploadedFile(file *multipart.FileHeader, maxBytes int64) ([]byte, error) {
	if file.Size > maxBytes {
		return nil, ErrFileTooLarge
	}

	src, err := file.Open()
	if err != nil {
		return nil, err
	}
	defer src.Close()

	data, err := io.ReadAll(io.LimitReader(src, maxBytes+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > maxBytes {
		return nil, ErrFileTooLarge
	}
	return data, nil
}
