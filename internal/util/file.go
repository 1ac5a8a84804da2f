package util

import (
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"
)

// ValidateMimeType 深度校验文件 MIME 类型
// allowedTypes: 允许的 MIME 前缀或完整类型，如 "text/"
func ValidateMimeType(content []byte, allowedTypes []string) (string, error) {
	n := len(content)
	if n > 512 {
		n = 512
	}

	mimeType := http.DetectContentType(content[:n])
	for _, allowed := range allowedTypes {
		if strings.HasPrefix(mimeType, allowed) || mimeType == allowed {
			return mimeType, nil
		}
	}

	return mimeType, fmt.Errorf("%w: file type %s", ErrInvalidUpload, mimeType)
}

// ReadCSVUpload 读取上传的 CSV 文件内容：校验扩展名、大小和内容类型
func ReadCSVUpload(fh *multipart.FileHeader) ([]byte, error) {
	if !strings.EqualFold(filepath.Ext(fh.Filename), CSVExtension) {
		return nil, fmt.Errorf("%w: only %s files are accepted", ErrInvalidUpload, CSVExtension)
	}
	if fh.Size > MaxCSVUploadSize {
		return nil, fmt.Errorf("%w: file exceeds %d bytes", ErrInvalidUpload, MaxCSVUploadSize)
	}

	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()

	content, err := io.ReadAll(io.LimitReader(f, MaxCSVUploadSize+1))
	if err != nil {
		return nil, err
	}
	if len(content) > MaxCSVUploadSize {
		return nil, fmt.Errorf("%w: file exceeds %d bytes", ErrInvalidUpload, MaxCSVUploadSize)
	}
	if len(content) == 0 {
		return content, nil
	}

	if _, err := ValidateMimeType(content, []string{MimeText, MimeOctetStream}); err != nil {
		return nil, err
	}
	return content, nil
}
