package csvfile

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"
	"unicode/utf8"
)

var (
	ErrContentType   = errors.New("content type not allowed")
	ErrBinaryContent = errors.New("file appears to be binary, not CSV")
	ErrEmptyUpload   = errors.New("file is empty")
)

var allowedDeclaredTypes = map[string]bool{
	"text/csv":                 true,
	"application/csv":          true,
	"application/vnd.ms-excel": true,
	"text/plain":               true,
	"application/octet-stream": true,
}

var allowedDetectedTypes = map[string]bool{
	"text/plain": true,
	"text/csv":   true,
}

// ValidateContentType checks the client-declared type of an upload.
// An empty declaration is accepted; the body sniff still applies.
func ValidateContentType(contentType string) error {
	if strings.TrimSpace(contentType) == "" {
		return nil
	}
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil || !allowedDeclaredTypes[strings.ToLower(mt)] {
		return fmt.Errorf("%w: %q", ErrContentType, contentType)
	}
	return nil
}

// ValidateContent inspects the first KiB of an upload and rewinds it.
func ValidateContent(file io.ReadSeeker) error {
	buf := make([]byte, 1024)
	n, err := file.Read(buf)
	if err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("read upload: %w", err)
	}
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("rewind upload: %w", err)
	}
	if n == 0 {
		return ErrEmptyUpload
	}
	head := buf[:n]
	if bytes.IndexByte(head, 0) != -1 || !utf8.Valid(trimPartialRune(head)) {
		return ErrBinaryContent
	}
	detected := strings.ToLower(strings.Split(http.DetectContentType(head), ";")[0])
	if !allowedDetectedTypes[detected] {
		return fmt.Errorf("%w: detected %q", ErrContentType, detected)
	}
	return nil
}

// trimPartialRune drops a multi-byte sequence cut off by the sniff window.
func trimPartialRune(b []byte) []byte {
	for i := 1; i <= utf8.UTFMax && i <= len(b); i++ {
		if utf8.RuneStart(b[len(b)-i]) {
			if !utf8.FullRune(b[len(b)-i:]) {
				return b[:len(b)-i]
			}
			break
		}
	}
	return b
}
