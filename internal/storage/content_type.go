package storage

import (
	"io"
	"mime"
	"net/http"
	"strings"
)

// SniffLen is the number of leading bytes http.DetectContentType inspects.
const SniffLen = 512

// SniffContentType reads up to SniffLen bytes from data and returns the
// detected MIME type together with the bytes consumed, so callers reading
// from a non-seekable stream can replay them.
func SniffContentType(data io.Reader) (string, []byte, error) {
	buffer := make([]byte, SniffLen)
	n, err := io.ReadFull(data, buffer)
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		return "", nil, err
	}
	return http.DetectContentType(buffer[:n]), buffer[:n], nil
}

// AllowedImageTypes defines the MIME types accepted for load photos.
var AllowedImageTypes = map[string]bool{
	"image/jpeg": true,
	"image/jpg":  true, // Some systems use this instead of image/jpeg
	"image/png":  true,
}

// IsAllowedImageType checks if a content type is an accepted photo format.
func IsAllowedImageType(contentType string) bool {
	return AllowedImageTypes[baseType(contentType)]
}

// baseType strips parameters such as charset and lowercases the type.
func baseType(contentType string) string {
	base := strings.Split(contentType, ";")[0]
	return strings.TrimSpace(strings.ToLower(base))
}

// extensionForContentType returns a common file extension for a MIME type.
func extensionForContentType(contentType string) string {
	switch baseType(contentType) {
	case "image/jpeg", "image/jpg":
		return ".jpg"
	case "image/png":
		return ".png"
	}

	exts, err := mime.ExtensionsByType(contentType)
	if err == nil && len(exts) > 0 {
		return exts[0]
	}
	return ".bin"
}
