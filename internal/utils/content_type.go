package utils

import (
	"mime"
	"path/filepath"
	"strings"
)

// DetectContentType guesses a content type from the file extension. Script and config sources
// are always served as utf-8 text.
func DetectContentType(key string) string {
	if isTextLike(key) {
		return "text/plain; charset=utf-8"
	} else if mimeType := mime.TypeByExtension(filepath.Ext(key)); mimeType != "" {
		return mimeType
	}
	return "application/octet-stream"
}

func isTextLike(key string) bool {
	switch strings.ToLower(filepath.Ext(key)) {
	case ".py", ".lua", ".js", ".sh", ".txt", ".yaml", ".yml", ".toml", ".md", ".ini", ".cfg":
		return true
	}
	return false
}
