package domain

import (
	"mime"
	"path/filepath"
	"strings"
)

// contentTypeExtensions maps media types to the extension preferred for
// them. mime.ExtensionsByType picks odd ones for several video types
// (".m4v" for video/mp4 on some systems), so common media types are pinned.
var contentTypeExtensions = map[string]string{
	"video/mp4":          ".mp4",
	"video/webm":         ".webm",
	"video/quicktime":    ".mov",
	"video/x-matroska":   ".mkv",
	"video/x-msvideo":    ".avi",
	"video/mpeg":         ".mpeg",
	"video/3gpp":         ".3gp",
	"audio/mpeg":         ".mp3",
	"audio/mp4":          ".m4a",
	"audio/ogg":          ".ogg",
	"audio/wav":          ".wav",
	"audio/webm":         ".weba",
	"audio/flac":         ".flac",
	"image/jpeg":         ".jpg",
	"image/png":          ".png",
	"image/gif":          ".gif",
	"image/webp":         ".webp",
	"application/pdf":    ".pdf",
	"application/zip":    ".zip",
	"application/json":   ".json",
	"text/plain":         ".txt",
	"text/html":          ".html",
	"text/markdown":      ".md",
	"application/x-gzip": ".gz",
	"application/gzip":   ".gz",
}

// extensionContentTypes is the reverse of contentTypeExtensions plus
// extensions with several spellings.
var extensionContentTypes = func() map[string]string {
	m := make(map[string]string, len(contentTypeExtensions)+4)
	for ct, ext := range contentTypeExtensions {
		if _, ok := m[ext]; !ok {
			m[ext] = ct
		}
	}
	m[".gz"] = "application/gzip"
	m[".jpeg"] = "image/jpeg"
	m[".htm"] = "text/html"
	m[".m4v"] = "video/mp4"
	return m
}()

var videoExtensions = map[string]bool{
	".mp4":  true,
	".mkv":  true,
	".mov":  true,
	".webm": true,
}

// ExtensionForContentType guesses a file extension, with the leading dot,
// for a Content-Type header value. It returns "" for unknown types.
func ExtensionForContentType(contentType string) string {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		mediaType = strings.TrimSpace(strings.ToLower(strings.Split(contentType, ";")[0]))
	}
	if mediaType == "" {
		return ""
	}

	if ext, ok := contentTypeExtensions[mediaType]; ok {
		return ext
	}

	exts, err := mime.ExtensionsByType(mediaType)
	if err != nil || len(exts) == 0 {
		return ""
	}
	return exts[0]
}

// ContentTypeForFile returns the media type for name's extension, or
// application/octet-stream.
func ContentTypeForFile(name string) string {
	ext := strings.ToLower(filepath.Ext(name))
	if ext == "" {
		return "application/octet-stream"
	}
	if ct, ok := extensionContentTypes[ext]; ok {
		return ct
	}
	if ct := mime.TypeByExtension(ext); ct != "" {
		return ct
	}
	return "application/octet-stream"
}

// IsVideoFile reports whether name has an extension that can be delivered
// as a playable video.
func IsVideoFile(name string) bool {
	return videoExtensions[strings.ToLower(filepath.Ext(name))]
}

// FileType returns the lowercase extension without the dot, or "unknown".
// It labels file size metrics.
func FileType(name string) string {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(name)), ".")
	if ext == "" {
		return "unknown"
	}
	return ext
}
