package delivery

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
	"time"
)

const maxNameLength = 120

var (
	unsafeChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)
	repeatedSep = regexp.MustCompile(`_{2,}`)
)

// ObjectKey builds <session>/<yyyy>/<mm>/<dd>/<request-id>_<name>.
func ObjectKey(sessionID, requestID, fileName string, at time.Time) string {
	if sessionID == "" {
		sessionID = "anonymous"
	}
	at = at.UTC()
	return fmt.Sprintf("%s/%04d/%02d/%02d/%s_%s",
		sanitize(sessionID), at.Year(), at.Month(), at.Day(), sanitize(requestID), SanitizeFileName(fileName))
}

// SanitizeFileName reduces name to [A-Za-z0-9._-], keeping a plain
// extension intact when the name has to be shortened.
func SanitizeFileName(name string) string {
	base, ext := name, filepath.Ext(name)
	if ext != "" && len(ext) <= 10 && !unsafeChars.MatchString(ext[1:]) {
		base = strings.TrimSuffix(name, ext)
		ext = strings.ToLower(ext)
	} else {
		ext = ""
	}

	base = sanitize(base)
	if len(base) > maxNameLength {
		base = base[:maxNameLength]
	}
	if base == "" {
		base = "file"
	}
	return base + ext
}

func sanitize(s string) string {
	s = strings.ReplaceAll(s, " ", "_")
	s = unsafeChars.ReplaceAllString(s, "_")
	s = repeatedSep.ReplaceAllString(s, "_")
	return strings.Trim(s, "._-")
}
