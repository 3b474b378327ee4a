// Package filename decides which uploaded filenames are acceptable and
// generates collision-resistant stored names for them.
package filename

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/flytam/filenamify"
)

// Extensions we accept for uploads
var allowedExtensions = map[string]struct{}{
	"png":  {},
	"jpg":  {},
	"jpeg": {},
	"bmp":  {},
	"tif":  {},
	"tiff": {},
}

// IsAllowed reports whether the filename has an extension on the allow-list.
// Filenames without an extension are rejected.
func IsAllowed(name string) bool {
	_, ok := allowedExtensions[Extension(name)]
	return ok
}

// Extension returns the lowercased extension of the filename, without the
// leading dot, or an empty string if there is none
func Extension(name string) string {
	index := strings.LastIndex(name, ".")
	if index == -1 {
		return ""
	}

	return strings.ToLower(name[index+1:])
}

// Stem returns the base filename without its extension
func Stem(name string) string {
	base := filepath.Base(name)
	if index := strings.LastIndex(base, "."); index != -1 {
		return base[:index]
	}

	return base
}

// Sanitize strips path components and unsafe characters from a filename,
// producing a filesystem-safe base name
func Sanitize(name string) string {
	safe, err := filenamify.Filenamify(filepath.Base(name), filenamify.Options{
		Replacement: "_",
	})
	if err != nil || safe == "" {
		return "upload"
	}

	return safe
}

// UniqueName returns "{stem}_{8 hex chars}.{lowercased ext}". The suffix is
// random so that concurrent uploads of identical filenames never collide.
func UniqueName(stem, extension string) string {
	return fmt.Sprintf("%s_%s.%s", stem, randomSuffix(), strings.ToLower(extension))
}

func randomSuffix() string {
	buf := make([]byte, 4)
	_, _ = rand.Read(buf)
	return hex.EncodeToString(buf)
}
