// Package blob stores uploaded media on local disk or in S3.
package blob

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"path/filepath"
	"strings"
	"time"
)

// Key prefixes for the two kinds of uploads.
const (
	PostPrefix      = "testimonies/"
	ELearningPrefix = "eLearning/"
)

// ErrInvalidKey is returned for keys that are empty or escape the store root.
var ErrInvalidKey = errors.New("blob: invalid key")

// Object describes a stored blob.
type Object struct {
	Key          string
	Size         int64
	LastModified time.Time
}

// Store is the media storage boundary.
type Store interface {
	// Put writes r under key and returns the public URL of the object.
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) (string, error)
	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
	// List calls fn for every object under prefix.
	List(ctx context.Context, prefix string, fn func(Object) error) error
}

// MediaKey returns the key for a post upload:
// testimonies/<owner>/<unixMillis>_<name>, or ..._audio_<name> for the
// audio track attached to an image post.
func MediaKey(ownerID string, at time.Time, filename string, audio bool) string {
	name := SanitizeFilename(filename)
	if audio {
		name = "audio_" + name
	}
	return fmt.Sprintf("%s%s/%d_%s", PostPrefix, SanitizeFilename(ownerID), at.UnixMilli(), name)
}

// ELearningKey returns the key for e-learning media: eLearning/<unixMillis>_<name>.
func ELearningKey(at time.Time, filename string) string {
	return fmt.Sprintf("%s%d_%s", ELearningPrefix, at.UnixMilli(), SanitizeFilename(filename))
}

// SanitizeFilename reduces filename to its base name and replaces any byte
// outside [A-Za-z0-9._-] with '_'. Names longer than 100 bytes are truncated
// with the extension kept.
func SanitizeFilename(filename string) string {
	filename = filepath.Base(strings.ReplaceAll(filename, "\\", "/"))
	if filename == "." || filename == "/" {
		filename = ""
	}

	result := make([]byte, 0, len(filename))
	for i := 0; i < len(filename); i++ {
		c := filename[i]
		if isAllowedFilenameChar(c) {
			result = append(result, c)
		} else {
			result = append(result, '_')
		}
	}

	if len(result) == 0 {
		return "file"
	}
	if len(result) > 100 {
		ext := filepath.Ext(string(result))
		if len(ext) > 0 && len(ext) < 10 {
			result = append(result[:100-len(ext)], ext...)
		} else {
			result = result[:100]
		}
	}
	return string(result)
}

func isAllowedFilenameChar(c byte) bool {
	return (c >= 'a' && c <= 'z') ||
		(c >= 'A' && c <= 'Z') ||
		(c >= '0' && c <= '9') ||
		c == '-' || c == '_' || c == '.'
}

// cleanKey validates a slash-separated key.
func cleanKey(key string) (string, error) {
	if key == "" || strings.HasPrefix(key, "/") {
		return "", ErrInvalidKey
	}
	c := path.Clean(key)
	if c == "." || c == ".." || strings.HasPrefix(c, "../") {
		return "", ErrInvalidKey
	}
	return c, nil
}

func joinURL(base, key string) string {
	return strings.TrimRight(base, "/") + "/" + key
}
