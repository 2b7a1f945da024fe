package helpers

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/jmagar/mdimg/internal/model"
)

// DefaultSuffix is inserted between the document's base name and extension.
const DefaultSuffix = "_uploaded"

// OutputPath returns the sibling path of original with suffix inserted
// before the extension: docs/post.md -> docs/post_uploaded.md.
// An empty suffix falls back to DefaultSuffix so the input is never overwritten.
func OutputPath(original, suffix string) string {
	if suffix == "" {
		suffix = DefaultSuffix
	}
	dir := filepath.Dir(original)
	base := filepath.Base(original)
	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)
	if stem == "" {
		// Dotfiles such as ".md" have no stem; treat the whole name as stem.
		stem, ext = base, ""
	}
	return filepath.Join(dir, stem+suffix+ext)
}

// FileExists checks if a file (not directory) exists at the given path.
func FileExists(path string) (bool, error) {
	f, err := os.Stat(path)
	if err == nil {
		return !f.IsDir(), nil
	} else if os.IsNotExist(err) {
		return false, nil
	}
	return false, err
}

// ValidatePath checks that a path does not contain dangerous characters.
func ValidatePath(path string) error {
	if strings.ContainsAny(path, "\x00\n\r") {
		return fmt.Errorf("path contains invalid characters")
	}
	return nil
}

// ReadDocument loads a UTF-8 Markdown file. Any failure, including path being
// a directory, is reported as model.ErrDocumentNotFound.
func ReadDocument(path string) (string, error) {
	if err := ValidatePath(path); err != nil {
		return "", fmt.Errorf("%w: %s: %w", model.ErrDocumentNotFound, path, err)
	}
	exists, err := FileExists(path)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %w", model.ErrDocumentNotFound, path, err)
	}
	if !exists {
		return "", fmt.Errorf("%w: %s", model.ErrDocumentNotFound, path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %w", model.ErrDocumentNotFound, path, err)
	}
	return string(data), nil
}

// SaveMarkdown writes content next to original and returns the new path.
// The original file is never written to.
func SaveMarkdown(original, suffix, content string) (string, error) {
	newPath := OutputPath(original, suffix)
	if filepath.Clean(newPath) == filepath.Clean(original) {
		return "", fmt.Errorf("%w: output path %s equals input", model.ErrWrite, newPath)
	}
	if err := os.WriteFile(newPath, []byte(content), 0644); err != nil {
		return "", fmt.Errorf("%w: %s: %w", model.ErrWrite, newPath, err)
	}
	return newPath, nil
}
