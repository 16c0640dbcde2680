package store

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const (
	dirPerm  os.FileMode = 0o750
	filePerm os.FileMode = 0o600
)

// readJSON decodes path into out. A missing or blank file reports found=false.
func readJSON(path string, out any) (bool, error) {
	normalizedPath := filepath.Clean(strings.TrimSpace(path))
	if normalizedPath == "" || normalizedPath == "." {
		return false, fmt.Errorf("path is required")
	}
	data, err := os.ReadFile(normalizedPath)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("read json %s: %w", normalizedPath, err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return false, nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return false, fmt.Errorf("decode json %s: %w", normalizedPath, err)
	}
	return true, nil
}

// encodeJSON renders v with two-space indentation and without HTML escaping,
// so Cyrillic text and links stay readable in the file.
func encodeJSON(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// writeJSONAtomic replaces path with the encoded document via a temp file and rename.
func writeJSONAtomic(path string, v any) error {
	data, err := encodeJSON(v)
	if err != nil {
		return fmt.Errorf("encode json %s: %w", strings.TrimSpace(path), err)
	}
	return writeBytesAtomic(path, data)
}

func writeBytesAtomic(path string, data []byte) error {
	normalizedPath := filepath.Clean(strings.TrimSpace(path))
	if normalizedPath == "" || normalizedPath == "." {
		return fmt.Errorf("path is required")
	}
	parentDir := filepath.Dir(normalizedPath)
	if err := os.MkdirAll(parentDir, dirPerm); err != nil {
		return fmt.Errorf("create dir %s: %w", parentDir, err)
	}

	tmp, err := os.CreateTemp(parentDir, filepath.Base(normalizedPath)+".tmp.*")
	if err != nil {
		return fmt.Errorf("create temp for %s: %w", normalizedPath, err)
	}
	tmpPath := tmp.Name()
	defer func() {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
	}()

	if _, err := tmp.Write(data); err != nil {
		return fmt.Errorf("write temp for %s: %w", normalizedPath, err)
	}
	if err := tmp.Chmod(filePerm); err != nil {
		return fmt.Errorf("chmod temp for %s: %w", normalizedPath, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp for %s: %w", normalizedPath, err)
	}
	if err := os.Rename(tmpPath, normalizedPath); err != nil {
		return fmt.Errorf("rename temp for %s: %w", normalizedPath, err)
	}
	return nil
}
