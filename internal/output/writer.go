// Package output writes normalized records as one JSON array.
package output

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/goccy/go-json"

	"ulama/internal/models"
)

// ErrTargetIsDirectory is returned when the output path names a directory.
var ErrTargetIsDirectory = errors.New("output path is a directory")

// renameFunc is swapped out in tests to simulate a failed commit.
var renameFunc = os.Rename

// Encode renders records as a two-space indented JSON array with a trailing
// newline. Non-ASCII text and HTML characters are written literally, inside
// raw as well.
//
// The string-typed fields (name, origin, the dates, bio) always hold text, so
// a source value such as {"died": 1111} appears as "1111" there while raw
// keeps the number.
func Encode(records []models.Scholar) ([]byte, error) {
	if records == nil {
		records = []models.Scholar{}
	}

	var buf bytes.Buffer

	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")

	if err := enc.Encode(records); err != nil {
		return nil, fmt.Errorf("failed to encode records: %w", err)
	}

	return buf.Bytes(), nil
}

// Write encodes records and stores them at path, creating parent directories.
// The file is replaced atomically: on any error an existing file at path is
// left as it was and no partial file remains.
func Write(path string, records []models.Scholar) error {
	data, err := Encode(records)
	if err != nil {
		return err
	}

	if err := writeFileAtomic(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}

	return nil
}

func writeFileAtomic(path string, data []byte, perm os.FileMode) error {
	if fi, err := os.Stat(path); err == nil && fi.IsDir() {
		return ErrTargetIsDirectory
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	// Same directory as the target so the rename stays on one filesystem.
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}

	tmpName := tmp.Name()
	defer func() {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
	}()

	if _, err := tmp.Write(data); err != nil {
		return err
	}

	if err := tmp.Chmod(perm); err != nil {
		return err
	}

	if err := tmp.Sync(); err != nil {
		return err
	}

	if err := tmp.Close(); err != nil {
		return err
	}

	if err := renameFunc(tmpName, path); err != nil {
		return err
	}

	_ = syncDir(dir)

	return nil
}

func syncDir(dir string) error {
	if runtime.GOOS == "windows" {
		return nil
	}

	f, err := os.Open(dir)
	if err != nil {
		return err
	}
	defer f.Close()

	return f.Sync()
}
