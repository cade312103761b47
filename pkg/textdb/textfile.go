package textdb

import (
	"bytes"
	"encoding"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

var (
	// ErrNotExist is returned by Load when the file has not been written yet.
	ErrNotExist = errors.New("file does not exist")
	ErrEmpty    = errors.New("file is empty")
)

type textValue[T any] interface {
	*T
	encoding.TextMarshaler
	encoding.TextUnmarshaler
}

/* TextFile is a simple atomic-write single-record-database
 * which stores one value as a line of text, using the value's
 * own MarshalText / UnmarshalText.
 *
 * Usage:
 *  tf := textdb.New[YourType]("/var/lib/thing.state")
 *  err := tf.Save(&obj)
 *  obj, err := tf.Load()
 */
type TextFile[T any, PT textValue[T]] struct {
	filename string
}

func New[T any, PT textValue[T]](filename string) *TextFile[T, PT] {
	return &TextFile[T, PT]{filename: filename}
}

func (tf *TextFile[T, PT]) Filename() string {
	return tf.filename
}

// Save writes to a temporary file in the target's directory and renames
// it over the target, so readers see either the old or the new record.
func (tf *TextFile[T, PT]) Save(obj PT) error {
	data, err := obj.MarshalText()
	if err != nil {
		return fmt.Errorf("cannot encode object: %w", err)
	}

	tempFile, err := os.CreateTemp(filepath.Dir(tf.filename), ".tmp_"+filepath.Base(tf.filename))
	if err != nil {
		return fmt.Errorf("cannot create temporary file: %w", err)
	}
	defer os.Remove(tempFile.Name())

	if _, err := tempFile.Write(append(data, '\n')); err != nil {
		tempFile.Close()
		return fmt.Errorf("cannot write temporary file: %w", err)
	}

	if err := tempFile.Close(); err != nil {
		return fmt.Errorf("cannot close temporary file: %w", err)
	}

	if err := os.Rename(tempFile.Name(), tf.filename); err != nil {
		return fmt.Errorf("cannot rename temporary file to %q: %w", tf.filename, err)
	}

	return nil
}

func (tf *TextFile[T, PT]) Load() (T, error) {
	var obj T

	data, err := os.ReadFile(tf.filename)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return obj, fmt.Errorf("%w: %q", ErrNotExist, tf.filename)
		}
		return obj, fmt.Errorf("cannot open file %q: %w", tf.filename, err)
	}

	if len(bytes.TrimSpace(data)) == 0 {
		return obj, fmt.Errorf("%w: %q", ErrEmpty, tf.filename)
	}

	if err := PT(&obj).UnmarshalText(data); err != nil {
		return *new(T), fmt.Errorf("cannot decode object from file %q: %w", tf.filename, err)
	}

	return obj, nil
}

// Remove deletes the file. A file that is already gone is not an error.
func (tf *TextFile[T, PT]) Remove() error {
	if err := os.Remove(tf.filename); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("cannot remove %q: %w", tf.filename, err)
	}
	return nil
}
