// Package wal implements an append-only JSON-lines write-ahead log. Every
// record is fsynced before Append returns.
package wal

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"sync"
)

// FileMode is the permission used when the log file is created.
const FileMode fs.FileMode = 0o600

// ErrClosed is returned by operations on a closed log.
var ErrClosed = errors.New("wal: log is closed")

// WAL is a write-ahead log backed by a single file.
type WAL struct {
	mu     sync.Mutex
	file   *os.File
	closed bool
}

// Open opens or creates the log at path.
func Open(path string) (*WAL, error) {
	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_RDWR, FileMode)
	if err != nil {
		return nil, fmt.Errorf("wal: open %s: %w", path, err)
	}

	return &WAL{file: file}, nil
}

// Append encodes v as one JSON line and syncs it to disk.
func (w *WAL) Append(v any) error {
	line, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("wal: encode record: %w", err)
	}

	line = append(line, '\n')

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return ErrClosed
	}

	if _, err := w.file.Write(line); err != nil {
		return fmt.Errorf("wal: write record: %w", err)
	}

	if err := w.file.Sync(); err != nil {
		return fmt.Errorf("wal: sync: %w", err)
	}

	return nil
}

// Replay calls fn for every complete record in the log, oldest first. A
// partially written trailing record, left behind by a crash during Append, is
// truncated away so that later appends start on a clean line.
func (w *WAL) Replay(fn func(raw json.RawMessage) error) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return ErrClosed
	}

	if _, err := w.file.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("wal: seek: %w", err)
	}

	decoder := json.NewDecoder(w.file)

	var good int64
	for {
		var raw json.RawMessage
		if err := decoder.Decode(&raw); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}

			if errors.Is(err, io.ErrUnexpectedEOF) {
				if tailErr := w.truncateTail(good); tailErr != nil {
					return tailErr
				}

				break
			}

			return fmt.Errorf("wal: decode record at offset %d: %w", good, err)
		}

		if err := fn(bytes.Clone(raw)); err != nil {
			return err
		}

		good = decoder.InputOffset()
	}

	return nil
}

// truncateTail drops everything after offset if it is not followed by
// another complete record.
func (w *WAL) truncateTail(offset int64) error {
	info, err := w.file.Stat()
	if err != nil {
		return fmt.Errorf("wal: stat: %w", err)
	}

	if info.Size() <= offset {
		return nil
	}

	if err := w.file.Truncate(offset); err != nil {
		return fmt.Errorf("wal: truncate torn record: %w", err)
	}

	return w.file.Sync()
}

// Close closes the underlying file.
func (w *WAL) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil
	}

	w.closed = true

	return w.file.Close()
}
