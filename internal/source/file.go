package source

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
	"github.com/variantd/variantd/internal/flags"
)

// FileSource reads flag definitions from a JSON document on disk. The
// document is an object with a "flags" array. The source is read-only;
// edits happen in the file, and Watch triggers a reload when it changes.
type FileSource struct {
	path string
}

// fileDocument is the on-disk shape of a flag file.
type fileDocument struct {
	Flags []flags.Flag `json:"flags"`
}

// NewFileSource creates a source backed by the JSON file at path.
func NewFileSource(path string) *FileSource {
	return &FileSource{path: path}
}

// GetAllFlags reads and decodes the whole flag file.
func (f *FileSource) GetAllFlags(ctx context.Context) ([]flags.Flag, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		return nil, fmt.Errorf("read flag file %s: %w", f.path, err)
	}

	var doc fileDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode flag file %s: %w", f.path, err)
	}
	return doc.Flags, nil
}

// GetFlag retrieves a single flag by id.
func (f *FileSource) GetFlag(ctx context.Context, id string) (*flags.Flag, error) {
	list, err := f.GetAllFlags(ctx)
	if err != nil {
		return nil, err
	}
	for _, flag := range list {
		if flag.ID == id {
			return &flag, nil
		}
	}
	return nil, ErrNotFound
}

// UpsertFlag is not supported; the file is the system of record.
func (f *FileSource) UpsertFlag(ctx context.Context, flag flags.Flag) error {
	return ErrReadOnly
}

// DeleteFlag is not supported; the file is the system of record.
func (f *FileSource) DeleteFlag(ctx context.Context, id string) error {
	return ErrReadOnly
}

// Close is a no-op for FileSource.
func (f *FileSource) Close() error {
	return nil
}

// Watch blocks until ctx is done, invoking onChange whenever the flag file
// is written, created, or renamed. Editors often replace files instead of
// writing in place, so the watch is on the parent directory filtered to the
// flag file's name.
func (f *FileSource) Watch(ctx context.Context, log zerolog.Logger, onChange func()) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	dir := filepath.Dir(f.path)
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}

	target := filepath.Clean(f.path)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			log.Info().Str("file", f.path).Str("op", event.Op.String()).Msg("flag file changed")
			onChange()
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Warn().Err(err).Msg("flag file watch error")
		}
	}
}
