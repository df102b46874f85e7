package freshness

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"RoboInvestor/internal/model"
)

// FileStore keeps each payload in <dir>/<ticker>.json; the file mtime is the
// modification time. Writes go to a temp file that is renamed into place.
type FileStore struct {
	Dir string
}

// NewFileStore creates a FileStore rooted at dir.
func NewFileStore(dir string) *FileStore {
	return &FileStore{Dir: dir}
}

func (s *FileStore) path(ticker string) (string, error) {
	if ticker == "" || ticker == "." || ticker == ".." || strings.ContainsAny(ticker, `/\`) {
		return "", fmt.Errorf("invalid ticker %q", ticker)
	}
	return filepath.Join(s.Dir, ticker+".json"), nil
}

func (s *FileStore) Load(_ context.Context, ticker string) (model.CachedPayload, bool, error) {
	p, err := s.path(ticker)
	if err != nil {
		return model.CachedPayload{}, false, err
	}
	info, err := os.Stat(p)
	if err != nil {
		if os.IsNotExist(err) {
			return model.CachedPayload{}, false, nil
		}
		return model.CachedPayload{}, false, err
	}
	data, err := os.ReadFile(p)
	if err != nil {
		return model.CachedPayload{}, false, err
	}
	return model.CachedPayload{Ticker: ticker, Data: data, ModifiedAt: info.ModTime()}, true, nil
}

func (s *FileStore) Save(_ context.Context, payload model.CachedPayload) error {
	p, err := s.path(payload.Ticker)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return fmt.Errorf("create cache dir: %w", err)
	}
	tmp, err := os.CreateTemp(s.Dir, payload.Ticker+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // no-op after a successful rename

	if _, err := tmp.Write(payload.Data); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if !payload.ModifiedAt.IsZero() {
		if err := os.Chtimes(tmpName, payload.ModifiedAt, payload.ModifiedAt); err != nil {
			return fmt.Errorf("set mtime: %w", err)
		}
	}
	return os.Rename(tmpName, p)
}
