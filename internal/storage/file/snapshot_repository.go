package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sync"

	"github.com/vladislavdragonenkov/cartstore/internal/domain"
)

const fileMode = 0o600

var sessionPattern = regexp.MustCompile(`^[A-Za-z0-9_.-]+$`)

// SnapshotRepository хранит снимок каждой сессии в отдельном JSON-файле.
type SnapshotRepository struct {
	dir string
	mu  sync.Mutex
}

// NewSnapshotRepository создаёт файловый репозиторий в каталоге dir.
func NewSnapshotRepository(dir string) (*SnapshotRepository, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("create cart dir: %w", err)
	}
	return &SnapshotRepository{dir: dir}, nil
}

// Dir возвращает каталог хранилища.
func (r *SnapshotRepository) Dir() string {
	return r.dir
}

// Load читает снимок; отсутствие файла даёт ErrSnapshotNotFound,
// нечитаемый JSON - ErrSnapshotCorrupt.
func (r *SnapshotRepository) Load(ctx context.Context, sessionID string) (domain.CartSnapshot, error) {
	if err := ctx.Err(); err != nil {
		return domain.CartSnapshot{}, err
	}
	path, err := r.path(sessionID)
	if err != nil {
		return domain.CartSnapshot{}, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	b, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return domain.CartSnapshot{}, domain.ErrSnapshotNotFound
	}
	if err != nil {
		return domain.CartSnapshot{}, fmt.Errorf("read cart snapshot: %w", err)
	}

	var snapshot domain.CartSnapshot
	if err := json.Unmarshal(b, &snapshot); err != nil {
		return domain.CartSnapshot{}, fmt.Errorf("%w: %v", domain.ErrSnapshotCorrupt, err)
	}
	return snapshot, nil
}

// Save атомарно перезаписывает файл сессии.
func (r *SnapshotRepository) Save(ctx context.Context, sessionID string, snapshot domain.CartSnapshot) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	path, err := r.path(sessionID)
	if err != nil {
		return err
	}

	b, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal cart snapshot: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	return writeFile(path, b, fileMode)
}

// Delete удаляет файл сессии.
func (r *SnapshotRepository) Delete(_ context.Context, sessionID string) error {
	path, err := r.path(sessionID)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("delete cart snapshot: %w", err)
	}
	return nil
}

func (r *SnapshotRepository) path(sessionID string) (string, error) {
	if sessionID == "" {
		return "", domain.ErrSessionRequired
	}
	if !sessionPattern.MatchString(sessionID) {
		return "", fmt.Errorf("invalid session id %q", sessionID)
	}
	return filepath.Join(r.dir, "cart-"+sessionID+".json"), nil
}

// writeFile пишет во временный файл и атомарно заменяет целевой.
func writeFile(path string, b []byte, mode os.FileMode) error {
	f, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	tmp := f.Name()
	defer func() { _ = os.Remove(tmp) }()

	if _, err := f.Write(b); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Chmod(mode); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

var _ domain.SnapshotRepository = (*SnapshotRepository)(nil)
