package save

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/nathoo/branchquest/engine/state"
	"github.com/nathoo/branchquest/logger"
	"github.com/nathoo/branchquest/types"
)

// Persister is the load/save collaborator of a game session.
// Load reports ok=false when no snapshot exists.
type Persister interface {
	Load(ctx context.Context) (s types.PlayerState, ok bool, err error)
	Save(ctx context.Context, s types.PlayerState) error
}

// FileStore keeps one snapshot in a file. The encoding follows the file
// extension.
type FileStore struct {
	Path string
	Defs *state.Defs
}

// Ensure FileStore implements Persister.
var _ Persister = (*FileStore)(nil)

// NewFileStore creates a file-backed persister.
func NewFileStore(path string, defs *state.Defs) *FileStore {
	return &FileStore{Path: path, Defs: defs}
}

// Load reads the snapshot file.
func (f *FileStore) Load(_ context.Context) (types.PlayerState, bool, error) {
	data, err := os.ReadFile(f.Path)
	if errors.Is(err, os.ErrNotExist) {
		return types.PlayerState{}, false, nil
	}
	if err != nil {
		return types.PlayerState{}, false, fmt.Errorf("read save: %w", err)
	}
	s, err := Decode(data, f.Defs, FormatFor(f.Path))
	if err != nil {
		return types.PlayerState{}, false, err
	}
	return s, true, nil
}

// Save writes the snapshot atomically via a temp file and rename.
func (f *FileStore) Save(_ context.Context, s types.PlayerState) error {
	data, err := Encode(s, f.Defs, FormatFor(f.Path))
	if err != nil {
		return fmt.Errorf("encode save: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(f.Path), 0o755); err != nil {
		return fmt.Errorf("create save dir: %w", err)
	}
	tmp := f.Path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write save: %w", err)
	}
	if err := os.Rename(tmp, f.Path); err != nil {
		return fmt.Errorf("write save: %w", err)
	}
	return nil
}

// RedisStore keeps snapshots in Redis under gamestate:<session uuid>.
type RedisStore struct {
	client  *redis.Client
	logger  *slog.Logger
	defs    *state.Defs
	session uuid.UUID
	ttl     time.Duration
}

// Ensure RedisStore implements Persister.
var _ Persister = (*RedisStore)(nil)

// NewRedisStore creates a Redis-backed persister for one session. A zero ttl
// keeps snapshots forever.
func NewRedisStore(addr string, session uuid.UUID, defs *state.Defs, ttl time.Duration, log *slog.Logger) *RedisStore {
	rdb := redis.NewClient(&redis.Options{
		Addr: addr,
	})
	return &RedisStore{
		client:  rdb,
		logger:  logger.OrDefault(log),
		defs:    defs,
		session: session,
		ttl:     ttl,
	}
}

// Key returns the Redis key of the session snapshot.
func (r *RedisStore) Key() string {
	return "gamestate:" + r.session.String()
}

// Ping checks the connection.
func (r *RedisStore) Ping(ctx context.Context) error {
	if err := r.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping failed: %w", err)
	}
	return nil
}

// Close closes the Redis connection.
func (r *RedisStore) Close() error {
	if err := r.client.Close(); err != nil {
		r.logger.Error("Failed to close Redis connection", "error", err)
		return err
	}
	return nil
}

// Load fetches the session snapshot.
func (r *RedisStore) Load(ctx context.Context) (types.PlayerState, bool, error) {
	data, err := r.client.Get(ctx, r.Key()).Result()
	if errors.Is(err, redis.Nil) {
		return types.PlayerState{}, false, nil
	}
	if err != nil {
		return types.PlayerState{}, false, fmt.Errorf("failed to load gamestate: %w", err)
	}
	s, err := Decode([]byte(data), r.defs, FormatJSON)
	if err != nil {
		return types.PlayerState{}, false, err
	}
	return s, true, nil
}

// Save stores the session snapshot.
func (r *RedisStore) Save(ctx context.Context, s types.PlayerState) error {
	data, err := Encode(s, r.defs, FormatJSON)
	if err != nil {
		return fmt.Errorf("failed to marshal gamestate: %w", err)
	}
	if err := r.client.Set(ctx, r.Key(), string(data), r.ttl).Err(); err != nil {
		return fmt.Errorf("failed to save gamestate: %w", err)
	}
	return nil
}

// Autosave returns a store subscriber that saves every snapshot best-effort.
// Failures are logged and never reach gameplay.
func Autosave(p Persister, timeout time.Duration, log *slog.Logger) func(types.PlayerState) {
	log = logger.OrDefault(log)
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return func(s types.PlayerState) {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		if err := p.Save(ctx, s); err != nil {
			log.Warn("autosave failed", "scene", s.CurrentScene, "error", err)
		}
	}
}
