package cache

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofrs/flock"
	_ "modernc.org/sqlite"
)

// Stage names the pipeline steps whose artifacts are cached.
type Stage string

const (
	StageMetadata   Stage = "metadata"
	StageDownload   Stage = "download"
	StageAudio      Stage = "audio"
	StageTranscript Stage = "transcript"
	StageAIResult   Stage = "airesult"
)

// Artifact is one cached stage result. Payload is a path inside the video's
// cache namespace. Rows with Complete=false are treated as absent by Load.
type Artifact struct {
	VideoID     string
	Stage       Stage
	Fingerprint string
	Payload     string
	Complete    bool
	UpdatedAt   time.Time
}

// Store persists stage artifacts in a SQLite index plus payload files,
// keyed by (video id, stage, fingerprint).
type Store struct {
	db  *sql.DB
	dir string
}

// Open initializes or connects to the cache database under dir.
func Open(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("ensure cache dir: %w", err)
	}

	dbPath := filepath.Join(dir, "cache.db")
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	return &Store{db: db, dir: dir}, nil
}

const schema = `
CREATE TABLE IF NOT EXISTS artifacts (
    video_id    TEXT NOT NULL,
    stage       TEXT NOT NULL,
    fingerprint TEXT NOT NULL,
    payload     TEXT NOT NULL,
    complete    INTEGER NOT NULL DEFAULT 0,
    updated_at  TEXT NOT NULL,
    PRIMARY KEY (video_id, stage)
)`

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Dir returns the cache root directory.
func (s *Store) Dir() string { return s.dir }

// VideoDir returns (and creates) the payload directory for a video.
func (s *Store) VideoDir(videoID string) (string, error) {
	dir := filepath.Join(s.dir, videoID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("ensure video cache dir: %w", err)
	}
	return dir, nil
}

// Has reports whether a complete artifact exists for the fingerprint.
func (s *Store) Has(ctx context.Context, videoID string, stage Stage, fingerprint string) (bool, error) {
	art, err := s.Load(ctx, videoID, stage, fingerprint)
	if err != nil {
		return false, err
	}
	return art != nil, nil
}

// Load fetches a complete artifact, or nil when absent. A row whose
// fingerprint differs (stale upstream input) or whose payload file is gone
// is also treated as absent.
func (s *Store) Load(ctx context.Context, videoID string, stage Stage, fingerprint string) (*Artifact, error) {
	row := s.db.QueryRowContext(
		ctx,
		`SELECT video_id, stage, fingerprint, payload, complete, updated_at
         FROM artifacts WHERE video_id = ? AND stage = ?`,
		videoID, stage,
	)

	var (
		art        Artifact
		stageStr   string
		complete   int
		updatedRaw string
	)
	err := row.Scan(&art.VideoID, &stageStr, &art.Fingerprint, &art.Payload, &complete, &updatedRaw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load artifact: %w", err)
	}

	art.Stage = Stage(stageStr)
	art.Complete = complete != 0
	if t, err := time.Parse(time.RFC3339Nano, updatedRaw); err == nil {
		art.UpdatedAt = t
	}

	if !art.Complete || art.Fingerprint != fingerprint {
		return nil, nil
	}
	if _, err := os.Stat(art.Payload); err != nil {
		return nil, nil
	}
	return &art, nil
}

// Store records a completed artifact. The payload file must already be
// fully written: the row is the completion marker, so a run cancelled
// before Store leaves nothing for a later run to mistrust. Last writer for
// a given fingerprint wins.
func (s *Store) Store(ctx context.Context, videoID string, stage Stage, fingerprint, payload string) error {
	if _, err := os.Stat(payload); err != nil {
		return fmt.Errorf("artifact payload missing: %w", err)
	}
	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO artifacts (video_id, stage, fingerprint, payload, complete, updated_at)
         VALUES (?, ?, ?, ?, 1, ?)
         ON CONFLICT (video_id, stage) DO UPDATE SET
             fingerprint = excluded.fingerprint,
             payload = excluded.payload,
             complete = excluded.complete,
             updated_at = excluded.updated_at`,
		videoID, stage, fingerprint, payload,
		time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("store artifact: %w", err)
	}
	return nil
}

// Invalidate removes a single stage's artifact row.
func (s *Store) Invalidate(ctx context.Context, videoID string, stage Stage) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM artifacts WHERE video_id = ? AND stage = ?`, videoID, stage)
	if err != nil {
		return fmt.Errorf("invalidate artifact: %w", err)
	}
	return nil
}

// Purge removes all artifact rows and payload files for a video. Called
// after a successful run; failed runs keep everything for retry.
func (s *Store) Purge(ctx context.Context, videoID string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM artifacts WHERE video_id = ?`, videoID); err != nil {
		return fmt.Errorf("purge artifacts: %w", err)
	}
	dir := filepath.Join(s.dir, videoID)
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("purge payloads: %w", err)
	}
	return nil
}

// LockVideo acquires an exclusive lock for the video's cache namespace so
// concurrent runs against the same video cannot interleave. The returned
// release func is safe to call once.
func (s *Store) LockVideo(videoID string) (func(), error) {
	lockPath := filepath.Join(s.dir, videoID+".lock")
	lock := flock.New(lockPath)
	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire video lock: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("video %s is already being processed (lock %s)", videoID, lockPath)
	}
	return func() {
		_ = lock.Unlock()
		_ = os.Remove(lockPath)
	}, nil
}

// Fingerprint hashes the stage's declared inputs into a cache key. Inputs
// include the upstream stage's fingerprint so a stale downstream artifact
// is never reused against changed upstream data.
func Fingerprint(parts ...string) string {
	sum := sha256.Sum256([]byte(strings.Join(parts, "|")))
	return hex.EncodeToString(sum[:])[:16]
}
