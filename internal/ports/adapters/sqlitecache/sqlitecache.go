package sqlitecache

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/forPelevin/vidscope/internal/apperr"
	"github.com/forPelevin/vidscope/internal/types"
)

const DefaultFile = "transcripts.db"

const schema = `
CREATE TABLE IF NOT EXISTS transcripts (
    key TEXT PRIMARY KEY,
    language TEXT NOT NULL,
    payload TEXT NOT NULL,
    created_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_transcripts_created_at ON transcripts(created_at);
`

// Cache stores finished transcripts keyed by input content and ASR settings.
type Cache struct {
	db *sql.DB
}

func Open(path string) (*Cache, error) {
	const op = "sqlitecache.Open"

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, apperr.Internal(op, err, "failed to create cache directory")
	}
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, apperr.Internal(op, err, "failed to open cache database")
	}
	// One writer is enough and avoids SQLITE_BUSY across watch workers.
	db.SetMaxOpenConns(1)

	if err := configurePragmas(db); err != nil {
		db.Close()
		return nil, err
	}
	if err := execSchema(db); err != nil {
		db.Close()
		return nil, err
	}
	return &Cache{db: db}, nil
}

func (c *Cache) Close() error {
	return c.db.Close()
}

func configurePragmas(db *sql.DB) error {
	const op = "sqlitecache.configurePragmas"

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA temp_store = MEMORY",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return apperr.Internal(op, err, fmt.Sprintf("failed to set pragma: %s", pragma))
		}
	}
	return nil
}

func execSchema(db *sql.DB) error {
	const op = "sqlitecache.execSchema"

	tx, err := db.Begin()
	if err != nil {
		return apperr.Internal(op, err, "failed to begin transaction")
	}
	defer tx.Rollback()

	for _, stmt := range strings.Split(schema, ";") {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}
		if _, err := tx.Exec(stmt); err != nil {
			return apperr.Internal(op, err, fmt.Sprintf("failed to execute schema statement: %s", stmt))
		}
	}
	if err := tx.Commit(); err != nil {
		return apperr.Internal(op, err, "failed to commit schema transaction")
	}
	return nil
}

func (c *Cache) Get(ctx context.Context, key string) (types.Transcript, bool, error) {
	const op = "sqlitecache.Get"

	var payload string
	err := c.db.QueryRowContext(ctx, `SELECT payload FROM transcripts WHERE key = ?`, key).Scan(&payload)
	if err == sql.ErrNoRows {
		return types.Transcript{}, false, nil
	}
	if err != nil {
		return types.Transcript{}, false, apperr.Internal(op, err, "failed to read cached transcript")
	}

	var tr types.Transcript
	if err := json.Unmarshal([]byte(payload), &tr); err != nil {
		return types.Transcript{}, false, apperr.Internal(op, err, "failed to decode cached transcript")
	}
	return tr, true, nil
}

func (c *Cache) Put(ctx context.Context, key string, tr types.Transcript) error {
	const op = "sqlitecache.Put"

	payload, err := json.Marshal(tr)
	if err != nil {
		return apperr.Internal(op, err, "failed to encode transcript")
	}
	_, err = c.db.ExecContext(ctx, `
		INSERT INTO transcripts (key, language, payload, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			language = excluded.language,
			payload = excluded.payload,
			created_at = excluded.created_at`,
		key, tr.Language, string(payload), time.Now().UTC(),
	)
	if err != nil {
		return apperr.Internal(op, err, "failed to store transcript")
	}
	return nil
}

// KeyParts identifies one transcription of one input.
type KeyParts struct {
	ContentHash string
	Engine      string
	Model       string
	Language    string
	Diarize     bool
}

func Key(p KeyParts) string {
	sum := sha256.Sum256([]byte(strings.Join([]string{
		p.ContentHash, p.Engine, p.Model, p.Language, fmt.Sprintf("diarize=%t", p.Diarize),
	}, "|")))
	return hex.EncodeToString(sum[:])
}

// HashFile returns the hex sha256 of the file's content.
func HashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
