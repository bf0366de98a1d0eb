// Package ledger is the optional dedup-tracking store consulted by the
// skip policy. Absence of a ledger only disables the early-skip
// optimization; it is never required for correctness.
package ledger

import (
	"database/sql"
	"errors"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/AndyXFuture/bilix-meta/internal/migrations"
)

// ErrNotFound is returned when no ledger record exists for a key.
var ErrNotFound = errors.New("ledger record not found")

// Key is the natural key of one tracked item.
type Key struct {
	ItemID       string
	Name         string
	CollectionID int64
}

// Flags records which artifacts of an item are already present.
type Flags struct {
	Video    bool
	Cover    bool
	Subtitle bool
	Caption  bool
	Metadata bool
}

// Ledger persists dedup records in sqlite. One Ledger holds one logical
// connection; open one per walker invocation rather than sharing across
// concurrent collection walks.
type Ledger struct {
	db *sql.DB
}

// Open opens (creating if needed) a ledger database at path.
func Open(path string) (*Ledger, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open ledger: %w", err)
	}
	// Writes are serialized through this one connection.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(migrations.InitialSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply ledger schema: %w", err)
	}
	return &Ledger{db: db}, nil
}

// New wraps an existing database handle (for tests).
func New(db *sql.DB) (*Ledger, error) {
	if _, err := db.Exec(migrations.InitialSQL); err != nil {
		return nil, fmt.Errorf("apply ledger schema: %w", err)
	}
	return &Ledger{db: db}, nil
}

// Close releases the connection.
func (l *Ledger) Close() error {
	return l.db.Close()
}

// UpsertCollection returns the id for a collection name, creating the row
// on first use. Idempotent.
func (l *Ledger) UpsertCollection(name string) (int64, error) {
	var id int64
	err := l.db.QueryRow("SELECT id FROM collections WHERE name = ?", name).Scan(&id)
	if err == nil {
		return id, nil
	}
	if err != sql.ErrNoRows {
		return 0, fmt.Errorf("lookup collection %q: %w", name, err)
	}

	result, err := l.db.Exec("INSERT INTO collections (name) VALUES (?)", name)
	if err != nil {
		return 0, fmt.Errorf("insert collection %q: %w", name, err)
	}
	id, err = result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("get last insert id: %w", err)
	}
	return id, nil
}

// Lookup returns the artifact flags for a key.
// Returns ErrNotFound when the item has never been recorded.
func (l *Ledger) Lookup(k Key) (Flags, error) {
	var f Flags
	err := l.db.QueryRow(`
		SELECT video, cover, subtitle, caption, metadata
		FROM items WHERE item_id = ? AND name = ? AND collection_id = ?`,
		k.ItemID, k.Name, k.CollectionID,
	).Scan(&f.Video, &f.Cover, &f.Subtitle, &f.Caption, &f.Metadata)

	if err == sql.ErrNoRows {
		return Flags{}, fmt.Errorf("lookup %s: %w", k.ItemID, ErrNotFound)
	}
	if err != nil {
		return Flags{}, fmt.Errorf("lookup %s: %w", k.ItemID, err)
	}
	return f, nil
}

// Record upserts the artifact flags for a key, OR-ing with any existing
// flags so a retry never clears what an earlier run recorded. Idempotent.
func (l *Ledger) Record(k Key, f Flags) error {
	_, err := l.db.Exec(`
		INSERT INTO items (item_id, name, collection_id, video, cover, subtitle, caption, metadata)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(item_id, name, collection_id) DO UPDATE SET
			video    = MAX(items.video,    excluded.video),
			cover    = MAX(items.cover,    excluded.cover),
			subtitle = MAX(items.subtitle, excluded.subtitle),
			caption  = MAX(items.caption,  excluded.caption),
			metadata = MAX(items.metadata, excluded.metadata),
			updated_at = CURRENT_TIMESTAMP`,
		k.ItemID, k.Name, k.CollectionID,
		f.Video, f.Cover, f.Subtitle, f.Caption, f.Metadata,
	)
	if err != nil {
		return fmt.Errorf("record %s: %w", k.ItemID, err)
	}
	return nil
}
