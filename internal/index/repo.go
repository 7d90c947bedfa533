package index

import (
	"fmt"
	"time"

	"github.com/starford/ehwaz/internal/models"
)

// AssetRow represents a row in the assets table.
type AssetRow struct {
	Scope     models.Scope
	RootID    string
	Subfolder string
	Filename  string
	Kind      models.Kind
	Size      int64
	Checksum  string
	UpdatedAt time.Time
}

// RelPath returns the row's path relative to its scope root.
func (r AssetRow) RelPath() string {
	if r.Subfolder != "" {
		return r.Subfolder + "/" + r.Filename
	}
	return r.Filename
}

// UpsertAsset inserts or replaces an asset row.
func (db *DB) UpsertAsset(r AssetRow) error {
	_, err := db.conn.Exec(`
		INSERT INTO assets (scope, root_id, subfolder, filename, kind, size, checksum, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(scope, root_id, subfolder, filename) DO UPDATE SET
			kind       = excluded.kind,
			size       = excluded.size,
			checksum   = excluded.checksum,
			updated_at = excluded.updated_at
	`, r.Scope, r.RootID, r.Subfolder, r.Filename, r.Kind, r.Size, r.Checksum, r.UpdatedAt)
	if err != nil {
		return fmt.Errorf("index: upsert asset: %w", err)
	}
	return nil
}

// DeleteAsset removes an asset row.
func (db *DB) DeleteAsset(scope models.Scope, rootID, subfolder, filename string) error {
	_, err := db.conn.Exec(
		`DELETE FROM assets WHERE scope = ? AND root_id = ? AND subfolder = ? AND filename = ?`,
		scope, rootID, subfolder, filename)
	if err != nil {
		return fmt.Errorf("index: delete asset: %w", err)
	}
	return nil
}

// GetAsset returns a single asset row, or nil when not indexed.
func (db *DB) GetAsset(scope models.Scope, rootID, subfolder, filename string) (*AssetRow, error) {
	row := db.conn.QueryRow(`
		SELECT scope, root_id, subfolder, filename, kind, size, checksum, updated_at
		FROM assets WHERE scope = ? AND root_id = ? AND subfolder = ? AND filename = ?`,
		scope, rootID, subfolder, filename)
	var r AssetRow
	err := row.Scan(&r.Scope, &r.RootID, &r.Subfolder, &r.Filename, &r.Kind, &r.Size, &r.Checksum, &r.UpdatedAt)
	if err != nil {
		return nil, nil // not found is fine
	}
	return &r, nil
}

// ListAssets returns paginated assets with optional scope and kind filters.
func (db *DB) ListAssets(limit, offset int, scope models.Scope, kind models.Kind) ([]AssetRow, int, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	where := "1=1"
	args := []any{}
	if scope != "" {
		where += " AND scope = ?"
		args = append(args, scope)
	}
	if kind != "" {
		where += " AND kind = ?"
		args = append(args, kind)
	}

	var total int
	if err := db.conn.QueryRow(`SELECT COUNT(*) FROM assets WHERE `+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("index: count assets: %w", err)
	}

	rows, err := db.conn.Query(`
		SELECT scope, root_id, subfolder, filename, kind, size, checksum, updated_at
		FROM assets WHERE `+where+`
		ORDER BY updated_at DESC, filename ASC
		LIMIT ? OFFSET ?`, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("index: list assets: %w", err)
	}
	defer rows.Close()

	var out []AssetRow
	for rows.Next() {
		var r AssetRow
		if err := rows.Scan(&r.Scope, &r.RootID, &r.Subfolder, &r.Filename, &r.Kind, &r.Size, &r.Checksum, &r.UpdatedAt); err != nil {
			return nil, 0, err
		}
		out = append(out, r)
	}
	return out, total, rows.Err()
}

// SearchAssets performs a LIKE-based filename/subfolder search.
func (db *DB) SearchAssets(query string, limit int) ([]AssetRow, error) {
	if limit <= 0 {
		limit = 20
	}
	like := "%" + query + "%"
	rows, err := db.conn.Query(`
		SELECT scope, root_id, subfolder, filename, kind, size, checksum, updated_at
		FROM assets
		WHERE filename LIKE ? OR subfolder LIKE ?
		ORDER BY updated_at DESC
		LIMIT ?`, like, like, limit)
	if err != nil {
		return nil, fmt.Errorf("index: search: %w", err)
	}
	defer rows.Close()

	var out []AssetRow
	for rows.Next() {
		var r AssetRow
		if err := rows.Scan(&r.Scope, &r.RootID, &r.Subfolder, &r.Filename, &r.Kind, &r.Size, &r.Checksum, &r.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// AllChecksums returns the checksum of every indexed asset in a scope,
// keyed by relative path.
func (db *DB) AllChecksums(scope models.Scope, rootID string) (map[string]string, error) {
	rows, err := db.conn.Query(
		`SELECT subfolder, filename, checksum FROM assets WHERE scope = ? AND root_id = ?`,
		scope, rootID)
	if err != nil {
		return nil, fmt.Errorf("index: all checksums: %w", err)
	}
	defer rows.Close()

	out := make(map[string]string)
	for rows.Next() {
		var sub, name, cs string
		if err := rows.Scan(&sub, &name, &cs); err != nil {
			return nil, err
		}
		rel := name
		if sub != "" {
			rel = sub + "/" + name
		}
		out[rel] = cs
	}
	return out, rows.Err()
}
