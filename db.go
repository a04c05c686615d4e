package main

import (
	"database/sql"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// DB wraps sql.DB to add custom methods
type DB struct {
	*sql.DB
}

func openAndInitDB(path string) (*DB, error) {
	sqlDB, err := sql.Open("sqlite", path+"?_busy_timeout=5000&_journal_mode=WAL")
	if err != nil {
		return nil, err
	}
	// SQLite works best with single connection
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)
	sqlDB.SetConnMaxLifetime(0)

	db := &DB{sqlDB}

	schema := `
CREATE TABLE IF NOT EXISTS geotags (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	src TEXT NOT NULL,
	dst TEXT NOT NULL,
	lat REAL NOT NULL,
	lon REAL NOT NULL,
	alt REAL NOT NULL,
	ok INTEGER NOT NULL DEFAULT 0,
	error_kind TEXT NOT NULL DEFAULT '',
	error TEXT,
	metadata JSON NOT NULL DEFAULT '{}',
	thumbnail_path TEXT DEFAULT '',
	created_at TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS readings (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	path TEXT NOT NULL,
	mode TEXT NOT NULL,
	assume_utc INTEGER NOT NULL DEFAULT 0,
	taken_at TEXT NOT NULL DEFAULT '',
	valid INTEGER NOT NULL DEFAULT 0,
	error TEXT,
	created_at TEXT NOT NULL
);`
	if _, err := sqlDB.Exec(schema); err != nil {
		sqlDB.Close()
		return nil, err
	}

	// Ensure thumbnail_path column exists in journals created before thumbnails
	var thumbCol int
	_ = sqlDB.QueryRow(`SELECT COUNT(*) FROM pragma_table_info('geotags') WHERE name='thumbnail_path'`).Scan(&thumbCol)
	if thumbCol == 0 {
		_, _ = sqlDB.Exec(`ALTER TABLE geotags ADD COLUMN thumbnail_path TEXT DEFAULT ''`)
	}
	_, _ = sqlDB.Exec(`CREATE INDEX IF NOT EXISTS idx_readings_path ON readings(path)`)
	return db, nil
}

func (db *DB) clearDBTables() error {
	if _, err := db.Exec(`DELETE FROM geotags`); err != nil {
		return err
	}
	if _, err := db.Exec(`DELETE FROM readings`); err != nil {
		return err
	}
	return nil
}

// execWithRetry retries statements that fail with SQLITE_BUSY.
func (db *DB) execWithRetry(query string, args ...interface{}) (sql.Result, error) {
	maxRetries := 3
	var (
		res sql.Result
		err error
	)
	for i := 0; i < maxRetries; i++ {
		res, err = db.Exec(query, args...)
		if err == nil {
			return res, nil
		}
		if errStr := err.Error(); !strings.Contains(errStr, "database is locked") && !strings.Contains(errStr, "SQLITE_BUSY") {
			return nil, err
		}
		// exponential backoff
		time.Sleep(time.Duration(i+1) * 50 * time.Millisecond)
	}
	return nil, err
}

// GeotagRow is one journalled GPS write.
type GeotagRow struct {
	ID            int64   `json:"id"`
	Src           string  `json:"src"`
	Dst           string  `json:"dst"`
	Lat           float64 `json:"lat"`
	Lon           float64 `json:"lon"`
	Alt           float64 `json:"alt"`
	OK            bool    `json:"ok"`
	ErrorKind     string  `json:"errorKind,omitempty"`
	Error         string  `json:"error,omitempty"`
	Metadata      string  `json:"metadata"`
	ThumbnailPath string  `json:"thumbnailPath,omitempty"`
	CreatedAt     string  `json:"createdAt"`
}

// ReadingRow is one journalled DateTimeDigitized read.
type ReadingRow struct {
	ID        int64  `json:"id"`
	Path      string `json:"path"`
	Mode      string `json:"mode"`
	AssumeUTC bool   `json:"assumeUtc"`
	TakenAt   string `json:"takenAt,omitempty"`
	Valid     bool   `json:"valid"`
	Error     string `json:"error,omitempty"`
	CreatedAt string `json:"createdAt"`
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func (db *DB) insertGeotag(r GeotagRow) (int64, error) {
	if r.Metadata == "" {
		r.Metadata = "{}"
	}
	if r.CreatedAt == "" {
		r.CreatedAt = time.Now().Format(time.RFC3339)
	}
	stmt := `INSERT INTO geotags (src, dst, lat, lon, alt, ok, error_kind, error, metadata, thumbnail_path, created_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	res, err := db.execWithRetry(stmt,
		r.Src,
		r.Dst,
		r.Lat,
		r.Lon,
		r.Alt,
		boolToInt(r.OK),
		r.ErrorKind,
		r.Error,
		r.Metadata,
		r.ThumbnailPath,
		r.CreatedAt,
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func (db *DB) insertReading(r ReadingRow) (int64, error) {
	if r.CreatedAt == "" {
		r.CreatedAt = time.Now().Format(time.RFC3339)
	}
	stmt := `INSERT INTO readings (path, mode, assume_utc, taken_at, valid, error, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)`
	res, err := db.execWithRetry(stmt,
		r.Path,
		r.Mode,
		boolToInt(r.AssumeUTC),
		r.TakenAt,
		boolToInt(r.Valid),
		r.Error,
		r.CreatedAt,
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

const geotagColumns = `id, src, dst, lat, lon, alt, ok, error_kind, IFNULL(error,''), metadata, IFNULL(thumbnail_path,''), created_at`

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanGeotag(s scanner) (GeotagRow, error) {
	var r GeotagRow
	var okInt int
	err := s.Scan(&r.ID, &r.Src, &r.Dst, &r.Lat, &r.Lon, &r.Alt, &okInt, &r.ErrorKind, &r.Error, &r.Metadata, &r.ThumbnailPath, &r.CreatedAt)
	r.OK = okInt == 1
	return r, err
}

func (db *DB) listGeotagRows(offset, limit int64) ([]GeotagRow, error) {
	rows, err := db.Query(`SELECT `+geotagColumns+` FROM geotags ORDER BY id LIMIT ? OFFSET ?`, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []GeotagRow{}
	for rows.Next() {
		r, err := scanGeotag(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (db *DB) getGeotagByIDRow(id int64) (*GeotagRow, error) {
	r, err := scanGeotag(db.QueryRow(`SELECT `+geotagColumns+` FROM geotags WHERE id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}

func (db *DB) listReadingRows(offset, limit int64) ([]ReadingRow, error) {
	rows, err := db.Query(`SELECT id, path, mode, assume_utc, taken_at, valid, IFNULL(error,''), created_at FROM readings ORDER BY id LIMIT ? OFFSET ?`, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []ReadingRow{}
	for rows.Next() {
		var r ReadingRow
		var utcInt, validInt int
		if err := rows.Scan(&r.ID, &r.Path, &r.Mode, &utcInt, &r.TakenAt, &validInt, &r.Error, &r.CreatedAt); err != nil {
			return nil, err
		}
		r.AssumeUTC = utcInt == 1
		r.Valid = validInt == 1
		out = append(out, r)
	}
	return out, rows.Err()
}
