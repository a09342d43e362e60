// Package storage persists finished sessions and saved location templates in
// a local sqlite database.
package storage

import (
	"database/sql"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/rendis/biztap/internal/model"
)

// SavedLocation is a reusable search template.
type SavedLocation struct {
	Name      string
	Location  string
	RadiusKm  float64
	CreatedAt time.Time
}

type Store struct {
	db *sql.DB
	mu sync.Mutex
}

func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, eris.Wrap(err, "storage: opening db")
	}

	// Optimize for write throughput
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA cache_size=-64000",
		"PRAGMA busy_timeout=5000",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return nil, eris.Wrapf(err, "storage: setting pragma %q", p)
		}
	}

	if err := createSchema(db); err != nil {
		return nil, err
	}

	return &Store{db: db}, nil
}

func createSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS sessions (
		id TEXT PRIMARY KEY,
		query TEXT NOT NULL,
		location TEXT NOT NULL,
		radius_km REAL NOT NULL,
		status TEXT NOT NULL,
		start_time DATETIME NOT NULL,
		end_time DATETIME,
		businesses_found INTEGER NOT NULL DEFAULT 0,
		phone_numbers_found INTEGER NOT NULL DEFAULT 0,
		error TEXT
	);
	CREATE TABLE IF NOT EXISTS records (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		session_id TEXT NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
		name TEXT NOT NULL,
		category TEXT,
		rating REAL,
		reviews_count INTEGER,
		website TEXT,
		website_ok INTEGER,
		address TEXT,
		lat REAL,
		lng REAL,
		district TEXT,
		extracted_at DATETIME NOT NULL
	);
	CREATE TABLE IF NOT EXISTS phones (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		record_id INTEGER NOT NULL REFERENCES records(id) ON DELETE CASCADE,
		raw TEXT NOT NULL,
		international TEXT NOT NULL,
		local TEXT,
		is_mobile INTEGER NOT NULL DEFAULT 0,
		region TEXT
	);
	CREATE TABLE IF NOT EXISTS saved_locations (
		name TEXT PRIMARY KEY,
		location TEXT NOT NULL,
		radius_km REAL NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_records_session ON records(session_id);
	CREATE INDEX IF NOT EXISTS idx_phones_record ON phones(record_id);
	CREATE INDEX IF NOT EXISTS idx_sessions_status ON sessions(status);
	`
	if _, err := db.Exec(schema); err != nil {
		return eris.Wrap(err, "storage: creating schema")
	}
	return nil
}

// SaveSession writes a terminal session with all its records and phones.
func (s *Store) SaveSession(sess *model.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return eris.Wrap(err, "storage: beginning tx")
	}

	_, err = tx.Exec(`
		INSERT OR REPLACE INTO sessions
		(id, query, location, radius_km, status, start_time, end_time,
		 businesses_found, phone_numbers_found, error)
		VALUES (?,?,?,?,?,?,?,?,?,?)`,
		sess.ID, sess.Query, sess.Location, sess.RadiusKm, string(sess.Status),
		sess.StartTime, nullableTime(sess.EndTime),
		sess.BusinessesFound, sess.PhoneNumbersFound, nullableString(sess.Error),
	)
	if err != nil {
		tx.Rollback()
		return eris.Wrap(err, "storage: inserting session")
	}

	if _, err := tx.Exec(`DELETE FROM records WHERE session_id = ?`, sess.ID); err != nil {
		tx.Rollback()
		return eris.Wrap(err, "storage: clearing stale records")
	}

	recStmt, err := tx.Prepare(`
		INSERT INTO records
		(session_id, name, category, rating, reviews_count, website, website_ok,
		 address, lat, lng, district, extracted_at)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?)`)
	if err != nil {
		tx.Rollback()
		return eris.Wrap(err, "storage: preparing record stmt")
	}
	defer recStmt.Close()

	phoneStmt, err := tx.Prepare(`
		INSERT INTO phones (record_id, raw, international, local, is_mobile, region)
		VALUES (?,?,?,?,?,?)`)
	if err != nil {
		tx.Rollback()
		return eris.Wrap(err, "storage: preparing phone stmt")
	}
	defer phoneStmt.Close()

	for _, rec := range sess.Results {
		var lat, lng any
		var district any
		if rec.Location != nil {
			lat, lng = rec.Location.Latitude, rec.Location.Longitude
			district = rec.Location.District
		}
		res, err := recStmt.Exec(
			sess.ID, rec.Name, rec.Category, rec.Rating, rec.ReviewsCount,
			rec.Website, nullableBool(rec.WebsiteOK), rec.Address,
			lat, lng, district, rec.ExtractedAt,
		)
		if err != nil {
			tx.Rollback()
			return eris.Wrapf(err, "storage: inserting record %q", rec.Name)
		}
		recID, err := res.LastInsertId()
		if err != nil {
			tx.Rollback()
			return eris.Wrap(err, "storage: record id")
		}
		for _, p := range rec.PhoneNumbers {
			if _, err := phoneStmt.Exec(recID, p.Raw, p.International, p.Local, p.IsMobile, p.Region); err != nil {
				tx.Rollback()
				return eris.Wrapf(err, "storage: inserting phone for %q", rec.Name)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return eris.Wrap(err, "storage: committing tx")
	}
	return nil
}

// GetSession loads one session with its full results.
func (s *Store) GetSession(id string) (*model.Session, error) {
	row := s.db.QueryRow(`
		SELECT id, query, location, radius_km, status, start_time, end_time,
		       businesses_found, phone_numbers_found, error
		FROM sessions WHERE id = ?`, id)

	sess, err := scanSession(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, eris.Errorf("storage: session %q not found", id)
		}
		return nil, eris.Wrap(err, "storage: loading session")
	}

	if err := s.loadResults(sess); err != nil {
		return nil, err
	}
	return sess, nil
}

// ListSessions returns session summaries, newest first, without results.
func (s *Store) ListSessions() ([]model.Session, error) {
	rows, err := s.db.Query(`
		SELECT id, query, location, radius_km, status, start_time, end_time,
		       businesses_found, phone_numbers_found, error
		FROM sessions ORDER BY start_time DESC`)
	if err != nil {
		return nil, eris.Wrap(err, "storage: listing sessions")
	}
	defer rows.Close()

	var sessions []model.Session
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, eris.Wrap(err, "storage: scanning session")
		}
		sessions = append(sessions, *sess)
	}
	return sessions, rows.Err()
}

func (s *Store) loadResults(sess *model.Session) error {
	rows, err := s.db.Query(`
		SELECT id, name, category, rating, reviews_count, website, website_ok,
		       address, lat, lng, district, extracted_at
		FROM records WHERE session_id = ? ORDER BY id`, sess.ID)
	if err != nil {
		return eris.Wrap(err, "storage: loading records")
	}
	defer rows.Close()

	recIDs := make([]int64, 0)
	for rows.Next() {
		var (
			recID     int64
			rec       model.BusinessRecord
			rating    sql.NullFloat64
			reviews   sql.NullInt64
			website   sql.NullString
			websiteOK sql.NullBool
			category  sql.NullString
			address   sql.NullString
			lat, lng  sql.NullFloat64
			district  sql.NullString
		)
		if err := rows.Scan(&recID, &rec.Name, &category, &rating, &reviews,
			&website, &websiteOK, &address, &lat, &lng, &district, &rec.ExtractedAt); err != nil {
			return eris.Wrap(err, "storage: scanning record")
		}
		rec.Category = category.String
		rec.Website = website.String
		rec.Address = address.String
		if rating.Valid {
			v := rating.Float64
			rec.Rating = &v
		}
		if reviews.Valid {
			v := int(reviews.Int64)
			rec.ReviewsCount = &v
		}
		if websiteOK.Valid {
			v := websiteOK.Bool
			rec.WebsiteOK = &v
		}
		if lat.Valid && lng.Valid {
			rec.Location = &model.Location{
				Latitude:  lat.Float64,
				Longitude: lng.Float64,
				District:  district.String,
			}
		}
		sess.Results = append(sess.Results, rec)
		recIDs = append(recIDs, recID)
	}
	if err := rows.Err(); err != nil {
		return eris.Wrap(err, "storage: iterating records")
	}

	for i, recID := range recIDs {
		phones, err := s.loadPhones(recID)
		if err != nil {
			return err
		}
		sess.Results[i].PhoneNumbers = phones
	}
	return nil
}

func (s *Store) loadPhones(recID int64) ([]model.PhoneNumber, error) {
	rows, err := s.db.Query(`
		SELECT raw, international, local, is_mobile, region
		FROM phones WHERE record_id = ? ORDER BY id`, recID)
	if err != nil {
		return nil, eris.Wrap(err, "storage: loading phones")
	}
	defer rows.Close()

	var phones []model.PhoneNumber
	for rows.Next() {
		var (
			p      model.PhoneNumber
			local  sql.NullString
			region sql.NullString
		)
		if err := rows.Scan(&p.Raw, &p.International, &local, &p.IsMobile, &region); err != nil {
			return nil, eris.Wrap(err, "storage: scanning phone")
		}
		p.Local = local.String
		p.Region = region.String
		phones = append(phones, p)
	}
	return phones, rows.Err()
}

// SaveLocation stores or replaces a named search template.
func (s *Store) SaveLocation(loc SavedLocation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.Exec(`
		INSERT OR REPLACE INTO saved_locations (name, location, radius_km)
		VALUES (?,?,?)`, loc.Name, loc.Location, loc.RadiusKm)
	if err != nil {
		return eris.Wrap(err, "storage: saving location")
	}
	return nil
}

// ListLocations returns all saved templates sorted by name.
func (s *Store) ListLocations() ([]SavedLocation, error) {
	rows, err := s.db.Query(`
		SELECT name, location, radius_km, created_at
		FROM saved_locations ORDER BY name`)
	if err != nil {
		return nil, eris.Wrap(err, "storage: listing locations")
	}
	defer rows.Close()

	var locs []SavedLocation
	for rows.Next() {
		var l SavedLocation
		if err := rows.Scan(&l.Name, &l.Location, &l.RadiusKm, &l.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "storage: scanning location")
		}
		locs = append(locs, l)
	}
	return locs, rows.Err()
}

// DeleteLocation removes a saved template; deleting a missing name is not an
// error.
func (s *Store) DeleteLocation(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.db.Exec(`DELETE FROM saved_locations WHERE name = ?`, name); err != nil {
		return eris.Wrap(err, "storage: deleting location")
	}
	return nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (*model.Session, error) {
	var (
		sess    model.Session
		status  string
		endTime sql.NullTime
		errMsg  sql.NullString
	)
	err := row.Scan(&sess.ID, &sess.Query, &sess.Location, &sess.RadiusKm, &status,
		&sess.StartTime, &endTime, &sess.BusinessesFound, &sess.PhoneNumbersFound, &errMsg)
	if err != nil {
		return nil, err
	}
	sess.Status = model.Status(status)
	if endTime.Valid {
		t := endTime.Time
		sess.EndTime = &t
	}
	sess.Error = errMsg.String
	return &sess, nil
}

func nullableTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return *t
}

func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullableBool(b *bool) any {
	if b == nil {
		return nil
	}
	return *b
}
