package job

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"routeplan/internal/core/extract"
	"routeplan/internal/core/route"
)

var ErrNotFound = errors.New("job not found")

// Store is the durable job repository backed by SQLite. Nested
// address and route lists are stored as JSON blobs; the row is
// upserted after every state transition.
type Store struct {
	db *sql.DB
	mu sync.Mutex
}

func NewStore(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create store dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// modernc sqlite serializes writes; a single connection avoids
	// SQLITE_BUSY under concurrent jobs.
	db.SetMaxOpenConns(1)

	s := &Store{db: db}
	if err := s.ensureSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) HealthCheck(ctx context.Context) error { return s.db.PingContext(ctx) }

func (s *Store) ensureSchema() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS jobs (
			job_id TEXT PRIMARY KEY,
			status TEXT NOT NULL,
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL,
			image_path TEXT NOT NULL,
			origin_lat REAL,
			origin_lon REAL,
			addresses_json TEXT NOT NULL,
			route_json TEXT NOT NULL,
			errors_json TEXT NOT NULL
		)`)
	if err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

func (s *Store) Upsert(ctx context.Context, record *Record) error {
	addresses, err := marshalList(record.Addresses)
	if err != nil {
		return fmt.Errorf("marshal addresses: %w", err)
	}
	legs, err := marshalList(record.Route)
	if err != nil {
		return fmt.Errorf("marshal route: %w", err)
	}
	errs, err := marshalList(record.Errors)
	if err != nil {
		return fmt.Errorf("marshal errors: %w", err)
	}

	var originLat, originLon interface{}
	if record.Origin != nil {
		originLat = record.Origin.Latitude
		originLon = record.Origin.Longitude
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO jobs (
			job_id, status, created_at, updated_at, image_path,
			origin_lat, origin_lon, addresses_json, route_json, errors_json
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(job_id) DO UPDATE SET
			status=excluded.status,
			updated_at=excluded.updated_at,
			image_path=excluded.image_path,
			origin_lat=excluded.origin_lat,
			origin_lon=excluded.origin_lon,
			addresses_json=excluded.addresses_json,
			route_json=excluded.route_json,
			errors_json=excluded.errors_json`,
		record.JobID.String(),
		string(record.Status),
		record.CreatedAt.UTC().Format(time.RFC3339Nano),
		record.UpdatedAt.UTC().Format(time.RFC3339Nano),
		record.ImagePath,
		originLat,
		originLon,
		addresses,
		legs,
		errs,
	)
	if err != nil {
		return fmt.Errorf("upsert job: %w", err)
	}
	return nil
}

const selectColumns = `job_id, status, created_at, updated_at, image_path,
	origin_lat, origin_lon, addresses_json, route_json, errors_json`

func (s *Store) Get(ctx context.Context, id uuid.UUID) (*Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	row := s.db.QueryRowContext(ctx,
		`SELECT `+selectColumns+` FROM jobs WHERE job_id = ?`, id.String())
	record, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return record, err
}

// List returns all records ordered by creation time, most recent
// first.
func (s *Store) List(ctx context.Context) ([]*Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+selectColumns+` FROM jobs ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()

	var records []*Record
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	return records, rows.Err()
}

// marshalList keeps nil slices as JSON arrays, not null, so loaded
// records always carry non-nil lists.
func marshalList[T any](list []T) (string, error) {
	if list == nil {
		list = []T{}
	}
	b, err := json.Marshal(list)
	return string(b), err
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanRecord(row scanner) (*Record, error) {
	var (
		idText, statusText, createdText, updatedText, imagePath string
		originLat, originLon                                    sql.NullFloat64
		addressesJSON, routeJSON, errorsJSON                    string
	)
	if err := row.Scan(&idText, &statusText, &createdText, &updatedText, &imagePath,
		&originLat, &originLon, &addressesJSON, &routeJSON, &errorsJSON); err != nil {
		return nil, err
	}

	id, err := uuid.Parse(idText)
	if err != nil {
		return nil, fmt.Errorf("invalid job id %q: %w", idText, err)
	}
	createdAt, err := time.Parse(time.RFC3339Nano, createdText)
	if err != nil {
		return nil, fmt.Errorf("invalid created_at: %w", err)
	}
	updatedAt, err := time.Parse(time.RFC3339Nano, updatedText)
	if err != nil {
		return nil, fmt.Errorf("invalid updated_at: %w", err)
	}

	record := &Record{
		JobID:     id,
		Status:    Status(statusText),
		CreatedAt: createdAt,
		UpdatedAt: updatedAt,
		ImagePath: imagePath,
		Addresses: []extract.Candidate{},
		Route:     []route.Leg{},
		Errors:    []string{},
	}
	if originLat.Valid && originLon.Valid {
		record.Origin = &Origin{Latitude: originLat.Float64, Longitude: originLon.Float64}
	}
	if err := json.Unmarshal([]byte(addressesJSON), &record.Addresses); err != nil {
		return nil, fmt.Errorf("unmarshal addresses: %w", err)
	}
	if err := json.Unmarshal([]byte(routeJSON), &record.Route); err != nil {
		return nil, fmt.Errorf("unmarshal route: %w", err)
	}
	if err := json.Unmarshal([]byte(errorsJSON), &record.Errors); err != nil {
		return nil, fmt.Errorf("unmarshal errors: %w", err)
	}
	return record, nil
}
