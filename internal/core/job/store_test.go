package job

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"

	"routeplan/internal/core/extract"
	"routeplan/internal/core/route"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(filepath.Join(t.TempDir(), "jobs.db"))
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func sampleRecord() *Record {
	lat, lon := 39.8, -89.65
	now := time.Now().UTC().Truncate(time.Millisecond)
	return &Record{
		JobID:     uuid.New(),
		Status:    StatusCompleted,
		CreatedAt: now.Add(-time.Minute),
		UpdatedAt: now,
		ImagePath: "/data/uploads/abc.png",
		Origin:    &Origin{Latitude: 37.77, Longitude: -122.42},
		Addresses: []extract.Candidate{{
			RawText:    "123 Main St Springfield",
			Confidence: 0.885,
			Parsed:     map[string]string{"house_number": "123", "road": "Main St"},
			Status:     extract.StatusValidated,
			Latitude:   &lat,
			Longitude:  &lon,
		}},
		Route: []route.Leg{
			{Order: 0, Label: "Origin", Latitude: 37.77, Longitude: -122.42},
			{Order: 1, Label: "123 Main St Springfield", Latitude: lat, Longitude: lon,
				ETASeconds: 120, DistanceMeters: 1500, CumulativeETASeconds: 120, CumulativeDistanceMeters: 1500},
		},
		Errors: []string{},
	}
}

func TestStoreRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	record := sampleRecord()

	if err := store.Upsert(ctx, record); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	got, err := store.Get(ctx, record.JobID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}

	if got.JobID != record.JobID || got.Status != record.Status || got.ImagePath != record.ImagePath {
		t.Errorf("got %+v, want %+v", got, record)
	}
	if !got.CreatedAt.Equal(record.CreatedAt) || !got.UpdatedAt.Equal(record.UpdatedAt) {
		t.Errorf("timestamps changed: got (%v, %v), want (%v, %v)",
			got.CreatedAt, got.UpdatedAt, record.CreatedAt, record.UpdatedAt)
	}
	if got.Origin == nil || *got.Origin != *record.Origin {
		t.Errorf("Origin = %+v, want %+v", got.Origin, record.Origin)
	}
	if len(got.Addresses) != 1 {
		t.Fatalf("got %d addresses, want 1", len(got.Addresses))
	}
	address := got.Addresses[0]
	if address.RawText != record.Addresses[0].RawText || address.Status != extract.StatusValidated {
		t.Errorf("address = %+v", address)
	}
	if address.Latitude == nil || *address.Latitude != 39.8 {
		t.Errorf("address latitude = %v", address.Latitude)
	}
	if len(got.Route) != 2 {
		t.Fatalf("got %d legs, want 2", len(got.Route))
	}
	if got.Route[1].ETASeconds != 120 || got.Route[1].DistanceMeters != 1500 {
		t.Errorf("leg = %+v", got.Route[1])
	}
	if got.Errors == nil || len(got.Errors) != 0 {
		t.Errorf("Errors = %v, want empty non-nil", got.Errors)
	}
}

func TestStoreUpsertUpdatesInPlace(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	record := sampleRecord()
	record.Status = StatusPending
	record.Addresses = nil
	record.Route = nil

	if err := store.Upsert(ctx, record); err != nil {
		t.Fatalf("first Upsert: %v", err)
	}

	record.Status = StatusFailed
	record.Errors = []string{"tesseract OCR failed"}
	record.UpdatedAt = record.UpdatedAt.Add(time.Second)
	if err := store.Upsert(ctx, record); err != nil {
		t.Fatalf("second Upsert: %v", err)
	}

	got, err := store.Get(ctx, record.JobID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Status != StatusFailed {
		t.Errorf("Status = %q, want %q", got.Status, StatusFailed)
	}
	if len(got.Errors) != 1 || got.Errors[0] != "tesseract OCR failed" {
		t.Errorf("Errors = %v", got.Errors)
	}
	if !got.CreatedAt.Equal(record.CreatedAt) {
		t.Errorf("CreatedAt changed on update: %v vs %v", got.CreatedAt, record.CreatedAt)
	}
	// Nil slices come back as empty lists, never null.
	if got.Addresses == nil || got.Route == nil {
		t.Error("expected non-nil address and route lists")
	}

	records, err := store.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(records) != 1 {
		t.Errorf("List returned %d records, want 1", len(records))
	}
}

func TestStoreGetUnknownID(t *testing.T) {
	store := newTestStore(t)
	_, err := store.Get(context.Background(), uuid.New())
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestStoreListOrdering(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	base := time.Now().UTC()
	var ids []uuid.UUID
	for i := 0; i < 3; i++ {
		record := sampleRecord()
		record.CreatedAt = base.Add(time.Duration(i) * time.Minute)
		if err := store.Upsert(ctx, record); err != nil {
			t.Fatalf("Upsert: %v", err)
		}
		ids = append(ids, record.JobID)
	}

	records, err := store.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("got %d records, want 3", len(records))
	}
	// Most recent first.
	for i, want := range []uuid.UUID{ids[2], ids[1], ids[0]} {
		if records[i].JobID != want {
			t.Errorf("records[%d] = %s, want %s", i, records[i].JobID, want)
		}
	}
}
