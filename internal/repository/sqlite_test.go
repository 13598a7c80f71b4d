package repository

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/mr1hm/go-quake-map/internal/models"
)

func setupTestDB(t *testing.T) *SQLiteDB {
	db, err := NewSQLiteDB(":memory:")
	if err != nil {
		t.Fatalf("failed to create test db: %v", err)
	}
	return db
}

func TestSQLiteDB_AddAndGetEarthquake(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	ctx := context.Background()
	occurred := time.UnixMilli(1704092409000)
	eq := &models.Earthquake{
		ID:        "us6000m0xl",
		Magnitude: 7.5,
		Place:     "Noto Peninsula, Japan",
		Time:      occurred,
		Latitude:  37.5,
		Longitude: 137.2,
		URL:       "https://earthquake.usgs.gov/earthquakes/eventpage/us6000m0xl",
		CreatedAt: time.Now(),
	}

	inserted, err := db.Add(ctx, eq)
	if err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	if !inserted {
		t.Error("expected first Add to insert")
	}

	got, err := db.GetByID(ctx, "us6000m0xl")
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if got == nil {
		t.Fatal("expected earthquake, got nil")
	}
	if got.Place != "Noto Peninsula, Japan" {
		t.Errorf("expected place 'Noto Peninsula, Japan', got '%s'", got.Place)
	}
	if got.Magnitude != 7.5 {
		t.Errorf("expected magnitude 7.5, got %v", got.Magnitude)
	}
	if !got.Time.Equal(occurred) {
		t.Errorf("expected time %v, got %v", occurred, got.Time)
	}
	if got.URL != eq.URL {
		t.Errorf("expected url %s, got %s", eq.URL, got.URL)
	}
}

func TestSQLiteDB_GetByID_Missing(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	got, err := db.GetByID(context.Background(), "nope")
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if got != nil {
		t.Errorf("expected nil for missing ID, got %+v", got)
	}
}

func TestSQLiteDB_Ping(t *testing.T) {
	db := setupTestDB(t)

	if err := db.Ping(context.Background()); err != nil {
		t.Fatalf("Ping failed: %v", err)
	}

	db.Close()
	if err := db.Ping(context.Background()); err == nil {
		t.Error("expected Ping to fail on a closed database")
	}
}

func TestSQLiteDB_ListEarthquakes_WithFilters(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	ctx := context.Background()
	now := time.Now()

	quakes := []*models.Earthquake{
		{ID: "eq1", Place: "a", Magnitude: 6.0, Time: now.Add(-1 * time.Hour), CreatedAt: now},
		{ID: "eq2", Place: "b", Magnitude: 4.0, Time: now.Add(-2 * time.Hour), CreatedAt: now},
		{ID: "eq3", Place: "c", Magnitude: 3.0, Time: now.Add(-72 * time.Hour), CreatedAt: now},
	}
	for _, e := range quakes {
		if _, err := db.Add(ctx, e); err != nil {
			t.Fatalf("Add failed: %v", err)
		}
	}

	results, err := db.ListEarthquakes(ctx, Filter{})
	if err != nil {
		t.Fatalf("ListEarthquakes failed: %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("expected 3 earthquakes, got %d", len(results))
	}
	if results[0].ID != "eq1" || results[2].ID != "eq3" {
		t.Errorf("expected newest first, got %s..%s", results[0].ID, results[2].ID)
	}

	minMag := 5.0
	results, err = db.ListEarthquakes(ctx, Filter{MinMagnitude: &minMag})
	if err != nil {
		t.Fatalf("ListEarthquakes failed: %v", err)
	}
	if len(results) != 1 {
		t.Errorf("expected 1 earthquake with mag >= 5.0, got %d", len(results))
	}

	since := now.Add(-24 * time.Hour)
	results, err = db.ListEarthquakes(ctx, Filter{Since: &since})
	if err != nil {
		t.Fatalf("ListEarthquakes failed: %v", err)
	}
	if len(results) != 2 {
		t.Errorf("expected 2 earthquakes in the last day, got %d", len(results))
	}

	results, err = db.ListEarthquakes(ctx, Filter{Limit: 2, Offset: 1})
	if err != nil {
		t.Fatalf("ListEarthquakes failed: %v", err)
	}
	if len(results) != 2 || results[0].ID != "eq2" {
		t.Errorf("expected eq2,eq3 page, got %+v", results)
	}
}

func TestSQLiteDB_DuplicateAdd(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	ctx := context.Background()
	eq := &models.Earthquake{
		ID:        "dup_test",
		Place:     "here",
		Time:      time.Now(),
		CreatedAt: time.Now(),
	}

	if inserted, err := db.Add(ctx, eq); err != nil || !inserted {
		t.Fatalf("First Add: inserted=%v err=%v", inserted, err)
	}

	// Second add is ignored, not an error
	inserted, err := db.Add(ctx, eq)
	if err != nil {
		t.Fatalf("duplicate Add failed: %v", err)
	}
	if inserted {
		t.Error("expected duplicate Add to report not inserted")
	}
}

func TestSQLiteDB_ConcurrentAddSameID(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	ctx := context.Background()
	var (
		wg       sync.WaitGroup
		inserted atomic.Int64
		failed   atomic.Int64
	)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := db.Add(ctx, &models.Earthquake{ID: "race", Place: "here", Time: time.Now(), CreatedAt: time.Now()})
			if err != nil {
				failed.Add(1)
			}
			if ok {
				inserted.Add(1)
			}
		}()
	}
	wg.Wait()

	if failed.Load() != 0 {
		t.Errorf("expected no errors, got %d", failed.Load())
	}
	if inserted.Load() != 1 {
		t.Errorf("expected exactly one insert, got %d", inserted.Load())
	}
}
