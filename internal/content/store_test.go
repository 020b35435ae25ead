package content

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/roach88/nodeflow/internal/packet"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "content.db")
	s, err := Open(path, WithNow(func() int64 { return 1000 }))
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestOpen_CreatesNewDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "content.db")

	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	defer s.Close()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Error("database file was not created")
	}
}

func TestOpen_Idempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "content.db")

	for i := 0; i < 3; i++ {
		s, err := Open(path)
		if err != nil {
			t.Fatalf("Open() iteration %d failed: %v", i, err)
		}
		s.Close()
	}
}

func TestOpen_AppliesPragmas(t *testing.T) {
	s := openTestStore(t)

	if err := s.verifyPragma("journal_mode", "wal"); err != nil {
		t.Error(err)
	}
	if err := s.verifyPragma("foreign_keys", "1"); err != nil {
		t.Error(err)
	}
}

func TestOpen_SetsSchemaVersion(t *testing.T) {
	s := openTestStore(t)

	var version int
	if err := s.db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		t.Fatalf("query user_version: %v", err)
	}
	if version != currentSchemaVersion {
		t.Errorf("user_version = %d, expected %d", version, currentSchemaVersion)
	}
}

func TestPutGet_RoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	data := []byte("offloaded payload bytes")

	ref, err := s.Put(ctx, packet.KindText, data)
	if err != nil {
		t.Fatalf("Put() failed: %v", err)
	}
	if ref.Size != int64(len(data)) {
		t.Errorf("ref.Size = %d, expected %d", ref.Size, len(data))
	}
	wantPath := refPrefix + packet.ContentID(data)
	if ref.Path != wantPath {
		t.Errorf("ref.Path = %q, expected %q", ref.Path, wantPath)
	}

	got, err := s.Get(ctx, ref.Path)
	if err != nil {
		t.Fatalf("Get() failed: %v", err)
	}
	if !bytes.Equal(got, data) {
		t.Errorf("Get() = %q, expected %q", got, data)
	}

	// Bare id works the same as the ref path.
	got, err = s.Get(ctx, packet.ContentID(data))
	if err != nil {
		t.Fatalf("Get() by id failed: %v", err)
	}
	if !bytes.Equal(got, data) {
		t.Errorf("Get() by id = %q, expected %q", got, data)
	}
}

func TestPut_IdenticalContentStoresOnce(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	data := []byte("same bytes")

	ref1, err := s.Put(ctx, packet.KindText, data)
	if err != nil {
		t.Fatalf("first Put() failed: %v", err)
	}
	ref2, err := s.Put(ctx, packet.KindFile, data)
	if err != nil {
		t.Fatalf("second Put() failed: %v", err)
	}
	if ref1 != ref2 {
		t.Errorf("refs differ for identical content: %v vs %v", ref1, ref2)
	}

	st, err := s.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats() failed: %v", err)
	}
	if st.Blobs != 1 {
		t.Errorf("Blobs = %d, expected 1", st.Blobs)
	}
	if st.TotalSize != int64(len(data)) {
		t.Errorf("TotalSize = %d, expected %d", st.TotalSize, len(data))
	}
}

func TestGet_NotFound(t *testing.T) {
	s := openTestStore(t)

	_, err := s.Get(context.Background(), "deadbeef")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Get() error = %v, expected ErrNotFound", err)
	}
}

func TestHas(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	ok, err := s.Has(ctx, "deadbeef")
	if err != nil {
		t.Fatalf("Has() failed: %v", err)
	}
	if ok {
		t.Error("Has() = true for missing blob")
	}

	ref, err := s.Put(ctx, packet.KindImage, []byte("pixels"))
	if err != nil {
		t.Fatalf("Put() failed: %v", err)
	}
	ok, err = s.Has(ctx, ref.Path)
	if err != nil {
		t.Fatalf("Has() failed: %v", err)
	}
	if !ok {
		t.Error("Has() = false for stored blob")
	}
}

func TestPut_SurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "content.db")
	ctx := context.Background()
	data := []byte("durable")

	s1, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	ref, err := s1.Put(ctx, packet.KindText, data)
	if err != nil {
		t.Fatalf("Put() failed: %v", err)
	}
	s1.Close()

	s2, err := Open(path)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer s2.Close()

	got, err := s2.Get(ctx, ref.Path)
	if err != nil {
		t.Fatalf("Get() after reopen failed: %v", err)
	}
	if !bytes.Equal(got, data) {
		t.Errorf("Get() = %q, expected %q", got, data)
	}
}
