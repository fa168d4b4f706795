package usage_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/zsprackett/ai-battery/internal/usage"
)

func TestWriteReadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "usage-data.json")
	in := usage.Snapshot{
		LastUpdated: time.Date(2026, 1, 10, 14, 30, 0, 0, time.UTC),
		Claude: usage.Claude{
			Session: usage.Bucket{PercentUsed: 91, ResetAt: "2026-01-11T01:00:00Z"},
			Weekly:  usage.Bucket{PercentUsed: 11},
		},
	}
	if err := usage.WriteFile(path, in); err != nil {
		t.Fatal(err)
	}

	out, err := usage.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if out.Claude != in.Claude {
		t.Errorf("got %+v want %+v", out.Claude, in.Claude)
	}
	if !out.LastUpdated.Equal(in.LastUpdated) {
		t.Errorf("lastUpdated: got %v", out.LastUpdated)
	}

	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Error("temp file should not remain after write")
	}

	data, _ := os.ReadFile(path)
	if !strings.Contains(string(data), "\n  \"claude\": {") {
		t.Errorf("expected pretty-printed JSON, got %s", data)
	}
}

func TestWriteFile_Overwrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "usage-data.json")
	usage.WriteFile(path, usage.Snapshot{Claude: usage.Claude{Session: usage.Bucket{PercentUsed: 10}}})
	usage.WriteFile(path, usage.Snapshot{Claude: usage.Claude{Session: usage.Bucket{PercentUsed: 20}}})

	got, err := usage.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if got.Claude.Session.PercentUsed != 20 {
		t.Errorf("got %d want 20", got.Claude.Session.PercentUsed)
	}
}

func TestReadFile_Errors(t *testing.T) {
	dir := t.TempDir()
	if _, err := usage.ReadFile(filepath.Join(dir, "missing.json")); !os.IsNotExist(err) {
		t.Errorf("missing: got %v", err)
	}

	bad := filepath.Join(dir, "bad.json")
	os.WriteFile(bad, []byte(`{"claude": `), 0644)
	if _, err := usage.ReadFile(bad); err == nil {
		t.Error("expected error for truncated file")
	}
}

func TestReadFile_MissingFieldsDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "usage-data.json")
	os.WriteFile(path, []byte(`{"lastUpdated":"2026-01-10T14:30:00Z","claude":{"weekly":{"percentUsed":40}}}`), 0644)

	got, err := usage.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if got.Claude.Session.Remaining() != 100 {
		t.Errorf("session remaining: got %d want 100", got.Claude.Session.Remaining())
	}
	if got.Claude.Weekly.Remaining() != 60 {
		t.Errorf("weekly remaining: got %d want 60", got.Claude.Weekly.Remaining())
	}
}

func TestReadFile_LastUpdatedWithoutOffset(t *testing.T) {
	path := filepath.Join(t.TempDir(), "usage-data.json")
	os.WriteFile(path, []byte(`{"lastUpdated":"2025-01-10T12:00:00.123456","claude":{"session":{"percentUsed":40}}}`), 0644)

	got, err := usage.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if got.Claude.Session.PercentUsed != 40 {
		t.Errorf("session: got %d want 40", got.Claude.Session.PercentUsed)
	}
	want := time.Date(2025, 1, 10, 12, 0, 0, 123456000, time.Local)
	if !got.LastUpdated.Equal(want) {
		t.Errorf("lastUpdated: got %v want %v", got.LastUpdated, want)
	}
}

func TestReadFile_InvalidLastUpdated(t *testing.T) {
	path := filepath.Join(t.TempDir(), "usage-data.json")
	os.WriteFile(path, []byte(`{"lastUpdated":"yesterday","claude":{}}`), 0644)
	if _, err := usage.ReadFile(path); err == nil {
		t.Error("expected error for unparseable lastUpdated")
	}
}
