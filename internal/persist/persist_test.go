package persist

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func TestWriteJSON_IndentAndOverwrite(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "daily_temperature", "lowest_temperature_date.json")

	if err := WriteJSON(path, map[string]string{"lowest_temperature_date": "first"}); err != nil {
		t.Fatalf("WriteJSON: %v", err)
	}
	if err := WriteJSON(path, map[string]string{"lowest_temperature_date": "January 1, 2024"}); err != nil {
		t.Fatalf("WriteJSON (overwrite): %v", err)
	}

	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	want := "{\n    \"lowest_temperature_date\": \"January 1, 2024\"\n}"
	if string(b) != want {
		t.Fatalf("file=%q, want %q", b, want)
	}
}

func TestWriteJSON_NoHTMLEscaping(t *testing.T) {
	t.Parallel()

	b, err := Marshal(map[string]string{"weather_advisory": "https://x.test/a.pdf?a=1&b=2"})
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	want := "{\n    \"weather_advisory\": \"https://x.test/a.pdf?a=1&b=2\"\n}"
	if string(b) != want {
		t.Fatalf("Marshal()=%q, want %q", b, want)
	}
}

func TestReadJSON_RoundTrip(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "x.json")
	in := map[string][]string{"weather_dates": {"Jan 1", "Jan 2"}}
	if err := WriteJSON(path, in); err != nil {
		t.Fatalf("WriteJSON: %v", err)
	}

	var out map[string][]string
	if err := ReadJSON(path, &out); err != nil {
		t.Fatalf("ReadJSON: %v", err)
	}
	if !reflect.DeepEqual(in, out) {
		t.Fatalf("round trip=%v, want %v", out, in)
	}

	if err := ReadJSON(filepath.Join(t.TempDir(), "missing.json"), &out); err == nil {
		t.Fatalf("expected error for missing file")
	}
}

func TestWriteJSON_UnwritableParent(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	blocker := filepath.Join(dir, "file")
	if err := os.WriteFile(blocker, []byte("x"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := WriteJSON(filepath.Join(blocker, "child.json"), "v"); err == nil {
		t.Fatalf("expected error when parent is a file")
	}
}
