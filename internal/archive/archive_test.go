package archive

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/nvandessel/phsim/internal/simulation"
	"github.com/nvandessel/phsim/internal/store"
)

func seededStore(t *testing.T, n int) *store.InMemoryResultStore {
	t.Helper()
	s := store.NewInMemoryResultStore()
	base := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < n; i++ {
		_, err := s.Save(context.Background(), store.Result{
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
			Scenario:  "ai-vibe",
			NChanges:  2,
			Runs:      4,
			Seed:      uint64(i),
			Stats: simulation.Stats{
				AverageFinal:      7,
				AverageTrajectory: []float64{8, 7.5, 7},
			},
		})
		if err != nil {
			t.Fatalf("Save() error = %v", err)
		}
	}
	return s
}

func TestWriteReadRoundTrip(t *testing.T) {
	a, err := Build(context.Background(), seededStore(t, 3), map[string]string{"k": "v"})
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	var buf bytes.Buffer
	if err := Write(&buf, a); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	header, _, _ := strings.Cut(buf.String(), "\n")
	for _, want := range []string{`"result_count":3`, `"checksum":"sha256:`} {
		if !strings.Contains(header, want) {
			t.Errorf("header missing %s: %s", want, header)
		}
	}

	got, err := Read(bytes.NewReader(buf.Bytes()))
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if got.Version != PayloadVersion {
		t.Errorf("Version = %d, want %d", got.Version, PayloadVersion)
	}
	if got.Metadata["k"] != "v" {
		t.Errorf("Metadata[k] = %q, want v", got.Metadata["k"])
	}
	if len(got.Results) != 3 {
		t.Fatalf("got %d results, want 3", len(got.Results))
	}
	if traj := got.Results[0].Stats.AverageTrajectory; !slices.Equal(traj, []float64{8, 7.5, 7}) {
		t.Errorf("trajectory = %v, want [8 7.5 7]", traj)
	}
}

func TestReadDetectsCorruption(t *testing.T) {
	a, err := Build(context.Background(), seededStore(t, 1), nil)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	var buf bytes.Buffer
	if err := Write(&buf, a); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	data := buf.Bytes()
	data[len(data)-5] ^= 0xff

	_, err = Read(bytes.NewReader(data))
	if err == nil || !strings.Contains(err.Error(), "checksum mismatch") {
		t.Errorf("Read() error = %v, want checksum mismatch", err)
	}
}

func TestFileFormats(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()
	src := seededStore(t, 2)

	compressed := filepath.Join(dir, "out.json.gz")
	if _, err := Export(ctx, src, compressed, false); err != nil {
		t.Fatalf("Export(compressed) error = %v", err)
	}
	plain := filepath.Join(dir, "out.json")
	if _, err := Export(ctx, src, plain, true); err != nil {
		t.Fatalf("Export(plain) error = %v", err)
	}

	if format, err := DetectFormat(compressed); err != nil || format != FormatCompressed {
		t.Errorf("DetectFormat(compressed) = %v, %v", format, err)
	}
	if format, err := DetectFormat(plain); err != nil || format != FormatPlain {
		t.Errorf("DetectFormat(plain) = %v, %v", format, err)
	}

	if err := Verify(compressed); err != nil {
		t.Errorf("Verify(compressed) error = %v", err)
	}
	if err := Verify(plain); err == nil {
		t.Error("Verify(plain) should fail without a checksum header")
	}

	header, err := ReadHeader(compressed)
	if err != nil {
		t.Fatalf("ReadHeader() error = %v", err)
	}
	if header.ResultCount != 2 {
		t.Errorf("ResultCount = %d, want 2", header.ResultCount)
	}

	for _, path := range []string{compressed, plain} {
		a, err := ReadFile(path)
		if err != nil {
			t.Fatalf("ReadFile(%s) error = %v", path, err)
		}
		if len(a.Results) != 2 {
			t.Errorf("%s: got %d results, want 2", path, len(a.Results))
		}
	}
}

func TestImportModes(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()
	src := seededStore(t, 3)
	path := filepath.Join(dir, "a.json.gz")
	if _, err := Export(ctx, src, path, false); err != nil {
		t.Fatalf("Export() error = %v", err)
	}

	dst := store.NewInMemoryResultStore()
	steps := []struct {
		mode ImportMode
		want ImportResult
	}{
		{ImportMerge, ImportResult{Imported: 3}},
		{ImportMerge, ImportResult{Skipped: 3}},
		{ImportReplace, ImportResult{Replaced: 3}},
	}
	for i, step := range steps {
		res, err := Import(ctx, dst, path, step.mode)
		if err != nil {
			t.Fatalf("step %d: Import() error = %v", i, err)
		}
		if *res != step.want {
			t.Errorf("step %d: Import() = %+v, want %+v", i, *res, step.want)
		}
	}

	all, err := dst.All(ctx)
	if err != nil {
		t.Fatalf("All() error = %v", err)
	}
	if len(all) != 3 {
		t.Errorf("store holds %d results, want 3", len(all))
	}
}

func TestImportRejectsUnknownVersion(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.json")
	if err := os.WriteFile(path, []byte(`{"version": 9, "results": []}`), 0600); err != nil {
		t.Fatal(err)
	}

	_, err := Import(context.Background(), store.NewInMemoryResultStore(), path, ImportMerge)
	if err == nil || !strings.Contains(err.Error(), "unsupported archive version") {
		t.Errorf("Import() error = %v, want unsupported archive version", err)
	}
}

func TestParseImportMode(t *testing.T) {
	tests := []struct {
		in      string
		want    ImportMode
		wantErr bool
	}{
		{"", ImportMerge, false},
		{"replace", ImportReplace, false},
		{"overwrite", "", true},
	}
	for _, tt := range tests {
		got, err := ParseImportMode(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseImportMode(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if !tt.wantErr && got != tt.want {
			t.Errorf("ParseImportMode(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
