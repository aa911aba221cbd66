package system

import (
	"image"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestParseProbe(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    MediaInfo
		wantErr bool
	}{
		{
			name: "format duration",
			in:   `{"streams":[{"width":1920,"height":1080}],"format":{"duration":"12.500000"}}`,
			want: MediaInfo{Width: 1920, Height: 1080, Duration: 12500 * time.Millisecond},
		},
		{
			name: "stream duration fallback",
			in:   `{"streams":[{"width":640,"height":360,"duration":"3.0"}],"format":{}}`,
			want: MediaInfo{Width: 640, Height: 360, Duration: 3 * time.Second},
		},
		{
			name: "still image",
			in:   `{"streams":[{"width":800,"height":600}],"format":{"duration":"N/A"}}`,
			want: MediaInfo{Width: 800, Height: 600},
		},
		{name: "no stream", in: `{"streams":[],"format":{}}`, wantErr: true},
		{name: "garbage", in: `nope`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseProbe([]byte(tt.in))
			if tt.wantErr {
				if err == nil {
					t.Errorf("expected error, got %+v", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestFindLatestMedia(t *testing.T) {
	dir := t.TempDir()
	old := filepath.Join(dir, "old.png")
	newest := filepath.Join(dir, "new.mp4")
	ignored := filepath.Join(dir, "notes.txt")
	for _, p := range []string{old, newest, ignored} {
		if err := os.WriteFile(p, []byte("x"), 0644); err != nil {
			t.Fatal(err)
		}
	}
	past := time.Now().Add(-time.Hour)
	os.Chtimes(old, past, past)
	future := time.Now().Add(time.Hour)
	os.Chtimes(ignored, future, future)

	got, err := FindLatestMedia(dir, SceneExtensions)
	if err != nil {
		t.Fatalf("FindLatestMedia: %v", err)
	}
	if got != newest {
		t.Errorf("got %s, want %s", got, newest)
	}

	if _, err := FindLatestMedia(dir, []string{".pdf"}); err == nil {
		t.Error("expected error for a directory without PDFs")
	}
}

func TestImagePool(t *testing.T) {
	pool := NewImagePool()
	r := image.Rect(0, 0, 4, 4)

	img := pool.Get(r)
	img.Pix[0] = 200
	pool.Put(img)

	again := pool.Get(r)
	if again.Rect != r {
		t.Fatalf("rect = %v, want %v", again.Rect, r)
	}
	if again.Pix[0] != 0 {
		t.Errorf("pooled image must be cleared, got %d", again.Pix[0])
	}

	// unknown sizes are dropped silently
	pool.Put(image.NewRGBA(image.Rect(0, 0, 9, 9)))

	if gets, allocs := pool.Stats(); gets != 2 || allocs < 1 {
		t.Errorf("stats = %d gets, %d allocs", gets, allocs)
	}
}

func TestReport(t *testing.T) {
	r := Report("dev", 2*time.Second, 60, []Stage{{Name: "Compose", Duration: time.Second}}, Usage{ProcessRSS: 1 << 20, LayerGets: 10, LayerAllocs: 2})
	for _, want := range []string{"Warp layers: 10 (allocated 2)", "PERFORMANCE REPORT", "Build: dev", "Compose: 1.00s", "Effective FPS: 30.00", "Process RSS: 1.0 MiB"} {
		if !strings.Contains(r, want) {
			t.Errorf("report misses %q:\n%s", want, r)
		}
	}
}
