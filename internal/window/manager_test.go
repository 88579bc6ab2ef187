package window

import (
	"fmt"
	"testing"

	"github.com/overlate/overlate/internal/config"
)

type fakeBackend struct {
	windows []*config.WindowInfo
	offset  [2]int
	listErr error
}

func (f *fakeBackend) Connect() error { return nil }
func (f *fakeBackend) Close() error   { return nil }
func (f *fakeBackend) Name() string   { return "fake" }

func (f *fakeBackend) ListWindows() ([]*config.WindowInfo, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	out := make([]*config.WindowInfo, len(f.windows))
	copy(out, f.windows)
	return out, nil
}

func (f *fakeBackend) Bounds(id uint32) (*config.Bounds, error) {
	for _, w := range f.windows {
		if w.ID == id {
			b := w.Bounds
			return &b, nil
		}
	}
	return nil, fmt.Errorf("window %d not found", id)
}

func (f *fakeBackend) ContentOffset(id uint32) (int, int, error) {
	return f.offset[0], f.offset[1], nil
}

func testWindows() []*config.WindowInfo {
	return []*config.WindowInfo{
		{ID: 3, Title: "Terminal", Bounds: config.Bounds{Width: 800, Height: 600}},
		{ID: 1, Title: "Final Fantasy XIV", Bounds: config.Bounds{X: 100, Y: 50, Width: 1280, Height: 720}},
		{ID: 2, Title: "Firefox - Mozilla", Bounds: config.Bounds{Width: 1024, Height: 768}},
	}
}

func TestListWindowsSorted(t *testing.T) {
	m := NewManagerWithBackend(&fakeBackend{windows: testWindows()})

	windows, err := m.ListWindows()
	if err != nil {
		t.Fatalf("ListWindows: %v", err)
	}

	want := []string{"Final Fantasy XIV", "Firefox - Mozilla", "Terminal"}
	if len(windows) != len(want) {
		t.Fatalf("got %d windows, want %d", len(windows), len(want))
	}
	for i, title := range want {
		if windows[i].Title != title {
			t.Errorf("windows[%d].Title = %q, want %q", i, windows[i].Title, title)
		}
	}
}

func TestFindByTitle(t *testing.T) {
	m := NewManagerWithBackend(&fakeBackend{windows: testWindows()})

	tests := []struct {
		name   string
		query  string
		wantID uint32
		wantOK bool
	}{
		{"exact", "Final Fantasy XIV", 1, true},
		{"substring", "fantasy", 1, true},
		{"case insensitive", "TERMINAL", 3, true},
		{"no match", "chrome", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, err := m.FindByTitle(tt.query)
			if tt.wantOK {
				if err != nil {
					t.Fatalf("FindByTitle(%q): %v", tt.query, err)
				}
				if w.ID != tt.wantID {
					t.Errorf("FindByTitle(%q).ID = %d, want %d", tt.query, w.ID, tt.wantID)
				}
			} else if err == nil {
				t.Errorf("FindByTitle(%q) = %v, want error", tt.query, w)
			}
		})
	}
}

func TestFindByTitleEmpty(t *testing.T) {
	m := NewManagerWithBackend(&fakeBackend{windows: testWindows()})
	if _, err := m.FindByTitle(""); err == nil {
		t.Error("FindByTitle(\"\") should fail")
	}
}

func TestMatchByTitleFirstWins(t *testing.T) {
	windows := []*config.WindowInfo{
		{ID: 10, Title: "Editor - main.go"},
		{ID: 11, Title: "Editor - other.go"},
	}
	w := MatchByTitle(windows, "editor")
	if w == nil || w.ID != 10 {
		t.Fatalf("MatchByTitle = %+v, want first window (ID 10)", w)
	}
}

func TestParseKdotoolGeometry(t *testing.T) {
	output := "Window {1a2b3c}\n  Position: 100,200\n  Geometry: 1280x720\n"
	bounds := parseKdotoolGeometry(output)

	want := config.Bounds{X: 100, Y: 200, Width: 1280, Height: 720}
	if bounds != want {
		t.Errorf("parseKdotoolGeometry = %+v, want %+v", bounds, want)
	}
}

func TestParseKdotoolGeometryEmpty(t *testing.T) {
	bounds := parseKdotoolGeometry("")
	if bounds != (config.Bounds{}) {
		t.Errorf("parseKdotoolGeometry(\"\") = %+v, want zero bounds", bounds)
	}
}

func TestHashStringToUint32Stable(t *testing.T) {
	a := hashStringToUint32("{6f4c0e9d}")
	b := hashStringToUint32("{6f4c0e9d}")
	if a != b {
		t.Errorf("hash not stable: %d != %d", a, b)
	}
	if a == hashStringToUint32("{other}") {
		t.Error("distinct UUIDs hashed to the same ID")
	}
}

func TestApproxEqual(t *testing.T) {
	tests := []struct {
		a, b, tolerance int
		want            bool
	}{
		{1920, 1920, 50, true},
		{1900, 1920, 50, true},
		{1920, 1900, 50, true},
		{1800, 1920, 50, false},
	}
	for _, tt := range tests {
		if got := approxEqual(tt.a, tt.b, tt.tolerance); got != tt.want {
			t.Errorf("approxEqual(%d, %d, %d) = %v, want %v", tt.a, tt.b, tt.tolerance, got, tt.want)
		}
	}
}
