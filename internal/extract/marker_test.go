package extract

import (
	"errors"
	"testing"
)

func TestNewMarker(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		needle  string
		wantErr error
	}{
		{name: "default preamble", needle: DefaultPreamble},
		{name: "default header start", needle: DefaultHeaderStart},
		{name: "default header end", needle: DefaultHeaderEnd},
		{name: "default body start", needle: DefaultBodyStart},
		{name: "default body end", needle: DefaultBodyEnd},
		{name: "legacy body end", needle: LegacyBodyEnd},
		{name: "single byte", needle: "x"},
		{name: "empty", needle: "", wantErr: ErrEmptyMarker},
		{name: "repeated first byte", needle: "aab", wantErr: ErrSelfOverlapping},
		{name: "periodic", needle: "abab", wantErr: ErrSelfOverlapping},
		{name: "first byte at end", needle: "<br<", wantErr: ErrSelfOverlapping},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			m, err := NewMarker(RoleHeaderEnd, tt.needle)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if m.String() != tt.needle {
				t.Errorf("expected needle %q, got %q", tt.needle, m.String())
			}
			if m.Len() != len(tt.needle) {
				t.Errorf("expected length %d, got %d", len(tt.needle), m.Len())
			}
			if m.Role() != RoleHeaderEnd {
				t.Errorf("expected role %v, got %v", RoleHeaderEnd, m.Role())
			}
		})
	}
}

func TestMarkerFind(t *testing.T) {
	t.Parallel()

	m, err := NewMarker(RoleHeaderStart, "<strong>")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	t.Run("match inside one chunk", func(t *testing.T) {
		t.Parallel()

		matched := 0
		end, found := m.find("ab<strong>cd", &matched)
		if !found {
			t.Fatal("expected match")
		}
		if end != 10 {
			t.Errorf("expected end 10, got %d", end)
		}
		if matched != 0 {
			t.Errorf("expected offset reset to 0, got %d", matched)
		}
	})

	t.Run("match straddles chunks", func(t *testing.T) {
		t.Parallel()

		matched := 0
		if _, found := m.find("xx<str", &matched); found {
			t.Fatal("unexpected match in first chunk")
		}
		if matched != 4 {
			t.Fatalf("expected partial offset 4, got %d", matched)
		}
		end, found := m.find("ong>rest", &matched)
		if !found {
			t.Fatal("expected match in second chunk")
		}
		if end != 4 {
			t.Errorf("expected end 4, got %d", end)
		}
	})

	t.Run("mismatch resets offset", func(t *testing.T) {
		t.Parallel()

		matched := 0
		if _, found := m.find("<stro", &matched); found {
			t.Fatal("unexpected match")
		}
		if _, found := m.find("x", &matched); found {
			t.Fatal("unexpected match")
		}
		if matched != 0 {
			t.Errorf("expected offset 0 after mismatch, got %d", matched)
		}
	})

	t.Run("mismatching byte restarts the needle", func(t *testing.T) {
		t.Parallel()

		matched := 0
		end, found := m.find("<<strong>", &matched)
		if !found {
			t.Fatal("expected match after repeated first byte")
		}
		if end != 9 {
			t.Errorf("expected end 9, got %d", end)
		}
	})

	t.Run("breaking byte starts the next match across chunks", func(t *testing.T) {
		t.Parallel()

		matched := 0
		if _, found := m.find("<s<", &matched); found {
			t.Fatal("unexpected match")
		}
		if matched != 1 {
			t.Fatalf("expected offset 1 after restart, got %d", matched)
		}
		end, found := m.find("strong>", &matched)
		if !found {
			t.Fatal("expected match in second chunk")
		}
		if end != 7 {
			t.Errorf("expected end 7, got %d", end)
		}
	})

	t.Run("empty chunk keeps offset", func(t *testing.T) {
		t.Parallel()

		matched := 3
		if _, found := m.find("", &matched); found {
			t.Fatal("unexpected match")
		}
		if matched != 3 {
			t.Errorf("expected offset 3, got %d", matched)
		}
	})
}

func TestNewMarkerSet(t *testing.T) {
	t.Parallel()

	t.Run("defaults are valid", func(t *testing.T) {
		t.Parallel()

		set := DefaultMarkers()
		if set.BodyStart.String() != DefaultBodyStart || set.BodyEnd.String() != DefaultBodyEnd {
			t.Errorf("unexpected body markers %q %q", set.BodyStart, set.BodyEnd)
		}
		if set.Preamble.Role() != RolePreamble {
			t.Errorf("expected preamble role, got %v", set.Preamble.Role())
		}
	})

	t.Run("legacy markers use the table cell", func(t *testing.T) {
		t.Parallel()

		set := LegacyMarkers()
		if set.BodyStart.String() != "</span>" || set.BodyEnd.String() != "</td>" {
			t.Errorf("unexpected body markers %q %q", set.BodyStart, set.BodyEnd)
		}
	})

	t.Run("rejects invalid needle", func(t *testing.T) {
		t.Parallel()

		_, err := NewMarkerSet("start", "<b>", "</b>", "", "</i>")
		if !errors.Is(err, ErrEmptyMarker) {
			t.Errorf("expected ErrEmptyMarker, got %v", err)
		}
	})
}

func TestRoleString(t *testing.T) {
	t.Parallel()

	if RoleBodyEnd.String() != "body-end" {
		t.Errorf("expected body-end, got %q", RoleBodyEnd.String())
	}
	if Role(42).String() != "unknown" {
		t.Errorf("expected unknown, got %q", Role(42).String())
	}
}
