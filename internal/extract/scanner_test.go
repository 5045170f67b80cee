package extract

import (
	"errors"
	"reflect"
	"strings"
	"testing"
	"unicode/utf8"
)

// collect feeds fragments through a new scanner and returns every cycle.
func collect(t *testing.T, fragments []string, opts ...Option) ([]Cycle, *Scanner) {
	t.Helper()

	sc := NewScanner(opts...)
	var cycles []Cycle
	for _, f := range fragments {
		err := sc.Feed(f, func(c Cycle) error {
			cycles = append(cycles, c)
			return nil
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	return cycles, sc
}

const boardPage = "noise Scroll to the right to read!junk" +
	"<strong>Title</strong><span>text</span>ignored</td>" +
	"<strong>22/11 4:00</strong>x<span> second &amp; last</span>tail"

func TestScannerEndToEnd(t *testing.T) {
	t.Parallel()

	stream := "noise Scroll to the right to read!junk<strong>Title</strong><span>text</span>ignored</td>next"
	cycles, sc := collect(t, []string{stream})

	want := []Cycle{{Header: "Title", Body: "text"}}
	if !reflect.DeepEqual(cycles, want) {
		t.Fatalf("expected %+v, got %+v", want, cycles)
	}
	if sc.Stage() != StageFindHeaderStart {
		t.Errorf("expected stage %v, got %v", StageFindHeaderStart, sc.Stage())
	}
	if sc.Cycles() != 1 {
		t.Errorf("expected 1 cycle, got %d", sc.Cycles())
	}
}

func TestScannerMultipleCyclesInOneFragment(t *testing.T) {
	t.Parallel()

	cycles, _ := collect(t, []string{boardPage})

	want := []Cycle{
		{Header: "Title", Body: "text"},
		{Header: "22/11 4:00", Body: " second &amp; last"},
	}
	if !reflect.DeepEqual(cycles, want) {
		t.Fatalf("expected %+v, got %+v", want, cycles)
	}
}

func TestScannerCrossFragmentEquivalence(t *testing.T) {
	t.Parallel()

	whole, _ := collect(t, []string{boardPage})
	if len(whole) != 2 {
		t.Fatalf("expected 2 cycles from whole page, got %d", len(whole))
	}

	t.Run("every two-way split", func(t *testing.T) {
		t.Parallel()

		for i := 0; i <= len(boardPage); i++ {
			got, _ := collect(t, []string{boardPage[:i], boardPage[i:]})
			if !reflect.DeepEqual(got, whole) {
				t.Fatalf("split at %d: expected %+v, got %+v", i, whole, got)
			}
		}
	})

	t.Run("every three-way split", func(t *testing.T) {
		t.Parallel()

		for i := 1; i < len(boardPage); i++ {
			for j := i; j < len(boardPage); j++ {
				got, _ := collect(t, []string{boardPage[:i], boardPage[i:j], boardPage[j:]})
				if !reflect.DeepEqual(got, whole) {
					t.Fatalf("split at %d,%d: expected %+v, got %+v", i, j, whole, got)
				}
			}
		}
	})

	t.Run("one byte per fragment", func(t *testing.T) {
		t.Parallel()

		fragments := make([]string, 0, len(boardPage))
		for i := 0; i < len(boardPage); i++ {
			fragments = append(fragments, boardPage[i:i+1])
		}
		got, _ := collect(t, fragments)
		if !reflect.DeepEqual(got, whole) {
			t.Fatalf("expected %+v, got %+v", whole, got)
		}
	})

	t.Run("fixed size fragments", func(t *testing.T) {
		t.Parallel()

		for size := 1; size <= 16; size++ {
			var fragments []string
			for i := 0; i < len(boardPage); i += size {
				fragments = append(fragments, boardPage[i:min(i+size, len(boardPage))])
			}
			got, _ := collect(t, fragments)
			if !reflect.DeepEqual(got, whole) {
				t.Fatalf("size %d: expected %+v, got %+v", size, whole, got)
			}
		}
	})
}

func TestScannerMultibyteText(t *testing.T) {
	t.Parallel()

	page := "Scroll to the right to read!<strong>日付 ☕</strong><span>こんにちは</span>"
	whole, _ := collect(t, []string{page})
	want := []Cycle{{Header: "日付 ☕", Body: "こんにちは"}}
	if !reflect.DeepEqual(whole, want) {
		t.Fatalf("expected %+v, got %+v", want, whole)
	}

	// Fragments only ever split between code points.
	for i := 0; i <= len(page); i++ {
		if i < len(page) && !utf8.RuneStart(page[i]) {
			continue
		}
		got, _ := collect(t, []string{page[:i], page[i:]})
		if !reflect.DeepEqual(got, want) {
			t.Fatalf("split at %d: expected %+v, got %+v", i, want, got)
		}
	}
}

func TestScannerCopyUntilBoundary(t *testing.T) {
	t.Parallel()

	xyz, err := NewMarker(RoleHeaderEnd, "XYZ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	tests := []struct {
		name      string
		fragments []string
		wantAcc   string
		wantRest  string
	}{
		{
			name:      "marker split after first byte",
			fragments: []string{"ab cX", "YZ more"},
			wantAcc:   "ab c",
			wantRest:  " more",
		},
		{
			name:      "marker split before last byte",
			fragments: []string{"ab cXY", "Z more"},
			wantAcc:   "ab c",
			wantRest:  " more",
		},
		{
			name:      "marker spread over three fragments",
			fragments: []string{"ab cX", "Y", "Z more"},
			wantAcc:   "ab c",
			wantRest:  " more",
		},
		{
			name:      "marker inside one fragment",
			fragments: []string{"ab cXYZ more"},
			wantAcc:   "ab c",
			wantRest:  " more",
		},
		{
			name:      "false start is kept",
			fragments: []string{"ab XY", "cXYZ"},
			wantAcc:   "ab XYc",
			wantRest:  "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			sc := NewScanner()
			sc.stage = StageFindHeaderEnd

			var (
				acc   []byte
				rest  string
				found bool
			)
			for _, f := range tt.fragments {
				rest, found = sc.copyUntil(xyz, f, &acc, StageFindBodyStart)
			}
			if !found {
				t.Fatal("expected marker to be found")
			}
			if string(acc) != tt.wantAcc {
				t.Errorf("expected accumulator %q, got %q", tt.wantAcc, string(acc))
			}
			if rest != tt.wantRest {
				t.Errorf("expected rest %q, got %q", tt.wantRest, rest)
			}
			if sc.Stage() != StageFindBodyStart {
				t.Errorf("expected stage %v, got %v", StageFindBodyStart, sc.Stage())
			}
		})
	}

	t.Run("keeps earlier accumulator content", func(t *testing.T) {
		t.Parallel()

		sc := NewScanner()
		acc := []byte("abc")
		sc.copyUntil(xyz, "ab cX", &acc, StageFindBodyStart)
		sc.copyUntil(xyz, "YZ more", &acc, StageFindBodyStart)
		if string(acc) != "abcab c" {
			t.Errorf("expected %q, got %q", "abcab c", string(acc))
		}
	})
}

func TestScannerHeaderEndAcrossFragments(t *testing.T) {
	t.Parallel()

	cycles, _ := collect(t, []string{
		"Scroll to the right to read!<strong>ab c<",
		"/str",
		"ong><span>body</span>",
	})

	want := []Cycle{{Header: "ab c", Body: "body"}}
	if !reflect.DeepEqual(cycles, want) {
		t.Fatalf("expected %+v, got %+v", want, cycles)
	}
}

func TestScannerExclusion(t *testing.T) {
	t.Parallel()

	page := "Scroll to the right to read!" +
		"<strong><a href=\"#update-board-archive\">old</a></strong><span>archived</span>" +
		"<strong>New</strong><span>fresh</span>"

	t.Run("drops excluded cycles", func(t *testing.T) {
		t.Parallel()

		cycles, sc := collect(t, []string{page})
		want := []Cycle{{Header: "New", Body: "fresh"}}
		if !reflect.DeepEqual(cycles, want) {
			t.Fatalf("expected %+v, got %+v", want, cycles)
		}
		if sc.Skipped() != 1 {
			t.Errorf("expected 1 skipped, got %d", sc.Skipped())
		}
	})

	t.Run("resumes cleanly when split", func(t *testing.T) {
		t.Parallel()

		whole, _ := collect(t, []string{page})
		for i := 0; i <= len(page); i++ {
			got, _ := collect(t, []string{page[:i], page[i:]})
			if !reflect.DeepEqual(got, whole) {
				t.Fatalf("split at %d: expected %+v, got %+v", i, whole, got)
			}
		}
	})

	t.Run("no exclusions emits everything", func(t *testing.T) {
		t.Parallel()

		cycles, _ := collect(t, []string{page}, WithExclusions())
		if len(cycles) != 2 {
			t.Fatalf("expected 2 cycles, got %d", len(cycles))
		}
	})

	t.Run("custom token", func(t *testing.T) {
		t.Parallel()

		cycles, _ := collect(t, []string{page}, WithExclusions("New"))
		if len(cycles) != 1 || cycles[0].Body != "archived" {
			t.Fatalf("expected only the archived cycle, got %+v", cycles)
		}
	})
}

func TestScannerPreambleAnchorsOnce(t *testing.T) {
	t.Parallel()

	page := "<strong>early</strong><span>x</span>" +
		"Scroll to the right to read!<strong>A</strong><span>B</span>" +
		"Scroll to the right to read!<strong>C</strong><span>D</span>"

	cycles, _ := collect(t, []string{page})
	want := []Cycle{{Header: "A", Body: "B"}, {Header: "C", Body: "D"}}
	if !reflect.DeepEqual(cycles, want) {
		t.Fatalf("expected %+v, got %+v", want, cycles)
	}
}

func TestScannerLegacyMarkers(t *testing.T) {
	t.Parallel()

	page := "<p>Scroll to the right to read!</p><table><tr>" +
		"<td><strong>22/11 4:00</strong><span class=\"sep\"> | </span> hello<br>world</td>" +
		"<td><strong>23/11 9:30</strong><span class=\"sep\"> | </span> again</td>"

	cycles, _ := collect(t, []string{page}, WithMarkers(LegacyMarkers()))
	want := []Cycle{
		{Header: "22/11 4:00", Body: " hello<br>world"},
		{Header: "23/11 9:30", Body: " again"},
	}
	if !reflect.DeepEqual(cycles, want) {
		t.Fatalf("expected %+v, got %+v", want, cycles)
	}
}

func TestScannerStep(t *testing.T) {
	t.Parallel()

	t.Run("exhausted fragment waits for input", func(t *testing.T) {
		t.Parallel()

		sc := NewScanner()
		rest, more := sc.Step("no preamble here")
		if more || rest != "" {
			t.Errorf("expected exhausted fragment, got %q %v", rest, more)
		}
		if sc.Stage() != StageFindPreamble {
			t.Errorf("expected stage %v, got %v", StageFindPreamble, sc.Stage())
		}
	})

	t.Run("match returns remainder", func(t *testing.T) {
		t.Parallel()

		sc := NewScanner()
		rest, more := sc.Step("Scroll to the right to read!<strong>")
		if !more || rest != "<strong>" {
			t.Errorf("expected remainder %q, got %q %v", "<strong>", rest, more)
		}
		if sc.Stage() != StageFindHeaderStart {
			t.Errorf("expected stage %v, got %v", StageFindHeaderStart, sc.Stage())
		}
	})

	t.Run("result available re-offers the fragment", func(t *testing.T) {
		t.Parallel()

		sc := NewScanner()
		sc.stage = StageResultAvailable
		rest, more := sc.Step("<strong>x")
		if !more || rest != "<strong>x" {
			t.Errorf("expected fragment back, got %q %v", rest, more)
		}
		if sc.Stage() != StageFindHeaderStart {
			t.Errorf("expected stage %v, got %v", StageFindHeaderStart, sc.Stage())
		}
	})
}

func TestScannerFeedError(t *testing.T) {
	t.Parallel()

	errStop := errors.New("stop")
	sc := NewScanner()

	calls := 0
	err := sc.Feed(boardPage, func(Cycle) error {
		calls++
		return errStop
	})
	if !errors.Is(err, errStop) {
		t.Fatalf("expected errStop, got %v", err)
	}
	if calls != 1 {
		t.Errorf("expected emit to be called once, got %d", calls)
	}
}

func TestScannerReset(t *testing.T) {
	t.Parallel()

	sc := NewScanner()
	if err := sc.Feed(boardPage+"<strong>half", func(Cycle) error { return nil }); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sc.Stage() != StageFindHeaderEnd {
		t.Fatalf("expected stage %v, got %v", StageFindHeaderEnd, sc.Stage())
	}

	sc.Reset()
	if sc.Stage() != StageFindPreamble || sc.Cycles() != 0 || len(sc.header) != 0 {
		t.Fatalf("expected a fresh scanner, got stage %v cycles %d header %q", sc.Stage(), sc.Cycles(), sc.header)
	}

	cycles, _ := collect(t, []string{boardPage})
	var again []Cycle
	if err := sc.Feed(boardPage, func(c Cycle) error {
		again = append(again, c)
		return nil
	}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(again, cycles) {
		t.Errorf("expected %+v after reset, got %+v", cycles, again)
	}
}

func TestStageString(t *testing.T) {
	t.Parallel()

	for s := StageFindPreamble; s <= StageResultAvailable; s++ {
		if name := s.String(); name == "" || strings.Contains(name, "unknown") {
			t.Errorf("stage %d has no name", s)
		}
	}
	if Stage(99).String() != "unknown" {
		t.Errorf("expected unknown, got %q", Stage(99).String())
	}
}
