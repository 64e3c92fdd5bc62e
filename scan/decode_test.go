package scan

import (
	"errors"
	"image/color"
	"math"
	"reflect"
	"testing"

	"github.com/brianolson/omrsheet/draw"
	"github.com/brianolson/omrsheet/grid"
)

func TestThresholds(t *testing.T) {
	l := defaultLayout(t)
	s := newTestSheet(t, l, renderSheet(t, l, draw.Fill{}))
	th, err := s.Thresholds()
	if err != nil {
		t.Fatalf("Thresholds: %v", err)
	}
	if th.InkBlack > 40 {
		t.Errorf("ink black %f", th.InkBlack)
	}
	if th.PaperWhite < 230 {
		t.Errorf("paper white %f", th.PaperWhite)
	}
	if len(th.CalibrationMeans) != 1 {
		t.Fatalf("calibration means %v", th.CalibrationMeans)
	}
	if got := (th.PaperWhite + th.InkBlack) / 2; th.Barcode != got {
		t.Errorf("barcode threshold %f, expected %f", th.Barcode, got)
	}
	want := (th.CalibrationMeans[0]-th.InkBlack)*ChoiceThresholdFraction + th.InkBlack
	if math.Abs(th.Choice-want) > 1e-9 {
		t.Errorf("choice threshold %f, expected %f", th.Choice, want)
	}
	if th.Choice <= th.InkBlack || th.Choice >= draw.DefaultCalibrationShade+30 {
		t.Errorf("choice threshold %f out of the expected band", th.Choice)
	}

	// copies, not the memo
	th.CalibrationMeans[0] = -1
	again, _ := s.Thresholds()
	if again.CalibrationMeans[0] == -1 {
		t.Error("Thresholds leaked its calibration slice")
	}
}

func TestSolidInkCalibrationCell(t *testing.T) {
	l := defaultLayout(t)
	fill := draw.Fill{Answers: [][]int{{2}}, CalibrationShade: draw.Shade(0)}
	s := newTestSheet(t, l, renderSheet(t, l, fill))
	th, err := s.Thresholds()
	if err != nil {
		t.Fatalf("Thresholds: %v", err)
	}
	// the threshold sits just above ink black
	if d := th.Choice - th.InkBlack; d > 5 {
		t.Errorf("choice threshold %f is %f above ink black", th.Choice, d)
	}
	got, err := s.MarkArray(FirstQuestions(1))
	if err != nil {
		t.Fatalf("MarkArray: %v", err)
	}
	if !reflect.DeepEqual(got, [][]int{{2}}) {
		t.Errorf("first question = %v, expected [[2]]", got)
	}
}

func TestCalibrationMemoized(t *testing.T) {
	l := defaultLayout(t)
	s := newTestSheet(t, l, renderSheet(t, l, draw.Fill{Answers: [][]int{{1}}}))
	if s.cal != nil {
		t.Fatal("calibrated before any query")
	}
	a, err := s.MarkArray(AllQuestions())
	if err != nil {
		t.Fatalf("MarkArray: %v", err)
	}
	cal := s.cal
	if cal == nil {
		t.Fatal("MarkArray did not calibrate")
	}
	b, _ := s.MarkArray(AllQuestions())
	if _, err := s.Barcode(); err != nil {
		t.Fatalf("Barcode: %v", err)
	}
	if s.cal != cal {
		t.Error("calibration recomputed")
	}
	if !reflect.DeepEqual(a, b) {
		t.Errorf("repeated MarkArray differs: %v vs %v", a, b)
	}
	s1, _ := s.ShadeOf(0, 1)
	s2, _ := s.ShadeOf(0, 1)
	if s1 != s2 {
		t.Errorf("ShadeOf not stable: %f %f", s1, s2)
	}
}

func TestMarkedAtThreshold(t *testing.T) {
	l := defaultLayout(t)
	s := newTestSheet(t, l, renderSheet(t, l, draw.Fill{}))
	th := s.calibrate().Choice
	if !s.marked(th - 1e-6) {
		t.Error("shade just under threshold not marked")
	}
	if s.marked(th) {
		t.Error("shade equal to threshold marked")
	}
	if s.marked(th + 1) {
		t.Error("shade over threshold marked")
	}
}

func TestDarkerNeverLessMarked(t *testing.T) {
	l := defaultLayout(t)
	im := renderSheet(t, l, draw.Fill{})
	// question 0 gets lighter choice by choice
	shades := []uint8{0, 30, 120, 200, 255}
	for c, v := range shades {
		paint(t, im, l, 0, c, v)
	}
	s := newTestSheet(t, l, im)
	prevShade := -1.0
	prevMarked := true
	for c := range shades {
		shade, err := s.ShadeOf(0, c)
		if err != nil {
			t.Fatalf("ShadeOf: %v", err)
		}
		if shade < prevShade {
			t.Errorf("choice %d shade %f darker than choice %d", c, shade, c-1)
		}
		m, _ := s.Marked(0, c)
		if m && !prevMarked {
			t.Errorf("choice %d marked but darker choice %d was not", c, c-1)
		}
		prevShade, prevMarked = shade, m
	}
	got, _ := s.MarkArray(Questions(0))
	if !reflect.DeepEqual(got, [][]int{{0, 1}}) {
		t.Errorf("marks %v, expected [[0 1]]", got)
	}
}

func TestMarkArrayMatchesLogical(t *testing.T) {
	l := defaultLayout(t)
	answers := [][]int{{}, {1}, {0, 2}, {}, {3, 4}}
	s := newTestSheet(t, l, renderSheet(t, l, draw.Fill{Answers: answers}))
	for _, r := range []QuestionRange{AllQuestions(), FirstQuestions(5), Questions(4, 2, 2)} {
		logical, err := s.MarkLogicalArray(r)
		if err != nil {
			t.Fatalf("MarkLogicalArray: %v", err)
		}
		marks, err := s.MarkArray(r)
		if err != nil {
			t.Fatalf("MarkArray: %v", err)
		}
		if len(logical) != len(marks) {
			t.Fatalf("length %d vs %d", len(logical), len(marks))
		}
		for q := range logical {
			if len(logical[q]) != l.Items.Choices {
				t.Errorf("row %d has %d choices", q, len(logical[q]))
			}
			var want []int
			for c, m := range logical[q] {
				if m {
					want = append(want, c)
				}
				single, _ := s.Marked(qIndex(r, q), c)
				if single != m {
					t.Errorf("Marked(%d,%d)=%v, logical says %v", qIndex(r, q), c, single, m)
				}
			}
			if len(want) != len(marks[q]) || (len(want) > 0 && !reflect.DeepEqual(want, marks[q])) {
				t.Errorf("row %d: marks %v, logical %v", q, marks[q], logical[q])
			}
		}
	}
	got, _ := s.MarkArray(Questions(4, 2, 2))
	if !reflect.DeepEqual(got, [][]int{{3, 4}, {0, 2}, {0, 2}}) {
		t.Errorf("listed questions %v", got)
	}
}

func qIndex(r QuestionRange, i int) int {
	if r.kind == rangeList {
		return r.list[i]
	}
	return i
}

func TestQuestionRanges(t *testing.T) {
	l := defaultLayout(t)
	s := newTestSheet(t, l, renderSheet(t, l, draw.Fill{}))

	none, err := s.MarkArray(FirstQuestions(0))
	if err != nil || len(none) != 0 {
		t.Errorf("FirstQuestions(0): %v %v", none, err)
	}
	all, err := s.MarkArray(FirstQuestions(10))
	if err != nil || len(all) != 10 {
		t.Errorf("FirstQuestions(10): %d rows %v", len(all), err)
	}
	zero, err := s.MarkArray(QuestionRange{})
	if err != nil || len(zero) != 10 {
		t.Errorf("zero range: %d rows %v", len(zero), err)
	}

	bad := []QuestionRange{FirstQuestions(11), FirstQuestions(-1), Questions(10), Questions(0, -1)}
	for _, r := range bad {
		_, err := s.MarkArray(r)
		var re *RangeError
		if !errors.Is(err, ErrInvalidRange) || !errors.As(err, &re) {
			t.Errorf("%+v: expected RangeError, got %v", r, err)
		}
	}
	if _, err := s.Marked(0, 5); !errors.Is(err, ErrInvalidRange) {
		t.Errorf("choice 5: %v", err)
	}
	if _, err := s.ShadeOf(10, 0); !errors.Is(err, ErrInvalidRange) {
		t.Errorf("question 10: %v", err)
	}
	if err := s.Outline([][]int{{7}}); !errors.Is(err, ErrInvalidRange) {
		t.Errorf("Outline choice 7: %v", err)
	}
}

func TestBarcodeValues(t *testing.T) {
	l := defaultLayout(t)
	for _, v := range []uint64{0, 1, 0x8000, 0xFFFF, 0x1234} {
		s := newTestSheet(t, l, renderSheet(t, l, draw.Fill{Barcode: v}))
		str, err := s.BarcodeString()
		if err != nil {
			t.Fatalf("BarcodeString: %v", err)
		}
		if len(str) != l.Barcode.Bits {
			t.Errorf("%#x: string length %d", v, len(str))
		}
		got, err := s.Barcode()
		if err != nil || got != v {
			t.Errorf("barcode %#x, expected %#x (%v)", got, v, err)
		}
	}
}

func TestBarcodePositionOneIsLeastSignificant(t *testing.T) {
	l := defaultLayout(t)
	s := newTestSheet(t, l, renderSheet(t, l, draw.Fill{Barcode: 1}))
	str, _ := s.BarcodeString()
	if str != "0000000000000001" {
		t.Errorf("bit 1 only: %q", str)
	}
}

func TestHighlightsLeaveShadesAlone(t *testing.T) {
	l := defaultLayout(t)
	s := newTestSheet(t, l, renderSheet(t, l, draw.Fill{Answers: [][]int{{2}, {1}}, Barcode: 5}))
	before, _ := s.ShadeOf(0, 2)
	for name, f := range map[string]func() error{
		"all":     s.HighlightAll,
		"marked":  s.HighlightMarked,
		"barcode": s.HighlightBarcode,
		"regarea": s.HighlightRegArea,
		"outline": func() error { return s.Outline([][]int{{0, 1}, {4}}) },
	} {
		if err := f(); err != nil {
			t.Errorf("%s: %v", name, err)
		}
	}
	after, _ := s.ShadeOf(0, 2)
	if before != after {
		t.Errorf("highlight changed shade %f -> %f", before, after)
	}
	reg, err := s.Registered()
	if err != nil {
		t.Fatalf("Registered: %v", err)
	}
	if !reg.HasOverlay() || !s.Raw().HasOverlay() {
		t.Error("expected overlays on registered and raw images")
	}
	// highlight colors blend over gray, the pixel must no longer be gray
	a := s.Grid().ChoiceCellArea(0, 2)
	c := reg.Composite().At(a.X+a.W/2, a.Y+a.H/2)
	r, g, b, _ := c.RGBA()
	if r == g && g == b {
		t.Errorf("marked cell not highlighted: %v", c)
	}
}

func TestDebugImages(t *testing.T) {
	l := defaultLayout(t)
	green := color.NRGBA{0, 255, 0, 255}
	countGreen := func(s *Sheet) int {
		im, err := s.CellsDebugImage()
		if err != nil {
			t.Fatalf("CellsDebugImage: %v", err)
		}
		n := 0
		for y := im.Rect.Min.Y; y < im.Rect.Max.Y; y++ {
			for x := im.Rect.Min.X; x < im.Rect.Max.X; x++ {
				if im.NRGBAAt(x, y) == green {
					n++
				}
			}
		}
		return n
	}
	blank := newTestSheet(t, l, renderSheet(t, l, draw.Fill{}))
	if n := countGreen(blank); n != 0 {
		t.Errorf("blank sheet has %d green pixels", n)
	}
	marked := newTestSheet(t, l, renderSheet(t, l, draw.Fill{Answers: [][]int{{2}}}))
	if n := countGreen(marked); n == 0 {
		t.Error("marked cell has no bar")
	}

	reg := marked.RegistrationDebugImage()
	side := 0
	for _, m := range marked.Marks() {
		if m.Area.W > side {
			side = m.Area.W
		}
	}
	if reg.Rect.Dx() != 4*side+3 || reg.Rect.Dy() != 2*side+1 {
		t.Errorf("registration debug image %v, window side %d", reg.Rect, side)
	}

	missing := newTestSheet(t, l, renderSheet(t, l, draw.Fill{SkipMarks: []grid.Corner{grid.BottomRight}}))
	if missing.RegistrationDebugImage() == nil {
		t.Error("no debug image for unregistered sheet")
	}
}
