package grid

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func defaultGrid(t *testing.T) *Grid {
	t.Helper()
	l, err := Preset("default")
	if err != nil {
		t.Fatalf("Preset: %v", err)
	}
	g, err := New(1000, 1400, l)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return g
}

func TestPresetsValidate(t *testing.T) {
	for _, name := range PresetNames() {
		l, err := Preset(name)
		if err != nil {
			t.Fatalf("%s: %v", name, err)
		}
		if err := l.Validate(); err != nil {
			t.Errorf("%s: %v", name, err)
		}
	}
}

func TestPresetIsCopy(t *testing.T) {
	a, _ := Preset("default")
	a.CalibrationCells[0].X = 999
	a.Items.Questions = 1
	b, _ := Preset("default")
	if b.CalibrationCells[0].X == 999 || b.Items.Questions == 1 {
		t.Error("Preset returned shared state")
	}
}

func TestUnknownPreset(t *testing.T) {
	_, err := Preset("nope")
	if !errors.Is(err, ErrUnknownPreset) {
		t.Errorf("Expected ErrUnknownPreset, got %v", err)
	}
}

func TestSearchAreaStep0(t *testing.T) {
	g := defaultGrid(t)
	// default: mark center 10 units in, 5 px/unit, side 20 units
	want := Area{X: 0, Y: 0, W: 100, H: 100}
	if got := g.RegSearchArea(TopLeft, 0); got != want {
		t.Errorf("tl step 0: got %+v want %+v", got, want)
	}
	want = Area{X: 900, Y: 1300, W: 100, H: 100}
	if got := g.RegSearchArea(BottomRight, 0); got != want {
		t.Errorf("br step 0: got %+v want %+v", got, want)
	}
}

func TestSearchAreaGrowsAndClips(t *testing.T) {
	g := defaultGrid(t)
	prev := g.RegSearchArea(TopRight, 0)
	for step := 1; step < 5; step++ {
		a := g.RegSearchArea(TopRight, step)
		if a.X > prev.X || a.W < prev.W || a.H < prev.H {
			t.Errorf("step %d: %+v did not grow from %+v", step, a, prev)
		}
		if a.X+a.W > g.Width() || a.Y < 0 {
			t.Errorf("step %d: %+v not clipped to image", step, a)
		}
		if g.RegSearchSide(step) <= g.RegSearchSide(step-1) {
			t.Errorf("step %d: side did not grow", step)
		}
		prev = a
	}
}

func TestRegistrationFrame(t *testing.T) {
	g := defaultGrid(t)
	// calibration cell at (50,45) units; frame origin (10,10), 1000/180 px per unit
	a := g.CalibrationCellAreas()[0]
	if a.X != 222 || a.Y != 188 {
		t.Errorf("calibration cell at %+v", a)
	}
	if a.W <= 0 || a.H <= 0 {
		t.Errorf("empty calibration cell %+v", a)
	}
}

func TestChoiceCellsColumnMajor(t *testing.T) {
	g := defaultGrid(t)
	per := g.Layout().QuestionsPerColumn()
	if per != 5 {
		t.Fatalf("expected 5 questions per column, got %d", per)
	}
	a := g.ChoiceCellArea(0, 0)
	b := g.ChoiceCellArea(1, 0)
	c := g.ChoiceCellArea(per, 0)
	if b.Y <= a.Y || b.X != a.X {
		t.Errorf("question 1 %+v should sit below question 0 %+v", b, a)
	}
	if c.X <= a.X || c.Y != a.Y {
		t.Errorf("question %d %+v should start the next column beside %+v", per, c, a)
	}
	if g.ChoiceCellArea(0, 1).X <= a.X {
		t.Error("choice 1 should be right of choice 0")
	}
}

func TestBarcodeBitAreas(t *testing.T) {
	g := defaultGrid(t)
	areas := g.BarcodeBitAreas()
	if len(areas) != g.BarcodeBits() {
		t.Fatalf("got %d areas for %d bits", len(areas), g.BarcodeBits())
	}
	if areas[0] != g.BarcodeBitArea(1) {
		t.Error("areas[0] should be bit position 1")
	}
	for i := 1; i < len(areas); i++ {
		if areas[i].X <= areas[i-1].X {
			t.Errorf("bit %d not right of bit %d", i+1, i)
		}
		if areas[i].Y+areas[i].H > g.Height() {
			t.Errorf("bit %d outside image: %+v", i+1, areas[i])
		}
	}
}

func TestValidateRejects(t *testing.T) {
	cases := map[string]func(l *Layout){
		"no calibration": func(l *Layout) { l.CalibrationCells = nil },
		"zero questions": func(l *Layout) { l.Items.Questions = 0 },
		"max below side": func(l *Layout) { l.Registration.MaxSearchSide = 1 },
		"edge too wide":  func(l *Layout) { l.Registration.EdgeMargin = 10 },
		"too many bits":  func(l *Layout) { l.Barcode.Bits = 65 },
		"margin":         func(l *Layout) { l.Registration.Margin = 150 },
		"zero page":      func(l *Layout) { l.Page.Width = 0 },
		"ink in margin":  func(l *Layout) { l.InkBlack = Rect{X: 1, Y: 1, W: 5, H: 5} },
		"paper past end": func(l *Layout) { l.PaperWhite.X = 188 },
		"calibration":    func(l *Layout) { l.CalibrationCells[0].Y = 268 },
		"last column":    func(l *Layout) { l.Items.ColumnSpacing = 100 },
		"barcode row":    func(l *Layout) { l.Barcode.Top = 266 },
		"barcode bits":   func(l *Layout) { l.Barcode.Spacing = 12 },
	}
	for name, mutate := range cases {
		l, _ := Preset("default")
		mutate(l)
		err := l.Validate()
		if !errors.Is(err, ErrInvalidLayout) {
			t.Errorf("%s: expected ErrInvalidLayout, got %v", name, err)
		}
		var le *LayoutError
		if !errors.As(err, &le) {
			t.Errorf("%s: expected *LayoutError, got %T", name, err)
		}
	}
}

func TestValidateFrameEdges(t *testing.T) {
	l, _ := Preset("default")
	// frame is [10, 190] x [10, 270], touching its edges is fine
	l.InkBlack = Rect{X: 10, Y: 10, W: 5, H: 5}
	l.PaperWhite = Rect{X: 180, Y: 260, W: 10, H: 10}
	if err := l.Validate(); err != nil {
		t.Errorf("rectangles on the frame edge: %v", err)
	}
	l.PaperWhite.X = 180.5
	var le *LayoutError
	if err := l.Validate(); !errors.As(err, &le) || le.Field != "paper_white" {
		t.Errorf("expected paper_white LayoutError, got %v", err)
	}
}

func TestNewRejects(t *testing.T) {
	l, _ := Preset("default")
	if _, err := New(0, 100, l); err == nil {
		t.Error("Expected error for zero width")
	}
	if _, err := New(100, 100, nil); err == nil {
		t.Error("Expected error for nil layout")
	}
}

const testLayoutYAML = `
name: tiny
page: {width: 100, height: 140}
registration:
  margin: 8
  radius: 2
  search_side: 12
  search_step: 2
  edge_margin: 2.5
  max_search_side: 30
items:
  questions: 3
  choices: 2
  left: 30
  top: 40
  cell_width: 5
  cell_height: 3
  choice_spacing: 8
  row_spacing: 6
barcode: {bits: 4, left: 30, top: 125, width: 2, height: 4, spacing: 4}
calibration_cells:
  - {x: 30, y: 30, w: 5, h: 3}
ink_black: {x: 50, y: 30, w: 5, h: 3}
paper_white: {x: 60, y: 30, w: 5, h: 3}
`

func TestLoadLayoutAndResolve(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tiny.yaml")
	if err := os.WriteFile(path, []byte(testLayoutYAML), 0644); err != nil {
		t.Fatal(err)
	}
	l, err := Resolve(path)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if l.Name != "tiny" || l.Items.Questions != 3 || l.Barcode.Bits != 4 {
		t.Errorf("unexpected layout %+v", l)
	}
	if l.QuestionsPerColumn() != 3 {
		t.Errorf("columns default to 1, got %d per column", l.QuestionsPerColumn())
	}
	if _, err := Resolve("compact"); err != nil {
		t.Errorf("Resolve preset: %v", err)
	}
	if _, err := Resolve(filepath.Join(t.TempDir(), "missing.yaml")); !errors.Is(err, ErrUnknownPreset) {
		t.Errorf("Expected ErrUnknownPreset, got %v", err)
	}
}

func TestParseLayoutInvalid(t *testing.T) {
	if _, err := ParseLayout([]byte("page: [1, 2")); !errors.Is(err, ErrInvalidLayout) {
		t.Errorf("Expected ErrInvalidLayout, got %v", err)
	}
	if _, err := ParseLayout([]byte("name: empty\n")); !errors.Is(err, ErrInvalidLayout) {
		t.Errorf("Expected ErrInvalidLayout for empty layout, got %v", err)
	}
}
