// Package grid maps a sheet layout description onto pixel coordinates.
//
// Layout coordinates are in arbitrary page units (usually mm) with the
// origin at the top left of the printed page. A Grid binds a Layout to the
// pixel size of one scan.
package grid

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

var ErrInvalidLayout = errors.New("invalid layout")

// LayoutError names the offending field of a Layout.
type LayoutError struct {
	Field  string
	Reason string
}

func (le *LayoutError) Error() string {
	return fmt.Sprintf("invalid layout: %s %s", le.Field, le.Reason)
}

func (le *LayoutError) Unwrap() error {
	return ErrInvalidLayout
}

// Rect is [x, y, w, h] in page units.
type Rect struct {
	X float64 `yaml:"x"`
	Y float64 `yaml:"y"`
	W float64 `yaml:"w"`
	H float64 `yaml:"h"`
}

type Size struct {
	Width  float64 `yaml:"width"`
	Height float64 `yaml:"height"`
}

// RegLayout places the four corner registration marks and controls the
// search for them.
type RegLayout struct {
	// Margin is the distance from each page edge to a mark center.
	Margin float64 `yaml:"margin"`
	// Radius is half the side of a square mark.
	Radius float64 `yaml:"radius"`
	// SearchSide is the side of the search window at step 0.
	SearchSide float64 `yaml:"search_side"`
	// SearchStep is added to the window side at every expansion step.
	SearchStep float64 `yaml:"search_step"`
	// EdgeMargin rejects centroids this close to the window boundary.
	// Keep it above Radius so a mark cut by the window is never accepted.
	EdgeMargin float64 `yaml:"edge_margin"`
	// MaxSearchSide ends the search once the window side exceeds it.
	MaxSearchSide float64 `yaml:"max_search_side"`
}

// ItemsLayout is the question/choice cell matrix. Questions fill column
// by column, top to bottom.
type ItemsLayout struct {
	Questions     int     `yaml:"questions"`
	Choices       int     `yaml:"choices"`
	Columns       int     `yaml:"columns"`
	Left          float64 `yaml:"left"`
	Top           float64 `yaml:"top"`
	CellWidth     float64 `yaml:"cell_width"`
	CellHeight    float64 `yaml:"cell_height"`
	ChoiceSpacing float64 `yaml:"choice_spacing"`
	RowSpacing    float64 `yaml:"row_spacing"`
	ColumnSpacing float64 `yaml:"column_spacing"`
}

// BarcodeLayout is a horizontal row of bit cells. Bit position 1 is the
// leftmost cell and the least significant bit.
type BarcodeLayout struct {
	Bits    int     `yaml:"bits"`
	Left    float64 `yaml:"left"`
	Top     float64 `yaml:"top"`
	Width   float64 `yaml:"width"`
	Height  float64 `yaml:"height"`
	Spacing float64 `yaml:"spacing"`
}

type Layout struct {
	Name             string        `yaml:"name"`
	Page             Size          `yaml:"page"`
	Registration     RegLayout     `yaml:"registration"`
	Items            ItemsLayout   `yaml:"items"`
	Barcode          BarcodeLayout `yaml:"barcode"`
	CalibrationCells []Rect        `yaml:"calibration_cells"`
	InkBlack         Rect          `yaml:"ink_black"`
	PaperWhite       Rect          `yaml:"paper_white"`
}

// ParseLayout reads YAML (or JSON, which YAML accepts) and validates it.
func ParseLayout(data []byte) (*Layout, error) {
	var l Layout
	if err := yaml.Unmarshal(data, &l); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidLayout, err)
	}
	if err := l.Validate(); err != nil {
		return nil, err
	}
	return &l, nil
}

func LoadLayout(path string) (*Layout, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	l, err := ParseLayout(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return l, nil
}

// Resolve returns the preset called nameOrPath, or loads it as a file.
func Resolve(nameOrPath string) (*Layout, error) {
	if l, err := Preset(nameOrPath); err == nil {
		return l, nil
	}
	if _, err := os.Stat(nameOrPath); err != nil {
		return nil, fmt.Errorf("%w: %q", ErrUnknownPreset, nameOrPath)
	}
	return LoadLayout(nameOrPath)
}

func (l *Layout) Marshal() ([]byte, error) {
	return yaml.Marshal(l)
}

func positive(field string, v float64) error {
	if v <= 0 {
		return &LayoutError{field, fmt.Sprintf("must be > 0, got %g", v)}
	}
	return nil
}

func (l *Layout) Validate() error {
	checks := []struct {
		field string
		v     float64
	}{
		{"page.width", l.Page.Width},
		{"page.height", l.Page.Height},
		{"registration.margin", l.Registration.Margin},
		{"registration.radius", l.Registration.Radius},
		{"registration.search_side", l.Registration.SearchSide},
		{"registration.search_step", l.Registration.SearchStep},
		{"registration.max_search_side", l.Registration.MaxSearchSide},
		{"items.cell_width", l.Items.CellWidth},
		{"items.cell_height", l.Items.CellHeight},
		{"ink_black.w", l.InkBlack.W},
		{"ink_black.h", l.InkBlack.H},
		{"paper_white.w", l.PaperWhite.W},
		{"paper_white.h", l.PaperWhite.H},
	}
	for _, c := range checks {
		if err := positive(c.field, c.v); err != nil {
			return err
		}
	}
	reg := l.Registration
	if 2*reg.Margin >= l.Page.Width || 2*reg.Margin >= l.Page.Height {
		return &LayoutError{"registration.margin", "leaves no room between marks"}
	}
	if reg.MaxSearchSide < reg.SearchSide {
		return &LayoutError{"registration.max_search_side", "is smaller than search_side"}
	}
	if reg.EdgeMargin < 0 || 2*reg.EdgeMargin >= reg.SearchSide {
		return &LayoutError{"registration.edge_margin", "must be >= 0 and under half of search_side"}
	}
	if l.Items.Questions <= 0 {
		return &LayoutError{"items.questions", "must be > 0"}
	}
	if l.Items.Choices <= 0 {
		return &LayoutError{"items.choices", "must be > 0"}
	}
	if l.Items.Columns < 0 {
		return &LayoutError{"items.columns", "must be >= 0"}
	}
	if l.Barcode.Bits < 0 || l.Barcode.Bits > 64 {
		return &LayoutError{"barcode.bits", "must be within 0..64"}
	}
	if l.Barcode.Bits > 0 {
		if err := positive("barcode.width", l.Barcode.Width); err != nil {
			return err
		}
		if err := positive("barcode.height", l.Barcode.Height); err != nil {
			return err
		}
	}
	if len(l.CalibrationCells) == 0 {
		return &LayoutError{"calibration_cells", "needs at least one cell"}
	}
	for i, c := range l.CalibrationCells {
		if c.W <= 0 || c.H <= 0 {
			return &LayoutError{fmt.Sprintf("calibration_cells[%d]", i), "has empty size"}
		}
	}
	return l.validatePositions()
}

// validatePositions requires every measured rectangle to lie inside the
// registered frame, the page area between the mark centers.
func (l *Layout) validatePositions() error {
	if err := l.inFrame("ink_black", l.InkBlack); err != nil {
		return err
	}
	if err := l.inFrame("paper_white", l.PaperWhite); err != nil {
		return err
	}
	for i, c := range l.CalibrationCells {
		if err := l.inFrame(fmt.Sprintf("calibration_cells[%d]", i), c); err != nil {
			return err
		}
	}
	for q := 0; q < l.Items.Questions; q++ {
		for c := 0; c < l.Items.Choices; c++ {
			if err := l.inFrame(fmt.Sprintf("items q=%d c=%d", q, c), l.ChoiceCellRect(q, c)); err != nil {
				return err
			}
		}
	}
	for bit := 1; bit <= l.Barcode.Bits; bit++ {
		if err := l.inFrame(fmt.Sprintf("barcode bit %d", bit), l.BarcodeBitRect(bit)); err != nil {
			return err
		}
	}
	return nil
}

func (l *Layout) inFrame(field string, r Rect) error {
	m := l.Registration.Margin
	if r.X < m || r.Y < m || r.X+r.W > l.Page.Width-m || r.Y+r.H > l.Page.Height-m {
		return &LayoutError{field, fmt.Sprintf("[%g %g %g %g] is outside the registered frame", r.X, r.Y, r.W, r.H)}
	}
	return nil
}

func (l *Layout) columns() int {
	if l.Items.Columns < 1 {
		return 1
	}
	return l.Items.Columns
}

func (l *Layout) QuestionsPerColumn() int {
	cols := l.columns()
	return (l.Items.Questions + cols - 1) / cols
}

// ChoiceCellRect is the page rectangle of choice c of question q, both 0-based.
func (l *Layout) ChoiceCellRect(q, c int) Rect {
	per := l.QuestionsPerColumn()
	col := q / per
	row := q % per
	it := l.Items
	return Rect{
		X: it.Left + float64(col)*it.ColumnSpacing + float64(c)*it.ChoiceSpacing,
		Y: it.Top + float64(row)*it.RowSpacing,
		W: it.CellWidth,
		H: it.CellHeight,
	}
}

// BarcodeBitRect takes a 1-based bit position.
func (l *Layout) BarcodeBitRect(bit int) Rect {
	b := l.Barcode
	return Rect{
		X: b.Left + float64(bit-1)*b.Spacing,
		Y: b.Top,
		W: b.Width,
		H: b.Height,
	}
}

// MarkCenter is the nominal center of a registration mark in page units.
func (l *Layout) MarkCenter(c Corner) (x, y float64) {
	m := l.Registration.Margin
	switch c {
	case TopRight:
		return l.Page.Width - m, m
	case BottomRight:
		return l.Page.Width - m, l.Page.Height - m
	case BottomLeft:
		return m, l.Page.Height - m
	default:
		return m, m
	}
}

func (l *Layout) MarkRect(c Corner) Rect {
	x, y := l.MarkCenter(c)
	r := l.Registration.Radius
	return Rect{X: x - r, Y: y - r, W: 2 * r, H: 2 * r}
}
