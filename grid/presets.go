package grid

import (
	"errors"
	"fmt"
	"sort"
)

var ErrUnknownPreset = errors.New("unknown layout preset")

// The default sheet: 200x280 units, marks 10 units in from each edge.
// Nothing but the marks may be printed within max_search_side/2 of a mark
// center, the widest search window would otherwise pick it up.
var defaultLayout = Layout{
	Name: "default",
	Page: Size{Width: 200, Height: 280},
	Registration: RegLayout{
		Margin:        10,
		Radius:        3,
		SearchSide:    20,
		SearchStep:    4,
		EdgeMargin:    3.5,
		MaxSearchSide: 60,
	},
	Items: ItemsLayout{
		Questions:     10,
		Choices:       5,
		Columns:       2,
		Left:          50,
		Top:           60,
		CellWidth:     8,
		CellHeight:    5,
		ChoiceSpacing: 12,
		RowSpacing:    10,
		ColumnSpacing: 75,
	},
	Barcode: BarcodeLayout{
		Bits:    16,
		Left:    50,
		Top:     262,
		Width:   3,
		Height:  6,
		Spacing: 6,
	},
	CalibrationCells: []Rect{{X: 50, Y: 45, W: 8, H: 5}},
	InkBlack:         Rect{X: 100, Y: 45, W: 10, H: 5},
	PaperWhite:       Rect{X: 115, Y: 45, W: 10, H: 5},
}

var compactLayout = Layout{
	Name:         "compact",
	Page:         defaultLayout.Page,
	Registration: defaultLayout.Registration,
	Items: ItemsLayout{
		Questions:     5,
		Choices:       4,
		Columns:       1,
		Left:          50,
		Top:           70,
		CellWidth:     10,
		CellHeight:    6,
		ChoiceSpacing: 15,
		RowSpacing:    14,
	},
	Barcode: BarcodeLayout{
		Bits:    8,
		Left:    60,
		Top:     262,
		Width:   4,
		Height:  6,
		Spacing: 8,
	},
	CalibrationCells: []Rect{{X: 50, Y: 50, W: 10, H: 6}, {X: 65, Y: 50, W: 10, H: 6}},
	InkBlack:         Rect{X: 100, Y: 50, W: 10, H: 6},
	PaperWhite:       Rect{X: 115, Y: 50, W: 10, H: 6},
}

var presets = map[string]*Layout{
	defaultLayout.Name: &defaultLayout,
	compactLayout.Name: &compactLayout,
}

// Preset returns a copy of a built-in layout.
func Preset(name string) (*Layout, error) {
	l, ok := presets[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownPreset, name)
	}
	return l.Clone(), nil
}

func PresetNames() []string {
	out := make([]string, 0, len(presets))
	for name := range presets {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

func (l *Layout) Clone() *Layout {
	nl := *l
	nl.CalibrationCells = append([]Rect(nil), l.CalibrationCells...)
	return &nl
}
