// Package scan scores a bubble sheet: it registers the scan against the
// corner marks, calibrates ink shading and reads answer cells and barcode
// bits.
package scan

import (
	"fmt"
	"image"

	"github.com/brianolson/omrsheet/grid"
	"github.com/brianolson/omrsheet/internal/logger"
	"github.com/brianolson/omrsheet/raster"
	"github.com/sirupsen/logrus"
)

// Sheet is one scanned page. Registration runs once in the constructor;
// a sheet is either registered for its whole life or never.
//
// A Sheet is not safe for concurrent use. Separate sheets share nothing.
type Sheet struct {
	name string
	raw  *raster.Image
	grom *grid.Grid

	marks      [4]RegistrationMark
	registered bool
	regErr     error

	// registered image, nil unless registered
	crop *raster.Image

	cal *Thresholds

	log *logrus.Entry
}

// NewSheet registers im against layout. Errors are only returned for
// unusable input; a sheet whose marks cannot be found is returned with
// Valid() == false.
func NewSheet(im image.Image, layout *grid.Layout) (*Sheet, error) {
	if im == nil {
		return nil, ErrNilImage
	}
	raw, err := raster.FromImage(im)
	if err != nil {
		return nil, err
	}
	return newSheet("image", raw, layout)
}

// Open loads a scan from disk and registers it.
func Open(path string, layout *grid.Layout) (*Sheet, error) {
	raw, err := raster.Load(path)
	if err != nil {
		return nil, err
	}
	return newSheet(path, raw, layout)
}

// OpenNamed resolves layout as a preset name or layout file.
func OpenNamed(path, layout string) (*Sheet, error) {
	l, err := grid.Resolve(layout)
	if err != nil {
		return nil, err
	}
	return Open(path, l)
}

func newSheet(name string, raw *raster.Image, layout *grid.Layout) (*Sheet, error) {
	if layout == nil {
		return nil, fmt.Errorf("%s: %w", name, &grid.LayoutError{Field: "layout", Reason: "is nil"})
	}
	grom, err := grid.New(raw.Width(), raw.Height(), layout)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	s := &Sheet{
		name: name,
		raw:  raw,
		grom: grom,
		log: logger.WithFields(logrus.Fields{
			"sheet":  name,
			"layout": layout.Name,
		}),
	}
	s.registered = s.register()
	return s, nil
}

// Valid reports whether all four marks were found and the image registered.
func (s *Sheet) Valid() bool {
	return s.registered
}

func (s *Sheet) Name() string {
	return s.name
}

// Marks returns the registration outcome of each corner, tl tr br bl.
func (s *Sheet) Marks() [4]RegistrationMark {
	return s.marks
}

func (s *Sheet) Grid() *grid.Grid {
	return s.grom
}

// notRegistered logs and returns the error for a refused query, nil when
// the sheet is registered.
func (s *Sheet) notRegistered() error {
	if s.registered {
		return nil
	}
	err := &UnregisteredError{Marks: s.marks, Cause: s.regErr}
	fields := logrus.Fields{}
	for _, m := range s.marks {
		fields[m.Corner.String()] = m.Status.String()
	}
	s.log.WithFields(fields).Warn("unregistered sheet")
	return err
}

// Write saves the registered image with any highlights drawn on it.
func (s *Sheet) Write(path string) error {
	if err := s.notRegistered(); err != nil {
		return err
	}
	return s.crop.Write(path)
}

// WriteRaw saves the scan as loaded, plus registration highlights. It
// works on unregistered sheets.
func (s *Sheet) WriteRaw(path string) error {
	return s.raw.Write(path)
}

// Registered returns the registered image.
func (s *Sheet) Registered() (*raster.Image, error) {
	if err := s.notRegistered(); err != nil {
		return nil, err
	}
	return s.crop, nil
}

func (s *Sheet) Raw() *raster.Image {
	return s.raw
}
