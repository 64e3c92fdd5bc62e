package scan

import (
	"github.com/brianolson/omrsheet/grid"
	"github.com/brianolson/omrsheet/patch"
	"github.com/brianolson/omrsheet/raster"
	"github.com/sirupsen/logrus"
)

type MarkStatus int

const (
	MarkSearching MarkStatus = iota
	MarkOK
	// MarkEdgy: a dark region was found touching the search window edge,
	// probably a mark cut off by the window.
	MarkEdgy
	MarkInsufficientContrast
	// MarkSearchExhausted: hit maxSearchAttempts before the window
	// outgrew the layout's maximum.
	MarkSearchExhausted
)

func (ms MarkStatus) String() string {
	switch ms {
	case MarkSearching:
		return "searching"
	case MarkOK:
		return "ok"
	case MarkEdgy:
		return "edgy"
	case MarkInsufficientContrast:
		return "insufficient_contrast"
	case MarkSearchExhausted:
		return "search_exhausted"
	default:
		return "unknown"
	}
}

func (ms MarkStatus) MarshalText() ([]byte, error) {
	return []byte(ms.String()), nil
}

// RegistrationMark is the search outcome for one corner. X, Y are in raw
// scan pixels and only meaningful when Status is MarkOK.
type RegistrationMark struct {
	Corner grid.Corner `json:"corner"`
	Status MarkStatus  `json:"status"`
	X      float64     `json:"x"`
	Y      float64     `json:"y"`
	// Area is the last window searched.
	Area grid.Area `json:"area"`
	// Attempts counts windows searched, 1 when found at step 0.
	Attempts int `json:"attempts"`
}

func (m RegistrationMark) OK() bool {
	return m.Status == MarkOK
}

// hard cap on expansion steps per corner
const maxSearchAttempts = 1000

// register finds the four marks and, if all are found, stretches the raw
// image so the mark centers land on its corners. The registered image has
// the raw image's size.
func (s *Sheet) register() bool {
	for i, corner := range grid.Corners {
		s.marks[i] = s.regCentroidOn(corner)
	}
	for _, m := range s.marks {
		if !m.OK() {
			s.log.WithFields(logrus.Fields{
				"corner":   m.Corner.String(),
				"status":   m.Status.String(),
				"attempts": m.Attempts,
			}).Info("registration failed")
			return false
		}
	}
	var src [4]raster.Point
	for i, m := range s.marks {
		src[i] = raster.Point{X: m.X, Y: m.Y}
	}
	crop, err := s.raw.Stretch(src, s.raw.Width(), s.raw.Height())
	if err != nil {
		s.regErr = err
		s.log.WithError(err).Info("registration stretch failed")
		return false
	}
	s.crop = crop
	return true
}

// regCentroidOn searches for one corner mark, widening the window one step
// at a time until a mark is found clear of the window edge or the window
// outgrows the layout maximum.
func (s *Sheet) regCentroidOn(corner grid.Corner) RegistrationMark {
	m := RegistrationMark{Corner: corner, Status: MarkSearching}
	ex, ey := s.grom.RegEdgeMargin()
	maxSide := s.grom.RegMaxSearchSide()
	for step := 0; step < maxSearchAttempts; step++ {
		area := s.grom.RegSearchArea(corner, step)
		m.Area = area
		m.Attempts = step + 1
		cx, cy, found := patch.DarkCentroid(s.raw.Gray(), area.Rect())
		switch {
		case !found:
			m.Status = MarkInsufficientContrast
		case cx < ex || cy < ey || cx > float64(area.W)-ex || cy > float64(area.H)-ey:
			m.Status = MarkEdgy
		default:
			m.Status = MarkOK
			m.X = float64(area.X) + cx
			m.Y = float64(area.Y) + cy
		}
		s.log.WithFields(logrus.Fields{
			"corner": corner.String(),
			"step":   step,
			"status": m.Status.String(),
			"x":      m.X,
			"y":      m.Y,
		}).Debug("registration search")
		if m.Status == MarkOK {
			return m
		}
		if s.grom.RegSearchSide(step) > maxSide {
			return m
		}
	}
	m.Status = MarkSearchExhausted
	return m
}
