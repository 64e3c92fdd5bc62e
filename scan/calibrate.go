package scan

import (
	"github.com/brianolson/omrsheet/grid"
	"github.com/brianolson/omrsheet/patch"
	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/stat"
)

// ChoiceThresholdFraction places the choice threshold this fraction of the
// way from the ink-black reference to the mean calibration cell shade.
// Empirical, keep as is.
const ChoiceThresholdFraction = 0.9

// Thresholds are the cut points below which an area counts as inked.
type Thresholds struct {
	InkBlack         float64   `json:"ink_black"`
	PaperWhite       float64   `json:"paper_white"`
	CalibrationMeans []float64 `json:"calibration_means"`
	Barcode          float64   `json:"barcode"`
	Choice           float64   `json:"choice"`
}

// naverage is the mean shade of an area of the registered image.
func (s *Sheet) naverage(a grid.Area) float64 {
	return patch.Average(s.crop.Gray(), a.Rect())
}

// calibrate measures the reference patches once per sheet. Callers must
// have checked registration.
func (s *Sheet) calibrate() *Thresholds {
	if s.cal != nil {
		return s.cal
	}
	c := &Thresholds{}
	c.InkBlack = s.naverage(s.grom.InkBlackArea())
	c.PaperWhite = s.naverage(s.grom.PaperWhiteArea())
	areas := s.grom.CalibrationCellAreas()
	c.CalibrationMeans = make([]float64, len(areas))
	for i, a := range areas {
		c.CalibrationMeans[i] = s.naverage(a)
	}
	c.Barcode = (c.PaperWhite + c.InkBlack) / 2
	c.Choice = (stat.Mean(c.CalibrationMeans, nil)-c.InkBlack)*ChoiceThresholdFraction + c.InkBlack
	s.cal = c
	s.log.WithFields(logrus.Fields{
		"ink_black":   c.InkBlack,
		"paper_white": c.PaperWhite,
		"barcode":     c.Barcode,
		"choice":      c.Choice,
	}).Debug("calibrated")
	return c
}

// Thresholds returns the calibration of a registered sheet.
func (s *Sheet) Thresholds() (Thresholds, error) {
	if err := s.notRegistered(); err != nil {
		return Thresholds{}, err
	}
	t := *s.calibrate()
	t.CalibrationMeans = append([]float64(nil), t.CalibrationMeans...)
	return t, nil
}
