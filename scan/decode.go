package scan

import (
	"strconv"
	"strings"
)

type rangeKind int

const (
	rangeAll rangeKind = iota
	rangeFirst
	rangeList
)

// QuestionRange selects the questions a query evaluates. The zero value
// selects all questions.
type QuestionRange struct {
	kind rangeKind
	n    int
	list []int
}

func AllQuestions() QuestionRange {
	return QuestionRange{kind: rangeAll}
}

// FirstQuestions selects questions 0..n-1.
func FirstQuestions(n int) QuestionRange {
	return QuestionRange{kind: rangeFirst, n: n}
}

// Questions selects the listed questions in the given order.
func Questions(qs ...int) QuestionRange {
	return QuestionRange{kind: rangeList, list: append([]int(nil), qs...)}
}

func (s *Sheet) questionRange(r QuestionRange) ([]int, error) {
	max := s.grom.MaxQuestions()
	switch r.kind {
	case rangeAll:
		r.n = max
	case rangeFirst:
		if r.n < 0 || r.n > max {
			return nil, &RangeError{What: "question count", Value: r.n, Limit: max + 1}
		}
	case rangeList:
		for _, q := range r.list {
			if q < 0 || q >= max {
				return nil, &RangeError{What: "question", Value: q, Limit: max}
			}
		}
		return r.list, nil
	}
	out := make([]int, r.n)
	for i := range out {
		out[i] = i
	}
	return out, nil
}

func (s *Sheet) checkCell(q, c int) error {
	if q < 0 || q >= s.grom.MaxQuestions() {
		return &RangeError{What: "question", Value: q, Limit: s.grom.MaxQuestions()}
	}
	if c < 0 || c >= s.grom.MaxChoicesPerQuestion() {
		return &RangeError{What: "choice", Value: c, Limit: s.grom.MaxChoicesPerQuestion()}
	}
	return nil
}

// ShadeOf is the mean intensity of a choice cell, lower is darker.
func (s *Sheet) ShadeOf(q, c int) (float64, error) {
	if err := s.notRegistered(); err != nil {
		return 0, err
	}
	if err := s.checkCell(q, c); err != nil {
		return 0, err
	}
	return s.naverage(s.grom.ChoiceCellArea(q, c)), nil
}

// Marked reports whether a choice cell is darker than the choice threshold.
func (s *Sheet) Marked(q, c int) (bool, error) {
	shade, err := s.ShadeOf(q, c)
	if err != nil {
		return false, err
	}
	return s.marked(shade), nil
}

func (s *Sheet) marked(shade float64) bool {
	return shade < s.calibrate().Choice
}

// MarkArray returns, per selected question, the marked choice indices.
func (s *Sheet) MarkArray(r QuestionRange) ([][]int, error) {
	logical, err := s.MarkLogicalArray(r)
	if err != nil {
		return nil, err
	}
	out := make([][]int, len(logical))
	for i, row := range logical {
		cho := []int{}
		for c, m := range row {
			if m {
				cho = append(cho, c)
			}
		}
		out[i] = cho
	}
	return out, nil
}

// MarkLogicalArray returns a question x choice matrix of marked flags.
func (s *Sheet) MarkLogicalArray(r QuestionRange) ([][]bool, error) {
	if err := s.notRegistered(); err != nil {
		return nil, err
	}
	qs, err := s.questionRange(r)
	if err != nil {
		return nil, err
	}
	choices := s.grom.MaxChoicesPerQuestion()
	out := make([][]bool, len(qs))
	for i, q := range qs {
		row := make([]bool, choices)
		for c := range row {
			row[c] = s.marked(s.naverage(s.grom.ChoiceCellArea(q, c)))
		}
		out[i] = row
	}
	return out, nil
}

// BarcodeString returns the barcode as BarcodeBits '0'/'1' characters,
// most significant first. Bit position 1 is the last character.
func (s *Sheet) BarcodeString() (string, error) {
	if err := s.notRegistered(); err != nil {
		return "", err
	}
	return s.barcodeString(), nil
}

func (s *Sheet) barcodeString() string {
	bits := s.grom.BarcodeBits()
	thresh := s.calibrate().Barcode
	var sb strings.Builder
	sb.Grow(bits)
	// position n down to 1, so each later position lands to the right
	for bit := bits; bit >= 1; bit-- {
		if s.naverage(s.grom.BarcodeBitArea(bit)) < thresh {
			sb.WriteByte('1')
		} else {
			sb.WriteByte('0')
		}
	}
	return sb.String()
}

// Barcode returns the barcode value.
func (s *Sheet) Barcode() (uint64, error) {
	str, err := s.BarcodeString()
	if err != nil {
		return 0, err
	}
	if str == "" {
		return 0, nil
	}
	return strconv.ParseUint(str, 2, 64)
}
