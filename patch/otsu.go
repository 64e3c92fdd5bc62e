package patch

// https://en.wikipedia.org/wiki/Otsu%27s_method
// Returns t such that pixels < t form the dark class. When a range of
// thresholds separate the classes equally well (empty histogram bins
// between them) the middle of that range is used.
func otsuThreshold(hist []uint) uint8 {
	sumB := uint(0)
	wB := uint(0)
	max := 0.0
	total := uint(0)
	sum1 := uint(0)
	first, last := 0, 0
	for i, hv := range hist {
		total += hv
		sum1 += uint(i) * hv
	}
	for i := 1; i < 256; i++ {
		wB += hist[i-1]
		sumB += uint(i-1) * hist[i-1]
		if wB > 0 && total > wB {
			wF := total - wB
			mB := float64(sumB) / float64(wB)
			mF := float64(sum1-sumB) / float64(wF)
			val := float64(wB) * float64(wF) * (mB - mF) * (mB - mF)
			if val > max {
				first, last = i, i
				max = val
			} else if val == max {
				last = i
			}
		}
	}
	return uint8((first + last) / 2)
}
