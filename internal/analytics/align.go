package analytics

import "riskdash/internal/core"

// Align positions each quarterly average over the middle bucket of its
// quarter, walking quarters in Q1..Q4 order. The chosen bucket is always the
// one at index n/2 of the quarter's own buckets. Quarters with no
// average or no buckets produce no point.
func Align(buckets []core.MonthlyBucket, averages []core.QuarterlyAverage) []core.OverlayPoint {
	avg := make(map[core.Quarter]core.QuarterlyAverage, len(averages))
	for _, a := range averages {
		avg[a.Quarter] = a
	}

	points := make([]core.OverlayPoint, 0, len(averages))
	for _, q := range core.Quarters {
		a, ok := avg[q]
		if !ok {
			continue
		}
		var keys []core.BucketKey
		for _, b := range buckets {
			if b.Key.Quarter == q {
				keys = append(keys, b.Key)
			}
		}
		if len(keys) == 0 {
			continue
		}
		points = append(points, core.OverlayPoint{
			Quarter: q,
			At:      keys[len(keys)/2],
			Value:   a.Mean,
		})
	}
	return points
}
