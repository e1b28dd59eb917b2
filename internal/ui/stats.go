package ui

import (
	"math"

	"github.com/five82/pulse/internal/dashboard"
)

// Record keys used for presentation.
const (
	fieldTitle      = "title"
	fieldLink       = "video_link"
	fieldProduct    = "product"
	fieldService    = "service"
	fieldPublished  = "publish_date"
	fieldViews      = "views"
	fieldWatchTime  = "avg_watch_time"
	fieldFollowers  = "new_followers"
	fieldCompletion = "completion_rate"
)

// Completion-rate bucket thresholds, in percent.
const (
	highCompletion   = 25.0
	mediumCompletion = 15.0
)

// Bucket is a completion-rate band.
type Bucket int

const (
	BucketLow Bucket = iota
	BucketMedium
	BucketHigh
)

func (b Bucket) String() string {
	switch b {
	case BucketHigh:
		return "high"
	case BucketMedium:
		return "medium"
	default:
		return "low"
	}
}

// BucketFor classifies a completion rate.
func BucketFor(rate float64) Bucket {
	switch {
	case rate >= highCompletion:
		return BucketHigh
	case rate >= mediumCompletion:
		return BucketMedium
	default:
		return BucketLow
	}
}

// Summary aggregates a snapshot for the stats strip.
type Summary struct {
	Count          int
	TotalViews     float64
	TotalFollowers float64
	AvgCompletion  float64
	Buckets        [3]int // indexed by Bucket
}

// Summarize computes totals over records. Missing view and follower counts
// are zero. A missing completion rate counts as zero, but a rate string that
// does not parse is left out of the average and the buckets.
func Summarize(records []dashboard.Record) Summary {
	s := Summary{Count: len(records)}
	if len(records) == 0 {
		return s
	}
	var completionSum float64
	counted := 0
	for _, rec := range records {
		views, _ := rec.Number(fieldViews)
		followers, _ := rec.Number(fieldFollowers)
		s.TotalViews += views
		s.TotalFollowers += followers

		rate, ok := completionRate(rec)
		if !ok {
			continue
		}
		completionSum += rate
		counted++
		s.Buckets[BucketFor(rate)]++
	}
	if counted > 0 {
		s.AvgCompletion = math.Round(completionSum/float64(counted)*10) / 10
	}
	return s
}

// completionRate reads the completion field. ok is false only for a string
// that is not a number.
func completionRate(rec dashboard.Record) (float64, bool) {
	v := rec[fieldCompletion]
	if _, isString := v.(string); isString {
		return rec.Number(fieldCompletion)
	}
	rate, _ := rec.Number(fieldCompletion)
	return rate, true
}
