package ui

import (
	"testing"

	"github.com/five82/pulse/internal/dashboard"
)

func TestBucketFor(t *testing.T) {
	tests := []struct {
		rate float64
		want Bucket
	}{
		{0, BucketLow},
		{14.9, BucketLow},
		{15, BucketMedium},
		{24.99, BucketMedium},
		{25, BucketHigh},
		{80, BucketHigh},
	}
	for _, tt := range tests {
		if got := BucketFor(tt.rate); got != tt.want {
			t.Errorf("BucketFor(%v) = %v, want %v", tt.rate, got, tt.want)
		}
	}
}

func TestSummarize(t *testing.T) {
	records := []dashboard.Record{
		{"views": float64(1000), "new_followers": float64(10), "completion_rate": "18.5%"},
		{"views": "2500", "new_followers": float64(5), "completion_rate": float64(30)},
		{"views": nil, "completion_rate": "n/a"},
	}

	got := Summarize(records)
	if got.Count != 3 {
		t.Fatalf("Count = %d, want 3", got.Count)
	}
	if got.TotalViews != 3500 || got.TotalFollowers != 15 {
		t.Fatalf("totals = %v views / %v followers, want 3500/15", got.TotalViews, got.TotalFollowers)
	}
	if got.AvgCompletion != 24.3 {
		t.Fatalf("AvgCompletion = %v, want 24.3", got.AvgCompletion)
	}
	if got.Buckets != [3]int{0, 1, 1} {
		t.Fatalf("Buckets = %v, want medium and high only", got.Buckets)
	}
}

func TestSummarize_CompletionRates(t *testing.T) {
	tests := []struct {
		name    string
		records []dashboard.Record
		avg     float64
		buckets [3]int
	}{
		{
			name:    "unparsable string skipped",
			records: []dashboard.Record{{"completion_rate": "30%"}, {"completion_rate": "N/A"}},
			avg:     30,
			buckets: [3]int{0, 0, 1},
		},
		{
			name:    "missing counts as zero",
			records: []dashboard.Record{{"completion_rate": "30%"}, {"title": "no rate"}},
			avg:     15,
			buckets: [3]int{1, 0, 1},
		},
		{
			name:    "nil counts as zero",
			records: []dashboard.Record{{"completion_rate": float64(20)}, {"completion_rate": nil}},
			avg:     10,
			buckets: [3]int{1, 1, 0},
		},
		{
			name:    "nothing parses",
			records: []dashboard.Record{{"completion_rate": "N/A"}, {"completion_rate": ""}},
			avg:     0,
			buckets: [3]int{0, 0, 0},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Summarize(tt.records)
			if got.Count != len(tt.records) {
				t.Fatalf("Count = %d, want %d", got.Count, len(tt.records))
			}
			if got.AvgCompletion != tt.avg {
				t.Fatalf("AvgCompletion = %v, want %v", got.AvgCompletion, tt.avg)
			}
			if got.Buckets != tt.buckets {
				t.Fatalf("Buckets = %v, want %v", got.Buckets, tt.buckets)
			}
		})
	}
}

func TestSummarize_Empty(t *testing.T) {
	if got := Summarize(nil); got != (Summary{}) {
		t.Fatalf("Summarize(nil) = %#v, want zero", got)
	}
}

func TestFormatCount(t *testing.T) {
	tests := map[float64]string{
		0:         "0",
		999:       "999",
		1500:      "1.5K",
		2_000_000: "2.0M",
	}
	for in, want := range tests {
		if got := formatCount(in); got != want {
			t.Errorf("formatCount(%v) = %q, want %q", in, got, want)
		}
	}
}
