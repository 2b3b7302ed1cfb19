// Package vitals classifies browser Web Vitals samples and records them as
// Prometheus histograms.
package vitals

import (
	"fmt"
	"math"
	"strings"

	"github.com/contentanonymity/backend/internal/metrics"
)

// Rating is the web.dev bucket of a sample
type Rating string

const (
	RatingGood             Rating = "good"
	RatingNeedsImprovement Rating = "needs-improvement"
	RatingPoor             Rating = "poor"
)

// MaxBatch bounds one report
const MaxBatch = 50

type threshold struct {
	good, poor float64
}

// Sample values are milliseconds except CLS, which is unitless
var thresholds = map[string]threshold{
	"LCP":  {2500, 4000},
	"FID":  {100, 300},
	"INP":  {200, 500},
	"CLS":  {0.1, 0.25},
	"TTFB": {800, 1800},
	"FCP":  {1800, 3000},
}

// Sample is one measurement from the browser
type Sample struct {
	Name           string  `json:"name"`
	Value          float64 `json:"value"`
	Page           string  `json:"page"`
	NavigationType string  `json:"navigation_type"`
	ID             string  `json:"id,omitempty"`
}

// Classify rates a sample; values at a threshold fall in the better bucket
func Classify(name string, value float64) (Rating, error) {
	t, ok := thresholds[strings.ToUpper(name)]
	if !ok {
		return "", fmt.Errorf("unknown metric %q", name)
	}
	if math.IsNaN(value) || math.IsInf(value, 0) || value < 0 {
		return "", fmt.Errorf("invalid value for %s", name)
	}
	switch {
	case value <= t.good:
		return RatingGood, nil
	case value <= t.poor:
		return RatingNeedsImprovement, nil
	}
	return RatingPoor, nil
}

// Result reports how a batch was handled
type Result struct {
	Accepted int            `json:"accepted"`
	Rejected int            `json:"rejected"`
	Ratings  map[string]int `json:"ratings"`
}

// Record classifies and observes every sample in the batch
func Record(samples []Sample) Result {
	m := metrics.Get()
	res := Result{Ratings: map[string]int{}}

	for _, s := range samples {
		rating, err := Classify(s.Name, s.Value)
		if err != nil {
			res.Rejected++
			reason := "invalid_value"
			if _, known := thresholds[strings.ToUpper(s.Name)]; !known {
				reason = "unknown_metric"
			}
			m.WebVitalsRejectedTotal.WithLabelValues(reason).Inc()
			continue
		}
		name := strings.ToUpper(s.Name)
		m.WebVitals.WithLabelValues(name, string(rating)).Observe(s.Value)
		res.Accepted++
		res.Ratings[string(rating)]++
	}
	return res
}
