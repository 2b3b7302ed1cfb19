package vitals

import (
	"math"
	"testing"

	"github.com/contentanonymity/backend/internal/metrics"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassify(t *testing.T) {
	cases := []struct {
		name  string
		value float64
		want  Rating
	}{
		{"LCP", 1200, RatingGood},
		{"LCP", 2500, RatingGood},
		{"LCP", 3000, RatingNeedsImprovement},
		{"LCP", 4001, RatingPoor},
		{"cls", 0.05, RatingGood},
		{"CLS", 0.2, RatingNeedsImprovement},
		{"CLS", 0.3, RatingPoor},
		{"INP", 499, RatingNeedsImprovement},
		{"FID", 301, RatingPoor},
		{"TTFB", 800, RatingGood},
		{"FCP", 2000, RatingNeedsImprovement},
	}
	for _, c := range cases {
		got, err := Classify(c.name, c.value)
		require.NoError(t, err, "%s=%v", c.name, c.value)
		assert.Equal(t, c.want, got, "%s=%v", c.name, c.value)
	}

	_, err := Classify("XYZ", 1)
	assert.Error(t, err)
	_, err = Classify("LCP", -1)
	assert.Error(t, err)
	_, err = Classify("LCP", math.NaN())
	assert.Error(t, err)
}

func TestRecord(t *testing.T) {
	rejected := metrics.Get().WebVitalsRejectedTotal.WithLabelValues("unknown_metric")
	before := testutil.ToFloat64(rejected)

	res := Record([]Sample{
		{Name: "LCP", Value: 1000, Page: "/"},
		{Name: "CLS", Value: 0.5, Page: "/tools"},
		{Name: "BOGUS", Value: 1},
		{Name: "INP", Value: -3},
	})
	assert.Equal(t, 2, res.Accepted)
	assert.Equal(t, 2, res.Rejected)
	assert.Equal(t, map[string]int{"good": 1, "poor": 1}, res.Ratings)
	assert.Equal(t, before+1, testutil.ToFloat64(rejected))
}
