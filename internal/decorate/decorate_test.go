package decorate

import (
	"encoding/json"
	"math"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/paulmach/orb"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mr1hm/go-quake-map/internal/magnitude"
	"github.com/mr1hm/go-quake-map/internal/models"
	"github.com/mr1hm/go-quake-map/internal/observability"
)

var occurred = time.Date(2024, 1, 1, 7, 10, 9, 0, time.UTC)

func testQuake() models.Earthquake {
	return models.Earthquake{
		ID:        "us6000m0xl",
		Magnitude: 7.5,
		Place:     "Noto Peninsula, Japan",
		Time:      occurred,
		Longitude: 137.2,
		Latitude:  37.5,
	}
}

func TestDecorate_StyleFromClassifier(t *testing.T) {
	d := New(clockwork.NewFakeClockAt(occurred.Add(3*24*time.Hour)), nil)

	dq, err := d.Decorate(testQuake())
	require.NoError(t, err)

	class, err := magnitude.Classify(7.5)
	require.NoError(t, err)

	assert.Equal(t, class.Color, dq.Style.FillColor)
	assert.Equal(t, class.Radius, dq.Style.Radius)
	assert.Equal(t, 0.8, dq.Style.FillOpacity)
	assert.Equal(t, 0.0, dq.Style.Weight)
	assert.False(t, dq.Style.Stroke)
	assert.Equal(t, 9, dq.Tier)
}

func TestDecorate_Label(t *testing.T) {
	d := New(clockwork.NewFakeClockAt(occurred.Add(3*24*time.Hour)), nil)

	dq, err := d.Decorate(testQuake())
	require.NoError(t, err)

	assert.Equal(t,
		"<h3>7.5 Magnitude Earthquake at Noto Peninsula, Japan</h3><hr><p>Mon, 01 Jan 2024 07:10:09 UTC (3 days ago)</p>",
		dq.Label)
}

func TestDecorate_LabelEscapesPlace(t *testing.T) {
	d := New(clockwork.NewFakeClockAt(occurred), nil)
	eq := testQuake()
	eq.Place = `<script>alert("x")</script>`

	label := d.Label(eq)
	assert.NotContains(t, label, "<script>")
	assert.Contains(t, label, "&lt;script&gt;")
}

func TestDecorate_RejectsNonFinite(t *testing.T) {
	d := New(nil, nil)
	eq := testQuake()
	eq.Magnitude = math.NaN()

	_, err := d.Decorate(eq)
	assert.ErrorIs(t, err, magnitude.ErrNonFinite)
}

func TestDecorate_RejectsRadiusOverflow(t *testing.T) {
	d := New(nil, nil)
	eq := testQuake()
	eq.Magnitude = 1300

	_, err := d.Decorate(eq)
	assert.ErrorIs(t, err, magnitude.ErrRadiusOverflow)
}

func TestLayer_OverflowingMagnitudeStaysLocal(t *testing.T) {
	d := New(clockwork.NewFakeClockAt(occurred), nil)

	ok := testQuake()
	ok.ID = "ok"
	ok.Magnitude = 4.2
	huge := testQuake()
	huge.ID = "huge"
	huge.Magnitude = 1300

	fc := d.Layer([]models.Earthquake{ok, huge})
	require.Len(t, fc.Features, 1)
	assert.Equal(t, "ok", fc.Features[0].ID)

	body, err := json.Marshal(fc)
	require.NoError(t, err)
	assert.Contains(t, string(body), `"ok"`)
}

func TestLayer_BuildsStyledPoints(t *testing.T) {
	metrics := observability.NewMetricsForTesting()
	d := New(clockwork.NewFakeClockAt(occurred), metrics)

	small := testQuake()
	small.ID = "small"
	small.Magnitude = 2.9
	bad := testQuake()
	bad.ID = "bad"
	bad.Magnitude = math.Inf(1)

	fc := d.Layer([]models.Earthquake{testQuake(), small, bad})
	require.Len(t, fc.Features, 2)

	f := fc.Features[1]
	assert.Equal(t, "small", f.ID)
	assert.Equal(t, orb.Point{137.2, 37.5}, f.Geometry)
	assert.Equal(t, occurred.UnixMilli(), f.Properties["time"])

	style, ok := f.Properties["style"].(Style)
	require.True(t, ok)
	assert.Equal(t, "#006837", style.FillColor)
	assert.InDelta(t, 5.499, style.Radius, 0.001)

	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.Classified.WithLabelValues("#006837")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.Classified.WithLabelValues("#a50026")))
}
