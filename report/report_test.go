package report

import (
	"bytes"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/YuminosukeSato/erkboost/schema"
	"github.com/YuminosukeSato/erkboost/stats"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFixtures(t *testing.T) {
	fixtures, err := LoadFixtures()
	require.NoError(t, err)
	require.Len(t, fixtures, 4)

	want := []string{"cd28_low", "cd3z_low", "cd28_high", "cd3z_high"}
	for i, f := range fixtures {
		assert.Equal(t, want[i], f.Name)
		assert.Equal(t, i+1, f.Order)
		assert.Len(t, f.Means, schema.Size)
		assert.Len(t, f.SEMs, schema.Size)
		for _, s := range f.SEMs {
			assert.GreaterOrEqual(t, s, 0.0)
		}
		assert.Greater(t, f.Summary.R2Mean, 0.0)
		assert.LessOrEqual(t, f.Summary.R2Mean, 1.0)
	}
}

func TestFixturePValues(t *testing.T) {
	fixtures, err := LoadFixtures()
	require.NoError(t, err)

	for _, f := range fixtures {
		t.Run(f.Name, func(t *testing.T) {
			p, err := stats.PValues(f.Means, f.SEMs, stats.DefaultDF)
			require.NoError(t, err)
			require.Len(t, p, schema.Size)
			for i, v := range p {
				assert.False(t, math.IsNaN(v), "p[%d]", i)
				assert.GreaterOrEqual(t, v, 0.0)
				assert.LessOrEqual(t, v, 1.0)
			}
		})
	}
}

func TestFixtureChartStyle(t *testing.T) {
	f, err := LookupFixture("cd28_high")
	require.NoError(t, err)

	st, err := f.ChartStyle(DefaultStyle())
	require.NoError(t, err)
	assert.Equal(t, OrangeColor, st.Color)
	assert.InDelta(t, 0.01, st.Markers.Alpha, 1e-12)

	f, err = LookupFixture("cd3z_low")
	require.NoError(t, err)
	st, err = f.ChartStyle(DefaultStyle())
	require.NoError(t, err)
	assert.Equal(t, DefaultColor, st.Color)

	_, err = LookupFixture("cd4_low")
	assert.Error(t, err)
}

func TestParseFixture(t *testing.T) {
	_, err := ParseFixture([]byte("order: 1\n"))
	assert.Error(t, err)

	_, err = ParseFixture([]byte("name: [unterminated"))
	assert.Error(t, err)

	f, err := ParseFixture([]byte("name: x\nmeans: [0.1, 0.2]\nsems: [0.01, 0.02]\n"))
	require.NoError(t, err)
	assert.Error(t, f.Validate(schema.Default()))
}

func TestParseColor(t *testing.T) {
	tests := []struct {
		in      string
		wantErr bool
		r, g, b uint8
		a       uint8
	}{
		{in: "#ff6600", r: 0xff, g: 0x66, b: 0x00, a: 0xff},
		{in: "1f77b4", r: 0x1f, g: 0x77, b: 0xb4, a: 0xff},
		{in: "#00000080", a: 0x80},
		{in: "#fff", wantErr: true},
		{in: "#gggggg", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			c, err := ParseColor(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.r, c.R)
			assert.Equal(t, tt.g, c.G)
			assert.Equal(t, tt.b, c.B)
			assert.Equal(t, tt.a, c.A)
		})
	}
}

func TestVectorRoundTrip(t *testing.T) {
	f, err := LookupFixture("cd3z_high")
	require.NoError(t, err)

	text := FormatVector(f.Means)
	back, err := ParseVector(text)
	require.NoError(t, err)
	require.Equal(t, len(f.Means), len(back))
	for i := range back {
		assert.Equal(t, math.Float64bits(f.Means[i]), math.Float64bits(back[i]), "index %d", i)
	}

	// p-values computed from the round-tripped vectors match bit for bit
	sems, err := ParseVector(FormatVector(f.SEMs))
	require.NoError(t, err)
	p1, err := stats.PValues(f.Means, f.SEMs, stats.DefaultDF)
	require.NoError(t, err)
	p2, err := stats.PValues(back, sems, stats.DefaultDF)
	require.NoError(t, err)
	assert.Equal(t, p1, p2)
}

func TestParseVector(t *testing.T) {
	v, err := ParseVector("[1 2.5e-3\n 3]")
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 2.5e-3, 3}, v)

	v, err = ParseVector("[]")
	require.NoError(t, err)
	assert.Empty(t, v)

	_, err = ParseVector("1, 2")
	assert.Error(t, err)
	_, err = ParseVector("[1, x]")
	assert.Error(t, err)
}

func TestWriteSummary(t *testing.T) {
	var buf bytes.Buffer
	err := WriteSummary(&buf, "ERK_times_CD28_low.xlsx", Summary{R2Mean: 0.9, R2SEM: 0.01, EVMean: 0.91, EVSEM: 0.02})
	require.NoError(t, err)
	assert.Equal(t,
		"Source File: ERK_times_CD28_low.xlsx\n"+
			"Rsq  Mean:  0.9, Rsq SEM:  0.01\n"+
			"EV   Mean:  0.91, EV  SEM:  0.02\n",
		buf.String())

	buf.Reset()
	require.NoError(t, WriteImportance(&buf, []float64{0.5}, []float64{0.1}))
	lines := strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "Importance Mean: [0.5]", lines[0])
	assert.Equal(t, Separator, lines[2])
	assert.Len(t, Separator, 70)
}

func TestWritePValues(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WritePValues(&buf, []string{"a", "b"}, []float64{0.5, 0.001}, []int{1, 0}))
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], "b "))

	assert.Error(t, WritePValues(&buf, []string{"a"}, []float64{0.5, 0.1}, nil))
}

func TestBarChart(t *testing.T) {
	names := schema.Names()

	t.Run("misaligned", func(t *testing.T) {
		_, err := BarChart(names, make([]float64, 47), make([]float64, 48), DefaultStyle())
		assert.Error(t, err)
	})

	t.Run("empty", func(t *testing.T) {
		_, err := BarChart(nil, nil, nil, DefaultStyle())
		assert.Error(t, err)
	})

	t.Run("axes", func(t *testing.T) {
		f, err := LookupFixture("cd28_low")
		require.NoError(t, err)
		p, err := BarChart(names, f.Means, f.SEMs, DefaultStyle())
		require.NoError(t, err)
		assert.Equal(t, 0.0, p.Y.Min)
		assert.Equal(t, 0.7, p.Y.Max)
		assert.Equal(t, "Parameter Name", p.X.Label.Text)
		assert.Equal(t, "Importance Score", p.Y.Label.Text)

		ticks := p.X.Tick.Marker.Ticks(p.X.Min, p.X.Max)
		require.Len(t, ticks, schema.Size)
		assert.Equal(t, names[0], ticks[0].Label)
		assert.Equal(t, 1.0, ticks[0].Value)
		assert.Equal(t, float64(schema.Size), ticks[schema.Size-1].Value)

		yt := p.Y.Tick.Marker.Ticks(p.Y.Min, p.Y.Max)
		require.Len(t, yt, 7)
		assert.Equal(t, "0.6", yt[6].Label)
	})
}

func TestAddSignificanceMarkers(t *testing.T) {
	p, err := BarChart([]string{"a", "b"}, []float64{0.2, 0.3}, []float64{0.01, 0.5}, DefaultStyle())
	require.NoError(t, err)

	// disabled is a no-op
	require.NoError(t, AddSignificanceMarkers(p, []float64{0.2, 0.3}, []float64{0.001, 0.4}, MarkerStyle{Alpha: 0.01}))

	m := MarkerStyle{Enabled: true, Alpha: 0.01, Lift: 0.02, Offset: 0.01}
	require.NoError(t, AddSignificanceMarkers(p, []float64{0.2, 0.3}, []float64{0.001, 0.4}, m))
	assert.Error(t, AddSignificanceMarkers(p, []float64{0.2}, []float64{0.001, 0.4}, m))
}

func TestSaveChart(t *testing.T) {
	f, err := LookupFixture("cd3z_low")
	require.NoError(t, err)
	st, err := f.ChartStyle(DefaultStyle())
	require.NoError(t, err)
	st.Markers.Enabled = true

	p, err := BarChart(schema.Names(), f.Means, f.SEMs, st)
	require.NoError(t, err)
	pv, err := stats.PValues(f.Means, f.SEMs, stats.DefaultDF)
	require.NoError(t, err)
	require.NoError(t, AddSignificanceMarkers(p, f.Means, pv, st.Markers))

	dir := t.TempDir()
	out := filepath.Join(dir, "cd3z_low.png")
	require.NoError(t, SaveChart(p, st, out))

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("\x89PNG")))

	assert.Error(t, SaveChart(p, st, filepath.Join(dir, "chart.bmp")))
}
