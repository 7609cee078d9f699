package report

import (
	"embed"
	"path"
	"sort"

	"github.com/YuminosukeSato/erkboost/pkg/errors"
	"github.com/YuminosukeSato/erkboost/schema"
	"github.com/YuminosukeSato/erkboost/stats"
	"gopkg.in/yaml.v3"
)

//go:embed fixtures/*.yaml
var fixtureFS embed.FS

// Summary は交差検証スコアの平均と標準誤差
type Summary struct {
	R2Mean float64 `yaml:"r2_mean"`
	R2SEM  float64 `yaml:"r2_sem"`
	EVMean float64 `yaml:"ev_mean"`
	EVSEM  float64 `yaml:"ev_sem"`
}

// FixtureStyle is the YAML form of a chart style override.
type FixtureStyle struct {
	Color   string      `yaml:"color"`
	Markers MarkerStyle `yaml:"markers"`
}

// Fixture is a precomputed importance vector for one experimental condition.
type Fixture struct {
	Name    string       `yaml:"name"`
	Order   int          `yaml:"order"`
	Source  string       `yaml:"source"`
	Style   FixtureStyle `yaml:"style"`
	Summary Summary      `yaml:"summary"`
	Means   []float64    `yaml:"means"`
	SEMs    []float64    `yaml:"sems"`
}

// Validate checks that the vectors are aligned with the parameter schema.
func (f *Fixture) Validate(s *schema.Schema) error {
	if err := s.CheckLen(f.Name+" means", len(f.Means)); err != nil {
		return err
	}
	return stats.CheckAligned(s.Names(), f.Means, f.SEMs)
}

// ChartStyle applies the fixture's overrides on top of base.
func (f *Fixture) ChartStyle(base Style) (Style, error) {
	if f.Style.Color != "" {
		c, err := ParseColor(f.Style.Color)
		if err != nil {
			return base, errors.Wrapf(err, "fixture %s", f.Name)
		}
		base.Color = c
	}
	base.Markers = f.Style.Markers
	return base, nil
}

// ParseFixture decodes a single fixture document.
func ParseFixture(data []byte) (*Fixture, error) {
	var f Fixture
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, errors.Wrap(err, "parse fixture")
	}
	if f.Name == "" {
		return nil, errors.NewValidationError("name", "fixture name is required", "")
	}
	return &f, nil
}

// LoadFixtures returns the four embedded conditions in display order.
func LoadFixtures() ([]*Fixture, error) {
	entries, err := fixtureFS.ReadDir("fixtures")
	if err != nil {
		return nil, errors.Wrap(err, "read fixtures")
	}
	s := schema.Default()
	out := make([]*Fixture, 0, len(entries))
	for _, e := range entries {
		data, err := fixtureFS.ReadFile(path.Join("fixtures", e.Name()))
		if err != nil {
			return nil, errors.Wrapf(err, "read fixture %s", e.Name())
		}
		f, err := ParseFixture(data)
		if err != nil {
			return nil, errors.Wrapf(err, "fixture %s", e.Name())
		}
		if err := f.Validate(s); err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Order < out[j].Order })
	return out, nil
}

// LookupFixture returns the embedded fixture with the given name.
func LookupFixture(name string) (*Fixture, error) {
	all, err := LoadFixtures()
	if err != nil {
		return nil, err
	}
	for _, f := range all {
		if f.Name == name {
			return f, nil
		}
	}
	return nil, errors.NewValidationError("fixture", "unknown fixture", name)
}
