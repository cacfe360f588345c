package campus

import (
	_ "embed"
	"fmt"
	"math"
	"sort"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"
	"github.com/paulmach/orb/geojson"
	"gopkg.in/yaml.v3"
)

// MaxSnapDistance is how far, in meters, a coordinate may be from a building
// and still be attributed to it.
const MaxSnapDistance = 500.0

//go:embed campus.yaml
var defaultCatalog []byte

type Building struct {
	Name   string  `yaml:"name" json:"name"`
	Code   string  `yaml:"code" json:"code"`
	Lat    float64 `yaml:"lat" json:"lat"`
	Lng    float64 `yaml:"lng" json:"lng"`
	Floors int     `yaml:"floors" json:"floors"`
}

func (b Building) Point() orb.Point {
	return orb.Point{b.Lng, b.Lat}
}

type Catalog struct {
	Campus    string     `yaml:"campus"`
	Buildings []Building `yaml:"buildings"`

	byName map[string]Building
}

// Default returns the catalog embedded in the binary.
func Default() (*Catalog, error) {
	return Parse(defaultCatalog)
}

func Parse(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parse campus catalog: %w", err)
	}
	if len(c.Buildings) == 0 {
		return nil, fmt.Errorf("campus catalog has no buildings")
	}
	c.byName = make(map[string]Building, len(c.Buildings))
	for _, b := range c.Buildings {
		if b.Name == "" {
			return nil, fmt.Errorf("campus catalog: building without a name")
		}
		if _, dup := c.byName[b.Name]; dup {
			return nil, fmt.Errorf("campus catalog: duplicate building %q", b.Name)
		}
		c.byName[b.Name] = b
	}
	return &c, nil
}

func (c *Catalog) Lookup(name string) (Building, bool) {
	b, ok := c.byName[name]
	return b, ok
}

func (c *Catalog) Names() []string {
	names := make([]string, 0, len(c.Buildings))
	for _, b := range c.Buildings {
		names = append(names, b.Name)
	}
	sort.Strings(names)
	return names
}

// Nearest returns the building closest to the coordinate, provided it lies
// within MaxSnapDistance.
func (c *Catalog) Nearest(lat, lng float64) (Building, float64, bool) {
	p := orb.Point{lng, lat}
	best := -1
	bestDist := math.MaxFloat64
	for i, b := range c.Buildings {
		d := geo.Distance(p, b.Point())
		if d < bestDist {
			best, bestDist = i, d
		}
	}
	if best < 0 || bestDist > MaxSnapDistance {
		return Building{}, bestDist, false
	}
	return c.Buildings[best], bestDist, true
}

// FeatureCollection renders the catalog as GeoJSON points for map clients.
func (c *Catalog) FeatureCollection() *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for _, b := range c.Buildings {
		f := geojson.NewFeature(b.Point())
		f.Properties["name"] = b.Name
		f.Properties["code"] = b.Code
		f.Properties["floors"] = b.Floors
		fc.Append(f)
	}
	return fc
}
