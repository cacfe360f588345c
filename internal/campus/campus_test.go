package campus

import (
	"testing"
)

func TestDefaultCatalog(t *testing.T) {
	c, err := Default()
	if err != nil {
		t.Fatalf("default catalog: %v", err)
	}
	b, ok := c.Lookup("Gore Hall")
	if !ok {
		t.Fatalf("expected Gore Hall in catalog")
	}
	if b.Code != "GOR" {
		t.Fatalf("unexpected code %q", b.Code)
	}
	if _, ok := c.Lookup("Nowhere Hall"); ok {
		t.Fatalf("unexpected building")
	}
}

func TestNearestSnapsWithinRadius(t *testing.T) {
	c, err := Default()
	if err != nil {
		t.Fatalf("default catalog: %v", err)
	}
	// a few meters off Widener's steps
	b, dist, ok := c.Nearest(42.37345, -71.11655)
	if !ok || b.Name != "Widener Library" {
		t.Fatalf("expected Widener Library, got %q ok=%v", b.Name, ok)
	}
	if dist > 50 {
		t.Fatalf("expected distance under 50m, got %.1f", dist)
	}

	// downtown Boston
	if _, _, ok := c.Nearest(42.3601, -71.0589); ok {
		t.Fatalf("expected no building within radius")
	}
}

func TestParseRejectsDuplicateNames(t *testing.T) {
	data := []byte("buildings:\n  - name: A\n  - name: A\n")
	if _, err := Parse(data); err == nil {
		t.Fatalf("expected duplicate error")
	}
}

func TestFeatureCollection(t *testing.T) {
	c, _ := Default()
	fc := c.FeatureCollection()
	if len(fc.Features) != len(c.Buildings) {
		t.Fatalf("expected %d features, got %d", len(c.Buildings), len(fc.Features))
	}
}
