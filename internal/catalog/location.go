package catalog

import (
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/ewkb"

	"github.com/repairhub/pricing-engine/internal/model"
)

// decodeLocation turns an EWKB point into a Location. Empty input means
// the provider has no business location.
func decodeLocation(data []byte) (*model.Location, error) {
	if len(data) == 0 {
		return nil, nil
	}
	g, err := ewkb.Unmarshal(data)
	if err != nil {
		return nil, eris.Wrap(err, "catalog: decode location")
	}
	p, ok := g.(*geom.Point)
	if !ok {
		return nil, eris.Errorf("catalog: location is %T, want point", g)
	}
	if p.Empty() {
		return nil, nil
	}
	return &model.Location{Lat: p.Y(), Lng: p.X()}, nil
}
