// Package render talks to the tiling service and prepares the rendered images.
package render

import (
	"github.com/paulmach/orb"
)

// BackgroundBounds returns the envelope of geom stretched vertically to the
// width:height aspect ratio. The horizontal extent is kept and the extra
// height is split evenly above and below.
func BackgroundBounds(geom orb.Geometry, width, height int) orb.Bound {
	b := geom.Bound()
	w := b.Max[0] - b.Min[0]
	h := b.Max[1] - b.Min[1]
	newHeight := w * (float64(height) / float64(width))
	pad := (newHeight - h) / 2
	return orb.Bound{
		Min: orb.Point{b.Min[0], b.Min[1] - pad},
		Max: orb.Point{b.Max[0], b.Max[1] + pad},
	}
}

// BackgroundPolygon is BackgroundBounds as a closed polygon.
func BackgroundPolygon(geom orb.Geometry, width, height int) orb.Polygon {
	return BackgroundBounds(geom, width, height).ToPolygon()
}
