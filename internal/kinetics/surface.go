package kinetics

import "github.com/banshee-data/mocap.report/internal/geom"

// Surface is the placement of a plate's working surface in the lab.
type Surface struct {
	Centre geom.Vec3
	// Rotation maps plate axes to lab axes (columns are the plate x, y, z).
	Rotation geom.Mat3
	// LenX and LenY are the full edge lengths along plate x and y.
	LenX, LenY float64
}

// SurfaceFromCorners builds the surface from its four lab-frame corners,
// given in plate quadrant order (+x+y, -x+y, -x-y, +x-y).
func SurfaceFromCorners(c [4]geom.Vec3) Surface {
	mid := func(a, b geom.Vec3) geom.Vec3 { return geom.Lerp(a, b, 0.5) }
	x := geom.Unit(mid(c[0], c[3]).Sub(mid(c[1], c[2])))
	yTmp := mid(c[0], c[1]).Sub(mid(c[2], c[3]))
	z := geom.Unit(x.Cross(yTmp))
	y := z.Cross(x)
	return Surface{
		Centre:   geom.Centroid(c[:]),
		Rotation: geom.Mat3FromColumns(x, y, z),
		LenX:     (c[0].Sub(c[1]).Norm() + c[3].Sub(c[2]).Norm()) / 2,
		LenY:     (c[0].Sub(c[3]).Norm() + c[1].Sub(c[2]).Norm()) / 2,
	}
}

// ToLab maps a point on the plate (surface-centre origin, plate axes) into
// the lab.
func (s Surface) ToLab(p geom.Vec3) geom.Vec3 {
	return s.Centre.Add(s.Rotation.MulVec(p))
}
