// Package kinetics derives ground reaction forces, moments and centre of
// pressure from force-platform analog channels.
//
// Each platform type wires its channels differently; a PlateModel turns
// the type's channels into forces and moments about the sensor origin.
// Compute then applies the contact threshold, solves the COP on the plate
// surface and reports the results in sensor, surface and lab frames.
package kinetics

import (
	"fmt"
	"strings"

	"gonum.org/v1/gonum/mat"

	"github.com/banshee-data/mocap.report/internal/geom"
	"github.com/banshee-data/mocap.report/internal/mocaperr"
	"github.com/banshee-data/mocap.report/internal/session"
)

// Role names the quantity an analog channel carries.
type Role string

const (
	FX   Role = "FX"
	FY   Role = "FY"
	FZ   Role = "FZ"
	MX   Role = "MX"
	MY   Role = "MY"
	MZ   Role = "MZ"
	PX   Role = "PX"
	PY   Role = "PY"
	TZ   Role = "TZ"
	FX12 Role = "FX12"
	FX34 Role = "FX34"
	FY14 Role = "FY14"
	FY23 Role = "FY23"
	FZ1  Role = "FZ1"
	FZ2  Role = "FZ2"
	FZ3  Role = "FZ3"
	FZ4  Role = "FZ4"
)

// Origin is the sensor origin of a plate after sign normalisation.
type Origin struct {
	// Offset runs from the plate surface centre to the sensor origin in
	// plate axes. Offset[2] is never positive.
	Offset geom.Vec3
	// HalfA and HalfB are the sensor spacings of a type 3 plate.
	HalfA, HalfB float64
}

// NormaliseOrigin applies the sign convention for a stored origin. Files
// disagree on the sign of the origin vector; the z component decides which
// convention is in use. Type 3 plates store sensor spacings in x and y, so
// their x and y offsets are zero.
func NormaliseOrigin(plateType int, raw geom.Vec3) Origin {
	zCheck := 1.0
	if raw[2] > 0 {
		zCheck = -1
	}
	if plateType == 3 {
		return Origin{
			Offset: geom.Vec3{0, 0, zCheck * raw[2]},
			HalfA:  abs(raw[0]),
			HalfB:  abs(raw[1]),
		}
	}
	return Origin{Offset: raw.Scale(zCheck)}
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

// PlateModel converts one platform type's channels into forces and moments
// about the sensor origin, in sensor axes.
type PlateModel interface {
	Type() int
	// ChannelRoles lists the roles of the plate's channels in wiring order.
	ChannelRoles() []Role
	// ForceMoment takes one sample slice per role, all of equal length.
	ForceMoment(ch [][]float64, o Origin) (force, moment []geom.Vec3)
}

// ModelFor returns the model matching a plate's type and checks its channel
// list.
func ModelFor(p session.PlateGeometry) (PlateModel, error) {
	var m PlateModel
	switch p.Type {
	case 1:
		m = copTorqueModel{}
	case 2:
		m = directModel{}
	case 3:
		m = quadrantModel{}
	case 4:
		if p.CalMatrix == nil {
			return nil, mocaperr.Missing("parameter", "calibration matrix")
		}
		m = calibratedModel{cal: mat.NewDense(6, 6, flatten(*p.CalMatrix))}
	default:
		return nil, mocaperr.Unsupported("force plate type", p.Type)
	}
	if len(p.Channels) != len(m.ChannelRoles()) {
		return nil, mocaperr.Dimension(fmt.Sprintf("type %d plate channels", p.Type), len(p.Channels), len(m.ChannelRoles()))
	}
	return m, nil
}

func flatten(m [6][6]float64) []float64 {
	out := make([]float64, 0, 36)
	for _, row := range m {
		out = append(out, row[:]...)
	}
	return out
}

// roleMatchesLabel reports whether a channel label plausibly carries role.
// Labels such as "Fx1", "FP1 Fz" or "Cop_x" are accepted; an empty label
// says nothing and is accepted too.
func roleMatchesLabel(role Role, label string) bool {
	l := strings.ToUpper(strings.NewReplacer(" ", "", "_", "", "-", "").Replace(label))
	if l == "" {
		return true
	}
	if strings.Contains(l, string(role)) {
		return true
	}
	switch role {
	case PX:
		return strings.Contains(l, "COPX") || strings.Contains(l, "CX")
	case PY:
		return strings.Contains(l, "COPY") || strings.Contains(l, "CY")
	case TZ:
		return strings.Contains(l, "MZ") || strings.Contains(l, "TZ")
	}
	return false
}

func vecs(x, y, z []float64) []geom.Vec3 {
	out := make([]geom.Vec3, len(x))
	for i := range out {
		out[i] = geom.Vec3{x[i], y[i], z[i]}
	}
	return out
}

// directModel is a type 2 plate: channels already carry FX..MZ.
type directModel struct{}

func (directModel) Type() int { return 2 }

func (directModel) ChannelRoles() []Role { return []Role{FX, FY, FZ, MX, MY, MZ} }

func (directModel) ForceMoment(ch [][]float64, _ Origin) ([]geom.Vec3, []geom.Vec3) {
	return vecs(ch[0], ch[1], ch[2]), vecs(ch[3], ch[4], ch[5])
}

// copTorqueModel is a type 1 plate: forces, the COP on the surface and the
// free torque. Moments about the sensor origin are rebuilt from the COP.
type copTorqueModel struct{}

func (copTorqueModel) Type() int { return 1 }

func (copTorqueModel) ChannelRoles() []Role { return []Role{FX, FY, FZ, PX, PY, TZ} }

func (copTorqueModel) ForceMoment(ch [][]float64, o Origin) ([]geom.Vec3, []geom.Vec3) {
	force := vecs(ch[0], ch[1], ch[2])
	moment := make([]geom.Vec3, len(force))
	pz := -o.Offset[2]
	for i, f := range force {
		px := ch[3][i] - o.Offset[0]
		py := ch[4][i] - o.Offset[1]
		moment[i] = geom.Vec3{
			py*f[2] - pz*f[1],
			pz*f[0] - px*f[2],
			px*f[1] - py*f[0] + ch[5][i],
		}
	}
	return force, moment
}

// quadrantModel is a type 3 plate with four three-axis load cells.
type quadrantModel struct{}

func (quadrantModel) Type() int { return 3 }

func (quadrantModel) ChannelRoles() []Role {
	return []Role{FX12, FX34, FY14, FY23, FZ1, FZ2, FZ3, FZ4}
}

func (quadrantModel) ForceMoment(ch [][]float64, o Origin) ([]geom.Vec3, []geom.Vec3) {
	n := len(ch[0])
	force := make([]geom.Vec3, n)
	moment := make([]geom.Vec3, n)
	a, b := o.HalfA, o.HalfB
	for i := 0; i < n; i++ {
		fx12, fx34, fy14, fy23 := ch[0][i], ch[1][i], ch[2][i], ch[3][i]
		fz1, fz2, fz3, fz4 := ch[4][i], ch[5][i], ch[6][i], ch[7][i]
		force[i] = geom.Vec3{fx12 + fx34, fy14 + fy23, fz1 + fz2 + fz3 + fz4}
		moment[i] = geom.Vec3{
			b * (fz1 + fz2 - fz3 - fz4),
			a * (-fz1 + fz2 + fz3 - fz4),
			b*(-fx12+fx34) + a*(fy14-fy23),
		}
	}
	return force, moment
}

// calibratedModel is a type 4 plate: like type 2 but the channels first
// pass through a 6x6 calibration matrix.
type calibratedModel struct {
	cal *mat.Dense
}

func (calibratedModel) Type() int { return 4 }

func (calibratedModel) ChannelRoles() []Role { return []Role{FX, FY, FZ, MX, MY, MZ} }

func (m calibratedModel) ForceMoment(ch [][]float64, _ Origin) ([]geom.Vec3, []geom.Vec3) {
	n := len(ch[0])
	if n == 0 {
		return nil, nil
	}
	raw := mat.NewDense(6, n, nil)
	for r := 0; r < 6; r++ {
		raw.SetRow(r, ch[r])
	}
	var out mat.Dense
	out.Mul(m.cal, raw)
	rows := make([][]float64, 6)
	for r := range rows {
		rows[r] = mat.Row(nil, r, &out)
	}
	return vecs(rows[0], rows[1], rows[2]), vecs(rows[3], rows[4], rows[5])
}
