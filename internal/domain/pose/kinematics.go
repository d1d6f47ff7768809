package pose

import (
	"math"
)

// Measurement thresholds. Coordinates are normalized image units unless the
// name says otherwise.
const (
	// MinVisibility is the landmark confidence below which a joint is
	// treated as absent.
	MinVisibility = 0.5

	// heelLiftGap is the toe-to-heel height gap that counts as a raised heel.
	heelLiftGap = 0.025

	// valgusSeparationFactor flags knee valgus when the knees close to under
	// this fraction of the ankle separation.
	valgusSeparationFactor = 0.7

	// minAnkleSeparation guards the valgus check when the feet are together.
	minAnkleSeparation = 0.02

	degPerRad = 180.0 / math.Pi
)

// coreJoints must all be visible for a frame to be evaluable at all.
var coreJoints = []Joint{
	LeftShoulder, RightShoulder,
	LeftHip, RightHip,
	LeftKnee, RightKnee,
	LeftAnkle, RightAnkle,
}

// Measurements are the derived per-frame kinematics the evaluators consume.
// A zero-visibility frame yields Visible == false and zeroed fields; arm
// fields are zero whenever the arm joints themselves were not detected.
type Measurements struct {
	Visible bool

	// Angles in degrees. Shoulder flexion: 0 with the arm hanging, ~180
	// overhead. Elbow and knee: interior angle, 180 fully extended.
	LeftShoulderFlexionDeg  float64
	RightShoulderFlexionDeg float64
	LeftElbowAngleDeg       float64
	RightElbowAngleDeg      float64
	LeftKneeAngleDeg        float64
	RightKneeAngleDeg       float64

	// TrunkLeanDeg is the absolute tilt of the hip-to-shoulder line from
	// vertical, in degrees.
	TrunkLeanDeg float64

	// Trunk and foot positions for sway, lift and step tracking.
	HipMidX     float64
	HipMidY     float64
	LeftAnkleX  float64
	LeftAnkleY  float64
	RightAnkleX float64
	RightAnkleY float64

	// Stance booleans.
	LeftHeelLifted  bool
	RightHeelLifted bool
	ArmsOverhead    bool
	KneeValgus      bool

	// BodyHeightNorm is the nose-to-ankle span in image units, used to
	// express jump height as a body-height percentage.
	BodyHeightNorm float64
}

// AvgKneeAngleDeg averages the two knee angles.
func (m Measurements) AvgKneeAngleDeg() float64 {
	return (m.LeftKneeAngleDeg + m.RightKneeAngleDeg) / 2
}

// AvgElbowAngleDeg averages the two elbow angles.
func (m Measurements) AvgElbowAngleDeg() float64 {
	return (m.LeftElbowAngleDeg + m.RightElbowAngleDeg) / 2
}

// AnkleGapY is the absolute height difference between the ankles.
func (m Measurements) AnkleGapY() float64 {
	return math.Abs(m.LeftAnkleY - m.RightAnkleY)
}

// BothHeelsLifted reports a full tip-toe stance.
func (m Measurements) BothHeelsLifted() bool {
	return m.LeftHeelLifted && m.RightHeelLifted
}

// Measure derives per-frame measurements from a landmark frame. It is the
// in-repo kinematic adapter; embedders with their own measurement pipeline
// can populate Measurements directly instead.
func Measure(f Frame) Measurements {
	for _, j := range coreJoints {
		if !f.Visible(j, MinVisibility) {
			return Measurements{}
		}
	}

	ls := f.Landmarks[LeftShoulder]
	rs := f.Landmarks[RightShoulder]
	lh := f.Landmarks[LeftHip]
	rh := f.Landmarks[RightHip]
	lk := f.Landmarks[LeftKnee]
	rk := f.Landmarks[RightKnee]
	la := f.Landmarks[LeftAnkle]
	ra := f.Landmarks[RightAnkle]

	m := Measurements{
		Visible:           true,
		LeftKneeAngleDeg:  angleAtDeg(lh, lk, la),
		RightKneeAngleDeg: angleAtDeg(rh, rk, ra),
		HipMidX:           (lh.X + rh.X) / 2,
		HipMidY:           (lh.Y + rh.Y) / 2,
		LeftAnkleX:        la.X,
		LeftAnkleY:        la.Y,
		RightAnkleX:       ra.X,
		RightAnkleY:       ra.Y,
	}

	m.TrunkLeanDeg = leanFromVerticalDeg(
		(ls.X+rs.X)/2, (ls.Y+rs.Y)/2,
		m.HipMidX, m.HipMidY,
	)

	// Arms are optional: a frame with the arms out of view still evaluates,
	// the arm angles just read zero.
	if f.Visible(LeftElbow, MinVisibility) {
		le := f.Landmarks[LeftElbow]
		m.LeftShoulderFlexionDeg = angleAtDeg(lh, ls, le)
		if f.Visible(LeftWrist, MinVisibility) {
			m.LeftElbowAngleDeg = angleAtDeg(ls, le, f.Landmarks[LeftWrist])
		}
	}
	if f.Visible(RightElbow, MinVisibility) {
		re := f.Landmarks[RightElbow]
		m.RightShoulderFlexionDeg = angleAtDeg(rh, rs, re)
		if f.Visible(RightWrist, MinVisibility) {
			m.RightElbowAngleDeg = angleAtDeg(rs, re, f.Landmarks[RightWrist])
		}
	}

	if nose, ok := f.At(Nose); ok && nose.Visibility >= MinVisibility {
		if f.Visible(LeftWrist, MinVisibility) && f.Visible(RightWrist, MinVisibility) {
			m.ArmsOverhead = f.Landmarks[LeftWrist].Y < nose.Y && f.Landmarks[RightWrist].Y < nose.Y
		}
		m.BodyHeightNorm = math.Max(la.Y, ra.Y) - nose.Y
	}

	m.LeftHeelLifted = heelLifted(f, LeftHeel, LeftFootTip)
	m.RightHeelLifted = heelLifted(f, RightHeel, RightFootTip)

	kneeSep := math.Abs(lk.X - rk.X)
	ankleSep := math.Abs(la.X - ra.X)
	if ankleSep > minAnkleSeparation {
		m.KneeValgus = kneeSep < valgusSeparationFactor*ankleSep
	}

	return m
}

// heelLifted reports whether the heel sits above the toe by the lift gap.
func heelLifted(f Frame, heel, tip Joint) bool {
	if !f.Visible(heel, MinVisibility) || !f.Visible(tip, MinVisibility) {
		return false
	}
	return f.Landmarks[tip].Y-f.Landmarks[heel].Y > heelLiftGap
}

// angleAtDeg returns the interior angle at b formed by the segments b-a and
// b-c, in degrees. Degenerate (zero-length) segments yield 0.
func angleAtDeg(a, b, c Landmark) float64 {
	ux, uy := a.X-b.X, a.Y-b.Y
	vx, vy := c.X-b.X, c.Y-b.Y
	un := math.Hypot(ux, uy)
	vn := math.Hypot(vx, vy)
	if un == 0 || vn == 0 {
		return 0
	}
	cos := (ux*vx + uy*vy) / (un * vn)
	cos = math.Max(-1, math.Min(1, cos))
	return math.Acos(cos) * degPerRad
}

// leanFromVerticalDeg returns the absolute tilt of the segment from (bx, by)
// up to (tx, ty) relative to the image vertical, in degrees.
func leanFromVerticalDeg(tx, ty, bx, by float64) float64 {
	dx := math.Abs(tx - bx)
	dy := math.Abs(ty - by)
	if dx == 0 && dy == 0 {
		return 0
	}
	return math.Atan2(dx, dy) * degPerRad
}
