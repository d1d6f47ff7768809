package simulate

import (
	"math"

	"github.com/virtualmirror/kinescreen/internal/domain/pose"
)

// Figure geometry in normalized image coordinates. Y grows downward; the
// child stands centered with the ankles near the bottom of the frame.
const (
	figCenterX    = 0.5
	figNoseLift   = 0.10 // nose above the shoulder line
	figShoulderDX = 0.06
	figHipY       = 0.55
	figHipDX      = 0.04
	figKneeY      = 0.72
	figAnkleY     = 0.88
	figTrunkLen   = 0.25
	figUpperArm   = 0.13
	figForearm    = 0.11

	// Crouch displacement at full knee bend: the hip drops while the knees
	// jut outward, putting the knee angle below parallel depth.
	figCrouchDrop = 0.10
	figKneeOut    = 0.08
	figKneeRise   = 0.02

	// A lifted leg bends at the knee: the knee swings outward and rises by
	// a fraction of the ankle lift.
	figLiftKneeOut  = 0.8
	figLiftKneeRise = 0.5

	// Heel and toe offsets around the ankle. A raised heel sits above the
	// toe by more than the kinematic lift gap; a planted one does not.
	figHeelBackX = 0.012
	figHeelDownY = 0.012
	figHeelUpY   = 0.02
	figToeAheadX = 0.02
	figToeDownY  = 0.018

	figVisibility = 0.95
	figHiddenVis  = 0.1

	degToRad = math.Pi / 180
)

// stance parameterizes one synthetic body position. The zero value is a
// child standing still, fully visible, arms hanging.
type stance struct {
	armFrac      float64 // 0 arms hanging, 1 arms straight overhead
	elbowBendDeg float64 // forearm deviation from a straight arm
	kneeBendFrac float64 // 0 standing, 1 parallel-depth squat
	leanDeg      float64 // trunk tilt from vertical
	liftLeft     float64 // left ankle raised by this image fraction
	liftRight    float64 // right ankle raised by this image fraction
	rise         float64 // whole-body lift while airborne
	shiftX       float64 // lateral drift of the whole figure
	heelsUp      bool
	hidden       bool // renders the child too faint to evaluate
}

// render materializes a stance as a landmark frame.
func render(st stance) pose.Frame {
	vis := figVisibility
	if st.hidden {
		vis = figHiddenVis
	}

	cx := figCenterX + st.shiftX
	hipY := figHipY + figCrouchDrop*st.kneeBendFrac - st.rise
	shoulderY := hipY - figTrunkLen
	leanDX := math.Tan(st.leanDeg*degToRad) * figTrunkLen

	f := pose.NewFrame()
	f = f.Set(pose.Nose, cx+leanDX, shoulderY-figNoseLift, vis)
	f = f.Set(pose.LeftShoulder, cx-figShoulderDX+leanDX, shoulderY, vis)
	f = f.Set(pose.RightShoulder, cx+figShoulderDX+leanDX, shoulderY, vis)
	f = f.Set(pose.LeftHip, cx-figHipDX, hipY, vis)
	f = f.Set(pose.RightHip, cx+figHipDX, hipY, vis)

	f = renderArm(f, st, -1, cx-figShoulderDX+leanDX, shoulderY, vis)
	f = renderArm(f, st, +1, cx+figShoulderDX+leanDX, shoulderY, vis)
	f = renderLeg(f, st, -1, st.liftLeft, vis)
	f = renderLeg(f, st, +1, st.liftRight, vis)
	return f
}

// renderArm places the elbow and wrist for one side. armFrac sweeps the
// upper arm from hanging (0) to straight overhead (1); the forearm follows
// at elbowBendDeg off the upper-arm line.
func renderArm(f pose.Frame, st stance, side, sx, sy, vis float64) pose.Frame {
	elbowJ, wristJ := pose.LeftElbow, pose.LeftWrist
	if side > 0 {
		elbowJ, wristJ = pose.RightElbow, pose.RightWrist
	}

	alpha := st.armFrac * math.Pi
	ex := sx + figUpperArm*math.Sin(alpha)*side
	ey := sy + figUpperArm*math.Cos(alpha)

	beta := alpha - st.elbowBendDeg*degToRad
	wx := ex + figForearm*math.Sin(beta)*side
	wy := ey + figForearm*math.Cos(beta)

	f = f.Set(elbowJ, ex, ey, vis)
	return f.Set(wristJ, wx, wy, vis)
}

// renderLeg places the knee, ankle, heel and foot tip for one side.
func renderLeg(f pose.Frame, st stance, side, lift, vis float64) pose.Frame {
	kneeJ, ankleJ, heelJ, toeJ := pose.LeftKnee, pose.LeftAnkle, pose.LeftHeel, pose.LeftFootTip
	if side > 0 {
		kneeJ, ankleJ, heelJ, toeJ = pose.RightKnee, pose.RightAnkle, pose.RightHeel, pose.RightFootTip
	}

	hx := figCenterX + st.shiftX + figHipDX*side
	kx := hx + (figKneeOut*st.kneeBendFrac+figLiftKneeOut*lift)*side
	ky := figKneeY - figKneeRise*st.kneeBendFrac - figLiftKneeRise*lift - st.rise
	ay := figAnkleY - st.rise - lift

	heelY := ay + figHeelDownY
	if st.heelsUp {
		heelY = ay - figHeelUpY
	}

	f = f.Set(kneeJ, kx, ky, vis)
	f = f.Set(ankleJ, hx, ay, vis)
	f = f.Set(heelJ, hx-figHeelBackX*side, heelY, vis)
	return f.Set(toeJ, hx+figToeAheadX*side, ay+figToeDownY, vis)
}

// squareWave alternates between +amp and -amp at the given frequency; the
// sway and drift scripts use it to generate per-frame hip movement.
func squareWave(tSec, hz, amp float64) float64 {
	if math.Sin(2*math.Pi*hz*tSec) >= 0 {
		return amp
	}
	return -amp
}
