package task_test

import (
	"math"
	"time"

	"github.com/virtualmirror/kinescreen/internal/domain/pose"
	"github.com/virtualmirror/kinescreen/internal/domain/task"
)

// frameDT is the synthetic camera frame spacing: 20fps keeps hold targets a
// round number of frames.
const frameDT = 50 * time.Millisecond

var testBase = time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)

// figure builds synthetic landmark frames for a child facing the camera.
// The zero value is a neutral standing pose; fields bend it. Legs are
// ankle-anchored: bending the knees drops the hips and keeps the feet on
// the floor, like a real squat.
type figure struct {
	armDeg      float64 // shoulder flexion for both arms, 0 = hanging
	armRightDeg float64 // overrides the right arm when non-zero
	elbowBent   bool
	leanDeg     float64
	kneeDeg     float64 // interior knee angle, 0 = straight
	liftLeft    float64 // single ankle raises, normalized units
	liftRight   float64
	rise        float64 // whole-body flight rise
	heelsUp     bool
	shiftX      float64 // horizontal shift of the whole body
}

func (fg figure) frame() pose.Frame {
	const (
		vis      = 0.99
		legSeg   = 0.2
		upperArm = 0.13
		foreArm  = 0.12
		floorY   = 0.92
	)

	knee := fg.kneeDeg
	if knee <= 0 {
		knee = 180
	}
	alpha := (180 - knee) / 2 * math.Pi / 180
	dxLeg := legSeg * math.Sin(alpha)
	dyLeg := legSeg * math.Cos(alpha)

	// Hips drop as the knees bend so the ankles stay at floor level.
	hipY := floorY - 2*dyLeg
	shoulderY := hipY - 0.27
	noseY := hipY - 0.42
	leanShift := math.Tan(fg.leanDeg*math.Pi/180) * 0.27

	f := pose.NewFrame()
	f = f.Set(pose.Nose, 0.50+fg.shiftX+leanShift, noseY, vis)

	lshX := 0.56 + fg.shiftX + leanShift
	rshX := 0.44 + fg.shiftX + leanShift
	f = f.Set(pose.LeftShoulder, lshX, shoulderY, vis)
	f = f.Set(pose.RightShoulder, rshX, shoulderY, vis)

	lhpX := 0.54 + fg.shiftX
	rhpX := 0.46 + fg.shiftX
	f = f.Set(pose.LeftHip, lhpX, hipY, vis)
	f = f.Set(pose.RightHip, rhpX, hipY, vis)

	// Left leg. Knees swing outward as they bend.
	leftRaise := fg.liftLeft + fg.rise
	f = f.Set(pose.LeftKnee, lhpX+dxLeg, hipY+dyLeg-leftRaise/2, vis)
	lankY := hipY + 2*dyLeg - leftRaise
	f = f.Set(pose.LeftAnkle, lhpX, lankY, vis)

	// Right leg.
	rightRaise := fg.liftRight + fg.rise
	f = f.Set(pose.RightKnee, rhpX-dxLeg, hipY+dyLeg-rightRaise/2, vis)
	rankY := hipY + 2*dyLeg - rightRaise
	f = f.Set(pose.RightAnkle, rhpX, rankY, vis)

	// Feet follow their ankles; heelsUp puts the heel above the toe.
	heelDY, tipDY := 0.025, 0.030
	if fg.heelsUp {
		heelDY, tipDY = -0.020, 0.035
	}
	f = f.Set(pose.LeftHeel, lhpX+0.005, lankY+heelDY, vis)
	f = f.Set(pose.LeftFootTip, lhpX+0.020, lankY+tipDY, vis)
	f = f.Set(pose.RightHeel, rhpX-0.005, rankY+heelDY, vis)
	f = f.Set(pose.RightFootTip, rhpX-0.020, rankY+tipDY, vis)

	// Arms swing outward from the shoulders; 0 degrees hangs, 180 points up.
	leftDeg := fg.armDeg
	if leftDeg <= 0 {
		leftDeg = 5
	}
	rightDeg := fg.armRightDeg
	if rightDeg <= 0 {
		rightDeg = leftDeg
	}

	lrad := leftDeg * math.Pi / 180
	lex := lshX + upperArm*math.Sin(lrad)
	ley := shoulderY + upperArm*math.Cos(lrad)
	f = f.Set(pose.LeftElbow, lex, ley, vis)
	if fg.elbowBent {
		f = f.Set(pose.LeftWrist, lex+foreArm*math.Cos(lrad), ley-foreArm*math.Sin(lrad), vis)
	} else {
		f = f.Set(pose.LeftWrist, lex+foreArm*math.Sin(lrad), ley+foreArm*math.Cos(lrad), vis)
	}

	rrad := rightDeg * math.Pi / 180
	rex := rshX - upperArm*math.Sin(rrad)
	rey := shoulderY + upperArm*math.Cos(rrad)
	f = f.Set(pose.RightElbow, rex, rey, vis)
	if fg.elbowBent {
		f = f.Set(pose.RightWrist, rex-foreArm*math.Cos(rrad), rey-foreArm*math.Sin(rrad), vis)
	} else {
		f = f.Set(pose.RightWrist, rex-foreArm*math.Sin(rrad), rey+foreArm*math.Cos(rrad), vis)
	}

	return f
}

// blank is a frame with nothing detected.
func blank() pose.Frame {
	return pose.NewFrame()
}

// repeat returns n frames of the same posture.
func repeat(n int, fg figure) []pose.Frame {
	out := make([]pose.Frame, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, fg.frame())
	}
	return out
}

// seq concatenates frame slices.
func seq(parts ...[]pose.Frame) []pose.Frame {
	var out []pose.Frame
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

// play feeds frames at the synthetic frame rate and returns the last update.
func play(e task.Evaluator, frames []pose.Frame) task.Update {
	var u task.Update
	for i, fr := range frames {
		u = e.Update(pose.NewSample(testBase.Add(time.Duration(i)*frameDT), fr))
	}
	return u
}

// play1 feeds the i-th frame of a synthetic sequence.
func play1(e task.Evaluator, i int, fg figure) task.Update {
	return e.Update(pose.NewSample(testBase.Add(time.Duration(i)*frameDT), fg.frame()))
}

// playAll feeds frames and returns every update.
func playAll(e task.Evaluator, frames []pose.Frame) []task.Update {
	out := make([]task.Update, 0, len(frames))
	for i, fr := range frames {
		out = append(out, e.Update(pose.NewSample(testBase.Add(time.Duration(i)*frameDT), fr)))
	}
	return out
}

// firstDone returns the index of the first done update, or -1.
func firstDone(updates []task.Update) int {
	for i, u := range updates {
		if u.Done {
			return i
		}
	}
	return -1
}
