// Package pose defines the landmark input contract shared with the external
// pose-estimation provider, and derives the per-frame kinematic measurements
// the task evaluators consume.
package pose

import (
	"time"
)

// Joint identifies a tracked anatomical point in the fixed skeletal
// vocabulary. The set is closed; providers map their own indices onto it.
type Joint int

// Skeletal joint vocabulary.
const (
	Nose Joint = iota
	LeftShoulder
	RightShoulder
	LeftElbow
	RightElbow
	LeftWrist
	RightWrist
	LeftHip
	RightHip
	LeftKnee
	RightKnee
	LeftAnkle
	RightAnkle
	LeftHeel
	RightHeel
	LeftFootTip
	RightFootTip

	jointCount // sentinel, keep last
)

var jointNames = map[Joint]string{
	Nose:          "nose",
	LeftShoulder:  "left_shoulder",
	RightShoulder: "right_shoulder",
	LeftElbow:     "left_elbow",
	RightElbow:    "right_elbow",
	LeftWrist:     "left_wrist",
	RightWrist:    "right_wrist",
	LeftHip:       "left_hip",
	RightHip:      "right_hip",
	LeftKnee:      "left_knee",
	RightKnee:     "right_knee",
	LeftAnkle:     "left_ankle",
	RightAnkle:    "right_ankle",
	LeftHeel:      "left_heel",
	RightHeel:     "right_heel",
	LeftFootTip:   "left_foot_tip",
	RightFootTip:  "right_foot_tip",
}

func (j Joint) String() string {
	if name, ok := jointNames[j]; ok {
		return name
	}
	return "unknown"
}

// Landmark is a single joint observation in normalized image coordinates.
// X grows rightward and Y grows downward, both in [0,1]. Visibility is the
// provider's confidence that the joint is genuinely in frame.
type Landmark struct {
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	Visibility float64 `json:"visibility"`
}

// Frame is one immutable pose snapshot, produced once per camera frame.
// Joints absent from the map were not detected at all.
type Frame struct {
	Landmarks map[Joint]Landmark
}

// NewFrame returns an empty frame ready for Set calls.
func NewFrame() Frame {
	return Frame{Landmarks: make(map[Joint]Landmark, int(jointCount))}
}

// Set records a landmark observation on the frame.
func (f Frame) Set(j Joint, x, y, visibility float64) Frame {
	f.Landmarks[j] = Landmark{X: x, Y: y, Visibility: visibility}
	return f
}

// At returns the landmark for a joint and whether it was detected.
func (f Frame) At(j Joint) (Landmark, bool) {
	lm, ok := f.Landmarks[j]
	return lm, ok
}

// Visible reports whether the joint was detected with at least min confidence.
func (f Frame) Visible(j Joint, min float64) bool {
	lm, ok := f.Landmarks[j]
	return ok && lm.Visibility >= min
}

// Sample pairs a frame with its capture timestamp and its derived
// measurements. Samples must be delivered to an evaluator in non-decreasing
// timestamp order.
type Sample struct {
	At           time.Time
	Frame        Frame
	Measurements Measurements
}

// NewSample derives measurements from the frame and bundles everything an
// evaluator needs for one Update call.
func NewSample(at time.Time, frame Frame) Sample {
	return Sample{At: at, Frame: frame, Measurements: Measure(frame)}
}
