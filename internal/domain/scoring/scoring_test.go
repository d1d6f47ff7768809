package scoring_test

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/virtualmirror/kinescreen/internal/domain/scoring"
	"github.com/virtualmirror/kinescreen/internal/domain/task"
)

func TestExtract(t *testing.T) {
	Convey("Given a result with an explicit score", t, func() {
		Convey("When the kind-specific key is present", func() {
			got := scoring.Extract(task.OneLeg, map[string]float64{
				"oneLegScore": 2,
				"score":       0,
			})

			Convey("Then the kind-specific key wins", func() {
				So(got, ShouldEqual, 2)
			})
		})

		Convey("When only the generic score key is present", func() {
			Convey("Then the value is rounded to the nearest point", func() {
				So(scoring.Extract(task.Walk, map[string]float64{"score": 1.4}), ShouldEqual, 1)
				So(scoring.Extract(task.Walk, map[string]float64{"score": 1.5}), ShouldEqual, 2)
			})

			Convey("Then out-of-range values clamp to the rubric bounds", func() {
				So(scoring.Extract(task.Walk, map[string]float64{"score": 7}), ShouldEqual, 2)
				So(scoring.Extract(task.Walk, map[string]float64{"score": -3}), ShouldEqual, 0)
			})
		})
	})

	Convey("Given a result with no metrics at all", t, func() {
		Convey("When the kind is known", func() {
			Convey("Then the attempt reads as skipped and scores zero", func() {
				So(scoring.Extract(task.Jump, nil), ShouldEqual, 0)
				So(scoring.Extract(task.Squat, map[string]float64{}), ShouldEqual, 0)
			})
		})

		Convey("When the kind is unknown", func() {
			Convey("Then the result scores a neutral one", func() {
				So(scoring.Extract(task.Kind("cartwheel"), nil), ShouldEqual, 1)
			})
		})
	})
}

func TestInferArmRaise(t *testing.T) {
	Convey("Given raw arms-overhead metrics without a score key", t, func() {
		Convey("When the hold was full and the elbows straight", func() {
			got := scoring.Extract(task.ArmRaise, map[string]float64{
				"leftShoulderMaxDeg":  168,
				"rightShoulderMaxDeg": 165,
				"elbowExtensionDeg":   172,
				"holdSeconds":         1.2,
				"compensationRatio":   0.1,
			})

			So(got, ShouldEqual, 2)
		})

		Convey("When trunk compensation dominated a completed raise", func() {
			got := scoring.Infer(task.ArmRaise, map[string]float64{
				"leftShoulderMaxDeg": 168,
				"elbowExtensionDeg":  172,
				"holdSeconds":        1.2,
				"compensationRatio":  0.4,
			})

			Convey("Then the raise keeps its point but loses the clean score", func() {
				So(got, ShouldEqual, 1)
			})
		})

		Convey("When compensation dominated and no arm cleared partial range", func() {
			got := scoring.Infer(task.ArmRaise, map[string]float64{
				"leftShoulderMaxDeg": 70,
				"compensationRatio":  0.4,
			})

			So(got, ShouldEqual, 0)
		})

		Convey("When one arm cleared ninety degrees", func() {
			So(scoring.Infer(task.ArmRaise, map[string]float64{"rightShoulderMaxDeg": 120}), ShouldEqual, 1)
		})

		Convey("When neither arm got far", func() {
			So(scoring.Infer(task.ArmRaise, map[string]float64{"leftShoulderMaxDeg": 60}), ShouldEqual, 0)
		})
	})
}

func TestInferBalance(t *testing.T) {
	Convey("Given raw one-leg metrics", t, func() {
		Convey("When the hold met its recorded target cleanly", func() {
			got := scoring.Infer(task.OneLeg, map[string]float64{
				"holdSeconds":     5,
				"targetSeconds":   5,
				"maxTrunkLeanDeg": 8,
				"swayRatio":       0.02,
			})

			So(got, ShouldEqual, 2)
		})

		Convey("When half the target was held despite a heavy lean", func() {
			got := scoring.Infer(task.OneLeg, map[string]float64{
				"holdSeconds":     2.6,
				"targetSeconds":   5,
				"maxTrunkLeanDeg": 35,
				"swayRatio":       0.4,
			})

			So(got, ShouldEqual, 1)
		})

		Convey("When the target is missing the default applies", func() {
			got := scoring.Infer(task.OneLeg, map[string]float64{
				"holdSeconds":     5,
				"maxTrunkLeanDeg": 5,
			})

			So(got, ShouldEqual, 2)
		})

		Convey("When the foot barely left the ground", func() {
			So(scoring.Infer(task.OneLeg, map[string]float64{"holdSeconds": 0.5}), ShouldEqual, 0)
		})
	})
}

func TestInferGait(t *testing.T) {
	Convey("Given raw walk metrics", t, func() {
		steady := map[string]float64{
			"stepCount":        10,
			"targetSteps":      10,
			"unstableRatio":    0.1,
			"balanceLossCount": 1,
		}

		Convey("When the child walked the full line steadily", func() {
			So(scoring.Infer(task.Walk, steady), ShouldEqual, 2)
		})

		Convey("When balance was lost three times", func() {
			wobbly := map[string]float64{
				"stepCount":        10,
				"targetSteps":      10,
				"unstableRatio":    0.1,
				"balanceLossCount": 3,
			}

			So(scoring.Infer(task.Walk, wobbly), ShouldEqual, 1)
		})

		Convey("When only a few steps landed", func() {
			So(scoring.Infer(task.Walk, map[string]float64{"stepCount": 4}), ShouldEqual, 1)
			So(scoring.Infer(task.Walk, map[string]float64{"stepCount": 2}), ShouldEqual, 0)
		})
	})

	Convey("Given raw jump metrics", t, func() {
		Convey("When takeoff and landing were both two-footed", func() {
			got := scoring.Infer(task.Jump, map[string]float64{
				"airborneFrames":   5,
				"takeoffTwoFooted": 1,
				"landingTwoFooted": 1,
				"landingLeanDeg":   6,
			})

			So(got, ShouldEqual, 2)
		})

		Convey("When there was flight but a staggered landing", func() {
			got := scoring.Infer(task.Jump, map[string]float64{
				"airborneFrames":   4,
				"takeoffTwoFooted": 1,
				"landingTwoFooted": 0,
				"landingLeanDeg":   25,
			})

			So(got, ShouldEqual, 1)
		})

		Convey("When the feet never really left the ground", func() {
			So(scoring.Infer(task.Jump, map[string]float64{"airborneFrames": 2}), ShouldEqual, 0)
		})
	})
}

func TestInferPosture(t *testing.T) {
	Convey("Given raw tip-toe metrics", t, func() {
		Convey("When the full hold was clean", func() {
			got := scoring.Infer(task.TipToe, map[string]float64{
				"holdSeconds":     3,
				"targetSeconds":   3,
				"maxTrunkLeanDeg": 10,
				"movementRatio":   0.01,
				"heelDropRatio":   0,
			})

			So(got, ShouldEqual, 2)
		})

		Convey("When only half the hold was reached", func() {
			So(scoring.Infer(task.TipToe, map[string]float64{"holdSeconds": 1.6, "targetSeconds": 3}), ShouldEqual, 1)
		})

		Convey("When the heels dropped almost immediately", func() {
			So(scoring.Infer(task.TipToe, map[string]float64{"holdSeconds": 0.4, "targetSeconds": 3}), ShouldEqual, 0)
		})
	})

	Convey("Given raw squat metrics", t, func() {
		Convey("When a parallel squat was held with clean form", func() {
			got := scoring.Infer(task.Squat, map[string]float64{
				"minKneeAngleDeg": 92,
				"holdSeconds":     1.1,
				"valgusRatio":     0,
				"heelLiftRatio":   0,
			})

			So(got, ShouldEqual, 2)
		})

		Convey("When the squat was held but the knees caved", func() {
			got := scoring.Infer(task.Squat, map[string]float64{
				"minKneeAngleDeg": 92,
				"holdSeconds":     1.1,
				"valgusRatio":     0.3,
				"heelLiftRatio":   0,
			})

			So(got, ShouldEqual, 1)
		})

		Convey("When a clean partial squat was the best attempt", func() {
			got := scoring.Infer(task.Squat, map[string]float64{
				"minKneeAngleDeg": 120,
				"holdSeconds":     0.2,
				"valgusRatio":     0.05,
				"heelLiftRatio":   0,
			})

			So(got, ShouldEqual, 1)
		})

		Convey("When the knee angle is missing entirely", func() {
			So(scoring.Infer(task.Squat, map[string]float64{"holdSeconds": 2}), ShouldEqual, 0)
		})
	})

	Convey("Given a kind the rubric does not know", t, func() {
		So(scoring.Infer(task.Kind("cartwheel"), map[string]float64{"anything": 1}), ShouldEqual, 1)
	})
}
