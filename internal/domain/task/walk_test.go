package task_test

import (
	"testing"

	"github.com/virtualmirror/kinescreen/internal/domain/pose"
	"github.com/virtualmirror/kinescreen/internal/domain/task"
	. "github.com/smartystreets/goconvey/convey"
)

// strideCycle is one left step and one right step: three swing frames per
// foot followed by the plant. At 50ms frames the same foot plants 400ms
// apart, comfortably past the step debounce.
func strideCycle() []pose.Frame {
	return seq(
		repeat(3, figure{liftLeft: 0.06}),
		repeat(1, figure{}),
		repeat(3, figure{liftRight: 0.06}),
		repeat(1, figure{}),
	)
}

func TestWalk(t *testing.T) {
	Convey("Given a school-age child walking cleanly", t, func() {
		e := task.NewWalk(task.Params{AgeYears: 6})
		frames := seq(
			strideCycle(), strideCycle(), strideCycle(), strideCycle(), strideCycle(),
		)
		updates := playAll(e, frames)
		last := updates[len(updates)-1]

		Convey("Then ten steps complete the task with a clean score", func() {
			So(last.Done, ShouldBeTrue)
			So(last.Level, ShouldEqual, task.LevelSuccess)
			So(last.Metrics["stepCount"], ShouldEqual, 10)
			So(last.Metrics["leftSteps"], ShouldEqual, 5)
			So(last.Metrics["rightSteps"], ShouldEqual, 5)
			So(last.Metrics["walkScore"], ShouldEqual, 2)
			So(last.Metrics["unstableRatio"], ShouldEqual, 0)
			So(last.Metrics["balanceLossCount"], ShouldEqual, 0)
		})

		Convey("And both stride amplitudes read the same", func() {
			So(last.Metrics["gaitSymmetryPct"], ShouldEqual, 0)
			So(last.Metrics["stepAmplitudeLeft"], ShouldEqual, last.Metrics["stepAmplitudeRight"])
		})
	})

	Convey("Given a toddler", t, func() {
		e := task.NewWalk(task.Params{AgeYears: 2})
		updates := playAll(e, seq(strideCycle(), strideCycle(), strideCycle()))

		Convey("Then five steps already complete the task", func() {
			idx := firstDone(updates)
			So(idx, ShouldNotEqual, -1)
			So(updates[idx].Metrics["stepCount"], ShouldEqual, 5)
			So(updates[idx].Metrics["targetSteps"], ShouldEqual, 5)
		})
	})

	Convey("Given a foot bouncing on the spot within the debounce window", t, func() {
		e := task.NewWalk(task.Params{AgeYears: 6})
		frames := seq(
			repeat(1, figure{liftLeft: 0.06}),
			repeat(1, figure{}),
			repeat(1, figure{liftLeft: 0.06}),
			repeat(1, figure{}),
		)
		u := play(e, frames)

		Convey("Then the jitter counts as a single step", func() {
			So(u.Metrics["stepCount"], ShouldEqual, 1)
		})
	})

	Convey("Given a walk that ends after three steps", t, func() {
		e := task.NewWalk(task.Params{AgeYears: 6})
		frames := seq(
			strideCycle(),
			repeat(3, figure{liftLeft: 0.06}),
			repeat(1, figure{}),
			repeat(10, figure{}),
		)
		u := play(e, frames)

		Convey("Then the attempt scores 1", func() {
			So(u.Done, ShouldBeFalse)
			So(u.Metrics["stepCount"], ShouldEqual, 3)
			So(u.Metrics["walkScore"], ShouldEqual, 1)
		})
	})

	Convey("Given a walk with under three steps", t, func() {
		e := task.NewWalk(task.Params{AgeYears: 6})
		u := play(e, seq(strideCycle(), repeat(5, figure{})))

		Convey("Then the attempt scores 0", func() {
			So(u.Metrics["stepCount"], ShouldEqual, 2)
			So(u.Metrics["walkScore"], ShouldEqual, 0)
		})
	})

	Convey("Given heavy, sustained trunk lean while walking", t, func() {
		e := task.NewWalk(task.Params{AgeYears: 6})
		updates := playAll(e, repeat(25, figure{leanDeg: 30}))
		last := updates[len(updates)-1]

		Convey("Then unstable frames and debounced balance losses are counted", func() {
			So(updates[0].Level, ShouldEqual, task.LevelWarning)
			So(updates[0].Message, ShouldEqual, "Walk slowly and stay steady")
			So(last.Metrics["unstableRatio"], ShouldEqual, 1)
			So(last.Metrics["balanceLossCount"], ShouldEqual, 2)
		})
	})

	Convey("Given step progress messages", t, func() {
		e := task.NewWalk(task.Params{AgeYears: 6})
		updates := playAll(e, strideCycle())

		Convey("Then the count shows up after the first plant", func() {
			So(updates[3].Message, ShouldEqual, "1 steps, keep going!")
			So(updates[7].Message, ShouldEqual, "2 steps, keep going!")
		})
	})
}
