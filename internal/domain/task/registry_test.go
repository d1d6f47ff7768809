package task_test

import (
	"errors"
	"testing"

	"github.com/virtualmirror/kinescreen/internal/domain/pose"
	"github.com/virtualmirror/kinescreen/internal/domain/task"
	. "github.com/smartystreets/goconvey/convey"
)

func TestKinds(t *testing.T) {
	Convey("Given the task vocabulary", t, func() {
		Convey("Then the canonical order covers all six tasks", func() {
			So(task.Kinds(), ShouldResemble, []task.Kind{
				task.ArmRaise, task.OneLeg, task.Walk, task.Jump, task.TipToe, task.Squat,
			})
		})

		Convey("Then known names parse", func() {
			k, err := task.ParseKind("one_leg")
			So(err, ShouldBeNil)
			So(k, ShouldEqual, task.OneLeg)
		})

		Convey("Then unknown names are rejected", func() {
			_, err := task.ParseKind("cartwheel")
			So(err, ShouldNotBeNil)
			So(errors.Is(err, task.ErrUnknownKind), ShouldBeTrue)
		})

		Convey("Then each kind names its explicit score key", func() {
			So(task.ArmRaise.ScoreKey(), ShouldEqual, "armRaiseScore")
			So(task.OneLeg.ScoreKey(), ShouldEqual, "oneLegScore")
			So(task.Walk.ScoreKey(), ShouldEqual, "walkScore")
			So(task.Jump.ScoreKey(), ShouldEqual, "jumpScore")
			So(task.TipToe.ScoreKey(), ShouldEqual, "tiptoeScore")
			So(task.Squat.ScoreKey(), ShouldEqual, "squatScore")
			So(task.Kind("cartwheel").ScoreKey(), ShouldEqual, "score")
		})
	})
}

func TestRegistry(t *testing.T) {
	Convey("Given a registry with default options", t, func() {
		r := task.NewRegistry()

		Convey("Then it carries all six evaluators in order", func() {
			So(r.Kinds(), ShouldHaveLength, 6)
			for _, k := range r.Kinds() {
				ev, ok := r.Evaluator(k)
				So(ok, ShouldBeTrue)
				So(ev.Kind(), ShouldEqual, k)
			}
		})

		Convey("Then unknown kinds are not served", func() {
			_, ok := r.Evaluator(task.Kind("cartwheel"))
			So(ok, ShouldBeFalse)
			So(r.Reset(task.Kind("cartwheel")), ShouldBeFalse)
		})

		Convey("Then the default parameters apply", func() {
			So(r.Params().Language, ShouldEqual, task.LangEnglish)
			So(r.Params().AgeYears, ShouldEqual, 0)
		})
	})

	Convey("Given a registry tuned for a toddler", t, func() {
		r := task.NewRegistry(
			task.WithAge(3),
			task.WithHeightCM(95),
			task.WithLanguage(task.LangArabic),
		)

		Convey("Then the balance evaluator uses the reduced target", func() {
			ev, _ := r.Evaluator(task.OneLeg)
			u := ev.Update(pose.NewSample(testBase, figure{liftLeft: 0.1}.frame()))
			So(u.Metrics["targetSeconds"], ShouldEqual, 3)
		})

		Convey("Then voice guidance speaks the configured language", func() {
			ev, _ := r.Evaluator(task.Squat)
			u := ev.Update(pose.NewSample(testBase, figure{}.frame()))
			So(u.VoiceText, ShouldEqual, "اثن ركبتيك واجلس مثل الضفدع")

			next := ev.Update(pose.NewSample(testBase.Add(frameDT), figure{}.frame()))
			So(next.VoiceText, ShouldBeEmpty)
		})
	})

	Convey("Given invalid option values", t, func() {
		r := task.NewRegistry(
			task.WithAge(-1),
			task.WithHeightCM(0),
			task.WithLanguage(""),
		)

		Convey("Then the defaults are kept", func() {
			So(r.Params().AgeYears, ShouldEqual, 0)
			So(r.Params().HeightCM, ShouldEqual, 0)
			So(r.Params().Language, ShouldEqual, task.LangEnglish)
		})
	})

	Convey("Given a finished evaluator in the registry", t, func() {
		r := task.NewRegistry()
		ev, _ := r.Evaluator(task.ArmRaise)
		u := play(ev, repeat(25, figure{armDeg: 165}))
		So(u.Done, ShouldBeTrue)

		Convey("When resetting it through the registry", func() {
			So(r.Reset(task.ArmRaise), ShouldBeTrue)

			Convey("Then it evaluates a fresh attempt", func() {
				u := ev.Update(pose.NewSample(testBase, figure{}.frame()))
				So(u.Done, ShouldBeFalse)
				So(u.Metrics["holdSeconds"], ShouldEqual, 0)
			})
		})
	})

	Convey("Given every evaluator mid-attempt", t, func() {
		r := task.NewRegistry()

		for _, k := range r.Kinds() {
			ev, _ := r.Evaluator(k)
			play(ev, repeat(5, figure{}))

			Convey("When "+k.String()+" is stopped twice", func() {
				ev.Stop()
				ev.Stop()

				Convey("Then further samples return the frozen snapshot", func() {
					u := play(ev, repeat(3, figure{armDeg: 165, liftLeft: 0.06, kneeDeg: 95, heelsUp: true}))
					So(u.Done, ShouldBeFalse)
					So(u.Message, ShouldEqual, "All done!")
				})

				Convey("And Start begins a fresh running attempt", func() {
					ev.Start()
					u := play1(ev, 0, figure{})
					So(u.Done, ShouldBeFalse)
					So(u.Message, ShouldNotEqual, "All done!")
				})
			})
		}
	})

	Convey("Given an unsupported voice language", t, func() {
		ev := task.NewOneLeg(task.Params{Language: "fi"})
		u := ev.Update(pose.NewSample(testBase, figure{}.frame()))

		Convey("Then guidance falls back to English", func() {
			So(u.VoiceText, ShouldEqual, "Stand on one leg like a flamingo")
		})
	})
}
