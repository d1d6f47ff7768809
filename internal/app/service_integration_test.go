package service_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/virtualmirror/kinescreen/internal/adapters/repository"
	service "github.com/virtualmirror/kinescreen/internal/app"
	"github.com/virtualmirror/kinescreen/internal/domain/assessment"
	"github.com/virtualmirror/kinescreen/internal/domain/model"
	"github.com/virtualmirror/kinescreen/internal/domain/task"
	. "github.com/smartystreets/goconvey/convey"
)

// fullScreening covers all six tasks with clean attempts for a preschooler.
var fullScreening = []service.ResultInput{
	{Kind: task.ArmRaise, Metrics: map[string]float64{
		"leftShoulderMaxDeg": 155, "rightShoulderMaxDeg": 152,
		"elbowExtensionDeg": 172, "holdSeconds": 1.5,
		"compensationRatio": 0.1, "armRaiseScore": 2,
	}},
	{Kind: task.OneLeg, Metrics: map[string]float64{
		"holdSeconds": 6, "swayRatio": 0.05, "maxTrunkLeanDeg": 8, "oneLegScore": 2,
	}, DurationS: 6},
	{Kind: task.Walk, Metrics: map[string]float64{
		"stepCount": 12, "unstableRatio": 0.1, "balanceLossCount": 0,
		"gaitSymmetryPct": 5, "walkScore": 2,
	}},
	{Kind: task.Jump, Metrics: map[string]float64{
		"airborneFrames": 5, "jumpHeightPct": 9, "landingLeanDeg": 10, "jumpScore": 2,
	}},
	{Kind: task.TipToe, Metrics: map[string]float64{
		"holdSeconds": 4, "movementRatio": 0.02, "heelDropRatio": 0.02,
		"maxTrunkLeanDeg": 10, "tiptoeScore": 2,
	}, DurationS: 4},
	{Kind: task.Squat, Metrics: map[string]float64{
		"minKneeAngleDeg": 90, "holdSeconds": 2, "valgusRatio": 0.1,
		"heelLiftRatio": 0.05, "maxTrunkLeanDeg": 15, "squatScore": 2,
	}},
}

func TestServiceIntegration(t *testing.T) {
	Convey("Given a service backed by a SQLite file", t, func() {
		dbPath := filepath.Join(t.TempDir(), "screenings.db")
		svc := service.New(service.WithDBPath(dbPath))
		defer svc.Stop()

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		err := svc.Start(ctx)
		So(err, ShouldBeNil)

		Convey("When running a full screening end-to-end", func() {
			sess, err := svc.CreateSession(ctx, model.Child{
				Name:     "Lina",
				AgeYears: 5,
				HeightCM: 110,
				WeightKG: 19.5,
				Gender:   "female",
			}, model.SessionInitial, "")
			So(err, ShouldBeNil)

			for _, in := range fullScreening {
				_, err := svc.RecordResult(ctx, sess.ID, in)
				So(err, ShouldBeNil)
			}

			Convey("Then the summary should read clean across all tasks", func() {
				out, err := svc.Summarize(ctx, sess.ID)
				So(err, ShouldBeNil)
				So(len(out.Summary.Tasks), ShouldEqual, 6)
				So(out.Summary.TotalScore, ShouldEqual, 12)
				So(out.Summary.MaxScore, ShouldEqual, 12)
				So(out.Summary.Percentage, ShouldEqual, 100)
				So(out.Summary.Risk, ShouldEqual, assessment.RiskNormal)
				So(out.Norms, ShouldNotBeNil)
				So(out.Norms.AgeGroup, ShouldEqual, "5-7")

				Convey("And the report should assemble from the stored state", func() {
					rep, err := svc.Report(ctx, sess.ID)
					So(err, ShouldBeNil)
					So(len(rep.Results), ShouldEqual, 6)
					So(rep.Session.Completed(), ShouldBeTrue)
					So(rep.Summary.Risk, ShouldEqual, assessment.RiskNormal)
				})

				Convey("And the outcome should survive a restart", func() {
					svc.Stop()

					reopened := service.New(service.WithDBPath(dbPath))
					So(reopened.Start(ctx), ShouldBeNil)
					defer reopened.Stop()

					got, err := reopened.Session(ctx, sess.ID)
					So(err, ShouldBeNil)
					So(got.Completed(), ShouldBeTrue)
					So(got.RiskLevel, ShouldEqual, "normal")
					So(got.OverallPct, ShouldEqual, 100)

					results, err := reopened.Results(ctx, sess.ID)
					So(err, ShouldBeNil)
					So(len(results), ShouldEqual, 6)
				})
			})
		})

		Convey("When a screening scores poorly on critical tasks", func() {
			sess, err := svc.CreateSession(ctx, model.Child{Name: "Omar", AgeYears: 4}, model.SessionInitial, "")
			So(err, ShouldBeNil)

			_, err = svc.RecordResult(ctx, sess.ID, service.ResultInput{
				Kind:    task.Walk,
				Metrics: map[string]float64{"walkScore": 0, "stepCount": 2},
			})
			So(err, ShouldBeNil)
			_, err = svc.RecordResult(ctx, sess.ID, service.ResultInput{
				Kind:    task.OneLeg,
				Metrics: map[string]float64{"oneLegScore": 0, "holdSeconds": 0.4},
			})
			So(err, ShouldBeNil)

			Convey("Then the risk should flag high", func() {
				out, err := svc.Summarize(ctx, sess.ID)
				So(err, ShouldBeNil)
				So(out.Summary.Risk, ShouldEqual, assessment.RiskHigh)
				So(len(out.Summary.Recommendations), ShouldBeGreaterThan, 0)
			})
		})

		Convey("When chaining a follow-up screening", func() {
			parent, err := svc.CreateSession(ctx, model.Child{Name: "Sara", AgeYears: 8}, model.SessionInitial, "")
			So(err, ShouldBeNil)
			follow, err := svc.CreateSession(ctx, model.Child{Name: "Sara", AgeYears: 8}, model.SessionFollowup, parent.ID)
			So(err, ShouldBeNil)

			Convey("Then the parent should list it", func() {
				followups, err := svc.Followups(ctx, parent.ID)
				So(err, ShouldBeNil)
				So(len(followups), ShouldEqual, 1)
				So(followups[0].ID, ShouldEqual, follow.ID)
				So(followups[0].Type, ShouldEqual, model.SessionFollowup)
			})

			Convey("Then deleting the parent should leave the follow-up unlinked", func() {
				So(svc.DeleteSession(ctx, parent.ID), ShouldBeNil)

				_, err := svc.Session(ctx, parent.ID)
				So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)

				kept, err := svc.Session(ctx, follow.ID)
				So(err, ShouldBeNil)
				So(kept.ParentSessionID, ShouldBeEmpty)
			})
		})
	})
}

func TestServiceMaintenance(t *testing.T) {
	Convey("Given a store holding a stale incomplete session", t, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		store := repository.NewMemoryStore()
		completed := time.Now().UTC().Add(-90 * time.Minute)
		So(store.CreateSession(ctx, model.Session{
			ID:        "stale",
			DisplayID: 1111,
			StartedAt: time.Now().UTC().Add(-2 * time.Hour),
		}), ShouldBeNil)
		So(store.CreateSession(ctx, model.Session{
			ID:          "done",
			DisplayID:   2222,
			StartedAt:   time.Now().UTC().Add(-2 * time.Hour),
			CompletedAt: &completed,
			RiskLevel:   "normal",
			OverallPct:  90,
		}), ShouldBeNil)

		Convey("When the maintenance loop runs with an hour of retention", func() {
			svc := service.New(
				service.WithStore(store),
				service.WithRetention(time.Hour),
				service.WithMaintenanceInterval(20*time.Millisecond),
			)
			So(svc.Start(ctx), ShouldBeNil)
			defer svc.Stop()

			// Give the loop time to tick
			time.Sleep(100 * time.Millisecond)

			Convey("Then the stale session should be gone", func() {
				_, err := svc.Session(ctx, "stale")
				So(err, ShouldNotBeNil)
				So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)
			})

			Convey("And the completed session should survive", func() {
				got, err := svc.Session(ctx, "done")
				So(err, ShouldBeNil)
				So(got.RiskLevel, ShouldEqual, "normal")
			})
		})
	})
}
