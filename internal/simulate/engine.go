package simulate

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/virtualmirror/kinescreen/internal/adapters/stream"
	"github.com/virtualmirror/kinescreen/internal/domain/assessment"
	"github.com/virtualmirror/kinescreen/internal/domain/pose"
	"github.com/virtualmirror/kinescreen/internal/domain/scoring"
	"github.com/virtualmirror/kinescreen/internal/domain/task"
	"github.com/virtualmirror/kinescreen/pkg/logger"
)

// runAttempts drives every configured task through the stream adapter and
// returns one attempt record per task.
func runAttempts(ctx context.Context, cfg *Config, stats *Stats) ([]Attempt, error) {
	reg := task.NewRegistry(
		task.WithAge(cfg.AgeYears),
		task.WithHeightCM(cfg.HeightCM),
		task.WithLanguage(cfg.Language),
	)

	attempts := make([]Attempt, 0, len(cfg.Tasks))
	for _, kind := range cfg.Tasks {
		a, err := runAttempt(ctx, cfg, reg, kind)
		if err != nil {
			return nil, fmt.Errorf("attempt %s: %w", kind, err)
		}
		attempts = append(attempts, a)

		stats.TasksRun++
		if a.Completed {
			stats.TasksCompleted++
		}
		stats.FramesFed += a.Frames

		logger.Get().Info(ctx, "attempt finished",
			logger.String("task", kind.String()),
			logger.String("profile", string(cfg.Profile)),
			logger.Int("score", a.Score),
			logger.Bool("completed", a.Completed),
			logger.Float64("durationSeconds", a.DurationSeconds),
		)
	}
	return attempts, nil
}

// runAttempt plays one task script through a fresh feed and runner at the
// configured frame rate. The feed is sized to the whole script so offers
// never drop, and the runner drains it to completion after the feed closes.
func runAttempt(ctx context.Context, cfg *Config, reg *task.Registry, kind task.Kind) (Attempt, error) {
	sc := scriptFor(kind, cfg.Profile)
	interval := time.Duration(float64(time.Second) / cfg.FPS)
	frames := int(sc.duration()/interval) + 1

	feed := stream.NewBoundedFeed(stream.WithCapacity(frames))
	runner := stream.NewRunner(feed, reg,
		stream.WithName(kind.String()),
		stream.WithUpdateBuffer(frames+8),
	)

	runDone := make(chan struct{})
	go func() {
		runner.Run(ctx)
		close(runDone)
	}()

	if err := runner.Begin(kind); err != nil {
		_ = feed.Close()
		return Attempt{}, err
	}

	var (
		last    task.Update
		lastMsg string
		done    bool
		fed     int
		elapsed time.Duration
	)
	absorb := func(u task.Update) {
		last = u
		if u.Done {
			done = true
		}
		if u.Message != lastMsg {
			lastMsg = u.Message
			fields := []logger.Field{
				logger.String("task", kind.String()),
				logger.String("message", u.Message),
				logger.Float64("progress", u.Progress),
			}
			if u.VoiceText != "" {
				fields = append(fields, logger.String("voice", u.VoiceText))
			}
			logger.Get().Debug(ctx, "guidance", fields...)
		}
	}

	base := time.Now()
	for i := 0; i < frames && !done; i++ {
		if err := ctx.Err(); err != nil {
			_ = feed.Close()
			return Attempt{}, err
		}
		t := time.Duration(i) * interval
		if feed.Offer(ctx, pose.NewSample(base.Add(t), render(sc.stanceAt(t)))) {
			fed++
			elapsed = t
		}
		drainUpdates(runner.Updates(), absorb)
	}

	_ = feed.Close()
	select {
	case <-runDone:
	case <-ctx.Done():
		return Attempt{}, ctx.Err()
	}
	drainUpdates(runner.Updates(), absorb)
	runner.Finish()

	metrics := last.Metrics
	if metrics == nil {
		metrics = map[string]float64{}
	}
	return Attempt{
		Task:            kind,
		Profile:         cfg.Profile,
		Score:           scoring.Extract(kind, metrics),
		Completed:       done,
		DurationSeconds: math.Round(elapsed.Seconds()*100) / 100,
		Frames:          fed,
		Metrics:         metrics,
	}, nil
}

// drainUpdates empties the runner's update channel without blocking.
func drainUpdates(ch <-chan task.Update, fn func(task.Update)) {
	for {
		select {
		case u := <-ch:
			fn(u)
		default:
			return
		}
	}
}

// aggregateLocal folds attempt scores into the same summary the service
// computes for a completed session.
func aggregateLocal(attempts []Attempt) assessment.Summary {
	scores := make(map[task.Kind]int, len(attempts))
	for _, a := range attempts {
		scores[a.Task] = a.Score
	}
	return assessment.Aggregate(scores)
}
