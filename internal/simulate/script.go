package simulate

import (
	"fmt"
	"strings"
	"time"

	"github.com/virtualmirror/kinescreen/internal/domain/task"
)

// Profile selects how well the synthetic child performs each task.
type Profile string

const (
	ProfileClean   Profile = "clean"   // textbook attempts earning full scores
	ProfileWobbly  Profile = "wobbly"  // completes every task with form faults
	ProfilePartial Profile = "partial" // reaches part of each task
	ProfileAbsent  Profile = "absent"  // stands still and never attempts
)

// ParseProfile parses a profile name; empty selects the clean profile.
func ParseProfile(name string) (Profile, error) {
	switch p := Profile(strings.ToLower(strings.TrimSpace(name))); p {
	case "":
		return ProfileClean, nil
	case ProfileClean, ProfileWobbly, ProfilePartial, ProfileAbsent:
		return p, nil
	default:
		return "", fmt.Errorf("unknown profile %q", name)
	}
}

// phase is one segment of a script. pose maps the elapsed fraction of the
// phase onto a stance.
type phase struct {
	lasts time.Duration
	pose  func(frac float64) stance
}

// hold freezes one stance for the whole phase.
func hold(d time.Duration, st stance) phase {
	return phase{lasts: d, pose: func(float64) stance { return st }}
}

// script is a timed stance choreography for one task attempt.
type script struct {
	phases []phase
}

func (s script) duration() time.Duration {
	var total time.Duration
	for _, p := range s.phases {
		total += p.lasts
	}
	return total
}

// stanceAt returns the stance at elapsed time t, clamping past the end.
func (s script) stanceAt(t time.Duration) stance {
	for _, p := range s.phases {
		if t < p.lasts {
			return p.pose(float64(t) / float64(p.lasts))
		}
		t -= p.lasts
	}
	return s.phases[len(s.phases)-1].pose(1)
}

// scriptFor returns the landmark choreography for one task attempt.
func scriptFor(kind task.Kind, p Profile) script {
	switch kind {
	case task.ArmRaise:
		return armRaiseScript(p)
	case task.OneLeg:
		return oneLegScript(p)
	case task.Walk:
		return walkScript(p)
	case task.Jump:
		return jumpScript(p)
	case task.TipToe:
		return tipToeScript(p)
	case task.Squat:
		return squatScript(p)
	default:
		return standStill()
	}
}

func standStill() script {
	return script{phases: []phase{hold(4*time.Second, stance{})}}
}

// blip opens wobbly scripts with a short tracking dropout.
func blip() []phase {
	return []phase{
		hold(200*time.Millisecond, stance{}),
		hold(300*time.Millisecond, stance{hidden: true}),
	}
}

func armRaiseScript(p Profile) script {
	switch p {
	case ProfileWobbly:
		// Full raise held to completion, but the elbows never straighten.
		return script{phases: append(blip(),
			phase{lasts: 400 * time.Millisecond, pose: func(frac float64) stance {
				return stance{armFrac: frac, elbowBendDeg: 40}
			}},
			hold(1600*time.Millisecond, stance{armFrac: 1, elbowBendDeg: 40}),
		)}
	case ProfilePartial:
		// Arms stop near shoulder height and stay there.
		const reach = 100.0 / 180.0
		return script{phases: []phase{
			hold(500*time.Millisecond, stance{}),
			phase{lasts: 300 * time.Millisecond, pose: func(frac float64) stance {
				return stance{armFrac: reach * frac}
			}},
			hold(2200*time.Millisecond, stance{armFrac: reach}),
		}}
	case ProfileAbsent:
		return standStill()
	default:
		return script{phases: []phase{
			hold(500*time.Millisecond, stance{}),
			phase{lasts: 400 * time.Millisecond, pose: func(frac float64) stance {
				return stance{armFrac: frac}
			}},
			hold(1500*time.Millisecond, stance{armFrac: 1}),
		}}
	}
}

func oneLegScript(p Profile) script {
	switch p {
	case ProfileWobbly:
		// The stance leg holds but the hips sway past the steadiness band.
		sway := phase{lasts: 5600 * time.Millisecond, pose: func(frac float64) stance {
			return stance{liftLeft: 0.06, shiftX: squareWave(frac*5.6, 16, 0.0075)}
		}}
		return script{phases: append(blip(), sway)}
	case ProfilePartial:
		return script{phases: []phase{
			hold(500*time.Millisecond, stance{}),
			hold(2600*time.Millisecond, stance{liftLeft: 0.06}),
			hold(2*time.Second, stance{}),
		}}
	case ProfileAbsent:
		return standStill()
	default:
		return script{phases: []phase{
			hold(500*time.Millisecond, stance{}),
			hold(5500*time.Millisecond, stance{liftLeft: 0.06}),
		}}
	}
}

// walkScript alternates swing and plant phases; each plant lands one step.
func walkScript(p Profile) script {
	steps := 10
	lean := 0.0
	var phases []phase

	switch p {
	case ProfileWobbly:
		lean = 18
		phases = blip()
	case ProfilePartial:
		steps = 5
		phases = []phase{hold(500*time.Millisecond, stance{})}
	case ProfileAbsent:
		return standStill()
	default:
		phases = []phase{hold(500*time.Millisecond, stance{})}
	}

	for i := 0; i < steps; i++ {
		swing := stance{leanDeg: lean, liftLeft: 0.05}
		if i%2 == 1 {
			swing = stance{leanDeg: lean, liftRight: 0.05}
		}
		phases = append(phases,
			hold(330*time.Millisecond, swing),
			hold(330*time.Millisecond, stance{leanDeg: lean}),
		)
	}
	if p == ProfilePartial {
		phases = append(phases, hold(2*time.Second, stance{}))
	}
	return script{phases: phases}
}

func jumpScript(p Profile) script {
	crouch := phase{lasts: 400 * time.Millisecond, pose: func(frac float64) stance {
		return stance{kneeBendFrac: 0.75 * frac}
	}}

	switch p {
	case ProfileWobbly:
		// A real flight, but the left foot is still coming down when the
		// right lands.
		return script{phases: append(blip(),
			crouch,
			hold(400*time.Millisecond, stance{rise: 0.06}),
			hold(250*time.Millisecond, stance{liftLeft: 0.05}),
			hold(500*time.Millisecond, stance{}),
		)}
	case ProfilePartial:
		// Two tries that never actually leave the ground.
		hop := []phase{
			{lasts: 300 * time.Millisecond, pose: func(frac float64) stance {
				return stance{kneeBendFrac: 0.75 * frac}
			}},
			hold(300*time.Millisecond, stance{rise: 0.02}),
			hold(500*time.Millisecond, stance{}),
		}
		phases := []phase{hold(500*time.Millisecond, stance{})}
		phases = append(phases, hop...)
		phases = append(phases, hop...)
		return script{phases: phases}
	case ProfileAbsent:
		return standStill()
	default:
		return script{phases: []phase{
			hold(500*time.Millisecond, stance{}),
			crouch,
			hold(400*time.Millisecond, stance{rise: 0.06}),
			hold(800*time.Millisecond, stance{kneeBendFrac: 0.15}),
		}}
	}
}

func tipToeScript(p Profile) script {
	posture := stance{armFrac: 1, heelsUp: true}

	switch p {
	case ProfileWobbly:
		// Heels stay up for the full hold but the feet keep drifting.
		drift := phase{lasts: 3500 * time.Millisecond, pose: func(frac float64) stance {
			return stance{armFrac: 1, heelsUp: true, shiftX: squareWave(frac*3.5, 16, 0.005)}
		}}
		return script{phases: append(blip(), drift)}
	case ProfilePartial:
		return script{phases: []phase{
			hold(500*time.Millisecond, stance{}),
			hold(1600*time.Millisecond, posture),
			hold(2*time.Second, stance{}),
		}}
	case ProfileAbsent:
		return standStill()
	default:
		return script{phases: []phase{
			hold(500*time.Millisecond, stance{}),
			hold(3400*time.Millisecond, posture),
		}}
	}
}

func squatScript(p Profile) script {
	switch p {
	case ProfileWobbly:
		// Full depth held to completion with the heels peeling off.
		return script{phases: append(blip(),
			phase{lasts: 400 * time.Millisecond, pose: func(frac float64) stance {
				return stance{kneeBendFrac: frac, heelsUp: true}
			}},
			hold(1500*time.Millisecond, stance{kneeBendFrac: 1, heelsUp: true}),
		)}
	case ProfilePartial:
		// 0.65 of the full bend puts the knees a little past 130 degrees,
		// inside the partial band but well short of parallel.
		return script{phases: []phase{
			hold(500*time.Millisecond, stance{}),
			phase{lasts: 300 * time.Millisecond, pose: func(frac float64) stance {
				return stance{kneeBendFrac: 0.65 * frac}
			}},
			hold(2*time.Second, stance{kneeBendFrac: 0.65}),
		}}
	case ProfileAbsent:
		return standStill()
	default:
		return script{phases: []phase{
			hold(500*time.Millisecond, stance{}),
			phase{lasts: 400 * time.Millisecond, pose: func(frac float64) stance {
				return stance{kneeBendFrac: frac}
			}},
			hold(1400*time.Millisecond, stance{kneeBendFrac: 1}),
		}}
	}
}
