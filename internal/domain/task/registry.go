package task

// Registry owns one evaluator per task kind, parameterized for a single
// child. Create a fresh registry per screening session; evaluators inside
// it keep the session's per-child targets for their whole life.
type Registry struct {
	params Params
	evals  map[Kind]Evaluator
}

// RegistryOption applies a configuration option to the Registry.
type RegistryOption func(*Registry)

// WithAge sets the child's age in years, selecting the age-banded balance
// and walk targets. Non-positive ages are ignored and the default
// school-age targets are kept.
func WithAge(years int) RegistryOption {
	return func(r *Registry) {
		if years > 0 {
			r.params.AgeYears = years
		}
	}
}

// WithHeightCM sets the child's height so jump height can be reported in
// centimeters. Non-positive heights are ignored.
func WithHeightCM(cm float64) RegistryOption {
	return func(r *Registry) {
		if cm > 0 {
			r.params.HeightCM = cm
		}
	}
}

// WithLanguage sets the voice guidance language. Empty strings are ignored;
// languages missing from the catalog fall back to English.
func WithLanguage(lang string) RegistryOption {
	return func(r *Registry) {
		if lang != "" {
			r.params.Language = lang
		}
	}
}

// NewRegistry creates evaluators for all six task kinds with configuration
// options.
func NewRegistry(opts ...RegistryOption) *Registry {
	r := &Registry{params: Params{Language: LangEnglish}}

	for _, opt := range opts {
		opt(r)
	}

	r.evals = map[Kind]Evaluator{
		ArmRaise: NewArmRaise(r.params),
		OneLeg:   NewOneLeg(r.params),
		Walk:     NewWalk(r.params),
		Jump:     NewJump(r.params),
		TipToe:   NewTipToe(r.params),
		Squat:    NewSquat(r.params),
	}
	return r
}

// Evaluator returns the evaluator for a kind.
func (r *Registry) Evaluator(k Kind) (Evaluator, bool) {
	ev, ok := r.evals[k]
	return ev, ok
}

// Kinds returns the task kinds in canonical screening order.
func (r *Registry) Kinds() []Kind {
	return Kinds()
}

// Reset begins a fresh attempt for a kind, reporting whether the kind is
// known.
func (r *Registry) Reset(k Kind) bool {
	ev, ok := r.evals[k]
	if !ok {
		return false
	}
	ev.Start()
	return true
}

// Params returns the per-child parameters the registry was built with.
func (r *Registry) Params() Params {
	return r.params
}
