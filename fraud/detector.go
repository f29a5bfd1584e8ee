package fraud

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"

	"fraudcheck/ml"
)

// ErrModelUnavailable is returned by Check when no classifier was loaded.
var ErrModelUnavailable = errors.New("model could not be loaded, predictions are disabled")

// Sink receives every outcome after a check. Errors are logged and
// never change the outcome.
type Sink interface {
	Record(ctx context.Context, outcome Outcome) error
}

type SinkFunc func(ctx context.Context, outcome Outcome) error

func (f SinkFunc) Record(ctx context.Context, outcome Outcome) error {
	return f(ctx, outcome)
}

// Detector owns the loaded classifier for the lifetime of the process.
// A Detector without a classifier rejects every check.
type Detector struct {
	classifier ml.Classifier
	loadErr    error
	cache      *lru.Cache[ml.FeatureVector, Outcome]
	sinks      []Sink
	logger     *zap.Logger
	now        func() time.Time
}

type Option func(*Detector)

// WithCacheSize memoizes successful outcomes per feature vector.
// Sizes <= 0 leave caching off.
func WithCacheSize(size int) Option {
	return func(d *Detector) {
		if size <= 0 {
			return
		}
		cache, err := lru.New[ml.FeatureVector, Outcome](size)
		if err == nil {
			d.cache = cache
		}
	}
}

func WithSinks(sinks ...Sink) Option {
	return func(d *Detector) {
		d.sinks = append(d.sinks, sinks...)
	}
}

func WithLogger(logger *zap.Logger) Option {
	return func(d *Detector) {
		if logger != nil {
			d.logger = logger
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(d *Detector) {
		d.now = now
	}
}

func New(classifier ml.Classifier, opts ...Option) *Detector {
	d := &Detector{
		classifier: classifier,
		logger:     zap.NewNop(),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}
	if classifier == nil && d.loadErr == nil {
		d.loadErr = ErrModelUnavailable
	}
	return d
}

// Load reads the artifact at path. A load failure is logged once and
// yields a Detector with prediction disabled instead of an error.
func Load(path string, opts ...Option) *Detector {
	classifier, err := ml.LoadModel(path)
	d := New(classifier, opts...)
	if err != nil {
		d.classifier = nil
		d.loadErr = err
		d.logger.Warn("model could not be loaded, predictions are disabled",
			zap.String("path", path), zap.Error(err))
		return d
	}
	fields := []zap.Field{zap.String("path", path)}
	if describer, ok := classifier.(ml.Describer); ok {
		info := describer.Describe()
		fields = append(fields, zap.String("kind", info.Kind), zap.Int("trees", info.Trees), zap.Int("nodes", info.Nodes))
	}
	d.logger.Info("model loaded", fields...)
	return d
}

func (d *Detector) Available() bool {
	return d.classifier != nil
}

// LoadError is nil when the classifier is available.
func (d *Detector) LoadError() error {
	if d.Available() {
		return nil
	}
	return d.loadErr
}

// Check scores one submission. The returned error covers only what stops a
// prediction from being attempted: no model, or input below the floor.
// Classifier failures come back as an Outcome in StateErrorDisplayed.
func (d *Detector) Check(ctx context.Context, sub Submission) (Outcome, error) {
	if !d.Available() {
		return Outcome{}, ErrModelUnavailable
	}
	vec, err := ml.NewFeatureVector(sub.Type, sub.Amount, sub.OldBalance, sub.NewBalance)
	if err != nil {
		return Outcome{}, err
	}

	outcome := Outcome{
		ID:        uuid.NewString(),
		State:     StateIdle,
		Type:      sub.Type,
		Vector:    vec,
		CheckedAt: d.now(),
	}
	outcome.State = advance(outcome.State, eventSubmit)

	if cached, ok := d.lookup(vec); ok {
		outcome.State = advance(outcome.State, eventSucceed)
		outcome.Verdict = cached.Verdict
		outcome.Cached = true
		d.notify(ctx, outcome)
		return outcome, nil
	}

	label, err := d.predict(vec)
	if err == nil {
		outcome.Verdict, err = VerdictFromLabel(label)
	}
	if err != nil {
		outcome.State = advance(outcome.State, eventFail)
		outcome.Failure = err.Error()
		d.logger.Warn("prediction failed",
			zap.String("id", outcome.ID),
			zap.Stringer("type", sub.Type),
			zap.Float64s("features", vec.Values()),
			zap.Error(err))
	} else {
		outcome.State = advance(outcome.State, eventSucceed)
		if d.cache != nil {
			d.cache.Add(vec, outcome)
		}
	}

	d.notify(ctx, outcome)
	return outcome, nil
}

func (d *Detector) lookup(vec ml.FeatureVector) (Outcome, bool) {
	if d.cache == nil {
		return Outcome{}, false
	}
	return d.cache.Get(vec)
}

// predict runs exactly one sample. A panicking classifier is reported
// like any other failure.
func (d *Detector) predict(vec ml.FeatureVector) (label int, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%v", r)
		}
	}()

	labels, err := d.classifier.Predict([][]float64{vec.Values()})
	if err != nil {
		return 0, err
	}
	if len(labels) != 1 {
		return 0, fmt.Errorf("classifier returned %d labels for 1 sample", len(labels))
	}
	return labels[0], nil
}

func (d *Detector) notify(ctx context.Context, outcome Outcome) {
	for _, sink := range d.sinks {
		if err := sink.Record(ctx, outcome); err != nil {
			d.logger.Warn("outcome sink failed", zap.String("id", outcome.ID), zap.Error(err))
		}
	}
}

type event int

const (
	eventSubmit event = iota
	eventSucceed
	eventFail
	eventInteract
)

func advance(s State, ev event) State {
	switch {
	case s == StateIdle && ev == eventSubmit:
		return StatePredicting
	case s == StatePredicting && ev == eventSucceed:
		return StateRendered
	case s == StatePredicting && ev == eventFail:
		return StateErrorDisplayed
	case (s == StateRendered || s == StateErrorDisplayed) && ev == eventInteract:
		return StateIdle
	}
	return s
}
