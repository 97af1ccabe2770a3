package feed

import "time"

// DefaultConcurrency bounds the number of posts assembled at once.
const DefaultConcurrency = 16

// Options carries the optional collaborators and tuning shared by the
// assembler, the flows and the controller. Zero fields get defaults.
type Options struct {
	Concurrency  int
	FetchTimeout time.Duration // per post; zero means no limit

	Logger   Logger
	Metrics  Metrics
	Journal  Journal  // nil disables the operation journal
	Notifier Notifier // nil disables announcements
	Clock    Clock
	IDs      IDGenerator
}

func (o Options) withDefaults() Options {
	if o.Concurrency <= 0 {
		o.Concurrency = DefaultConcurrency
	}
	if o.Logger == nil {
		o.Logger = NopLogger{}
	}
	if o.Metrics == nil {
		o.Metrics = NopMetrics{}
	}
	if o.Clock == nil {
		o.Clock = RealClock{}
	}
	if o.IDs == nil {
		o.IDs = UUIDGenerator{}
	}
	return o
}
