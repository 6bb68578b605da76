package lifecycle

import (
	"maps"

	"go.uber.org/zap"
)

type options struct {
	logger *zap.Logger
	props  map[string]any
}

// Option configures an Invoker, a Configuration or a Runtime.
type Option func(*options)

// WithLogger sets the logging sink. The default discards everything.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithProperties sets the component properties exposed through the
// ComponentContext. The map is copied.
func WithProperties(props map[string]any) Option {
	return func(o *options) { o.props = maps.Clone(props) }
}

func newOptions(opts []Option) options {
	o := options{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
