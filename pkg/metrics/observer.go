package metrics

import "time"

// Observer reports the metrics of one stream. A nil *Observer is valid and
// records nothing, so streams without metrics pay only a nil check.
type Observer struct {
	registry *Registry
	kind     string
	name     string
}

// Observe binds the registry to a stream kind and name. It returns nil when r is nil.
func (r *Registry) Observe(kind, name string) *Observer {
	if r == nil {
		return nil
	}
	return &Observer{registry: r, kind: kind, name: name}
}

// Enqueued counts a chunk accepted by the stream.
func (o *Observer) Enqueued() {
	if o == nil {
		return
	}
	o.registry.ChunksEnqueued.WithLabelValues(o.kind, o.name).Inc()
}

// Delivered counts a chunk handed to a reader or sink.
func (o *Observer) Delivered() {
	if o == nil {
		return
	}
	o.registry.ChunksDelivered.WithLabelValues(o.kind, o.name).Inc()
}

// Queue records the current queue total and desired size.
func (o *Observer) Queue(total, desired float64) {
	if o == nil {
		return
	}
	o.registry.QueueSize.WithLabelValues(o.kind, o.name).Set(total)
	o.registry.DesiredSize.WithLabelValues(o.kind, o.name).Set(desired)
}

// Backpressure counts a chunk accepted with no desired size left.
func (o *Observer) Backpressure() {
	if o == nil {
		return
	}
	o.registry.BackpressureEvents.WithLabelValues(o.kind, o.name).Inc()
}

// Pull counts a pull hook invocation.
func (o *Observer) Pull() {
	if o == nil {
		return
	}
	o.registry.Pulls.WithLabelValues(o.name).Inc()
}

// Write records the duration of a sink write.
func (o *Observer) Write(d time.Duration) {
	if o == nil {
		return
	}
	o.registry.WriteDuration.WithLabelValues(o.name).Observe(d.Seconds())
}

// Transform records a completed transform and its duration.
func (o *Observer) Transform(d time.Duration) {
	if o == nil {
		return
	}
	o.registry.Transforms.WithLabelValues(o.name).Inc()
	o.registry.TransformDuration.WithLabelValues(o.name).Observe(d.Seconds())
}

// State counts a transition into state.
func (o *Observer) State(state string) {
	if o == nil {
		return
	}
	o.registry.StateTransitions.WithLabelValues(o.kind, o.name, state).Inc()
}

// Error counts an error raised by operation.
func (o *Observer) Error(operation string) {
	if o == nil {
		return
	}
	o.registry.StreamErrors.WithLabelValues(o.kind, o.name, operation).Inc()
}
