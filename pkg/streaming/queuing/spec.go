package queuing

import (
	"fmt"

	"gopkg.in/yaml.v3"

	pferrors "github.com/vnykmshr/pipeflow/pkg/common/errors"
	"github.com/vnykmshr/pipeflow/pkg/common/validation"
)

// Strategy kinds accepted in configuration files.
const (
	KindCount = "count"
	KindBytes = "bytes"
)

// Spec is the declarative form of a strategy, as found in configuration files:
//
//	kind: bytes
//	high_water_mark: 65536
type Spec struct {
	// Kind selects the size function: "count" (default) or "bytes".
	Kind string `yaml:"kind"`

	// HighWaterMark is the queue capacity. Omitted means DefaultHighWaterMark.
	HighWaterMark *float64 `yaml:"high_water_mark"`
}

// ParseSpec decodes and validates a YAML strategy spec.
func ParseSpec(data []byte) (Spec, error) {
	var spec Spec
	if err := yaml.Unmarshal(data, &spec); err != nil {
		return Spec{}, fmt.Errorf("decode strategy spec: %w", err)
	}
	if spec.Kind == "" {
		spec.Kind = KindCount
	}
	if err := spec.Validate(); err != nil {
		return Spec{}, err
	}
	return spec, nil
}

// Validate checks the kind and the high-water mark.
func (s Spec) Validate() error {
	if err := validation.ValidateOneOf("queuing", "kind", s.Kind, KindCount, KindBytes); err != nil {
		return err
	}
	return validation.ValidateNonNegative("queuing", "highWaterMark", s.highWaterMark())
}

func (s Spec) highWaterMark() float64 {
	if s.HighWaterMark == nil {
		return DefaultHighWaterMark
	}
	return *s.HighWaterMark
}

// Bytes builds a byte-length strategy from the spec. A count spec still
// counts chunks.
func (s Spec) Bytes() Strategy[[]byte] {
	if s.Kind == KindBytes {
		return ByteLengthStrategy(s.highWaterMark())
	}
	return CountStrategy[[]byte](s.highWaterMark())
}

// FromSpec builds a counting strategy for any chunk type. Byte sizing only
// applies to []byte streams, so a bytes spec is rejected here; use
// Spec.Bytes for those.
func FromSpec[T any](s Spec) (Strategy[T], error) {
	if s.Kind == KindBytes {
		return Strategy[T]{}, pferrors.NewValidationError("queuing", "kind", s.Kind, "byte sizing needs []byte chunks").
			WithHint("use Spec.Bytes for []byte streams")
	}
	if err := s.Validate(); err != nil {
		return Strategy[T]{}, err
	}
	return CountStrategy[T](s.highWaterMark()), nil
}
