package operations

import (
	"github.com/Masterminds/semver/v3"
)

// SequenceHandler is the function signature of a sequence handler.
// It composes multiple operations (via ExecuteOperation) into a single higher
// level flow.
type SequenceHandler[IN, OUT, DEP any] func(b Bundle, deps DEP, input IN) (output OUT, err error)

// Sequence is a higher level building block of the Operations API.
// A sequence composes multiple operations into a single flow, e.g. create a
// snapshot, wait for it to become available, then share it with another
// account.
// Use NewSequence to create a new sequence.
type Sequence[IN, OUT, DEP any] struct {
	def     Definition
	handler SequenceHandler[IN, OUT, DEP]
}

// ID returns the sequence ID.
func (s *Sequence[IN, OUT, DEP]) ID() string {
	return s.def.ID
}

// Version returns the sequence semver version in string.
func (s *Sequence[IN, OUT, DEP]) Version() string {
	return s.def.Version.String()
}

// Description returns the sequence description.
func (s *Sequence[IN, OUT, DEP]) Description() string {
	return s.def.Description
}

// Def returns the sequence definition.
func (s *Sequence[IN, OUT, DEP]) Def() Definition {
	return s.def
}

// NewSequence creates a new sequence.
// Version can be created using semver.MustParse("1.0.0") or semver.New("1.0.0").
// The handler should call ExecuteOperation for each side effect so that every
// step is captured in the report log.
func NewSequence[IN, OUT, DEP any](
	id string, version *semver.Version, description string, handler SequenceHandler[IN, OUT, DEP],
) *Sequence[IN, OUT, DEP] {
	return &Sequence[IN, OUT, DEP]{
		def: Definition{
			ID:          id,
			Version:     version,
			Description: description,
		},
		handler: handler,
	}
}
