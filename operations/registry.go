package operations

import "errors"

// ErrOperationNotFound is returned when a definition does not match any
// registered operation.
var ErrOperationNotFound = errors.New("operation not found in registry")

// OperationRegistry stores operations keyed by their definition so previously
// executed operations can be looked up again, e.g. when replaying reports.
type OperationRegistry struct {
	ops []*Operation[any, any, any]
}

// NewOperationRegistry creates an OperationRegistry with the provided untyped
// operations.
func NewOperationRegistry(ops ...*Operation[any, any, any]) *OperationRegistry {
	return &OperationRegistry{
		ops: ops,
	}
}

// Retrieve returns the registered operation whose ID and version match the
// definition, or ErrOperationNotFound.
func (s OperationRegistry) Retrieve(def Definition) (*Operation[any, any, any], error) {
	for _, op := range s.ops {
		if op.ID() == def.ID && op.Version() == def.Version.String() {
			return op, nil
		}
	}

	return nil, ErrOperationNotFound
}

// RegisterOperation registers new operations in the registry. Operations with
// different input, output, or dependency types need separate calls with the
// matching type parameters.
func RegisterOperation[D, I, O any](r *OperationRegistry, op ...*Operation[D, I, O]) {
	for _, o := range op {
		r.ops = append(r.ops, o.AsUntyped())
	}
}
