package datastore

import "errors"

var ErrEnvMetadataNotSet = errors.New("no environment metadata set")

// EnvMetadata is free-form metadata recorded against an environment, e.g.
// the last backup window or operator notes. Metadata is stored as any; use
// As to convert it back to a concrete type.
type EnvMetadata struct {
	// Environment names the environment the metadata belongs to.
	Environment string `json:"environment"`
	// Metadata is the payload attached to the environment.
	Metadata any `json:"metadata"`
}

// Clone returns a deep copy of the EnvMetadata.
func (r EnvMetadata) Clone() (EnvMetadata, error) {
	metaClone, err := clone(r.Metadata)
	if err != nil {
		return EnvMetadata{}, err
	}

	return EnvMetadata{
		Environment: r.Environment,
		Metadata:    metaClone,
	}, nil
}
