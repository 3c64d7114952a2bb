// Package pointer provides helpers for constructing pointers to values, which
// the AWS SDK requires for nearly every request field.
package pointer

// To returns a pointer to the given value.
func To[T any](v T) *T {
	return &v
}
