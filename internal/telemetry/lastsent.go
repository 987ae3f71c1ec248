package telemetry

// LastSent holds the last value emitted for one metric kind and decides
// whether a new value is worth sending. Not safe for concurrent use.
type LastSent[T comparable] struct {
	value T
}

// NewLastSent creates a LastSent with an initial value that counts as
// already sent.
func NewLastSent[T comparable](initial T) *LastSent[T] {
	return &LastSent[T]{value: initial}
}

// Changed reports whether v differs from the last sent value, without
// recording anything.
func (l *LastSent[T]) Changed(v T) bool {
	return v != l.value
}

// ShouldEmit reports whether v should be sent. It is true when force is set
// or v differs from the last sent value, and in that case v becomes the last
// sent value.
func (l *LastSent[T]) ShouldEmit(v T, force bool) bool {
	if !force && v == l.value {
		return false
	}
	l.value = v
	return true
}

// Value returns the last sent value.
func (l *LastSent[T]) Value() T {
	return l.value
}
