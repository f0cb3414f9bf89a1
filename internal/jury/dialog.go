package jury

// DialogResult is what a presentation dialog hands back to the core:
// either a confirmed payload or a cancellation.
type DialogResult[T any] struct {
	confirmed bool
	payload   T
}

// Confirmed wraps a payload the user submitted.
func Confirmed[T any](payload T) DialogResult[T] {
	return DialogResult[T]{confirmed: true, payload: payload}
}

// Cancelled is the result of a dismissed dialog.
func Cancelled[T any]() DialogResult[T] {
	return DialogResult[T]{}
}

// Payload returns the submitted payload and whether the dialog was confirmed.
func (r DialogResult[T]) Payload() (T, bool) {
	return r.payload, r.confirmed
}
