package filter

import "iter"

// Limit yields at most n values from seq. When n <= 0 every value is yielded.
// The source is never asked for a value past the n-th.
func Limit[T any](seq iter.Seq[T], n int) iter.Seq[T] {
	if n <= 0 {
		return seq
	}
	return func(yield func(T) bool) {
		count := 0
		for v := range seq {
			if !yield(v) {
				return
			}
			count++
			if count >= n {
				return
			}
		}
	}
}
