package envutil

// Option modifies a Reader. Readers such as String and Bool accept options so
// the caller can attach defaults and validation in one expression.
type Option[T any] func(Reader[T]) Reader[T]

// Default provides a value used when the variable is not set.
func Default[T any](dfl T) Option[T] {
	return func(rdr Reader[T]) Reader[T] {
		return rdr.WithDefault(dfl)
	}
}

// Validate runs f on the parsed value; a non-nil result becomes the Reader's error.
func Validate[T any](f func(T) error) Option[T] {
	return func(rdr Reader[T]) Reader[T] {
		return Map(rdr, func(val T) (T, error) {
			return val, f(val)
		})
	}
}
