// Package envutil reads typed values from environment variables.
//
//	retries := envutil.Int("ASYNCOP_MAX_RETRIES", envutil.Default(0)).ValueOrElse(0)
package envutil

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

func get(key string) Reader[string] {
	val, ok := os.LookupEnv(key)

	return Reader[string]{
		key:     key,
		present: ok,
		value:   val,
	}
}

func apply[T any](rdr Reader[T], opts []Option[T]) Reader[T] {
	for _, opt := range opts {
		rdr = opt(rdr)
	}

	return rdr
}

// String reads a string variable.
func String(key string, opts ...Option[string]) Reader[string] {
	return apply(get(key), opts)
}

// StringList reads a comma-separated variable. Entries are trimmed and empty
// entries dropped.
func StringList(key string, opts ...Option[[]string]) Reader[[]string] {
	rdr := Map(get(key), func(s string) ([]string, error) {
		var out []string

		for _, part := range strings.Split(s, ",") {
			part = strings.TrimSpace(part)
			if part != "" {
				out = append(out, part)
			}
		}

		return out, nil
	})

	return apply(rdr, opts)
}

// Bool reads a boolean variable using strconv.ParseBool.
func Bool(key string, opts ...Option[bool]) Reader[bool] {
	return apply(Map(get(key), strconv.ParseBool), opts)
}

// Int reads an integer variable.
func Int(key string, opts ...Option[int]) Reader[int] {
	return apply(Map(get(key), strconv.Atoi), opts)
}

// Duration reads a variable using time.ParseDuration.
func Duration(key string, opts ...Option[time.Duration]) Reader[time.Duration] {
	return apply(Map(get(key), time.ParseDuration), opts)
}

// SlogLevel reads a log level such as "debug", "INFO" or "warn+2".
func SlogLevel(key string, opts ...Option[slog.Level]) Reader[slog.Level] {
	rdr := Map(get(key), func(s string) (slog.Level, error) {
		var lvl slog.Level

		err := lvl.UnmarshalText([]byte(s))

		return lvl, err
	})

	return apply(rdr, opts)
}
