package dataset

import "errors"

var (
	// ErrNotFound is returned when a record or index is looked up by an
	// identifier that does not exist.
	ErrNotFound = errors.New("record not found")

	// ErrConflict is returned when an operation would violate a uniqueness
	// constraint (e.g. upsert collision, duplicate index name).
	ErrConflict = errors.New("record conflict")

	// ErrInvalidFilter is returned when a SQL-like filter expression fails
	// to parse or references an unsupported operator.
	ErrInvalidFilter = errors.New("invalid filter expression")

	// ErrIndexExists is returned when creating an index that already exists.
	ErrIndexExists = errors.New("index already exists")

	// ErrIndexNotFound is returned when referencing an index that does not
	// exist.
	ErrIndexNotFound = errors.New("index not found")

	// ErrDimensionMismatch is returned when a vector's length does not
	// match the dataset's configured embedding dimension.
	ErrDimensionMismatch = errors.New("vector dimension mismatch")
)
