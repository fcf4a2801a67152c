package db

import "errors"

// Sentinel errors for index operations.
var (
	ErrIndexNotFound = errors.New("db: index not found")
	ErrIndexExists   = errors.New("db: index already exists")
	ErrInvalidQuery  = errors.New("db: invalid query")
)

// Op names used for error context.
const (
	OpCreateIndex = "FT.CREATE"
	OpIndexInfo   = "FT.INFO"
	OpSearch      = "FT.SEARCH"
	OpHSet        = "HSET"
	OpQuery       = "QUERY"
	OpInsert      = "INSERT"
	OpMigrate     = "MIGRATE"
	OpUpsert      = "UPSERT"
	OpCreateColl  = "CREATE_COLLECTION"
)

// Error wraps an underlying error with the operation name for diagnostics.
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string { return e.Op + ": " + e.Err.Error() }
func (e *Error) Unwrap() error { return e.Err }

// ValidateKNN checks the query fields every backend requires.
func ValidateKNN(q *KNNQuery) error {
	switch {
	case q == nil:
		return errors.Join(ErrInvalidQuery, errors.New("query is nil"))
	case q.IndexName == "":
		return errors.Join(ErrInvalidQuery, errors.New("index name is required"))
	case len(q.Vector) == 0:
		return errors.Join(ErrInvalidQuery, errors.New("vector is required"))
	case q.K <= 0:
		return errors.Join(ErrInvalidQuery, errors.New("k must be positive"))
	}
	return nil
}
