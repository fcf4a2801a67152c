package db

import (
	"errors"
	"fmt"
)

// IndexSpec describes the vector index a backend should provision.
type IndexSpec struct {
	Name        string
	Prefix      string // key prefix, Redis only
	Dimensions  int
	M           int // HNSW max edges per node
	EFConstruct int
}

// Validate checks that the spec is well-formed.
func (s IndexSpec) Validate() error {
	if !IsValidIdentifier(s.Name) {
		return fmt.Errorf("invalid index name %q", s.Name)
	}
	if s.Dimensions <= 0 {
		return errors.New("dimensions must be positive")
	}
	return nil
}

// IsValidIdentifier returns true if s matches [a-zA-Z0-9_:-]+.
func IsValidIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		isAlpha := (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
		isDigit := r >= '0' && r <= '9'
		isSpecial := r == '_' || r == ':' || r == '-'
		if !isAlpha && !isDigit && !isSpecial {
			return false
		}
	}
	return true
}
