package config

import (
	"errors"
	"fmt"
)

// Configuration errors.
var (
	// ErrUnknownFormat is returned for chain files that are neither TOML
	// nor YAML.
	ErrUnknownFormat = errors.New("unknown chain file format")

	// ErrChainNotFound is returned when a chain file has no chain with the
	// requested name.
	ErrChainNotFound = errors.New("chain not found")

	// ErrDuplicateEntry is returned when a chain lists a filter-set twice,
	// or a file defines two chains with the same name.
	ErrDuplicateEntry = errors.New("duplicate entry")

	// ErrInvalidChain is returned for chains with missing names.
	ErrInvalidChain = errors.New("invalid chain")
)

// ParseError represents an error while parsing a configuration file.
type ParseError struct {
	Path    string
	Message string
	Err     error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse error in %s: %s", e.Path, e.Message)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}
