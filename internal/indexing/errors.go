package indexing

import "errors"

var (
	// ErrRootInaccessible is the only fatal error: the project root
	// cannot be walked at all.
	ErrRootInaccessible = errors.New("project root is not accessible")

	// ErrNotFound reports a path absent from the index.
	ErrNotFound = errors.New("path not found in index")
)
