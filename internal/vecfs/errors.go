package vecfs

import (
	"errors"
	"fmt"

	"github.com/fyrsmithlabs/vecfs/internal/kvstore"
)

var (
	// ErrPathNotFound is returned when no folder or item exists at a path.
	// errors.Is(err, kvstore.ErrNotFound) holds for it.
	ErrPathNotFound = fmt.Errorf("path %w", kvstore.ErrNotFound)

	// ErrInvalidPathType is returned when an operation meant for a folder
	// targets an item, or the reverse.
	ErrInvalidPathType = errors.New("invalid path type")

	// ErrPathExists is returned when creating at an occupied path.
	ErrPathExists = errors.New("path already exists")
)
