package migration

import (
	"fmt"

	"github.com/schemaflow/schemaflow/pkg/schema"
)

// UnsupportedDialectError is returned by the factory when no generator is
// wired for the requested dialect. It is a configuration error: fatal and
// never retryable.
type UnsupportedDialectError struct {
	Dialect schema.Dialect
}

func (e *UnsupportedDialectError) Error() string {
	return fmt.Sprintf("no migration generator implemented for dialect %s", e.Dialect)
}
