package sourcecode

import (
	"context"

	"github.com/akfbtn1-netizen/docflow/pkg/serrors"
)

// ErrObjectNotFound reports that the named source object has no definition
// in the store. Callers treat this as a recoverable business outcome, not a
// store failure.
var ErrObjectNotFound = serrors.NewError("DOCS_OBJECT_NOT_FOUND", "source object not found")

// DefinitionSource retrieves the full definition text of a stored routine or
// other database object.
type DefinitionSource interface {
	Definition(ctx context.Context, objectName string) (string, error)
}
