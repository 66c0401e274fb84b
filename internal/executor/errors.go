// internal/executor/errors.go
package executor

import "errors"

var (
	// ErrLocatorUnresolved reports that every resolution strategy failed for
	// the action's locator. The command loop surfaces this to the user as a
	// request to act manually.
	ErrLocatorUnresolved = errors.New("could not resolve action locator")

	// ErrUnsupportedAction reports an action type the executor does not know.
	ErrUnsupportedAction = errors.New("unsupported action type")
)
