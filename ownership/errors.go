package ownership

import (
	"errors"
	"fmt"

	"github.com/alphabill-org/chainauthority/types"
)

var (
	ErrCloseChainNotPermitted                   = errors.New("unauthorized attempt to close the chain")
	ErrChangeApplicationPermissionsNotPermitted = errors.New("unauthorized attempt to change the application permissions")
)

// AccountPermissionError is returned when an operation attempts to access an
// account the proposer of the operation does not own.
type AccountPermissionError struct {
	Owner types.AccountOwner
}

func (e AccountPermissionError) Error() string {
	return fmt.Sprintf("unauthorized attempt to access account owned by %s", e.Owner)
}

// IsAccountPermissionError returns whether the given error is an AccountPermissionError error
func IsAccountPermissionError(err error) bool {
	var e AccountPermissionError
	return errors.As(err, &e)
}
