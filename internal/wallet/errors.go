package wallet

import (
	"errors"
	"fmt"
)

var (
	ErrWalletNotFound      = errors.New("wallet not found")
	ErrWalletClosed        = errors.New("wallet is closed")
	ErrInsufficientPoints  = errors.New("insufficient points")
	ErrPointsExpired       = errors.New("points have expired")
	ErrInvalidTierUpgrade  = errors.New("invalid tier upgrade")
	ErrValidation          = errors.New("validation failed")
	ErrConflict            = errors.New("wallet was modified concurrently")
	ErrTransactionNotFound = errors.New("wallet transaction not found")
	ErrBatchNotFound       = errors.New("points batch not found")
)

func validationError(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}
