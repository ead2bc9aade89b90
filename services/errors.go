package services

import "errors"

// Conflict-class errors. Handlers map these to 409 with the message as-is;
// none of them leaves partial state behind.
var (
	ErrNoWork              = errors.New("no work available")
	ErrTaskInProgress      = errors.New("finish your current task before taking another")
	ErrNotEligible         = errors.New("not eligible for this action")
	ErrInsufficientBalance = errors.New("requested amount exceeds your balance")
	ErrBelowMinimum        = errors.New("amount is below the minimum payout")
	ErrAlreadyGranted      = errors.New("already rewarded today")
	ErrDeviceReused        = errors.New("this device is already linked to another account")
	ErrUsernameTaken       = errors.New("username is already taken")
	ErrInvalidCredentials  = errors.New("invalid username or password")
)
