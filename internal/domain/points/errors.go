package points

import "errors"

var (
	ErrInsufficientPoints = errors.New("insufficient points")
	ErrInvalidAmount      = errors.New("invalid points amount")
	ErrUnknownPackage     = errors.New("unknown package")
	ErrPurchaseFailed     = errors.New("purchase failed")
	ErrPurchaseInProgress = errors.New("purchase already in progress")
)
