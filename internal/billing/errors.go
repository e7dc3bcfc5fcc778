package billing

import "github.com/billflow/billflow/internal/shared"

var (
	ErrUserNotFound    = shared.BadRequest("User not found")
	ErrBillingNotFound = shared.BadRequest("Billing not found")
	ErrInvalidDate     = shared.BadRequest("Date is invalid")
	ErrInvalidValue    = shared.BadRequest("Value is invalid")
	ErrInvalidStatus   = shared.BadRequest("Status is invalid")
	ErrInvalidPhone    = shared.BadRequest("Phone is invalid")
)
