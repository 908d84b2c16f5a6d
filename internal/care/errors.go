package care

import "errors"

// Error kinds. Engines and the service wrap one of these with %w so callers can
// branch with errors.Is regardless of the concrete message.
var (
	ErrNotFound      = errors.New("not found")
	ErrConflict      = errors.New("conflict")
	ErrCompliance    = errors.New("compliance violation")
	ErrScheduling    = errors.New("scheduling violation")
	ErrAuthorization = errors.New("not authorized")
	ErrInvalidInput  = errors.New("invalid input")
)

// Kind labels used by the HTTP layer and metrics.
const (
	KindOK            = "ok"
	KindNotFound      = "not_found"
	KindConflict      = "conflict"
	KindCompliance    = "compliance"
	KindScheduling    = "scheduling"
	KindAuthorization = "unauthorized"
	KindInvalidInput  = "invalid_input"
	KindInternal      = "internal"
)

// KindOf maps an error onto a stable label. A nil error is KindOK.
func KindOf(err error) string {
	switch {
	case err == nil:
		return KindOK
	case errors.Is(err, ErrAuthorization):
		return KindAuthorization
	case errors.Is(err, ErrInvalidInput):
		return KindInvalidInput
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrConflict):
		return KindConflict
	case errors.Is(err, ErrCompliance):
		return KindCompliance
	case errors.Is(err, ErrScheduling):
		return KindScheduling
	default:
		return KindInternal
	}
}
