package salon

import "errors"

var (
	ErrSalonNotFound   = errors.New("salon not found")
	ErrSalonSuspended  = errors.New("salon is not accepting bookings")
	ErrFeatureDisabled = errors.New("feature is disabled for this salon")
	ErrInternal        = errors.New("salon catalog unavailable")
)
