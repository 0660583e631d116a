package availability

import "errors"

var (
	ErrInvalidDate    = errors.New("invalid date, expected YYYY-MM-DD")
	ErrSlotNotOffered = errors.New("start time is not one of the offered slots")
	ErrSlotInPast     = errors.New("start time is inside the booking lead time")
)
