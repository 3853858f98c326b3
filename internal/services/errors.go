package services

import "errors"

// ErrForbidden is returned when the acting user lacks permission for the
// requested operation, such as a non-host ending a competition.
var ErrForbidden = errors.New("forbidden")
