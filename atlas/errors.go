package atlas

import "errors"

// Configuration errors are raised before any network call is made.
// Consistency errors indicate a mismatch between the queries sent and the
// results received and are never swallowed.
var (
	ErrNoMetrics        = errors.New("no metrics provided")
	ErrInvalidMetric    = errors.New("invalid metric spec")
	ErrNoQueries        = errors.New("no constructs matched")
	ErrFacilityNotFound = errors.New("facility not found")
	ErrUnknownSource    = errors.New("result references unknown source")
	ErrInvalidWindow    = errors.New("invalid time window")
)
