package health

import "errors"

var (
	ErrNotMonitored      = errors.New("deployment is not monitored")
	ErrAlreadyMonitoring = errors.New("deployment is already monitored")
	ErrProbeFailed       = errors.New("health probe failed")
)
