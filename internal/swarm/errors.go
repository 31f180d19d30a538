package swarm

import "errors"

var (
	ErrDeployFailed    = errors.New("service deployment failed")
	ErrServiceNotFound = errors.New("service not found")
)
