package registry

import "errors"

var (
	ErrBuildFailed = errors.New("image build failed")
	ErrPushFailed  = errors.New("image push failed")
)
