package builds

import "errors"

var (
	ErrUnknownFramework = errors.New("unable to detect framework")
	ErrCommandFailed    = errors.New("build command failed")
	ErrNoBuildOutput    = errors.New("build produced no output directory")
)
