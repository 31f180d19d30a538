package deployments

import "errors"

var (
	ErrNotFound             = errors.New("deployment not found")
	ErrNotActive            = errors.New("deployment is not active")
	ErrUnsupportedFramework = errors.New("unsupported framework")
	ErrUnsupportedProvider  = errors.New("unsupported provider")
	ErrNoRollbackTarget     = errors.New("no rollback target")
	ErrNotRollbackable      = errors.New("deployment cannot be rolled back")
	ErrTestsFailed          = errors.New("tests failed")
)

// IsConfiguration reports whether err is fatal misconfiguration that no
// retry can fix.
func IsConfiguration(err error) bool {
	return errors.Is(err, ErrUnsupportedFramework) || errors.Is(err, ErrUnsupportedProvider)
}
