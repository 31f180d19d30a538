package projects

import "errors"

var (
	ErrNotFound = errors.New("project not found")
	ErrConflict = errors.New("project already exists")
)
