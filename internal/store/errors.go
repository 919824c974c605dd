package store

import "errors"

var (
	ErrAlreadyExists = errors.New("already exists")
	ErrDBConflict    = errors.New("database conflict")
	ErrDBProblem     = errors.New("database problem")
)
