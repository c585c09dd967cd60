package model

import "github.com/m-mizutani/goerr/v2"

var (
	TagValidation  = goerr.NewTag("validation")
	TagRequest     = goerr.NewTag("request")
	TagPersistence = goerr.NewTag("persistence")
)

var (
	// ErrBusy is returned when the same kind of request is already in flight
	ErrBusy = goerr.New("request already in flight")
	// ErrStale is returned when a response arrives for a session that is no longer current
	ErrStale = goerr.New("response belongs to a previous session")
)
