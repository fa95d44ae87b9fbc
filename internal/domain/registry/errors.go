package registry

import "errors"

var (
	ErrControllerNotFound = errors.New("controller not found")
	ErrScreenNotFound     = errors.New("screen not found")
	ErrAlreadyClaimed     = errors.New("serial number is already claimed")
	ErrSerialConflict     = errors.New("serial number state changed concurrently")
)
