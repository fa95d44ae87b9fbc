package telemetry

import "errors"

var (
	ErrScreenGone   = errors.New("screen no longer exists")
	ErrEmptyPayload = errors.New("telemetry payload is empty")
)
