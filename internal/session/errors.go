package session

import (
	"errors"
	"fmt"
)

// Kind groups reportable errors by how the player recovers from them.
type Kind uint8

const (
	// KindCapability errors mean the device cannot present immersive
	// content.
	KindCapability Kind = iota
	// KindResource errors mean a required host resource is missing.
	KindResource
	// KindCompatibility errors mean the media cannot be sampled by the GPU.
	KindCompatibility
)

func (k Kind) String() string {
	switch k {
	case KindCapability:
		return "capability"
	case KindResource:
		return "resource"
	case KindCompatibility:
		return "compatibility"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// Code is a stable, host-visible error code.
type Code string

const (
	CodeNotSupported        Code = "web-xr-not-supported"
	CodeOutOfDate           Code = "web-xr-out-of-date"
	CodeVideoNotFound       Code = "web-xr-video-not-found"
	CodeHLSCORSNotSupported Code = "web-xr-hls-cors-not-supported"
)

// Error is a reportable player error.
type Error struct {
	Kind     Kind
	Code     Code
	Headline string
	Message  string
	Err      error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Headline, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Headline)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error with the same code, so the sentinels below work with
// errors.Is.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

// Fatal reports whether the error must abort initialization.
func (e *Error) Fatal() bool {
	return e.Code == CodeVideoNotFound
}

var (
	ErrNotSupported = &Error{
		Kind:     KindCapability,
		Code:     CodeNotSupported,
		Headline: "360 not supported on this device",
		Message:  "Your device does not support 360 presentation. See http://webxr.info for assistance.",
	}
	ErrOutOfDate = &Error{
		Kind:     KindCapability,
		Code:     CodeOutOfDate,
		Headline: "360 support on this device is out of date",
		Message:  "Your device only provides an outdated immersive API. Please update it and try again.",
	}
	ErrVideoNotFound = &Error{
		Kind:     KindResource,
		Code:     CodeVideoNotFound,
		Headline: "360 video element not found",
		Message:  "The 3D video did not load correctly. Please try to reload.",
	}
	ErrHLSCORSNotSupported = &Error{
		Kind:     KindCompatibility,
		Code:     CodeHLSCORSNotSupported,
		Headline: "360 HLS video not supported on this device",
		Message:  "Your device does not support sampling this 360 video. See http://webxr.info for assistance.",
	}
)

// wrap returns a copy of sentinel carrying cause.
func wrap(sentinel *Error, cause error) *Error {
	e := *sentinel
	e.Err = cause
	return &e
}
