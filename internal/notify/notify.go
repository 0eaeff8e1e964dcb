// Package notify turns outcomes into the toasts and inline messages users see.
package notify

import (
	"errors"

	"ecoquest/internal/api"
	"ecoquest/internal/device"
	"ecoquest/internal/validation"
)

// Kind selects the toast style
type Kind string

const (
	KindSuccess Kind = "success"
	KindError   Kind = "error"
	KindInfo    Kind = "info"
)

const (
	NetworkMessage = "Cannot reach the EcoQuest server. Check your connection and try again."
	GenericMessage = "Something went wrong. Please try again."
)

// Notice is one user-facing message
type Notice struct {
	Kind    Kind   `json:"kind"`
	Message string `json:"message"`
}

func Success(message string) Notice {
	return Notice{Kind: KindSuccess, Message: message}
}

func Error(message string) Notice {
	return Notice{Kind: KindError, Message: message}
}

func Info(message string) Notice {
	return Notice{Kind: KindInfo, Message: message}
}

// FromError maps err to exactly one error notice
func FromError(err error) Notice {
	var verr *validation.ValidationError
	var apiErr *api.APIError
	var netErr *api.NetworkError
	var devErr *device.DeviceError

	switch {
	case errors.As(err, &verr):
		return Error(verr.Error())
	case errors.As(err, &apiErr):
		return Error(apiErr.Message)
	case errors.As(err, &netErr):
		return Error(NetworkMessage)
	case errors.As(err, &devErr):
		return Error(devErr.UserMessage())
	}
	return Error(GenericMessage)
}

// Expected reports whether err belongs to the known taxonomy; anything else
// should be logged as unexpected.
func Expected(err error) bool {
	var verr *validation.ValidationError
	var apiErr *api.APIError
	var netErr *api.NetworkError
	var devErr *device.DeviceError
	return errors.As(err, &verr) || errors.As(err, &apiErr) || errors.As(err, &netErr) || errors.As(err, &devErr)
}
