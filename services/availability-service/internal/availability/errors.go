package availability

import "errors"

var (
	ErrMissingParameter = errors.New("missing parameter")
	ErrInvalidDate      = errors.New("invalid date")
	ErrInvalidParameter = errors.New("invalid parameter")
	ErrUserNotFound     = errors.New("user does not exist")
	ErrUpstreamLookup   = errors.New("upstream lookup failed")
)

// ParamError describes a rejected request parameter. Its message is safe to return to clients.
type ParamError struct {
	Kind    error
	Param   string
	Message string
}

func (e *ParamError) Error() string { return e.Message }

func (e *ParamError) Unwrap() error { return e.Kind }

func paramError(kind error, param, msg string) error {
	return &ParamError{Kind: kind, Param: param, Message: msg}
}
