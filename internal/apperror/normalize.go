package apperror

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/samber/oops"

	"studytube/backend/internal/logging"
)

const genericMessage = "Something went wrong! Please try again later."

// Mode selects how much detail the normalizer exposes.
type Mode string

const (
	Development Mode = "development"
	Production  Mode = "production"
)

// ParseMode maps an environment name to a Mode. Anything that is not
// explicitly development is treated as production.
func ParseMode(env string) Mode {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "development", "dev":
		return Development
	default:
		return Production
	}
}

// Response is the JSON error envelope written to clients.
type Response struct {
	Status     string  `json:"status"`
	StatusCode int     `json:"statusCode"`
	Message    string  `json:"message"`
	Stack      string  `json:"stack,omitempty"`
	Error      *Detail `json:"error,omitempty"`
}

// Detail is the raw error description included in development responses.
type Detail struct {
	Message string         `json:"message"`
	Code    any            `json:"code,omitempty"`
	Context map[string]any `json:"context,omitempty"`
}

// Classify converts err into an operational error when it is one already or
// when it carries a recognised store fault. It reports false for anything else.
func Classify(err error) (*Error, bool) {
	var opErr *Error
	if errors.As(err, &opErr) {
		return opErr, true
	}
	var fault *Fault
	if errors.As(err, &fault) {
		switch fault.Kind {
		case FaultInvalidID, FaultDuplicate, FaultValidation:
			return &Error{
				StatusCode: http.StatusBadRequest,
				Message:    fault.Message(),
				cause:      err,
			}, true
		}
	}
	return nil, false
}

// Normalizer turns any error into a Response.
type Normalizer struct {
	mode   Mode
	logger *slog.Logger
}

// NewNormalizer constructs a normalizer for the given mode.
func NewNormalizer(mode Mode, logger *slog.Logger) *Normalizer {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if mode != Development {
		mode = Production
	}
	return &Normalizer{mode: mode, logger: logger}
}

// Mode reports the normalizer's mode.
func (n *Normalizer) Mode() Mode { return n.mode }

// Normalize never fails: every input, including nil, yields a Response.
func (n *Normalizer) Normalize(err error) Response {
	if err == nil {
		err = oops.Code("NIL_ERROR").Errorf("nil error reached the error handler")
	}

	resp := Response{
		Status:     statusFamily(http.StatusInternalServerError),
		StatusCode: http.StatusInternalServerError,
		Message:    genericMessage,
	}

	opErr, operational := Classify(err)
	if operational {
		resp.Status = opErr.Status()
		resp.StatusCode = opErr.StatusCode
		resp.Message = opErr.Message
	}

	if !operational || opErr.StatusCode >= http.StatusInternalServerError {
		logging.LogError(n.logger, "request failed", err)
	}

	if n.mode == Development {
		if !operational {
			resp.Message = err.Error()
		}
		resp.Stack = stacktrace(err)
		resp.Error = detail(err)
	}
	return resp
}

func stacktrace(err error) string {
	if oopsErr, ok := oops.AsOops(err); ok {
		if stack := oopsErr.Stacktrace(); stack != "" {
			return stack
		}
	}
	if oopsErr, ok := oops.AsOops(oops.Wrap(err)); ok {
		return oopsErr.Stacktrace()
	}
	return ""
}

func detail(err error) *Detail {
	d := &Detail{Message: err.Error()}
	if oopsErr, ok := oops.AsOops(err); ok {
		d.Code = oopsErr.Code()
		if ctx := oopsErr.Context(); len(ctx) > 0 {
			d.Context = ctx
		}
	}
	return d
}
