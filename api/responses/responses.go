package responses

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/crispyspin/crispyspin-backend/pkg/enums"
	pkgerrors "github.com/crispyspin/crispyspin-backend/pkg/errors"
	"github.com/crispyspin/crispyspin-backend/pkg/logger"
)

// Success wraps every 2xx body.
type Success struct {
	Data any `json:"data"`
}

// Failure wraps every error body.
type Failure struct {
	Error ErrorBody `json:"error"`
}

// ErrorBody is what clients see for a failed request. Reason is set for the
// spin and settlement failures clients branch on.
type ErrorBody struct {
	Code      string `json:"code"`
	Reason    string `json:"reason,omitempty"`
	Message   string `json:"message"`
	Retryable bool   `json:"retryable"`
	Details   any    `json:"details,omitempty"`
}

var failureReasons = map[pkgerrors.Code]enums.FailureReason{
	pkgerrors.CodeVerification: enums.ReasonVerificationFailed,
	pkgerrors.CodeSigning:      enums.ReasonInternalError,
	pkgerrors.CodePersistence:  enums.ReasonInternalError,
	pkgerrors.CodeInternal:     enums.ReasonInternalError,
}

func WriteSuccess(w http.ResponseWriter, data any) {
	WriteSuccessStatus(w, http.StatusOK, data)
}

func WriteSuccessStatus(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, Success{Data: data})
}

// WriteError renders err through the code catalog. Errors without a code are
// reported as internal; their text never reaches the client.
func WriteError(ctx context.Context, logg *logger.Logger, w http.ResponseWriter, err error) {
	if err == nil {
		err = errors.New("unknown error")
	}
	typed := pkgerrors.As(err)
	if typed == nil {
		typed = pkgerrors.Wrap(pkgerrors.CodeInternal, err, "unexpected error")
	}
	meta := pkgerrors.MetadataFor(typed.Code())

	body := ErrorBody{
		Code:      string(typed.Code()),
		Reason:    failureReasons[typed.Code()].String(),
		Message:   meta.PublicMessage,
		Retryable: meta.Retryable,
	}
	if meta.MessageAllowed && typed.Message() != "" {
		body.Message = typed.Message()
	}
	if meta.DetailsAllowed {
		body.Details = typed.Details()
	}

	if logg != nil {
		ctx = logg.WithFields(ctx, pkgerrors.LogFields(err))
		if meta.HTTPStatus >= http.StatusInternalServerError {
			logg.Error(ctx, "request.error", err)
		} else {
			logg.Warn(ctx, "request.rejected")
		}
	}

	writeJSON(w, meta.HTTPStatus, Failure{Error: body})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Error().Err(err).Int("status", status).Msg("response.encode_failed")
	}
}
