package httpx

import (
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/billflow/billflow/internal/shared"
)

// ErrMalformedBody is returned by DecodeJSON for unreadable payloads.
var ErrMalformedBody = shared.BadRequest("Malformed request body.")

// RespondError maps domain errors to HTTP responses using RFC7807.
func RespondError(w http.ResponseWriter, err error) {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		ValidationProblem(w, verrs)
		return
	}
	msg := shared.UserSafeMessage(err)
	switch shared.KindOf(err) {
	case shared.KindBadRequest:
		Problem(w, http.StatusBadRequest, "Bad Request", msg)
	case shared.KindConflict:
		Problem(w, http.StatusConflict, "Conflict", msg)
	case shared.KindUnauthorized:
		Problem(w, http.StatusUnauthorized, "Unauthorized", msg)
	case shared.KindNotFound:
		Problem(w, http.StatusNotFound, "Not Found", msg)
	default:
		Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}

// ValidationProblem reports field validation failures.
func ValidationProblem(w http.ResponseWriter, verrs validator.ValidationErrors) {
	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		fields[fe.Field()] = fieldMessage(fe)
	}
	writeProblem(w, ProblemDetail{
		Title:  "Validation Failed",
		Status: http.StatusBadRequest,
		Detail: "Validation error",
		Errors: fields,
	})
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid e-mail"
	case "min":
		return "must be at least " + fe.Param() + " characters"
	case "oneof":
		return "must be one of " + fe.Param()
	default:
		return "is invalid"
	}
}
