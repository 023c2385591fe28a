package handlers

import (
	"net/http"

	apperrors "github.com/namelens/domainwatch/internal/errors"
)

// httpErrorResponder writes handler errors. The server swaps in its own
// responder so 404/405 and handler errors share one code path.
var httpErrorResponder = apperrors.RespondWithError

// SetHTTPErrorResponder replaces the responder; nil restores the default.
func SetHTTPErrorResponder(responder func(http.ResponseWriter, *http.Request, error)) {
	if responder == nil {
		responder = apperrors.RespondWithError
	}
	httpErrorResponder = responder
}

func respondWithError(w http.ResponseWriter, r *http.Request, err error) {
	httpErrorResponder(w, r, err)
}
