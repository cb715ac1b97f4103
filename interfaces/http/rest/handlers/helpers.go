// Package handlers adapts the application services to HTTP.
package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"dreamcatcher/interfaces/http/rest/middleware"
	"dreamcatcher/pkg/common"
	pkgerrors "dreamcatcher/pkg/errors"
	"dreamcatcher/pkg/utils"
)

// decodeJSON reads the request body into dst and validates it. An empty
// body is accepted when allowEmpty is set.
func decodeJSON(r *http.Request, dst interface{}, allowEmpty bool) error {
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) && allowEmpty {
			return utils.ValidateStruct(dst)
		}
		return pkgerrors.NewValidation("invalid request body: " + err.Error()).WithCode(pkgerrors.CodeInvalidInput)
	}
	return utils.ValidateStruct(dst)
}

func userID(r *http.Request) string {
	return middleware.UserID(r.Context())
}

func respondOK(w http.ResponseWriter, data interface{}) {
	common.RespondJSON(w, http.StatusOK, data)
}
