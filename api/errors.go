package api

import (
	"encoding/json"
	"net/http"

	"github.com/DomeLiquid/lending/core"
	"github.com/go-chi/chi/v5/middleware"
)

type errorBody struct {
	Error struct {
		Kind    string `json:"kind"`
		Message string `json:"message"`
	} `json:"error"`
}

var statusByKind = map[string]int{
	"NotFound":               http.StatusNotFound,
	"AlreadyExists":          http.StatusConflict,
	"InvalidAmount":          http.StatusBadRequest,
	"InvalidOwner":           http.StatusBadRequest,
	"InvalidConfig":          http.StatusBadRequest,
	"InsufficientBalance":    http.StatusUnprocessableEntity,
	"InsufficientLiquidity":  http.StatusUnprocessableEntity,
	"InsufficientCollateral": http.StatusUnprocessableEntity,
	"ExceedsDebt":            http.StatusUnprocessableEntity,
	"BankPaused":             http.StatusUnprocessableEntity,
	"BankReduceOnly":         http.StatusUnprocessableEntity,
	"DepositLimitExceeded":   http.StatusUnprocessableEntity,
	"BorrowLimitExceeded":    http.StatusUnprocessableEntity,
	"CollateralCheckFailed":  http.StatusServiceUnavailable,
	"PriceUnavailable":       http.StatusServiceUnavailable,
}

func statusOf(kind string) int {
	if status, ok := statusByKind[kind]; ok {
		return status
	}
	return http.StatusInternalServerError
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	kind := core.ErrorKind(err)
	status := statusOf(kind)
	if status == http.StatusInternalServerError {
		s.log.Error().Err(err).Str("path", r.URL.Path).Str("requestId", middleware.GetReqID(r.Context())).Msg("request failed")
		writeError(w, status, kind, "internal error")
		return
	}
	writeError(w, status, kind, err.Error())
}

func writeBadRequest(w http.ResponseWriter, message string) {
	writeError(w, http.StatusBadRequest, "InvalidRequest", message)
}

func writeError(w http.ResponseWriter, status int, kind, message string) {
	var body errorBody
	body.Error.Kind = kind
	body.Error.Message = message
	writeJSON(w, status, body)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
