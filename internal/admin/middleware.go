package admin

import (
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/rs/zerolog"
)

// KeyHeader carries the operator key on every admin request.
const KeyHeader = "x-admin-key"

const (
	maxBodyBytes = 1 << 20

	errMsgMethod       = "Method not allowed"
	errMsgUnauthorized = "Unauthorized: Invalid Owner ID"
	errMsgNoOwner      = "OWNER_ID is not configured"
	errMsgBadBody      = "Invalid request body"
	errMsgInvalid      = "Invalid Action"
)

type errorBody struct {
	Error string `json:"error"`
}

// guard applies CORS headers, answers preflight requests and checks the operator key.
type guard struct {
	key    string
	logger *zerolog.Logger
}

func newGuard(ownerID int64, logger *zerolog.Logger) guard {
	key := ""
	if ownerID != 0 {
		key = strconv.FormatInt(ownerID, 10)
	}

	return guard{key: key, logger: logger}
}

func (g guard) wrap(next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("Access-Control-Allow-Origin", "*")
		h.Set("Access-Control-Allow-Methods", "POST, OPTIONS")
		h.Set("Access-Control-Allow-Headers", "Content-Type, "+KeyHeader)

		switch r.Method {
		case http.MethodOptions:
			w.WriteHeader(http.StatusOK)

			return
		case http.MethodPost:
		default:
			writeError(w, http.StatusMethodNotAllowed, errMsgMethod)

			return
		}

		if g.key == "" {
			g.logger.Error().Msg("admin request rejected: owner key not configured")
			writeError(w, http.StatusInternalServerError, errMsgNoOwner)

			return
		}

		provided := r.Header.Get(KeyHeader)
		if provided == "" || subtle.ConstantTimeCompare([]byte(provided), []byte(g.key)) != 1 {
			g.logger.Info().Str("remote", r.RemoteAddr).Msg("admin request with invalid key")
			writeError(w, http.StatusUnauthorized, errMsgUnauthorized)

			return
		}

		r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

		next(w, r)
	})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v) //nolint:errcheck // client went away
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, errorBody{Error: msg})
}
