package middlewares

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/estateplan/apiv1/auth"
	"github.com/estateplan/apiv1/models"
	"github.com/estateplan/apiv1/utils"
)

type contextKey string

const userContextKey contextKey = "authUser"

func GetTokenFromAuthorizationHeader(authHeader string) (string, error) {
	if len(authHeader) == 0 {
		return "", errors.New(utils.MISSING_REQUEST_DATA)
	}
	bearerToken := strings.Split(authHeader, " ")
	if len(bearerToken) < 2 {
		return "", errors.New(utils.MISSING_REQUEST_DATA)
	}
	return bearerToken[1], nil
}

func writeUnauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	json.NewEncoder(w).Encode(map[string]any{"success": false, "message": message})
}

// IsAccessTokenAuthorized guards a route behind a valid bearer token. The
// account is re-fetched on every request and stashed in the context, so
// handlers never trust claims from a deactivated account.
func IsAccessTokenAuthorized(svc *auth.Service, f http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tokenString, err := GetTokenFromAuthorizationHeader(r.Header.Get("Authorization"))
		if err != nil {
			writeUnauthorized(w, utils.INVALID_SESSION_ERROR)
			return
		}
		user, err := svc.VerifySession(r.Context(), tokenString)
		if err != nil {
			switch {
			case errors.Is(err, utils.ErrTokenExpired):
				writeUnauthorized(w, utils.EXPIRED_SESSION_ERROR)
			case errors.Is(err, auth.ErrAccountDeactivated):
				writeUnauthorized(w, utils.DEACTIVATED_ACCOUNT_ERROR)
			default:
				writeUnauthorized(w, utils.INVALID_SESSION_ERROR)
			}
			return
		}
		ctx := context.WithValue(r.Context(), userContextKey, user)
		f(w, r.WithContext(ctx))
	}
}

func UserFromContext(ctx context.Context) (*models.User, bool) {
	user, ok := ctx.Value(userContextKey).(*models.User)
	return user, ok
}
