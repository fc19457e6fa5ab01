package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/httplog/v2"
	"github.com/go-chi/render"
)

// DefaultIdentityHeader is the header the auth gateway puts the caller's username in.
const DefaultIdentityHeader = "X-Auth-User"

// ErrNoIdentity is returned when a request carries no caller identity.
var ErrNoIdentity = errors.New("caller identity is missing")

// IdentityFunc resolves the username of the caller of r.
type IdentityFunc func(r *http.Request) (string, error)

// HeaderIdentity trusts the username set in header by an upstream gateway.
func HeaderIdentity(header string) IdentityFunc {
	if header == "" {
		header = DefaultIdentityHeader
	}

	return func(r *http.Request) (string, error) {
		owner := strings.TrimSpace(r.Header.Get(header))
		if owner == "" {
			return "", ErrNoIdentity
		}

		return owner, nil
	}
}

type ownerCtxKey struct{}

func ownerFromContext(ctx context.Context) string {
	owner, _ := ctx.Value(ownerCtxKey{}).(string)
	return owner
}

func requireIdentity(identify IdentityFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			owner, err := identify(r)
			if err != nil {
				httplog.LogEntrySetField(r.Context(), "err", slog.AnyValue(err))

				render.Status(r, http.StatusUnauthorized)
				render.JSON(w, r, unauthorizedResponse)
				return
			}

			httplog.LogEntrySetField(r.Context(), "owner", slog.StringValue(owner))

			ctx := context.WithValue(r.Context(), ownerCtxKey{}, owner)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
