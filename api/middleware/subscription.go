package middleware

import (
	"context"
	"net/http"

	"github.com/nochance19900208-source/Real-Estate/api/responses"
	"github.com/nochance19900208-source/Real-Estate/internal/users"
	pkgerrors "github.com/nochance19900208-source/Real-Estate/pkg/errors"
	"github.com/nochance19900208-source/Real-Estate/pkg/logger"
)

// AccessChecker reports whether an account currently holds listing access.
type AccessChecker interface {
	HasActiveAccess(ctx context.Context, user *users.User) (bool, error)
}

// RequireSubscription gates listing data behind an unexpired subscription.
// Admin accounts pass through unconditionally.
func RequireSubscription(checker AccessChecker, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user := UserFromContext(r.Context())
			if user == nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
				return
			}
			if user.IsAdmin() {
				next.ServeHTTP(w, r)
				return
			}

			ok, err := checker.HasActiveAccess(r.Context(), user)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check subscription"))
				return
			}
			if !ok {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "active subscription required to access this resource"))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
