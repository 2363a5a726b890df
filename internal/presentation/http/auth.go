package httppresentation

import (
	"context"
	"net/http"
	"strings"

	"github.com/Zhima-Mochi/sportsphere/internal/domain/account"
	"github.com/Zhima-Mochi/sportsphere/internal/domain/apperr"
	"github.com/Zhima-Mochi/sportsphere/internal/observability"
	"github.com/Zhima-Mochi/sportsphere/internal/observability/logctx"
)

var (
	errNoToken   = apperr.New(apperr.ErrUnauthenticated, "not authorized, no token")
	errAdminOnly = apperr.New(apperr.ErrForbidden, "not authorized as an admin")
)

type identityKey struct{}

func contextWithIdentity(ctx context.Context, id account.Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

func identityFrom(ctx context.Context) (account.Identity, bool) {
	id, ok := ctx.Value(identityKey{}).(account.Identity)
	return id, ok
}

// withAuth resolves the bearer token into an identity. Missing or invalid
// tokens answer 401.
func (h *Handler) withAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := bearerToken(r)
		if !ok {
			h.writeDomainError(w, r, errNoToken)
			return
		}
		id, _, err := h.svc.Accounts.Authenticate(r.Context(), token)
		if err != nil {
			h.writeDomainError(w, r, err)
			return
		}
		ctx := contextWithIdentity(r.Context(), id)
		ctx = logctx.Enrich(ctx, observability.F("account_id", id.AccountID))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// withAdmin must run after withAuth. Authenticated non-admins answer 403.
func (h *Handler) withAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := identityFrom(r.Context())
		if !ok {
			h.writeDomainError(w, r, errNoToken)
			return
		}
		if !id.IsAdmin {
			h.writeDomainError(w, r, errAdminOnly)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// requester is only called behind withAuth.
func requester(r *http.Request) account.Identity {
	id, _ := identityFrom(r.Context())
	return id
}
