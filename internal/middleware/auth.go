package middleware

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/dukerupert/homebase/internal/apperr"
	"github.com/dukerupert/homebase/internal/auth"
	"github.com/dukerupert/homebase/internal/store"
)

// RequireAuth validates the bearer token and populates AuthContext. The user
// must still exist; a soft-deleted account is rejected.
func RequireAuth(verifier auth.Verifier, st store.Store) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := auth.BearerToken(r.Header.Get("Authorization"))
			if !ok {
				apperr.Write(w, apperr.Auth("missing bearer token"))
				return
			}

			claims, err := verifier.Verify(token)
			if err != nil {
				apperr.Write(w, apperr.Auth("invalid token"))
				return
			}

			if _, err := st.FindUnique(r.Context(), store.ModelUser, claims.UserID); err != nil {
				if errors.Is(err, store.ErrNotFound) {
					apperr.Write(w, apperr.Auth("unknown user"))
					return
				}
				apperr.Write(w, err)
				return
			}

			ctx := auth.WithAuth(r.Context(), auth.AuthContext{UserID: claims.UserID, Email: claims.Email})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireMember checks that the caller is an active, accepted member of the
// household named by the {hid} path value, and records it with the member's
// role. It must run after RequireAuth on a route pattern that binds hid.
func RequireMember(st store.Store) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ac, ok := auth.FromContext(r.Context())
			if !ok {
				apperr.Write(w, apperr.Auth("unauthorized"))
				return
			}

			hid, err := strconv.ParseInt(r.PathValue("hid"), 10, 64)
			if err != nil {
				apperr.Write(w, apperr.Validation("invalid household id"))
				return
			}

			if _, err := st.FindUnique(r.Context(), store.ModelHousehold, hid); err != nil {
				apperr.Write(w, err)
				return
			}

			member, err := st.FindFirst(r.Context(), store.ModelHouseholdMember, store.Query{Where: store.Where{
				"household_id": hid,
				"user_id":      ac.UserID,
				"is_active":    true,
				"is_accepted":  true,
			}})
			if errors.Is(err, store.ErrNotFound) {
				apperr.Write(w, apperr.Forbidden("not a member of this household"))
				return
			}
			if err != nil {
				apperr.Write(w, err)
				return
			}

			ac.HouseholdID = hid
			ac.Role = member.String("role")
			next.ServeHTTP(w, r.WithContext(auth.WithAuth(r.Context(), ac)))
		})
	}
}

// RequireAdmin checks that the caller holds the ADMIN role in the current
// household.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !auth.IsAdmin(r.Context()) {
			apperr.Write(w, apperr.Forbidden("admin role required"))
			return
		}
		next.ServeHTTP(w, r)
	})
}
