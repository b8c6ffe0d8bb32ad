package auth

import "context"

type contextKey struct{}

// AuthContext identifies the caller of an authenticated request. HouseholdID
// and Role are set only on household-scoped routes.
type AuthContext struct {
	UserID      int64
	Email       string
	HouseholdID int64
	Role        string
}

func WithAuth(ctx context.Context, ac AuthContext) context.Context {
	return context.WithValue(ctx, contextKey{}, ac)
}

func FromContext(ctx context.Context) (AuthContext, bool) {
	ac, ok := ctx.Value(contextKey{}).(AuthContext)
	return ac, ok
}

func UserID(ctx context.Context) int64 {
	ac, ok := FromContext(ctx)
	if !ok {
		return 0
	}
	return ac.UserID
}

func HouseholdID(ctx context.Context) int64 {
	ac, _ := FromContext(ctx)
	return ac.HouseholdID
}

// IsAdmin reports whether the caller holds the ADMIN role in the current
// household.
func IsAdmin(ctx context.Context) bool {
	ac, _ := FromContext(ctx)
	return ac.Role == "ADMIN"
}
