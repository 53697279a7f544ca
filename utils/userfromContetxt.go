package utils

import (
	"context"
	"net/http"

	"salonq/globals"
	"salonq/models"
)

// WithPrincipal returns a copy of ctx carrying p.
func WithPrincipal(ctx context.Context, p models.Principal) context.Context {
	return context.WithValue(ctx, globals.PrincipalKey, p)
}

// PrincipalFromContext returns the authenticated caller, if any.
func PrincipalFromContext(ctx context.Context) (models.Principal, bool) {
	p, ok := ctx.Value(globals.PrincipalKey).(models.Principal)
	if !ok || p.UserID == "" {
		return models.Principal{}, false
	}
	return p, true
}

func GetUserIDFromRequest(r *http.Request) string {
	p, _ := PrincipalFromContext(r.Context())
	return p.UserID
}
