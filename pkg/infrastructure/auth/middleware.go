// Package auth verifies Firebase bearer tokens on API requests.
package auth

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	firebase "firebase.google.com/go/v4"
	fbauth "firebase.google.com/go/v4/auth"

	httputil "github.com/coursescope/server/pkg/infrastructure/http"
)

type uidKey struct{}

// UID returns the authenticated user's uid, or "" when the request was not
// authenticated (auth disabled).
func UID(ctx context.Context) string {
	uid, _ := ctx.Value(uidKey{}).(string)
	return uid
}

// TokenVerifier abstracts the Firebase auth client so handlers can be
// tested without credentials.
type TokenVerifier interface {
	VerifyIDToken(ctx context.Context, idToken string) (*fbauth.Token, error)
}

// NewVerifier builds the real Firebase auth client for a project.
func NewVerifier(ctx context.Context, projectID string) (*fbauth.Client, error) {
	app, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: projectID})
	if err != nil {
		return nil, fmt.Errorf("firebase init: %w", err)
	}
	client, err := app.Auth(ctx)
	if err != nil {
		return nil, fmt.Errorf("firebase auth client: %w", err)
	}
	return client, nil
}

// Middleware rejects requests without a valid Authorization: Bearer token.
// When disabled it passes every request through unauthenticated.
func Middleware(verifier TokenVerifier, disabled bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if disabled {
				next.ServeHTTP(w, r)
				return
			}

			const prefix = "Bearer "
			header := r.Header.Get("Authorization")
			if !strings.HasPrefix(header, prefix) {
				httputil.WriteError(w, http.StatusUnauthorized, "unauthorized", "missing bearer token")
				return
			}

			token, err := verifier.VerifyIDToken(r.Context(), strings.TrimPrefix(header, prefix))
			if err != nil {
				httputil.WriteError(w, http.StatusUnauthorized, "unauthorized", "invalid token")
				return
			}

			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), uidKey{}, token.UID)))
		})
	}
}
