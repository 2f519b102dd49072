// Package auth provides authentication for the warehouse API.
package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// AuthMethod represents the authentication method used.
type AuthMethod string

const (
	// AuthMethodNone indicates no authentication.
	AuthMethodNone AuthMethod = "none"
	// AuthMethodBasic indicates HTTP Basic authentication.
	AuthMethodBasic AuthMethod = "basic"
	// AuthMethodAPIKey indicates API key authentication.
	AuthMethodAPIKey AuthMethod = "apikey"
	// AuthMethodMulti indicates multi-method authentication.
	AuthMethodMulti AuthMethod = "multi"
)

// Role decides which warehouse operations a caller may perform.
type Role string

const (
	// RoleViewer may list and search stock.
	RoleViewer Role = "viewer"
	// RoleOperator may also store, remove and re-plan stock.
	RoleOperator Role = "operator"
)

// ParseRole parses a role name. An empty name means operator.
func ParseRole(s string) (Role, error) {
	switch Role(strings.ToLower(strings.TrimSpace(s))) {
	case "", RoleOperator:
		return RoleOperator, nil
	case RoleViewer:
		return RoleViewer, nil
	default:
		return "", fmt.Errorf("unknown role %q", s)
	}
}

// AuthInfo holds authenticated identity information.
type AuthInfo struct {
	Method  AuthMethod
	Subject string
	Role    Role
}

// CanModify reports whether the caller may change warehouse contents.
func (i *AuthInfo) CanModify() bool {
	return i != nil && i.Role == RoleOperator
}

// Authenticator validates a request and returns auth info.
type Authenticator interface {
	Authenticate(r *http.Request) (*AuthInfo, error)
	Method() AuthMethod
}

// Sentinel errors for authentication failures.
var (
	ErrUnauthenticated    = errors.New("unauthenticated: no credentials provided")
	ErrInvalidAPIKey      = errors.New("invalid API key")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrForbidden          = errors.New("forbidden: role does not allow this operation")
)

// contextKey is the type for context keys in this package.
type contextKey string

// authInfoKey is the context key for AuthInfo.
const authInfoKey contextKey = "auth_info"

// FromContext retrieves AuthInfo from the context.
func FromContext(ctx context.Context) (*AuthInfo, bool) {
	info, ok := ctx.Value(authInfoKey).(*AuthInfo)
	return info, ok
}

// WithAuthInfo stores AuthInfo in the context.
func WithAuthInfo(ctx context.Context, info *AuthInfo) context.Context {
	return context.WithValue(ctx, authInfoKey, info)
}

// credential is one parsed "first:second[:role]" entry.
type credential struct {
	first  string
	second string
	role   Role
}

// parseEntries splits a comma separated list of "first:second[:role]"
// entries. label names the config in error messages.
func parseEntries(label, config string) ([]credential, error) {
	trimmed := strings.TrimSpace(config)
	if trimmed == "" {
		return nil, fmt.Errorf("%s: config must not be empty", label)
	}

	var creds []credential
	for _, entry := range strings.Split(trimmed, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}

		parts := strings.SplitN(entry, ":", 3)
		if len(parts) < 2 {
			return nil, fmt.Errorf("%s: invalid entry format", label)
		}

		first := strings.TrimSpace(parts[0])
		second := strings.TrimSpace(parts[1])
		if first == "" || second == "" {
			return nil, fmt.Errorf("%s: entry fields must not be empty", label)
		}

		var roleName string
		if len(parts) == 3 {
			roleName = parts[2]
		}
		role, err := ParseRole(roleName)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", label, err)
		}

		creds = append(creds, credential{first: first, second: second, role: role})
	}

	if len(creds) == 0 {
		return nil, fmt.Errorf("%s: no valid entries found", label)
	}

	return creds, nil
}
