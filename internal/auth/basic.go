package auth

import (
	"fmt"
	"net/http"

	"golang.org/x/crypto/bcrypt"
)

// basicUser is a configured Basic auth account.
type basicUser struct {
	hash string
	role Role
}

// BasicAuthenticator authenticates requests using HTTP Basic authentication
// with bcrypt-hashed passwords.
type BasicAuthenticator struct {
	users map[string]basicUser
}

// NewBasicAuthenticator creates a Basic authenticator from a configuration
// string in the format "user1:hash1[:role],user2:hash2[:role]".
// Bcrypt hashes never contain a colon, so the optional third field is the role.
func NewBasicAuthenticator(
	usersConfig string,
) (*BasicAuthenticator, error) {
	creds, err := parseEntries("basic auth", usersConfig)
	if err != nil {
		return nil, err
	}

	users := make(map[string]basicUser, len(creds))
	for _, c := range creds {
		users[c.first] = basicUser{hash: c.second, role: c.role}
	}

	return &BasicAuthenticator{users: users}, nil
}

// Authenticate extracts Basic auth credentials from the request,
// looks up the user, and verifies the password against the stored
// bcrypt hash. Unknown users and wrong passwords fail the same way.
func (a *BasicAuthenticator) Authenticate(
	r *http.Request,
) (*AuthInfo, error) {
	username, password, ok := r.BasicAuth()
	if !ok {
		return nil, ErrUnauthenticated
	}

	user, exists := a.users[username]
	if !exists {
		return nil, fmt.Errorf("%w: user or password mismatch", ErrInvalidCredentials)
	}

	if err := bcrypt.CompareHashAndPassword(
		[]byte(user.hash), []byte(password),
	); err != nil {
		return nil, fmt.Errorf("%w: user or password mismatch", ErrInvalidCredentials)
	}

	return &AuthInfo{
		Method:  AuthMethodBasic,
		Subject: username,
		Role:    user.role,
	}, nil
}

// Method returns the authentication method type.
func (a *BasicAuthenticator) Method() AuthMethod {
	return AuthMethodBasic
}
