package oauth

import "fmt"

// AuthenticationRequiredError is returned by the client when a request
// fails with 401 and no cached token can satisfy it — the caller must run
// an interactive (or client-credentials) flow before retrying.
type AuthenticationRequiredError struct {
	Issuer          string
	WWWAuthenticate string
}

func (e *AuthenticationRequiredError) Error() string {
	return fmt.Sprintf("authentication required for %s", e.Issuer)
}

// RegistrationNotSupportedError is returned when Register is called
// against a server with no registration_endpoint.
type RegistrationNotSupportedError struct {
	Issuer string
}

func (e *RegistrationNotSupportedError) Error() string {
	return fmt.Sprintf("authorization server %s does not support dynamic client registration", e.Issuer)
}
