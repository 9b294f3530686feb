package shared

import "context"

type credentialKey struct{}

// WithCredential returns a context carrying the caller's bearer credential.
//
// The credential is threaded explicitly through every call path instead of
// being held in any process-wide variable, so concurrent requests never see
// each other's tokens.
func WithCredential(ctx context.Context, credential string) context.Context {
	return context.WithValue(ctx, credentialKey{}, credential)
}

// CredentialFrom extracts the bearer credential from ctx, if any.
func CredentialFrom(ctx context.Context) (string, bool) {
	credential, ok := ctx.Value(credentialKey{}).(string)
	return credential, ok && credential != ""
}
