package auth

// Binder resolves the identity a connection is bound to on "authenticate".
type Binder interface {
	Bind(claimedUserID, token string) (string, error)
}

// TokenBinder derives identity from a verified token. A claimed user id, when
// present, must match the token subject.
type TokenBinder struct {
	Verifier *Verifier
}

func (b TokenBinder) Bind(claimedUserID, token string) (string, error) {
	subject, err := b.Verifier.Verify(token)
	if err != nil {
		return "", err
	}
	if claimedUserID != "" && claimedUserID != subject {
		return "", ErrSubjectMismatch
	}
	return subject, nil
}

// TrustingBinder accepts the client-asserted user id as-is. Any client can
// claim any identity with it, so it is only wired when AUTH_TRUST_CLIENT is set.
type TrustingBinder struct{}

func (TrustingBinder) Bind(claimedUserID, _ string) (string, error) {
	if claimedUserID == "" {
		return "", ErrSubjectMissing
	}
	return claimedUserID, nil
}
