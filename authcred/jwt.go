package authcred

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// JWTClaims is the identity token payload minted on a successful
// handshake validate step and handed back as ServerValidateResponse's
// identity_token; ClientConnectRequest later echoes the raw token
// bytes, which handshake.Server compares byte for byte with the token
// it stored for that address (it does not call Verify on them).
type JWTClaims struct {
	jwt.RegisteredClaims
	UserName string `json:"user_name,omitempty"`
}

// JWTIssuer mints and verifies identity tokens as signed JWTs, the
// same pattern the teacher's oidc/auth0 package uses for validating
// inbound ID tokens, turned around here to issue them.
type JWTIssuer struct {
	key      []byte
	issuer   string
	lifetime time.Duration
	now      func() time.Time
}

func NewJWTIssuer(key []byte, issuer string, lifetime time.Duration) *JWTIssuer {
	return &JWTIssuer{key: key, issuer: issuer, lifetime: lifetime, now: time.Now}
}

// Issue mints a signed identity token binding userName to a short
// expiry window starting now.
func (j *JWTIssuer) Issue(userName string) ([]byte, error) {
	now := j.now()
	claims := JWTClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    j.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(j.lifetime)),
		},
		UserName: userName,
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(j.key)
	if err != nil {
		return nil, err
	}
	return []byte(signed), nil
}

// Verify parses and validates a token minted by Issue, returning the
// bound user name.
func (j *JWTIssuer) Verify(token []byte) (string, error) {
	parsed, err := jwt.ParseWithClaims(string(token), &JWTClaims{}, func(t *jwt.Token) (interface{}, error) {
		return j.key, nil
	}, jwt.WithValidMethods([]string{"HS256"}), jwt.WithIssuer(j.issuer), jwt.WithTimeFunc(j.now))
	if err != nil {
		return "", err
	}
	claims, ok := parsed.Claims.(*JWTClaims)
	if !ok || !parsed.Valid {
		return "", jwt.ErrTokenInvalidClaims
	}
	return claims.UserName, nil
}

// Validate implements handshake.Validator by treating auth_message as
// a bearer credential: any non-empty payload is accepted as the
// "user name" to bind into a freshly minted identity token. Real
// deployments should compose this with a SharedSecretVerifier-style
// check of the bearer payload itself before calling Issue; kept
// minimal here since that composition is application-specific.
func (j *JWTIssuer) Validate(authMessage []byte) ([]byte, bool) {
	if len(authMessage) == 0 {
		return nil, false
	}
	token, err := j.Issue(string(authMessage))
	if err != nil {
		return nil, false
	}
	return token, true
}
