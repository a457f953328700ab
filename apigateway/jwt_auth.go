package gateway

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/awakeconnect/awake/apperr"
	"github.com/golang-jwt/jwt"
)

const (
	// SecretEnv names the environment variable holding the signing secret.
	SecretEnv = "JWT_SECRET"
	// MinSecretLength is the shortest HS256 secret New accepts.
	MinSecretLength = 16

	Issuer     = "awake"
	DefaultTTL = 7 * 24 * time.Hour
)

// JWTAuth signs and verifies HS256 tokens with a single shared secret.
type JWTAuth struct {
	Key []byte
	TTL time.Duration
	now func() time.Time
}

// New validates secret and returns an authenticator. It fails fast: a blank secret
// is ErrMissingSecret, a short one ErrWeakSecret.
func New(secret string) (*JWTAuth, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, apperr.ErrMissingSecret
	}
	if len(secret) < MinSecretLength {
		return nil, apperr.Wrap(
			fmt.Errorf("secret is %d bytes", len(secret)),
			apperr.ErrWeakSecret,
			fmt.Sprintf("FATAL: %s must be at least %d characters long.", SecretEnv, MinSecretLength),
		)
	}
	return &JWTAuth{Key: []byte(secret), TTL: DefaultTTL, now: time.Now}, nil
}

// NewFromEnv reads JWT_SECRET through getenv and calls New.
func NewFromEnv(getenv func(string) string) (*JWTAuth, error) {
	return New(getenv(SecretEnv))
}

// Claims is the token payload. Subject carries the user id.
type Claims struct {
	Role  string `json:"role"`
	Email string `json:"email"`
	jwt.StandardClaims
}

func (j *JWTAuth) clock() time.Time {
	if j.now == nil {
		return time.Now()
	}
	return j.now()
}

// Sign issues a token for a user that expires after TTL.
func (j *JWTAuth) Sign(userID, role, email string) (string, error) {
	if len(j.Key) == 0 {
		return "", apperr.ErrMissingSecret
	}
	ttl := j.TTL
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	now := j.clock()
	claims := Claims{
		Role:  role,
		Email: email,
		StandardClaims: jwt.StandardClaims{
			Subject:   userID,
			Issuer:    Issuer,
			IssuedAt:  now.Unix(),
			ExpiresAt: now.Add(ttl).Unix(),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(j.Key)
}

// Verify parses tokenString and checks signature and expiry.
func (j *JWTAuth) Verify(tokenString string) (*Claims, error) {
	if len(j.Key) == 0 {
		return nil, apperr.ErrMissingSecret
	}
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return j.Key, nil
	})
	if err != nil {
		return nil, apperr.Wrap(err, apperr.ErrUnauthorized, reason(err))
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, apperr.Wrap(errors.New("invalid token"), apperr.ErrUnauthorized, "Invalid token")
	}
	return claims, nil
}

func reason(err error) string {
	var ve *jwt.ValidationError
	if !errors.As(err, &ve) {
		return "Invalid token"
	}
	switch {
	case ve.Errors&jwt.ValidationErrorMalformed != 0:
		return "Malformed token"
	case ve.Errors&(jwt.ValidationErrorExpired|jwt.ValidationErrorNotValidYet) != 0:
		return "Token has expired"
	default:
		return "Invalid token"
	}
}
