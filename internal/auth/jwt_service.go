package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
)

// Claims represents JWT claims of an issued bearer credential.
// Subject carries the user id and ID the unique token identifier.
type Claims struct {
	Email string `json:"email"`
	Name  string `json:"name"`
	jwt.RegisteredClaims
}

// JWTService handles JWT token generation and validation.
type JWTService struct {
	secret []byte
	now    func() time.Time
}

// NewJWTService creates a new JWT service with the given secret.
func NewJWTService(secret string) *JWTService {
	return &JWTService{
		secret: []byte(secret),
		now:    time.Now,
	}
}

// MaxTokenLength is the widest credential the tokens table stores.
const MaxTokenLength = 768

// GenerateToken signs a credential for the user that expires at expiresAt.
// The token ID (JTI) is returned separately so callers can log it without the token.
// Name, then email, are left out of the claims when the signed token would not
// fit in MaxTokenLength; the stored record still ties it to the user.
func (s *JWTService) GenerateToken(userID uuid.UUID, email, name string, expiresAt time.Time) (tokenID string, token string, err error) {
	tokenID = generateTokenID()
	now := s.now()
	claims := &Claims{
		Email: email,
		Name:  name,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.String(),
			ID:        tokenID,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	for _, drop := range []*string{nil, &claims.Name, &claims.Email} {
		if drop != nil {
			*drop = ""
		}
		token, err = jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
		if err != nil || len(token) <= MaxTokenLength {
			return tokenID, token, err
		}
	}
	return "", "", errors.New("token exceeds maximum length")
}

// VerifySignature checks only that tokenString was signed with our secret.
// Expiry is left to the stored token record.
func (s *JWTService) VerifySignature(tokenString string) (*Claims, error) {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithoutClaimsValidation(),
	)
	token, err := parser.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return s.secret, nil
	})
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}

// UserID returns the subject as a uuid.
func (c *Claims) UserID() (uuid.UUID, error) {
	return uuid.Parse(c.Subject)
}

// generateTokenID generates a unique token ID.
func generateTokenID() string {
	return uuid.New().String()
}
