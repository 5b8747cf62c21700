package utils

import (
	"crypto/rsa"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"taskmaster-backend/shared/config"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Claims carried inside every access token. Claims are a snapshot of the
// user at issuance time; the auth middleware re-checks them against the
// live user record on every request.
type Claims struct {
	UserID         string `json:"user_id"`
	Email          string `json:"email"`
	Name           string `json:"name"`
	OrganizationID string `json:"organization_id"`
	Role           string `json:"role"`
	jwt.RegisteredClaims
}

var (
	signingKey    *rsa.PrivateKey
	verifyingKey  *rsa.PublicKey
	keysInitOnce  sync.Once
	keysInitError error
)

// InitKeys loads the RS256 key pair from config. The private key is
// optional: a service that only validates tokens needs the public key.
// Keys are loaded once at startup and read-only afterwards.
func InitKeys() error {
	keysInitOnce.Do(func() {
		cfg := config.GetConfig()

		publicPEM, err := readKeyMaterial(cfg.JWTPublicKeyPEM, cfg.JWTPublicKeyFile)
		if err != nil {
			keysInitError = fmt.Errorf("failed to load JWT public key: %w", err)
			return
		}
		verifyingKey, err = jwt.ParseRSAPublicKeyFromPEM(publicPEM)
		if err != nil {
			keysInitError = fmt.Errorf("failed to parse JWT public key: %w", err)
			return
		}

		privatePEM, err := readKeyMaterial(cfg.JWTPrivateKeyPEM, cfg.JWTPrivateKeyFile)
		if err != nil {
			// Validation-only deployment
			return
		}
		signingKey, err = jwt.ParseRSAPrivateKeyFromPEM(privatePEM)
		if err != nil {
			keysInitError = fmt.Errorf("failed to parse JWT private key: %w", err)
		}
	})
	return keysInitError
}

// SetKeysForTesting installs an in-memory key pair, bypassing config
func SetKeysForTesting(private *rsa.PrivateKey) {
	keysInitOnce.Do(func() {})
	signingKey = private
	verifyingKey = &private.PublicKey
}

func readKeyMaterial(inlinePEM, filePath string) ([]byte, error) {
	if inlinePEM != "" {
		return []byte(inlinePEM), nil
	}
	if filePath == "" {
		return nil, errors.New("no key material configured")
	}
	return os.ReadFile(filePath)
}

// GetJWTExpireDuration gets the token lifetime from config
func GetJWTExpireDuration() time.Duration {
	return time.Duration(config.GetConfig().GetJWTExpireHours()) * time.Hour
}

// GenerateJWT mints an RS256-signed access token for the given user
func GenerateJWT(userID uuid.UUID, email, name string, organizationID uuid.UUID, role string) (string, error) {
	if signingKey == nil {
		return "", errors.New("JWT signing key not loaded")
	}

	now := time.Now()
	claims := Claims{
		UserID:         userID.String(),
		Email:          email,
		Name:           name,
		OrganizationID: organizationID.String(),
		Role:           role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.String(),
			ExpiresAt: jwt.NewNumericDate(now.Add(GetJWTExpireDuration())),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	return token.SignedString(signingKey)
}

// ValidateJWT verifies signature and expiry and returns the claims.
// A token whose expiry equals the current instant is already expired.
func ValidateJWT(tokenString string) (*Claims, error) {
	if verifyingKey == nil {
		return nil, errors.New("JWT verification key not loaded")
	}

	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodRSA); !ok {
			return nil, errors.New("invalid signing method")
		}
		return verifyingKey, nil
	})

	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token")
	}
	if claims.ExpiresAt == nil || !time.Now().Before(claims.ExpiresAt.Time) {
		return nil, jwt.ErrTokenExpired
	}

	return claims, nil
}
