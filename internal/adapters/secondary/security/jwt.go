package security

import (
	"crypto/rsa"
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

var ErrMissingSubject = errors.New("token has no subject")

// JWTValidator vérifie les access tokens émis par l'identity-service (RS256).
// Seule la clé PUBLIQUE est nécessaire ici : ce service ne signe rien.
type JWTValidator struct {
	publicKey *rsa.PublicKey
	issuer    string
	audience  string
}

// issuer et audience vides = claim non vérifié.
func NewJWTValidator(publicKeyPEM []byte, issuer, audience string) (*JWTValidator, error) {
	pubKey, err := jwt.ParseRSAPublicKeyFromPEM(publicKeyPEM)
	if err != nil {
		return nil, fmt.Errorf("failed to parse public key: %w", err)
	}
	return &JWTValidator{publicKey: pubKey, issuer: issuer, audience: audience}, nil
}

// Validate vérifie la signature et retourne l'UserID (Subject).
func (j *JWTValidator) Validate(tokenString string) (string, error) {
	opts := []jwt.ParserOption{
		// Empêche les attaques où l'attaquant force l'algo à "none" ou "HS256"
		jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if j.issuer != "" {
		opts = append(opts, jwt.WithIssuer(j.issuer))
	}
	if j.audience != "" {
		opts = append(opts, jwt.WithAudience(j.audience))
	}

	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(*jwt.Token) (interface{}, error) {
		return j.publicKey, nil
	}, opts...)
	if err != nil {
		return "", err
	}
	if !token.Valid {
		return "", errors.New("invalid token")
	}
	if claims.Subject == "" {
		return "", ErrMissingSubject
	}
	return claims.Subject, nil
}
