package jwt

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/jhoicas/cfdi-generator/pkg/sat"
)

// Roles admitidos por la API.
const (
	RoleEmisor   = "emisor"   // valida y emite comprobantes de su RFC
	RoleConsulta = "consulta" // solo valida, decodifica y previsualiza
)

var (
	ErrSecretVacio = errors.New("jwt: secret vacío")
	ErrRolInvalido = errors.New("jwt: rol no admitido")
)

// Claims claims estándar más el RFC del emisor autorizado y su rol.
// El handler de emisión compara Rfc contra Emisor.Rfc del comprobante sin consultar otra fuente.
type Claims struct {
	jwt.RegisteredClaims
	Rfc  string `json:"rfc"`
	Role string `json:"role"`
}

// ValidRole indica si role es uno de los roles de la API.
func ValidRole(role string) bool {
	return role == RoleEmisor || role == RoleConsulta
}

// Generate firma (HS256) un token para subject. El RFC debe tener forma válida.
func Generate(secret, subject, rfc, role, issuer string, expMinutes int) (string, error) {
	if secret == "" {
		return "", ErrSecretVacio
	}
	if !ValidRole(role) {
		return "", fmt.Errorf("%w: %q", ErrRolInvalido, role)
	}
	if err := sat.ValidateRFC(rfc); err != nil {
		return "", fmt.Errorf("jwt: %w", err)
	}
	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Duration(expMinutes) * time.Minute)),
		},
		Rfc:  rfc,
		Role: role,
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

// Parse valida firma HMAC y expiración, y devuelve los claims.
// Un rol desconocido se descarta (Role vacío) para que RequireRole responda 401.
func Parse(secret, tokenString string) (*Claims, error) {
	if secret == "" {
		return nil, ErrSecretVacio
	}
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(*jwt.Token) (any, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		return nil, fmt.Errorf("jwt: %w", err)
	}
	if !ValidRole(claims.Role) {
		claims.Role = ""
	}
	return claims, nil
}
