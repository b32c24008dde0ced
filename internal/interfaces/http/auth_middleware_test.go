package http_test

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	gojwt "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apphttp "github.com/jhoicas/cfdi-generator/internal/interfaces/http"
	pkgjwt "github.com/jhoicas/cfdi-generator/pkg/jwt"
)

// ──────────────────────────────────────────────────────────────────────────────
// Helpers de test
// ──────────────────────────────────────────────────────────────────────────────

const (
	testJWTSecret = "test-secret-key-for-unit-tests"
	testSubject   = "00000000-0000-0000-0000-000000000001"
	testRfc       = "EKU9003173C9"
	testIssuer    = "cfdi-generator-test"
	testExpMin    = 60
)

// buildRoleApp aplicación Fiber mínima con AuthMiddleware + RequireRole y un handler dummy.
func buildRoleApp(allowedRoles ...string) *fiber.App {
	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
		},
	})
	app.Get("/protected",
		apphttp.AuthMiddleware(testJWTSecret),
		apphttp.RequireRole(allowedRoles...),
		func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusOK).JSON(fiber.Map{
				"ok":   true,
				"role": apphttp.GetRole(c),
			})
		},
	)
	return app
}

// tokenFor genera un JWT con el RFC y rol indicados.
func tokenFor(t *testing.T, rfc, role string) string {
	t.Helper()
	tok, err := pkgjwt.Generate(testJWTSecret, testSubject, rfc, role, testIssuer, testExpMin)
	require.NoError(t, err, "debe generarse un token JWT válido")
	return "Bearer " + tok
}

// tokenSinRol firma un token válido cuyo claim de rol viene vacío.
func tokenSinRol(t *testing.T) string {
	t.Helper()
	claims := pkgjwt.Claims{
		RegisteredClaims: gojwt.RegisteredClaims{
			Subject:   testSubject,
			ExpiresAt: gojwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
		Rfc: testRfc,
	}
	tok, err := gojwt.NewWithClaims(gojwt.SigningMethodHS256, claims).SignedString([]byte(testJWTSecret))
	require.NoError(t, err)
	return "Bearer " + tok
}

func doGet(t *testing.T, app *fiber.App, path, authHeader string) *http.Response {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

// ──────────────────────────────────────────────────────────────────────────────
// Tests RequireRole
// ──────────────────────────────────────────────────────────────────────────────

func TestRequireRole_EmisorAccede(t *testing.T) {
	app := buildRoleApp(pkgjwt.RoleEmisor)
	resp := doGet(t, app, "/protected", tokenFor(t, testRfc, pkgjwt.RoleEmisor))
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode, "emisor debe poder acceder a ruta de emisor")

	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, true, body["ok"])
	assert.Equal(t, pkgjwt.RoleEmisor, body["role"])
}

func TestRequireRole_ConsultaBloqueadoEnRutaEmisor(t *testing.T) {
	app := buildRoleApp(pkgjwt.RoleEmisor)
	resp := doGet(t, app, "/protected", tokenFor(t, testRfc, pkgjwt.RoleConsulta))
	defer resp.Body.Close()

	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	body, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(body), "FORBIDDEN")
}

func TestRequireRole_TokenSinRol_Retorna401(t *testing.T) {
	app := buildRoleApp(pkgjwt.RoleEmisor)
	resp := doGet(t, app, "/protected", tokenSinRol(t))
	defer resp.Body.Close()

	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	body, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(body), "MISSING_ROLE")
}

func TestAuthMiddleware_SinHeaderOTokenInvalido(t *testing.T) {
	app := buildRoleApp(pkgjwt.RoleEmisor)

	resp := doGet(t, app, "/protected", "")
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = doGet(t, app, "/protected", "Bearer token.invalido.aqui")
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = doGet(t, app, "/protected", "Basic abc")
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestAuthMiddleware_ExtraeClaims(t *testing.T) {
	app := fiber.New()
	app.Get("/me", apphttp.AuthMiddleware(testJWTSecret), func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"subject": apphttp.GetSubject(c),
			"rfc":     apphttp.GetRfc(c),
			"role":    apphttp.GetRole(c),
		})
	})

	resp := doGet(t, app, "/me", tokenFor(t, testRfc, pkgjwt.RoleConsulta))
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, testSubject, body["subject"])
	assert.Equal(t, testRfc, body["rfc"])
	assert.Equal(t, pkgjwt.RoleConsulta, body["role"])
}

// ──────────────────────────────────────────────────────────────────────────────
// Tests JWT pkg
// ──────────────────────────────────────────────────────────────────────────────

func TestJWT_GenerateAndParse(t *testing.T) {
	tok, err := pkgjwt.Generate(testJWTSecret, testSubject, testRfc, pkgjwt.RoleEmisor, testIssuer, testExpMin)
	require.NoError(t, err)

	claims, err := pkgjwt.Parse(testJWTSecret, tok)
	require.NoError(t, err)
	assert.Equal(t, testSubject, claims.Subject)
	assert.Equal(t, testRfc, claims.Rfc)
	assert.Equal(t, pkgjwt.RoleEmisor, claims.Role)
	assert.Equal(t, testIssuer, claims.Issuer)
}

func TestJWT_TokenExpirado_RetornaError(t *testing.T) {
	tok, err := pkgjwt.Generate(testJWTSecret, testSubject, testRfc, pkgjwt.RoleEmisor, testIssuer, -1)
	require.NoError(t, err)

	_, err = pkgjwt.Parse(testJWTSecret, tok)
	assert.ErrorIs(t, err, gojwt.ErrTokenExpired, "token expirado debe retornar error")
}

func TestJWT_SecretIncorrecto_RetornaError(t *testing.T) {
	tok, err := pkgjwt.Generate(testJWTSecret, testSubject, testRfc, pkgjwt.RoleEmisor, testIssuer, testExpMin)
	require.NoError(t, err)

	_, err = pkgjwt.Parse("otro-secret-completamente-distinto", tok)
	assert.ErrorIs(t, err, gojwt.ErrTokenSignatureInvalid)

	_, err = pkgjwt.Generate("", testSubject, testRfc, pkgjwt.RoleEmisor, testIssuer, testExpMin)
	assert.ErrorIs(t, err, pkgjwt.ErrSecretVacio)
}

func TestJWT_GenerateRechazaRolYRfc(t *testing.T) {
	_, err := pkgjwt.Generate(testJWTSecret, testSubject, testRfc, "admin", testIssuer, testExpMin)
	assert.ErrorIs(t, err, pkgjwt.ErrRolInvalido)

	_, err = pkgjwt.Generate(testJWTSecret, testSubject, "NO-ES-RFC", pkgjwt.RoleEmisor, testIssuer, testExpMin)
	assert.Error(t, err, "RFC con forma inválida")
}

func TestJWT_MetodoDeFirmaNoAdmitido(t *testing.T) {
	claims := pkgjwt.Claims{
		RegisteredClaims: gojwt.RegisteredClaims{ExpiresAt: gojwt.NewNumericDate(time.Now().Add(time.Hour))},
		Rfc:              testRfc,
		Role:             pkgjwt.RoleEmisor,
	}
	tok, err := gojwt.NewWithClaims(gojwt.SigningMethodHS512, claims).SignedString([]byte(testJWTSecret))
	require.NoError(t, err)

	_, err = pkgjwt.Parse(testJWTSecret, tok)
	assert.Error(t, err, "solo se admite HS256")
}
