// Package csdtest genera certificados autofirmados con la forma de un CSD del SAT para pruebas.
package csdtest

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/asn1"
	"encoding/base64"
	"math/big"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// NoCertificado serial de los certificados generados.
const NoCertificado = "30001000000500003416"

// Generar certificado autofirmado con serial ASCII y x500UniqueIdentifier "RFC / CURP".
func Generar(t testing.TB) ([]byte, *ecdsa.PrivateKey) {
	t.Helper()
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	tmpl := &x509.Certificate{
		SerialNumber: new(big.Int).SetBytes([]byte(NoCertificado)),
		Subject: pkix.Name{
			CommonName: "ESCUELA KEMPER URGATE",
			ExtraNames: []pkix.AttributeTypeAndValue{
				{Type: asn1.ObjectIdentifier{2, 5, 4, 45}, Value: "EKU9003173C9 / XIQB891116QE4"},
			},
		},
		NotBefore: time.Now().Add(-time.Hour),
		NotAfter:  time.Now().AddDate(4, 0, 0),
		KeyUsage:  x509.KeyUsageDigitalSignature | x509.KeyUsageContentCommitment,
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &key.PublicKey, key)
	require.NoError(t, err)
	return der, key
}

// Base64 certificado generado listo para el atributo Certificado.
func Base64(t testing.TB) string {
	der, _ := Generar(t)
	return base64.StdEncoding.EncodeToString(der)
}
