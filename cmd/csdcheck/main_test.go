package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/cfdi-generator/internal/infrastructure/csd/csdtest"
	"github.com/jhoicas/cfdi-generator/pkg/config"
)

func escribirCer(t *testing.T) string {
	t.Helper()
	der, _ := csdtest.Generar(t)
	path := filepath.Join(t.TempDir(), "emisor.cer")
	require.NoError(t, os.WriteFile(path, der, 0o600))
	return path
}

func TestDiagnosticar_Vigente(t *testing.T) {
	var out bytes.Buffer
	code := diagnosticar(config.CSDConfig{CertPath: escribirCer(t)}, time.Now(), &out)

	assert.Equal(t, 0, code, out.String())
	assert.Contains(t, out.String(), "NoCertificado: "+csdtest.NoCertificado)
	assert.Contains(t, out.String(), "RFC titular:   EKU9003173C9")
	assert.Contains(t, out.String(), "Llave privada: false")
	assert.Contains(t, out.String(), "OK:")
}

func TestDiagnosticar_Vencido(t *testing.T) {
	var out bytes.Buffer
	code := diagnosticar(config.CSDConfig{CertPath: escribirCer(t)}, time.Now().AddDate(10, 0, 0), &out)

	assert.Equal(t, 1, code)
	assert.Contains(t, out.String(), "no está vigente")
}

func TestDiagnosticar_SinRuta(t *testing.T) {
	var out bytes.Buffer
	assert.Equal(t, 1, diagnosticar(config.CSDConfig{}, time.Now(), &out))
	assert.Contains(t, out.String(), "CSD_CERT_PATH")
}

func TestDiagnosticar_ArchivoInvalido(t *testing.T) {
	path := filepath.Join(t.TempDir(), "roto.cer")
	require.NoError(t, os.WriteFile(path, []byte("no es un certificado"), 0o600))

	var out bytes.Buffer
	assert.Equal(t, 1, diagnosticar(config.CSDConfig{CertPath: path}, time.Now(), &out))
	assert.Contains(t, out.String(), "ERROR: csd:")
}
