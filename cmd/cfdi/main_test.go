package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/cfdi-generator/internal/application/billing"
	"github.com/jhoicas/cfdi-generator/internal/domain/cfdi"
	"github.com/jhoicas/cfdi-generator/internal/domain/cfdi/cfditest"
	"github.com/jhoicas/cfdi-generator/internal/infrastructure/cfdixml"
)

func escribir(t *testing.T, dir, nombre string, c *cfdi.Comprobante) string {
	t.Helper()
	data, err := cfdixml.NewEncoder().Encode(c)
	require.NoError(t, err)
	path := filepath.Join(dir, nombre)
	require.NoError(t, os.WriteFile(path, data, 0o600))
	return path
}

func TestRun_Valido(t *testing.T) {
	dir := t.TempDir()
	ok := escribir(t, dir, "ok.xml", cfditest.ComprobanteValido())

	var out bytes.Buffer
	code := run([]string{ok}, billing.DefaultValidadores(), true, &out)
	assert.Equal(t, 0, code)
	assert.Contains(t, out.String(), "ok.xml: válido (EKU9003173C9 A-123)")
	assert.Contains(t, out.String(), "huella: ")
}

func TestRun_ConViolaciones(t *testing.T) {
	dir := t.TempDir()
	c := cfditest.ComprobanteValido()
	c.SubTotal = c.SubTotal.Add(decimal.RequireFromString("1"))
	mal := escribir(t, dir, "mal.xml", c)

	var out bytes.Buffer
	code := run([]string{mal}, billing.DefaultValidadores(), false, &out)
	assert.Equal(t, 1, code)
	assert.Contains(t, out.String(), "violaciones")
	assert.Contains(t, out.String(), "SubTotal [InvariantMismatch]")
	assert.NotContains(t, out.String(), "huella")
}

func TestRun_ArchivoInexistenteYEstructural(t *testing.T) {
	dir := t.TempDir()
	roto := filepath.Join(dir, "roto.xml")
	require.NoError(t, os.WriteFile(roto, []byte("<cfdi:Comprobante"), 0o600))
	ok := escribir(t, dir, "ok.xml", cfditest.ComprobanteValido())

	var out bytes.Buffer
	code := run([]string{filepath.Join(dir, "no-existe.xml"), roto, ok}, billing.DefaultValidadores(), false, &out)
	assert.Equal(t, 1, code, "un archivo con error marca la salida aunque otros sean válidos")
	assert.Contains(t, out.String(), "no-existe.xml: leer:")
	assert.Contains(t, out.String(), "roto.xml: ")
	assert.Contains(t, out.String(), "ok.xml: válido")
}
