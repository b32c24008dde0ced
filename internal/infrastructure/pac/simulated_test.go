package pac_test

import (
	"context"
	"encoding/base64"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/cfdi-generator/internal/domain/cfdi/cfditest"
	"github.com/jhoicas/cfdi-generator/internal/infrastructure/cfdixml"
	"github.com/jhoicas/cfdi-generator/internal/infrastructure/pac"
	"github.com/jhoicas/cfdi-generator/pkg/sat"
)

const selloPrueba = "c2VsbG8tZGUtcHJ1ZWJh"

func sellado(t *testing.T) []byte {
	t.Helper()
	c := cfditest.ComprobanteValido()
	c.Sello = selloPrueba
	c.NoCertificado = "30001000000500003416"
	c.Certificado = "TUlJQ2VydA=="
	out, err := cfdixml.NewEncoder().Encode(c)
	require.NoError(t, err)
	return out
}


// ── Stamp ──────────────────────────────────────────────────────────────────────

func TestStamp_DevuelveTimbreCompleto(t *testing.T) {
	fijo := time.Date(2024, 5, 1, 10, 5, 30, 123, time.UTC)
	s := pac.NewSimulatedStamper("SAT970701NN3").WithClock(func() time.Time { return fijo })

	res, err := s.Stamp(context.Background(), sellado(t))
	require.NoError(t, err)

	_, err = uuid.Parse(res.UUID)
	assert.NoError(t, err, "UUID debe ser válido")
	assert.Equal(t, sat.VersionTFD, res.Version)
	assert.Equal(t, "SAT970701NN3", res.RfcProvCertif)
	assert.Equal(t, selloPrueba, res.SelloCFD, "SelloCFD debe copiar el Sello del comprobante")
	assert.Equal(t, pac.NoCertificadoSATSimulado, res.NoCertificadoSAT)
	assert.Equal(t, fijo.Truncate(time.Second), res.FechaTimbrado)

	firma, err := base64.StdEncoding.DecodeString(res.SelloSAT)
	require.NoError(t, err)
	assert.Len(t, firma, 32)
}

func TestStamp_UUIDDistintoPorLlamada(t *testing.T) {
	s := pac.NewSimulatedStamper("SAT970701NN3")
	xml := sellado(t)

	a, err := s.Stamp(context.Background(), xml)
	require.NoError(t, err)
	b, err := s.Stamp(context.Background(), xml)
	require.NoError(t, err)
	assert.NotEqual(t, a.UUID, b.UUID)
}

func TestStamp_SinSello(t *testing.T) {
	out, err := cfdixml.NewEncoder().Encode(cfditest.ComprobanteValido())
	require.NoError(t, err)

	_, err = pac.NewSimulatedStamper("SAT970701NN3").Stamp(context.Background(), out)
	assert.ErrorIs(t, err, pac.ErrSinSello)
}

func TestStamp_XMLInvalido(t *testing.T) {
	_, err := pac.NewSimulatedStamper("SAT970701NN3").Stamp(context.Background(), []byte("<nada/>"))
	assert.Error(t, err)
}

func TestStamp_ContextoCancelado(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := pac.NewSimulatedStamper("SAT970701NN3").Stamp(ctx, sellado(t))
	assert.ErrorIs(t, err, context.Canceled)
}
