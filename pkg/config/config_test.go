package config_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/cfdi-generator/pkg/config"
)

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := config.Load()
	require.NoError(t, err)
	assert.Equal(t, "cfdi-generator", cfg.App.Name)
	assert.True(t, cfg.CFDI.Tolerancia.IsZero(), "tolerancia por defecto exacta")
	assert.Equal(t, "2000000000", cfg.CFDI.LimiteConfirmacion.String())
	assert.Empty(t, cfg.CFDI.BandasTipoCambio)
	assert.Equal(t, "dev", cfg.CFDI.PacMode)
	assert.Equal(t, 4, cfg.CFDI.BatchLimit)
}

func TestLoad_DesdeEntorno(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("CFDI_TOLERANCIA", "0.01")
	t.Setenv("CFDI_BANDAS_TIPO_CAMBIO", "USD:15.5-23.9, eur:17-26.5")
	t.Setenv("CFDI_COMERCIO_EXTERIOR", "true")
	t.Setenv("CFDI_BATCH_LIMIT", "8")
	t.Setenv("HTTP_PORT", "9090")

	cfg, err := config.Load()
	require.NoError(t, err)
	assert.Equal(t, "0.01", cfg.CFDI.Tolerancia.String())
	assert.True(t, cfg.CFDI.ComercioExterior)
	assert.Equal(t, 8, cfg.CFDI.BatchLimit)
	assert.Equal(t, "0.0.0.0:9090", cfg.HTTP.Addr())
	require.Contains(t, cfg.CFDI.BandasTipoCambio, "EUR")
	assert.Equal(t, "23.9", cfg.CFDI.BandasTipoCambio["USD"].Max.String())
}

func TestLoad_ToleranciaInvalida(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("CFDI_TOLERANCIA", "uno")

	_, err := config.Load()
	assert.Error(t, err)
}

func TestParseBandas_Errores(t *testing.T) {
	for _, s := range []string{"USD", "USD:15", "USD:a-b", "USD:20-10"} {
		_, err := config.ParseBandas(s)
		assert.Error(t, err, "banda %q", s)
	}
}
