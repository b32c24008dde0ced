package billing_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/jhoicas/cfdi-generator/internal/application/billing"
	"github.com/jhoicas/cfdi-generator/internal/application/billing/mocks"
	"github.com/jhoicas/cfdi-generator/internal/application/dto"
	"github.com/jhoicas/cfdi-generator/internal/domain/cfdi"
	"github.com/jhoicas/cfdi-generator/internal/domain/cfdi/cfditest"
	"github.com/jhoicas/cfdi-generator/internal/infrastructure/cfdixml"
	"github.com/jhoicas/cfdi-generator/internal/infrastructure/csd/csdtest"
	"github.com/jhoicas/cfdi-generator/internal/infrastructure/metrics"
	"github.com/jhoicas/cfdi-generator/internal/infrastructure/pac"
	"github.com/jhoicas/cfdi-generator/pkg/sat"
)

// ── Emitir ────────────────────────────────────────────────────────────────────

func TestEmitir_ConSelloYTimbreSimulado(t *testing.T) {
	m := metrics.New(prometheus.NewRegistry())
	uc := billing.NewIssueUseCase(billing.DefaultValidadores(), nil, nil,
		pac.NewSimulatedStamper("SAT970701NN3"), m, zerolog.Nop())

	resp, err := uc.Emitir(context.Background(), dto.EmitirRequest{
		Comprobante: cfditest.ComprobanteValido(),
		Sello:       selloPrueba,
		Certificado: csdtest.Base64(t),
	})
	require.NoError(t, err)
	assert.Equal(t, string(billing.EstadoSealed), resp.Estado)
	assert.NotEmpty(t, resp.UUID)
	assert.Equal(t, csdtest.NoCertificado, resp.NoCertificado)
	assert.Len(t, resp.Huella, 64)

	doc, err := cfdixml.NewDecoder().Decode([]byte(resp.XML))
	require.NoError(t, err, "el XML emitido debe decodificarse")
	tfd := doc.Timbre()
	require.NotNil(t, tfd)
	assert.Equal(t, resp.UUID, tfd.UUID)
	assert.Equal(t, selloPrueba, tfd.SelloCFD)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.Emisiones.WithLabelValues(metrics.ResultadoEmitido)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Validaciones.WithLabelValues(metrics.ResultadoValido)))
}

func TestEmitir_SinPAC(t *testing.T) {
	uc := billing.NewIssueUseCase(billing.DefaultValidadores(), nil, nil, nil, nil, zerolog.Nop())

	resp, err := uc.Emitir(context.Background(), dto.EmitirRequest{
		Comprobante: cfditest.ComprobanteValido(),
		Sello:       selloPrueba,
		Certificado: csdtest.Base64(t),
	})
	require.NoError(t, err)
	assert.Empty(t, resp.UUID)
	assert.NotContains(t, resp.XML, "<tfd:TimbreFiscalDigital")
	assert.Contains(t, resp.XML, `Sello="`+selloPrueba+`"`)
}

func TestEmitir_ConViolaciones(t *testing.T) {
	m := metrics.New(prometheus.NewRegistry())
	uc := billing.NewIssueUseCase(billing.DefaultValidadores(), nil, nil, nil, m, zerolog.Nop())

	c := cfditest.ComprobanteValido()
	c.Moneda = sat.MonedaUSD

	resp, err := uc.Emitir(context.Background(), dto.EmitirRequest{Comprobante: c, Sello: selloPrueba})
	require.ErrorIs(t, err, cfdi.ErrInvalidComprobante)
	require.NotNil(t, resp)
	require.Len(t, resp.Violaciones, 1)
	assert.Equal(t, "TipoCambio", resp.Violaciones[0].Field)
	assert.Equal(t, string(billing.EstadoDraft), resp.Estado)
	assert.Empty(t, resp.XML, "un comprobante inválido nunca se codifica")

	assert.Equal(t, 1.0, testutil.ToFloat64(m.Emisiones.WithLabelValues(metrics.ResultadoError)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Violaciones.WithLabelValues(string(cfdi.ConstraintRequired))))
}

func TestEmitir_SinSelloNiSealer(t *testing.T) {
	uc := billing.NewIssueUseCase(billing.DefaultValidadores(), nil, nil, nil, nil, zerolog.Nop())

	_, err := uc.Emitir(context.Background(), dto.EmitirRequest{Comprobante: cfditest.ComprobanteValido()})
	assert.ErrorIs(t, err, cfdi.ErrMissingSeal)
}

func TestEmitir_ConSealerYStamperMock(t *testing.T) {
	ctrl := gomock.NewController(t)
	sealer := mocks.NewMockSealer(ctrl)
	stamper := mocks.NewMockStamper(ctrl)
	cert := csdtest.Base64(t)

	gomock.InOrder(
		sealer.EXPECT().Seal(gomock.Any(), gomock.Any(), "llave").
			Return(&sat.SealResult{Sello: selloPrueba, Certificado: cert}, nil),
		stamper.EXPECT().Stamp(gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, xml []byte) (*sat.StampResult, error) {
				assert.True(t, strings.Contains(string(xml), `Sello="`+selloPrueba+`"`), "el PAC recibe el XML sellado")
				return stamp(selloPrueba), nil
			}),
	)

	uc := billing.NewIssueUseCase(billing.DefaultValidadores(), sealer, "llave", stamper, nil, zerolog.Nop())
	resp, err := uc.Emitir(context.Background(), dto.EmitirRequest{Comprobante: cfditest.ComprobanteValido()})
	require.NoError(t, err)
	assert.Equal(t, "ad662d33-6934-459c-a128-bdf0393e0f44", resp.UUID)
}

func TestEmitir_TimbreNoCoincide(t *testing.T) {
	ctrl := gomock.NewController(t)
	stamper := mocks.NewMockStamper(ctrl)
	stamper.EXPECT().Stamp(gomock.Any(), gomock.Any()).Return(stamp("b3Rybw=="), nil)

	uc := billing.NewIssueUseCase(billing.DefaultValidadores(), nil, nil, stamper, nil, zerolog.Nop())
	_, err := uc.Emitir(context.Background(), dto.EmitirRequest{
		Comprobante: cfditest.ComprobanteValido(),
		Sello:       selloPrueba,
		Certificado: csdtest.Base64(t),
	})
	assert.ErrorIs(t, err, cfdi.ErrStampMismatch)
}

func TestEmitir_ErrorDelPAC(t *testing.T) {
	ctrl := gomock.NewController(t)
	stamper := mocks.NewMockStamper(ctrl)
	caido := errors.New("PAC no responde")
	stamper.EXPECT().Stamp(gomock.Any(), gomock.Any()).Return(nil, caido)

	uc := billing.NewIssueUseCase(billing.DefaultValidadores(), nil, nil, stamper, nil, zerolog.Nop())
	_, err := uc.Emitir(context.Background(), dto.EmitirRequest{
		Comprobante: cfditest.ComprobanteValido(),
		Sello:       selloPrueba,
		Certificado: csdtest.Base64(t),
	})
	assert.ErrorIs(t, err, caido)
}

func TestEmitir_SinComprobante(t *testing.T) {
	uc := billing.NewIssueUseCase(billing.DefaultValidadores(), nil, nil, nil, nil, zerolog.Nop())
	_, err := uc.Emitir(context.Background(), dto.EmitirRequest{})
	assert.ErrorIs(t, err, billing.ErrComprobanteVacio)
}

// ── Validar / VistaPrevia ─────────────────────────────────────────────────────

func TestValidarUseCase(t *testing.T) {
	uc := billing.NewIssueUseCase(billing.DefaultValidadores(), nil, nil, nil, nil, zerolog.Nop())

	ok, err := uc.Validar(context.Background(), dto.ComprobanteRequest{Comprobante: cfditest.ComprobanteValido()})
	require.NoError(t, err)
	assert.True(t, ok.Valido)
	assert.NotNil(t, ok.Violaciones, "lista vacía, no nil, para serializar []")

	c := cfditest.ComprobanteValido()
	c.CfdiRelacionados = []cfdi.CfdiRelacionados{{TipoRelacion: "04", Relacionados: []cfdi.CfdiRelacionado{{UUID: "not-a-uuid"}}}}
	mal, err := uc.Validar(context.Background(), dto.ComprobanteRequest{Comprobante: c})
	require.NoError(t, err)
	assert.False(t, mal.Valido)
	require.Len(t, mal.Violaciones, 1)
	assert.Equal(t, "CfdiRelacionados[0].CfdiRelacionado[0].UUID", mal.Violaciones[0].Path)
}

func TestVistaPreviaUseCase(t *testing.T) {
	uc := billing.NewIssueUseCase(billing.DefaultValidadores(), nil, nil, nil, nil, zerolog.Nop())

	out, vs, err := uc.VistaPrevia(context.Background(), dto.ComprobanteRequest{Comprobante: cfditest.ComprobanteValido()})
	require.NoError(t, err)
	assert.Empty(t, vs)
	assert.Contains(t, string(out), "<cfdi:Comprobante")

	c := cfditest.ComprobanteValido()
	c.Conceptos[0].Importe = c.Conceptos[0].Importe.Add(decimal.RequireFromString("0.01"))
	out, vs, err = uc.VistaPrevia(context.Background(), dto.ComprobanteRequest{Comprobante: c})
	assert.ErrorIs(t, err, cfdi.ErrInvalidComprobante)
	assert.Nil(t, out)
	assert.NotEmpty(t, vs)
}
