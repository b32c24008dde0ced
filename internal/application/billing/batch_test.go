package billing_test

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/cfdi-generator/internal/application/billing"
	"github.com/jhoicas/cfdi-generator/internal/domain/cfdi"
	"github.com/jhoicas/cfdi-generator/internal/domain/cfdi/cfditest"
	"github.com/jhoicas/cfdi-generator/pkg/sat"
)

func TestValidateBatch_ConservaOrden(t *testing.T) {
	docs := make([]*cfdi.Comprobante, 20)
	for i := range docs {
		docs[i] = cfditest.ComprobanteValido()
		if i%3 == 0 {
			docs[i].Moneda = sat.MonedaUSD
		}
	}

	res, err := billing.ValidateBatch(context.Background(), billing.DefaultValidadores(), docs, 3)
	require.NoError(t, err)
	require.Len(t, res, len(docs))
	for i, vs := range res {
		if i%3 == 0 {
			require.Len(t, vs, 1, "documento %d", i)
			assert.Equal(t, "TipoCambio", vs[0].Field)
		} else {
			assert.Empty(t, vs, "documento %d", i)
		}
	}
}

func TestValidateBatch_NoModificaEntrada(t *testing.T) {
	doc := cfditest.ComprobanteValido()
	_, err := billing.ValidateBatch(context.Background(), billing.DefaultValidadores(), []*cfdi.Comprobante{doc, doc}, 0)
	require.NoError(t, err)
	assert.Equal(t, "439.91", doc.Total.StringFixed(2))
	assert.Nil(t, doc.TipoCambio)
}

func TestValidateBatch_DocumentoNil(t *testing.T) {
	_, err := billing.ValidateBatch(context.Background(), billing.DefaultValidadores(),
		[]*cfdi.Comprobante{cfditest.ComprobanteValido(), nil}, 2)
	assert.ErrorIs(t, err, billing.ErrComprobanteVacio)
}

func TestValidateBatch_ContextoCancelado(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := billing.ValidateBatch(ctx, billing.DefaultValidadores(), []*cfdi.Comprobante{cfditest.ComprobanteValido()}, 1)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestValidarLote(t *testing.T) {
	uc := billing.NewIssueUseCase(billing.DefaultValidadores(), nil, nil, nil, nil, zerolog.Nop())
	malo := cfditest.ComprobanteValido()
	malo.Receptor.UsoCFDI = ""

	resp, err := uc.ValidarLote(context.Background(), []*cfdi.Comprobante{cfditest.ComprobanteValido(), malo}, 2)
	require.NoError(t, err)
	assert.Equal(t, 1, resp.Validos)
	assert.Equal(t, 1, resp.Invalidos)
	assert.True(t, resp.Resultados[0].Valido)
	assert.Equal(t, string(billing.EstadoValidated), resp.Resultados[0].Estado)
	assert.False(t, resp.Resultados[1].Valido)
	assert.Equal(t, string(billing.EstadoDraft), resp.Resultados[1].Estado)
}
