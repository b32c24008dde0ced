package cfdi_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/cfdi-generator/internal/domain/cfdi"
	"github.com/jhoicas/cfdi-generator/internal/domain/cfdi/cfditest"
	"github.com/jhoicas/cfdi-generator/pkg/sat"
)

func validarInvariantes(c *cfdi.Comprobante) cfdi.Violations {
	return cfdi.NewInvariantValidator(sat.DefaultPolicy()).Validate(c)
}

func TestInvariantes_ComprobanteValido(t *testing.T) {
	assert.Empty(t, validarInvariantes(cfditest.ComprobanteValido()))
	assert.Empty(t, validarInvariantes(cfditest.ComprobanteCompleto()))
}

// ── (1) Importe por concepto ─────────────────────────────────────────────────

func TestInvariantes_ImporteConceptoPerturbado(t *testing.T) {
	c := cfditest.ComprobanteValido()
	c.Conceptos[2].Importe = c.Conceptos[2].Importe.Add(decimal.RequireFromString("0.01"))

	vs := validarInvariantes(c)
	enConcepto := vs.AtPath("Conceptos[2].Importe")
	require.Len(t, enConcepto, 1, "perturbar Importe en 0.01 debe producir exactamente un mismatch en el concepto")
	assert.Equal(t, cfdi.ConstraintInvariantMismatch, enConcepto[0].Kind)
	assert.Equal(t, "33.33", enConcepto[0].Expected)
	assert.Equal(t, "33.34", enConcepto[0].Actual)
}

func TestInvariantes_ImporteConDescuentoYRedondeo(t *testing.T) {
	c := cfditest.ComprobanteValido()
	con := &c.Conceptos[2]
	con.Cantidad = decimal.RequireFromString("3")
	con.ValorUnitario = decimal.RequireFromString("11.115")
	con.Descuento = cfdi.MustDec("0.01")
	// 3 × 11.115 − 0.01 = 33.335 → 33.34 (mitad hacia arriba)
	con.Importe = decimal.RequireFromString("33.34")

	vs := validarInvariantes(c)
	assert.Empty(t, vs.AtPath("Conceptos[2].Importe"))
}

func TestInvariantes_ImporteConDecimalesDeMas(t *testing.T) {
	c := cfditest.ComprobanteValido()
	c.Conceptos[2].Importe = decimal.RequireFromString("33.334")

	vs := validarInvariantes(c)
	enConcepto := vs.AtPath("Conceptos[2].Importe")
	require.Len(t, enConcepto, 1, "el Importe almacenado no se redondea antes de comparar")
	assert.Equal(t, "33.33", enConcepto[0].Expected)
	assert.Equal(t, "33.334", enConcepto[0].Actual)
}

// ── (2) SubTotal ─────────────────────────────────────────────────────────────

func TestInvariantes_SubTotal(t *testing.T) {
	c := cfditest.ComprobanteValido()
	require.True(t, c.SubTotal.Equal(decimal.RequireFromString("383.83")))

	c.SubTotal = decimal.RequireFromString("383.84")
	vs := validarInvariantes(c)
	require.Len(t, vs, 1, "cambiar SubTotal a 383.84 debe producir un único mismatch")
	assert.Equal(t, "SubTotal", vs[0].Path)
	assert.Equal(t, "383.83", vs[0].Expected)
	assert.Equal(t, "383.84", vs[0].Actual)
}

func TestInvariantes_SubTotalNoExacto(t *testing.T) {
	c := cfditest.ComprobanteValido()
	c.SubTotal = decimal.RequireFromString("383.834")

	vs := validarInvariantes(c)
	require.Len(t, vs.AtPath("SubTotal"), 1, "SubTotal debe ser la suma exacta de los importes")
	assert.Equal(t, "383.83", vs.AtPath("SubTotal")[0].Expected)
	assert.Equal(t, "383.834", vs.AtPath("SubTotal")[0].Actual)
}

// ── (3) Traslados por tasa ───────────────────────────────────────────────────

func TestInvariantes_TrasladoPorTasa(t *testing.T) {
	c := cfditest.ComprobanteValido()
	c.Conceptos[0].Impuestos.Traslados[0].Importe = cfdi.MustDec("16.01")

	vs := validarInvariantes(c)
	require.Len(t, vs.AtPath("Conceptos[0].Impuestos.Traslados[0].Importe"), 1)
}

func TestInvariantes_TrasladoPorCuota_NoDependeDeLaBase(t *testing.T) {
	c := cfditest.ComprobanteValido()
	tr := &c.Conceptos[0].Impuestos.Traslados[0]
	tr.Impuesto = sat.ImpuestoIEPS
	tr.TipoFactor = sat.TipoFactorCuota
	tr.TasaOCuota = cfdi.MustDec("0.5")
	tr.Importe = cfdi.MustDec("7.00")
	c.Impuestos = cfdi.ResumirImpuestos(c.Conceptos, sat.DefaultPolicy())
	c.Total = decimal.RequireFromString("430.91")

	assert.Empty(t, validarInvariantes(c))
}

// ── (4) Resumen de impuestos ─────────────────────────────────────────────────

func TestInvariantes_ResumenFaltante(t *testing.T) {
	c := cfditest.ComprobanteValido()
	c.Impuestos = cfdi.Impuestos{}

	vs := validarInvariantes(c)
	require.Len(t, vs, 1)
	assert.Equal(t, "Impuestos.Traslados", vs[0].Path)
	assert.Equal(t, "ausente", vs[0].Actual)
}

func TestInvariantes_ResumenSinRespaldo(t *testing.T) {
	c := cfditest.ComprobanteValido()
	c.Impuestos.Traslados = append(c.Impuestos.Traslados, cfdi.ImpuestoEntrada{
		Base: decimal.RequireFromString("10"), Impuesto: sat.ImpuestoIEPS, TipoFactor: sat.TipoFactorTasa,
		TasaOCuota: cfdi.MustDec("0.08"), Importe: cfdi.MustDec("0.80"),
	})

	vs := validarInvariantes(c)
	require.Len(t, vs.AtPath("Impuestos.Traslados[1]"), 1)
	require.Len(t, vs.AtPath("Impuestos.TotalImpuestosTrasladados"), 1,
		"el total ya no coincide con la suma de sus entradas")
}

func TestInvariantes_TotalTrasladados(t *testing.T) {
	c := cfditest.ComprobanteValido()
	c.Impuestos.TotalImpuestosTrasladados = cfdi.MustDec("56.00")

	vs := validarInvariantes(c)
	require.Len(t, vs, 1, "el Total se recalcula desde los conceptos: el error se reporta una sola vez")
	assert.Equal(t, "Impuestos.TotalImpuestosTrasladados", vs[0].Path)
}

func TestInvariantes_Retenciones(t *testing.T) {
	c := cfditest.ComprobanteCompleto()
	c.Impuestos.Retenciones[0].Importe = decimal.RequireFromString("9.99")

	vs := validarInvariantes(c)
	assert.Len(t, vs.AtPath("Impuestos.Retenciones[0].Importe"), 1)
	assert.Len(t, vs.AtPath("Impuestos.TotalImpuestosRetenidos"), 1)
}

// ── (5) Total ────────────────────────────────────────────────────────────────

func TestInvariantes_Total(t *testing.T) {
	c := cfditest.ComprobanteCompleto()
	c.Total = decimal.RequireFromString("439.91")

	vs := validarInvariantes(c)
	require.Len(t, vs, 1)
	assert.Equal(t, "Total", vs[0].Path)
	assert.Equal(t, "429.91", vs[0].Expected)
}

func TestInvariantes_SinCortocircuito(t *testing.T) {
	c := cfditest.ComprobanteValido()
	c.Conceptos[0].Importe = decimal.RequireFromString("99.00")
	c.Conceptos[1].Impuestos.Traslados[0].Importe = cfdi.MustDec("41.00")
	c.Total = decimal.RequireFromString("1.00")

	vs := validarInvariantes(c)
	assert.NotEmpty(t, vs.AtPath("Conceptos[0].Importe"))
	assert.NotEmpty(t, vs.AtPath("SubTotal"))
	assert.NotEmpty(t, vs.AtPath("Conceptos[1].Impuestos.Traslados[0].Importe"))
	assert.NotEmpty(t, vs.AtPath("Impuestos.Traslados[0].Importe"))
	assert.NotEmpty(t, vs.AtPath("Total"))
}

func TestInvariantes_Tolerancia(t *testing.T) {
	c := cfditest.ComprobanteValido()
	c.SubTotal = decimal.RequireFromString("383.84")

	v := cfdi.NewInvariantValidator(sat.NewPolicy(decimal.RequireFromString("0.01")))
	assert.Empty(t, v.Validate(c), "con tolerancia 0.01 un centavo de diferencia es aceptable")
}

// ── ResumirImpuestos ─────────────────────────────────────────────────────────

func TestResumirImpuestos(t *testing.T) {
	c := cfditest.ComprobanteCompleto()
	c.Conceptos[2].ObjetoImp = sat.ObjetoImpSi
	c.Conceptos[2].Impuestos = &cfdi.ImpuestosConcepto{Traslados: []cfdi.ImpuestoEntrada{{
		Base: decimal.RequireFromString("33.33"), Impuesto: sat.ImpuestoIVA, TipoFactor: sat.TipoFactorExento,
	}}}

	res := cfdi.ResumirImpuestos(c.Conceptos, sat.DefaultPolicy())

	require.Len(t, res.Traslados, 2)
	assert.Equal(t, "350.50", sat.Format(res.Traslados[0].Base, 2))
	assert.Equal(t, "56.08", sat.Format(*res.Traslados[0].Importe, 2))
	assert.Equal(t, sat.TipoFactorExento, res.Traslados[1].TipoFactor)
	assert.Nil(t, res.Traslados[1].Importe, "los traslados exentos no llevan importe")

	require.Len(t, res.Retenciones, 1)
	assert.Equal(t, "10.00", sat.Format(res.Retenciones[0].Importe, 2))
	assert.Equal(t, "56.08", sat.Format(*res.TotalImpuestosTrasladados, 2))
	assert.Equal(t, "10.00", sat.Format(*res.TotalImpuestosRetenidos, 2))
}

func TestResumirImpuestos_SinImpuestos(t *testing.T) {
	c := cfditest.ComprobanteValido()
	res := cfdi.ResumirImpuestos(c.Conceptos[2:], sat.DefaultPolicy())
	assert.True(t, res.Vacio())
}
