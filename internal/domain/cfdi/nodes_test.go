package cfdi_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/cfdi-generator/internal/domain/cfdi"
	"github.com/jhoicas/cfdi-generator/internal/domain/cfdi/cfditest"
)

func TestAttrs_OrdenDelEsquemaYAusentes(t *testing.T) {
	c := cfditest.ComprobanteValido()
	attrs := c.Attrs()

	names := make([]string, len(attrs))
	for i, a := range attrs {
		names[i] = a.Name
	}
	assert.Equal(t, []string{
		"Version", "Serie", "Folio", "Fecha", "Sello", "FormaPago", "NoCertificado", "Certificado",
		"CondicionesDePago", "SubTotal", "Descuento", "Moneda", "TipoCambio", "Total",
		"TipoDeComprobante", "Exportacion", "MetodoPago", "LugarExpedicion", "Confirmacion",
	}, names)

	byName := map[string]cfdi.Attr{}
	for _, a := range attrs {
		byName[a.Name] = a
	}
	assert.False(t, byName["TipoCambio"].Present, "los opcionales ausentes se marcan como no presentes")
	assert.False(t, byName["Sello"].Present)
	assert.Equal(t, "2024-05-01T10:00:00", byName["Fecha"].Value)
	assert.Equal(t, "383.83", byName["SubTotal"].Value)
}

func TestAttrs_FormatoDecimal(t *testing.T) {
	e := cfdi.ImpuestoEntrada{
		Base:       decimal.NewFromInt(100),
		Impuesto:   "002",
		TipoFactor: "Tasa",
		TasaOCuota: cfdi.MustDec("0.16"),
		Importe:    cfdi.MustDec("16"),
	}
	attrs := e.Attrs()
	assert.Equal(t, "100.00", attrs[0].Value)
	assert.Equal(t, "0.160000", attrs[3].Value)
	assert.Equal(t, "16.00", attrs[4].Value)
}

func TestWalk_RutasYOrden(t *testing.T) {
	c := cfditest.ComprobanteCompleto()
	c.Sello = "c2VsbG8="
	c.Complemento = append(c.Complemento, cfditest.Timbre(c.Sello))

	var paths []string
	var kinds []cfdi.NodeKind
	cfdi.Walk(c, func(n cfdi.Node) {
		paths = append(paths, n.Path)
		kinds = append(kinds, n.Kind)
	})

	assert.Equal(t, []string{
		"",
		"CfdiRelacionados[0]",
		"CfdiRelacionados[0].CfdiRelacionado[0]",
		"Emisor",
		"Receptor",
		"Conceptos[0]",
		"Conceptos[0].Impuestos.Traslados[0]",
		"Conceptos[0].Impuestos.Retenciones[0]",
		"Conceptos[0].ACuentaTerceros",
		"Conceptos[1]",
		"Conceptos[1].Impuestos.Traslados[0]",
		"Conceptos[1].InformacionAduanera[0]",
		"Conceptos[2]",
		"Conceptos[2].CuentaPredial[0]",
		"Impuestos",
		"Impuestos.Retenciones[0]",
		"Impuestos.Traslados[0]",
		"Complemento.TimbreFiscalDigital",
	}, paths)
	assert.Equal(t, cfdi.KindComprobante, kinds[0])
	assert.Equal(t, cfdi.KindTimbreFiscalDigital, kinds[len(kinds)-1])
}

func TestNode_Has(t *testing.T) {
	c := cfditest.ComprobanteValido()
	var concepto cfdi.Node
	cfdi.Walk(c, func(n cfdi.Node) {
		if n.Path == "Conceptos[0]" {
			concepto = n
		}
	})
	assert.True(t, concepto.Has("Impuestos"), "los hijos cuentan como campos presentes")
	assert.False(t, concepto.Has("Descuento"))
	assert.False(t, concepto.Has("ACuentaTerceros"))
	assert.Equal(t, "Conceptos[0].Importe", concepto.FieldPath("Importe"))
}

func TestClone_Independiente(t *testing.T) {
	c := cfditest.ComprobanteCompleto()
	c.Complemento = append(c.Complemento, cfdi.Opaque{Raw: []byte("<x:Ext xmlns:x=\"urn:x\"/>")})
	cp := c.Clone()

	cp.Conceptos[0].Impuestos.Traslados[0].Importe = cfdi.MustDec("1")
	cp.CfdiRelacionados[0].Relacionados[0].UUID = "cambiado"
	cp.Complemento[0].(cfdi.Opaque).Raw[0] = 'X'
	cp.Emisor.Rfc = "AAA010101AAA"

	assert.Equal(t, "16.00", c.Conceptos[0].Impuestos.Traslados[0].Attrs()[4].Value)
	assert.Equal(t, cfditest.UUIDRelacionado, c.CfdiRelacionados[0].Relacionados[0].UUID)
	assert.Equal(t, byte('<'), c.Complemento[0].(cfdi.Opaque).Raw[0])
	assert.Equal(t, "EKU9003173C9", c.Emisor.Rfc)
}

func TestFechaHora_JSON(t *testing.T) {
	f, err := cfdi.ParseFechaHora("2024-05-01T10:00:00")
	require.NoError(t, err)

	b, err := f.MarshalJSON()
	require.NoError(t, err)
	assert.Equal(t, `"2024-05-01T10:00:00"`, string(b))

	var g cfdi.FechaHora
	require.NoError(t, g.UnmarshalJSON(b))
	assert.True(t, f.Equal(g.Time))
	assert.Error(t, g.UnmarshalJSON([]byte(`"01/05/2024"`)))
}
