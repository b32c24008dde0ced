package billing

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/cfdi-generator/internal/domain/cfdi"
	"github.com/jhoicas/cfdi-generator/pkg/sat"
)

// Ejemplo comprobante de ingreso de muestra con dos conceptos gravados al 16% y uno no objeto
// de impuesto. Resumen, SubTotal y Total se derivan al construirlo.
func Ejemplo(fecha time.Time) *cfdi.Comprobante {
	c := cfdi.New()
	c.Serie = "A"
	c.Folio = "1"
	c.Fecha = cfdi.NewFechaHora(fecha)
	c.FormaPago = "01"
	c.CondicionesDePago = "Contado"
	c.Moneda = sat.MonedaMXN
	c.TipoDeComprobante = sat.TipoComprobanteIngreso
	c.Exportacion = sat.ExportacionNoAplica
	c.MetodoPago = sat.MetodoPagoUnaExhibicion
	c.LugarExpedicion = "20000"
	c.Emisor = cfdi.Emisor{Rfc: "EKU9003173C9", Nombre: "ESCUELA KEMPER URGATE", RegimenFiscal: "601"}
	c.Receptor = cfdi.Receptor{
		Rfc:                     "URE180429TM6",
		Nombre:                  "UNIVERSIDAD ROBOTICA ESPAÑOLA",
		DomicilioFiscalReceptor: "86991",
		RegimenFiscalReceptor:   "601",
		UsoCFDI:                 "G01",
	}
	c.Conceptos = []cfdi.Concepto{
		conceptoGravado("84111506", "Servicio de facturación", "1", "100.00"),
		conceptoGravado("84111506", "Soporte técnico por hora", "2", "125.25"),
		{
			ClaveProdServ: "01010101",
			Cantidad:      decimal.RequireFromString("1"),
			ClaveUnidad:   "H87",
			Descripcion:   "Donativo",
			ValorUnitario: decimal.RequireFromString("33.33"),
			Importe:       decimal.RequireFromString("33.33"),
			ObjetoImp:     sat.ObjetoImpNo,
		},
	}
	return c
}

func conceptoGravado(clave, descripcion, cantidad, valorUnitario string) cfdi.Concepto {
	q := decimal.RequireFromString(cantidad)
	vu := decimal.RequireFromString(valorUnitario)
	p := sat.DefaultPolicy()
	importe := p.Round(q.Mul(vu), sat.PrecisionMonetaria)
	tasa := cfdi.MustDec("0.160000")
	iva := p.Round(importe.Mul(*tasa), sat.PrecisionMonetaria)
	return cfdi.Concepto{
		ClaveProdServ: clave,
		Cantidad:      q,
		ClaveUnidad:   "E48",
		Unidad:        "Servicio",
		Descripcion:   descripcion,
		ValorUnitario: vu,
		Importe:       importe,
		ObjetoImp:     sat.ObjetoImpSi,
		Impuestos: &cfdi.ImpuestosConcepto{
			Traslados: []cfdi.ImpuestoEntrada{{
				Base:       importe,
				Impuesto:   sat.ImpuestoIVA,
				TipoFactor: sat.TipoFactorTasa,
				TasaOCuota: tasa,
				Importe:    &iva,
			}},
		},
	}
}

// Ejemplo construye, valida y codifica el comprobante de muestra (sin sello ni timbre).
func (uc *IssueUseCase) Ejemplo(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	b := NewBuilder(Ejemplo(time.Now()), uc.validadores)
	if err := b.DerivarImpuestos(); err != nil {
		return nil, err
	}
	vs, err := b.Validar()
	if err != nil {
		return nil, err
	}
	if len(vs) > 0 {
		return nil, vs.Err()
	}
	return b.VistaPrevia()
}
