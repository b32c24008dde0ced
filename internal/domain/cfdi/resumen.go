package cfdi

import (
	"github.com/shopspring/decimal"

	"github.com/jhoicas/cfdi-generator/pkg/sat"
)

// claveTraslado agrupa traslados por impuesto, tipo de factor y tasa.
type claveTraslado struct {
	impuesto   string
	tipoFactor string
	tasa       string
}

func claveDe(e ImpuestoEntrada) claveTraslado {
	k := claveTraslado{impuesto: e.Impuesto, tipoFactor: e.TipoFactor}
	if e.TasaOCuota != nil {
		k.tasa = sat.Format(*e.TasaOCuota, sat.PrecisionTasa)
	}
	return k
}

// ResumirImpuestos agrega los impuestos de los conceptos en el resumen del comprobante:
// traslados por (Impuesto, TipoFactor, TasaOCuota) y retenciones por Impuesto, en orden
// de primera aparición. Bases e importes se redondean a precisión monetaria.
func ResumirImpuestos(conceptos []Concepto, policy sat.Policy) Impuestos {
	var out Impuestos
	var totalTras, totalRet decimal.Decimal
	var hayTrasGrav bool
	trasIdx := map[claveTraslado]int{}
	retIdx := map[string]int{}

	for _, c := range conceptos {
		if c.Impuestos == nil {
			continue
		}
		for _, t := range c.Impuestos.Traslados {
			k := claveDe(t)
			i, ok := trasIdx[k]
			if !ok {
				i = len(out.Traslados)
				trasIdx[k] = i
				out.Traslados = append(out.Traslados, ImpuestoEntrada{
					Impuesto:   t.Impuesto,
					TipoFactor: t.TipoFactor,
					TasaOCuota: cloneDec(t.TasaOCuota),
				})
			}
			g := &out.Traslados[i]
			g.Base = g.Base.Add(t.Base)
			if t.Importe != nil {
				sum := *t.Importe
				if g.Importe != nil {
					sum = g.Importe.Add(*t.Importe)
				}
				g.Importe = &sum
			}
		}
		for _, r := range c.Impuestos.Retenciones {
			i, ok := retIdx[r.Impuesto]
			if !ok {
				i = len(out.Retenciones)
				retIdx[r.Impuesto] = i
				out.Retenciones = append(out.Retenciones, RetencionResumen{Impuesto: r.Impuesto})
			}
			if r.Importe != nil {
				out.Retenciones[i].Importe = out.Retenciones[i].Importe.Add(*r.Importe)
			}
		}
	}

	for i := range out.Traslados {
		g := &out.Traslados[i]
		g.Base = policy.Round(g.Base, sat.PrecisionMonetaria)
		if g.Importe != nil {
			g.Importe = Dec(policy.Round(*g.Importe, sat.PrecisionMonetaria))
			totalTras = totalTras.Add(*g.Importe)
			hayTrasGrav = true
		}
	}
	for i := range out.Retenciones {
		out.Retenciones[i].Importe = policy.Round(out.Retenciones[i].Importe, sat.PrecisionMonetaria)
		totalRet = totalRet.Add(out.Retenciones[i].Importe)
	}
	if hayTrasGrav {
		out.TotalImpuestosTrasladados = Dec(totalTras)
	}
	if len(out.Retenciones) > 0 {
		out.TotalImpuestosRetenidos = Dec(totalRet)
	}
	return out
}
