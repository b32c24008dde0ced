package cfdi

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/cfdi-generator/pkg/sat"
)

// InvariantValidator verifica la consistencia aritmética del árbol completo.
// Toda la aritmética pasa por sat.Policy.
type InvariantValidator struct {
	policy sat.Policy
}

// NewInvariantValidator crea el validador con la política numérica dada.
func NewInvariantValidator(policy sat.Policy) *InvariantValidator {
	return &InvariantValidator{policy: policy}
}

// Validate ejecuta las cinco verificaciones sin cortocircuito:
//  1. Importe de cada concepto = Cantidad × ValorUnitario − Descuento
//  2. SubTotal = suma de importes de conceptos
//  3. Importe de cada traslado por tasa = Base × TasaOCuota
//  4. Resumen de impuestos = agregado de los impuestos de conceptos, y sus totales = suma de entradas
//  5. Total = SubTotal − Descuento + trasladados − retenidos
//
// En (5) el subtotal y los impuestos se toman de los conceptos, de modo que un SubTotal
// o un total de impuestos incorrecto se reporta una sola vez, en su propio campo.
func (v *InvariantValidator) Validate(c *Comprobante) Violations {
	if c == nil {
		return nil
	}
	var out Violations
	out = append(out, v.importesConceptos(c)...)
	out = append(out, v.subTotal(c)...)
	out = append(out, v.trasladosConceptos(c)...)
	out = append(out, v.resumen(c)...)
	out = append(out, v.total(c)...)
	return out
}

func (v *InvariantValidator) mismatch(path, field, msg string, expected, actual decimal.Decimal) Violation {
	return Violation{
		Path:     path,
		Field:    field,
		Kind:     ConstraintInvariantMismatch,
		Message:  msg,
		Expected: sat.Format(v.policy.Round(expected, sat.PrecisionMonetaria), sat.PrecisionMonetaria),
		Actual:   sat.Format(actual, sat.PrecisionMonetaria),
	}
}

// igual redondea solo el valor recalculado; el almacenado se compara tal cual.
func (v *InvariantValidator) igual(esperado, almacenado decimal.Decimal) bool {
	return v.policy.EqualsWithinTolerance(esperado, almacenado, sat.PrecisionMonetaria)
}

// (1)
func (v *InvariantValidator) importesConceptos(c *Comprobante) Violations {
	var out Violations
	for i, con := range c.Conceptos {
		esperado := con.Cantidad.Mul(con.ValorUnitario).Sub(valorDe(con.Descuento))
		if !v.igual(esperado, con.Importe) {
			out = append(out, v.mismatch(indexPath("", "Conceptos", i)+".Importe", "Importe",
				"Importe debe ser Cantidad × ValorUnitario − Descuento", esperado, con.Importe))
		}
	}
	return out
}

// (2)
func (v *InvariantValidator) subTotal(c *Comprobante) Violations {
	suma := sumaImportes(c.Conceptos)
	if v.igual(suma, c.SubTotal) {
		return nil
	}
	return Violations{v.mismatch("SubTotal", "SubTotal",
		"SubTotal debe ser la suma de los importes de los conceptos", suma, c.SubTotal)}
}

// (3) los traslados por cuota y los exentos no dependen de la base.
func (v *InvariantValidator) trasladosConceptos(c *Comprobante) Violations {
	var out Violations
	for i, con := range c.Conceptos {
		if con.Impuestos == nil {
			continue
		}
		for j, t := range con.Impuestos.Traslados {
			if t.TipoFactor != sat.TipoFactorTasa || t.TasaOCuota == nil || t.Importe == nil {
				continue
			}
			esperado := t.Base.Mul(*t.TasaOCuota)
			if !v.igual(esperado, *t.Importe) {
				path := fmt.Sprintf("Conceptos[%d].Impuestos.Traslados[%d].Importe", i, j)
				out = append(out, v.mismatch(path, "Importe",
					"Importe del traslado debe ser Base × TasaOCuota", esperado, *t.Importe))
			}
		}
	}
	return out
}

// (4)
func (v *InvariantValidator) resumen(c *Comprobante) Violations {
	var out Violations
	esperado := ResumirImpuestos(c.Conceptos, v.policy)
	actual := c.Impuestos

	// Traslados agrupados por (Impuesto, TipoFactor, TasaOCuota).
	idx := make(map[claveTraslado]int, len(actual.Traslados))
	for j, t := range actual.Traslados {
		idx[claveDe(t)] = j
	}
	usados := make(map[int]bool, len(actual.Traslados))
	for _, e := range esperado.Traslados {
		k := claveDe(e)
		j, ok := idx[k]
		if !ok {
			out = append(out, Violation{
				Path: "Impuestos.Traslados", Field: "Traslados", Kind: ConstraintInvariantMismatch,
				Message:  fmt.Sprintf("falta el traslado agregado %s/%s/%s", k.impuesto, k.tipoFactor, k.tasa),
				Expected: describirEntrada(e), Actual: "ausente",
			})
			continue
		}
		usados[j] = true
		a := actual.Traslados[j]
		base := indexPath("Impuestos", "Traslados", j)
		if !v.igual(e.Base, a.Base) {
			out = append(out, v.mismatch(base+".Base", "Base",
				"Base del traslado debe ser la suma de las bases de los conceptos", e.Base, a.Base))
		}
		if e.Importe != nil && a.Importe != nil && !v.igual(*e.Importe, *a.Importe) {
			out = append(out, v.mismatch(base+".Importe", "Importe",
				"Importe del traslado debe ser la suma de los importes de los conceptos", *e.Importe, *a.Importe))
		}
	}
	for j, a := range actual.Traslados {
		if !usados[j] {
			out = append(out, Violation{
				Path: indexPath("Impuestos", "Traslados", j), Field: "Traslados", Kind: ConstraintInvariantMismatch,
				Message:  "traslado sin conceptos que lo respalden",
				Expected: "ausente", Actual: describirEntrada(a),
			})
		}
	}

	// Retenciones agrupadas por Impuesto.
	retIdx := make(map[string]int, len(actual.Retenciones))
	for j, r := range actual.Retenciones {
		retIdx[r.Impuesto] = j
	}
	retUsadas := make(map[int]bool, len(actual.Retenciones))
	for _, e := range esperado.Retenciones {
		j, ok := retIdx[e.Impuesto]
		if !ok {
			out = append(out, Violation{
				Path: "Impuestos.Retenciones", Field: "Retenciones", Kind: ConstraintInvariantMismatch,
				Message:  "falta la retención agregada " + e.Impuesto,
				Expected: sat.Format(e.Importe, sat.PrecisionMonetaria), Actual: "ausente",
			})
			continue
		}
		retUsadas[j] = true
		if a := actual.Retenciones[j]; !v.igual(e.Importe, a.Importe) {
			out = append(out, v.mismatch(indexPath("Impuestos", "Retenciones", j)+".Importe", "Importe",
				"Importe de la retención debe ser la suma de las retenciones de los conceptos", e.Importe, a.Importe))
		}
	}
	for j, a := range actual.Retenciones {
		if !retUsadas[j] {
			out = append(out, Violation{
				Path: indexPath("Impuestos", "Retenciones", j), Field: "Retenciones", Kind: ConstraintInvariantMismatch,
				Message:  "retención sin conceptos que la respalden",
				Expected: "ausente", Actual: sat.Format(a.Importe, sat.PrecisionMonetaria),
			})
		}
	}

	// Totales = suma de sus propias entradas.
	if actual.TotalImpuestosTrasladados != nil {
		suma := sumaTraslados(actual.Traslados)
		if !v.igual(suma, *actual.TotalImpuestosTrasladados) {
			out = append(out, v.mismatch("Impuestos.TotalImpuestosTrasladados", "TotalImpuestosTrasladados",
				"TotalImpuestosTrasladados debe ser la suma de los traslados", suma, *actual.TotalImpuestosTrasladados))
		}
	}
	if actual.TotalImpuestosRetenidos != nil {
		var suma decimal.Decimal
		for _, r := range actual.Retenciones {
			suma = suma.Add(r.Importe)
		}
		if !v.igual(suma, *actual.TotalImpuestosRetenidos) {
			out = append(out, v.mismatch("Impuestos.TotalImpuestosRetenidos", "TotalImpuestosRetenidos",
				"TotalImpuestosRetenidos debe ser la suma de las retenciones", suma, *actual.TotalImpuestosRetenidos))
		}
	}
	return out
}

// (5)
func (v *InvariantValidator) total(c *Comprobante) Violations {
	derivado := ResumirImpuestos(c.Conceptos, v.policy)
	esperado := sumaImportes(c.Conceptos).
		Sub(valorDe(c.Descuento)).
		Add(valorDe(derivado.TotalImpuestosTrasladados)).
		Sub(valorDe(derivado.TotalImpuestosRetenidos))
	esperado = v.policy.Round(esperado, sat.PrecisionMonetaria)
	if v.igual(esperado, c.Total) {
		return nil
	}
	return Violations{v.mismatch("Total", "Total",
		"Total debe ser SubTotal − Descuento + impuestos trasladados − impuestos retenidos", esperado, c.Total)}
}

func sumaImportes(cs []Concepto) decimal.Decimal {
	var s decimal.Decimal
	for _, c := range cs {
		s = s.Add(c.Importe)
	}
	return s
}

func sumaTraslados(ts []ImpuestoEntrada) decimal.Decimal {
	var s decimal.Decimal
	for _, t := range ts {
		s = s.Add(valorDe(t.Importe))
	}
	return s
}

func valorDe(d *decimal.Decimal) decimal.Decimal {
	if d == nil {
		return decimal.Zero
	}
	return *d
}

func describirEntrada(e ImpuestoEntrada) string {
	s := "Base=" + sat.Format(e.Base, sat.PrecisionMonetaria)
	if e.Importe != nil {
		s += " Importe=" + sat.Format(*e.Importe, sat.PrecisionMonetaria)
	}
	return s
}
