// Package sat contiene catálogos, formatos y reglas numéricas del Anexo 20 (CFDI 4.0) del SAT.
// Todas las comparaciones aritméticas del validador pasan por Policy; ningún otro componente redondea.
package sat

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Precisiones (decimales máximos) por tipo de campo.
const (
	PrecisionMonetaria int32 = 2 // importes, subtotal, total
	PrecisionCantidad  int32 = 6 // cantidad y valor unitario
	PrecisionTasa      int32 = 6 // TasaOCuota y TipoCambio
)

var half = decimal.New(5, -1)

// Policy fija el redondeo (mitad hacia arriba) y la tolerancia de comparación.
// Con Tolerancia cero el valor almacenado debe ser idéntico al recalculado y redondeado, que es lo que exige el SAT.
type Policy struct {
	Tolerancia decimal.Decimal
}

// DefaultPolicy devuelve la política oficial: tolerancia cero.
func DefaultPolicy() Policy {
	return Policy{Tolerancia: decimal.Zero}
}

// NewPolicy crea una política con la tolerancia indicada (valores negativos se tratan como cero).
func NewPolicy(tolerancia decimal.Decimal) Policy {
	if tolerancia.IsNegative() {
		tolerancia = decimal.Zero
	}
	return Policy{Tolerancia: tolerancia}
}

// Round redondea a `places` decimales con la regla mitad hacia arriba (0.005 -> 0.01).
func (p Policy) Round(v decimal.Decimal, places int32) decimal.Decimal {
	return v.Shift(places).Add(half).Floor().Shift(-places)
}

// EqualsWithinTolerance redondea el valor recalculado a `places` decimales y lo compara con el
// valor almacenado tal como viene. El almacenado nunca se redondea: 33.334 no equivale a 33.33.
func (p Policy) EqualsWithinTolerance(expected, stored decimal.Decimal, places int32) bool {
	diff := p.Round(expected, places).Sub(stored).Abs()
	return diff.LessThanOrEqual(p.Tolerancia)
}

// Format representa el valor con al menos `places` decimales, sin redondear nunca:
// un valor con más decimales de los permitidos se emite tal cual para que las reglas lo detecten.
func Format(v decimal.Decimal, places int32) string {
	if v.Exponent() >= -places {
		return v.StringFixed(places)
	}
	s := v.String()
	if i := strings.IndexByte(s, '.'); i < 0 || int32(len(s)-i-1) < places {
		return v.StringFixed(places)
	}
	return s
}
