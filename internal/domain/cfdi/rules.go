package cfdi

import (
	"fmt"
	"regexp"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

// Constraint restricción declarativa sobre un campo.
// Pattern, Range y Length solo se evalúan si el campo está presente.
type Constraint struct {
	Kind ConstraintKind

	Re *regexp.Regexp // Pattern

	Min, Max     *decimal.Decimal // Range; nil = sin límite
	MinExclusive bool

	MinLen, MaxLen int // Length en runas; MaxLen 0 = sin máximo
}

// Required el campo debe estar presente.
func Required() Constraint { return Constraint{Kind: ConstraintRequired} }

// Forbidden el campo no debe estar presente.
func Forbidden() Constraint { return Constraint{Kind: ConstraintForbidden} }

// Pattern el valor debe cumplir la expresión regular.
func Pattern(expr string) Constraint {
	return Constraint{Kind: ConstraintPattern, Re: regexp.MustCompile(expr)}
}

// Range el valor numérico debe estar en [min, max] (o (min, max] si minExclusive). "" = sin límite.
func Range(min, max string, minExclusive bool) Constraint {
	c := Constraint{Kind: ConstraintRange, MinExclusive: minExclusive}
	if min != "" {
		c.Min = MustDec(min)
	}
	if max != "" {
		c.Max = MustDec(max)
	}
	return c
}

// Length la longitud en caracteres debe estar en [min, max].
func Length(min, max int) Constraint {
	return Constraint{Kind: ConstraintLength, MinLen: min, MaxLen: max}
}

// Predicate condición sobre los hermanos del campo (atributos e hijos del mismo nodo).
type Predicate func(n Node, opts RuleOptions) bool

// Rule regla condicional: en nodos de tipo Scope, si When se cumple (o es nil),
// Field debe satisfacer Constraint.
type Rule struct {
	Scope      NodeKind
	Field      string
	When       Predicate
	Constraint Constraint
	Message    string
}

// Banda rango permitido del tipo de cambio para una moneda.
type Banda struct {
	Min decimal.Decimal
	Max decimal.Decimal
}

// RuleOptions señales externas y umbrales regulatorios.
type RuleOptions struct {
	// ComercioExterior indica que el comprobante lleva complemento de comercio exterior.
	ComercioExterior bool
	// LimiteConfirmacion total a partir del cual se exige Confirmacion.
	LimiteConfirmacion decimal.Decimal
	// BandasTipoCambio rango permitido del tipo de cambio por moneda.
	BandasTipoCambio map[string]Banda
	// GlobalExclusiva prohíbe InformacionGlobal junto con CfdiRelacionados.
	GlobalExclusiva bool
}

// DefaultLimiteConfirmacion total máximo sin clave de confirmación.
var DefaultLimiteConfirmacion = decimal.NewFromInt(2_000_000_000)

// DefaultRuleOptions opciones sin señales externas ni bandas de tipo de cambio.
func DefaultRuleOptions() RuleOptions {
	return RuleOptions{LimiteConfirmacion: DefaultLimiteConfirmacion}
}

// RuleEngine evalúa reglas en orden de declaración, sin detenerse en la primera violación.
type RuleEngine struct {
	rules []Rule
	opts  RuleOptions
}

// NewRuleEngine crea el motor con el conjunto de reglas y opciones dados.
func NewRuleEngine(rules []Rule, opts RuleOptions) *RuleEngine {
	if opts.LimiteConfirmacion.IsZero() {
		opts.LimiteConfirmacion = DefaultLimiteConfirmacion
	}
	return &RuleEngine{rules: rules, opts: opts}
}

// Options opciones efectivas del motor.
func (e *RuleEngine) Options() RuleOptions { return e.opts }

// Evaluate recorre el árbol y acumula todas las violaciones. El orden es el del recorrido
// y, dentro de cada nodo, el de declaración de las reglas.
func (e *RuleEngine) Evaluate(c *Comprobante) Violations {
	var out Violations
	Walk(c, func(n Node) {
		for i := range e.rules {
			r := &e.rules[i]
			if r.Scope != n.Kind {
				continue
			}
			if r.When != nil && !r.When(n, e.opts) {
				continue
			}
			if v, ok := check(r, n); !ok {
				out = append(out, v)
			}
		}
	})
	return out
}

func check(r *Rule, n Node) (Violation, bool) {
	present := n.Has(r.Field)
	value := n.Value(r.Field)
	v := Violation{Path: n.FieldPath(r.Field), Field: r.Field, Kind: r.Constraint.Kind, Message: r.Message}

	switch r.Constraint.Kind {
	case ConstraintRequired:
		return v, present
	case ConstraintForbidden:
		return v, !present
	}
	if !present {
		return v, true
	}

	switch r.Constraint.Kind {
	case ConstraintPattern:
		if !r.Constraint.Re.MatchString(value) {
			v.Actual = value
			return v, false
		}
	case ConstraintRange:
		d, err := decimal.NewFromString(value)
		if err != nil {
			v.Actual = value
			return v, false
		}
		c := r.Constraint
		if c.Min != nil && (d.LessThan(*c.Min) || (c.MinExclusive && d.Equal(*c.Min))) {
			v.Actual = value
			return v, false
		}
		if c.Max != nil && d.GreaterThan(*c.Max) {
			v.Actual = value
			return v, false
		}
	case ConstraintLength:
		l := utf8.RuneCountInString(value)
		if l < r.Constraint.MinLen || (r.Constraint.MaxLen > 0 && l > r.Constraint.MaxLen) {
			v.Actual = fmt.Sprintf("%d caracteres", l)
			return v, false
		}
	}
	return v, true
}

// ── Predicados comunes ───────────────────────────────────────────────────────

// Presente el campo hermano está presente.
func Presente(field string) Predicate {
	return func(n Node, _ RuleOptions) bool { return n.Has(field) }
}

// Ausente el campo hermano está ausente.
func Ausente(field string) Predicate {
	return func(n Node, _ RuleOptions) bool { return !n.Has(field) }
}

// Igual el campo hermano vale alguno de los valores indicados.
func Igual(field string, values ...string) Predicate {
	return func(n Node, _ RuleOptions) bool {
		if !n.Has(field) {
			return false
		}
		got := n.Value(field)
		for _, v := range values {
			if got == v {
				return true
			}
		}
		return false
	}
}

// Distinto el campo hermano está presente y no vale ninguno de los valores indicados.
func Distinto(field string, values ...string) Predicate {
	eq := Igual(field, values...)
	return func(n Node, o RuleOptions) bool { return n.Has(field) && !eq(n, o) }
}

// Alguno se cumple si cualquiera de los predicados se cumple.
func Alguno(ps ...Predicate) Predicate {
	return func(n Node, o RuleOptions) bool {
		for _, p := range ps {
			if p(n, o) {
				return true
			}
		}
		return false
	}
}
