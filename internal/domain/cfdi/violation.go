package cfdi

import (
	"errors"
	"fmt"
)

// ConstraintKind clase de restricción violada.
type ConstraintKind string

const (
	ConstraintRequired          ConstraintKind = "Required"
	ConstraintForbidden         ConstraintKind = "Forbidden"
	ConstraintPattern           ConstraintKind = "Pattern"
	ConstraintRange             ConstraintKind = "Range"
	ConstraintLength            ConstraintKind = "Length"
	ConstraintInvariantMismatch ConstraintKind = "InvariantMismatch"
)

// Violation una regla o invariante incumplida. Path es la ruta completa del campo
// (p. ej. "Conceptos[2].Importe"); Expected y Actual solo se llenan en invariantes.
type Violation struct {
	Path     string         `json:"path"`
	Field    string         `json:"field"`
	Kind     ConstraintKind `json:"kind"`
	Message  string         `json:"message"`
	Expected string         `json:"expected,omitempty"`
	Actual   string         `json:"actual,omitempty"`
}

func (v Violation) Error() string {
	if v.Kind == ConstraintInvariantMismatch {
		return fmt.Sprintf("%s [%s]: %s (esperado %s, actual %s)", v.Path, v.Kind, v.Message, v.Expected, v.Actual)
	}
	return fmt.Sprintf("%s [%s]: %s", v.Path, v.Kind, v.Message)
}

// Violations reporte ordenado de violaciones. Vacío significa que el comprobante puede sellarse.
type Violations []Violation

// Err agrupa las violaciones bajo ErrInvalidComprobante; nil si no hay ninguna.
func (vs Violations) Err() error {
	if len(vs) == 0 {
		return nil
	}
	errs := make([]error, 0, len(vs)+1)
	errs = append(errs, ErrInvalidComprobante)
	for _, v := range vs {
		errs = append(errs, v)
	}
	return errors.Join(errs...)
}

// ByKind filtra por clase de restricción.
func (vs Violations) ByKind(kind ConstraintKind) Violations {
	var out Violations
	for _, v := range vs {
		if v.Kind == kind {
			out = append(out, v)
		}
	}
	return out
}

// AtPath filtra por ruta exacta.
func (vs Violations) AtPath(path string) Violations {
	var out Violations
	for _, v := range vs {
		if v.Path == path {
			out = append(out, v)
		}
	}
	return out
}
