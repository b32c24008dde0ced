package cfdi

import (
	"errors"
	"fmt"
)

// Errores del comprobante.
var (
	ErrStructural         = errors.New("cfdi: XML estructuralmente inválido")
	ErrStateTransition    = errors.New("cfdi: transición de estado no permitida")
	ErrInvalidComprobante = errors.New("cfdi: comprobante inválido")
	ErrMissingSeal        = errors.New("cfdi: sello o certificado faltante")
	ErrStampMismatch      = errors.New("cfdi: el SelloCFD del timbre no coincide con el sello del comprobante")
)

// StructuralError error fatal de decodificación: el árbol no se puede construir.
type StructuralError struct {
	Path   string // ruta del elemento o atributo, p. ej. "Comprobante/Conceptos/Concepto[1]@Cantidad"
	Reason string
}

func (e *StructuralError) Error() string {
	return fmt.Sprintf("%s en %s: %s", ErrStructural.Error(), e.Path, e.Reason)
}

func (e *StructuralError) Unwrap() error { return ErrStructural }

// StateTransitionError transición rechazada por el Builder; el estado no cambia.
type StateTransitionError struct {
	From   string
	To     string
	Reason string
}

func (e *StateTransitionError) Error() string {
	return fmt.Sprintf("%s: %s -> %s: %s", ErrStateTransition.Error(), e.From, e.To, e.Reason)
}

func (e *StateTransitionError) Unwrap() error { return ErrStateTransition }
