package billing

import (
	"context"
	"fmt"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/cfdi-generator/internal/domain/cfdi"
	"github.com/jhoicas/cfdi-generator/internal/infrastructure/cfdixml"
	"github.com/jhoicas/cfdi-generator/internal/infrastructure/csd"
	"github.com/jhoicas/cfdi-generator/pkg/sat"
)

// Estado del comprobante dentro del Builder.
type Estado string

const (
	EstadoDraft     Estado = "DRAFT"     // campos en captura, sin garantías
	EstadoValidated Estado = "VALIDATED" // reglas e invariantes sin violaciones
	EstadoSealed    Estado = "SEALED"    // sello y certificado del emisor aplicados
)

// Validadores motor de reglas y validador de invariantes que comparte un conjunto de Builders.
// Ambos son de solo lectura y se pueden usar desde varias goroutines.
type Validadores struct {
	Reglas      *cfdi.RuleEngine
	Invariantes *cfdi.InvariantValidator
	Policy      sat.Policy
}

// NewValidadores arma los validadores con el conjunto de reglas CFDI 4.0.
func NewValidadores(policy sat.Policy, opts cfdi.RuleOptions) Validadores {
	return Validadores{
		Reglas:      cfdi.NewRuleEngine(cfdi.ReglasCFDI40(), opts),
		Invariantes: cfdi.NewInvariantValidator(policy),
		Policy:      policy,
	}
}

// DefaultValidadores tolerancia cero y opciones de reglas por defecto.
func DefaultValidadores() Validadores {
	return NewValidadores(sat.DefaultPolicy(), cfdi.DefaultRuleOptions())
}

// Builder lleva un comprobante por Draft -> Validated -> Sealed.
// Cada Builder es dueño exclusivo de su comprobante; no se comparte entre solicitudes.
type Builder struct {
	mu      sync.Mutex
	doc     *cfdi.Comprobante
	estado  Estado
	v       Validadores
	encoder *cfdixml.Encoder
	emitido []byte
}

// NewBuilder copia doc y arranca en Draft. Con doc nil parte de un comprobante vacío versión 4.0.
func NewBuilder(doc *cfdi.Comprobante, v Validadores) *Builder {
	if doc == nil {
		doc = cfdi.New()
	} else {
		doc = doc.Clone()
	}
	if v.Reglas == nil || v.Invariantes == nil {
		v = DefaultValidadores()
	}
	return &Builder{
		doc:     doc,
		estado:  EstadoDraft,
		v:       v,
		encoder: cfdixml.NewEncoder(),
	}
}

// Estado devuelve el estado actual.
func (b *Builder) Estado() Estado {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.estado
}

// Documento devuelve una copia del comprobante; modificarla no afecta al Builder.
func (b *Builder) Documento() *cfdi.Comprobante {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.doc.Clone()
}

// Mutate aplica fn sobre el comprobante. Solo se permite en Draft: un comprobante validado
// se descarta y se reconstruye, nunca vuelve a Draft.
func (b *Builder) Mutate(fn func(c *cfdi.Comprobante)) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.estado != EstadoDraft {
		return b.rechazo(EstadoDraft, "el comprobante ya no es editable; descarte el Builder y cree uno nuevo")
	}
	fn(b.doc)
	return nil
}

// DerivarImpuestos recalcula desde los conceptos el resumen de impuestos, el SubTotal y el Total.
// Los importes de cada concepto no se tocan: si están mal, el validador lo reporta.
func (b *Builder) DerivarImpuestos() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.estado != EstadoDraft {
		return b.rechazo(EstadoDraft, "los impuestos solo se derivan en captura")
	}

	p := b.v.Policy
	imp := cfdi.ResumirImpuestos(b.doc.Conceptos, p)
	b.doc.Impuestos = imp

	subTotal := sumaImportes(b.doc.Conceptos)
	b.doc.SubTotal = p.Round(subTotal, sat.PrecisionMonetaria)

	total := b.doc.SubTotal
	if b.doc.Descuento != nil {
		total = total.Sub(*b.doc.Descuento)
	}
	if imp.TotalImpuestosTrasladados != nil {
		total = total.Add(*imp.TotalImpuestosTrasladados)
	}
	if imp.TotalImpuestosRetenidos != nil {
		total = total.Sub(*imp.TotalImpuestosRetenidos)
	}
	b.doc.Total = p.Round(total, sat.PrecisionMonetaria)
	return nil
}

// Validar corre el motor de reglas y el validador de invariantes (ambos completos, sin cortocircuito).
// Sin violaciones el Builder pasa a Validated; con violaciones sigue en Draft y las devuelve en orden.
// En Validated es idempotente.
func (b *Builder) Validar() (cfdi.Violations, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	switch b.estado {
	case EstadoValidated:
		return nil, nil
	case EstadoSealed:
		return nil, b.rechazo(EstadoValidated, "el comprobante ya está sellado")
	}

	vs := b.v.Reglas.Evaluate(b.doc)
	vs = append(vs, b.v.Invariantes.Validate(b.doc)...)
	if len(vs) == 0 {
		b.estado = EstadoValidated
	}
	return vs, nil
}

// VistaPrevia codifica un comprobante validado o sellado. La vista previa de un comprobante
// sin sellar no lleva TimbreFiscalDigital ni Sello.
func (b *Builder) VistaPrevia() ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.estado == EstadoDraft {
		return nil, b.rechazo(EstadoValidated, "solo un comprobante validado puede codificarse")
	}
	return b.encoder.Encode(b.doc)
}

// Sellar aplica el sello, el certificado y el número de certificado del emisor.
// Requiere Validated. Sin sello o certificado devuelve cfdi.ErrMissingSeal; si noCertificado
// va vacío se toma del certificado, y si viene debe corresponder al certificado.
func (b *Builder) Sellar(sello, certificado, noCertificado string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.sellar(sello, certificado, noCertificado)
}

func (b *Builder) sellar(sello, certificado, noCertificado string) error {
	if b.estado != EstadoValidated {
		return b.rechazo(EstadoSealed, "solo un comprobante validado puede sellarse")
	}
	if sello == "" || certificado == "" {
		return cfdi.ErrMissingSeal
	}

	if noCertificado == "" {
		c, err := csd.ParseBase64(certificado)
		if err != nil {
			return err
		}
		noCertificado = c.NoCertificado
	} else if err := csd.Matches(noCertificado, certificado); err != nil {
		return err
	}

	prevSello, prevCert, prevNo := b.doc.Sello, b.doc.Certificado, b.doc.NoCertificado
	b.doc.Sello = sello
	b.doc.Certificado = certificado
	b.doc.NoCertificado = noCertificado

	// Sello, Certificado y NoCertificado también tienen reglas de forma.
	// Si no las cumplen el documento queda como estaba.
	if vs := b.v.Reglas.Evaluate(b.doc); len(vs) > 0 {
		b.doc.Sello, b.doc.Certificado, b.doc.NoCertificado = prevSello, prevCert, prevNo
		return vs.Err()
	}
	b.estado = EstadoSealed
	return nil
}

// SellarCon pide el sello a un colaborador externo sobre el XML previo al sellado.
// key es material de llave opaco que solo interpreta el sealer.
func (b *Builder) SellarCon(ctx context.Context, sealer sat.Sealer, key any) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.estado != EstadoValidated {
		return b.rechazo(EstadoSealed, "solo un comprobante validado puede sellarse")
	}

	pre, err := b.encoder.Encode(b.doc)
	if err != nil {
		return fmt.Errorf("billing: XML previo al sellado: %w", err)
	}
	res, err := sealer.Seal(ctx, pre, key)
	if err != nil {
		return fmt.Errorf("billing: sellar: %w", err)
	}
	if res == nil {
		return cfdi.ErrMissingSeal
	}
	return b.sellar(res.Sello, res.Certificado, res.NoCertificado)
}

// Timbrar agrega el TimbreFiscalDigital devuelto por el PAC. Requiere Sealed, un solo timbre
// por comprobante y que SelloCFD sea el Sello del emisor (cfdi.ErrStampMismatch).
func (b *Builder) Timbrar(res *sat.StampResult) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.estado != EstadoSealed {
		return b.rechazo(EstadoSealed, "solo un comprobante sellado puede timbrarse")
	}
	if b.doc.Timbre() != nil {
		return b.rechazo(EstadoSealed, "el comprobante ya tiene TimbreFiscalDigital")
	}
	if res == nil || res.SelloCFD != b.doc.Sello {
		return cfdi.ErrStampMismatch
	}

	tfd := &cfdi.TimbreFiscalDigital{
		Version:          res.Version,
		UUID:             res.UUID,
		FechaTimbrado:    cfdi.NewFechaHora(res.FechaTimbrado),
		RfcProvCertif:    res.RfcProvCertif,
		Leyenda:          res.Leyenda,
		SelloCFD:         res.SelloCFD,
		NoCertificadoSAT: res.NoCertificadoSAT,
		SelloSAT:         res.SelloSAT,
	}
	if tfd.Version == "" {
		tfd.Version = sat.VersionTFD
	}

	b.doc.Complemento = append(b.doc.Complemento, tfd)
	if vs := b.v.Reglas.Evaluate(b.doc); len(vs) > 0 {
		b.doc.Complemento = b.doc.Complemento[:len(b.doc.Complemento)-1]
		return vs.Err()
	}
	b.emitido = nil
	return nil
}

// Emitir codifica el comprobante para su emisión. Solo un comprobante sellado puede emitirse;
// llamadas repetidas devuelven exactamente los mismos bytes.
func (b *Builder) Emitir() ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.estado != EstadoSealed {
		return nil, b.rechazo(EstadoSealed, "solo un comprobante sellado puede emitirse")
	}
	if b.emitido == nil {
		out, err := b.encoder.Encode(b.doc)
		if err != nil {
			return nil, err
		}
		b.emitido = out
	}
	return append([]byte(nil), b.emitido...), nil
}

func (b *Builder) rechazo(to Estado, reason string) error {
	return &cfdi.StateTransitionError{From: string(b.estado), To: string(to), Reason: reason}
}

func sumaImportes(cs []cfdi.Concepto) decimal.Decimal {
	var s decimal.Decimal
	for _, c := range cs {
		s = s.Add(c.Importe)
	}
	return s
}
