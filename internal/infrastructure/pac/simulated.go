// Package pac contiene los clientes de timbrado. En desarrollo solo existe el simulador:
// no hay transporte hacia un PAC real.
package pac

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jhoicas/cfdi-generator/internal/infrastructure/cfdixml"
	"github.com/jhoicas/cfdi-generator/pkg/sat"
)

// Modos de timbrado (CFDI_PAC_MODE).
const (
	ModeDev = "dev"
	ModeOff = "off"
)

// NoCertificadoSATSimulado número de certificado que firma los timbres simulados.
const NoCertificadoSATSimulado = "00001000000509846663"

// LeyendaSimulada acompaña a todo timbre generado fuera de un PAC.
const LeyendaSimulada = "Timbre simulado sin validez fiscal"

// ErrSinSello el XML recibido no trae el atributo Sello del emisor.
var ErrSinSello = errors.New("pac: el comprobante no está sellado")

// SimulatedStamper implementa sat.Stamper sin red: asigna un UUID nuevo y firma el timbre
// con la huella SHA-256 del XML canónico.
type SimulatedStamper struct {
	rfc     string
	decoder *cfdixml.Decoder
	now     func() time.Time
}

var _ sat.Stamper = (*SimulatedStamper)(nil)

// NewSimulatedStamper crea el simulador. rfcProvCertif es el RFC que se reporta como PAC.
func NewSimulatedStamper(rfcProvCertif string) *SimulatedStamper {
	return &SimulatedStamper{
		rfc:     rfcProvCertif,
		decoder: cfdixml.NewDecoder(),
		now:     time.Now,
	}
}

// WithClock reemplaza el reloj (pruebas).
func (s *SimulatedStamper) WithClock(now func() time.Time) *SimulatedStamper {
	s.now = now
	return s
}

// Stamp decodifica el XML sellado, toma su Sello como SelloCFD y devuelve el timbre.
func (s *SimulatedStamper) Stamp(ctx context.Context, sealedXML []byte) (*sat.StampResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	doc, err := s.decoder.Decode(sealedXML)
	if err != nil {
		return nil, fmt.Errorf("pac: decodificar comprobante: %w", err)
	}
	if doc.Sello == "" {
		return nil, ErrSinSello
	}
	if doc.Timbre() != nil {
		return nil, fmt.Errorf("pac: el comprobante ya está timbrado")
	}

	huella, err := cfdixml.Huella(sealedXML)
	if err != nil {
		return nil, fmt.Errorf("pac: huella: %w", err)
	}

	folio := uuid.NewString()
	firma := sha256.Sum256([]byte(huella + "|" + folio + "|" + doc.Sello))

	return &sat.StampResult{
		Version:          sat.VersionTFD,
		UUID:             folio,
		FechaTimbrado:    s.now().Truncate(time.Second),
		RfcProvCertif:    s.rfc,
		Leyenda:          LeyendaSimulada,
		SelloCFD:         doc.Sello,
		NoCertificadoSAT: NoCertificadoSATSimulado,
		SelloSAT:         base64.StdEncoding.EncodeToString(firma[:]),
	}, nil
}
