// Puertos hacia los colaboradores externos de sellado y timbrado.
// El core solo define las formas; el transporte y la criptografía viven fuera.

package sat

import (
	"context"
	"time"
)

// SealResult datos que devuelve el proveedor de sello digital del emisor.
type SealResult struct {
	Sello         string // sello del emisor en Base64
	Certificado   string // CSD del emisor en Base64 (DER)
	NoCertificado string // número de serie del CSD, 20 dígitos
}

// Sealer calcula el sello del emisor sobre el XML previo al sellado.
// key es material de llave privada opaco para el core.
type Sealer interface {
	Seal(ctx context.Context, preSealXML []byte, key any) (*SealResult, error)
}

// StampResult campos del TimbreFiscalDigital que devuelve el PAC.
type StampResult struct {
	Version          string
	UUID             string
	FechaTimbrado    time.Time
	RfcProvCertif    string
	Leyenda          string
	SelloCFD         string
	NoCertificadoSAT string
	SelloSAT         string
}

// Stamper envía el XML sellado al PAC y devuelve el timbre.
type Stamper interface {
	Stamp(ctx context.Context, sealedXML []byte) (*StampResult, error)
}
