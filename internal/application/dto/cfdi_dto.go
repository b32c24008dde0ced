package dto

import "github.com/jhoicas/cfdi-generator/internal/domain/cfdi"

// EmitirRequest body para POST /api/cfdi/emitir.
// Sin Sello/Certificado se usa el sellador configurado en el servidor (si existe).
type EmitirRequest struct {
	Comprobante      *cfdi.Comprobante `json:"comprobante"`
	DerivarImpuestos bool              `json:"derivar_impuestos,omitempty"` // recalcula resumen, SubTotal y Total
	Sello            string            `json:"sello,omitempty"`
	Certificado      string            `json:"certificado,omitempty"`
	NoCertificado    string            `json:"no_certificado,omitempty"` // vacío = se toma del certificado
}

// ComprobanteRequest body para POST /api/cfdi/validar y /api/cfdi/vista-previa.
type ComprobanteRequest struct {
	Comprobante      *cfdi.Comprobante `json:"comprobante"`
	DerivarImpuestos bool              `json:"derivar_impuestos,omitempty"`
}

// ValidacionResponse resultado de validar un comprobante.
type ValidacionResponse struct {
	Valido      bool            `json:"valido"`
	Estado      string          `json:"estado"`
	Violaciones cfdi.Violations `json:"violaciones"`
}

// EmisionResponse comprobante emitido. UUID solo viene si hubo timbrado.
type EmisionResponse struct {
	Estado        string          `json:"estado"`
	UUID          string          `json:"uuid,omitempty"`
	NoCertificado string          `json:"no_certificado,omitempty"`
	Huella        string          `json:"huella,omitempty"` // SHA-256 del XML canónico
	XML           string          `json:"xml,omitempty"`
	Violaciones   cfdi.Violations `json:"violaciones,omitempty"`
}

// LoteRequest body para POST /api/cfdi/validar-lote.
type LoteRequest struct {
	Comprobantes []*cfdi.Comprobante `json:"comprobantes"`
}

// LoteResponse resultados en el mismo orden de la solicitud.
type LoteResponse struct {
	Validos    int                  `json:"validos"`
	Invalidos  int                  `json:"invalidos"`
	Resultados []ValidacionResponse `json:"resultados"`
}

// DecodificarResponse comprobante leído de XML. El decodificador no valida: las violaciones
// se calculan aparte y se devuelven junto al árbol.
type DecodificarResponse struct {
	Comprobante *cfdi.Comprobante         `json:"comprobante"`
	Timbre      *cfdi.TimbreFiscalDigital `json:"timbre,omitempty"`
	Violaciones cfdi.Violations           `json:"violaciones"`
}
