// Package cfdi modela el Comprobante Fiscal Digital por Internet 4.0 como un árbol tipado
// y contiene el motor de reglas condicionales y el validador de invariantes aritméticas.
//
// La construcción nunca coerciona: un RFC mal formado se acepta como texto y lo reporta
// el motor de reglas. Los campos opcionales de texto usan "" como ausente; los decimales
// opcionales son punteros.
package cfdi

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/cfdi-generator/pkg/sat"
)

// FechaHora fecha y hora local del lugar de expedición, sin zona horaria (AAAA-MM-DDThh:mm:ss).
type FechaHora struct {
	time.Time
}

// NewFechaHora descarta la zona y los segundos fraccionarios de t.
func NewFechaHora(t time.Time) FechaHora {
	return FechaHora{Time: time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), 0, time.UTC)}
}

// ParseFechaHora interpreta el formato del Anexo 20.
func ParseFechaHora(s string) (FechaHora, error) {
	t, err := time.Parse(sat.DateTimeLayout, s)
	if err != nil {
		return FechaHora{}, err
	}
	return FechaHora{Time: t}, nil
}

func (f FechaHora) String() string {
	if f.IsZero() {
		return ""
	}
	return f.Format(sat.DateTimeLayout)
}

func (f FechaHora) MarshalJSON() ([]byte, error) {
	return []byte(`"` + f.String() + `"`), nil
}

func (f *FechaHora) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		*f = FechaHora{}
		return nil
	}
	v, err := ParseFechaHora(s)
	if err != nil {
		return err
	}
	*f = v
	return nil
}

// Comprobante nodo raíz del CFDI.
type Comprobante struct {
	Version           string           `json:"Version"`
	Serie             string           `json:"Serie,omitempty"`
	Folio             string           `json:"Folio,omitempty"`
	Fecha             FechaHora        `json:"Fecha"`
	Sello             string           `json:"Sello,omitempty"`
	FormaPago         string           `json:"FormaPago,omitempty"`
	NoCertificado     string           `json:"NoCertificado,omitempty"`
	Certificado       string           `json:"Certificado,omitempty"`
	CondicionesDePago string           `json:"CondicionesDePago,omitempty"`
	SubTotal          decimal.Decimal  `json:"SubTotal"`
	Descuento         *decimal.Decimal `json:"Descuento,omitempty"`
	Moneda            string           `json:"Moneda"`
	TipoCambio        *decimal.Decimal `json:"TipoCambio,omitempty"`
	Total             decimal.Decimal  `json:"Total"`
	TipoDeComprobante string           `json:"TipoDeComprobante"`
	Exportacion       string           `json:"Exportacion"`
	MetodoPago        string           `json:"MetodoPago,omitempty"`
	LugarExpedicion   string           `json:"LugarExpedicion"`
	Confirmacion      string           `json:"Confirmacion,omitempty"`

	InformacionGlobal *InformacionGlobal `json:"InformacionGlobal,omitempty"`
	CfdiRelacionados  []CfdiRelacionados `json:"CfdiRelacionados,omitempty"`
	Emisor            Emisor             `json:"Emisor"`
	Receptor          Receptor           `json:"Receptor"`
	Conceptos         []Concepto         `json:"Conceptos"`
	Impuestos         Impuestos          `json:"Impuestos"`
	Complemento       []Extension        `json:"-"`
	Addenda           []Extension        `json:"-"`
}

// New crea un Comprobante vacío con la versión fija "4.0".
func New() *Comprobante {
	return &Comprobante{Version: sat.VersionCFDI}
}

// InformacionGlobal datos del comprobante global (operaciones con el público en general).
type InformacionGlobal struct {
	Periodicidad string `json:"Periodicidad"`
	Meses        string `json:"Meses"`
	Año          int    `json:"Año"`
}

// CfdiRelacionados lista de comprobantes relacionados bajo un mismo tipo de relación.
type CfdiRelacionados struct {
	TipoRelacion string            `json:"TipoRelacion"`
	Relacionados []CfdiRelacionado `json:"CfdiRelacionado"`
}

// CfdiRelacionado folio fiscal (UUID) de un comprobante relacionado.
type CfdiRelacionado struct {
	UUID string `json:"UUID"`
}

type Emisor struct {
	Rfc              string `json:"Rfc"`
	Nombre           string `json:"Nombre"`
	RegimenFiscal    string `json:"RegimenFiscal"`
	FacAtrAdquirente string `json:"FacAtrAdquirente,omitempty"`
}

type Receptor struct {
	Rfc                     string `json:"Rfc"`
	Nombre                  string `json:"Nombre,omitempty"`
	DomicilioFiscalReceptor string `json:"DomicilioFiscalReceptor"`
	ResidenciaFiscal        string `json:"ResidenciaFiscal,omitempty"`
	NumRegIdTrib            string `json:"NumRegIdTrib,omitempty"`
	RegimenFiscalReceptor   string `json:"RegimenFiscalReceptor"`
	UsoCFDI                 string `json:"UsoCFDI"`
}

// Concepto línea del comprobante. El orden se conserva en el XML pero no tiene significado fiscal.
type Concepto struct {
	ClaveProdServ    string           `json:"ClaveProdServ"`
	NoIdentificacion string           `json:"NoIdentificacion,omitempty"`
	Cantidad         decimal.Decimal  `json:"Cantidad"`
	ClaveUnidad      string           `json:"ClaveUnidad"`
	Unidad           string           `json:"Unidad,omitempty"`
	Descripcion      string           `json:"Descripcion"`
	ValorUnitario    decimal.Decimal  `json:"ValorUnitario"`
	Importe          decimal.Decimal  `json:"Importe"`
	Descuento        *decimal.Decimal `json:"Descuento,omitempty"`
	ObjetoImp        string           `json:"ObjetoImp"`

	Impuestos           *ImpuestosConcepto    `json:"Impuestos,omitempty"`
	ACuentaTerceros     *ACuentaTerceros      `json:"ACuentaTerceros,omitempty"`
	InformacionAduanera []InformacionAduanera `json:"InformacionAduanera,omitempty"`
	CuentaPredial       []CuentaPredial       `json:"CuentaPredial,omitempty"`
	ComplementoConcepto []Extension           `json:"-"`
}

// ImpuestosConcepto traslados y retenciones de una línea.
type ImpuestosConcepto struct {
	Traslados   []ImpuestoEntrada `json:"Traslados,omitempty"`
	Retenciones []ImpuestoEntrada `json:"Retenciones,omitempty"`
}

// ImpuestoEntrada traslado o retención. Con TipoFactor "Tasa" el Importe es Base × TasaOCuota;
// con "Cuota" el importe no depende de la base; con "Exento" no lleva TasaOCuota ni Importe.
type ImpuestoEntrada struct {
	Base       decimal.Decimal  `json:"Base"`
	Impuesto   string           `json:"Impuesto"`
	TipoFactor string           `json:"TipoFactor"`
	TasaOCuota *decimal.Decimal `json:"TasaOCuota,omitempty"`
	Importe    *decimal.Decimal `json:"Importe,omitempty"`
}

type ACuentaTerceros struct {
	RfcACuentaTerceros             string `json:"RfcACuentaTerceros"`
	NombreACuentaTerceros          string `json:"NombreACuentaTerceros"`
	RegimenFiscalACuentaTerceros   string `json:"RegimenFiscalACuentaTerceros"`
	DomicilioFiscalACuentaTerceros string `json:"DomicilioFiscalACuentaTerceros"`
}

type InformacionAduanera struct {
	NumeroPedimento string `json:"NumeroPedimento"`
}

type CuentaPredial struct {
	Numero string `json:"Numero"`
}

// Impuestos resumen de impuestos del comprobante. Sus totales se derivan de los conceptos
// (ver ResumirImpuestos); un resumen vacío no se emite en el XML.
type Impuestos struct {
	TotalImpuestosRetenidos   *decimal.Decimal   `json:"TotalImpuestosRetenidos,omitempty"`
	TotalImpuestosTrasladados *decimal.Decimal   `json:"TotalImpuestosTrasladados,omitempty"`
	Retenciones               []RetencionResumen `json:"Retenciones,omitempty"`
	Traslados                 []ImpuestoEntrada  `json:"Traslados,omitempty"`
}

// Vacio indica que el resumen no tiene totales ni entradas.
func (i Impuestos) Vacio() bool {
	return i.TotalImpuestosRetenidos == nil && i.TotalImpuestosTrasladados == nil &&
		len(i.Retenciones) == 0 && len(i.Traslados) == 0
}

// RetencionResumen retención agregada por clave de impuesto.
type RetencionResumen struct {
	Impuesto string          `json:"Impuesto"`
	Importe  decimal.Decimal `json:"Importe"`
}

// Dec devuelve un puntero a d, para poblar campos decimales opcionales.
func Dec(d decimal.Decimal) *decimal.Decimal {
	return &d
}

// MustDec interpreta s como decimal y devuelve un puntero; entra en pánico si s no es numérico.
func MustDec(s string) *decimal.Decimal {
	return Dec(decimal.RequireFromString(s))
}
