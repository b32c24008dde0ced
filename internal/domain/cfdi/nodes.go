package cfdi

import (
	"fmt"
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/cfdi-generator/pkg/sat"
)

// Attr atributo de un nodo en el orden declarado por el esquema.
// Present es false para opcionales ausentes; el codec no los emite.
type Attr struct {
	Name    string
	Value   string
	Present bool
}

func texto(name, v string) Attr { return Attr{Name: name, Value: v, Present: v != ""} }

func numero(name string, d decimal.Decimal, places int32) Attr {
	return Attr{Name: name, Value: sat.Format(d, places), Present: true}
}

func numeroOpt(name string, d *decimal.Decimal, places int32) Attr {
	if d == nil {
		return Attr{Name: name}
	}
	return numero(name, *d, places)
}

func fecha(name string, f FechaHora) Attr { return texto(name, f.String()) }

func entero(name string, n int) Attr {
	if n == 0 {
		return Attr{Name: name}
	}
	return Attr{Name: name, Value: strconv.Itoa(n), Present: true}
}

// Attrs atributos del Comprobante en orden del esquema cfdv40.xsd.
func (c *Comprobante) Attrs() []Attr {
	return []Attr{
		texto("Version", c.Version),
		texto("Serie", c.Serie),
		texto("Folio", c.Folio),
		fecha("Fecha", c.Fecha),
		texto("Sello", c.Sello),
		texto("FormaPago", c.FormaPago),
		texto("NoCertificado", c.NoCertificado),
		texto("Certificado", c.Certificado),
		texto("CondicionesDePago", c.CondicionesDePago),
		numero("SubTotal", c.SubTotal, sat.PrecisionMonetaria),
		numeroOpt("Descuento", c.Descuento, sat.PrecisionMonetaria),
		texto("Moneda", c.Moneda),
		numeroOpt("TipoCambio", c.TipoCambio, 0),
		numero("Total", c.Total, sat.PrecisionMonetaria),
		texto("TipoDeComprobante", c.TipoDeComprobante),
		texto("Exportacion", c.Exportacion),
		texto("MetodoPago", c.MetodoPago),
		texto("LugarExpedicion", c.LugarExpedicion),
		texto("Confirmacion", c.Confirmacion),
	}
}

func (g *InformacionGlobal) Attrs() []Attr {
	return []Attr{
		texto("Periodicidad", g.Periodicidad),
		texto("Meses", g.Meses),
		entero("Año", g.Año),
	}
}

func (r *CfdiRelacionados) Attrs() []Attr {
	return []Attr{texto("TipoRelacion", r.TipoRelacion)}
}

func (r *CfdiRelacionado) Attrs() []Attr {
	return []Attr{texto("UUID", r.UUID)}
}

func (e *Emisor) Attrs() []Attr {
	return []Attr{
		texto("Rfc", e.Rfc),
		texto("Nombre", e.Nombre),
		texto("RegimenFiscal", e.RegimenFiscal),
		texto("FacAtrAdquirente", e.FacAtrAdquirente),
	}
}

func (r *Receptor) Attrs() []Attr {
	return []Attr{
		texto("Rfc", r.Rfc),
		texto("Nombre", r.Nombre),
		texto("DomicilioFiscalReceptor", r.DomicilioFiscalReceptor),
		texto("ResidenciaFiscal", r.ResidenciaFiscal),
		texto("NumRegIdTrib", r.NumRegIdTrib),
		texto("RegimenFiscalReceptor", r.RegimenFiscalReceptor),
		texto("UsoCFDI", r.UsoCFDI),
	}
}

func (c *Concepto) Attrs() []Attr {
	return []Attr{
		texto("ClaveProdServ", c.ClaveProdServ),
		texto("NoIdentificacion", c.NoIdentificacion),
		numero("Cantidad", c.Cantidad, 0),
		texto("ClaveUnidad", c.ClaveUnidad),
		texto("Unidad", c.Unidad),
		texto("Descripcion", c.Descripcion),
		numero("ValorUnitario", c.ValorUnitario, sat.PrecisionMonetaria),
		numero("Importe", c.Importe, sat.PrecisionMonetaria),
		numeroOpt("Descuento", c.Descuento, sat.PrecisionMonetaria),
		texto("ObjetoImp", c.ObjetoImp),
	}
}

func (e *ImpuestoEntrada) Attrs() []Attr {
	return []Attr{
		numero("Base", e.Base, sat.PrecisionMonetaria),
		texto("Impuesto", e.Impuesto),
		texto("TipoFactor", e.TipoFactor),
		numeroOpt("TasaOCuota", e.TasaOCuota, sat.PrecisionTasa),
		numeroOpt("Importe", e.Importe, sat.PrecisionMonetaria),
	}
}

func (a *ACuentaTerceros) Attrs() []Attr {
	return []Attr{
		texto("RfcACuentaTerceros", a.RfcACuentaTerceros),
		texto("NombreACuentaTerceros", a.NombreACuentaTerceros),
		texto("RegimenFiscalACuentaTerceros", a.RegimenFiscalACuentaTerceros),
		texto("DomicilioFiscalACuentaTerceros", a.DomicilioFiscalACuentaTerceros),
	}
}

func (i *InformacionAduanera) Attrs() []Attr {
	return []Attr{texto("NumeroPedimento", i.NumeroPedimento)}
}

func (c *CuentaPredial) Attrs() []Attr {
	return []Attr{texto("Numero", c.Numero)}
}

func (i *Impuestos) Attrs() []Attr {
	return []Attr{
		numeroOpt("TotalImpuestosRetenidos", i.TotalImpuestosRetenidos, sat.PrecisionMonetaria),
		numeroOpt("TotalImpuestosTrasladados", i.TotalImpuestosTrasladados, sat.PrecisionMonetaria),
	}
}

func (r *RetencionResumen) Attrs() []Attr {
	return []Attr{
		texto("Impuesto", r.Impuesto),
		numero("Importe", r.Importe, sat.PrecisionMonetaria),
	}
}

// Attrs atributos del timbre en orden del esquema TimbreFiscalDigitalv11.xsd.
func (t *TimbreFiscalDigital) Attrs() []Attr {
	return []Attr{
		texto("Version", t.Version),
		texto("UUID", t.UUID),
		fecha("FechaTimbrado", t.FechaTimbrado),
		texto("RfcProvCertif", t.RfcProvCertif),
		texto("Leyenda", t.Leyenda),
		texto("SelloCFD", t.SelloCFD),
		texto("NoCertificadoSAT", t.NoCertificadoSAT),
		texto("SelloSAT", t.SelloSAT),
	}
}

// ── Recorrido del árbol ──────────────────────────────────────────────────────

// NodeKind tipo de nodo; es el alcance de las reglas condicionales.
type NodeKind string

const (
	KindComprobante         NodeKind = "Comprobante"
	KindInformacionGlobal   NodeKind = "InformacionGlobal"
	KindCfdiRelacionados    NodeKind = "CfdiRelacionados"
	KindCfdiRelacionado     NodeKind = "CfdiRelacionado"
	KindEmisor              NodeKind = "Emisor"
	KindReceptor            NodeKind = "Receptor"
	KindConcepto            NodeKind = "Concepto"
	KindTrasladoConcepto    NodeKind = "TrasladoConcepto"
	KindRetencionConcepto   NodeKind = "RetencionConcepto"
	KindACuentaTerceros     NodeKind = "ACuentaTerceros"
	KindInformacionAduanera NodeKind = "InformacionAduanera"
	KindCuentaPredial       NodeKind = "CuentaPredial"
	KindImpuestos           NodeKind = "Impuestos"
	KindTrasladoResumen     NodeKind = "TrasladoResumen"
	KindRetencionResumen    NodeKind = "RetencionResumen"
	KindTimbreFiscalDigital NodeKind = "TimbreFiscalDigital"
)

// Node vista de solo lectura de un nodo del árbol durante Walk.
type Node struct {
	Kind  NodeKind
	Path  string // "" para la raíz, p. ej. "Conceptos[2]" o "Conceptos[0].Impuestos.Traslados[1]"
	Attrs []Attr
	// Children cuenta los hijos presentes por nombre de elemento ("Impuestos", "CfdiRelacionados", ...).
	Children map[string]int
}

// Attr busca un atributo por nombre.
func (n Node) Attr(name string) (Attr, bool) {
	for _, a := range n.Attrs {
		if a.Name == name {
			return a, true
		}
	}
	return Attr{}, false
}

// Value valor del atributo o "" si está ausente.
func (n Node) Value(name string) string {
	a, _ := n.Attr(name)
	if !a.Present {
		return ""
	}
	return a.Value
}

// Has indica si el campo está presente, sea atributo o elemento hijo.
func (n Node) Has(field string) bool {
	if a, ok := n.Attr(field); ok {
		return a.Present
	}
	return n.Children[field] > 0
}

// FieldPath ruta estable de un campo del nodo, p. ej. "Conceptos[2].Importe".
func (n Node) FieldPath(field string) string {
	return joinPath(n.Path, field)
}

func joinPath(base, field string) string {
	if base == "" {
		return field
	}
	if field == "" {
		return base
	}
	return base + "." + field
}

func indexPath(base, name string, i int) string {
	return joinPath(base, fmt.Sprintf("%s[%d]", name, i))
}

// Walk recorre el árbol en el orden fijo del esquema (no en orden de inserción) y llama fn
// una vez por nodo presente.
func Walk(c *Comprobante, fn func(Node)) {
	if c == nil {
		return
	}
	fn(Node{Kind: KindComprobante, Attrs: c.Attrs(), Children: map[string]int{
		"InformacionGlobal": boolCount(c.InformacionGlobal != nil),
		"CfdiRelacionados":  len(c.CfdiRelacionados),
		"Emisor":            1,
		"Receptor":          1,
		"Conceptos":         len(c.Conceptos),
		"Impuestos":         boolCount(!c.Impuestos.Vacio()),
		"Complemento":       len(c.Complemento),
		"Addenda":           len(c.Addenda),
	}})

	if c.InformacionGlobal != nil {
		fn(Node{Kind: KindInformacionGlobal, Path: "InformacionGlobal", Attrs: c.InformacionGlobal.Attrs()})
	}
	for i := range c.CfdiRelacionados {
		rel := &c.CfdiRelacionados[i]
		path := indexPath("", "CfdiRelacionados", i)
		fn(Node{Kind: KindCfdiRelacionados, Path: path, Attrs: rel.Attrs(),
			Children: map[string]int{"CfdiRelacionado": len(rel.Relacionados)}})
		for j := range rel.Relacionados {
			fn(Node{Kind: KindCfdiRelacionado, Path: indexPath(path, "CfdiRelacionado", j), Attrs: rel.Relacionados[j].Attrs()})
		}
	}
	fn(Node{Kind: KindEmisor, Path: "Emisor", Attrs: c.Emisor.Attrs()})
	fn(Node{Kind: KindReceptor, Path: "Receptor", Attrs: c.Receptor.Attrs()})

	for i := range c.Conceptos {
		walkConcepto(&c.Conceptos[i], indexPath("", "Conceptos", i), fn)
	}

	if !c.Impuestos.Vacio() {
		imp := &c.Impuestos
		fn(Node{Kind: KindImpuestos, Path: "Impuestos", Attrs: imp.Attrs(), Children: map[string]int{
			"Retenciones":       len(imp.Retenciones),
			"Traslados":         len(imp.Traslados),
			TrasladosConImporte: trasladosConImporte(imp.Traslados),
		}})
		for j := range imp.Retenciones {
			fn(Node{Kind: KindRetencionResumen, Path: indexPath("Impuestos", "Retenciones", j), Attrs: imp.Retenciones[j].Attrs()})
		}
		for j := range imp.Traslados {
			fn(Node{Kind: KindTrasladoResumen, Path: indexPath("Impuestos", "Traslados", j), Attrs: imp.Traslados[j].Attrs()})
		}
	}

	if tfd := c.Timbre(); tfd != nil {
		fn(Node{Kind: KindTimbreFiscalDigital, Path: "Complemento.TimbreFiscalDigital", Attrs: tfd.Attrs()})
	}
}

func walkConcepto(c *Concepto, path string, fn func(Node)) {
	fn(Node{Kind: KindConcepto, Path: path, Attrs: c.Attrs(), Children: map[string]int{
		"Impuestos":           boolCount(c.Impuestos != nil),
		"ACuentaTerceros":     boolCount(c.ACuentaTerceros != nil),
		"InformacionAduanera": len(c.InformacionAduanera),
		"CuentaPredial":       len(c.CuentaPredial),
		"ComplementoConcepto": len(c.ComplementoConcepto),
	}})
	if c.Impuestos != nil {
		impPath := joinPath(path, "Impuestos")
		for j := range c.Impuestos.Traslados {
			fn(Node{Kind: KindTrasladoConcepto, Path: indexPath(impPath, "Traslados", j), Attrs: c.Impuestos.Traslados[j].Attrs()})
		}
		for j := range c.Impuestos.Retenciones {
			fn(Node{Kind: KindRetencionConcepto, Path: indexPath(impPath, "Retenciones", j), Attrs: c.Impuestos.Retenciones[j].Attrs()})
		}
	}
	if c.ACuentaTerceros != nil {
		fn(Node{Kind: KindACuentaTerceros, Path: joinPath(path, "ACuentaTerceros"), Attrs: c.ACuentaTerceros.Attrs()})
	}
	for k := range c.InformacionAduanera {
		fn(Node{Kind: KindInformacionAduanera, Path: indexPath(path, "InformacionAduanera", k), Attrs: c.InformacionAduanera[k].Attrs()})
	}
	for k := range c.CuentaPredial {
		fn(Node{Kind: KindCuentaPredial, Path: indexPath(path, "CuentaPredial", k), Attrs: c.CuentaPredial[k].Attrs()})
	}
}

// TrasladosConImporte pseudo-hijo del resumen: traslados no exentos (con Importe).
const TrasladosConImporte = "TrasladosConImporte"

func trasladosConImporte(ts []ImpuestoEntrada) int {
	n := 0
	for _, t := range ts {
		if t.Importe != nil {
			n++
		}
	}
	return n
}

func boolCount(b bool) int {
	if b {
		return 1
	}
	return 0
}
