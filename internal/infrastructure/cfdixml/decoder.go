package cfdixml

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/beevik/etree"
	"github.com/shopspring/decimal"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"

	"github.com/jhoicas/cfdi-generator/internal/domain/cfdi"
)

// Decoder convierte XML en el árbol del comprobante. Solo hace mapeo estructural: no invoca
// el motor de reglas ni el validador de invariantes. Cualquier elemento o atributo desconocido,
// o un valor que no corresponde al tipo del campo, aborta con *cfdi.StructuralError.
type Decoder struct{}

// NewDecoder crea el decodificador.
func NewDecoder() *Decoder {
	return &Decoder{}
}

// Decode interpreta data (UTF-8, ISO-8859-1 o Windows-1252 según la declaración XML).
func (d *Decoder) Decode(data []byte) (*cfdi.Comprobante, error) {
	data, err := aUTF8(data)
	if err != nil {
		return nil, structural("", err.Error())
	}
	doc := etree.NewDocument()
	doc.ReadSettings.CharsetReader = sinConversion
	if err := doc.ReadFromBytes(data); err != nil {
		return nil, structural("", "XML mal formado: "+err.Error())
	}
	root := doc.Root()
	if root == nil {
		return nil, structural("", "documento sin elemento raíz")
	}
	src, err := nuevaFuente(data, root)
	if err != nil {
		return nil, structural("", "XML mal formado: "+err.Error())
	}
	if !isCfdi(root, "Comprobante") {
		return nil, structural(root.Tag, "se esperaba cfdi:Comprobante en "+NsCfdi)
	}

	c := &cfdi.Comprobante{}
	path := "Comprobante"
	if err := decodeAttrs(root, path, map[string]setter{
		"Version":           str(&c.Version),
		"Serie":             str(&c.Serie),
		"Folio":             str(&c.Folio),
		"Fecha":             fecha(&c.Fecha),
		"Sello":             str(&c.Sello),
		"FormaPago":         str(&c.FormaPago),
		"NoCertificado":     str(&c.NoCertificado),
		"Certificado":       str(&c.Certificado),
		"CondicionesDePago": str(&c.CondicionesDePago),
		"SubTotal":          dec(&c.SubTotal),
		"Descuento":         decOpt(&c.Descuento),
		"Moneda":            str(&c.Moneda),
		"TipoCambio":        decOpt(&c.TipoCambio),
		"Total":             dec(&c.Total),
		"TipoDeComprobante": str(&c.TipoDeComprobante),
		"Exportacion":       str(&c.Exportacion),
		"MetodoPago":        str(&c.MetodoPago),
		"LugarExpedicion":   str(&c.LugarExpedicion),
		"Confirmacion":      str(&c.Confirmacion),
	}); err != nil {
		return nil, err
	}

	seen := map[string]bool{}
	once := func(el *etree.Element, p string) error {
		if seen[el.Tag] {
			return structural(p, "cfdi:"+el.Tag+" aparece más de una vez")
		}
		seen[el.Tag] = true
		return nil
	}

	for _, el := range root.ChildElements() {
		p := path + "/" + el.Tag
		if el.NamespaceURI() != NsCfdi {
			return nil, structural(p, "elemento fuera del namespace "+NsCfdi)
		}
		var err error
		switch el.Tag {
		case "InformacionGlobal":
			if err = once(el, p); err == nil {
				c.InformacionGlobal = &cfdi.InformacionGlobal{}
				err = decodeInformacionGlobal(el, p, c.InformacionGlobal)
			}
		case "CfdiRelacionados":
			var rel cfdi.CfdiRelacionados
			p = fmt.Sprintf("%s[%d]", p, len(c.CfdiRelacionados))
			if err = decodeRelacionados(el, p, &rel); err == nil {
				c.CfdiRelacionados = append(c.CfdiRelacionados, rel)
			}
		case "Emisor":
			if err = once(el, p); err == nil {
				err = decodeEmisor(el, p, &c.Emisor)
			}
		case "Receptor":
			if err = once(el, p); err == nil {
				err = decodeReceptor(el, p, &c.Receptor)
			}
		case "Conceptos":
			if err = once(el, p); err == nil {
				c.Conceptos, err = decodeConceptos(el, p, src)
			}
		case "Impuestos":
			if err = once(el, p); err == nil {
				err = decodeResumen(el, p, &c.Impuestos)
			}
		case "Complemento":
			if err = once(el, p); err == nil {
				c.Complemento, err = decodeExtensiones(el, p, true, src)
			}
		case "Addenda":
			if err = once(el, p); err == nil {
				c.Addenda, err = decodeExtensiones(el, p, false, src)
			}
		default:
			err = structural(p, "elemento desconocido")
		}
		if err != nil {
			return nil, err
		}
	}
	return c, nil
}

// ── Nodos ────────────────────────────────────────────────────────────────────

func decodeInformacionGlobal(el *etree.Element, p string, g *cfdi.InformacionGlobal) error {
	if err := decodeAttrs(el, p, map[string]setter{
		"Periodicidad": str(&g.Periodicidad),
		"Meses":        str(&g.Meses),
		"Año":          entero(&g.Año),
	}); err != nil {
		return err
	}
	return noChildren(el, p)
}

func decodeRelacionados(el *etree.Element, p string, rel *cfdi.CfdiRelacionados) error {
	if err := decodeAttrs(el, p, map[string]setter{"TipoRelacion": str(&rel.TipoRelacion)}); err != nil {
		return err
	}
	for i, child := range el.ChildElements() {
		cp := fmt.Sprintf("%s/%s[%d]", p, child.Tag, i)
		if !isCfdi(child, "CfdiRelacionado") {
			return structural(cp, "se esperaba cfdi:CfdiRelacionado")
		}
		var r cfdi.CfdiRelacionado
		if err := decodeAttrs(child, cp, map[string]setter{"UUID": str(&r.UUID)}); err != nil {
			return err
		}
		if err := noChildren(child, cp); err != nil {
			return err
		}
		rel.Relacionados = append(rel.Relacionados, r)
	}
	return nil
}

func decodeEmisor(el *etree.Element, p string, e *cfdi.Emisor) error {
	if err := decodeAttrs(el, p, map[string]setter{
		"Rfc":              str(&e.Rfc),
		"Nombre":           str(&e.Nombre),
		"RegimenFiscal":    str(&e.RegimenFiscal),
		"FacAtrAdquirente": str(&e.FacAtrAdquirente),
	}); err != nil {
		return err
	}
	return noChildren(el, p)
}

func decodeReceptor(el *etree.Element, p string, r *cfdi.Receptor) error {
	if err := decodeAttrs(el, p, map[string]setter{
		"Rfc":                     str(&r.Rfc),
		"Nombre":                  str(&r.Nombre),
		"DomicilioFiscalReceptor": str(&r.DomicilioFiscalReceptor),
		"ResidenciaFiscal":        str(&r.ResidenciaFiscal),
		"NumRegIdTrib":            str(&r.NumRegIdTrib),
		"RegimenFiscalReceptor":   str(&r.RegimenFiscalReceptor),
		"UsoCFDI":                 str(&r.UsoCFDI),
	}); err != nil {
		return err
	}
	return noChildren(el, p)
}

func decodeConceptos(el *etree.Element, p string, src *fuente) ([]cfdi.Concepto, error) {
	if err := decodeAttrs(el, p, nil); err != nil {
		return nil, err
	}
	var out []cfdi.Concepto
	for i, child := range el.ChildElements() {
		cp := fmt.Sprintf("%s/%s[%d]", p, child.Tag, i)
		if !isCfdi(child, "Concepto") {
			return nil, structural(cp, "se esperaba cfdi:Concepto")
		}
		var con cfdi.Concepto
		if err := decodeConcepto(child, cp, &con, src); err != nil {
			return nil, err
		}
		out = append(out, con)
	}
	return out, nil
}

func decodeConcepto(el *etree.Element, p string, c *cfdi.Concepto, src *fuente) error {
	if err := decodeAttrs(el, p, map[string]setter{
		"ClaveProdServ":    str(&c.ClaveProdServ),
		"NoIdentificacion": str(&c.NoIdentificacion),
		"Cantidad":         dec(&c.Cantidad),
		"ClaveUnidad":      str(&c.ClaveUnidad),
		"Unidad":           str(&c.Unidad),
		"Descripcion":      str(&c.Descripcion),
		"ValorUnitario":    dec(&c.ValorUnitario),
		"Importe":          dec(&c.Importe),
		"Descuento":        decOpt(&c.Descuento),
		"ObjetoImp":        str(&c.ObjetoImp),
	}); err != nil {
		return err
	}

	seen := map[string]bool{}
	for _, child := range el.ChildElements() {
		cp := p + "/" + child.Tag
		if child.NamespaceURI() != NsCfdi {
			return structural(cp, "elemento fuera del namespace "+NsCfdi)
		}
		switch child.Tag {
		case "Impuestos", "ACuentaTerceros", "ComplementoConcepto":
			if seen[child.Tag] {
				return structural(cp, "cfdi:"+child.Tag+" aparece más de una vez")
			}
			seen[child.Tag] = true
		}

		var err error
		switch child.Tag {
		case "Impuestos":
			c.Impuestos = &cfdi.ImpuestosConcepto{}
			err = decodeImpuestosConcepto(child, cp, c.Impuestos)
		case "ACuentaTerceros":
			a := &cfdi.ACuentaTerceros{}
			err = decodeAttrs(child, cp, map[string]setter{
				"RfcACuentaTerceros":             str(&a.RfcACuentaTerceros),
				"NombreACuentaTerceros":          str(&a.NombreACuentaTerceros),
				"RegimenFiscalACuentaTerceros":   str(&a.RegimenFiscalACuentaTerceros),
				"DomicilioFiscalACuentaTerceros": str(&a.DomicilioFiscalACuentaTerceros),
			})
			if err == nil {
				err = noChildren(child, cp)
			}
			c.ACuentaTerceros = a
		case "InformacionAduanera":
			var ia cfdi.InformacionAduanera
			cp = fmt.Sprintf("%s[%d]", cp, len(c.InformacionAduanera))
			if err = decodeAttrs(child, cp, map[string]setter{"NumeroPedimento": str(&ia.NumeroPedimento)}); err == nil {
				err = noChildren(child, cp)
			}
			c.InformacionAduanera = append(c.InformacionAduanera, ia)
		case "CuentaPredial":
			var cpred cfdi.CuentaPredial
			cp = fmt.Sprintf("%s[%d]", cp, len(c.CuentaPredial))
			if err = decodeAttrs(child, cp, map[string]setter{"Numero": str(&cpred.Numero)}); err == nil {
				err = noChildren(child, cp)
			}
			c.CuentaPredial = append(c.CuentaPredial, cpred)
		case "ComplementoConcepto":
			c.ComplementoConcepto, err = decodeExtensiones(child, cp, false, src)
		default:
			err = structural(cp, "elemento desconocido")
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func decodeImpuestosConcepto(el *etree.Element, p string, imp *cfdi.ImpuestosConcepto) error {
	if err := decodeAttrs(el, p, nil); err != nil {
		return err
	}
	for _, child := range el.ChildElements() {
		cp := p + "/" + child.Tag
		var err error
		switch {
		case isCfdi(child, "Traslados") && imp.Traslados == nil:
			imp.Traslados, err = decodeEntradas(child, cp, "Traslado")
		case isCfdi(child, "Retenciones") && imp.Retenciones == nil:
			imp.Retenciones, err = decodeEntradas(child, cp, "Retencion")
		default:
			err = structural(cp, "elemento desconocido o repetido")
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func decodeResumen(el *etree.Element, p string, imp *cfdi.Impuestos) error {
	if err := decodeAttrs(el, p, map[string]setter{
		"TotalImpuestosRetenidos":   decOpt(&imp.TotalImpuestosRetenidos),
		"TotalImpuestosTrasladados": decOpt(&imp.TotalImpuestosTrasladados),
	}); err != nil {
		return err
	}
	for _, child := range el.ChildElements() {
		cp := p + "/" + child.Tag
		var err error
		switch {
		case isCfdi(child, "Retenciones") && imp.Retenciones == nil:
			err = decodeAttrs(child, cp, nil)
			for i, r := range child.ChildElements() {
				if err != nil {
					break
				}
				rp := fmt.Sprintf("%s/%s[%d]", cp, r.Tag, i)
				if !isCfdi(r, "Retencion") {
					err = structural(rp, "se esperaba cfdi:Retencion")
					break
				}
				var ret cfdi.RetencionResumen
				if err = decodeAttrs(r, rp, map[string]setter{
					"Impuesto": str(&ret.Impuesto),
					"Importe":  dec(&ret.Importe),
				}); err == nil {
					err = noChildren(r, rp)
				}
				imp.Retenciones = append(imp.Retenciones, ret)
			}
		case isCfdi(child, "Traslados") && imp.Traslados == nil:
			imp.Traslados, err = decodeEntradas(child, cp, "Traslado")
		default:
			err = structural(cp, "elemento desconocido o repetido")
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func decodeEntradas(el *etree.Element, p, elemento string) ([]cfdi.ImpuestoEntrada, error) {
	if err := decodeAttrs(el, p, nil); err != nil {
		return nil, err
	}
	out := []cfdi.ImpuestoEntrada{}
	for i, child := range el.ChildElements() {
		cp := fmt.Sprintf("%s/%s[%d]", p, child.Tag, i)
		if !isCfdi(child, elemento) {
			return nil, structural(cp, "se esperaba cfdi:"+elemento)
		}
		var e cfdi.ImpuestoEntrada
		if err := decodeAttrs(child, cp, map[string]setter{
			"Base":       dec(&e.Base),
			"Impuesto":   str(&e.Impuesto),
			"TipoFactor": str(&e.TipoFactor),
			"TasaOCuota": decOpt(&e.TasaOCuota),
			"Importe":    decOpt(&e.Importe),
		}); err != nil {
			return nil, err
		}
		if err := noChildren(child, cp); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}

// decodeExtensiones tfd:TimbreFiscalDigital se tipa solo dentro de Complemento; el resto
// viaja como Opaque con los bytes originales y sus declaraciones de namespace.
func decodeExtensiones(el *etree.Element, p string, complemento bool, src *fuente) ([]cfdi.Extension, error) {
	if err := decodeAttrs(el, p, nil); err != nil {
		return nil, err
	}
	var out []cfdi.Extension
	for i, child := range el.ChildElements() {
		cp := fmt.Sprintf("%s/%s[%d]", p, child.Tag, i)
		if complemento && child.NamespaceURI() == NsTfd && child.Tag == "TimbreFiscalDigital" {
			tfd, err := decodeTimbre(child, cp)
			if err != nil {
				return nil, err
			}
			out = append(out, tfd)
			continue
		}
		raw, err := captureRaw(child, src)
		if err != nil {
			return nil, structural(cp, err.Error())
		}
		out = append(out, cfdi.Opaque{Raw: raw})
	}
	return out, nil
}

func decodeTimbre(el *etree.Element, p string) (*cfdi.TimbreFiscalDigital, error) {
	t := &cfdi.TimbreFiscalDigital{}
	if err := decodeAttrs(el, p, map[string]setter{
		"Version":          str(&t.Version),
		"UUID":             str(&t.UUID),
		"FechaTimbrado":    fecha(&t.FechaTimbrado),
		"RfcProvCertif":    str(&t.RfcProvCertif),
		"Leyenda":          str(&t.Leyenda),
		"SelloCFD":         str(&t.SelloCFD),
		"NoCertificadoSAT": str(&t.NoCertificadoSAT),
		"SelloSAT":         str(&t.SelloSAT),
	}); err != nil {
		return nil, err
	}
	return t, noChildren(el, p)
}

// ── Atributos ────────────────────────────────────────────────────────────────

// setter asigna el valor textual de un atributo a un campo tipado.
type setter func(value string) error

func str(dst *string) setter {
	return func(v string) error { *dst = v; return nil }
}

func dec(dst *decimal.Decimal) setter {
	return func(v string) error {
		d, err := decimal.NewFromString(v)
		if err != nil {
			return fmt.Errorf("%q no es un decimal", v)
		}
		*dst = d
		return nil
	}
}

func decOpt(dst **decimal.Decimal) setter {
	return func(v string) error {
		d, err := decimal.NewFromString(v)
		if err != nil {
			return fmt.Errorf("%q no es un decimal", v)
		}
		*dst = &d
		return nil
	}
}

func fecha(dst *cfdi.FechaHora) setter {
	return func(v string) error {
		f, err := cfdi.ParseFechaHora(v)
		if err != nil {
			return fmt.Errorf("%q no tiene el formato AAAA-MM-DDThh:mm:ss", v)
		}
		*dst = f
		return nil
	}
}

func entero(dst *int) setter {
	return func(v string) error {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%q no es un entero", v)
		}
		*dst = n
		return nil
	}
}

// decodeAttrs asigna cada atributo con su setter. Ignora declaraciones xmlns y
// xsi:schemaLocation; cualquier otro atributo sin setter es un error estructural.
func decodeAttrs(el *etree.Element, p string, setters map[string]setter) error {
	for i := range el.Attr {
		a := &el.Attr[i]
		if a.Space == "xmlns" || (a.Space == "" && a.Key == "xmlns") {
			continue
		}
		if a.NamespaceURI() == NsXsi && a.Key == "schemaLocation" {
			continue
		}
		ap := p + "@" + a.FullKey()
		set, ok := setters[a.Key]
		if !ok || a.Space != "" {
			return structural(ap, "atributo desconocido")
		}
		if err := set(a.Value); err != nil {
			return structural(ap, err.Error())
		}
	}
	return nil
}

func noChildren(el *etree.Element, p string) error {
	if children := el.ChildElements(); len(children) > 0 {
		return structural(p+"/"+children[0].Tag, "elemento desconocido")
	}
	return nil
}

func isCfdi(el *etree.Element, local string) bool {
	return el.Tag == local && el.NamespaceURI() == NsCfdi
}

func structural(path, reason string) error {
	return &cfdi.StructuralError{Path: path, Reason: reason}
}

// ── Extensiones opacas ───────────────────────────────────────────────────────

// fuente conserva el documento en UTF-8 y el rango de bytes de cada elemento, en orden de
// documento, para copiar las extensiones opacas sin volver a serializarlas.
type fuente struct {
	data   []byte
	rangos []rango
	orden  map[*etree.Element]int
}

type rango struct{ ini, fin int64 }

func nuevaFuente(data []byte, root *etree.Element) (*fuente, error) {
	rangos, err := rangosElementos(data)
	if err != nil {
		return nil, err
	}
	orden := map[*etree.Element]int{}
	var walk func(e *etree.Element)
	walk = func(e *etree.Element) {
		orden[e] = len(orden)
		for _, c := range e.ChildElements() {
			walk(c)
		}
	}
	walk(root)
	if len(orden) != len(rangos) {
		return nil, fmt.Errorf("%d elementos leídos, %d delimitados", len(orden), len(rangos))
	}
	return &fuente{data: data, rangos: rangos, orden: orden}, nil
}

// rangosElementos recorre los tokens y registra dónde abre y dónde cierra cada elemento.
// Un elemento vacío <a/> abre y cierra en el mismo token.
func rangosElementos(data []byte) ([]rango, error) {
	d := xml.NewDecoder(bytes.NewReader(data))
	d.CharsetReader = sinConversion
	var out []rango
	var abiertos []int
	for {
		ini := d.InputOffset()
		tok, err := d.RawToken()
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return nil, err
		}
		switch tok.(type) {
		case xml.StartElement:
			abiertos = append(abiertos, len(out))
			out = append(out, rango{ini: ini})
		case xml.EndElement:
			if len(abiertos) == 0 {
				return nil, errors.New("cierre sin apertura")
			}
			out[abiertos[len(abiertos)-1]].fin = d.InputOffset()
			abiertos = abiertos[:len(abiertos)-1]
		}
	}
}

func (f *fuente) original(el *etree.Element) ([]byte, error) {
	i, ok := f.orden[el]
	if !ok {
		return nil, errors.New("elemento fuera del documento")
	}
	r := f.rangos[i]
	if r.ini < 0 || r.fin <= r.ini || r.fin > int64(len(f.data)) {
		return nil, errors.New("elemento sin cierre")
	}
	return f.data[r.ini:r.fin], nil
}

// captureRaw copia los bytes del elemento tal como vienen en el documento. Solo agrega, en la
// etiqueta de apertura, los prefijos que hereda de sus ancestros.
func captureRaw(el *etree.Element, src *fuente) ([]byte, error) {
	orig, err := src.original(el)
	if err != nil {
		return nil, err
	}
	declared := map[string]bool{}
	for _, a := range el.Attr {
		switch {
		case a.Space == "xmlns":
			declared[a.Key] = true
		case a.Space == "" && a.Key == "xmlns":
			declared[""] = true
		}
	}
	var decl bytes.Buffer
	for _, prefix := range usedPrefixes(el) {
		if declared[prefix] {
			continue
		}
		uri := lookupNamespace(el, prefix)
		if uri == "" {
			continue
		}
		decl.WriteString(" xmlns")
		if prefix != "" {
			decl.WriteString(":" + prefix)
		}
		decl.WriteString(`="`)
		if err := xml.EscapeText(&decl, []byte(uri)); err != nil {
			return nil, err
		}
		decl.WriteByte('"')
		declared[prefix] = true
	}

	out := make([]byte, 0, len(orig)+decl.Len())
	if decl.Len() == 0 {
		return append(out, orig...), nil
	}
	n := 1 + bytes.IndexAny(orig[1:], " \t\r\n/>")
	if n == 0 {
		return nil, errors.New("etiqueta de apertura incompleta")
	}
	out = append(out, orig[:n]...)
	out = append(out, decl.Bytes()...)
	return append(out, orig[n:]...), nil
}

func usedPrefixes(el *etree.Element) []string {
	var out []string
	seen := map[string]bool{}
	add := func(p string) {
		if !seen[p] {
			seen[p] = true
			out = append(out, p)
		}
	}
	var walk func(e *etree.Element)
	walk = func(e *etree.Element) {
		add(e.Space)
		for _, a := range e.Attr {
			if a.Space != "" && a.Space != "xmlns" && a.Space != "xml" {
				add(a.Space)
			}
		}
		for _, c := range e.ChildElements() {
			walk(c)
		}
	}
	walk(el)
	return out
}

// lookupNamespace resuelve un prefijo subiendo por los ancestros de el.
func lookupNamespace(el *etree.Element, prefix string) string {
	for e := el; e != nil; e = e.Parent() {
		for _, a := range e.Attr {
			if prefix == "" && a.Space == "" && a.Key == "xmlns" {
				return a.Value
			}
			if prefix != "" && a.Space == "xmlns" && a.Key == prefix {
				return a.Value
			}
		}
	}
	return ""
}

// aUTF8 transcodifica los documentos declarados en otra codificación. Los rangos de las
// extensiones opacas se calculan sobre el resultado.
func aUTF8(data []byte) ([]byte, error) {
	var label string
	d := xml.NewDecoder(bytes.NewReader(data))
	d.CharsetReader = func(l string, in io.Reader) (io.Reader, error) {
		label = l
		return in, nil
	}
	if _, err := d.RawToken(); err != nil || label == "" {
		return data, nil
	}
	r, err := charsetReader(label, bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	out, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("transcodificar %s: %w", label, err)
	}
	return out, nil
}

// sinConversion acepta cualquier declaración de codificación sobre bytes que ya son UTF-8.
func sinConversion(_ string, input io.Reader) (io.Reader, error) {
	return input, nil
}

// charsetReader admite documentos heredados en ISO-8859-1 y Windows-1252.
func charsetReader(label string, input io.Reader) (io.Reader, error) {
	switch strings.ToLower(strings.TrimSpace(label)) {
	case "", "utf-8", "utf8":
		return input, nil
	case "iso-8859-1", "iso8859-1", "latin1", "latin-1":
		return transform.NewReader(input, charmap.ISO8859_1.NewDecoder()), nil
	case "windows-1252", "cp1252":
		return transform.NewReader(input, charmap.Windows1252.NewDecoder()), nil
	}
	return nil, errors.New("codificación no soportada: " + label)
}
