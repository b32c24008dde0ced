package cfdixml

import (
	"bytes"
	"encoding/xml"
	"fmt"

	"github.com/jhoicas/cfdi-generator/internal/domain/cfdi"
)

// Encoder serializa el comprobante en orden del esquema: hijos en el orden fijo de cfdv40.xsd
// y un atributo por campo presente, en orden declarado. Los opcionales ausentes se omiten.
type Encoder struct{}

// NewEncoder crea el codificador.
func NewEncoder() *Encoder {
	return &Encoder{}
}

// Encode genera el XML UTF-8 del comprobante. Es determinista: el mismo árbol produce los mismos bytes.
func (e *Encoder) Encode(c *cfdi.Comprobante) ([]byte, error) {
	if c == nil {
		return nil, fmt.Errorf("cfdixml: comprobante nulo")
	}
	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	w := &writer{buf: &buf, enc: xml.NewEncoder(&buf)}

	rootAttrs := make([]xml.Attr, 0, len(rootNamespaces)+1)
	for _, ns := range rootNamespaces {
		rootAttrs = append(rootAttrs, xml.Attr{Name: xml.Name{Local: "xmlns:" + ns.Prefix}, Value: ns.URI})
	}
	rootAttrs = append(rootAttrs, xml.Attr{Name: xml.Name{Local: "xsi:schemaLocation"}, Value: SchemaLocation})

	w.start(cfdiName("Comprobante"), c.Attrs(), rootAttrs...)

	if c.InformacionGlobal != nil {
		w.leaf(cfdiName("InformacionGlobal"), c.InformacionGlobal.Attrs())
	}
	for i := range c.CfdiRelacionados {
		rel := &c.CfdiRelacionados[i]
		w.start(cfdiName("CfdiRelacionados"), rel.Attrs())
		for j := range rel.Relacionados {
			w.leaf(cfdiName("CfdiRelacionado"), rel.Relacionados[j].Attrs())
		}
		w.end(cfdiName("CfdiRelacionados"))
	}
	w.leaf(cfdiName("Emisor"), c.Emisor.Attrs())
	w.leaf(cfdiName("Receptor"), c.Receptor.Attrs())

	w.start(cfdiName("Conceptos"), nil)
	for i := range c.Conceptos {
		w.concepto(&c.Conceptos[i])
	}
	w.end(cfdiName("Conceptos"))

	if !c.Impuestos.Vacio() {
		imp := &c.Impuestos
		w.start(cfdiName("Impuestos"), imp.Attrs())
		if len(imp.Retenciones) > 0 {
			w.start(cfdiName("Retenciones"), nil)
			for j := range imp.Retenciones {
				w.leaf(cfdiName("Retencion"), imp.Retenciones[j].Attrs())
			}
			w.end(cfdiName("Retenciones"))
		}
		w.entradas("Traslados", "Traslado", imp.Traslados)
		w.end(cfdiName("Impuestos"))
	}

	w.extensiones(cfdiName("Complemento"), c.Complemento)
	w.extensiones(cfdiName("Addenda"), c.Addenda)

	w.end(cfdiName("Comprobante"))
	if w.err == nil {
		w.err = w.enc.Flush()
	}
	if w.err != nil {
		return nil, fmt.Errorf("cfdixml: codificar comprobante: %w", w.err)
	}
	return buf.Bytes(), nil
}

func cfdiName(local string) string { return PrefixCfdi + ":" + local }

// writer escribe tokens con error persistente: después del primer error no escribe nada.
type writer struct {
	buf *bytes.Buffer
	enc *xml.Encoder
	err error
}

func (w *writer) start(name string, attrs []cfdi.Attr, extra ...xml.Attr) {
	if w.err != nil {
		return
	}
	el := xml.StartElement{Name: xml.Name{Local: name}, Attr: extra}
	for _, a := range attrs {
		if !a.Present {
			continue
		}
		el.Attr = append(el.Attr, xml.Attr{Name: xml.Name{Local: a.Name}, Value: a.Value})
	}
	w.err = w.enc.EncodeToken(el)
}

func (w *writer) end(name string) {
	if w.err != nil {
		return
	}
	w.err = w.enc.EncodeToken(xml.EndElement{Name: xml.Name{Local: name}})
}

func (w *writer) leaf(name string, attrs []cfdi.Attr) {
	w.start(name, attrs)
	w.end(name)
}

// raw escribe bytes ya serializados (extensiones opacas) entre tokens.
func (w *writer) raw(b []byte) {
	if w.err != nil {
		return
	}
	if w.err = w.enc.Flush(); w.err != nil {
		return
	}
	w.buf.Write(b)
}

func (w *writer) concepto(c *cfdi.Concepto) {
	w.start(cfdiName("Concepto"), c.Attrs())
	if c.Impuestos != nil {
		w.start(cfdiName("Impuestos"), nil)
		w.entradas("Traslados", "Traslado", c.Impuestos.Traslados)
		w.entradas("Retenciones", "Retencion", c.Impuestos.Retenciones)
		w.end(cfdiName("Impuestos"))
	}
	if c.ACuentaTerceros != nil {
		w.leaf(cfdiName("ACuentaTerceros"), c.ACuentaTerceros.Attrs())
	}
	for k := range c.InformacionAduanera {
		w.leaf(cfdiName("InformacionAduanera"), c.InformacionAduanera[k].Attrs())
	}
	for k := range c.CuentaPredial {
		w.leaf(cfdiName("CuentaPredial"), c.CuentaPredial[k].Attrs())
	}
	w.extensiones(cfdiName("ComplementoConcepto"), c.ComplementoConcepto)
	w.end(cfdiName("Concepto"))
}

func (w *writer) entradas(lista, elemento string, es []cfdi.ImpuestoEntrada) {
	if len(es) == 0 {
		return
	}
	w.start(cfdiName(lista), nil)
	for j := range es {
		w.leaf(cfdiName(elemento), es[j].Attrs())
	}
	w.end(cfdiName(lista))
}

func (w *writer) extensiones(name string, exts []cfdi.Extension) {
	if len(exts) == 0 {
		return
	}
	w.start(name, nil)
	for _, ext := range exts {
		switch e := ext.(type) {
		case *cfdi.TimbreFiscalDigital:
			w.leaf(PrefixTfd+":TimbreFiscalDigital", e.Attrs())
		case cfdi.Opaque:
			w.raw(e.Raw)
		default:
			if w.err == nil {
				w.err = fmt.Errorf("extensión no soportada %T", ext)
			}
		}
	}
	w.end(name)
}
