package cfdi

import "github.com/shopspring/decimal"

// Clone copia profunda del comprobante. El resultado no comparte slices ni punteros con c,
// de modo que una instancia congelada no cambia aunque el original se siga editando.
func (c *Comprobante) Clone() *Comprobante {
	if c == nil {
		return nil
	}
	out := *c
	out.Descuento = cloneDec(c.Descuento)
	out.TipoCambio = cloneDec(c.TipoCambio)

	if c.InformacionGlobal != nil {
		g := *c.InformacionGlobal
		out.InformacionGlobal = &g
	}
	if c.CfdiRelacionados != nil {
		out.CfdiRelacionados = make([]CfdiRelacionados, len(c.CfdiRelacionados))
		for i, r := range c.CfdiRelacionados {
			r.Relacionados = append([]CfdiRelacionado(nil), r.Relacionados...)
			out.CfdiRelacionados[i] = r
		}
	}
	if c.Conceptos != nil {
		out.Conceptos = make([]Concepto, len(c.Conceptos))
		for i := range c.Conceptos {
			out.Conceptos[i] = c.Conceptos[i].clone()
		}
	}
	out.Impuestos = c.Impuestos.clone()
	out.Complemento = cloneExtensions(c.Complemento)
	out.Addenda = cloneExtensions(c.Addenda)
	return &out
}

func (c Concepto) clone() Concepto {
	c.Descuento = cloneDec(c.Descuento)
	if c.Impuestos != nil {
		imp := ImpuestosConcepto{
			Traslados:   cloneEntradas(c.Impuestos.Traslados),
			Retenciones: cloneEntradas(c.Impuestos.Retenciones),
		}
		c.Impuestos = &imp
	}
	if c.ACuentaTerceros != nil {
		a := *c.ACuentaTerceros
		c.ACuentaTerceros = &a
	}
	if c.InformacionAduanera != nil {
		c.InformacionAduanera = append([]InformacionAduanera(nil), c.InformacionAduanera...)
	}
	if c.CuentaPredial != nil {
		c.CuentaPredial = append([]CuentaPredial(nil), c.CuentaPredial...)
	}
	c.ComplementoConcepto = cloneExtensions(c.ComplementoConcepto)
	return c
}

func (i Impuestos) clone() Impuestos {
	i.TotalImpuestosRetenidos = cloneDec(i.TotalImpuestosRetenidos)
	i.TotalImpuestosTrasladados = cloneDec(i.TotalImpuestosTrasladados)
	if i.Retenciones != nil {
		i.Retenciones = append([]RetencionResumen(nil), i.Retenciones...)
	}
	i.Traslados = cloneEntradas(i.Traslados)
	return i
}

func cloneEntradas(in []ImpuestoEntrada) []ImpuestoEntrada {
	if in == nil {
		return nil
	}
	out := make([]ImpuestoEntrada, len(in))
	for i, e := range in {
		e.TasaOCuota = cloneDec(e.TasaOCuota)
		e.Importe = cloneDec(e.Importe)
		out[i] = e
	}
	return out
}

func cloneExtensions(in []Extension) []Extension {
	if in == nil {
		return nil
	}
	out := make([]Extension, len(in))
	for i, ext := range in {
		switch e := ext.(type) {
		case *TimbreFiscalDigital:
			t := *e
			out[i] = &t
		case Opaque:
			out[i] = Opaque{Raw: append([]byte(nil), e.Raw...)}
		default:
			out[i] = ext
		}
	}
	return out
}

func cloneDec(d *decimal.Decimal) *decimal.Decimal {
	if d == nil {
		return nil
	}
	v := *d
	return &v
}
