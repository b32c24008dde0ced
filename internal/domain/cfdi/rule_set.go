package cfdi

import (
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/cfdi-generator/pkg/sat"
)

// ReglasCFDI40 conjunto de reglas condicionales y de forma del Anexo 20 versión 4.0.
// Solo verifica la forma de las claves de catálogo, no su existencia en el catálogo oficial.
func ReglasCFDI40() []Rule {
	var rs []Rule
	rs = append(rs, reglasComprobante()...)
	rs = append(rs, reglasInformacionGlobal()...)
	rs = append(rs, reglasRelacionados()...)
	rs = append(rs, reglasEmisor()...)
	rs = append(rs, reglasReceptor()...)
	rs = append(rs, reglasConcepto()...)
	rs = append(rs, reglasTraslado(KindTrasladoConcepto)...)
	rs = append(rs, reglasRetencionConcepto()...)
	rs = append(rs, reglasNodosConcepto()...)
	rs = append(rs, reglasResumen()...)
	rs = append(rs, reglasTraslado(KindTrasladoResumen)...)
	rs = append(rs, reglasTimbre()...)
	return rs
}

func req(scope NodeKind, field, msg string) Rule {
	return Rule{Scope: scope, Field: field, Constraint: Required(), Message: msg}
}

func pat(scope NodeKind, field, expr, msg string) Rule {
	return Rule{Scope: scope, Field: field, Constraint: Pattern(expr), Message: msg}
}

func lng(scope NodeKind, field string, min, max int, msg string) Rule {
	return Rule{Scope: scope, Field: field, Constraint: Length(min, max), Message: msg}
}

func rng(scope NodeKind, field, min, max string, minExclusive bool, msg string) Rule {
	return Rule{Scope: scope, Field: field, Constraint: Range(min, max, minExclusive), Message: msg}
}

func cuando(r Rule, p Predicate) Rule {
	r.When = p
	return r
}

// texto libre: longitud y sin "|"
func textoLibre(scope NodeKind, field string, min, max int) []Rule {
	return []Rule{
		lng(scope, field, min, max, field+" debe tener entre "+strconv.Itoa(min)+" y "+strconv.Itoa(max)+" caracteres"),
		pat(scope, field, sat.PatronSinPipe, field+" no debe contener el carácter |"),
	}
}

// ── Comprobante ──────────────────────────────────────────────────────────────

func reglasComprobante() []Rule {
	k := KindComprobante
	rs := []Rule{
		req(k, "Version", "Version es requerido"),
		pat(k, "Version", `^4\.0$`, "Version debe ser 4.0"),
	}
	rs = append(rs, textoLibre(k, "Serie", 1, 25)...)
	rs = append(rs, textoLibre(k, "Folio", 1, 40)...)
	rs = append(rs,
		req(k, "Fecha", "Fecha es requerido"),
		pat(k, "FormaPago", sat.PatronFormaPago, "FormaPago no tiene la forma de c_FormaPago"),
		cuando(Rule{Scope: k, Field: "FormaPago", Constraint: Forbidden(),
			Message: "FormaPago no debe existir en comprobantes de traslado o pago"},
			Igual("TipoDeComprobante", sat.TipoComprobanteTraslado, sat.TipoComprobantePago)),
		pat(k, "NoCertificado", sat.PatronNoCertificado, "NoCertificado debe tener 20 dígitos"),
		pat(k, "Certificado", sat.PatronBase64, "Certificado debe estar en Base64"),
		pat(k, "Sello", sat.PatronBase64, "Sello debe estar en Base64"),
	)
	rs = append(rs, textoLibre(k, "CondicionesDePago", 1, 1000)...)
	rs = append(rs,
		pat(k, "SubTotal", sat.PatronMonetario, "SubTotal debe ser no negativo con máximo 2 decimales"),
		pat(k, "Descuento", sat.PatronMonetario, "Descuento debe ser no negativo con máximo 2 decimales"),
		req(k, "Moneda", "Moneda es requerido"),
		pat(k, "Moneda", sat.PatronMoneda, "Moneda no tiene la forma de c_Moneda"),

		cuando(Rule{Scope: k, Field: "TipoCambio", Constraint: Required(),
			Message: "TipoCambio es requerido cuando Moneda es distinta de MXN y XXX"},
			Distinto("Moneda", sat.MonedaMXN, sat.MonedaXXX)),
		cuando(Rule{Scope: k, Field: "TipoCambio", Constraint: Forbidden(),
			Message: "TipoCambio no debe existir cuando Moneda es MXN"},
			Igual("Moneda", sat.MonedaMXN)),
		cuando(Rule{Scope: k, Field: "TipoCambio", Constraint: Forbidden(),
			Message: "TipoCambio no debe existir cuando Moneda es XXX"},
			Igual("Moneda", sat.MonedaXXX)),
		pat(k, "TipoCambio", sat.PatronTasa, "TipoCambio admite máximo 6 decimales"),
		rng(k, "TipoCambio", "0", "", true, "TipoCambio debe ser mayor que cero"),

		pat(k, "Total", sat.PatronMonetario, "Total debe ser no negativo con máximo 2 decimales"),
		req(k, "TipoDeComprobante", "TipoDeComprobante es requerido"),
		pat(k, "TipoDeComprobante", sat.PatronTipoComprobante, "TipoDeComprobante no tiene la forma de c_TipoDeComprobante"),
		req(k, "Exportacion", "Exportacion es requerido"),
		pat(k, "Exportacion", sat.PatronExportacion, "Exportacion no tiene la forma de c_Exportacion"),
		pat(k, "MetodoPago", sat.PatronMetodoPago, "MetodoPago debe ser PUE o PPD"),
		cuando(Rule{Scope: k, Field: "MetodoPago", Constraint: Forbidden(),
			Message: "MetodoPago no debe existir en comprobantes de traslado o pago"},
			Igual("TipoDeComprobante", sat.TipoComprobanteTraslado, sat.TipoComprobantePago)),
		req(k, "LugarExpedicion", "LugarExpedicion es requerido"),
		pat(k, "LugarExpedicion", sat.PatronCodigoPostal, "LugarExpedicion debe ser un código postal de 5 dígitos"),

		cuando(Rule{Scope: k, Field: "Confirmacion", Constraint: Required(),
			Message: "Confirmacion es requerida cuando el total o el tipo de cambio exceden los límites"},
			requiereConfirmacion),
		pat(k, "Confirmacion", sat.PatronConfirmacion, "Confirmacion debe tener 5 caracteres alfanuméricos"),

		req(k, "Conceptos", "el comprobante debe tener al menos un concepto"),
		cuando(Rule{Scope: k, Field: "InformacionGlobal", Constraint: Forbidden(),
			Message: "InformacionGlobal no debe existir junto con CfdiRelacionados"},
			func(n Node, o RuleOptions) bool { return o.GlobalExclusiva && n.Has("CfdiRelacionados") }),
	)
	return rs
}

// requiereConfirmacion Total mayor al límite o TipoCambio fuera de la banda de su moneda.
func requiereConfirmacion(n Node, o RuleOptions) bool {
	if total, err := decimal.NewFromString(n.Value("Total")); err == nil && total.GreaterThan(o.LimiteConfirmacion) {
		return true
	}
	if !n.Has("TipoCambio") {
		return false
	}
	banda, ok := o.BandasTipoCambio[n.Value("Moneda")]
	if !ok {
		return false
	}
	tc, err := decimal.NewFromString(n.Value("TipoCambio"))
	if err != nil {
		return false
	}
	return tc.LessThan(banda.Min) || tc.GreaterThan(banda.Max)
}

func reglasInformacionGlobal() []Rule {
	k := KindInformacionGlobal
	return []Rule{
		req(k, "Periodicidad", "Periodicidad es requerido"),
		pat(k, "Periodicidad", sat.PatronPeriodicidad, "Periodicidad no tiene la forma de c_Periodicidad"),
		req(k, "Meses", "Meses es requerido"),
		pat(k, "Meses", sat.PatronMeses, "Meses no tiene la forma de c_Meses"),
		req(k, "Año", "Año es requerido"),
		rng(k, "Año", strconv.Itoa(sat.AñoMinimoInformacionGlobal), "", false, "Año debe ser mayor o igual a 2019"),
	}
}

func reglasRelacionados() []Rule {
	return []Rule{
		req(KindCfdiRelacionados, "TipoRelacion", "TipoRelacion es requerido"),
		pat(KindCfdiRelacionados, "TipoRelacion", sat.PatronTipoRelacion, "TipoRelacion no tiene la forma de c_TipoRelacion"),
		req(KindCfdiRelacionados, "CfdiRelacionado", "CfdiRelacionados debe contener al menos un CfdiRelacionado"),
		req(KindCfdiRelacionado, "UUID", "UUID es requerido"),
		pat(KindCfdiRelacionado, "UUID", sat.PatronUUID, "UUID debe tener la forma 8-4-4-4-12 hexadecimal"),
	}
}

// ── Emisor / Receptor ────────────────────────────────────────────────────────

func reglasEmisor() []Rule {
	k := KindEmisor
	rs := []Rule{
		req(k, "Rfc", "Rfc del emisor es requerido"),
		pat(k, "Rfc", sat.PatronRFC, "Rfc del emisor no tiene la forma de un RFC"),
		req(k, "Nombre", "Nombre del emisor es requerido"),
	}
	rs = append(rs, textoLibre(k, "Nombre", 1, 300)...)
	return append(rs,
		req(k, "RegimenFiscal", "RegimenFiscal es requerido"),
		pat(k, "RegimenFiscal", sat.PatronRegimenFiscal, "RegimenFiscal no tiene la forma de c_RegimenFiscal"),
		pat(k, "FacAtrAdquirente", sat.PatronFacAtr, "FacAtrAdquirente debe tener 10 dígitos"),
	)
}

func reglasReceptor() []Rule {
	k := KindReceptor
	rs := []Rule{
		req(k, "Rfc", "Rfc del receptor es requerido"),
		pat(k, "Rfc", sat.PatronRFC, "Rfc del receptor no tiene la forma de un RFC"),
	}
	rs = append(rs, textoLibre(k, "Nombre", 1, 300)...)
	return append(rs,
		req(k, "DomicilioFiscalReceptor", "DomicilioFiscalReceptor es requerido"),
		pat(k, "DomicilioFiscalReceptor", sat.PatronCodigoPostal, "DomicilioFiscalReceptor debe ser un código postal de 5 dígitos"),

		cuando(Rule{Scope: k, Field: "ResidenciaFiscal", Constraint: Required(),
			Message: "ResidenciaFiscal es requerida cuando existe NumRegIdTrib"},
			Presente("NumRegIdTrib")),
		cuando(Rule{Scope: k, Field: "ResidenciaFiscal", Constraint: Forbidden(),
			Message: "ResidenciaFiscal solo aplica con el RFC genérico extranjero XEXX010101000"},
			Distinto("Rfc", sat.RFCExtranjero)),
		pat(k, "ResidenciaFiscal", sat.PatronPais, "ResidenciaFiscal no tiene la forma de c_Pais"),

		cuando(Rule{Scope: k, Field: "NumRegIdTrib", Constraint: Required(),
			Message: "NumRegIdTrib es requerido con ResidenciaFiscal o complemento de comercio exterior"},
			Alguno(Presente("ResidenciaFiscal"), func(_ Node, o RuleOptions) bool { return o.ComercioExterior })),
		lng(k, "NumRegIdTrib", 1, 40, "NumRegIdTrib debe tener entre 1 y 40 caracteres"),

		req(k, "RegimenFiscalReceptor", "RegimenFiscalReceptor es requerido"),
		pat(k, "RegimenFiscalReceptor", sat.PatronRegimenFiscal, "RegimenFiscalReceptor no tiene la forma de c_RegimenFiscal"),
		req(k, "UsoCFDI", "UsoCFDI es requerido"),
		pat(k, "UsoCFDI", sat.PatronUsoCFDI, "UsoCFDI no tiene la forma de c_UsoCFDI"),
	)
}

// ── Conceptos ────────────────────────────────────────────────────────────────

func reglasConcepto() []Rule {
	k := KindConcepto
	rs := []Rule{
		req(k, "ClaveProdServ", "ClaveProdServ es requerido"),
		pat(k, "ClaveProdServ", sat.PatronClaveProdServ, "ClaveProdServ debe tener 8 dígitos"),
	}
	rs = append(rs, textoLibre(k, "NoIdentificacion", 1, 100)...)
	rs = append(rs,
		pat(k, "Cantidad", sat.PatronCantidad, "Cantidad debe ser no negativa con máximo 6 decimales"),
		rng(k, "Cantidad", "0", "", true, "Cantidad debe ser mayor que cero"),
		req(k, "ClaveUnidad", "ClaveUnidad es requerido"),
		pat(k, "ClaveUnidad", sat.PatronClaveUnidad, "ClaveUnidad no tiene la forma de c_ClaveUnidad"),
	)
	rs = append(rs, textoLibre(k, "Unidad", 1, 20)...)
	rs = append(rs, req(k, "Descripcion", "Descripcion es requerido"))
	rs = append(rs, textoLibre(k, "Descripcion", 1, 1000)...)
	return append(rs,
		pat(k, "ValorUnitario", sat.PatronImporte, "ValorUnitario debe ser no negativo con máximo 6 decimales"),
		pat(k, "Importe", sat.PatronImporte, "Importe debe ser no negativo con máximo 6 decimales"),
		pat(k, "Descuento", sat.PatronImporte, "Descuento debe ser no negativo con máximo 6 decimales"),
		req(k, "ObjetoImp", "ObjetoImp es requerido"),
		pat(k, "ObjetoImp", sat.PatronObjetoImp, "ObjetoImp no tiene la forma de c_ObjetoImp"),
		cuando(Rule{Scope: k, Field: "Impuestos", Constraint: Required(),
			Message: "Impuestos es requerido cuando ObjetoImp es 02"},
			Igual("ObjetoImp", sat.ObjetoImpSi)),
		cuando(Rule{Scope: k, Field: "Impuestos", Constraint: Forbidden(),
			Message: "Impuestos no debe existir cuando ObjetoImp es 01"},
			Igual("ObjetoImp", sat.ObjetoImpNo)),
	)
}

// reglasTraslado reglas de un traslado, por concepto o en el resumen.
func reglasTraslado(k NodeKind) []Rule {
	tasaOCuota := Igual("TipoFactor", sat.TipoFactorTasa, sat.TipoFactorCuota)
	exento := Igual("TipoFactor", sat.TipoFactorExento)
	return []Rule{
		pat(k, "Base", sat.PatronImporte, "Base debe ser no negativa con máximo 6 decimales"),
		rng(k, "Base", "0", "", true, "Base debe ser mayor que cero"),
		req(k, "Impuesto", "Impuesto es requerido"),
		pat(k, "Impuesto", sat.PatronImpuesto, "Impuesto no tiene la forma de c_Impuesto"),
		req(k, "TipoFactor", "TipoFactor es requerido"),
		pat(k, "TipoFactor", sat.PatronTipoFactor, "TipoFactor debe ser Tasa, Cuota o Exento"),
		cuando(Rule{Scope: k, Field: "TasaOCuota", Constraint: Required(),
			Message: "TasaOCuota es requerida cuando TipoFactor es Tasa o Cuota"}, tasaOCuota),
		cuando(Rule{Scope: k, Field: "TasaOCuota", Constraint: Forbidden(),
			Message: "TasaOCuota no debe existir cuando TipoFactor es Exento"}, exento),
		pat(k, "TasaOCuota", sat.PatronTasa, "TasaOCuota admite máximo 6 decimales"),
		cuando(Rule{Scope: k, Field: "Importe", Constraint: Required(),
			Message: "Importe es requerido cuando TipoFactor es Tasa o Cuota"}, tasaOCuota),
		cuando(Rule{Scope: k, Field: "Importe", Constraint: Forbidden(),
			Message: "Importe no debe existir cuando TipoFactor es Exento"}, exento),
		pat(k, "Importe", sat.PatronImporte, "Importe debe ser no negativo con máximo 6 decimales"),
	}
}

func reglasRetencionConcepto() []Rule {
	k := KindRetencionConcepto
	return []Rule{
		pat(k, "Base", sat.PatronImporte, "Base debe ser no negativa con máximo 6 decimales"),
		rng(k, "Base", "0", "", true, "Base debe ser mayor que cero"),
		req(k, "Impuesto", "Impuesto es requerido"),
		pat(k, "Impuesto", sat.PatronImpuesto, "Impuesto no tiene la forma de c_Impuesto"),
		req(k, "TipoFactor", "TipoFactor es requerido"),
		pat(k, "TipoFactor", sat.PatronTipoFactorRet, "TipoFactor de una retención debe ser Tasa o Cuota"),
		req(k, "TasaOCuota", "TasaOCuota es requerida en retenciones"),
		pat(k, "TasaOCuota", sat.PatronTasa, "TasaOCuota admite máximo 6 decimales"),
		req(k, "Importe", "Importe es requerido en retenciones"),
		pat(k, "Importe", sat.PatronImporte, "Importe debe ser no negativo con máximo 6 decimales"),
	}
}

func reglasNodosConcepto() []Rule {
	k := KindACuentaTerceros
	rs := []Rule{
		req(k, "RfcACuentaTerceros", "RfcACuentaTerceros es requerido"),
		pat(k, "RfcACuentaTerceros", sat.PatronRFC, "RfcACuentaTerceros no tiene la forma de un RFC"),
		req(k, "NombreACuentaTerceros", "NombreACuentaTerceros es requerido"),
	}
	rs = append(rs, textoLibre(k, "NombreACuentaTerceros", 1, 254)...)
	return append(rs,
		req(k, "RegimenFiscalACuentaTerceros", "RegimenFiscalACuentaTerceros es requerido"),
		pat(k, "RegimenFiscalACuentaTerceros", sat.PatronRegimenFiscal, "RegimenFiscalACuentaTerceros no tiene la forma de c_RegimenFiscal"),
		req(k, "DomicilioFiscalACuentaTerceros", "DomicilioFiscalACuentaTerceros es requerido"),
		pat(k, "DomicilioFiscalACuentaTerceros", sat.PatronCodigoPostal, "DomicilioFiscalACuentaTerceros debe ser un código postal de 5 dígitos"),

		req(KindInformacionAduanera, "NumeroPedimento", "NumeroPedimento es requerido"),
		pat(KindInformacionAduanera, "NumeroPedimento", sat.PatronPedimento, "NumeroPedimento no tiene la forma AA  AA  AAAA  AAAAAAA"),
		req(KindCuentaPredial, "Numero", "Numero de cuenta predial es requerido"),
		pat(KindCuentaPredial, "Numero", sat.PatronCuentaPredial, "Numero de cuenta predial debe ser alfanumérico de hasta 150 caracteres"),
	)
}

// ── Resumen de impuestos ─────────────────────────────────────────────────────

func reglasResumen() []Rule {
	k := KindImpuestos
	return []Rule{
		cuando(Rule{Scope: k, Field: "TotalImpuestosRetenidos", Constraint: Required(),
			Message: "TotalImpuestosRetenidos es requerido cuando existen retenciones"},
			Presente("Retenciones")),
		pat(k, "TotalImpuestosRetenidos", sat.PatronMonetario, "TotalImpuestosRetenidos debe ser no negativo con máximo 2 decimales"),
		cuando(Rule{Scope: k, Field: "TotalImpuestosTrasladados", Constraint: Required(),
			Message: "TotalImpuestosTrasladados es requerido cuando existen traslados no exentos"},
			Presente(TrasladosConImporte)),
		pat(k, "TotalImpuestosTrasladados", sat.PatronMonetario, "TotalImpuestosTrasladados debe ser no negativo con máximo 2 decimales"),

		req(KindRetencionResumen, "Impuesto", "Impuesto es requerido"),
		pat(KindRetencionResumen, "Impuesto", sat.PatronImpuesto, "Impuesto no tiene la forma de c_Impuesto"),
		pat(KindRetencionResumen, "Importe", sat.PatronImporte, "Importe debe ser no negativo con máximo 6 decimales"),
	}
}

// ── TimbreFiscalDigital ──────────────────────────────────────────────────────

func reglasTimbre() []Rule {
	k := KindTimbreFiscalDigital
	return []Rule{
		req(k, "Version", "Version del timbre es requerida"),
		pat(k, "Version", `^1\.1$`, "Version del timbre debe ser 1.1"),
		req(k, "UUID", "UUID del timbre es requerido"),
		pat(k, "UUID", sat.PatronUUID, "UUID del timbre debe tener la forma 8-4-4-4-12 hexadecimal"),
		req(k, "FechaTimbrado", "FechaTimbrado es requerida"),
		req(k, "RfcProvCertif", "RfcProvCertif es requerido"),
		pat(k, "RfcProvCertif", sat.PatronRFC, "RfcProvCertif no tiene la forma de un RFC"),
		lng(k, "Leyenda", 12, 150, "Leyenda debe tener entre 12 y 150 caracteres"),
		req(k, "SelloCFD", "SelloCFD es requerido"),
		pat(k, "SelloCFD", sat.PatronBase64, "SelloCFD debe estar en Base64"),
		req(k, "NoCertificadoSAT", "NoCertificadoSAT es requerido"),
		pat(k, "NoCertificadoSAT", sat.PatronNoCertificado, "NoCertificadoSAT debe tener 20 dígitos"),
		req(k, "SelloSAT", "SelloSAT es requerido"),
		pat(k, "SelloSAT", sat.PatronBase64, "SelloSAT debe estar en Base64"),
	}
}
