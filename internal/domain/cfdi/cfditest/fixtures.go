// Package cfditest provee comprobantes de prueba consistentes para los tests de los demás paquetes.
package cfditest

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/cfdi-generator/internal/domain/cfdi"
	"github.com/jhoicas/cfdi-generator/pkg/sat"
)

// UUIDRelacionado UUID válido para CfdiRelacionado.
const UUIDRelacionado = "3fa85f64-5717-4562-b3fc-2c963f66afa6"

// ComprobanteValido ingreso en MXN con tres conceptos (100.00, 250.50 y 33.33), IVA 16% en los
// dos primeros y el tercero no objeto de impuesto. Cumple todas las reglas e invariantes.
//
//	SubTotal 383.83, traslados 56.08, Total 439.91
func ComprobanteValido() *cfdi.Comprobante {
	c := cfdi.New()
	c.Serie = "A"
	c.Folio = "123"
	c.Fecha = cfdi.NewFechaHora(time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC))
	c.FormaPago = "01"
	c.CondicionesDePago = "Contado"
	c.SubTotal = decimal.RequireFromString("383.83")
	c.Moneda = sat.MonedaMXN
	c.Total = decimal.RequireFromString("439.91")
	c.TipoDeComprobante = sat.TipoComprobanteIngreso
	c.Exportacion = sat.ExportacionNoAplica
	c.MetodoPago = sat.MetodoPagoUnaExhibicion
	c.LugarExpedicion = "20000"

	c.Emisor = cfdi.Emisor{Rfc: "EKU9003173C9", Nombre: "ESCUELA KEMPER URGATE", RegimenFiscal: "601"}
	c.Receptor = cfdi.Receptor{
		Rfc:                     "URE180429TM6",
		Nombre:                  "UNIVERSIDAD ROBOTICA ESPAÑOLA",
		DomicilioFiscalReceptor: "86991",
		RegimenFiscalReceptor:   "601",
		UsoCFDI:                 "G01",
	}

	c.Conceptos = []cfdi.Concepto{
		conceptoIVA("84111506", "Servicios de facturación", "1", "100.00", "100.00", "16.00"),
		conceptoIVA("50211503", "Cigarros", "2", "125.25", "250.50", "40.08"),
		{
			ClaveProdServ: "01010101",
			Cantidad:      decimal.RequireFromString("1"),
			ClaveUnidad:   "H87",
			Unidad:        "Pieza",
			Descripcion:   "Donativo",
			ValorUnitario: decimal.RequireFromString("33.33"),
			Importe:       decimal.RequireFromString("33.33"),
			ObjetoImp:     sat.ObjetoImpNo,
		},
	}

	c.Impuestos = cfdi.Impuestos{
		TotalImpuestosTrasladados: cfdi.MustDec("56.08"),
		Traslados: []cfdi.ImpuestoEntrada{{
			Base:       decimal.RequireFromString("350.50"),
			Impuesto:   sat.ImpuestoIVA,
			TipoFactor: sat.TipoFactorTasa,
			TasaOCuota: cfdi.MustDec("0.160000"),
			Importe:    cfdi.MustDec("56.08"),
		}},
	}
	return c
}

// ComprobanteCompleto ComprobanteValido con nodos opcionales poblados: relacionados, terceros,
// información aduanera, cuenta predial y una retención de ISR.
//
//	SubTotal 383.83, traslados 56.08, retenidos 10.00, Total 429.91
func ComprobanteCompleto() *cfdi.Comprobante {
	c := ComprobanteValido()
	c.CfdiRelacionados = []cfdi.CfdiRelacionados{{
		TipoRelacion: "04",
		Relacionados: []cfdi.CfdiRelacionado{{UUID: UUIDRelacionado}},
	}}
	c.Emisor.FacAtrAdquirente = "0123456789"

	con := &c.Conceptos[0]
	con.NoIdentificacion = "SKU-001"
	con.Impuestos.Retenciones = []cfdi.ImpuestoEntrada{{
		Base:       decimal.RequireFromString("100.00"),
		Impuesto:   sat.ImpuestoISR,
		TipoFactor: sat.TipoFactorTasa,
		TasaOCuota: cfdi.MustDec("0.100000"),
		Importe:    cfdi.MustDec("10.00"),
	}}
	con.ACuentaTerceros = &cfdi.ACuentaTerceros{
		RfcACuentaTerceros:             "JUFA7608212V6",
		NombreACuentaTerceros:          "ADRIANA JUAREZ FERNANDEZ",
		RegimenFiscalACuentaTerceros:   "612",
		DomicilioFiscalACuentaTerceros: "29133",
	}
	c.Conceptos[1].InformacionAduanera = []cfdi.InformacionAduanera{{NumeroPedimento: "21  47  3807  8003832"}}
	c.Conceptos[2].CuentaPredial = []cfdi.CuentaPredial{{Numero: "15956011002"}}

	c.Impuestos.TotalImpuestosRetenidos = cfdi.MustDec("10.00")
	c.Impuestos.Retenciones = []cfdi.RetencionResumen{{Impuesto: sat.ImpuestoISR, Importe: decimal.RequireFromString("10.00")}}
	c.Total = decimal.RequireFromString("429.91")
	return c
}

// Timbre timbre consistente con el sello dado.
func Timbre(sello string) *cfdi.TimbreFiscalDigital {
	return &cfdi.TimbreFiscalDigital{
		Version:          sat.VersionTFD,
		UUID:             "ad662d33-6934-459c-a128-bdf0393e0f44",
		FechaTimbrado:    cfdi.NewFechaHora(time.Date(2024, 5, 1, 10, 5, 0, 0, time.UTC)),
		RfcProvCertif:    "SAT970701NN3",
		SelloCFD:         sello,
		NoCertificadoSAT: "30001000000500003456",
		SelloSAT:         "c2VsbG9TQVQ=",
	}
}

func conceptoIVA(clave, descripcion, cantidad, valorUnitario, importe, iva string) cfdi.Concepto {
	return cfdi.Concepto{
		ClaveProdServ: clave,
		Cantidad:      decimal.RequireFromString(cantidad),
		ClaveUnidad:   "E48",
		Unidad:        "Servicio",
		Descripcion:   descripcion,
		ValorUnitario: decimal.RequireFromString(valorUnitario),
		Importe:       decimal.RequireFromString(importe),
		ObjetoImp:     sat.ObjetoImpSi,
		Impuestos: &cfdi.ImpuestosConcepto{
			Traslados: []cfdi.ImpuestoEntrada{{
				Base:       decimal.RequireFromString(importe),
				Impuesto:   sat.ImpuestoIVA,
				TipoFactor: sat.TipoFactorTasa,
				TasaOCuota: cfdi.MustDec("0.160000"),
				Importe:    cfdi.MustDec(iva),
			}},
		},
	}
}
