package sat

// =============================================================================
// Versiones y formatos fijos del estándar
// =============================================================================

const (
	VersionCFDI = "4.0"
	VersionTFD  = "1.1"

	// DateTimeLayout formato AAAA-MM-DDThh:mm:ss (hora local del lugar de expedición, sin zona).
	DateTimeLayout = "2006-01-02T15:04:05"
)

// =============================================================================
// c_Moneda (solo las claves con tratamiento especial en las reglas)
// =============================================================================

const (
	MonedaMXN = "MXN" // Peso mexicano
	MonedaXXX = "XXX" // Sin moneda (comprobantes sin operación monetaria)
	MonedaUSD = "USD"
)

// =============================================================================
// c_TipoDeComprobante
// =============================================================================

const (
	TipoComprobanteIngreso  = "I"
	TipoComprobanteEgreso   = "E"
	TipoComprobanteTraslado = "T"
	TipoComprobanteNomina   = "N"
	TipoComprobantePago     = "P"
)

// =============================================================================
// c_Impuesto / c_TipoFactor
// =============================================================================

const (
	ImpuestoISR  = "001"
	ImpuestoIVA  = "002"
	ImpuestoIEPS = "003"

	TipoFactorTasa   = "Tasa"
	TipoFactorCuota  = "Cuota"
	TipoFactorExento = "Exento"
)

// =============================================================================
// c_ObjetoImp
// =============================================================================

const (
	ObjetoImpNo           = "01" // No objeto de impuesto
	ObjetoImpSi           = "02" // Sí objeto de impuesto
	ObjetoImpSiNoDesglose = "03" // Sí objeto del impuesto y no obligado al desglose
	ObjetoImpSiNoCausa    = "04" // Sí objeto del impuesto y no causa impuesto
)

// =============================================================================
// c_MetodoPago / c_Exportacion
// =============================================================================

const (
	MetodoPagoUnaExhibicion = "PUE"
	MetodoPagoParcialidades = "PPD"

	ExportacionNoAplica = "01"
)

// Patrones de forma de las claves de catálogo. El core solo verifica la forma de la
// clave; la existencia en el catálogo oficial es responsabilidad de un servicio externo.
const (
	PatronTipoComprobante = `^[IETNP]$`
	PatronExportacion     = `^0[1-4]$`
	PatronFormaPago       = `^[0-9]{2}$`
	PatronMetodoPago      = `^(PUE|PPD)$`
	PatronCodigoPostal    = `^[0-9]{5}$`
	PatronRegimenFiscal   = `^[0-9]{3}$`
	PatronUsoCFDI         = `^[A-Z]{1,2}[0-9]{2}$`
	PatronPais            = `^[A-Z]{3}$`
	PatronMoneda          = `^[A-Z]{3}$`
	PatronClaveProdServ   = `^[0-9]{8}$`
	PatronClaveUnidad     = `^[A-Z0-9]{1,3}$`
	PatronObjetoImp       = `^0[1-5]$`
	PatronImpuesto        = `^00[1-3]$`
	PatronTipoFactor      = `^(Tasa|Cuota|Exento)$`
	PatronTipoFactorRet   = `^(Tasa|Cuota)$`
	PatronTipoRelacion    = `^0[1-7]$`
	PatronPeriodicidad    = `^0[1-5]$`
	PatronMeses           = `^(0[1-9]|1[0-8])$`
	PatronUUID            = `^[a-fA-F0-9]{8}-[a-fA-F0-9]{4}-[a-fA-F0-9]{4}-[a-fA-F0-9]{4}-[a-fA-F0-9]{12}$`
	PatronConfirmacion    = `^[0-9a-zA-Z]{5}$`
	PatronNoCertificado   = `^[0-9]{20}$`
	PatronBase64          = `^[A-Za-z0-9+/]+={0,2}$`
	PatronPedimento       = `^[0-9]{2}  [0-9]{2}  [0-9]{4}  [0-9]{7}$`
	PatronCuentaPredial   = `^[0-9a-zA-Z]{1,150}$`
	PatronSinPipe         = `^[^|]*$`
)

// Patrones de decimales permitidos por precisión.
const (
	PatronMonetario = `^[0-9]{1,18}(\.[0-9]{1,2})?$`
	PatronImporte   = `^[0-9]{1,18}(\.[0-9]{1,6})?$`
	PatronCantidad  = `^[0-9]{1,18}(\.[0-9]{1,6})?$`
	PatronTasa      = `^[0-9]{1,18}(\.[0-9]{1,6})?$`
	PatronFacAtr    = `^[0-9]{10}$`
)

// AñoMinimoInformacionGlobal primer ejercicio admitido en InformacionGlobal.
const AñoMinimoInformacionGlobal = 2019
