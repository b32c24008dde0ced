// Package cfdixml codifica y decodifica el CFDI 4.0 en su XML canónico.
// El codec no valida reglas de negocio: Encode acepta cualquier árbol y Decode solo mapea
// elementos y atributos a campos.
package cfdixml

// Namespaces del Anexo 20 y del timbre fiscal digital.
const (
	NsCfdi = "http://www.sat.gob.mx/cfd/4"
	NsTfd  = "http://www.sat.gob.mx/TimbreFiscalDigital"
	NsXs   = "http://www.w3.org/2001/XMLSchema"
	NsXsi  = "http://www.w3.org/2001/XMLSchema-instance"

	PrefixCfdi = "cfdi"
	PrefixTfd  = "tfd"

	// SchemaLocation pares namespace/XSD de cfdv40 y TimbreFiscalDigitalv11.
	SchemaLocation = NsCfdi + " http://www.sat.gob.mx/sitio_internet/cfd/4/cfdv40.xsd " +
		NsTfd + " http://www.sat.gob.mx/sitio_internet/cfd/TimbreFiscalDigital/TimbreFiscalDigitalv11.xsd"
)

type namespace struct {
	Prefix string
	URI    string
}

// rootNamespaces declaraciones estáticas del nodo raíz. Se emiten siempre, aunque el
// comprobante no lleve timbre.
var rootNamespaces = [...]namespace{
	{Prefix: PrefixCfdi, URI: NsCfdi},
	{Prefix: "xs", URI: NsXs},
	{Prefix: "xsi", URI: NsXsi},
	{Prefix: PrefixTfd, URI: NsTfd},
}
