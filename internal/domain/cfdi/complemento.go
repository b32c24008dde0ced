package cfdi

// Extension contenido de Complemento, ComplementoConcepto o Addenda.
// Las variantes conocidas son tipadas; el resto viaja como Opaque sin modificarse.
type Extension interface {
	extension()
}

// Opaque extensión no modelada: XML crudo de un elemento completo, con sus declaraciones de namespace.
type Opaque struct {
	Raw []byte
}

func (Opaque) extension() {}

// TimbreFiscalDigital timbre 1.1 que agrega el PAC. El core nunca lo fabrica.
type TimbreFiscalDigital struct {
	Version          string
	UUID             string
	FechaTimbrado    FechaHora
	RfcProvCertif    string
	Leyenda          string
	SelloCFD         string
	NoCertificadoSAT string
	SelloSAT         string
}

func (*TimbreFiscalDigital) extension() {}

// Timbre devuelve el TimbreFiscalDigital del Complemento, o nil si el comprobante no está timbrado.
func (c *Comprobante) Timbre() *TimbreFiscalDigital {
	for _, ext := range c.Complemento {
		if tfd, ok := ext.(*TimbreFiscalDigital); ok {
			return tfd
		}
	}
	return nil
}
