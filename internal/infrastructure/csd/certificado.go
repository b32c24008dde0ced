// Lectura del Certificado de Sello Digital (CSD) del emisor desde .cer (DER), PEM o .p12/.pfx.

package csd

import (
	"crypto/tls"
	"crypto/x509"
	"encoding/asn1"
	"encoding/base64"
	"encoding/pem"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"golang.org/x/crypto/pkcs12"
)

// ErrNoCoincide el NoCertificado declarado no corresponde al certificado.
var ErrNoCoincide = errors.New("csd: NoCertificado no corresponde al certificado")

// oidUniqueIdentifier x500UniqueIdentifier: el SAT guarda "RFC / CURP" del titular.
var oidUniqueIdentifier = asn1.ObjectIdentifier{2, 5, 4, 45}

// Certificado CSD con los valores que se asientan en el comprobante.
type Certificado struct {
	Leaf          *x509.Certificate
	PrivateKey    any    // nil si solo se cargó el certificado
	NoCertificado string // 20 dígitos
	Base64        string // DER en Base64, valor del atributo Certificado
	Rfc           string // RFC del titular, vacío si el certificado no lo trae
}

// LoadFromP12 carga certificado y llave privada desde un archivo .p12/.pfx.
// El password puede ser vacío si el archivo no está protegido.
func LoadFromP12(path, password string) (*Certificado, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("csd: leer p12: %w", err)
	}
	priv, cert, err := pkcs12.Decode(data, password)
	if err != nil {
		return nil, fmt.Errorf("csd: decodificar p12: %w", err)
	}
	c := FromX509(cert)
	c.PrivateKey = priv
	return c, nil
}

// LoadFromPEM carga el certificado y, si keyPath no es vacío, la llave privada en PEM.
func LoadFromPEM(certPath, keyPath string) (*Certificado, error) {
	if keyPath == "" {
		data, err := os.ReadFile(certPath)
		if err != nil {
			return nil, fmt.Errorf("csd: leer certificado: %w", err)
		}
		return Parse(data)
	}
	pair, err := tls.LoadX509KeyPair(certPath, keyPath)
	if err != nil {
		return nil, fmt.Errorf("csd: cargar PEM: %w", err)
	}
	leaf, err := x509.ParseCertificate(pair.Certificate[0])
	if err != nil {
		return nil, fmt.Errorf("csd: interpretar certificado: %w", err)
	}
	c := FromX509(leaf)
	c.PrivateKey = pair.PrivateKey
	return c, nil
}

// Parse interpreta un certificado en DER (.cer del SAT) o PEM.
func Parse(data []byte) (*Certificado, error) {
	if block, _ := pem.Decode(data); block != nil {
		data = block.Bytes
	}
	cert, err := x509.ParseCertificate(data)
	if err != nil {
		return nil, fmt.Errorf("csd: interpretar certificado: %w", err)
	}
	return FromX509(cert), nil
}

// ParseBase64 interpreta el atributo Certificado del comprobante (DER en Base64).
func ParseBase64(certificadoB64 string) (*Certificado, error) {
	der, err := base64.StdEncoding.DecodeString(certificadoB64)
	if err != nil {
		return nil, fmt.Errorf("csd: Certificado no es Base64: %w", err)
	}
	return Parse(der)
}

// FromX509 deriva NoCertificado, Base64 y RFC del certificado.
func FromX509(cert *x509.Certificate) *Certificado {
	return &Certificado{
		Leaf:          cert,
		NoCertificado: NoCertificado(cert),
		Base64:        base64.StdEncoding.EncodeToString(cert.Raw),
		Rfc:           rfcTitular(cert),
	}
}

// NoCertificado número de serie en el formato del SAT. Los CSD codifican los 20 dígitos como
// bytes ASCII del serial (0x3330... -> "30..."); otros certificados usan el serial decimal.
func NoCertificado(cert *x509.Certificate) string {
	raw := cert.SerialNumber.Bytes()
	ascii := len(raw) > 0
	for _, b := range raw {
		if b < '0' || b > '9' {
			ascii = false
			break
		}
	}
	if ascii {
		return string(raw)
	}
	return cert.SerialNumber.String()
}

// VigenteEn indica si t cae dentro del periodo de validez del certificado.
func (c *Certificado) VigenteEn(t time.Time) bool {
	return !t.Before(c.Leaf.NotBefore) && !t.After(c.Leaf.NotAfter)
}

// Matches verifica que certificadoB64 sea un certificado X.509 válido y que su número de
// serie coincida con noCertificado.
func Matches(noCertificado, certificadoB64 string) error {
	c, err := ParseBase64(certificadoB64)
	if err != nil {
		return err
	}
	if c.NoCertificado != noCertificado {
		return fmt.Errorf("%w: declarado %s, certificado %s", ErrNoCoincide, noCertificado, c.NoCertificado)
	}
	return nil
}

func rfcTitular(cert *x509.Certificate) string {
	for _, name := range cert.Subject.Names {
		if !name.Type.Equal(oidUniqueIdentifier) {
			continue
		}
		if s, ok := name.Value.(string); ok {
			// "RFC / CURP" o solo "RFC"
			return strings.TrimSpace(strings.SplitN(s, "/", 2)[0])
		}
	}
	return ""
}
