// csdcheck diagnostica el Certificado de Sello Digital configurado (CSD_CERT_PATH,
// CSD_KEY_PATH, CSD_PASSWORD): lo carga, muestra NoCertificado, RFC del titular y vigencia.
//
// Uso: go run ./cmd/csdcheck
// Con CSD_CERT_PATH terminado en .p12/.pfx se usa CSD_PASSWORD; con .pem y CSD_KEY_PATH se
// carga también la llave; cualquier otro archivo se lee como certificado DER (.cer).
package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jhoicas/cfdi-generator/internal/infrastructure/csd"
	"github.com/jhoicas/cfdi-generator/pkg/config"
	"github.com/jhoicas/cfdi-generator/pkg/sat"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Cargar configuración: %v\n", err)
		os.Exit(1)
	}
	os.Exit(diagnosticar(cfg.CSD, time.Now(), os.Stdout))
}

func diagnosticar(c config.CSDConfig, ahora time.Time, out io.Writer) int {
	fmt.Fprintln(out, "DIAGNÓSTICO DE CSD")
	fmt.Fprintln(out, "------------------")
	if c.CertPath == "" {
		fmt.Fprintln(out, "CSD_CERT_PATH no está configurado")
		return 1
	}
	fmt.Fprintf(out, "Archivo: %s\n", c.CertPath)

	cert, err := cargar(c)
	if err != nil {
		fmt.Fprintf(out, "ERROR: %v\n", err)
		return 1
	}

	fmt.Fprintf(out, "NoCertificado: %s\n", cert.NoCertificado)
	if cert.Rfc == "" {
		fmt.Fprintln(out, "RFC titular:   (no incluido en el certificado)")
	} else {
		fmt.Fprintf(out, "RFC titular:   %s\n", cert.Rfc)
	}
	fmt.Fprintf(out, "Vigencia:      %s a %s\n",
		cert.Leaf.NotBefore.Format(time.DateOnly), cert.Leaf.NotAfter.Format(time.DateOnly))
	fmt.Fprintf(out, "Llave privada: %t\n", cert.PrivateKey != nil)

	code := 0
	if len(cert.NoCertificado) != 20 {
		fmt.Fprintln(out, "ADVERTENCIA: NoCertificado no tiene 20 dígitos")
		code = 1
	}
	if cert.Rfc != "" {
		if err := sat.ValidateRFC(cert.Rfc); err != nil {
			fmt.Fprintf(out, "ADVERTENCIA: %v\n", err)
			code = 1
		}
	}
	if !cert.VigenteEn(ahora) {
		fmt.Fprintln(out, "ERROR: el certificado no está vigente")
		return 1
	}
	if code == 0 {
		fmt.Fprintln(out, "OK: el certificado puede usarse para sellar")
	}
	return code
}

func cargar(c config.CSDConfig) (*csd.Certificado, error) {
	switch strings.ToLower(filepath.Ext(c.CertPath)) {
	case ".p12", ".pfx":
		return csd.LoadFromP12(c.CertPath, c.Password)
	case ".pem":
		return csd.LoadFromPEM(c.CertPath, c.KeyPath)
	}
	data, err := os.ReadFile(c.CertPath)
	if err != nil {
		return nil, fmt.Errorf("csd: leer certificado: %w", err)
	}
	return csd.Parse(data)
}
