// cfdi valida comprobantes CFDI 4.0 en XML contra las reglas condicionales y las invariantes
// aritméticas. Acepta documentos en UTF-8, ISO-8859-1 y Windows-1252.
//
// Uso: go run ./cmd/cfdi [-huella] archivo.xml [archivo.xml ...]
// Sale con código 1 si algún comprobante no se pudo leer o tiene violaciones.
// La tolerancia, el límite de confirmación y las bandas de tipo de cambio se leen de la
// configuración (CFDI_TOLERANCIA, CFDI_LIMITE_CONFIRMACION, CFDI_BANDAS_TIPO_CAMBIO).
package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/jhoicas/cfdi-generator/internal/application/billing"
	"github.com/jhoicas/cfdi-generator/internal/infrastructure/cfdixml"
	"github.com/jhoicas/cfdi-generator/pkg/config"
)

func main() {
	huella := flag.Bool("huella", false, "imprime la huella SHA-256 del XML canónico")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Uso: %s [-huella] archivo.xml [archivo.xml ...]\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()
	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Cargar configuración: %v\n", err)
		os.Exit(1)
	}
	v := billing.ValidadoresDesdeConfig(cfg.CFDI)

	os.Exit(run(flag.Args(), v, *huella, os.Stdout))
}

// run valida cada archivo y devuelve el código de salida.
func run(paths []string, v billing.Validadores, huella bool, out io.Writer) int {
	dec := cfdixml.NewDecoder()
	code := 0
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			fmt.Fprintf(out, "%s: leer: %v\n", path, err)
			code = 1
			continue
		}
		doc, err := dec.Decode(data)
		if err != nil {
			fmt.Fprintf(out, "%s: %v\n", path, err)
			code = 1
			continue
		}
		vs, err := billing.NewBuilder(doc, v).Validar()
		if err != nil {
			fmt.Fprintf(out, "%s: %v\n", path, err)
			code = 1
			continue
		}

		id := doc.Emisor.Rfc
		if doc.Serie != "" || doc.Folio != "" {
			id += " " + doc.Serie + "-" + doc.Folio
		}
		if tfd := doc.Timbre(); tfd != nil {
			id += " UUID " + tfd.UUID
		}
		if len(vs) == 0 {
			fmt.Fprintf(out, "%s: válido (%s)\n", path, id)
		} else {
			fmt.Fprintf(out, "%s: %d violaciones (%s)\n", path, len(vs), id)
			for _, viol := range vs {
				fmt.Fprintf(out, "  - %s\n", viol.Error())
			}
			code = 1
		}
		if huella {
			h, err := cfdixml.Huella(data)
			if err != nil {
				fmt.Fprintf(out, "  huella: %v\n", err)
				code = 1
				continue
			}
			fmt.Fprintf(out, "  huella: %s\n", h)
		}
	}
	return code
}
