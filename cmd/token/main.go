// token emite un Bearer Token para la API con el RFC del emisor y su rol.
//
// Uso: go run ./cmd/token -rfc EKU9003173C9 [-rol emisor|consulta] [-sub integracion-erp]
// Firma con JWT_SECRET; expiración e issuer salen de JWT_EXPIRATION_MINUTES y JWT_ISSUER.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/jhoicas/cfdi-generator/pkg/config"
	"github.com/jhoicas/cfdi-generator/pkg/jwt"
)

func main() {
	rfc := flag.String("rfc", "", "RFC del emisor autorizado")
	rol := flag.String("rol", jwt.RoleEmisor, "rol: emisor o consulta")
	sub := flag.String("sub", "cli", "subject del token")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Cargar configuración: %v\n", err)
		os.Exit(1)
	}
	tok, err := jwt.Generate(cfg.JWT.Secret, *sub, *rfc, *rol, cfg.JWT.Issuer, cfg.JWT.Expiration)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Generar token: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(tok)
}
