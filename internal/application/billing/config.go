package billing

import (
	"github.com/jhoicas/cfdi-generator/internal/domain/cfdi"
	"github.com/jhoicas/cfdi-generator/pkg/config"
	"github.com/jhoicas/cfdi-generator/pkg/sat"
)

// ValidadoresDesdeConfig arma los validadores con la tolerancia, el límite de confirmación,
// las bandas de tipo de cambio y las señales externas configuradas.
func ValidadoresDesdeConfig(c config.CFDIConfig) Validadores {
	opts := cfdi.DefaultRuleOptions()
	opts.ComercioExterior = c.ComercioExterior
	opts.GlobalExclusiva = c.GlobalExclusiva
	if c.LimiteConfirmacion.IsPositive() {
		opts.LimiteConfirmacion = c.LimiteConfirmacion
	}
	if len(c.BandasTipoCambio) > 0 {
		opts.BandasTipoCambio = make(map[string]cfdi.Banda, len(c.BandasTipoCambio))
		for moneda, b := range c.BandasTipoCambio {
			opts.BandasTipoCambio[moneda] = cfdi.Banda{Min: b.Min, Max: b.Max}
		}
	}
	return NewValidadores(sat.NewPolicy(c.Tolerancia), opts)
}
