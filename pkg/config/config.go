package config

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// Config agrupa la configuración de la aplicación (lectura vía Viper desde env y opcionalmente archivo).
type Config struct {
	App  AppConfig
	JWT  JWTConfig
	HTTP HTTPConfig
	CFDI CFDIConfig
	CSD  CSDConfig
}

// AppConfig configuración general de la aplicación.
type AppConfig struct {
	Env      string // development, staging, production
	Name     string
	LogLevel string
}

// JWTConfig configuración de JWT.
type JWTConfig struct {
	Secret     string
	Expiration int // minutos
	Issuer     string
}

// HTTPConfig configuración del servidor HTTP.
type HTTPConfig struct {
	Host string
	Port int
}

// Addr devuelve la dirección de escucha (host:port).
func (c HTTPConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Banda rango permitido del tipo de cambio de una moneda.
type Banda struct {
	Min decimal.Decimal
	Max decimal.Decimal
}

// CFDIConfig parámetros del validador y del timbrado.
type CFDIConfig struct {
	Tolerancia         decimal.Decimal  // épsilon de comparación aritmética (0 = exacto)
	LimiteConfirmacion decimal.Decimal  // Total a partir del cual se exige Confirmacion
	BandasTipoCambio   map[string]Banda // "USD:15.5-23.9,EUR:17-26.5"
	ComercioExterior   bool
	GlobalExclusiva    bool   // InformacionGlobal y CfdiRelacionados mutuamente excluyentes
	PacMode            string // "dev" = timbrado simulado, "off" = sin timbrado
	PacRFC             string // RfcProvCertif del timbrado simulado
	BatchLimit         int
}

// CSDConfig certificado de sello digital del emisor.
type CSDConfig struct {
	CertPath string // .cer, .pem o .p12
	KeyPath  string // llave PEM si CertPath es solo el certificado
	Password string // contraseña del .p12
}

// Load lee la configuración desde variables de entorno (y opcionalmente desde archivo).
// Las env vars tienen prioridad. Nombres esperados: APP_ENV, JWT_SECRET, CFDI_TOLERANCIA, etc.
func Load() (*Config, error) {
	v := viper.New()

	// Opcional: archivo de configuración (.env o config.env)
	v.SetConfigName(".env")
	v.SetConfigType("env")
	v.AddConfigPath(".")
	_ = v.ReadInConfig() // ignoramos error si no existe

	v.SetConfigName("config")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	_ = v.ReadInConfig()

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	tolerancia, err := getDecimal(v, "CFDI_TOLERANCIA", decimal.Zero)
	if err != nil {
		return nil, err
	}
	limite, err := getDecimal(v, "CFDI_LIMITE_CONFIRMACION", decimal.NewFromInt(2_000_000_000))
	if err != nil {
		return nil, err
	}
	bandas, err := ParseBandas(getString(v, "CFDI_BANDAS_TIPO_CAMBIO", ""))
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		App: AppConfig{
			Env:      getString(v, "APP_ENV", "development"),
			Name:     getString(v, "APP_NAME", "cfdi-generator"),
			LogLevel: getString(v, "LOG_LEVEL", "info"),
		},
		JWT: JWTConfig{
			Secret:     getString(v, "JWT_SECRET", ""),
			Expiration: getInt(v, "JWT_EXPIRATION_MINUTES", 60),
			Issuer:     getString(v, "JWT_ISSUER", "cfdi-generator"),
		},
		HTTP: HTTPConfig{
			Host: getString(v, "HTTP_HOST", "0.0.0.0"),
			Port: getInt(v, "HTTP_PORT", 8080),
		},
		CFDI: CFDIConfig{
			Tolerancia:         tolerancia,
			LimiteConfirmacion: limite,
			BandasTipoCambio:   bandas,
			ComercioExterior:   getBool(v, "CFDI_COMERCIO_EXTERIOR", false),
			GlobalExclusiva:    getBool(v, "CFDI_GLOBAL_EXCLUSIVA", false),
			PacMode:            getString(v, "CFDI_PAC_MODE", "dev"),
			PacRFC:             getString(v, "CFDI_PAC_RFC", "SAT970701NN3"),
			BatchLimit:         getInt(v, "CFDI_BATCH_LIMIT", 4),
		},
		CSD: CSDConfig{
			CertPath: getString(v, "CSD_CERT_PATH", ""),
			KeyPath:  getString(v, "CSD_KEY_PATH", ""),
			Password: getString(v, "CSD_PASSWORD", ""),
		},
	}

	return cfg, nil
}

// ParseBandas interpreta "USD:15.5-23.9,EUR:17-26.5". Cadena vacía = sin bandas.
func ParseBandas(s string) (map[string]Banda, error) {
	out := map[string]Banda{}
	for _, item := range strings.Split(s, ",") {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		moneda, rango, ok := strings.Cut(item, ":")
		if !ok {
			return nil, fmt.Errorf("config: banda %q sin moneda", item)
		}
		lo, hi, ok := strings.Cut(rango, "-")
		if !ok {
			return nil, fmt.Errorf("config: banda %q sin rango min-max", item)
		}
		min, err := decimal.NewFromString(strings.TrimSpace(lo))
		if err != nil {
			return nil, fmt.Errorf("config: banda %q: %w", item, err)
		}
		max, err := decimal.NewFromString(strings.TrimSpace(hi))
		if err != nil {
			return nil, fmt.Errorf("config: banda %q: %w", item, err)
		}
		if max.LessThan(min) {
			return nil, fmt.Errorf("config: banda %q con máximo menor al mínimo", item)
		}
		out[strings.ToUpper(strings.TrimSpace(moneda))] = Banda{Min: min, Max: max}
	}
	return out, nil
}

func getString(v *viper.Viper, key, def string) string {
	if v.IsSet(key) {
		return v.GetString(key)
	}
	return def
}

func getInt(v *viper.Viper, key string, def int) int {
	if v.IsSet(key) {
		switch v.Get(key).(type) {
		case int:
			return v.GetInt(key)
		case string:
			n, err := strconv.Atoi(v.GetString(key))
			if err != nil {
				return def
			}
			return n
		default:
			return v.GetInt(key)
		}
	}
	return def
}

func getBool(v *viper.Viper, key string, def bool) bool {
	if v.IsSet(key) {
		return v.GetBool(key)
	}
	return def
}

func getDecimal(v *viper.Viper, key string, def decimal.Decimal) (decimal.Decimal, error) {
	if !v.IsSet(key) || v.GetString(key) == "" {
		return def, nil
	}
	d, err := decimal.NewFromString(v.GetString(key))
	if err != nil {
		return decimal.Zero, fmt.Errorf("config: %s: %w", key, err)
	}
	return d, nil
}
