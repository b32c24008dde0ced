package billing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/jhoicas/cfdi-generator/internal/application/dto"
	"github.com/jhoicas/cfdi-generator/internal/domain/cfdi"
	"github.com/jhoicas/cfdi-generator/internal/infrastructure/cfdixml"
	"github.com/jhoicas/cfdi-generator/internal/infrastructure/metrics"
	"github.com/jhoicas/cfdi-generator/pkg/sat"
)

// ErrComprobanteVacio la solicitud no trae comprobante.
var ErrComprobanteVacio = errors.New("billing: comprobante requerido")

// IssueUseCase orquesta validar -> sellar -> timbrar -> codificar con un Builder nuevo por solicitud.
type IssueUseCase struct {
	validadores Validadores
	sealer      sat.Sealer  // nil = el sello debe venir en la solicitud
	key         any         // material de llave opaco para sealer
	stamper     sat.Stamper // nil = sin timbrado
	metrics     *metrics.Metrics
	log         zerolog.Logger
}

// NewIssueUseCase construye el caso de uso. sealer, stamper y m pueden ser nil.
func NewIssueUseCase(
	v Validadores,
	sealer sat.Sealer,
	key any,
	stamper sat.Stamper,
	m *metrics.Metrics,
	log zerolog.Logger,
) *IssueUseCase {
	return &IssueUseCase{
		validadores: v,
		sealer:      sealer,
		key:         key,
		stamper:     stamper,
		metrics:     m,
		log:         log,
	}
}

// Validadores expone los validadores compartidos (lectura).
func (uc *IssueUseCase) Validadores() Validadores { return uc.validadores }

// Validar corre reglas e invariantes sin sellar ni codificar.
func (uc *IssueUseCase) Validar(ctx context.Context, in dto.ComprobanteRequest) (*dto.ValidacionResponse, error) {
	if in.Comprobante == nil {
		return nil, ErrComprobanteVacio
	}
	b, vs, err := uc.preparar(ctx, in.Comprobante, in.DerivarImpuestos)
	if err != nil {
		return nil, err
	}
	return &dto.ValidacionResponse{
		Valido:      len(vs) == 0,
		Estado:      string(b.Estado()),
		Violaciones: noNil(vs),
	}, nil
}

// VistaPrevia valida y codifica sin sello ni timbre. Con violaciones no hay XML.
func (uc *IssueUseCase) VistaPrevia(ctx context.Context, in dto.ComprobanteRequest) ([]byte, cfdi.Violations, error) {
	if in.Comprobante == nil {
		return nil, nil, ErrComprobanteVacio
	}
	b, vs, err := uc.preparar(ctx, in.Comprobante, in.DerivarImpuestos)
	if err != nil {
		return nil, nil, err
	}
	if len(vs) > 0 {
		return nil, vs, vs.Err()
	}
	out, err := b.VistaPrevia()
	return out, nil, err
}

// Emitir valida, sella, timbra (si hay PAC configurado) y codifica el comprobante.
// Con violaciones devuelve la respuesta con la lista y un error que envuelve cfdi.ErrInvalidComprobante.
func (uc *IssueUseCase) Emitir(ctx context.Context, in dto.EmitirRequest) (*dto.EmisionResponse, error) {
	if in.Comprobante == nil {
		return nil, ErrComprobanteVacio
	}
	inicio := time.Now()
	log := uc.log.With().
		Str("emisor", in.Comprobante.Emisor.Rfc).
		Str("serie", in.Comprobante.Serie).
		Str("folio", in.Comprobante.Folio).
		Logger()

	resp, err := uc.emitir(ctx, in, log)
	uc.metrics.ObserveDuracion(time.Since(inicio))
	if err != nil {
		uc.metrics.IncEmision(metrics.ResultadoError)
		log.Warn().Err(err).Msg("emisión rechazada")
		return resp, err
	}
	uc.metrics.IncEmision(metrics.ResultadoEmitido)
	log.Info().Str("uuid", resp.UUID).Str("huella", resp.Huella).Msg("comprobante emitido")
	return resp, nil
}

func (uc *IssueUseCase) emitir(ctx context.Context, in dto.EmitirRequest, log zerolog.Logger) (*dto.EmisionResponse, error) {
	// ═══════════════════════════════════════════════════════════════════════
	// 1. Validar
	// ═══════════════════════════════════════════════════════════════════════
	b, vs, err := uc.preparar(ctx, in.Comprobante, in.DerivarImpuestos)
	if err != nil {
		return nil, err
	}
	if len(vs) > 0 {
		return &dto.EmisionResponse{Estado: string(b.Estado()), Violaciones: vs}, vs.Err()
	}

	// ═══════════════════════════════════════════════════════════════════════
	// 2. Sellar
	// ═══════════════════════════════════════════════════════════════════════
	switch {
	case in.Sello != "" || in.Certificado != "":
		err = b.Sellar(in.Sello, in.Certificado, in.NoCertificado)
	case uc.sealer != nil:
		err = b.SellarCon(ctx, uc.sealer, uc.key)
	default:
		err = cfdi.ErrMissingSeal
	}
	if err != nil {
		return nil, fmt.Errorf("billing: sellar: %w", err)
	}
	log.Debug().Msg("comprobante sellado")

	// ═══════════════════════════════════════════════════════════════════════
	// 3. Timbrar (PAC)
	// ═══════════════════════════════════════════════════════════════════════
	var uuid string
	if uc.stamper != nil {
		sellado, err := b.Emitir()
		if err != nil {
			return nil, err
		}
		res, err := uc.stamper.Stamp(ctx, sellado)
		if err != nil {
			return nil, fmt.Errorf("billing: timbrar: %w", err)
		}
		if err := b.Timbrar(res); err != nil {
			return nil, fmt.Errorf("billing: timbrar: %w", err)
		}
		uuid = res.UUID
		log.Debug().Str("uuid", uuid).Str("pac", res.RfcProvCertif).Msg("comprobante timbrado")
	}

	// ═══════════════════════════════════════════════════════════════════════
	// 4. Codificar
	// ═══════════════════════════════════════════════════════════════════════
	out, err := b.Emitir()
	if err != nil {
		return nil, err
	}
	huella, err := cfdixml.Huella(out)
	if err != nil {
		return nil, fmt.Errorf("billing: huella: %w", err)
	}

	return &dto.EmisionResponse{
		Estado:        string(b.Estado()),
		UUID:          uuid,
		NoCertificado: b.Documento().NoCertificado,
		Huella:        huella,
		XML:           string(out),
	}, nil
}

// preparar crea el Builder, deriva impuestos si se pide y valida.
func (uc *IssueUseCase) preparar(ctx context.Context, doc *cfdi.Comprobante, derivar bool) (*Builder, cfdi.Violations, error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	b := NewBuilder(doc, uc.validadores)
	if derivar {
		if err := b.DerivarImpuestos(); err != nil {
			return nil, nil, err
		}
	}
	vs, err := b.Validar()
	if err != nil {
		return nil, nil, err
	}
	uc.metrics.ObserveValidacion(contarPorTipo(vs))
	uc.log.Debug().
		Str("emisor", doc.Emisor.Rfc).
		Int("violaciones", len(vs)).
		Msg("comprobante validado")
	return b, vs, nil
}

func contarPorTipo(vs cfdi.Violations) map[string]int {
	m := make(map[string]int, len(vs))
	for _, v := range vs {
		m[string(v.Kind)]++
	}
	return m
}

func noNil(vs cfdi.Violations) cfdi.Violations {
	if vs == nil {
		return cfdi.Violations{}
	}
	return vs
}
