package billing

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/jhoicas/cfdi-generator/internal/application/dto"
	"github.com/jhoicas/cfdi-generator/internal/domain/cfdi"
)

// DefaultBatchLimit validaciones simultáneas cuando no se configura CFDI_BATCH_LIMIT.
const DefaultBatchLimit = 4

// ValidateBatch valida docs de forma concurrente con a lo más limit goroutines.
// Cada documento tiene su propio Builder; el resultado i corresponde a docs[i].
// Un documento nil o un contexto cancelado abortan el lote.
func ValidateBatch(ctx context.Context, v Validadores, docs []*cfdi.Comprobante, limit int) ([]cfdi.Violations, error) {
	if limit <= 0 {
		limit = DefaultBatchLimit
	}
	for i, doc := range docs {
		if doc == nil {
			return nil, fmt.Errorf("%w: posición %d", ErrComprobanteVacio, i)
		}
	}
	out := make([]cfdi.Violations, len(docs))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for i, doc := range docs {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			vs, err := NewBuilder(doc, v).Validar()
			if err != nil {
				return err
			}
			out[i] = vs
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// ValidarLote valida el lote y arma la respuesta con el mismo orden de entrada.
func (uc *IssueUseCase) ValidarLote(ctx context.Context, docs []*cfdi.Comprobante, limit int) (*dto.LoteResponse, error) {
	res, err := ValidateBatch(ctx, uc.validadores, docs, limit)
	if err != nil {
		return nil, err
	}
	resp := &dto.LoteResponse{Resultados: make([]dto.ValidacionResponse, len(res))}
	for i, vs := range res {
		uc.metrics.ObserveValidacion(contarPorTipo(vs))
		estado := EstadoValidated
		if len(vs) > 0 {
			estado = EstadoDraft
			resp.Invalidos++
		} else {
			resp.Validos++
		}
		resp.Resultados[i] = dto.ValidacionResponse{
			Valido:      len(vs) == 0,
			Estado:      string(estado),
			Violaciones: noNil(vs),
		}
	}
	return resp, nil
}
