package http

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/jhoicas/cfdi-generator/internal/application/billing"
	"github.com/jhoicas/cfdi-generator/internal/application/dto"
	"github.com/jhoicas/cfdi-generator/internal/domain/cfdi"
	"github.com/jhoicas/cfdi-generator/internal/infrastructure/cfdixml"
	"github.com/jhoicas/cfdi-generator/internal/infrastructure/csd"
)

const contentTypeXML = "application/xml; charset=utf-8"

// CfdiHandler maneja validación, vista previa, emisión y decodificación de comprobantes.
type CfdiHandler struct {
	uc         *billing.IssueUseCase
	decoder    *cfdixml.Decoder
	batchLimit int
	log        zerolog.Logger
}

// NewCfdiHandler construye el handler.
func NewCfdiHandler(uc *billing.IssueUseCase, batchLimit int, log zerolog.Logger) *CfdiHandler {
	return &CfdiHandler{
		uc:         uc,
		decoder:    cfdixml.NewDecoder(),
		batchLimit: batchLimit,
		log:        log,
	}
}

// Validar corre reglas e invariantes.
// POST /api/cfdi/validar
func (h *CfdiHandler) Validar(c *fiber.Ctx) error {
	var in dto.ComprobanteRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c, err)
	}
	resp, err := h.uc.Validar(c.UserContext(), in)
	if err != nil {
		return h.responderError(c, err)
	}
	return c.JSON(resp)
}

// VistaPrevia devuelve el XML sin sello ni timbre de un comprobante válido.
// POST /api/cfdi/vista-previa
func (h *CfdiHandler) VistaPrevia(c *fiber.Ctx) error {
	var in dto.ComprobanteRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c, err)
	}
	out, vs, err := h.uc.VistaPrevia(c.UserContext(), in)
	if len(vs) > 0 {
		return violaciones(c, vs)
	}
	if err != nil {
		return h.responderError(c, err)
	}
	c.Set(fiber.HeaderContentType, contentTypeXML)
	return c.Send(out)
}

// Emitir valida, sella, timbra y codifica. El Emisor.Rfc debe ser el RFC del token.
// POST /api/cfdi/emitir
func (h *CfdiHandler) Emitir(c *fiber.Ctx) error {
	var in dto.EmitirRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c, err)
	}
	if in.Comprobante != nil && !strings.EqualFold(in.Comprobante.Emisor.Rfc, GetRfc(c)) {
		return c.Status(fiber.StatusForbidden).JSON(dto.ErrorResponse{
			Code:    "RFC_MISMATCH",
			Message: "el RFC del emisor no corresponde al token",
		})
	}
	resp, err := h.uc.Emitir(c.UserContext(), in)
	if err != nil {
		if resp != nil && len(resp.Violaciones) > 0 {
			return c.Status(fiber.StatusUnprocessableEntity).JSON(resp)
		}
		return h.responderError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(resp)
}

// Decodificar lee un XML de CFDI 4.0 y devuelve el árbol con sus violaciones.
// POST /api/cfdi/decodificar (body XML)
func (h *CfdiHandler) Decodificar(c *fiber.Ctx) error {
	doc, err := h.decoder.Decode(c.Body())
	if err != nil {
		return h.responderError(c, err)
	}
	v, err := h.uc.Validar(c.UserContext(), dto.ComprobanteRequest{Comprobante: doc})
	if err != nil {
		return h.responderError(c, err)
	}
	return c.JSON(dto.DecodificarResponse{
		Comprobante: doc,
		Timbre:      doc.Timbre(),
		Violaciones: v.Violaciones,
	})
}

// ValidarLote valida varios comprobantes en paralelo.
// POST /api/cfdi/validar-lote
func (h *CfdiHandler) ValidarLote(c *fiber.Ctx) error {
	var in dto.LoteRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c, err)
	}
	if len(in.Comprobantes) == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "comprobantes requeridos"})
	}
	resp, err := h.uc.ValidarLote(c.UserContext(), in.Comprobantes, h.batchLimit)
	if err != nil {
		return h.responderError(c, err)
	}
	return c.JSON(resp)
}

// Ejemplo comprobante de muestra validado y sin sellar.
// GET /example
func (h *CfdiHandler) Ejemplo(c *fiber.Ctx) error {
	out, err := h.uc.Ejemplo(c.UserContext())
	if err != nil {
		return h.responderError(c, err)
	}
	c.Set(fiber.HeaderContentType, contentTypeXML)
	return c.Send(out)
}

func (h *CfdiHandler) responderError(c *fiber.Ctx, err error) error {
	var se *cfdi.StructuralError
	switch {
	case errors.Is(err, billing.ErrComprobanteVacio):
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: err.Error()})
	case errors.As(err, &se):
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "STRUCTURAL", Message: se.Error()})
	case errors.Is(err, cfdi.ErrMissingSeal):
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "MISSING_SEAL", Message: err.Error()})
	case errors.Is(err, cfdi.ErrStateTransition):
		return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{Code: "STATE_TRANSITION", Message: err.Error()})
	case errors.Is(err, csd.ErrNoCoincide), errors.Is(err, cfdi.ErrInvalidComprobante):
		return c.Status(fiber.StatusUnprocessableEntity).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: err.Error()})
	case errors.Is(err, cfdi.ErrStampMismatch):
		return c.Status(fiber.StatusBadGateway).JSON(dto.ErrorResponse{Code: "STAMP_MISMATCH", Message: err.Error()})
	}
	h.log.Error().Err(err).
		Str("ruta", c.Path()).
		Interface("request_id", c.Locals("requestid")).
		Msg("error no controlado")
	return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Code: "INTERNAL", Message: err.Error()})
}

func badBody(c *fiber.Ctx, err error) error {
	return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido: " + err.Error()})
}

func violaciones(c *fiber.Ctx, vs cfdi.Violations) error {
	return c.Status(fiber.StatusUnprocessableEntity).JSON(dto.ValidacionResponse{
		Valido:      false,
		Estado:      string(billing.EstadoDraft),
		Violaciones: vs,
	})
}
