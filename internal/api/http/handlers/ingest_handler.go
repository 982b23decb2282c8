package handlers

import (
	"context"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/deskline/helpdesk-service/internal/api/dto"
	"github.com/deskline/helpdesk-service/internal/domain"
	"github.com/deskline/helpdesk-service/internal/service"
	apperrors "github.com/deskline/helpdesk-service/pkg/util/errorutil"
)

// MailboxRunner runs one fetch and ingest cycle against the mailbox.
type MailboxRunner interface {
	Run(ctx context.Context) (*domain.IngestResult, error)
}

// IngestHandler accepts mail pushed by a relay and triggers mailbox runs.
type IngestHandler struct {
	ingest  *service.IngestService
	mailbox MailboxRunner
}

// NewIngestHandler constructs handler. mailbox may be nil when no IMAP
// mailbox is configured.
func NewIngestHandler(ingestService *service.IngestService, mailbox MailboxRunner) *IngestHandler {
	return &IngestHandler{ingest: ingestService, mailbox: mailbox}
}

// Ingest POST /ingest.
func (h *IngestHandler) Ingest(c *fiber.Ctx) error {
	var req dto.IngestRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if len(req.Messages) == 0 {
		return apperrors.NewValidationError("messages required", nil)
	}
	raws := make([][]byte, 0, len(req.Messages))
	for _, m := range req.Messages {
		raws = append(raws, []byte(m))
	}
	channel := domain.IngestChannel{
		Name:            strings.TrimSpace(req.Channel),
		Kind:            req.Kind,
		FileAttachments: true,
	}
	if channel.Name == "" {
		channel.Name = "api"
	}
	if req.FileAttachments != nil {
		channel.FileAttachments = *req.FileAttachments
	}
	result, err := h.ingest.IngestRaw(c.UserContext(), channel, raws)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewIngestResponse(result)})
}

// Fetch POST /ingest/fetch.
func (h *IngestHandler) Fetch(c *fiber.Ctx) error {
	if h.mailbox == nil {
		return apperrors.NewDomainError("MAILBOX_NOT_CONFIGURED", "no mailbox configured", fiber.StatusServiceUnavailable, nil)
	}
	result, err := h.mailbox.Run(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewIngestResponse(result)})
}
