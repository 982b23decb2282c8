package handlers

import (
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/deskline/helpdesk-service/internal/api/dto"
	"github.com/deskline/helpdesk-service/internal/auth"
	"github.com/deskline/helpdesk-service/internal/domain"
	"github.com/deskline/helpdesk-service/internal/service"
	apperrors "github.com/deskline/helpdesk-service/pkg/util/errorutil"
)

// TicketsHandler exposes the ticket workflow to agents.
type TicketsHandler struct {
	service  *service.TicketService
	location *time.Location
}

// NewTicketsHandler constructs handler. Talk display dates are rendered in loc.
func NewTicketsHandler(ticketService *service.TicketService, loc *time.Location) *TicketsHandler {
	if loc == nil {
		loc = time.UTC
	}
	return &TicketsHandler{service: ticketService, location: loc}
}

// CreateTicket POST /tickets.
func (h *TicketsHandler) CreateTicket(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	var req dto.CreateTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	priority, err := parsePriority(req.Priority)
	if err != nil {
		return err
	}
	ticket, err := h.service.CreateTicket(c.UserContext(), user, service.TicketCreateInput{
		Title:      req.Title,
		Message:    req.Message,
		Priority:   priority,
		EmailFrom:  req.EmailFrom,
		EmailCC:    req.EmailCC,
		Kind:       req.Kind,
		PartyID:    req.PartyID,
		ContactID:  req.ContactID,
		EmployeeID: req.EmployeeID,
		Date:       req.Date,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.NewTicketSummary(ticket)})
}

// ListTickets GET /tickets.
func (h *TicketsHandler) ListTickets(c *fiber.Ctx) error {
	filter, err := parseTicketQuery(c)
	if err != nil {
		return err
	}
	tickets, err := h.service.ListTickets(c.UserContext(), filter)
	if err != nil {
		return err
	}
	items := make([]dto.TicketSummary, 0, len(tickets))
	for i := range tickets {
		items = append(items, dto.NewTicketSummary(&tickets[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// GetTicket GET /tickets/:id.
func (h *TicketsHandler) GetTicket(c *fiber.Ctx) error {
	detail, err := h.service.GetTicket(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": h.ticketDetail(detail)})
}

// UpdateTicket PATCH /tickets/:id.
func (h *TicketsHandler) UpdateTicket(c *fiber.Ctx) error {
	var req dto.UpdateTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	input := service.TicketUpdateInput{
		Title:      req.Title,
		Date:       req.Date,
		Message:    req.Message,
		EmailFrom:  req.EmailFrom,
		EmailCC:    req.EmailCC,
		EmployeeID: req.EmployeeID,
		ContactID:  req.ContactID,
	}
	if req.Priority != nil {
		priority, err := parsePriority(*req.Priority)
		if err != nil {
			return err
		}
		input.Priority = &priority
	}
	ticket, err := h.service.UpdateTicket(c.UserContext(), c.Params("id"), input)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewTicketSummary(ticket)})
}

// DeleteTicket DELETE /tickets/:id.
func (h *TicketsHandler) DeleteTicket(c *fiber.Ctx) error {
	if err := h.service.DeleteTicket(c.UserContext(), c.Params("id")); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}

// CopyTicket POST /tickets/:id/copy.
func (h *TicketsHandler) CopyTicket(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	ticket, err := h.service.CopyTicket(c.UserContext(), user, c.Params("id"))
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.NewTicketSummary(ticket)})
}

// Transition returns the handler for POST /tickets/:id/<action>.
func (h *TicketsHandler) Transition(action domain.Action) fiber.Handler {
	return func(c *fiber.Ctx) error {
		user, err := currentUser(c)
		if err != nil {
			return err
		}
		ticket, err := h.service.Transition(c.UserContext(), user, c.Params("id"), action)
		if err != nil {
			return err
		}
		return c.JSON(fiber.Map{"data": dto.NewTicketSummary(ticket)})
	}
}

// AddReply POST /tickets/:id/reply.
func (h *TicketsHandler) AddReply(c *fiber.Ctx) error {
	ticket, err := h.service.AddReply(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{
		"ticket":  dto.NewTicketSummary(ticket),
		"message": ticket.Message,
	}})
}

// TalkNote POST /tickets/:id/note.
func (h *TicketsHandler) TalkNote(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	talk, err := h.service.TalkNote(c.UserContext(), user, c.Params("id"))
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": h.talkResponse(talk)})
}

// TalkEmail POST /tickets/:id/email.
func (h *TicketsHandler) TalkEmail(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	talk, err := h.service.TalkEmail(c.UserContext(), user, c.Params("id"))
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": h.talkResponse(talk)})
}

// SetParty POST /tickets/:id/party.
func (h *TicketsHandler) SetParty(c *fiber.Ctx) error {
	var req dto.SetPartyRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	ticket, err := h.service.SetParty(c.UserContext(), c.Params("id"), req.PartyID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewTicketSummary(ticket)})
}

// SetUnread POST /tickets/:id/read.
func (h *TicketsHandler) SetUnread(c *fiber.Ctx) error {
	var req dto.SetUnreadRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return apperrors.NewValidationError("invalid payload", nil)
		}
	}
	ticket, err := h.service.SetUnread(c.UserContext(), c.Params("id"), req.Unread)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewTicketSummary(ticket)})
}

// ListTalks GET /tickets/:id/talks.
func (h *TicketsHandler) ListTalks(c *fiber.Ctx) error {
	talks, err := h.service.ListTalks(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewTalkResponses(talks, h.location)})
}

// ListLogs GET /tickets/:id/logs.
func (h *TicketsHandler) ListLogs(c *fiber.Ctx) error {
	logs, err := h.service.ListLogs(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewLogResponses(logs)})
}

// UploadAttachment POST /tickets/:id/attachments. Accepts JSON or a
// multipart form with a "file" field.
func (h *TicketsHandler) UploadAttachment(c *fiber.Ctx) error {
	input, err := parseUpload(c)
	if err != nil {
		return err
	}
	attachment, err := h.service.UploadAttachment(c.UserContext(), c.Params("id"), input)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.NewAttachmentResponse(attachment)})
}

// StageAttachment POST /tickets/:id/attachments/:attachmentId/stage.
func (h *TicketsHandler) StageAttachment(c *fiber.Ctx) error {
	var req dto.StageAttachmentRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return apperrors.NewValidationError("invalid payload", nil)
		}
	}
	staged := true
	if req.Staged != nil {
		staged = *req.Staged
	}
	attachment, err := h.service.StageAttachment(c.UserContext(), c.Params("id"), c.Params("attachmentId"), staged)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewAttachmentResponse(attachment)})
}

func (h *TicketsHandler) ticketDetail(detail *service.TicketDetail) dto.TicketDetailResponse {
	return dto.TicketDetailResponse{
		TicketSummary:  dto.NewTicketSummary(detail.Ticket),
		Message:        detail.Ticket.Message,
		Talks:          dto.NewTalkResponses(detail.Talks, h.location),
		Logs:           dto.NewLogResponses(detail.Logs),
		Attachments:    dto.NewAttachmentResponses(detail.Attachments),
		AllowedActions: detail.AllowedActions,
	}
}

func (h *TicketsHandler) talkResponse(talk *domain.Talk) dto.TalkResponse {
	return dto.NewTalkResponses([]domain.Talk{*talk}, h.location)[0]
}

func currentUser(c *fiber.Ctx) (*domain.User, error) {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.User == nil {
		return nil, apperrors.NewUnauthorized("user required")
	}
	return principal.User, nil
}

func parsePriority(value string) (domain.TicketPriority, error) {
	priority, err := domain.ParseTicketPriority(value)
	if err != nil {
		return 0, apperrors.NewValidationError("invalid priority", map[string]any{"priority": value})
	}
	return priority, nil
}

func parseTicketQuery(c *fiber.Ctx) (service.TicketListFilter, error) {
	filter := service.TicketListFilter{
		Kind:       strings.ToLower(strings.TrimSpace(c.Query("kind"))),
		SearchTerm: c.Query("q"),
	}
	if stateStr := c.Query("state"); stateStr != "" {
		for _, part := range strings.Split(stateStr, ",") {
			filter.States = append(filter.States, domain.TicketState(strings.TrimSpace(part)))
		}
	}
	if employee := c.Query("employee_id"); employee != "" {
		filter.EmployeeID = &employee
	}
	if unreadStr := c.Query("unread"); unreadStr != "" {
		unread, err := strconv.ParseBool(unreadStr)
		if err != nil {
			return filter, apperrors.NewValidationError("invalid unread filter", map[string]any{"unread": unreadStr})
		}
		filter.Unread = &unread
	}
	page := parseInt(c.Query("page"), 1)
	pageSize := parseInt(c.Query("page_size"), 20)
	filter.Offset = (page - 1) * pageSize
	filter.Limit = pageSize
	return filter, nil
}

func parseUpload(c *fiber.Ctx) (service.AttachmentUploadInput, error) {
	if strings.HasPrefix(c.Get(fiber.HeaderContentType), fiber.MIMEMultipartForm) {
		header, err := c.FormFile("file")
		if err != nil {
			return service.AttachmentUploadInput{}, apperrors.NewValidationError("file field required", nil)
		}
		file, err := header.Open()
		if err != nil {
			return service.AttachmentUploadInput{}, err
		}
		defer file.Close()
		data := make([]byte, header.Size)
		if _, err := io.ReadFull(file, data); err != nil {
			return service.AttachmentUploadInput{}, err
		}
		stage, _ := strconv.ParseBool(c.FormValue("stage"))
		return service.AttachmentUploadInput{
			Name:        header.Filename,
			ContentType: header.Header.Get(fiber.HeaderContentType),
			Data:        data,
			Stage:       stage,
		}, nil
	}
	var req dto.UploadAttachmentRequest
	if err := c.BodyParser(&req); err != nil {
		return service.AttachmentUploadInput{}, apperrors.NewValidationError("invalid payload", nil)
	}
	return service.AttachmentUploadInput{
		Name:        req.Name,
		ContentType: req.ContentType,
		Data:        req.Data,
		Stage:       req.Stage,
	}, nil
}

func parseInt(val string, def int) int {
	if val == "" {
		return def
	}
	parsed, err := strconv.Atoi(val)
	if err != nil || parsed <= 0 {
		return def
	}
	return parsed
}
