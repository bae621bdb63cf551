package http

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"

	"application-pdf/internal/domain"
	"application-pdf/internal/infrastructure/logger"
	"application-pdf/internal/infrastructure/token"
	"application-pdf/internal/model"
	"application-pdf/internal/usecase"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// SubmissionService is what the handlers need from the use case layer.
type SubmissionService interface {
	Submit(ctx context.Context, form model.ApplicationForm, upload *model.Upload) (*domain.Submission, error)
	Get(ctx context.Context, id uuid.UUID) (*domain.Submission, error)
	Retry(ctx context.Context, id uuid.UUID) (*domain.Submission, error)
	OpenPDF(ctx context.Context, id uuid.UUID) (io.ReadCloser, *domain.Submission, error)
}

type Handler struct {
	svc         SubmissionService
	signer      *token.DownloadSigner
	maxFileSize int64
	publicURL   string
}

func NewHandler(svc SubmissionService, signer *token.DownloadSigner, maxFileSize int64, publicURL string) *Handler {
	if maxFileSize <= 0 {
		maxFileSize = model.DefaultMaxFileSize
	}
	return &Handler{svc: svc, signer: signer, maxFileSize: maxFileSize, publicURL: strings.TrimRight(publicURL, "/")}
}

type documentResponse struct {
	Name      string `json:"name"`
	MimeType  string `json:"mime_type"`
	Size      int64  `json:"size"`
	PageCount int    `json:"page_count,omitempty"`
}

type submissionResponse struct {
	ID                uuid.UUID        `json:"id"`
	Status            domain.Status    `json:"status"`
	Attempts          int              `json:"attempts"`
	FailureReason     string           `json:"failure_reason,omitempty"`
	Document          documentResponse `json:"document"`
	CreatedAt         time.Time        `json:"created_at"`
	UpdatedAt         time.Time        `json:"updated_at"`
	DownloadURL       string           `json:"download_url,omitempty"`
	DownloadExpiresAt *time.Time       `json:"download_expires_at,omitempty"`
}

func errorBody(msg string) fiber.Map { return fiber.Map{"error": msg} }

func parseID(c *fiber.Ctx) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return uuid.Nil, fiber.NewError(fiber.StatusBadRequest, "invalid submission id")
	}
	return id, nil
}

// mapError converts use case errors to HTTP errors for the error handler.
func mapError(err error) error {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return fiber.NewError(fiber.StatusNotFound, "submission not found")
	case errors.Is(err, domain.ErrInvalidTransition):
		return fiber.NewError(fiber.StatusConflict, err.Error())
	case errors.Is(err, usecase.ErrNotReady):
		return fiber.NewError(fiber.StatusConflict, "pdf is not ready yet")
	}
	return err
}

// CreateSubmission accepts the multipart application form.
func (h *Handler) CreateSubmission(c *fiber.Ctx) error {
	var form model.ApplicationForm
	if err := c.BodyParser(&form); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid form payload")
	}

	var upload *model.Upload
	// a missing file is reported by validation with the other fields
	if fh, err := c.FormFile("document"); err == nil {
		if fh.Size > h.maxFileSize {
			return fiber.NewError(fiber.StatusRequestEntityTooLarge,
				fmt.Sprintf("document must be at most %d bytes", h.maxFileSize))
		}
		f, err := fh.Open()
		if err != nil {
			return fmt.Errorf("open upload: %w", err)
		}
		defer f.Close()
		upload = &model.Upload{Filename: fh.Filename, Size: fh.Size, Content: f}
	}

	sub, err := h.svc.Submit(c.UserContext(), form, upload)
	var verr *model.ValidationError
	if errors.As(err, &verr) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":   "validation failed",
			"details": verr.Details,
		})
	}
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"id": sub.ID, "status": sub.Status})
}

// GetSubmission reports the status, with a signed download link once the
// PDF is ready.
func (h *Handler) GetSubmission(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	sub, err := h.svc.Get(c.UserContext(), id)
	if err != nil {
		return mapError(err)
	}

	resp := submissionResponse{
		ID:            sub.ID,
		Status:        sub.Status,
		Attempts:      sub.Attempts,
		FailureReason: sub.FailureReason,
		Document: documentResponse{
			Name:      sub.Document.OriginalName,
			MimeType:  sub.Document.MimeType,
			Size:      sub.Document.Size,
			PageCount: sub.Document.PageCount,
		},
		CreatedAt: sub.CreatedAt,
		UpdatedAt: sub.UpdatedAt,
	}
	if sub.Status == domain.StatusCompleted {
		tok, expires, err := h.signer.Sign(sub.ID)
		if err != nil {
			return fmt.Errorf("sign download token: %w", err)
		}
		resp.DownloadURL = fmt.Sprintf("%s/api/submissions/%s/pdf?token=%s", h.publicURL, sub.ID, url.QueryEscape(tok))
		resp.DownloadExpiresAt = &expires
	}
	return c.JSON(resp)
}

// DownloadPDF streams the generated PDF to holders of a valid token.
func (h *Handler) DownloadPDF(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	raw := c.Query("token")
	if raw == "" {
		return fiber.NewError(fiber.StatusUnauthorized, "missing download token")
	}
	switch err := h.signer.Verify(raw, id); {
	case errors.Is(err, token.ErrWrongResource):
		return fiber.NewError(fiber.StatusForbidden, "token does not grant access to this submission")
	case errors.Is(err, token.ErrExpiredToken):
		return fiber.NewError(fiber.StatusUnauthorized, "download token has expired")
	case err != nil:
		return fiber.NewError(fiber.StatusUnauthorized, "invalid download token")
	}

	rc, _, err := h.svc.OpenPDF(c.UserContext(), id)
	if err != nil {
		return mapError(err)
	}
	logger.FromFiber(c).Info("pdf downloaded", zap.String("submission_id", id.String()))

	c.Set(fiber.HeaderContentType, "application/pdf")
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf(`attachment; filename="application-%s.pdf"`, id))
	return c.SendStream(rc)
}

// RetrySubmission queues a failed submission again.
func (h *Handler) RetrySubmission(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	if _, err := h.svc.Retry(c.UserContext(), id); err != nil {
		return mapError(err)
	}
	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"id": id, "status": "queued"})
}
