package services

import (
	"context"
	"fmt"

	"dinehub/internal/models"
	"dinehub/internal/repositories"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type SupportService interface {
	CreateTicket(ctx context.Context, tenantID, userID uuid.UUID, subject, body string) (*models.SupportTicket, error)
	ListTickets(ctx context.Context, tenantID uuid.UUID, limit, offset int) ([]*models.SupportTicket, error)
	SubmitContactMessage(ctx context.Context, name, email, message string) error
}

type supportService struct {
	supportRepo repositories.SupportRepository
	logger      *zap.Logger
}

func NewSupportService(supportRepo repositories.SupportRepository, logger *zap.Logger) SupportService {
	return &supportService{supportRepo: supportRepo, logger: logger}
}

func (s *supportService) CreateTicket(ctx context.Context, tenantID, userID uuid.UUID, subject, body string) (*models.SupportTicket, error) {
	ticket := &models.SupportTicket{
		ID:       uuid.New(),
		TenantID: tenantID,
		UserID:   userID,
		Subject:  subject,
		Body:     body,
		Status:   models.TicketStatusOpen,
	}
	if err := s.supportRepo.CreateTicket(ctx, ticket); err != nil {
		return nil, fmt.Errorf("failed to create ticket: %w", err)
	}

	s.logger.Info("support ticket created",
		zap.String("tenant_id", tenantID.String()),
		zap.String("ticket_id", ticket.ID.String()))
	return ticket, nil
}

func (s *supportService) ListTickets(ctx context.Context, tenantID uuid.UUID, limit, offset int) ([]*models.SupportTicket, error) {
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return s.supportRepo.ListTickets(ctx, tenantID, limit, offset)
}

// SubmitContactMessage stores the public contact-form submission; mail
// delivery is handled out of band.
func (s *supportService) SubmitContactMessage(ctx context.Context, name, email, message string) error {
	msg := &models.ContactMessage{
		ID:      uuid.New(),
		Name:    name,
		Email:   email,
		Message: message,
	}
	if err := s.supportRepo.CreateContactMessage(ctx, msg); err != nil {
		return fmt.Errorf("failed to store contact message: %w", err)
	}
	return nil
}
