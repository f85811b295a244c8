package repositories

import (
	"context"

	"dinehub/internal/models"

	"github.com/google/uuid"
)

type SupportRepository interface {
	CreateTicket(ctx context.Context, ticket *models.SupportTicket) error
	GetTicket(ctx context.Context, tenantID, id uuid.UUID) (*models.SupportTicket, error)
	ListTickets(ctx context.Context, tenantID uuid.UUID, limit, offset int) ([]*models.SupportTicket, error)
	CreateContactMessage(ctx context.Context, message *models.ContactMessage) error
}

type supportRepo struct {
	db Database
}

func NewSupportRepo(db Database) SupportRepository {
	return &supportRepo{db: db}
}

func (r *supportRepo) CreateTicket(ctx context.Context, ticket *models.SupportTicket) error {
	query := `
		INSERT INTO support_tickets (id, tenant_id, user_id, subject, body, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW(), NOW())
	`
	_, err := r.db.Exec(ctx, query, ticket.ID, ticket.TenantID, ticket.UserID, ticket.Subject, ticket.Body, ticket.Status)
	return err
}

func (r *supportRepo) GetTicket(ctx context.Context, tenantID, id uuid.UUID) (*models.SupportTicket, error) {
	ticket := &models.SupportTicket{}
	query := `
		SELECT id, tenant_id, user_id, subject, body, status, created_at, updated_at
		FROM support_tickets
		WHERE tenant_id = $1 AND id = $2
	`
	err := r.db.QueryRow(ctx, query, tenantID, id).Scan(&ticket.ID, &ticket.TenantID, &ticket.UserID, &ticket.Subject, &ticket.Body, &ticket.Status, &ticket.CreatedAt, &ticket.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return ticket, nil
}

func (r *supportRepo) ListTickets(ctx context.Context, tenantID uuid.UUID, limit, offset int) ([]*models.SupportTicket, error) {
	query := `
		SELECT id, tenant_id, user_id, subject, body, status, created_at, updated_at
		FROM support_tickets
		WHERE tenant_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`
	rows, err := r.db.Query(ctx, query, tenantID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tickets []*models.SupportTicket
	for rows.Next() {
		ticket := &models.SupportTicket{}
		if err := rows.Scan(&ticket.ID, &ticket.TenantID, &ticket.UserID, &ticket.Subject, &ticket.Body, &ticket.Status, &ticket.CreatedAt, &ticket.UpdatedAt); err != nil {
			return nil, err
		}
		tickets = append(tickets, ticket)
	}
	return tickets, rows.Err()
}

func (r *supportRepo) CreateContactMessage(ctx context.Context, message *models.ContactMessage) error {
	query := `
		INSERT INTO contact_messages (id, name, email, message, created_at)
		VALUES ($1, $2, $3, $4, NOW())
	`
	_, err := r.db.Exec(ctx, query, message.ID, message.Name, message.Email, message.Message)
	return err
}
