// Package remotestore is the PostgreSQL-backed remote store holding admin
// settings, submitted applications and the notification attempt log.
package remotestore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"apply-desk/internal/common/logger"
	"apply-desk/internal/models"

	"github.com/lib/pq"
)

// ErrNotFound is returned when no admin_settings row exists for a partition.
var ErrNotFound = errors.New("remotestore: not found")

// Store implements the remote store over database/sql with lib/pq.
type Store struct {
	db     *sql.DB
	logger logger.Logger
}

func New(db *sql.DB, log logger.Logger) *Store {
	return &Store{db: db, logger: log}
}

// ==========================
// Admin settings
// ==========================

// FetchAdminSettings selects the row for apartmentID.
func (s *Store) FetchAdminSettings(ctx context.Context, apartmentID string) (*models.AdminSettings, error) {
	var (
		out           models.AdminSettings
		phones        []string
		emails        []string
		apartmentName sql.NullString
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT apartment_id, title, phones, emails, apartment_name, updated_at
		FROM admin_settings
		WHERE apartment_id = $1`, apartmentID,
	).Scan(&out.ApartmentID, &out.Title, pq.Array(&phones), pq.Array(&emails), &apartmentName, &out.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("fetch admin settings: %w", err)
	}

	out.Phones = phones
	out.Emails = emails
	out.ApartmentName = apartmentName.String
	return &out, nil
}

// UpsertAdminSettings writes the row for settings.ApartmentID, replacing
// title and both lists on conflict. apartment_name is left as stored.
func (s *Store) UpsertAdminSettings(ctx context.Context, settings models.AdminSettings) error {
	updatedAt := settings.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = time.Now().UTC()
	}
	phones := []string(settings.Phones)
	emails := []string(settings.Emails)
	if phones == nil {
		phones = []string{}
	}
	if emails == nil {
		emails = []string{}
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO admin_settings (apartment_id, title, phones, emails, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (apartment_id) DO UPDATE
		SET title = EXCLUDED.title,
		    phones = EXCLUDED.phones,
		    emails = EXCLUDED.emails,
		    updated_at = EXCLUDED.updated_at`,
		settings.ApartmentID, settings.Title, pq.Array(phones), pq.Array(emails), updatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert admin settings: %w", err)
	}
	return nil
}

// ==========================
// Applications
// ==========================

// InsertApplication stores app and returns the store-assigned id. Required
// columns always go in; optional ones only when present.
func (s *Store) InsertApplication(ctx context.Context, app *models.Application) (string, error) {
	columns := []string{"name", "phone", "application_number"}
	args := []interface{}{app.Name, app.Phone, app.ApplicationNumber}

	if app.WorkType != "" {
		columns = append(columns, "work_type", "work_type_display")
		args = append(args, app.WorkType, app.WorkTypeDisplay)
	}
	if app.StartDate != "" {
		columns = append(columns, "start_date")
		args = append(args, app.StartDate)
	}
	if app.Description != "" {
		columns = append(columns, "description")
		args = append(args, app.Description)
	}
	columns = append(columns, "privacy", "submitted_at")
	args = append(args, true, app.SubmittedAt)

	placeholders := make([]string, len(columns))
	for i := range columns {
		placeholders[i] = "$" + strconv.Itoa(i+1)
	}
	query := fmt.Sprintf("INSERT INTO applications (%s) VALUES (%s) RETURNING id",
		strings.Join(columns, ", "), strings.Join(placeholders, ", "))

	var id int64
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&id); err != nil {
		return "", fmt.Errorf("insert application: %w", err)
	}

	s.logger.Debug("application inserted", map[string]interface{}{
		"id":                id,
		"applicationNumber": app.ApplicationNumber,
		"columns":           len(columns),
	})
	return strconv.FormatInt(id, 10), nil
}

// ==========================
// Notification log
// ==========================

// AppendNotificationAttempt inserts one attempt row.
func (s *Store) AppendNotificationAttempt(ctx context.Context, attempt models.NotificationAttempt) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO notification_logs (id, application_id, channel, provider, recipient, status, error, timestamp)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		attempt.ID, attempt.ApplicationID, attempt.Channel, attempt.Provider,
		nullString(attempt.Recipient), attempt.Status, nullString(attempt.Error), attempt.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("append notification attempt: %w", err)
	}
	return nil
}

// ListNotificationAttempts returns the attempts for one application, oldest first.
func (s *Store) ListNotificationAttempts(ctx context.Context, applicationID string) ([]models.NotificationAttempt, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, application_id, channel, provider, recipient, status, error, timestamp
		FROM notification_logs
		WHERE application_id = $1
		ORDER BY timestamp ASC`, applicationID)
	if err != nil {
		return nil, fmt.Errorf("list notification attempts: %w", err)
	}
	defer rows.Close()

	var out []models.NotificationAttempt
	for rows.Next() {
		var (
			a              models.NotificationAttempt
			recipient, msg sql.NullString
		)
		if err := rows.Scan(&a.ID, &a.ApplicationID, &a.Channel, &a.Provider, &recipient, &a.Status, &msg, &a.Timestamp); err != nil {
			return nil, fmt.Errorf("scan notification attempt: %w", err)
		}
		a.Recipient = recipient.String
		a.Error = msg.String
		out = append(out, a)
	}
	return out, rows.Err()
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func nullString(v string) sql.NullString {
	return sql.NullString{String: v, Valid: v != ""}
}
