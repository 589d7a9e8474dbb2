package application

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"mime/quotedprintable"
	"net/mail"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/atvirokodosprendimai/notices/internal/domain"
)

const maxImportSubject = 100

// validateNotificationEvent resolves the event content type in place and
// checks that the event exists.
func (s *Service) validateNotificationEvent(ctx context.Context, n *domain.EventNotification, v *domain.ValidationError) error {
	ct, err := s.resolveContentType(ctx, n.EventType)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		v.Add("event_content_type", msgInvalidChoice)
		return nil
	case err != nil:
		return err
	case !domain.IsEventType(ct):
		v.Add("event_content_type", msgEventType)
		return nil
	}
	n.EventType = ct
	if n.EventObjectID == 0 {
		return nil
	}
	if _, err := s.eventStatus(ctx, ct, n.EventObjectID); errors.Is(err, domain.ErrNotFound) {
		v.Add("event_object_id", msgObjectNotFound)
	} else if err != nil {
		return err
	}
	return nil
}

func (s *Service) checkNotification(ctx context.Context, n *domain.EventNotification) error {
	n.Subject = strings.TrimSpace(n.Subject)
	n.EmailFrom = strings.TrimSpace(n.EmailFrom)
	v, ok := domain.AsValidationError(n.Validate())
	if !ok {
		v = domain.NewValidationError()
	}
	if err := s.validateNotificationEvent(ctx, n, v); err != nil {
		return err
	}
	return v.OrNil()
}

func (s *Service) CreateNotification(ctx context.Context, actor domain.Identity, in domain.EventNotification) (domain.EventNotification, error) {
	in.ID = 0
	if err := s.checkNotification(ctx, &in); err != nil {
		return domain.EventNotification{}, err
	}
	var out domain.EventNotification
	err := s.repo.Atomic(ctx, func(tx domain.Repository) error {
		created, err := tx.CreateNotification(ctx, in)
		if err != nil {
			return err
		}
		out = created
		return s.record(ctx, tx, actor, change{
			action:  domain.ChangeActionCreate,
			objType: domain.EventNotificationType,
			objID:   created.ID,
			repr:    created.Subject,
			after:   notificationSnapshot(created),
		})
	})
	return out, err
}

func (s *Service) UpdateNotification(ctx context.Context, actor domain.Identity, in domain.EventNotification) (domain.EventNotification, error) {
	existing, err := s.repo.GetNotification(ctx, in.ID)
	if err != nil {
		return domain.EventNotification{}, err
	}
	in.CreatedAt = existing.CreatedAt
	if in.Email == nil {
		in.Email = existing.Email
	}
	if err := s.checkNotification(ctx, &in); err != nil {
		return domain.EventNotification{}, err
	}
	var out domain.EventNotification
	err = s.repo.Atomic(ctx, func(tx domain.Repository) error {
		updated, err := tx.UpdateNotification(ctx, in)
		if err != nil {
			return err
		}
		out = updated
		return s.record(ctx, tx, actor, change{
			action:  domain.ChangeActionUpdate,
			objType: domain.EventNotificationType,
			objID:   updated.ID,
			repr:    updated.Subject,
			before:  notificationSnapshot(existing),
			after:   notificationSnapshot(updated),
		})
	})
	return out, err
}

func (s *Service) DeleteNotification(ctx context.Context, actor domain.Identity, id uint) error {
	existing, err := s.repo.GetNotification(ctx, id)
	if err != nil {
		return err
	}
	return s.repo.Atomic(ctx, func(tx domain.Repository) error {
		if err := tx.DeleteNotification(ctx, id); err != nil {
			return err
		}
		return s.record(ctx, tx, actor, change{
			action:  domain.ChangeActionDelete,
			objType: domain.EventNotificationType,
			objID:   id,
			repr:    existing.Subject,
			before:  notificationSnapshot(existing),
		})
	})
}

func (s *Service) GetNotification(ctx context.Context, id uint) (domain.EventNotification, error) {
	return s.repo.GetNotification(ctx, id)
}

func (s *Service) ListNotifications(ctx context.Context, filter domain.NotificationFilter) ([]domain.EventNotification, int64, error) {
	filter.Limit = clampLimit(filter.Limit)
	return s.repo.ListNotifications(ctx, filter)
}

// NotificationsForEvent lists the notifications attached to one event.
func (s *Service) NotificationsForEvent(ctx context.Context, name domain.ContentTypeName, eventID uint) ([]domain.EventNotification, error) {
	ct, err := s.repo.GetContentType(ctx, name)
	if err != nil {
		return nil, err
	}
	rows, _, err := s.repo.ListNotifications(ctx, domain.NotificationFilter{EventTypeID: &ct.ID, EventIDs: []uint{eventID}, Limit: maxListLimit})
	return rows, err
}

// ImportNotification parses an RFC 5322 message and attaches it to an event.
// The raw bytes are kept alongside the extracted fields.
func (s *Service) ImportNotification(ctx context.Context, actor domain.Identity, eventType domain.ContentTypeName, eventID uint, raw []byte) (domain.EventNotification, error) {
	parsed, err := ParseEmail(raw)
	if err != nil {
		return domain.EventNotification{}, domain.FieldError("email", fmt.Sprintf("Could not parse message: %v", err))
	}
	if parsed.EmailReceived.IsZero() {
		parsed.EmailReceived = s.now().UTC()
	}
	parsed.EventType = domain.ContentType{AppLabel: eventType.AppLabel, Model: eventType.Model}
	parsed.EventObjectID = eventID
	s.log.Info("importing notification", "event_type", eventType.String(), "event_id", eventID, "bytes", len(raw))
	return s.CreateNotification(ctx, actor, parsed)
}

// ParseEmail extracts subject, sender, date and the plain text body of a
// message. A missing or unparsable Date leaves EmailReceived zero.
func ParseEmail(raw []byte) (domain.EventNotification, error) {
	msg, err := mail.ReadMessage(bytes.NewReader(raw))
	if err != nil {
		return domain.EventNotification{}, err
	}
	dec := new(mime.WordDecoder)

	subject := msg.Header.Get("Subject")
	if decoded, err := dec.DecodeHeader(subject); err == nil {
		subject = decoded
	}
	subject = truncateRunes(strings.TrimSpace(subject), maxImportSubject)

	from := msg.Header.Get("From")
	if addr, err := mail.ParseAddress(from); err == nil {
		from = addr.Address
	}

	var received time.Time
	if d, err := msg.Header.Date(); err == nil {
		received = d.UTC()
	}

	body, err := plainTextBody(msg.Header.Get("Content-Type"), msg.Header.Get("Content-Transfer-Encoding"), msg.Body)
	if err != nil {
		return domain.EventNotification{}, err
	}

	return domain.EventNotification{
		Subject:       subject,
		EmailFrom:     strings.TrimSpace(from),
		EmailBody:     strings.TrimSpace(body),
		EmailReceived: received,
		Email:         append([]byte(nil), raw...),
	}, nil
}

// plainTextBody returns the first text/plain part of a message, falling back
// to the first text part of any kind.
func plainTextBody(contentType, encoding string, body io.Reader) (string, error) {
	mediaType, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		mediaType = "text/plain"
	}
	if !strings.HasPrefix(mediaType, "multipart/") {
		b, err := io.ReadAll(decodeTransfer(encoding, body))
		return string(b), err
	}

	mr := multipart.NewReader(body, params["boundary"])
	var fallback string
	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			return fallback, nil
		}
		if err != nil {
			return "", err
		}
		text, err := plainTextBody(part.Header.Get("Content-Type"), part.Header.Get("Content-Transfer-Encoding"), part)
		if err != nil {
			return "", err
		}
		partType, _, _ := mime.ParseMediaType(part.Header.Get("Content-Type"))
		if partType == "" || partType == "text/plain" || strings.HasPrefix(partType, "multipart/") {
			if strings.TrimSpace(text) != "" {
				return text, nil
			}
		}
		if fallback == "" && strings.HasPrefix(partType, "text/") {
			fallback = text
		}
	}
}

func decodeTransfer(encoding string, r io.Reader) io.Reader {
	switch strings.ToLower(strings.TrimSpace(encoding)) {
	case "quoted-printable":
		return quotedprintable.NewReader(r)
	case "base64":
		return base64.NewDecoder(base64.StdEncoding, r)
	default:
		return r
	}
}

func truncateRunes(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	return string([]rune(s)[:max])
}
