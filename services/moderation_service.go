package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"taskboard-api/models"
)

// ModerationService acts on user reports.
type ModerationService struct {
	tx  Transactor
	now func() time.Time
}

func NewModerationService(tx Transactor) *ModerationService {
	return &ModerationService{tx: tx, now: time.Now}
}

func ParseReportAction(raw string) (models.ReportAction, error) {
	switch models.ReportAction(strings.ToLower(strings.TrimSpace(raw))) {
	case models.ReportActionBan:
		return models.ReportActionBan, nil
	case models.ReportActionWarning:
		return models.ReportActionWarning, nil
	}
	return "", fmt.Errorf("%q: %w", raw, ErrUnsupportedAction)
}

// ActionReport resolves an open report with a ban or a warning. The account
// change, the report update, the activity record and the notification commit
// together.
func (s *ModerationService) ActionReport(ctx context.Context, adminID, reportID uint, action models.ReportAction, note string) (DispatchReport, error) {
	var kind models.EventKind
	switch action {
	case models.ReportActionBan:
		kind = models.KindBan
	case models.ReportActionWarning:
		kind = models.KindWarning
	default:
		return DispatchReport{}, fmt.Errorf("%q: %w", action, ErrUnsupportedAction)
	}

	var report DispatchReport
	err := s.tx.InTx(ctx, func(scope TxScope) error {
		r, err := scope.Reports.FindForUpdate(ctx, reportID)
		if err != nil {
			return err
		}
		if r.Status == models.ReportStatusResolved {
			return fmt.Errorf("report %d: %w", reportID, ErrReportAlreadyResolved)
		}

		if action == models.ReportActionBan {
			if err := scope.Accounts.SetAccountStatus(ctx, r.ReportedUserID, models.AccountBanned); err != nil {
				return err
			}
		}
		if err := scope.Reports.Resolve(ctx, reportID, action, adminID, s.now()); err != nil {
			return err
		}

		title, message := moderationText(action, note)
		report, err = scope.Events.Publish(ctx, Event{
			Kind:    kind,
			Subject: ReportSubject{ReportID: reportID, ReportedUserID: r.ReportedUserID},
			ActorID: uintPtr(adminID),
			Title:   title,
			Message: message,
			Link:    "/account/standing",
			Activity: &ActivityEntry{
				Action: string(action),
				Payload: map[string]any{
					"reported_user_id": r.ReportedUserID,
					"reason":           r.Reason,
					"note":             note,
				},
			},
		})
		return err
	})
	if err != nil {
		return DispatchReport{}, err
	}

	logrus.WithFields(logrus.Fields{
		"report_id": reportID,
		"action":    action,
		"admin_id":  adminID,
	}).Info("user report actioned")
	return report, nil
}

func moderationText(action models.ReportAction, note string) (string, string) {
	note = strings.TrimSpace(note)
	var title, message string
	switch action {
	case models.ReportActionBan:
		title = "Your account has been suspended"
		message = "An administrator suspended your account after reviewing a report."
	default:
		title = "You received a warning"
		message = "An administrator reviewed a report about your activity and issued a warning."
	}
	if note != "" {
		message += "\n\n" + note
	}
	return title, message
}
