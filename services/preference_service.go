package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"taskboard-api/config"
	"taskboard-api/models"
)

// PreferenceStore reads and writes notification_preferences rows. Find never
// creates a row; Save is the only write path.
type PreferenceStore interface {
	Find(ctx context.Context, userID uint) (*models.NotificationPreference, bool, error)
	Save(ctx context.Context, pref *models.NotificationPreference) error
}

// DefaultPreference is what a user without a settings row gets.
func DefaultPreference(userID uint) models.NotificationPreference {
	return models.NotificationPreference{
		UserID:                userID,
		EmailEnabled:          true,
		EmailHighImmediate:    true,
		EmailDigestEnabled:    true,
		EmailDigestEveryHours: models.DigestPeriods[0],
	}
}

// WithDefaults returns the stored preference, or the defaults when none was found.
func WithDefaults(userID uint, pref *models.NotificationPreference, found bool) models.NotificationPreference {
	if !found || pref == nil {
		return DefaultPreference(userID)
	}
	return *pref
}

// Decision is the per-recipient channel plan for one notification.
type Decision struct {
	Push      bool
	EmailMode models.EmailMode
}

// DecideEmail applies the email rules to a resolved preference.
func DecideEmail(pref models.NotificationPreference, priority models.Priority) models.EmailMode {
	switch {
	case !pref.EmailEnabled:
		return models.EmailNone
	case priority == models.PriorityHigh && pref.EmailHighImmediate:
		return models.EmailImmediate
	case pref.EmailDigestEnabled:
		return models.EmailDigest
	default:
		return models.EmailNone
	}
}

// PreferenceGate decides which channels a notification goes out on.
type PreferenceGate struct {
	store PreferenceStore
}

func NewPreferenceGate(store PreferenceStore) *PreferenceGate {
	return &PreferenceGate{store: store}
}

// Decide never fails: a lookup error falls back to the defaults.
func (g *PreferenceGate) Decide(ctx context.Context, recipientID uint, priority models.Priority) Decision {
	pref, found, err := g.store.Find(ctx, recipientID)
	if err != nil {
		logrus.WithField("recipient_id", recipientID).
			Warnf("preference lookup failed, using defaults: %v", err)
		found = false
	}
	resolved := WithDefaults(recipientID, pref, found)
	return Decision{
		Push:      true,
		EmailMode: DecideEmail(resolved, priority),
	}
}

// PreferenceUpdate carries the fields a user may change; nil means unchanged.
type PreferenceUpdate struct {
	EmailEnabled          *bool `json:"email_enabled"`
	EmailHighImmediate    *bool `json:"email_high_immediate"`
	EmailDigestEnabled    *bool `json:"email_digest_enabled"`
	EmailDigestEveryHours *int  `json:"email_digest_every_hours"`
}

type PreferenceService struct {
	store PreferenceStore
}

func NewPreferenceService(store PreferenceStore) *PreferenceService {
	return &PreferenceService{store: store}
}

// EnsureDefaults returns the user's preference, persisting the defaults first
// when the user has none.
func (s *PreferenceService) EnsureDefaults(ctx context.Context, userID uint) (*models.NotificationPreference, error) {
	pref, found, err := s.store.Find(ctx, userID)
	if err != nil {
		return nil, err
	}
	if found {
		return pref, nil
	}
	def := DefaultPreference(userID)
	if err := s.store.Save(ctx, &def); err != nil {
		return nil, fmt.Errorf("persist default preferences for user %d: %w", userID, err)
	}
	return &def, nil
}

func (s *PreferenceService) Update(ctx context.Context, userID uint, upd PreferenceUpdate) (*models.NotificationPreference, error) {
	if upd.EmailDigestEveryHours != nil && !models.ValidDigestPeriod(*upd.EmailDigestEveryHours) {
		return nil, ErrInvalidDigestPeriod
	}

	pref, err := s.EnsureDefaults(ctx, userID)
	if err != nil {
		return nil, err
	}
	if upd.EmailEnabled != nil {
		pref.EmailEnabled = *upd.EmailEnabled
	}
	if upd.EmailHighImmediate != nil {
		pref.EmailHighImmediate = *upd.EmailHighImmediate
	}
	if upd.EmailDigestEnabled != nil {
		pref.EmailDigestEnabled = *upd.EmailDigestEnabled
	}
	if upd.EmailDigestEveryHours != nil {
		pref.EmailDigestEveryHours = *upd.EmailDigestEveryHours
	}
	if err := s.store.Save(ctx, pref); err != nil {
		return nil, err
	}
	return pref, nil
}

type GormPreferenceStore struct {
	db *gorm.DB
}

func NewGormPreferenceStore(db *gorm.DB) *GormPreferenceStore {
	if db == nil {
		db = config.DB
	}
	return &GormPreferenceStore{db: db}
}

func (s *GormPreferenceStore) Find(ctx context.Context, userID uint) (*models.NotificationPreference, bool, error) {
	var pref models.NotificationPreference
	err := s.db.WithContext(ctx).First(&pref, "user_id = ?", userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return &pref, true, nil
}

func (s *GormPreferenceStore) Save(ctx context.Context, pref *models.NotificationPreference) error {
	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{UpdateAll: true}).
		Create(pref).Error
}
