package services

import (
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/genimagine/backend/internal/models"
)

// Operation is the kind of AI capacity a request wants to consume.
type Operation string

const (
	OpGenerate Operation = "generate"
	OpEdit     Operation = "edit"
	OpSuggest  Operation = "suggest"
)

// Admission is a granted quota unit.
type Admission struct {
	PasswordCode   string
	BypassWatchdog bool
}

// AdmissionService decides ALLOW/DENY for an operation and consumes one quota
// unit as part of the same decision.
type AdmissionService struct {
	db *gorm.DB
}

func NewAdmissionService(db *gorm.DB) *AdmissionService {
	return &AdmissionService{db: db}
}

// Admit validates the user and password, then increments the counter for the
// operation with a single conditional update. The check and the increment are
// one statement, so two racing requests can never push a counter past its
// limit.
func (s *AdmissionService) Admit(userGUID, code string, op Operation) (*Admission, error) {
	if userGUID == "" {
		return nil, ErrUserNotFound
	}

	var user models.User
	if err := s.db.Where("guid = ?", userGUID).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	var password models.AccessPassword
	if err := s.db.Where("code = ?", code).First(&password).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidPassword
		}
		return nil, err
	}

	now := time.Now()
	if password.Expired(now) {
		return nil, ErrPasswordExpired
	}

	// First use of this password by this user creates the zero-counter row.
	// ON CONFLICT DO NOTHING keeps concurrent first uses idempotent.
	usage := models.UsageRecord{
		UserGUID:     userGUID,
		PasswordCode: code,
		FirstUsedAt:  now,
		LastUsedAt:   now,
	}
	if err := s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_guid"}, {Name: "password_code"}},
		DoNothing: true,
	}).Create(&usage).Error; err != nil {
		return nil, err
	}

	var counter string
	var limit int
	switch op {
	case OpGenerate, OpEdit:
		counter = "images_generated"
		limit = password.ImageLimit
	case OpSuggest:
		counter = "suggestions_used"
		limit = password.SuggestionLimit
	default:
		return nil, errors.New("unknown operation: " + string(op))
	}

	res := s.db.Model(&models.UsageRecord{}).
		Where("user_guid = ? AND password_code = ? AND "+counter+" < ?", userGUID, code, limit).
		Updates(map[string]interface{}{
			counter:        gorm.Expr(counter + " + 1"),
			"last_used_at": now,
		})
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, ErrQuotaExceeded
	}

	return &Admission{
		PasswordCode:   code,
		BypassWatchdog: password.BypassWatchdog,
	}, nil
}
