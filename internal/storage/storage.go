package storage

import (
	"context"
	"errors"

	"wastetrack/backend/internal/apperr"
	"wastetrack/backend/internal/models"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// UserFilter narrows user listings. Zero Role means every role.
type UserFilter struct {
	Role       models.Role
	ActiveOnly bool
}

// ComplaintFilter narrows complaint listings and counts. Empty fields match
// everything; Limit 0 means no limit.
type ComplaintFilter struct {
	CitizenID string
	WorkerID  string
	Statuses  []models.Status
	Offset    int
	Limit     int
}

type UserStore interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetUserByID(ctx context.Context, id string) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	ListUsers(ctx context.Context, filter UserFilter) ([]models.User, error)
	SetUserActive(ctx context.Context, id string, active bool) error
}

type ComplaintStore interface {
	CreateComplaint(ctx context.Context, complaint *models.Complaint) error
	// GetComplaintByID loads the complaint with its citizen and worker.
	GetComplaintByID(ctx context.Context, id string) (*models.Complaint, error)
	// UpdateComplaint writes the mutable fields if the stored version still
	// equals complaint.Version, then bumps complaint.Version. A stale version
	// fails with a Conflict error.
	UpdateComplaint(ctx context.Context, complaint *models.Complaint) error
	DeleteComplaint(ctx context.Context, id string) error
	ListComplaints(ctx context.Context, filter ComplaintFilter) ([]models.Complaint, error)
	CountComplaints(ctx context.Context, filter ComplaintFilter) (int64, error)
	CountByStatus(ctx context.Context) (map[models.Status]int64, error)
	CountByPriority(ctx context.Context) (map[models.Priority]int64, error)
}

type ActivityStore interface {
	AppendActivity(ctx context.Context, entry *models.ActivityLog) error
	// ListActivityByComplaint returns the complaint's entries newest first.
	ListActivityByComplaint(ctx context.Context, complaintID string) ([]models.ActivityLog, error)
	ListActivityByUser(ctx context.Context, userID string) ([]models.ActivityLog, error)
	HasActivity(ctx context.Context, complaintID, action string) (bool, error)
}

// Storage is the persistence contract of the workflow.
type Storage interface {
	UserStore
	ComplaintStore
	ActivityStore

	// Transaction runs fn against a transactional view. Nothing fn wrote is
	// observable unless fn returns nil and the commit succeeds.
	Transaction(ctx context.Context, fn func(tx Storage) error) error
}

// Service is the gorm/PostgreSQL implementation of Storage.
type Service struct {
	DB *gorm.DB
}

// NewStorageService Constructor
func NewStorageService(db *gorm.DB) *Service {
	return &Service{DB: db}
}

// AutoMigrate creates or updates the tables.
func (s *Service) AutoMigrate() error {
	return s.DB.AutoMigrate(
		&models.User{},
		&models.Complaint{},
		&models.ActivityLog{},
	)
}

func (s *Service) Transaction(ctx context.Context, fn func(tx Storage) error) error {
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&Service{DB: tx})
	})
}

// translate maps gorm errors onto application error kinds.
func translate(err error, what, id string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return apperr.NotFound("%s not found with id: %s", what, id)
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return apperr.Conflict("%s already exists", what)
	default:
		log.Error().Err(err).Str("entity", what).Str("id", id).Msg("database failure")
		return apperr.Internal("database failure", err)
	}
}

// --- users ---

func (s *Service) CreateUser(ctx context.Context, user *models.User) error {
	return translate(s.DB.WithContext(ctx).Create(user).Error, "user", user.Email)
}

func (s *Service) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	if err := s.DB.WithContext(ctx).First(&user, "id = ?", id).Error; err != nil {
		return nil, translate(err, "user", id)
	}
	return &user, nil
}

func (s *Service) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := s.DB.WithContext(ctx).First(&user, "lower(email) = lower(?)", email).Error; err != nil {
		return nil, translate(err, "user", email)
	}
	return &user, nil
}

func (s *Service) ListUsers(ctx context.Context, filter UserFilter) ([]models.User, error) {
	q := s.DB.WithContext(ctx).Model(&models.User{})
	if filter.Role != "" {
		q = q.Where("role = ?", filter.Role)
	}
	if filter.ActiveOnly {
		q = q.Where("is_active = ?", true)
	}

	var users []models.User
	if err := q.Order("created_at asc").Find(&users).Error; err != nil {
		return nil, translate(err, "user", "")
	}
	return users, nil
}

func (s *Service) SetUserActive(ctx context.Context, id string, active bool) error {
	res := s.DB.WithContext(ctx).Model(&models.User{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"is_active":  active,
			"updated_at": gorm.Expr("NOW()"),
		})
	if res.Error != nil {
		return translate(res.Error, "user", id)
	}
	if res.RowsAffected == 0 {
		return apperr.NotFound("user not found with id: %s", id)
	}
	return nil
}

// --- complaints ---

func (s *Service) CreateComplaint(ctx context.Context, complaint *models.Complaint) error {
	err := s.DB.WithContext(ctx).Omit(clause.Associations).Create(complaint).Error
	return translate(err, "complaint", complaint.ID)
}

func (s *Service) GetComplaintByID(ctx context.Context, id string) (*models.Complaint, error) {
	var complaint models.Complaint
	err := s.DB.WithContext(ctx).
		Preload("Citizen").
		Preload("AssignedWorker").
		First(&complaint, "id = ?", id).Error
	if err != nil {
		return nil, translate(err, "complaint", id)
	}
	return &complaint, nil
}

func (s *Service) UpdateComplaint(ctx context.Context, complaint *models.Complaint) error {
	expected := complaint.Version
	res := s.DB.WithContext(ctx).Model(&models.Complaint{}).
		Where("id = ? AND version = ?", complaint.ID, expected).
		Updates(map[string]interface{}{
			"status":             complaint.Status,
			"priority":           complaint.Priority,
			"assigned_worker_id": complaint.AssignedWorkerID,
			"image_path":         complaint.ImagePath,
			"before_image_path":  complaint.BeforeImagePath,
			"after_image_path":   complaint.AfterImagePath,
			"feedback":           complaint.Feedback,
			"rating":             complaint.Rating,
			"assigned_at":        complaint.AssignedAt,
			"completed_at":       complaint.CompletedAt,
			"verified_at":        complaint.VerifiedAt,
			"updated_at":         complaint.UpdatedAt,
			"version":            expected + 1,
		})
	if res.Error != nil {
		return translate(res.Error, "complaint", complaint.ID)
	}
	if res.RowsAffected == 0 {
		var count int64
		if err := s.DB.WithContext(ctx).Model(&models.Complaint{}).Where("id = ?", complaint.ID).Count(&count).Error; err != nil {
			return translate(err, "complaint", complaint.ID)
		}
		if count == 0 {
			return apperr.NotFound("complaint not found with id: %s", complaint.ID)
		}
		return apperr.Conflict("complaint %s was modified concurrently", complaint.ID)
	}
	complaint.Version = expected + 1
	return nil
}

// DeleteComplaint removes the complaint and its activity logs.
func (s *Service) DeleteComplaint(ctx context.Context, id string) error {
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("complaint_id = ?", id).Delete(&models.ActivityLog{}).Error; err != nil {
			return translate(err, "activity log", id)
		}
		res := tx.Where("id = ?", id).Delete(&models.Complaint{})
		if res.Error != nil {
			return translate(res.Error, "complaint", id)
		}
		if res.RowsAffected == 0 {
			return apperr.NotFound("complaint not found with id: %s", id)
		}
		return nil
	})
}

func (s *Service) applyFilter(q *gorm.DB, filter ComplaintFilter) *gorm.DB {
	if filter.CitizenID != "" {
		q = q.Where("citizen_id = ?", filter.CitizenID)
	}
	if filter.WorkerID != "" {
		q = q.Where("assigned_worker_id = ?", filter.WorkerID)
	}
	if len(filter.Statuses) > 0 {
		q = q.Where("status IN ?", filter.Statuses)
	}
	return q
}

func (s *Service) ListComplaints(ctx context.Context, filter ComplaintFilter) ([]models.Complaint, error) {
	q := s.applyFilter(s.DB.WithContext(ctx).Model(&models.Complaint{}), filter).
		Preload("Citizen").
		Preload("AssignedWorker").
		Order("created_at desc").
		Order("id desc")
	if filter.Offset > 0 {
		q = q.Offset(filter.Offset)
	}
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit)
	}

	var complaints []models.Complaint
	if err := q.Find(&complaints).Error; err != nil {
		return nil, translate(err, "complaint", "")
	}
	return complaints, nil
}

func (s *Service) CountComplaints(ctx context.Context, filter ComplaintFilter) (int64, error) {
	var count int64
	q := s.applyFilter(s.DB.WithContext(ctx).Model(&models.Complaint{}), filter)
	if err := q.Count(&count).Error; err != nil {
		return 0, translate(err, "complaint", "")
	}
	return count, nil
}

func (s *Service) CountByStatus(ctx context.Context) (map[models.Status]int64, error) {
	var rows []struct {
		Status models.Status
		Count  int64
	}
	err := s.DB.WithContext(ctx).Model(&models.Complaint{}).
		Select("status, count(*) as count").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, translate(err, "complaint", "")
	}

	out := make(map[models.Status]int64, len(rows))
	for _, r := range rows {
		out[r.Status] = r.Count
	}
	return out, nil
}

func (s *Service) CountByPriority(ctx context.Context) (map[models.Priority]int64, error) {
	var rows []struct {
		Priority models.Priority
		Count    int64
	}
	err := s.DB.WithContext(ctx).Model(&models.Complaint{}).
		Select("priority, count(*) as count").
		Group("priority").
		Scan(&rows).Error
	if err != nil {
		return nil, translate(err, "complaint", "")
	}

	out := make(map[models.Priority]int64, len(rows))
	for _, r := range rows {
		out[r.Priority] = r.Count
	}
	return out, nil
}

// --- activity logs ---

func (s *Service) AppendActivity(ctx context.Context, entry *models.ActivityLog) error {
	err := s.DB.WithContext(ctx).Omit(clause.Associations).Create(entry).Error
	return translate(err, "activity log", entry.ComplaintID)
}

func (s *Service) ListActivityByComplaint(ctx context.Context, complaintID string) ([]models.ActivityLog, error) {
	var logs []models.ActivityLog
	err := s.DB.WithContext(ctx).
		Where("complaint_id = ?", complaintID).
		Order("created_at desc").
		Find(&logs).Error
	if err != nil {
		return nil, translate(err, "activity log", complaintID)
	}
	return logs, nil
}

func (s *Service) ListActivityByUser(ctx context.Context, userID string) ([]models.ActivityLog, error) {
	var logs []models.ActivityLog
	err := s.DB.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at desc").
		Find(&logs).Error
	if err != nil {
		return nil, translate(err, "activity log", userID)
	}
	return logs, nil
}

func (s *Service) HasActivity(ctx context.Context, complaintID, action string) (bool, error) {
	var count int64
	err := s.DB.WithContext(ctx).Model(&models.ActivityLog{}).
		Where("complaint_id = ? AND action = ?", complaintID, action).
		Count(&count).Error
	if err != nil {
		return false, translate(err, "activity log", complaintID)
	}
	return count > 0, nil
}
