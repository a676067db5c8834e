package storage_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"wastetrack/backend/internal/apperr"
	"wastetrack/backend/internal/models"
	"wastetrack/backend/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedComplaint(t *testing.T, s *storage.MemoryStorage, citizenID string) *models.Complaint {
	t.Helper()
	now := time.Now()
	c := &models.Complaint{
		Title:     "Overflowing bin",
		Status:    models.StatusPending,
		Priority:  models.PriorityMedium,
		CitizenID: citizenID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	require.NoError(t, s.CreateComplaint(context.Background(), c))
	return c
}

func TestMemoryStorage_UserEmailUnique(t *testing.T) {
	ctx := context.Background()
	s := storage.NewMemoryStorage()

	require.NoError(t, s.CreateUser(ctx, &models.User{Email: "a@example.com", Role: models.RoleCitizen}))
	err := s.CreateUser(ctx, &models.User{Email: "A@example.com", Role: models.RoleWorker})

	assert.True(t, apperr.Is(err, apperr.KindConflict))
}

func TestMemoryStorage_GetComplaintLoadsAssociations(t *testing.T) {
	ctx := context.Background()
	s := storage.NewMemoryStorage()
	citizen := &models.User{Name: "Oksana", Email: "o@example.com", Role: models.RoleCitizen}
	require.NoError(t, s.CreateUser(ctx, citizen))
	c := seedComplaint(t, s, citizen.ID)

	got, err := s.GetComplaintByID(ctx, c.ID)
	require.NoError(t, err)
	require.NotNil(t, got.Citizen)
	assert.Equal(t, "Oksana", got.Citizen.Name)
	assert.Nil(t, got.AssignedWorker)

	_, err = s.GetComplaintByID(ctx, "missing")
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}

func TestMemoryStorage_UpdateComplaintStaleVersion(t *testing.T) {
	ctx := context.Background()
	s := storage.NewMemoryStorage()
	c := seedComplaint(t, s, "u1")

	first, err := s.GetComplaintByID(ctx, c.ID)
	require.NoError(t, err)
	second, err := s.GetComplaintByID(ctx, c.ID)
	require.NoError(t, err)

	first.Status = models.StatusAssigned
	require.NoError(t, s.UpdateComplaint(ctx, first))
	assert.Equal(t, 2, first.Version)

	second.Status = models.StatusAssigned
	err = s.UpdateComplaint(ctx, second)
	assert.True(t, apperr.Is(err, apperr.KindConflict))
}

func TestMemoryStorage_TransactionRollsBack(t *testing.T) {
	ctx := context.Background()
	s := storage.NewMemoryStorage()
	c := seedComplaint(t, s, "u1")
	boom := errors.New("boom")

	err := s.Transaction(ctx, func(tx storage.Storage) error {
		current, err := tx.GetComplaintByID(ctx, c.ID)
		require.NoError(t, err)
		current.Status = models.StatusAssigned
		require.NoError(t, tx.UpdateComplaint(ctx, current))
		require.NoError(t, tx.AppendActivity(ctx, &models.ActivityLog{Action: models.ActionAssigned, ComplaintID: c.ID, UserID: "agent"}))

		// the transaction sees its own writes
		seen, err := tx.GetComplaintByID(ctx, c.ID)
		require.NoError(t, err)
		assert.Equal(t, models.StatusAssigned, seen.Status)
		return boom
	})
	assert.ErrorIs(t, err, boom)

	got, err := s.GetComplaintByID(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, got.Status)
	logs, err := s.ListActivityByComplaint(ctx, c.ID)
	require.NoError(t, err)
	assert.Empty(t, logs)
}

func TestMemoryStorage_ConcurrentTransactionsConflictAtCommit(t *testing.T) {
	ctx := context.Background()
	s := storage.NewMemoryStorage()
	c := seedComplaint(t, s, "u1")

	err := s.Transaction(ctx, func(outer storage.Storage) error {
		stale, err := outer.GetComplaintByID(ctx, c.ID)
		require.NoError(t, err)

		// another writer commits in between
		winner, err := s.GetComplaintByID(ctx, c.ID)
		require.NoError(t, err)
		winner.Status = models.StatusAssigned
		require.NoError(t, s.UpdateComplaint(ctx, winner))

		stale.Status = models.StatusAssigned
		return outer.UpdateComplaint(ctx, stale)
	})
	assert.True(t, apperr.Is(err, apperr.KindConflict))
}

func TestMemoryStorage_ActivityNewestFirst(t *testing.T) {
	ctx := context.Background()
	s := storage.NewMemoryStorage()
	c := seedComplaint(t, s, "u1")
	base := time.Now()

	for i, action := range []string{models.ActionCreated, models.ActionAssigned, models.ActionStarted} {
		require.NoError(t, s.AppendActivity(ctx, &models.ActivityLog{
			Action:      action,
			ComplaintID: c.ID,
			UserID:      "u1",
			CreatedAt:   base.Add(time.Duration(i) * time.Second),
		}))
	}

	logs, err := s.ListActivityByComplaint(ctx, c.ID)
	require.NoError(t, err)
	require.Len(t, logs, 3)
	assert.Equal(t, models.ActionStarted, logs[0].Action)
	assert.Equal(t, models.ActionCreated, logs[2].Action)

	ok, err := s.HasActivity(ctx, c.ID, models.ActionAssigned)
	require.NoError(t, err)
	assert.True(t, ok)

	err = s.AppendActivity(ctx, &models.ActivityLog{Action: models.ActionCreated, ComplaintID: "missing", UserID: "u1"})
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}

func TestMemoryStorage_DeleteCascadesLogs(t *testing.T) {
	ctx := context.Background()
	s := storage.NewMemoryStorage()
	c := seedComplaint(t, s, "u1")
	other := seedComplaint(t, s, "u1")
	require.NoError(t, s.AppendActivity(ctx, &models.ActivityLog{Action: models.ActionCreated, ComplaintID: c.ID, UserID: "u1"}))
	require.NoError(t, s.AppendActivity(ctx, &models.ActivityLog{Action: models.ActionCreated, ComplaintID: other.ID, UserID: "u1"}))

	require.NoError(t, s.DeleteComplaint(ctx, c.ID))

	_, err := s.GetComplaintByID(ctx, c.ID)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
	byUser, err := s.ListActivityByUser(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, byUser, 1)
	assert.Equal(t, other.ID, byUser[0].ComplaintID)

	assert.True(t, apperr.Is(s.DeleteComplaint(ctx, c.ID), apperr.KindNotFound))
}

func TestMemoryStorage_FilterAndCounts(t *testing.T) {
	ctx := context.Background()
	s := storage.NewMemoryStorage()
	worker := "w1"

	a := seedComplaint(t, s, "u1")
	seedComplaint(t, s, "u1")
	seedComplaint(t, s, "u2")

	got, err := s.GetComplaintByID(ctx, a.ID)
	require.NoError(t, err)
	got.Status = models.StatusAssigned
	got.AssignedWorkerID = &worker
	got.Priority = models.PriorityHigh
	require.NoError(t, s.UpdateComplaint(ctx, got))

	n, err := s.CountComplaints(ctx, storage.ComplaintFilter{CitizenID: "u1"})
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)

	n, err = s.CountComplaints(ctx, storage.ComplaintFilter{WorkerID: worker, Statuses: []models.Status{models.StatusAssigned}})
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	byStatus, err := s.CountByStatus(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 2, byStatus[models.StatusPending])
	assert.EqualValues(t, 1, byStatus[models.StatusAssigned])

	byPriority, err := s.CountByPriority(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, byPriority[models.PriorityHigh])
	assert.EqualValues(t, 2, byPriority[models.PriorityMedium])

	page, err := s.ListComplaints(ctx, storage.ComplaintFilter{Offset: 1, Limit: 1})
	require.NoError(t, err)
	assert.Len(t, page, 1)

	empty, err := s.ListComplaints(ctx, storage.ComplaintFilter{Offset: 10})
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestMemoryStorage_SetUserActive(t *testing.T) {
	ctx := context.Background()
	s := storage.NewMemoryStorage()
	w := &models.User{Email: "w@example.com", Role: models.RoleWorker, IsActive: true}
	require.NoError(t, s.CreateUser(ctx, w))

	require.NoError(t, s.SetUserActive(ctx, w.ID, false))
	active, err := s.ListUsers(ctx, storage.UserFilter{Role: models.RoleWorker, ActiveOnly: true})
	require.NoError(t, err)
	assert.Empty(t, active)

	all, err := s.ListUsers(ctx, storage.UserFilter{Role: models.RoleWorker})
	require.NoError(t, err)
	assert.Len(t, all, 1)

	assert.True(t, apperr.Is(s.SetUserActive(ctx, "missing", true), apperr.KindNotFound))
}
