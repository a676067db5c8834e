package storage

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"wastetrack/backend/internal/apperr"
	"wastetrack/backend/internal/models"

	"github.com/google/uuid"
)

// MemoryStorage keeps everything in process. Transactions stage their writes
// and validate complaint versions at commit, so they behave like the
// optimistic updates of the database Service.
type MemoryStorage struct {
	mu         sync.RWMutex
	users      map[string]*models.User
	complaints map[string]*models.Complaint
	logs       []models.ActivityLog
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		users:      make(map[string]*models.User),
		complaints: make(map[string]*models.Complaint),
	}
}

type stagedComplaint struct {
	complaint   *models.Complaint
	baseVersion int
	created     bool
}

// memTx is a transactional view over a MemoryStorage.
type memTx struct {
	base       *MemoryStorage
	users      map[string]*models.User
	complaints map[string]*stagedComplaint
	deleted    map[string]bool
	logs       []models.ActivityLog
}

func (m *MemoryStorage) begin() *memTx {
	return &memTx{
		base:       m,
		users:      make(map[string]*models.User),
		complaints: make(map[string]*stagedComplaint),
		deleted:    make(map[string]bool),
	}
}

func (m *MemoryStorage) Transaction(ctx context.Context, fn func(tx Storage) error) error {
	tx := m.begin()
	if err := fn(tx); err != nil {
		return err
	}
	return tx.commit()
}

// run executes a single operation as its own transaction.
func (m *MemoryStorage) run(ctx context.Context, fn func(tx *memTx) error) error {
	tx := m.begin()
	if err := fn(tx); err != nil {
		return err
	}
	return tx.commit()
}

func (t *memTx) Transaction(ctx context.Context, fn func(tx Storage) error) error {
	return fn(t)
}

func (t *memTx) commit() error {
	b := t.base
	b.mu.Lock()
	defer b.mu.Unlock()

	for id, s := range t.complaints {
		current, exists := b.complaints[id]
		switch {
		case s.created && exists:
			return apperr.Conflict("complaint already exists")
		case !s.created && !exists:
			return apperr.NotFound("complaint not found with id: %s", id)
		case !s.created && current.Version != s.baseVersion:
			return apperr.Conflict("complaint %s was modified concurrently", id)
		}
	}
	for id := range t.deleted {
		if _, ok := b.complaints[id]; !ok {
			return apperr.NotFound("complaint not found with id: %s", id)
		}
	}
	for id, u := range t.users {
		for otherID, other := range b.users {
			if otherID != id && strings.EqualFold(other.Email, u.Email) {
				return apperr.Conflict("user already exists")
			}
		}
	}
	for _, l := range t.logs {
		if _, ok := b.complaints[l.ComplaintID]; !ok {
			if _, staged := t.complaints[l.ComplaintID]; !staged {
				return apperr.NotFound("complaint not found with id: %s", l.ComplaintID)
			}
		}
	}

	for id, u := range t.users {
		b.users[id] = u
	}
	for id, s := range t.complaints {
		b.complaints[id] = s.complaint
	}
	b.logs = append(b.logs, t.logs...)
	for id := range t.deleted {
		delete(b.complaints, id)
		kept := b.logs[:0]
		for _, l := range b.logs {
			if l.ComplaintID != id {
				kept = append(kept, l)
			}
		}
		b.logs = kept
	}
	return nil
}

// --- users ---

func (t *memTx) user(id string) *models.User {
	if u, ok := t.users[id]; ok {
		return u
	}
	t.base.mu.RLock()
	defer t.base.mu.RUnlock()
	return t.base.users[id]
}

func (t *memTx) allUsers() []*models.User {
	t.base.mu.RLock()
	all := make(map[string]*models.User, len(t.base.users)+len(t.users))
	for id, u := range t.base.users {
		all[id] = u
	}
	t.base.mu.RUnlock()
	for id, u := range t.users {
		all[id] = u
	}

	out := make([]*models.User, 0, len(all))
	for _, u := range all {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

func (t *memTx) CreateUser(ctx context.Context, user *models.User) error {
	for _, u := range t.allUsers() {
		if strings.EqualFold(u.Email, user.Email) {
			return apperr.Conflict("user already exists")
		}
	}
	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	now := time.Now()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	user.UpdatedAt = now
	cp := *user
	t.users[user.ID] = &cp
	return nil
}

func (t *memTx) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	u := t.user(id)
	if u == nil {
		return nil, apperr.NotFound("user not found with id: %s", id)
	}
	cp := *u
	return &cp, nil
}

func (t *memTx) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	for _, u := range t.allUsers() {
		if strings.EqualFold(u.Email, email) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, apperr.NotFound("user not found with id: %s", email)
}

func (t *memTx) ListUsers(ctx context.Context, filter UserFilter) ([]models.User, error) {
	out := []models.User{}
	for _, u := range t.allUsers() {
		if filter.Role != "" && u.Role != filter.Role {
			continue
		}
		if filter.ActiveOnly && !u.IsActive {
			continue
		}
		out = append(out, *u)
	}
	return out, nil
}

func (t *memTx) SetUserActive(ctx context.Context, id string, active bool) error {
	u := t.user(id)
	if u == nil {
		return apperr.NotFound("user not found with id: %s", id)
	}
	cp := *u
	cp.IsActive = active
	cp.UpdatedAt = time.Now()
	t.users[id] = &cp
	return nil
}

// --- complaints ---

// complaint returns the stored complaint as seen by the transaction, or nil.
func (t *memTx) complaint(id string) *models.Complaint {
	if t.deleted[id] {
		return nil
	}
	if s, ok := t.complaints[id]; ok {
		return s.complaint
	}
	t.base.mu.RLock()
	defer t.base.mu.RUnlock()
	return t.base.complaints[id]
}

func (t *memTx) withAssociations(c *models.Complaint) models.Complaint {
	out := *c.Clone()
	if u := t.user(c.CitizenID); u != nil {
		cp := *u
		out.Citizen = &cp
	}
	if c.AssignedWorkerID != nil {
		if u := t.user(*c.AssignedWorkerID); u != nil {
			cp := *u
			out.AssignedWorker = &cp
		}
	}
	return out
}

func (t *memTx) CreateComplaint(ctx context.Context, complaint *models.Complaint) error {
	if complaint.ID == "" {
		complaint.ID = uuid.New().String()
	}
	if t.complaint(complaint.ID) != nil {
		return apperr.Conflict("complaint already exists")
	}
	if complaint.Version == 0 {
		complaint.Version = 1
	}
	t.complaints[complaint.ID] = &stagedComplaint{complaint: complaint.Clone(), created: true}
	return nil
}

func (t *memTx) GetComplaintByID(ctx context.Context, id string) (*models.Complaint, error) {
	c := t.complaint(id)
	if c == nil {
		return nil, apperr.NotFound("complaint not found with id: %s", id)
	}
	out := t.withAssociations(c)
	return &out, nil
}

func (t *memTx) UpdateComplaint(ctx context.Context, complaint *models.Complaint) error {
	current := t.complaint(complaint.ID)
	if current == nil {
		return apperr.NotFound("complaint not found with id: %s", complaint.ID)
	}
	if current.Version != complaint.Version {
		return apperr.Conflict("complaint %s was modified concurrently", complaint.ID)
	}

	next := complaint.Clone()
	next.CitizenID = current.CitizenID
	next.CreatedAt = current.CreatedAt
	next.Version = complaint.Version + 1

	if s, ok := t.complaints[complaint.ID]; ok {
		s.complaint = next
	} else {
		t.complaints[complaint.ID] = &stagedComplaint{complaint: next, baseVersion: current.Version}
	}
	complaint.Version = next.Version
	return nil
}

func (t *memTx) DeleteComplaint(ctx context.Context, id string) error {
	if t.complaint(id) == nil {
		return apperr.NotFound("complaint not found with id: %s", id)
	}
	if s, ok := t.complaints[id]; ok && s.created {
		delete(t.complaints, id)
	} else {
		delete(t.complaints, id)
		t.deleted[id] = true
	}
	kept := t.logs[:0]
	for _, l := range t.logs {
		if l.ComplaintID != id {
			kept = append(kept, l)
		}
	}
	t.logs = kept
	return nil
}

func (t *memTx) matching(filter ComplaintFilter) []*models.Complaint {
	t.base.mu.RLock()
	ids := make(map[string]struct{}, len(t.base.complaints)+len(t.complaints))
	for id := range t.base.complaints {
		ids[id] = struct{}{}
	}
	t.base.mu.RUnlock()
	for id := range t.complaints {
		ids[id] = struct{}{}
	}

	var out []*models.Complaint
	for id := range ids {
		c := t.complaint(id)
		if c == nil || !matches(c, filter) {
			continue
		}
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

func matches(c *models.Complaint, filter ComplaintFilter) bool {
	if filter.CitizenID != "" && c.CitizenID != filter.CitizenID {
		return false
	}
	if filter.WorkerID != "" && !c.IsAssignedTo(filter.WorkerID) {
		return false
	}
	if len(filter.Statuses) > 0 {
		for _, s := range filter.Statuses {
			if c.Status == s {
				return true
			}
		}
		return false
	}
	return true
}

func (t *memTx) ListComplaints(ctx context.Context, filter ComplaintFilter) ([]models.Complaint, error) {
	all := t.matching(filter)
	if filter.Offset > 0 {
		if filter.Offset >= len(all) {
			all = nil
		} else {
			all = all[filter.Offset:]
		}
	}
	if filter.Limit > 0 && len(all) > filter.Limit {
		all = all[:filter.Limit]
	}

	out := make([]models.Complaint, 0, len(all))
	for _, c := range all {
		out = append(out, t.withAssociations(c))
	}
	return out, nil
}

func (t *memTx) CountComplaints(ctx context.Context, filter ComplaintFilter) (int64, error) {
	filter.Offset, filter.Limit = 0, 0
	return int64(len(t.matching(filter))), nil
}

func (t *memTx) CountByStatus(ctx context.Context) (map[models.Status]int64, error) {
	out := make(map[models.Status]int64)
	for _, c := range t.matching(ComplaintFilter{}) {
		out[c.Status]++
	}
	return out, nil
}

func (t *memTx) CountByPriority(ctx context.Context) (map[models.Priority]int64, error) {
	out := make(map[models.Priority]int64)
	for _, c := range t.matching(ComplaintFilter{}) {
		out[c.Priority]++
	}
	return out, nil
}

// --- activity logs ---

func (t *memTx) AppendActivity(ctx context.Context, entry *models.ActivityLog) error {
	if t.complaint(entry.ComplaintID) == nil {
		return apperr.NotFound("complaint not found with id: %s", entry.ComplaintID)
	}
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}
	cp := *entry
	cp.User = nil
	t.logs = append(t.logs, cp)
	return nil
}

// activity returns the entries visible to the transaction, newest first.
// Equal timestamps keep reverse insertion order.
func (t *memTx) activity(keep func(models.ActivityLog) bool) []models.ActivityLog {
	t.base.mu.RLock()
	all := make([]models.ActivityLog, 0, len(t.base.logs)+len(t.logs))
	all = append(all, t.base.logs...)
	t.base.mu.RUnlock()
	all = append(all, t.logs...)

	out := []models.ActivityLog{}
	for i := len(all) - 1; i >= 0; i-- {
		l := all[i]
		if t.deleted[l.ComplaintID] || !keep(l) {
			continue
		}
		out = append(out, l)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

func (t *memTx) ListActivityByComplaint(ctx context.Context, complaintID string) ([]models.ActivityLog, error) {
	return t.activity(func(l models.ActivityLog) bool { return l.ComplaintID == complaintID }), nil
}

func (t *memTx) ListActivityByUser(ctx context.Context, userID string) ([]models.ActivityLog, error) {
	return t.activity(func(l models.ActivityLog) bool { return l.UserID == userID }), nil
}

func (t *memTx) HasActivity(ctx context.Context, complaintID, action string) (bool, error) {
	logs := t.activity(func(l models.ActivityLog) bool {
		return l.ComplaintID == complaintID && l.Action == action
	})
	return len(logs) > 0, nil
}

// --- MemoryStorage delegates every call to a single-operation transaction ---

func (m *MemoryStorage) CreateUser(ctx context.Context, user *models.User) error {
	return m.run(ctx, func(tx *memTx) error { return tx.CreateUser(ctx, user) })
}

func (m *MemoryStorage) GetUserByID(ctx context.Context, id string) (user *models.User, err error) {
	err = m.run(ctx, func(tx *memTx) error {
		user, err = tx.GetUserByID(ctx, id)
		return err
	})
	return user, err
}

func (m *MemoryStorage) GetUserByEmail(ctx context.Context, email string) (user *models.User, err error) {
	err = m.run(ctx, func(tx *memTx) error {
		user, err = tx.GetUserByEmail(ctx, email)
		return err
	})
	return user, err
}

func (m *MemoryStorage) ListUsers(ctx context.Context, filter UserFilter) ([]models.User, error) {
	return m.begin().ListUsers(ctx, filter)
}

func (m *MemoryStorage) SetUserActive(ctx context.Context, id string, active bool) error {
	return m.run(ctx, func(tx *memTx) error { return tx.SetUserActive(ctx, id, active) })
}

func (m *MemoryStorage) CreateComplaint(ctx context.Context, complaint *models.Complaint) error {
	return m.run(ctx, func(tx *memTx) error { return tx.CreateComplaint(ctx, complaint) })
}

func (m *MemoryStorage) GetComplaintByID(ctx context.Context, id string) (*models.Complaint, error) {
	return m.begin().GetComplaintByID(ctx, id)
}

func (m *MemoryStorage) UpdateComplaint(ctx context.Context, complaint *models.Complaint) error {
	return m.run(ctx, func(tx *memTx) error { return tx.UpdateComplaint(ctx, complaint) })
}

func (m *MemoryStorage) DeleteComplaint(ctx context.Context, id string) error {
	return m.run(ctx, func(tx *memTx) error { return tx.DeleteComplaint(ctx, id) })
}

func (m *MemoryStorage) ListComplaints(ctx context.Context, filter ComplaintFilter) ([]models.Complaint, error) {
	return m.begin().ListComplaints(ctx, filter)
}

func (m *MemoryStorage) CountComplaints(ctx context.Context, filter ComplaintFilter) (int64, error) {
	return m.begin().CountComplaints(ctx, filter)
}

func (m *MemoryStorage) CountByStatus(ctx context.Context) (map[models.Status]int64, error) {
	return m.begin().CountByStatus(ctx)
}

func (m *MemoryStorage) CountByPriority(ctx context.Context) (map[models.Priority]int64, error) {
	return m.begin().CountByPriority(ctx)
}

func (m *MemoryStorage) AppendActivity(ctx context.Context, entry *models.ActivityLog) error {
	return m.run(ctx, func(tx *memTx) error { return tx.AppendActivity(ctx, entry) })
}

func (m *MemoryStorage) ListActivityByComplaint(ctx context.Context, complaintID string) ([]models.ActivityLog, error) {
	return m.begin().ListActivityByComplaint(ctx, complaintID)
}

func (m *MemoryStorage) ListActivityByUser(ctx context.Context, userID string) ([]models.ActivityLog, error) {
	return m.begin().ListActivityByUser(ctx, userID)
}

func (m *MemoryStorage) HasActivity(ctx context.Context, complaintID, action string) (bool, error) {
	return m.begin().HasActivity(ctx, complaintID, action)
}
