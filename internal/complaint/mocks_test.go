package complaint_test

import (
	"context"
	"errors"

	"wastetrack/backend/internal/filestore"
	"wastetrack/backend/internal/storage"

	"github.com/stretchr/testify/mock"
)

// MockFiles is a testify mock of filestore.Store.
type MockFiles struct {
	mock.Mock
}

func (m *MockFiles) Save(ctx context.Context, up *filestore.Upload) (string, error) {
	args := m.Called(ctx, up)
	return args.String(0), args.Error(1)
}

func (m *MockFiles) Delete(ctx context.Context, path string) error {
	args := m.Called(ctx, path)
	return args.Error(0)
}

func upload(name string) *filestore.Upload {
	return &filestore.Upload{Filename: name, ContentType: "image/jpeg"}
}

func named(name string) interface{} {
	return mock.MatchedBy(func(up *filestore.Upload) bool { return up != nil && up.Filename == name })
}

var errCommit = errors.New("commit failed")

// failingCommit runs the transaction body normally and then fails the commit.
type failingCommit struct {
	storage.Storage
}

func (f failingCommit) Transaction(ctx context.Context, fn func(tx storage.Storage) error) error {
	return f.Storage.Transaction(ctx, func(tx storage.Storage) error {
		if err := fn(tx); err != nil {
			return err
		}
		return errCommit
	})
}

// noLock lets concurrent transitions race into the storage version check.
type noLock struct{}

func (noLock) Lock(ctx context.Context, key string) (func(), error) {
	return func() {}, nil
}
