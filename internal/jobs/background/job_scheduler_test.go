package background

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockArchiveService struct {
	mock.Mock
}

func (m *MockArchiveService) Store(ctx context.Context, tenantID, importID uuid.UUID, fileName string, reader io.Reader, size int64) (string, error) {
	args := m.Called(ctx, tenantID, importID, fileName, reader, size)
	return args.String(0), args.Error(1)
}

func (m *MockArchiveService) Fetch(ctx context.Context, objectKey string) (io.ReadCloser, error) {
	args := m.Called(ctx, objectKey)
	return args.Get(0).(io.ReadCloser), args.Error(1)
}

func (m *MockArchiveService) PurgeOlderThan(ctx context.Context, cutoff time.Time) (int, error) {
	args := m.Called(ctx, cutoff)
	return args.Int(0), args.Error(1)
}

func (m *MockArchiveService) EnsureBucketExists(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *MockArchiveService) Ping(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func TestJobScheduler_RegistersRetentionSweep(t *testing.T) {
	logger, _ := test.NewNullLogger()

	js, err := NewJobScheduler(&MockArchiveService{}, 90*24*time.Hour, logger)
	require.NoError(t, err)
	assert.Equal(t, []string{"archive-retention"}, js.JobNames())

	require.NoError(t, js.RemoveJob("archive-retention"))
	assert.Empty(t, js.JobNames())

	disabled, err := NewJobScheduler(&MockArchiveService{}, 0, logger)
	require.NoError(t, err)
	assert.Empty(t, disabled.JobNames())
}

func TestJobScheduler_PurgeArchive(t *testing.T) {
	logger, hook := test.NewNullLogger()
	archive := &MockArchiveService{}
	js, err := NewJobScheduler(archive, 30*24*time.Hour, logger)
	require.NoError(t, err)

	now := time.Date(2024, 3, 31, 2, 0, 0, 0, time.UTC)
	js.now = func() time.Time { return now }
	cutoff := time.Date(2024, 3, 1, 2, 0, 0, 0, time.UTC)

	archive.On("PurgeOlderThan", mock.Anything, cutoff).Return(4, nil).Once()
	require.NoError(t, js.purgeArchive(context.Background()))
	assert.Equal(t, 4, hook.LastEntry().Data["removed"])

	archive.On("PurgeOlderThan", mock.Anything, cutoff).Return(1, errors.New("access denied")).Once()
	assert.Error(t, js.purgeArchive(context.Background()))

	archive.AssertExpectations(t)
}
