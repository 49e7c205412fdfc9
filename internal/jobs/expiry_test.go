package jobs

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockExpirer struct {
	mock.Mock
}

func (m *MockExpirer) ExpireStalePending(ctx context.Context, ttl time.Duration, batch int) (int, error) {
	args := m.Called(ttl, batch)
	return args.Int(0), args.Error(1)
}

func TestExpiryJob_RunLogsCount(t *testing.T) {
	logger, hook := test.NewNullLogger()
	ex := new(MockExpirer)
	ex.On("ExpireStalePending", 15*time.Minute, 100).Return(3, nil)

	NewExpiryJob(ex, 15*time.Minute, logger).Run()

	ex.AssertExpectations(t)
	require.NotNil(t, hook.LastEntry())
	assert.Equal(t, logrus.InfoLevel, hook.LastEntry().Level)
	assert.Equal(t, 3, hook.LastEntry().Data["expired"])
}

func TestExpiryJob_RunLogsError(t *testing.T) {
	logger, hook := test.NewNullLogger()
	ex := new(MockExpirer)
	ex.On("ExpireStalePending", time.Minute, 100).Return(1, errors.New("db down"))

	NewExpiryJob(ex, time.Minute, logger).Run()

	require.NotNil(t, hook.LastEntry())
	assert.Equal(t, logrus.ErrorLevel, hook.LastEntry().Level)
}

func TestExpiryJob_NothingToDoIsQuiet(t *testing.T) {
	logger, hook := test.NewNullLogger()
	ex := new(MockExpirer)
	ex.On("ExpireStalePending", time.Minute, 100).Return(0, nil)

	NewExpiryJob(ex, time.Minute, logger).Run()

	assert.Empty(t, hook.AllEntries())
}

func TestScheduler_RejectsBadSpec(t *testing.T) {
	logger, _ := test.NewNullLogger()
	s := NewScheduler(logger)
	assert.Error(t, s.Add("not a schedule", NewExpiryJob(new(MockExpirer), time.Minute, logger)))
	assert.NoError(t, s.Add("@every 1m", NewExpiryJob(new(MockExpirer), time.Minute, logger)))
}
