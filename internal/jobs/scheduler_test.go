package jobs

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ldotspots/zuco-motors/internal/events"
)

type recordingQueue struct {
	tasks []events.Task
	err   error
}

func (q *recordingQueue) Enqueue(_ context.Context, t events.Task) error {
	q.tasks = append(q.tasks, t)
	return q.err
}

func TestEnqueueExpiry(t *testing.T) {
	q := &recordingQueue{}
	s := NewScheduler(q, zerolog.Nop())

	s.enqueueExpiry()
	require.Len(t, q.tasks, 1)
	assert.Equal(t, events.TaskExpireBookings, q.tasks[0].Type)

	q.err = errors.New("redis down")
	s.enqueueExpiry()
	assert.Len(t, q.tasks, 2)
}

func TestStartRegistersExpiryJob(t *testing.T) {
	s := NewScheduler(&recordingQueue{}, zerolog.Nop())
	require.NoError(t, s.Start())
	assert.Len(t, s.cron.Entries(), 1)
	<-s.Stop().Done()
}

func TestStartWithoutQueueIsNoop(t *testing.T) {
	s := NewScheduler(nil, zerolog.Nop())
	require.NoError(t, s.Start())
	assert.Empty(t, s.cron.Entries())
}
