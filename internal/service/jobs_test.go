package service

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJobManagerCreate(t *testing.T) {
	m := NewJobManager()

	job := m.Create()
	require.NotEmpty(t, job.ID)

	snap := job.Snapshot()
	assert.Equal(t, JobStatusPending, snap.Status)
	assert.Equal(t, MsgAccepted, snap.Message)
	assert.Empty(t, snap.SessionID)
	assert.Empty(t, snap.Error)
}

func TestJobManagerGetUnknown(t *testing.T) {
	m := NewJobManager()

	_, err := m.Get("no-such-job")
	assert.ErrorIs(t, err, ErrJobNotFound)
}

func TestJobLifecycleCompleted(t *testing.T) {
	m := NewJobManager()
	job := m.Create()

	m.SetProcessing(job, 1, MsgDownloading)
	snap := job.Snapshot()
	assert.Equal(t, JobStatusProcessing, snap.Status)
	assert.Equal(t, MsgDownloading, snap.Message)
	assert.Equal(t, 1, snap.Stage)

	m.SetProcessing(job, 4, MsgEmbedding)
	m.Complete(job, "session-123")

	snap = job.Snapshot()
	assert.Equal(t, JobStatusCompleted, snap.Status)
	assert.Equal(t, MsgReady, snap.Message)
	assert.Equal(t, "session-123", snap.SessionID)
	assert.Equal(t, TotalStages, snap.Stage)
	require.NotNil(t, snap.CompletedAt)
}

func TestJobLifecycleFailed(t *testing.T) {
	m := NewJobManager()
	job := m.Create()

	m.SetProcessing(job, 2, MsgExtracting)
	m.Fail(job, errors.New("yt-dlp exploded"))

	snap := job.Snapshot()
	assert.Equal(t, JobStatusFailed, snap.Status)
	assert.Equal(t, "yt-dlp exploded", snap.Error)
	assert.Empty(t, snap.SessionID, "failed job must not expose a session")
	require.NotNil(t, snap.CompletedAt)
}

func TestJobManagerListMostRecentFirst(t *testing.T) {
	m := NewJobManager()

	first := m.Create()
	first.StartedAt = time.Now().Add(-time.Hour)
	second := m.Create()

	jobs := m.List()
	require.Len(t, jobs, 2)
	assert.Equal(t, second.ID, jobs[0].ID)
	assert.Equal(t, first.ID, jobs[1].ID)
}

func TestJobSnapshotIsRaceSafeCopy(t *testing.T) {
	m := NewJobManager()
	job := m.Create()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 100; i++ {
			m.SetProcessing(job, i%TotalStages, MsgEmbedding)
		}
	}()

	for i := 0; i < 100; i++ {
		snap := job.Snapshot()
		assert.NotEmpty(t, snap.ID)
	}
	<-done
}
