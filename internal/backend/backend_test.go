package backend

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ecobud/internal/config"
	"ecobud/internal/jobs"
)

func TestFromAppConfig(t *testing.T) {
	cfg, err := FromAppConfig(&config.Config{DataBackend: "mongo", MongoURI: "mongodb://db:27017", MongoDatabase: "ecobud"})
	require.NoError(t, err)
	assert.Equal(t, MongoBackend, cfg.Type)
	assert.Equal(t, "ecobud", cfg.MongoDatabase)

	_, err = FromAppConfig(&config.Config{DataBackend: "sheets"})
	assert.Error(t, err)

	_, err = FromAppConfig(nil)
	assert.Error(t, err)
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{name: "memory", cfg: Config{Type: MemoryBackend}},
		{name: "sqlite", cfg: Config{Type: SQLiteBackend, SQLiteDBPath: "x.db"}},
		{name: "sqlite without path", cfg: Config{Type: SQLiteBackend}, wantErr: true},
		{name: "mongo", cfg: Config{Type: MongoBackend, MongoURI: "mongodb://x", MongoDatabase: "d"}},
		{name: "mongo without database", cfg: Config{Type: MongoBackend, MongoURI: "mongodb://x"}, wantErr: true},
		{name: "unknown", cfg: Config{Type: "sheets"}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestFactory_CreateBackend(t *testing.T) {
	f := NewFactory(nil)

	res, err := f.CreateBackend(context.Background(), Config{Type: MemoryBackend})
	require.NoError(t, err)
	require.NoError(t, res.Store.Ping(context.Background()))
	require.NoError(t, res.Cleanup())

	path := t.TempDir() + "/ecobud.db"
	res, err = f.CreateBackend(context.Background(), Config{Type: SQLiteBackend, SQLiteDBPath: path})
	require.NoError(t, err)
	require.NoError(t, res.Store.Ping(context.Background()))
	require.NoError(t, res.Cleanup())
}

func TestGetBackendTypeStrings(t *testing.T) {
	assert.Equal(t, []string{"memory", "sqlite", "mongo"}, GetBackendTypeStrings())
}

func TestNewDispatcher_InProcess(t *testing.T) {
	d, err := NewDispatcher(DispatcherConfig{Workers: 1, QueueSize: 4}, nil)
	require.NoError(t, err)
	require.NotNil(t, d.Queue)
	assert.Nil(t, d.Broker)

	done := make(chan struct{})
	require.NoError(t, d.Queue.Start(context.Background(), func(context.Context, *jobs.SyncJob) (jobs.SyncOutcome, error) {
		close(done)
		return jobs.SyncOutcome{Count: 1}, nil
	}))

	job := jobs.NewSyncJob("alice", 1, 0)
	require.NoError(t, d.Publisher.PublishSync(context.Background(), job))

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("job never ran")
	}
	require.Eventually(t, func() bool {
		got, err := d.Jobs.GetJob(context.Background(), job.JobID)
		return err == nil && got.Status == jobs.JobStatusCompleted
	}, 2*time.Second, 10*time.Millisecond)
	require.NoError(t, d.Close())
}
