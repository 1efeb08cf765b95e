package store

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/codeready-toolchain/fortuned/pkg/apperr"
	"github.com/codeready-toolchain/fortuned/pkg/database"
	"github.com/codeready-toolchain/fortuned/pkg/models"
	"github.com/codeready-toolchain/fortuned/pkg/statuscode"
)

func testDB(t *testing.T) *sql.DB {
	t.Helper()
	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("fortuned_test"),
		postgres.WithUsername("test"),
		postgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second)),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := testcontainers.TerminateContainer(pgContainer); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	host, err := pgContainer.Host(ctx)
	require.NoError(t, err)
	port, err := pgContainer.MappedPort(ctx, "5432/tcp")
	require.NoError(t, err)

	db, err := database.NewClient(ctx, database.Config{
		Host:         host,
		Port:         port.Int(),
		User:         "test",
		Password:     "test",
		Database:     "fortuned_test",
		SSLMode:      "disable",
		MaxOpenConns: 10,
		MaxIdleConns: 5,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	return db
}

func newTask(owner string) *models.Task {
	return &models.Task{
		OwnerID:  owner,
		DeityID:  "mazu",
		Number:   7,
		Question: "will my business succeed",
		Language: "zh",
	}
}

func TestCreateThenGet(t *testing.T) {
	s := New(testDB(t))
	ctx := context.Background()

	task := newTask("owner-1")
	id, err := s.Create(ctx, task)
	require.NoError(t, err)

	got, err := s.Get(ctx, id, "owner-1")
	require.NoError(t, err)
	assert.Equal(t, models.TaskQueued, got.State)
	assert.Equal(t, "will my business succeed", got.Question)
}

func TestGetRejectsWrongOwner(t *testing.T) {
	s := New(testDB(t))
	ctx := context.Background()

	id, err := s.Create(ctx, newTask("owner-1"))
	require.NoError(t, err)

	_, err = s.Get(ctx, id, "owner-2")
	assert.Error(t, err)
}

func TestClaimNextIsAtomicAndFIFO(t *testing.T) {
	s := New(testDB(t))
	ctx := context.Background()

	id1, err := s.Create(ctx, newTask("owner-1"))
	require.NoError(t, err)
	time.Sleep(10 * time.Millisecond)
	_, err = s.Create(ctx, newTask("owner-1"))
	require.NoError(t, err)

	claimed, err := s.ClaimNext(ctx, "worker-1")
	require.NoError(t, err)
	require.NotNil(t, claimed)
	assert.Equal(t, id1, claimed.ID)
	assert.Equal(t, models.TaskProcessing, claimed.State)
	assert.Equal(t, "worker-1", claimed.ClaimedBy)
}

func TestClaimNextReturnsNilWhenQueueEmpty(t *testing.T) {
	s := New(testDB(t))
	claimed, err := s.ClaimNext(context.Background(), "worker-1")
	require.NoError(t, err)
	assert.Nil(t, claimed)
}

func TestUpdateProgressRejectsDecrease(t *testing.T) {
	s := New(testDB(t))
	ctx := context.Background()

	_, err := s.Create(ctx, newTask("owner-1"))
	require.NoError(t, err)
	claimed, err := s.ClaimNext(ctx, "worker-1")
	require.NoError(t, err)

	require.NoError(t, s.UpdateProgress(ctx, claimed.ID, statuscode.RetrievingContext, 50, "searching"))

	err = s.UpdateProgress(ctx, claimed.ID, statuscode.Initializing, 10, "should not regress")
	require.Error(t, err)
	assert.ErrorIs(t, err, apperr.ErrConflictingUpdate)
}

func TestCompleteThenGetReflectsTerminalState(t *testing.T) {
	s := New(testDB(t))
	ctx := context.Background()

	_, err := s.Create(ctx, newTask("owner-1"))
	require.NoError(t, err)
	claimed, err := s.ClaimNext(ctx, "worker-1")
	require.NoError(t, err)

	result := &models.TaskResult{Response: "a fine fortune", Confidence: 0.8, CanGenerateReport: true}
	require.NoError(t, s.Complete(ctx, claimed.ID, result, nil, 0.8, []string{"chunk-1"}, 1500))

	got, err := s.Get(ctx, claimed.ID, "owner-1")
	require.NoError(t, err)
	assert.Equal(t, models.TaskCompleted, got.State)
	assert.Equal(t, 100, got.Progress)
	assert.Equal(t, "a fine fortune", got.Response)
	require.NotNil(t, got.Confidence)
	assert.InDelta(t, 0.8, *got.Confidence, 0.001)
}

func TestFailSetsErrorCategory(t *testing.T) {
	s := New(testDB(t))
	ctx := context.Background()

	_, err := s.Create(ctx, newTask("owner-1"))
	require.NoError(t, err)
	claimed, err := s.ClaimNext(ctx, "worker-1")
	require.NoError(t, err)

	require.NoError(t, s.Fail(ctx, claimed.ID, apperr.CategoryTimeout, "llm call timed out"))

	got, err := s.Get(ctx, claimed.ID, "owner-1")
	require.NoError(t, err)
	assert.Equal(t, models.TaskFailed, got.State)
	assert.Equal(t, apperr.CategoryTimeout, got.ErrorCategory)
}

func TestCancelSetsFlagOnlyForOwner(t *testing.T) {
	s := New(testDB(t))
	ctx := context.Background()

	id, err := s.Create(ctx, newTask("owner-1"))
	require.NoError(t, err)

	err = s.Cancel(ctx, id, "someone-else")
	assert.Error(t, err)

	require.NoError(t, s.Cancel(ctx, id, "owner-1"))
	got, err := s.Get(ctx, id, "owner-1")
	require.NoError(t, err)
	assert.True(t, got.CancelRequested)
}

func TestCancelOnAlreadyTerminalTaskIsNoOp(t *testing.T) {
	s := New(testDB(t))
	ctx := context.Background()

	id, err := s.Create(ctx, newTask("owner-1"))
	require.NoError(t, err)
	claimed, err := s.ClaimNext(ctx, "worker-1")
	require.NoError(t, err)
	require.NoError(t, s.Fail(ctx, claimed.ID, apperr.CategoryTimeout, "boom"))

	assert.NoError(t, s.Cancel(ctx, id, "owner-1"))

	got, err := s.Get(ctx, id, "owner-1")
	require.NoError(t, err)
	assert.Equal(t, models.TaskFailed, got.State)
	assert.False(t, got.CancelRequested)
}

func TestListOrdersNewestFirst(t *testing.T) {
	s := New(testDB(t))
	ctx := context.Background()

	_, err := s.Create(ctx, newTask("owner-1"))
	require.NoError(t, err)
	time.Sleep(10 * time.Millisecond)
	id2, err := s.Create(ctx, newTask("owner-1"))
	require.NoError(t, err)

	tasks, err := s.List(ctx, "owner-1", 10, 0)
	require.NoError(t, err)
	require.Len(t, tasks, 2)
	assert.Equal(t, id2, tasks[0].ID)
}
