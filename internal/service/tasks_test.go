package service_test

import (
	"context"
	"errors"
	"testing"

	"github.com/atinyakov/todosync/internal/models"
	"github.com/atinyakov/todosync/internal/repository"
	"github.com/atinyakov/todosync/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTaskService_CreateListGet(t *testing.T) {
	svc := service.NewTaskService(repository.NewMemoryTaskRepository())
	ctx := context.Background()

	created, err := svc.Create(ctx, "u1", "  Buy milk ", " semi-skimmed ")
	require.NoError(t, err)
	assert.Equal(t, "Buy milk", created.Title)
	assert.Equal(t, "semi-skimmed", created.Description)
	assert.Equal(t, models.StatusPending, created.Status)

	_, err = svc.Create(ctx, "u1", "Walk dog", "")
	require.NoError(t, err)

	list, err := svc.List(ctx, "u1", "", "")
	require.NoError(t, err)
	assert.Len(t, list, 2)

	found, err := svc.List(ctx, "u1", models.StatusPending, "skimmed")
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, created.ID, found[0].ID)

	got, err := svc.Get(ctx, "u1", created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, got.ID)

	_, err = svc.Get(ctx, "u2", created.ID)
	assert.ErrorIs(t, err, service.ErrNotFound)
}

func TestTaskService_CreateRequiresTitle(t *testing.T) {
	svc := service.NewTaskService(repository.NewMemoryTaskRepository())
	_, err := svc.Create(context.Background(), "u1", "   ", "x")
	var ve *service.ValidationError
	assert.ErrorAs(t, err, &ve)
}

func TestTaskService_ListRejectsUnknownStatus(t *testing.T) {
	svc := service.NewTaskService(repository.NewMemoryTaskRepository())
	_, err := svc.List(context.Background(), "u1", "Someday", "")
	var ve *service.ValidationError
	assert.ErrorAs(t, err, &ve)
}

func TestTaskService_UpdateAndDelete(t *testing.T) {
	svc := service.NewTaskService(repository.NewMemoryTaskRepository())
	ctx := context.Background()
	task, err := svc.Create(ctx, "u1", "draft", "")
	require.NoError(t, err)

	done := models.StatusCompleted
	deleted := true
	updated, err := svc.Update(ctx, "u1", task.ID, models.TaskChanges{Status: &done, Deleted: &deleted})
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, updated.Status)
	assert.False(t, updated.Deleted, "Update must not soft-delete")

	_, err = svc.Update(ctx, "u2", task.ID, models.TaskChanges{Status: &done})
	assert.ErrorIs(t, err, service.ErrNotFound)

	require.NoError(t, svc.Delete(ctx, "u1", task.ID))
	_, err = svc.Get(ctx, "u1", task.ID)
	assert.ErrorIs(t, err, service.ErrNotFound)

	_, err = svc.Update(ctx, "u1", task.ID, models.TaskChanges{Status: &done})
	assert.ErrorIs(t, err, service.ErrNotFound, "deleted tasks cannot be edited")

	assert.ErrorIs(t, svc.Delete(ctx, "u1", "missing"), service.ErrNotFound)
}

func TestTaskService_UpdateRejectsEmptyTitle(t *testing.T) {
	svc := service.NewTaskService(repository.NewMemoryTaskRepository())
	empty := " "
	_, err := svc.Update(context.Background(), "u1", "x", models.TaskChanges{Title: &empty})
	var ve *service.ValidationError
	assert.ErrorAs(t, err, &ve)
}

type brokenStore struct{}

func (brokenStore) Find(context.Context, models.TaskFilter) ([]models.Task, error) {
	return nil, errors.New("db down")
}
func (brokenStore) Insert(context.Context, string, models.TaskDraft) (models.Task, error) {
	return models.Task{}, errors.New("db down")
}
func (brokenStore) UpdateMatching(context.Context, models.TaskFilter, models.TaskChanges) (int64, error) {
	return 0, errors.New("db down")
}

func TestTaskService_StoreErrors(t *testing.T) {
	svc := service.NewTaskService(brokenStore{})
	ctx := context.Background()
	var se *service.StoreError

	_, err := svc.List(ctx, "u1", "", "")
	assert.ErrorAs(t, err, &se)
	_, err = svc.Create(ctx, "u1", "t", "")
	assert.ErrorAs(t, err, &se)
	assert.ErrorAs(t, svc.Delete(ctx, "u1", "t"), &se)
}

func TestTaskService_RequiresOwner(t *testing.T) {
	svc := service.NewTaskService(repository.NewMemoryTaskRepository())
	_, err := svc.List(context.Background(), "", "", "")
	assert.ErrorIs(t, err, service.ErrUnauthorized)
}
