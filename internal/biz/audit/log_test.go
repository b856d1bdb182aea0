package audit

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/taskflow/server/internal/biz/status"
	"github.com/taskflow/server/internal/biz/task"
)

type memRepo struct {
	rows []Entry
}

func (m *memRepo) Insert(ctx context.Context, entry *Entry) error {
	entry.ID = uint64(len(m.rows) + 1)
	m.rows = append(m.rows, *entry)
	return nil
}

func (m *memRepo) UpdateLastEvent(ctx context.Context, taskID uint64, eventType string, payload json.RawMessage) (uint64, error) {
	for i := len(m.rows) - 1; i >= 0; i-- {
		if m.rows[i].TaskID == taskID {
			m.rows[i].EventType = &eventType
			m.rows[i].EventPayload = payload
			return m.rows[i].ID, nil
		}
	}
	return 0, nil
}

func TestAppendAssignsID(t *testing.T) {
	repo := &memRepo{}
	log := NewLog(repo)

	id, err := log.Append(context.Background(), Entry{TaskID: 1, ActorID: 2, Action: ActionReport})
	require.NoError(t, err)
	assert.Equal(t, uint64(1), id)

	_, err = log.Append(context.Background(), Entry{Action: ActionReport})
	assert.Error(t, err)
}

func TestAttachEventToLast(t *testing.T) {
	repo := &memRepo{}
	log := NewLog(repo)
	ctx := context.Background()
	_, _ = log.Append(ctx, Entry{TaskID: 1, Action: ActionCreate})
	_, _ = log.Append(ctx, Entry{TaskID: 1, Action: ActionReport})

	id, err := log.AttachEventToLast(ctx, 1, "REPORT_SUBMITTED", map[string]string{"link": "x"})
	require.NoError(t, err)
	assert.Equal(t, uint64(2), id)
	require.NotNil(t, repo.rows[1].EventType)
	assert.Equal(t, "REPORT_SUBMITTED", *repo.rows[1].EventType)
	assert.Nil(t, repo.rows[0].EventType)
}

func TestDiff(t *testing.T) {
	due := time.Date(2026, 10, 20, 0, 0, 0, 0, time.UTC)
	before := task.Task{Title: "a", Status: status.InProgress}
	after := task.Task{Title: "b", Status: status.WaitingApproval, DueDate: &due}

	changes := Diff(before, after)
	assert.Equal(t, []FieldChange{
		{Field: "title", Old: "a", New: "b"},
		{Field: "status", Old: "IN_PROGRESS", New: "WAITING_APPROVAL"},
		{Field: "due_date", Old: nil, New: "2026-10-20"},
	}, changes)
	assert.Empty(t, Diff(before, before))
}
