package services_test

import (
	"context"
	"testing"
	"time"

	"todo-manager/backend/internal/models"
	"todo-manager/backend/internal/recurrence"
	"todo-manager/backend/internal/services"
	"todo-manager/backend/internal/worker"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type captureQueue struct {
	payloads []services.DigestEmailPayload
	fail     bool
}

func (q *captureQueue) Enqueue(ctx context.Context, jobType worker.JobType, payload interface{}) error {
	if q.fail {
		return assert.AnError
	}
	q.payloads = append(q.payloads, payload.(services.DigestEmailPayload))
	return nil
}

func seedTaskDue(t *testing.T, db *gorm.DB, owner *models.User, title string, due time.Time) models.Task {
	t.Helper()
	inbox := inboxOf(t, db, owner.ID)
	section := defaultSectionOf(t, db, inbox.ID)
	task, err := services.NewTaskService(recurrence.NewEngine(), nil).
		Create(db, owner.ID, services.CreateTaskInput{SectionID: section.ID, Title: title})
	require.NoError(t, err)
	require.NoError(t, db.Model(&models.Task{}).
		Where("id = ?", task.ID).Update("due_date", due).Error)
	return task
}

func TestDispatchAllQueuesPerUser(t *testing.T) {
	db := newTestDB(t)
	alice := registerUser(t, db, "alice")
	bob := registerUser(t, db, "bob")

	seedTaskDue(t, db, alice, "due today", time.Now())
	seedTaskDue(t, db, alice, "long overdue", time.Now().AddDate(0, 0, -3))

	queue := &captureQueue{}
	service := services.NewDigestService(queue, "https://todo.example.com")

	sent, errs := service.DispatchAll(context.Background(), db)
	assert.Empty(t, errs)
	assert.Equal(t, 2, sent)
	require.Len(t, queue.payloads, 2)

	byEmail := map[string]services.DigestEmailPayload{}
	for _, p := range queue.payloads {
		byEmail[p.Email] = p
	}
	alicePayload := byEmail[alice.Email]
	assert.Contains(t, alicePayload.HTML, "due today")
	assert.Contains(t, alicePayload.HTML, "1 overdue")
	assert.Contains(t, alicePayload.HTML, "https://todo.example.com")

	bobPayload := byEmail[bob.Email]
	assert.Contains(t, bobPayload.HTML, "No tasks due today")
}

func TestDispatchAllSkipsInactiveUsers(t *testing.T) {
	db := newTestDB(t)
	user := registerUser(t, db, "ghost")
	require.NoError(t, db.Model(&models.User{}).
		Where("id = ?", user.ID).Update("is_active", false).Error)

	queue := &captureQueue{}
	sent, errs := services.NewDigestService(queue, "https://todo.example.com").
		DispatchAll(context.Background(), db)
	assert.Empty(t, errs)
	assert.Zero(t, sent)
	assert.Empty(t, queue.payloads)
}

func TestDispatchAllIsolatesFailures(t *testing.T) {
	db := newTestDB(t)
	registerUser(t, db, "alice")
	registerUser(t, db, "bob")

	queue := &captureQueue{fail: true}
	sent, errs := services.NewDigestService(queue, "https://todo.example.com").
		DispatchAll(context.Background(), db)
	assert.Zero(t, sent)
	assert.Len(t, errs, 2, "every recipient fails independently")
}

func TestDigestEscapesUserContent(t *testing.T) {
	db := newTestDB(t)
	alice := registerUser(t, db, "alice")
	seedTaskDue(t, db, alice, `<script>alert("xss")</script>`, time.Now())

	queue := &captureQueue{}
	_, errs := services.NewDigestService(queue, "https://todo.example.com").
		DispatchAll(context.Background(), db)
	require.Empty(t, errs)
	require.Len(t, queue.payloads, 1)
	assert.NotContains(t, queue.payloads[0].HTML, "<script>")
	assert.Contains(t, queue.payloads[0].HTML, "&lt;script&gt;")
}
