package services

import (
	"context"
	"fmt"
	"html"
	"log"
	"strings"
	"time"

	"todo-manager/backend/internal/models"
	"todo-manager/backend/internal/worker"

	"gorm.io/gorm"
)

// DigestQueue is the slice of the job queue the digest needs.
type DigestQueue interface {
	Enqueue(ctx context.Context, jobType worker.JobType, payload interface{}) error
}

// DigestEmailPayload is the per-recipient job carried through the queue to
// the email worker.
type DigestEmailPayload struct {
	Email   string `json:"email"`
	Name    string `json:"name"`
	Subject string `json:"subject"`
	HTML    string `json:"html"`
}

type digestTask struct {
	Name    string
	Project string
}

type DigestService struct {
	queue  DigestQueue
	appURL string
}

func NewDigestService(queue DigestQueue, appURL string) *DigestService {
	return &DigestService{queue: queue, appURL: appURL}
}

// DispatchAll composes and enqueues a digest for every active user with an
// email. Each recipient is isolated: a failure is logged and collected, never
// raised, so one bad mailbox cannot abort the batch.
func (s *DigestService) DispatchAll(ctx context.Context, db *gorm.DB) (sent int, errs []error) {
	var users []models.User
	err := db.Preload("Profile").Where("is_active = ?", true).Find(&users).Error
	if err != nil {
		return 0, []error{fmt.Errorf("failed to load users: %w", err)}
	}

	for _, user := range users {
		if user.Email == "" {
			continue
		}
		if err := s.dispatchOne(ctx, db, user); err != nil {
			log.Printf("error sending digest to %s: %v", user.Email, err)
			errs = append(errs, fmt.Errorf("%s: %w", user.Email, err))
			continue
		}
		sent++
	}

	if len(errs) > 0 {
		log.Printf("daily digest completed with %d errors, %d emails sent", len(errs), sent)
	}
	return sent, errs
}

func (s *DigestService) dispatchOne(ctx context.Context, db *gorm.DB, user models.User) error {
	loc := user.Profile.Location()
	now := time.Now().In(loc)
	// The day boundary is the user's local midnight; the query bounds go to
	// the database in UTC so timestamp comparison works on every backend.
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc).UTC()
	dayEnd := dayStart.AddDate(0, 0, 1)

	today, err := s.digestTasks(db, user, func(q *gorm.DB) *gorm.DB {
		return q.Where("tasks.due_date >= ? AND tasks.due_date < ?", dayStart, dayEnd)
	})
	if err != nil {
		return err
	}

	var overdueCount int64
	err = ownedTasks(db, user.ID).
		Where("tasks.due_date < ? AND tasks.completion_date IS NULL", dayStart).
		Count(&overdueCount).Error
	if err != nil {
		return err
	}

	payload := DigestEmailPayload{
		Email:   user.Email,
		Name:    user.DisplayName(),
		Subject: "Your Daily Digest",
		HTML:    s.renderDigest(user.DisplayName(), today, overdueCount),
	}
	return s.queue.Enqueue(ctx, worker.JobTypeDigestEmail, payload)
}

func (s *DigestService) digestTasks(db *gorm.DB, user models.User, scope func(*gorm.DB) *gorm.DB) ([]digestTask, error) {
	rows := []struct {
		Title        string
		ProjectTitle string
	}{}
	q := ownedTasks(db, user.ID).
		Where("tasks.completion_date IS NULL").
		Select("tasks.title AS title, projects.title AS project_title")
	err := scope(q).Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	tasks := make([]digestTask, 0, len(rows))
	for _, row := range rows {
		tasks = append(tasks, digestTask{Name: row.Title, Project: row.ProjectTitle})
	}
	return tasks, nil
}

func (s *DigestService) renderDigest(name string, today []digestTask, overdueCount int64) string {
	var b strings.Builder
	fmt.Fprintf(&b, "<h1>Hello %s</h1>", html.EscapeString(name))
	if len(today) == 0 {
		b.WriteString("<p>No tasks due today.</p>")
	} else {
		fmt.Fprintf(&b, "<p>You have %d tasks due today:</p><ul>", len(today))
		for _, task := range today {
			fmt.Fprintf(&b, "<li>%s <em>(%s)</em></li>",
				html.EscapeString(task.Name), html.EscapeString(task.Project))
		}
		b.WriteString("</ul>")
	}
	if overdueCount > 0 {
		fmt.Fprintf(&b, "<p>You also have %d overdue tasks.</p>", overdueCount)
	}
	fmt.Fprintf(&b, `<p><a href="%s">Open your board</a></p>`, s.appURL)
	return b.String()
}
