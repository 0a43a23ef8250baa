package services

import (
	"regexp"
	"strings"
	"time"

	"todo-manager/backend/internal/models"

	"github.com/gofrs/uuid"
	"gorm.io/gorm"
)

var slugStrip = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify downcases and hyphenates a tag name for URL lookup.
func Slugify(name string) string {
	slug := strings.ToLower(strings.TrimSpace(name))
	slug = slugStrip.ReplaceAllString(slug, "-")
	return strings.Trim(slug, "-")
}

type TagService struct{}

func NewTagService() *TagService {
	return &TagService{}
}

func (s *TagService) List(db *gorm.DB, ownerID uuid.UUID) ([]models.Tag, error) {
	var tags []models.Tag
	err := db.Where("owner_id = ?", ownerID).Order("name").Find(&tags).Error
	return tags, err
}

func (s *TagService) GetBySlug(db *gorm.DB, ownerID uuid.UUID, slug string) (models.Tag, error) {
	var tag models.Tag
	err := db.Preload("Tasks").Where("owner_id = ? AND slug = ?", ownerID, slug).First(&tag).Error
	return tag, notFound(err)
}

// GetOrCreate resolves a tag by name for the owner, creating it on first use.
func (s *TagService) GetOrCreate(db *gorm.DB, ownerID uuid.UUID, name string) (models.Tag, error) {
	slug := Slugify(name)
	if slug == "" {
		return models.Tag{}, validationf("empty tag name")
	}
	var tag models.Tag
	err := db.Where("owner_id = ? AND slug = ?", ownerID, slug).First(&tag).Error
	if err == nil {
		return tag, nil
	}
	if err != gorm.ErrRecordNotFound {
		return models.Tag{}, err
	}
	tag = models.Tag{
		ID:        uuid.Must(uuid.NewV4()),
		OwnerID:   ownerID,
		Name:      strings.TrimSpace(name),
		Slug:      slug,
		CreatedAt: time.Now(),
	}
	if err := db.Create(&tag).Error; err != nil {
		return models.Tag{}, err
	}
	return tag, nil
}

// AssignTags replaces the tag set of an owned task.
func (s *TagService) AssignTags(db *gorm.DB, ownerID, taskID uuid.UUID, names []string) ([]models.Tag, error) {
	task, err := ownedTask(db, ownerID, taskID)
	if err != nil {
		return nil, err
	}

	tags := make([]models.Tag, 0, len(names))
	err = db.Transaction(func(tx *gorm.DB) error {
		for _, name := range names {
			tag, err := s.GetOrCreate(tx, ownerID, name)
			if err != nil {
				return err
			}
			tags = append(tags, tag)
		}
		return tx.Model(&task).Association("Tags").Replace(tags)
	})
	if err != nil {
		return nil, err
	}
	return tags, nil
}

func (s *TagService) Delete(db *gorm.DB, ownerID uuid.UUID, slug string) error {
	tag, err := s.GetBySlug(db, ownerID, slug)
	if err != nil {
		return err
	}
	return db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec("DELETE FROM task_tags WHERE tag_id = ?", tag.ID).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Tag{}, "id = ?", tag.ID).Error
	})
}

type CreateCommentInput struct {
	TaskID uuid.UUID `json:"task" binding:"required"`
	Body   string    `json:"body" binding:"required"`
}

type CommentService struct{}

func NewCommentService() *CommentService {
	return &CommentService{}
}

func (s *CommentService) ListForTask(db *gorm.DB, ownerID, taskID uuid.UUID) ([]models.Comment, error) {
	if _, err := ownedTask(db, ownerID, taskID); err != nil {
		return nil, err
	}
	var comments []models.Comment
	err := db.Where("task_id = ? AND is_removed = ?", taskID, false).
		Order("submitted_at").Find(&comments).Error
	return comments, err
}

func (s *CommentService) Create(db *gorm.DB, ownerID uuid.UUID, in CreateCommentInput) (models.Comment, error) {
	if _, err := ownedTask(db, ownerID, in.TaskID); err != nil {
		return models.Comment{}, err
	}
	comment := models.Comment{
		ID:          uuid.Must(uuid.NewV4()),
		TaskID:      in.TaskID,
		UserID:      ownerID,
		Body:        in.Body,
		SubmittedAt: time.Now(),
	}
	if err := db.Create(&comment).Error; err != nil {
		return models.Comment{}, err
	}
	return comment, nil
}

func (s *CommentService) Delete(db *gorm.DB, ownerID, id uuid.UUID) error {
	var comment models.Comment
	err := db.Where("id = ? AND user_id = ?", id, ownerID).First(&comment).Error
	if err != nil {
		return notFound(err)
	}
	return db.Model(&comment).Update("is_removed", true).Error
}
