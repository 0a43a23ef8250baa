package services

import (
	"time"

	"todo-manager/backend/internal/models"
	"todo-manager/backend/internal/ordering"

	"github.com/gofrs/uuid"
	"gorm.io/gorm"
)

// projectOrdering scopes project order by owning user. The default project
// (inbox) sits at order 0 outside the user-visible list; user projects run
// from 1.
var projectOrdering = ordering.Collection{
	Table:       "projects",
	ScopeColumn: "owner_id",
	Base:        1,
	OmitDefault: true,
}

type CreateProjectInput struct {
	Title          string     `json:"title" binding:"required,max=100"`
	View           string     `json:"view"`
	AboveProjectID *uuid.UUID `json:"above_project_id"`
	BelowProjectID *uuid.UUID `json:"below_project_id"`
}

type UpdateProjectInput struct {
	Title *string `json:"title"`
	View  *string `json:"view"`
	Order *int    `json:"order"`
}

type BulkProjectUpdate struct {
	ID    uuid.UUID `json:"id" binding:"required"`
	Order *int      `json:"order"`
	Title *string   `json:"title"`
	View  *string   `json:"view"`
}

type ProjectService struct{}

func NewProjectService() *ProjectService {
	return &ProjectService{}
}

// List returns the owner's projects excluding the inbox, in display order.
func (s *ProjectService) List(db *gorm.DB, ownerID uuid.UUID) ([]models.Project, error) {
	var projects []models.Project
	err := db.Where("owner_id = ? AND is_default = ?", ownerID, false).
		Order(`"order"`).Find(&projects).Error
	return projects, err
}

// Get returns a single owned project; the inbox is retrievable by id.
func (s *ProjectService) Get(db *gorm.DB, ownerID, id uuid.UUID) (models.Project, error) {
	var project models.Project
	err := db.Preload("Sections", func(db *gorm.DB) *gorm.DB {
		return db.Order(`"order"`)
	}).Where("owner_id = ? AND id = ?", ownerID, id).First(&project).Error
	return project, notFound(err)
}

func (s *ProjectService) Create(db *gorm.DB, ownerID uuid.UUID, in CreateProjectInput) (models.Project, error) {
	if in.AboveProjectID != nil && in.BelowProjectID != nil {
		return models.Project{}, validationf("above_project_id and below_project_id can't be both set")
	}
	view := in.View
	if view == "" {
		view = models.ViewList
	}
	if view != models.ViewList && view != models.ViewBoard {
		return models.Project{}, validationf("unknown view %q", view)
	}

	project := models.Project{
		ID:      uuid.Must(uuid.NewV4()),
		OwnerID: ownerID,
		Title:   in.Title,
		View:    view,
	}

	err := withOrderingTx(db, func(tx *gorm.DB) error {
		var position *int
		if in.AboveProjectID != nil {
			ref, err := s.owned(tx, ownerID, *in.AboveProjectID)
			if err != nil {
				return err
			}
			position = &ref.Order
		} else if in.BelowProjectID != nil {
			ref, err := s.owned(tx, ownerID, *in.BelowProjectID)
			if err != nil {
				return err
			}
			below := ref.Order + 1
			position = &below
		}

		assigned, err := projectOrdering.InsertAt(tx, ownerID, position)
		if err != nil {
			return err
		}
		project.Order = assigned
		if err := tx.Create(&project).Error; err != nil {
			return err
		}
		// Every project carries its catch-all section from birth.
		return createDefaultSection(tx, project.ID)
	})
	if err != nil {
		return models.Project{}, err
	}
	return project, nil
}

func (s *ProjectService) Update(db *gorm.DB, ownerID, id uuid.UUID, in UpdateProjectInput) (models.Project, error) {
	var project models.Project
	err := withOrderingTx(db, func(tx *gorm.DB) error {
		var err error
		project, err = s.owned(tx, ownerID, id)
		if err != nil {
			return err
		}
		if project.IsDefault && (in.Title != nil || in.Order != nil) {
			return ErrForbidden
		}
		if in.Title != nil {
			project.Title = *in.Title
		}
		if in.View != nil {
			if *in.View != models.ViewList && *in.View != models.ViewBoard {
				return validationf("unknown view %q", *in.View)
			}
			project.View = *in.View
		}
		if in.Order != nil && *in.Order != project.Order {
			max, err := projectOrdering.MaxOrder(tx, ownerID)
			if err != nil {
				return err
			}
			newOrder := clampOrder(*in.Order, max)
			assigned, err := projectOrdering.MoveWithin(tx, ownerID, project.ID, project.Order, newOrder)
			if err != nil {
				return err
			}
			project.Order = assigned
		}
		project.UpdatedAt = time.Now()
		return tx.Save(&project).Error
	})
	if err != nil {
		return models.Project{}, err
	}
	return project, nil
}

// Delete removes a project, its sections and their tasks, then compacts the
// remaining project orders. The inbox cannot be deleted.
func (s *ProjectService) Delete(db *gorm.DB, ownerID, id uuid.UUID) error {
	return withOrderingTx(db, func(tx *gorm.DB) error {
		project, err := s.owned(tx, ownerID, id)
		if err != nil {
			return err
		}
		if project.IsDefault {
			return ErrForbidden
		}
		if err := deleteProjectTree(tx, project.ID); err != nil {
			return err
		}
		return projectOrdering.CloseGap(tx, ownerID, project.Order)
	})
}

// BulkUpdate applies a batch of partial updates in one transaction; any bad
// row aborts the whole batch. Orders are written as given, the caller is
// expected to supply a consistent permutation.
func (s *ProjectService) BulkUpdate(db *gorm.DB, ownerID uuid.UUID, items []BulkProjectUpdate) error {
	return withOrderingTx(db, func(tx *gorm.DB) error {
		if err := projectOrdering.Lock(tx, ownerID); err != nil {
			return err
		}
		for _, item := range items {
			project, err := s.owned(tx, ownerID, item.ID)
			if err != nil {
				return err
			}
			if project.IsDefault {
				return ErrForbidden
			}
			if item.Title != nil {
				project.Title = *item.Title
			}
			if item.View != nil {
				project.View = *item.View
			}
			if item.Order != nil {
				project.Order = *item.Order
			}
			if err := tx.Save(&project).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *ProjectService) owned(tx *gorm.DB, ownerID, id uuid.UUID) (models.Project, error) {
	var project models.Project
	err := tx.Where("owner_id = ? AND id = ?", ownerID, id).First(&project).Error
	return project, notFound(err)
}

func createDefaultSection(tx *gorm.DB, projectID uuid.UUID) error {
	section := models.ProjectSection{
		ID:        uuid.Must(uuid.NewV4()),
		ProjectID: projectID,
		Title:     models.DefaultSectionTitle,
		IsDefault: true,
		Order:     0,
	}
	return tx.Create(&section).Error
}

// deleteProjectTree removes a project and everything under it explicitly,
// keeping the cascade visible rather than relying on database triggers.
func deleteProjectTree(tx *gorm.DB, projectID uuid.UUID) error {
	var sectionIDs []uuid.UUID
	err := tx.Model(&models.ProjectSection{}).Where("project_id = ?", projectID).
		Pluck("id", &sectionIDs).Error
	if err != nil {
		return err
	}
	if len(sectionIDs) > 0 {
		if err := deleteSectionTasks(tx, sectionIDs); err != nil {
			return err
		}
		err = tx.Where("project_id = ?", projectID).Delete(&models.ProjectSection{}).Error
		if err != nil {
			return err
		}
	}
	return tx.Where("id = ?", projectID).Delete(&models.Project{}).Error
}

func deleteSectionTasks(tx *gorm.DB, sectionIDs []uuid.UUID) error {
	var taskIDs []uuid.UUID
	err := tx.Model(&models.Task{}).Where("section_id IN ?", sectionIDs).
		Pluck("id", &taskIDs).Error
	if err != nil {
		return err
	}
	if len(taskIDs) == 0 {
		return nil
	}
	if err := tx.Exec("DELETE FROM task_tags WHERE task_id IN ?", taskIDs).Error; err != nil {
		return err
	}
	if err := tx.Where("task_id IN ?", taskIDs).Delete(&models.Comment{}).Error; err != nil {
		return err
	}
	return tx.Where("id IN ?", taskIDs).Delete(&models.Task{}).Error
}
