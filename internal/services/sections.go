package services

import (
	"todo-manager/backend/internal/models"
	"todo-manager/backend/internal/ordering"

	"github.com/gofrs/uuid"
	"gorm.io/gorm"
)

// sectionOrdering scopes section order by project. The default catch-all
// section stays at order 0 and never participates in reordering.
var sectionOrdering = ordering.Collection{
	Table:       "project_sections",
	ScopeColumn: "project_id",
	Base:        1,
	OmitDefault: true,
}

type CreateSectionInput struct {
	ProjectID          uuid.UUID `json:"project" binding:"required"`
	Title              string    `json:"title" binding:"required,max=100"`
	PrecedingSectionID uuid.UUID `json:"preceding_section" binding:"required"`
}

type UpdateSectionInput struct {
	Title              *string    `json:"title"`
	ProjectID          *uuid.UUID `json:"project"`
	PrecedingSectionID *uuid.UUID `json:"preceding_section"`
}

type BulkSectionUpdate struct {
	ID    uuid.UUID `json:"id" binding:"required"`
	Order *int      `json:"order"`
	Title *string   `json:"title"`
}

type SectionService struct{}

func NewSectionService() *SectionService {
	return &SectionService{}
}

// List returns the owner's non-default sections, optionally for one project.
func (s *SectionService) List(db *gorm.DB, ownerID uuid.UUID, projectID *uuid.UUID) ([]models.ProjectSection, error) {
	q := db.Joins("JOIN projects ON projects.id = project_sections.project_id").
		Where("projects.owner_id = ? AND project_sections.is_default = ?", ownerID, false)
	if projectID != nil {
		q = q.Where("project_sections.project_id = ?", *projectID)
	}
	var sections []models.ProjectSection
	err := q.Order(`project_sections."order"`).Find(&sections).Error
	return sections, err
}

func (s *SectionService) Get(db *gorm.DB, ownerID, id uuid.UUID) (models.ProjectSection, error) {
	return ownedSection(db, ownerID, id)
}

// Create inserts a section right after its preceding sibling, shifting later
// sections down. Sections are always created relative to an existing one; the
// default section at order 0 anchors insertion at the top of a project.
func (s *SectionService) Create(db *gorm.DB, ownerID uuid.UUID, in CreateSectionInput) (models.ProjectSection, error) {
	section := models.ProjectSection{
		ID:        uuid.Must(uuid.NewV4()),
		ProjectID: in.ProjectID,
		Title:     in.Title,
	}
	err := withOrderingTx(db, func(tx *gorm.DB) error {
		if _, err := ownedProject(tx, ownerID, in.ProjectID); err != nil {
			return err
		}
		preceding, err := ownedSection(tx, ownerID, in.PrecedingSectionID)
		if err != nil {
			return err
		}
		if preceding.ProjectID != in.ProjectID {
			return validationf("preceding_section belongs to another project")
		}
		position := preceding.Order + 1
		assigned, err := sectionOrdering.InsertAt(tx, in.ProjectID, &position)
		if err != nil {
			return err
		}
		section.Order = assigned
		return tx.Create(&section).Error
	})
	if err != nil {
		return models.ProjectSection{}, err
	}
	return section, nil
}

func (s *SectionService) Update(db *gorm.DB, ownerID, id uuid.UUID, in UpdateSectionInput) (models.ProjectSection, error) {
	var section models.ProjectSection
	err := withOrderingTx(db, func(tx *gorm.DB) error {
		var err error
		section, err = ownedSection(tx, ownerID, id)
		if err != nil {
			return err
		}
		if section.IsDefault {
			return ErrForbidden
		}
		if in.Title != nil {
			section.Title = *in.Title
		}

		if in.ProjectID != nil && *in.ProjectID != section.ProjectID {
			return s.moveAcrossProjects(tx, ownerID, &section, *in.ProjectID)
		}

		if in.PrecedingSectionID != nil {
			preceding, err := ownedSection(tx, ownerID, *in.PrecedingSectionID)
			if err != nil {
				return err
			}
			if preceding.ProjectID != section.ProjectID {
				return validationf("preceding_section belongs to another project")
			}
			newOrder := preceding.Order + 1
			if preceding.Order > section.Order {
				// The preceding sibling keeps its place once the moved
				// section vacates an earlier slot.
				newOrder = preceding.Order
			}
			assigned, err := sectionOrdering.MoveWithin(tx, section.ProjectID, section.ID, section.Order, newOrder)
			if err != nil {
				return err
			}
			section.Order = assigned
		}
		return tx.Save(&section).Error
	})
	if err != nil {
		return models.ProjectSection{}, err
	}
	return section, nil
}

// moveAcrossProjects reassigns the section to another owned project: the
// whole source project is renumbered 1..N (not just the single gap) and the
// section lands at the end of the destination.
func (s *SectionService) moveAcrossProjects(tx *gorm.DB, ownerID uuid.UUID, section *models.ProjectSection, destProjectID uuid.UUID) error {
	if _, err := ownedProject(tx, ownerID, destProjectID); err != nil {
		return err
	}
	sourceProjectID := section.ProjectID

	destMax, err := sectionOrdering.MaxOrder(tx, destProjectID)
	if err != nil {
		return err
	}
	section.ProjectID = destProjectID
	section.Order = destMax + 1
	if err := tx.Save(section).Error; err != nil {
		return err
	}
	return sectionOrdering.Renumber(tx, sourceProjectID)
}

// Delete removes a section and its tasks, compacting the remaining orders.
func (s *SectionService) Delete(db *gorm.DB, ownerID, id uuid.UUID) error {
	return withOrderingTx(db, func(tx *gorm.DB) error {
		section, err := ownedSection(tx, ownerID, id)
		if err != nil {
			return err
		}
		if section.IsDefault {
			return ErrForbidden
		}
		if err := deleteSectionTasks(tx, []uuid.UUID{section.ID}); err != nil {
			return err
		}
		if err := tx.Delete(&section).Error; err != nil {
			return err
		}
		return sectionOrdering.CloseGap(tx, section.ProjectID, section.Order)
	})
}

// Duplicate clones a section and its tasks at the end of the same project.
func (s *SectionService) Duplicate(db *gorm.DB, ownerID, id uuid.UUID) (models.ProjectSection, error) {
	var clone models.ProjectSection
	err := withOrderingTx(db, func(tx *gorm.DB) error {
		section, err := ownedSection(tx, ownerID, id)
		if err != nil {
			return err
		}
		max, err := sectionOrdering.MaxOrder(tx, section.ProjectID)
		if err != nil {
			return err
		}
		clone = models.ProjectSection{
			ID:        uuid.Must(uuid.NewV4()),
			ProjectID: section.ProjectID,
			Title:     "Copy of " + section.Title,
			Order:     max + 1,
		}
		if err := tx.Create(&clone).Error; err != nil {
			return err
		}

		var tasks []models.Task
		if err := tx.Where("section_id = ?", section.ID).Order(`"order"`).Find(&tasks).Error; err != nil {
			return err
		}
		for _, task := range tasks {
			copied := task
			copied.ID = uuid.Must(uuid.NewV4())
			copied.SectionID = clone.ID
			copied.Tags = nil
			if err := tx.Create(&copied).Error; err != nil {
				return err
			}
			err := tx.Exec(
				"INSERT INTO task_tags (task_id, tag_id) SELECT ?, tag_id FROM task_tags WHERE task_id = ?",
				copied.ID, task.ID,
			).Error
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return models.ProjectSection{}, err
	}
	return clone, nil
}

func (s *SectionService) BulkUpdate(db *gorm.DB, ownerID uuid.UUID, items []BulkSectionUpdate) error {
	return withOrderingTx(db, func(tx *gorm.DB) error {
		locked := map[uuid.UUID]bool{}
		for _, item := range items {
			section, err := ownedSection(tx, ownerID, item.ID)
			if err != nil {
				return err
			}
			if section.IsDefault {
				return ErrForbidden
			}
			if !locked[section.ProjectID] {
				if err := sectionOrdering.Lock(tx, section.ProjectID); err != nil {
					return err
				}
				locked[section.ProjectID] = true
			}
			if item.Title != nil {
				section.Title = *item.Title
			}
			if item.Order != nil {
				section.Order = *item.Order
			}
			if err := tx.Save(&section).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

func ownedProject(tx *gorm.DB, ownerID, id uuid.UUID) (models.Project, error) {
	var project models.Project
	err := tx.Where("owner_id = ? AND id = ?", ownerID, id).First(&project).Error
	return project, notFound(err)
}

func ownedSection(tx *gorm.DB, ownerID, id uuid.UUID) (models.ProjectSection, error) {
	var section models.ProjectSection
	err := tx.Joins("JOIN projects ON projects.id = project_sections.project_id").
		Where("projects.owner_id = ? AND project_sections.id = ?", ownerID, id).
		First(&section).Error
	return section, notFound(err)
}
