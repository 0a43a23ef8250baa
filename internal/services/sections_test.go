package services_test

import (
	"testing"

	"todo-manager/backend/internal/models"
	"todo-manager/backend/internal/recurrence"
	"todo-manager/backend/internal/services"

	"github.com/gofrs/uuid"
	"github.com/stretchr/testify/suite"
	"gorm.io/gorm"
)

type SectionServiceTestSuite struct {
	suite.Suite
	db       *gorm.DB
	service  *services.SectionService
	owner    *models.User
	project  models.Project
	catchAll models.ProjectSection
}

func (suite *SectionServiceTestSuite) SetupTest() {
	suite.db = newTestDB(suite.T())
	suite.service = services.NewSectionService()
	suite.owner = registerUser(suite.T(), suite.db, "alice")

	project, err := services.NewProjectService().Create(suite.db, suite.owner.ID,
		services.CreateProjectInput{Title: "Work"})
	suite.Require().NoError(err)
	suite.project = project
	suite.catchAll = defaultSectionOf(suite.T(), suite.db, project.ID)
}

func (suite *SectionServiceTestSuite) createAfter(title string, preceding uuid.UUID) models.ProjectSection {
	section, err := suite.service.Create(suite.db, suite.owner.ID, services.CreateSectionInput{
		ProjectID:          suite.project.ID,
		Title:              title,
		PrecedingSectionID: preceding,
	})
	suite.Require().NoError(err)
	return section
}

func (suite *SectionServiceTestSuite) TestCreateAfterCatchAllStartsAtOne() {
	s1 := suite.createAfter("Backlog", suite.catchAll.ID)
	suite.Equal(1, s1.Order)
}

func (suite *SectionServiceTestSuite) TestCreateBetweenShiftsFollowers() {
	s1 := suite.createAfter("Backlog", suite.catchAll.ID)
	s2 := suite.createAfter("Doing", s1.ID)

	inserted := suite.createAfter("Blocked", s1.ID)
	suite.Equal(2, inserted.Order)
	suite.Equal(1, orderOf(suite.T(), suite.db, "project_sections", s1.ID))
	suite.Equal(3, orderOf(suite.T(), suite.db, "project_sections", s2.ID))
	assertDenseOrders(suite.T(), suite.db, "project_sections", "project_id", suite.project.ID, 1, true)
}

func (suite *SectionServiceTestSuite) TestCreateRejectsForeignPreceding() {
	other, err := services.NewProjectService().Create(suite.db, suite.owner.ID,
		services.CreateProjectInput{Title: "Other"})
	suite.Require().NoError(err)
	otherDefault := defaultSectionOf(suite.T(), suite.db, other.ID)

	_, err = suite.service.Create(suite.db, suite.owner.ID, services.CreateSectionInput{
		ProjectID:          suite.project.ID,
		Title:              "Bad",
		PrecedingSectionID: otherDefault.ID,
	})
	suite.ErrorIs(err, services.ErrValidation)
}

func (suite *SectionServiceTestSuite) TestMoveAfterLaterSibling() {
	s1 := suite.createAfter("A", suite.catchAll.ID)
	s2 := suite.createAfter("B", s1.ID)
	s3 := suite.createAfter("C", s2.ID)

	// Move A after C.
	updated, err := suite.service.Update(suite.db, suite.owner.ID, s1.ID,
		services.UpdateSectionInput{PrecedingSectionID: &s3.ID})
	suite.Require().NoError(err)
	suite.Equal(3, updated.Order)
	suite.Equal(1, orderOf(suite.T(), suite.db, "project_sections", s2.ID))
	suite.Equal(2, orderOf(suite.T(), suite.db, "project_sections", s3.ID))
	assertDenseOrders(suite.T(), suite.db, "project_sections", "project_id", suite.project.ID, 1, true)
}

func (suite *SectionServiceTestSuite) TestMoveAfterEarlierSibling() {
	s1 := suite.createAfter("A", suite.catchAll.ID)
	s2 := suite.createAfter("B", s1.ID)
	s3 := suite.createAfter("C", s2.ID)

	// Move C right after A.
	updated, err := suite.service.Update(suite.db, suite.owner.ID, s3.ID,
		services.UpdateSectionInput{PrecedingSectionID: &s1.ID})
	suite.Require().NoError(err)
	suite.Equal(2, updated.Order)
	suite.Equal(1, orderOf(suite.T(), suite.db, "project_sections", s1.ID))
	suite.Equal(3, orderOf(suite.T(), suite.db, "project_sections", s2.ID))
	assertDenseOrders(suite.T(), suite.db, "project_sections", "project_id", suite.project.ID, 1, true)
}

func (suite *SectionServiceTestSuite) TestMoveAcrossProjects() {
	s1 := suite.createAfter("A", suite.catchAll.ID)
	s2 := suite.createAfter("B", s1.ID)
	s3 := suite.createAfter("C", s2.ID)

	dest, err := services.NewProjectService().Create(suite.db, suite.owner.ID,
		services.CreateProjectInput{Title: "Dest"})
	suite.Require().NoError(err)
	destDefault := defaultSectionOf(suite.T(), suite.db, dest.ID)
	d1, err := suite.service.Create(suite.db, suite.owner.ID, services.CreateSectionInput{
		ProjectID:          dest.ID,
		Title:              "Existing",
		PrecedingSectionID: destDefault.ID,
	})
	suite.Require().NoError(err)

	moved, err := suite.service.Update(suite.db, suite.owner.ID, s2.ID,
		services.UpdateSectionInput{ProjectID: &dest.ID})
	suite.Require().NoError(err)

	suite.Equal(dest.ID, moved.ProjectID)
	suite.Equal(2, moved.Order, "lands after the destination's last section")
	suite.Equal(1, orderOf(suite.T(), suite.db, "project_sections", d1.ID))

	// Source project is renumbered from scratch.
	suite.Equal(1, orderOf(suite.T(), suite.db, "project_sections", s1.ID))
	suite.Equal(2, orderOf(suite.T(), suite.db, "project_sections", s3.ID))
	assertDenseOrders(suite.T(), suite.db, "project_sections", "project_id", suite.project.ID, 1, true)
	assertDenseOrders(suite.T(), suite.db, "project_sections", "project_id", dest.ID, 1, true)
}

func (suite *SectionServiceTestSuite) TestCatchAllIsImmutable() {
	title := "Renamed"
	_, err := suite.service.Update(suite.db, suite.owner.ID, suite.catchAll.ID,
		services.UpdateSectionInput{Title: &title})
	suite.ErrorIs(err, services.ErrForbidden)

	err = suite.service.Delete(suite.db, suite.owner.ID, suite.catchAll.ID)
	suite.ErrorIs(err, services.ErrForbidden)
}

func (suite *SectionServiceTestSuite) TestDeleteRemovesTasksAndCompacts() {
	s1 := suite.createAfter("A", suite.catchAll.ID)
	s2 := suite.createAfter("B", s1.ID)
	s3 := suite.createAfter("C", s2.ID)

	taskService := services.NewTaskService(recurrence.NewEngine(), nil)
	task, err := taskService.Create(suite.db, suite.owner.ID, services.CreateTaskInput{
		SectionID: s2.ID,
		Title:     "Doomed",
	})
	suite.Require().NoError(err)

	suite.Require().NoError(suite.service.Delete(suite.db, suite.owner.ID, s2.ID))

	suite.Equal(1, orderOf(suite.T(), suite.db, "project_sections", s1.ID))
	suite.Equal(2, orderOf(suite.T(), suite.db, "project_sections", s3.ID))

	var count int64
	suite.db.Model(&models.Task{}).Where("id = ?", task.ID).Count(&count)
	suite.Zero(count)
}

func (suite *SectionServiceTestSuite) TestDuplicateClonesTasksAtEnd() {
	s1 := suite.createAfter("Sprint", suite.catchAll.ID)

	taskService := services.NewTaskService(recurrence.NewEngine(), nil)
	_, err := taskService.Create(suite.db, suite.owner.ID, services.CreateTaskInput{
		SectionID: s1.ID,
		Title:     "Task one",
	})
	suite.Require().NoError(err)
	_, err = taskService.Create(suite.db, suite.owner.ID, services.CreateTaskInput{
		SectionID: s1.ID,
		Title:     "Task two",
	})
	suite.Require().NoError(err)

	clone, err := suite.service.Duplicate(suite.db, suite.owner.ID, s1.ID)
	suite.Require().NoError(err)
	suite.Equal("Copy of Sprint", clone.Title)
	suite.Equal(2, clone.Order)

	var count int64
	suite.db.Model(&models.Task{}).Where("section_id = ?", clone.ID).Count(&count)
	suite.Equal(int64(2), count)
}

func (suite *SectionServiceTestSuite) TestBulkUpdateSpanningProjects() {
	s1 := suite.createAfter("A", suite.catchAll.ID)
	s2 := suite.createAfter("B", s1.ID)

	other, err := services.NewProjectService().Create(suite.db, suite.owner.ID,
		services.CreateProjectInput{Title: "Other"})
	suite.Require().NoError(err)
	otherDefault := defaultSectionOf(suite.T(), suite.db, other.ID)
	o1, err := suite.service.Create(suite.db, suite.owner.ID, services.CreateSectionInput{
		ProjectID:          other.ID,
		Title:              "Solo",
		PrecedingSectionID: otherDefault.ID,
	})
	suite.Require().NoError(err)

	one, two := 1, 2
	renamed := "Solo renamed"
	err = suite.service.BulkUpdate(suite.db, suite.owner.ID, []services.BulkSectionUpdate{
		{ID: s1.ID, Order: &two},
		{ID: s2.ID, Order: &one},
		{ID: o1.ID, Title: &renamed},
	})
	suite.Require().NoError(err)

	suite.Equal(2, orderOf(suite.T(), suite.db, "project_sections", s1.ID))
	suite.Equal(1, orderOf(suite.T(), suite.db, "project_sections", s2.ID))
	var solo models.ProjectSection
	suite.Require().NoError(suite.db.First(&solo, "id = ?", o1.ID).Error)
	suite.Equal(renamed, solo.Title)
	assertDenseOrders(suite.T(), suite.db, "project_sections", "project_id", suite.project.ID, 1, true)
}

func TestSectionServiceTestSuite(t *testing.T) {
	suite.Run(t, new(SectionServiceTestSuite))
}
