package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/academiapro/academiapro-api/internal/models"
	"github.com/academiapro/academiapro-api/internal/service"
	appErrors "github.com/academiapro/academiapro-api/pkg/errors"
	"github.com/academiapro/academiapro-api/pkg/response"
)

// GradebookHandler wires HTTP endpoints to the gradebook service: grades,
// report cards and rankings.
type GradebookHandler struct {
	service *service.GradebookService
}

// NewGradebookHandler creates a new handler.
func NewGradebookHandler(svc *service.GradebookService) *GradebookHandler {
	return &GradebookHandler{service: svc}
}

// ListGrades godoc
// @Summary List grades
// @Tags Grades
// @Produce json
// @Param student_id query string false "Filter by student"
// @Param assignment_id query string false "Filter by assignment"
// @Param classroom_id query string false "Filter by classroom"
// @Success 200 {object} response.Envelope
// @Router /grades [get]
func (h *GradebookHandler) ListGrades(c *gin.Context) {
	filter := models.GradeFilter{
		StudentID:    c.Query("student_id"),
		AssignmentID: c.Query("assignment_id"),
		ClassroomID:  c.Query("classroom_id"),
	}

	grades, err := h.service.ListGrades(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, grades, nil)
}

// RecordGrade godoc
// @Summary Record a grade
// @Description One grade per student and assignment. The score must not exceed the assignment's max score.
// @Tags Grades
// @Accept json
// @Produce json
// @Param payload body service.RecordGradeRequest true "Grade payload"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /grades [post]
func (h *GradebookHandler) RecordGrade(c *gin.Context) {
	var req service.RecordGradeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid grade payload"))
		return
	}

	grade, err := h.service.RecordGrade(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, grade)
}

// UpdateGrade godoc
// @Summary Update a grade
// @Tags Grades
// @Accept json
// @Produce json
// @Param id path string true "Grade ID"
// @Param payload body service.UpdateGradeRequest true "Grade payload"
// @Success 200 {object} response.Envelope
// @Router /grades/{id} [put]
func (h *GradebookHandler) UpdateGrade(c *gin.Context) {
	var req service.UpdateGradeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid grade payload"))
		return
	}

	grade, err := h.service.UpdateGrade(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, grade, nil)
}

// DeleteGrade godoc
// @Summary Delete a grade
// @Tags Grades
// @Param id path string true "Grade ID"
// @Success 204 "No Content"
// @Router /grades/{id} [delete]
func (h *GradebookHandler) DeleteGrade(c *gin.Context) {
	if err := h.service.DeleteGrade(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// GenerateReportCard godoc
// @Summary Generate a report card
// @Description Aggregates the student's grades into per-subject averages and an overall coefficient-weighted average, then queues the PDF rendering.
// @Tags ReportCards
// @Accept json
// @Produce json
// @Param payload body service.GenerateReportCardRequest true "Report card payload"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /report-cards [post]
func (h *GradebookHandler) GenerateReportCard(c *gin.Context) {
	var req service.GenerateReportCardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid report card payload"))
		return
	}

	card, err := h.service.GenerateReportCard(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, card)
}

// GenerateStudentReportCard godoc
// @Summary Generate a report card for a student
// @Description Student-scoped form of report card generation; the student comes from the path.
// @Tags ReportCards
// @Accept json
// @Produce json
// @Param id path string true "Student ID"
// @Param payload body service.GenerateReportCardRequest true "Report card payload"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /students/{id}/report-cards/generate [post]
func (h *GradebookHandler) GenerateStudentReportCard(c *gin.Context) {
	var req service.GenerateReportCardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid report card payload"))
		return
	}
	req.StudentID = c.Param("id")

	card, err := h.service.GenerateReportCard(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, card)
}

// GetReportCard godoc
// @Summary Get a report card
// @Tags ReportCards
// @Produce json
// @Param id path string true "Report card ID"
// @Success 200 {object} response.Envelope
// @Router /report-cards/{id} [get]
func (h *GradebookHandler) GetReportCard(c *gin.Context) {
	card, err := h.service.GetReportCard(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, card, nil)
}

// ListReportCards godoc
// @Summary List a student's report cards
// @Tags ReportCards
// @Produce json
// @Param id path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Router /students/{id}/report-cards [get]
func (h *GradebookHandler) ListReportCards(c *gin.Context) {
	cards, err := h.service.ListReportCards(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, cards, nil)
}

// DownloadReportCard godoc
// @Summary Download a report card PDF
// @Tags ReportCards
// @Produce application/pdf
// @Param id path string true "Report card ID"
// @Success 200 {file} binary
// @Router /report-cards/{id}/download [get]
func (h *GradebookHandler) DownloadReportCard(c *gin.Context) {
	data, filename, err := h.service.DownloadReportCard(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.PDF(c, filename, data)
}

// Ranking godoc
// @Summary Rank a classroom's students
// @Description Averages are percentages of each assignment's max score. Ties share a rank and the next distinct average skips accordingly.
// @Tags Grades
// @Produce json
// @Param id path string true "Classroom ID"
// @Param assignment_id query string false "Restrict to one assignment"
// @Success 200 {object} response.Envelope
// @Router /classrooms/{id}/ranking [get]
func (h *GradebookHandler) Ranking(c *gin.Context) {
	rows, err := h.service.Ranking(c.Request.Context(), c.Param("id"), c.Query("assignment_id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, rows, nil)
}
