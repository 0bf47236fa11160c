package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/academiapro/academiapro-api/internal/service"
	appErrors "github.com/academiapro/academiapro-api/pkg/errors"
	"github.com/academiapro/academiapro-api/pkg/response"
)

// CurriculumHandler wires HTTP endpoints to the curriculum service.
// All routes are nested under a classroom.
type CurriculumHandler struct {
	service *service.CurriculumService
}

// NewCurriculumHandler creates a new handler.
func NewCurriculumHandler(svc *service.CurriculumService) *CurriculumHandler {
	return &CurriculumHandler{service: svc}
}

// yearParam reads the optional school_year_id query parameter. A missing
// parameter means year-independent rows are included.
func yearParam(c *gin.Context) *string {
	if year := c.Query("school_year_id"); year != "" {
		return &year
	}
	return nil
}

// List godoc
// @Summary List a classroom's curriculum
// @Description Subjects assigned to the classroom with their coefficients. Year-scoped rows and year-independent rows are both returned when a year is given.
// @Tags Curriculum
// @Produce json
// @Param id path string true "Classroom ID"
// @Param school_year_id query string false "School year ID"
// @Success 200 {object} response.Envelope
// @Router /classrooms/{id}/subjects [get]
func (h *CurriculumHandler) List(c *gin.Context) {
	entries, err := h.service.List(c.Request.Context(), c.Param("id"), yearParam(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entries, nil)
}

// Assign godoc
// @Summary Assign a subject to a classroom
// @Description Idempotent upsert: re-assigning an existing subject updates its coefficient.
// @Tags Curriculum
// @Accept json
// @Produce json
// @Param id path string true "Classroom ID"
// @Param payload body service.AssignSubjectRequest true "Assignment payload"
// @Success 201 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /classrooms/{id}/subjects [post]
func (h *CurriculumHandler) Assign(c *gin.Context) {
	var req service.AssignSubjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid curriculum payload"))
		return
	}

	entry, err := h.service.Assign(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, entry)
}

// Replace godoc
// @Summary Replace a classroom's curriculum
// @Description Atomically replace every subject assignment of the classroom.
// @Tags Curriculum
// @Accept json
// @Produce json
// @Param id path string true "Classroom ID"
// @Param payload body service.ReplaceCurriculumRequest true "Replacement payload"
// @Success 200 {object} response.Envelope
// @Router /classrooms/{id}/subjects [put]
func (h *CurriculumHandler) Replace(c *gin.Context) {
	var req service.ReplaceCurriculumRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid curriculum payload"))
		return
	}

	entries, err := h.service.Replace(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entries, nil)
}

// Remove godoc
// @Summary Remove a subject from a classroom
// @Description Without school_year_id only the year-independent row is removed.
// @Tags Curriculum
// @Param id path string true "Classroom ID"
// @Param subjectId path string true "Subject ID"
// @Param school_year_id query string false "School year ID"
// @Success 204 "No Content"
// @Failure 404 {object} response.Envelope
// @Router /classrooms/{id}/subjects/{subjectId} [delete]
func (h *CurriculumHandler) Remove(c *gin.Context) {
	err := h.service.Remove(c.Request.Context(), c.Param("id"), c.Param("subjectId"), yearParam(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Copy godoc
// @Summary Copy a classroom's curriculum between school years
// @Description Idempotent: rows already present in the target year get their coefficient updated.
// @Tags Curriculum
// @Accept json
// @Produce json
// @Param id path string true "Classroom ID"
// @Param payload body service.CopyCurriculumRequest true "Copy payload"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /classrooms/{id}/subjects/copy [post]
func (h *CurriculumHandler) Copy(c *gin.Context) {
	var req service.CopyCurriculumRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid copy payload"))
		return
	}

	copied, err := h.service.Copy(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"copied": copied}, nil)
}

// AssignTeachers godoc
// @Summary Assign teachers to a classroom subject
// @Tags Curriculum
// @Accept json
// @Produce json
// @Param id path string true "Classroom ID"
// @Param subjectId path string true "Subject ID"
// @Param payload body service.AssignTeachersRequest true "Teachers payload"
// @Success 204 "No Content"
// @Router /classrooms/{id}/subjects/{subjectId}/teachers [put]
func (h *CurriculumHandler) AssignTeachers(c *gin.Context) {
	var req service.AssignTeachersRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid teachers payload"))
		return
	}

	if err := h.service.AssignTeachers(c.Request.Context(), c.Param("id"), c.Param("subjectId"), req); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// AssignClassroomTeachers godoc
// @Summary Assign teachers to a classroom subject
// @Description Same operation as the nested route; the subject travels in the body.
// @Tags Curriculum
// @Accept json
// @Produce json
// @Param id path string true "Classroom ID"
// @Param payload body service.AssignClassroomTeachersRequest true "Teachers payload"
// @Success 204 "No Content"
// @Router /classrooms/{id}/assign-teachers [put]
func (h *CurriculumHandler) AssignClassroomTeachers(c *gin.Context) {
	var req service.AssignClassroomTeachersRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid teachers payload"))
		return
	}
	if req.SubjectID == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "subject_id is required"))
		return
	}

	if err := h.service.AssignTeachers(c.Request.Context(), c.Param("id"), req.SubjectID,
		service.AssignTeachersRequest{TeacherIDs: req.TeacherIDs}); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// ListTeachers godoc
// @Summary List teachers assigned to a classroom subject
// @Tags Curriculum
// @Produce json
// @Param id path string true "Classroom ID"
// @Param subjectId path string true "Subject ID"
// @Success 200 {object} response.Envelope
// @Router /classrooms/{id}/subjects/{subjectId}/teachers [get]
func (h *CurriculumHandler) ListTeachers(c *gin.Context) {
	teachers, err := h.service.ListTeachers(c.Request.Context(), c.Param("id"), c.Param("subjectId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, teachers, nil)
}
