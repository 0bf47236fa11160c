package handler

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/academiapro/academiapro-api/internal/models"
	"github.com/academiapro/academiapro-api/internal/service"
	appErrors "github.com/academiapro/academiapro-api/pkg/errors"
	"github.com/academiapro/academiapro-api/pkg/response"
)

// FinanceHandler wires HTTP endpoints to the finance service.
type FinanceHandler struct {
	service *service.FinanceService
}

// NewFinanceHandler creates a new handler.
func NewFinanceHandler(svc *service.FinanceService) *FinanceHandler {
	return &FinanceHandler{service: svc}
}

// RecordPayment godoc
// @Summary Record a payment
// @Description Payments are append-only. Mistakes are corrected with a REVERSAL entry, which may not exceed the amount already paid.
// @Tags Finance
// @Accept json
// @Produce json
// @Param payload body service.RecordPaymentRequest true "Payment payload"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /payments [post]
func (h *FinanceHandler) RecordPayment(c *gin.Context) {
	var req service.RecordPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payment payload"))
		return
	}

	payment, err := h.service.RecordPayment(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, payment)
}

// Balance godoc
// @Summary Get a student's balance
// @Description Expected tuition minus net payments. Scoped to a school year when school_year_id is given.
// @Tags Finance
// @Produce json
// @Param id path string true "Student ID"
// @Param school_year_id query string false "School year ID"
// @Success 200 {object} response.Envelope
// @Router /students/{id}/balance [get]
func (h *FinanceHandler) Balance(c *gin.Context) {
	var yearID *string
	if year := c.Query("school_year_id"); year != "" {
		yearID = &year
	}

	balance, err := h.service.GetBalance(c.Request.Context(), c.Param("id"), yearID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, balance, nil)
}

// History godoc
// @Summary List a student's payments
// @Description Ordered by payment date, most recent first.
// @Tags Finance
// @Produce json
// @Param id path string true "Student ID"
// @Param school_year_id query string false "School year ID"
// @Param type query string false "Filter by payment type"
// @Success 200 {object} response.Envelope
// @Router /students/{id}/payments [get]
func (h *FinanceHandler) History(c *gin.Context) {
	filter := h.historyFilter(c)

	payments, pagination, err := h.service.PaymentHistory(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, payments, pagination)
}

// Receipt godoc
// @Summary Download a payment receipt PDF
// @Tags Finance
// @Produce application/pdf
// @Param id path string true "Payment ID"
// @Success 200 {file} binary
// @Router /payments/{id}/receipt [get]
func (h *FinanceHandler) Receipt(c *gin.Context) {
	data, filename, err := h.service.Receipt(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.PDF(c, filename, data)
}

// Export godoc
// @Summary Export a student's payment history as CSV
// @Tags Finance
// @Produce text/csv
// @Param id path string true "Student ID"
// @Param school_year_id query string false "School year ID"
// @Success 200 {file} binary
// @Router /students/{id}/payments/export [get]
func (h *FinanceHandler) Export(c *gin.Context) {
	filter := h.historyFilter(c)

	data, err := h.service.ExportHistory(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}

	filename := fmt.Sprintf("payments-%s-%s.csv", filter.StudentID, time.Now().Format("2006-01-02"))
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, "text/csv", data)
}

// Collections godoc
// @Summary Per-classroom collection summary
// @Description Expected, collected and outstanding tuition per classroom for a school year.
// @Tags Finance
// @Produce json
// @Param school_id query string true "School ID"
// @Param school_year_id query string true "School year ID"
// @Success 200 {object} response.Envelope
// @Router /finance/collections [get]
func (h *FinanceHandler) Collections(c *gin.Context) {
	schoolID := c.Query("school_id")
	yearID := c.Query("school_year_id")
	if schoolID == "" || yearID == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "school_id and school_year_id are required"))
		return
	}

	rows, err := h.service.ClassroomCollections(c.Request.Context(), schoolID, yearID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, rows, nil)
}

func (h *FinanceHandler) historyFilter(c *gin.Context) models.PaymentFilter {
	filter := models.PaymentFilter{
		StudentID:    c.Param("id"),
		SchoolYearID: c.Query("school_year_id"),
		Type:         c.Query("type"),
	}
	filter.Page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	filter.PageSize, _ = strconv.Atoi(c.DefaultQuery("page_size", "20"))
	return filter
}
