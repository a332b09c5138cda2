package http

import (
	"errors"
	"net/http"
	"path/filepath"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/aditpras/loan-workflow/internal/export"
	"github.com/aditpras/loan-workflow/internal/gateway"
	"github.com/aditpras/loan-workflow/internal/orchestrator"
	"github.com/aditpras/loan-workflow/internal/repository"
	"github.com/aditpras/loan-workflow/internal/viewmodel"
	"github.com/aditpras/loan-workflow/pkg/utils"
)

// Handlers contains all HTTP request handlers
type Handlers struct {
	workflow  *orchestrator.Orchestrator
	history   *repository.HistoryRepository
	adapter   *viewmodel.Adapter
	reports   *export.ReportWriter
	reportDir string
	logger    Logger
}

// NewHandlers creates a new Handlers instance
func NewHandlers(
	workflow *orchestrator.Orchestrator,
	history *repository.HistoryRepository,
	adapter *viewmodel.Adapter,
	reports *export.ReportWriter,
	reportDir string,
	logger Logger,
) *Handlers {
	return &Handlers{
		workflow:  workflow,
		history:   history,
		adapter:   adapter,
		reports:   reports,
		reportDir: reportDir,
		logger:    logger,
	}
}

// Response represents a standard JSON response
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	Version   string `json:"version"`
}

// ListLoansRequest represents query parameters for listing loans
type ListLoansRequest struct {
	Page          int    `form:"page"`
	PageSize      int    `form:"page_size"`
	SortField     string `form:"sort"`
	SortDirection string `form:"direction"`
	Search        string `form:"search"`
}

// LoanPageResponse is one page of display-ready loans
type LoanPageResponse struct {
	Items      []viewmodel.LoanView `json:"items"`
	Page       int                  `json:"page"`
	PageSize   int                  `json:"page_size"`
	TotalItems int                  `json:"total_items"`
}

// HistoryEntry is one audit-trail record in API responses
type HistoryEntry struct {
	ID             int64  `json:"id"`
	PreviousStatus string `json:"previous_status"`
	NewStatus      string `json:"new_status"`
	Action         string `json:"action"`
	Actor          string `json:"actor,omitempty"`
	Notes          string `json:"notes,omitempty"`
	CreatedAt      string `json:"created_at"`
}

// NotesRequest carries the optional notes body shared by several transitions
type NotesRequest struct {
	Notes string `json:"notes"`
}

// ReasonRequest carries the mandatory reason for reject and cancel
type ReasonRequest struct {
	Reason string `json:"reason" binding:"required"`
}

// DisburseBody carries the back-office disbursement details
type DisburseBody struct {
	Date            string `json:"date" binding:"required"`
	ReferenceNumber string `json:"reference_number" binding:"required"`
}

// HealthCheck handles GET /health
func (h *Handlers) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, Response{
		Success: true,
		Data: HealthResponse{
			Status:    "healthy",
			Timestamp: time.Now().UTC().Format(time.RFC3339),
			Version:   "1.0.0",
		},
	})
}

// ListLoans handles GET /api/loans
func (h *Handlers) ListLoans(c *gin.Context) {
	var req ListLoansRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.logger.Error("Invalid query parameters", "error", err)
		c.JSON(http.StatusBadRequest, Response{
			Success: false,
			Error:   "invalid query parameters",
		})
		return
	}

	if req.PageSize <= 0 || req.PageSize > 100 {
		req.PageSize = 20
	}
	if req.Page <= 0 {
		req.Page = 1
	}

	h.workflow.SetQuery(orchestrator.Query{
		Page:          req.Page,
		PageSize:      req.PageSize,
		SortField:     req.SortField,
		SortDirection: req.SortDirection,
		Search:        req.Search,
	})
	if err := h.workflow.LoadPage(c.Request.Context()); err != nil {
		h.respondError(c, err, "failed to retrieve loans")
		return
	}

	state := h.workflow.View()
	items := make([]viewmodel.LoanView, 0, len(state.Items))
	for _, loan := range state.Items {
		items = append(items, h.adapter.ToView(loan))
	}

	c.JSON(http.StatusOK, Response{
		Success: true,
		Data: LoanPageResponse{
			Items:      items,
			Page:       state.Page,
			PageSize:   state.PageSize,
			TotalItems: state.TotalItems,
		},
	})
}

// GetLoan handles GET /api/loans/:id
func (h *Handlers) GetLoan(c *gin.Context) {
	loan, err := h.workflow.Load(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err, "loan not found")
		return
	}

	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    h.adapter.ToView(loan),
	})
}

// GetHistory handles GET /api/loans/:id/history
func (h *Handlers) GetHistory(c *gin.Context) {
	records, err := h.history.GetByLoanID(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.logger.Error("Failed to get loan history", "error", err)
		c.JSON(http.StatusInternalServerError, Response{
			Success: false,
			Error:   "failed to retrieve history",
		})
		return
	}

	entries := make([]HistoryEntry, 0, len(records))
	for _, record := range records {
		entries = append(entries, HistoryEntry{
			ID:             record.ID,
			PreviousStatus: record.PreviousStatus,
			NewStatus:      record.NewStatus,
			Action:         record.Action,
			Actor:          record.Actor,
			Notes:          record.Notes,
			CreatedAt:      record.CreatedAt.Format(time.RFC3339),
		})
	}

	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    entries,
	})
}

// GetActions handles GET /api/loans/:id/actions
func (h *Handlers) GetActions(c *gin.Context) {
	loan, err := h.workflow.Load(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err, "loan not found")
		return
	}

	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    h.workflow.AvailableActions(c.Request.Context(), loan.Status),
	})
}

// Submit handles POST /api/loans/:id/submit
func (h *Handlers) Submit(c *gin.Context) {
	h.runTransition(c, func() (*gateway.Loan, error) {
		return h.workflow.Submit(c.Request.Context(), c.Param("id"))
	})
}

// Review handles POST /api/loans/:id/review
func (h *Handlers) Review(c *gin.Context) {
	var req NotesRequest
	if !h.bindBody(c, &req) {
		return
	}
	h.runTransition(c, func() (*gateway.Loan, error) {
		return h.workflow.Review(c.Request.Context(), c.Param("id"), utils.SanitizeString(req.Notes))
	})
}

// Approve handles POST /api/loans/:id/approve
func (h *Handlers) Approve(c *gin.Context) {
	var req NotesRequest
	if !h.bindBody(c, &req) {
		return
	}
	h.runTransition(c, func() (*gateway.Loan, error) {
		return h.workflow.Approve(c.Request.Context(), c.Param("id"), utils.SanitizeString(req.Notes))
	})
}

// Reject handles POST /api/loans/:id/reject
func (h *Handlers) Reject(c *gin.Context) {
	var req ReasonRequest
	if !h.bindBody(c, &req) {
		return
	}
	h.runTransition(c, func() (*gateway.Loan, error) {
		return h.workflow.Reject(c.Request.Context(), c.Param("id"), utils.SanitizeString(req.Reason))
	})
}

// Rollback handles POST /api/loans/:id/rollback
func (h *Handlers) Rollback(c *gin.Context) {
	var req NotesRequest
	if !h.bindBody(c, &req) {
		return
	}
	h.runTransition(c, func() (*gateway.Loan, error) {
		return h.workflow.Rollback(c.Request.Context(), c.Param("id"), utils.SanitizeString(req.Notes))
	})
}

// Disburse handles POST /api/loans/:id/disburse
func (h *Handlers) Disburse(c *gin.Context) {
	var req DisburseBody
	if !h.bindBody(c, &req) {
		return
	}
	date, err := time.Parse("2006-01-02", req.Date)
	if err != nil {
		c.JSON(http.StatusBadRequest, Response{
			Success: false,
			Error:   "invalid disbursement date, expected YYYY-MM-DD",
		})
		return
	}
	if err := utils.ValidateReferenceNumber(req.ReferenceNumber); err != nil {
		c.JSON(http.StatusBadRequest, Response{
			Success: false,
			Error:   err.Error(),
		})
		return
	}
	h.runTransition(c, func() (*gateway.Loan, error) {
		return h.workflow.Disburse(c.Request.Context(), c.Param("id"), gateway.DisburseRequest{
			Date:            date,
			ReferenceNumber: req.ReferenceNumber,
		})
	})
}

// Complete handles POST /api/loans/:id/complete
func (h *Handlers) Complete(c *gin.Context) {
	h.runTransition(c, func() (*gateway.Loan, error) {
		return h.workflow.Complete(c.Request.Context(), c.Param("id"))
	})
}

// Cancel handles POST /api/loans/:id/cancel
func (h *Handlers) Cancel(c *gin.Context) {
	var req ReasonRequest
	if !h.bindBody(c, &req) {
		return
	}
	h.runTransition(c, func() (*gateway.Loan, error) {
		return h.workflow.Cancel(c.Request.Context(), c.Param("id"), utils.SanitizeString(req.Reason))
	})
}

// ExportPipeline handles POST /api/reports/pipeline
func (h *Handlers) ExportPipeline(c *gin.Context) {
	filename := "pipeline-" + time.Now().UTC().Format("20060102-150405") + ".xlsx"
	outputPath := filepath.Join(h.reportDir, filename)

	if err := h.reports.WritePipeline(c.Request.Context(), outputPath); err != nil {
		h.logger.Error("Failed to export pipeline report", "error", err)
		c.JSON(http.StatusInternalServerError, Response{
			Success: false,
			Error:   "report generation failed",
		})
		return
	}

	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    gin.H{"path": outputPath},
	})
}

func (h *Handlers) runTransition(c *gin.Context, call func() (*gateway.Loan, error)) {
	loan, err := call()
	if err != nil {
		h.respondError(c, err, "transition failed")
		return
	}

	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    h.adapter.ToView(loan),
	})
}

func (h *Handlers) bindBody(c *gin.Context, target interface{}) bool {
	if err := c.ShouldBindJSON(target); err != nil {
		c.JSON(http.StatusBadRequest, Response{
			Success: false,
			Error:   "invalid request body",
		})
		return false
	}
	return true
}

// respondError maps remote call failures onto the API response. Remote
// statuses pass through so a conflict or permission failure upstream looks
// the same to our callers.
func (h *Handlers) respondError(c *gin.Context, err error, fallback string) {
	var apiErr *gateway.APIError
	if errors.As(err, &apiErr) {
		c.JSON(apiErr.StatusCode, Response{
			Success: false,
			Error:   apiErr.Message,
		})
		return
	}

	c.JSON(http.StatusInternalServerError, Response{
		Success: false,
		Error:   fallback,
	})
}
