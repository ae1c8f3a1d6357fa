package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	fieldReportUC "github.com/khoahotran/town-notes/internal/application/usecase/fieldreport"
	"github.com/khoahotran/town-notes/pkg/apperror"
	"github.com/khoahotran/town-notes/pkg/envelope"
	"github.com/khoahotran/town-notes/pkg/logger"
)

type FieldReportHandler struct {
	fieldReportUseCase *fieldReportUC.FieldReportUseCase
	logger             logger.Logger
}

func NewFieldReportHandler(uc *fieldReportUC.FieldReportUseCase, log logger.Logger) *FieldReportHandler {
	return &FieldReportHandler{
		fieldReportUseCase: uc,
		logger:             log,
	}
}

func (h *FieldReportHandler) ListFieldReport(c *gin.Context) {
	input := fieldReportUC.ListFieldReportInput{
		Username:  c.Param("username"),
		SessionID: c.Param("sessionID"),
	}
	output, err := h.fieldReportUseCase.ListFieldReport(c.Request.Context(), input)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, envelope.OK(ToFieldReportDTO(output.Report)))
}

// CreateFieldReport files the report under the caller when the body names
// no author.
func (h *FieldReportHandler) CreateFieldReport(c *gin.Context) {
	var req CreateFieldReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(apperror.NewInvalidInput("invalid JSON body for field report", err))
		return
	}

	username := req.Username
	if username == "" {
		caller, ok := GetCallerEmailFromGinContext(c)
		if !ok {
			c.Error(apperror.NewPermissionDenied("caller identity not found in context"))
			return
		}
		username = caller
	}

	input := fieldReportUC.WriteFieldReportInput{
		Username:     username,
		SessionID:    c.Param("sessionID"),
		FieldReports: req.FieldReports,
		Time:         timeOrZero(req.Time),
	}
	if err := h.fieldReportUseCase.CreateFieldReport(c.Request.Context(), input); err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, envelope.OK(envelope.Ack{}))
}

func (h *FieldReportHandler) UpdateFieldReport(c *gin.Context) {
	input, ok := h.bindWrite(c)
	if !ok {
		return
	}
	if err := h.fieldReportUseCase.UpdateFieldReport(c.Request.Context(), input); err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, envelope.OK(envelope.Ack{}))
}

func (h *FieldReportHandler) SaveFieldReport(c *gin.Context) {
	input, ok := h.bindWrite(c)
	if !ok {
		return
	}
	output, err := h.fieldReportUseCase.SaveFieldReport(c.Request.Context(), input)
	if err != nil {
		c.Error(err)
		return
	}

	status := http.StatusOK
	if output.Created {
		status = http.StatusCreated
	}
	c.JSON(status, envelope.OK(SaveFieldReportDTO{Created: output.Created}))
}

func (h *FieldReportHandler) bindWrite(c *gin.Context) (fieldReportUC.WriteFieldReportInput, bool) {
	var req WriteFieldReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(apperror.NewInvalidInput("invalid JSON body for field report", err))
		return fieldReportUC.WriteFieldReportInput{}, false
	}
	return fieldReportUC.WriteFieldReportInput{
		Username:     c.Param("username"),
		SessionID:    c.Param("sessionID"),
		FieldReports: req.FieldReports,
		Time:         timeOrZero(req.Time),
	}, true
}
