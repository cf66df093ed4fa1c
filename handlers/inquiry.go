package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"ziwuxx-intake/models"
	"ziwuxx-intake/service"
)

const (
	msgSubmitted    = "报名成功!我们会尽快与您联系。"
	msgSubmitFailed = "提交失败,请稍后重试"
	msgListFailed   = "获取数据失败"
	msgBadRequest   = "请求格式错误"
)

var validationMessages = map[service.ValidationKind]string{
	service.MissingField:      "请填写所有必填字段",
	service.InvalidEmail:      "请输入有效的邮箱地址",
	service.InvalidPhone:      "请输入有效的手机号码",
	service.InvalidGradeLevel: "请选择有效的年级",
	service.InvalidProject:    "请选择有效的项目",
}

// Intake is the part of service.IntakeService the HTTP layer needs.
type Intake interface {
	Submit(ctx context.Context, req service.SubmitRequest) (*models.Inquiry, error)
	List(ctx context.Context) ([]models.Inquiry, error)
	Health() service.HealthStatus
}

type InquiryHandler struct {
	svc Intake
}

func NewInquiryHandler(svc Intake) *InquiryHandler {
	return &InquiryHandler{svc: svc}
}

// RegisterRoutes mounts the public API under /api.
func RegisterRoutes(r gin.IRouter, h *InquiryHandler) {
	api := r.Group("/api")
	{
		api.POST("/contact", h.Submit)
		api.GET("/contacts", h.List)
		api.GET("/health", h.Health)
	}
}

func (h *InquiryHandler) Submit(c *gin.Context) {
	var req service.SubmitRequest
	// An empty body is treated as an empty form so it fails as missing fields.
	if err := c.ShouldBind(&req); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": msgBadRequest})
		return
	}

	if _, err := h.svc.Submit(c.Request.Context(), req); err != nil {
		if verr, ok := service.AsValidationError(err); ok {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": validationMessages[verr.Kind]})
			return
		}
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": msgSubmitFailed})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"success": true, "message": msgSubmitted})
}

func (h *InquiryHandler) List(c *gin.Context) {
	inquiries, err := h.svc.List(c.Request.Context())
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": msgListFailed})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": inquiries})
}

// Health never touches storage.
func (h *InquiryHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, h.svc.Health())
}
