package payment

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cast"
	"gorm.io/gorm"

	"confreg/app/models/payment"
	paymentpkg "confreg/pkg/payment"
	"confreg/pkg/response"
)

// RecordController 支付记录运营侧接口
type RecordController struct {
	records    *paymentpkg.RecordService
	dispatcher *paymentpkg.Dispatcher
}

// NewRecordController 创建记录控制器
func NewRecordController(records *paymentpkg.RecordService, dispatcher *paymentpkg.Dispatcher) *RecordController {
	return &RecordController{
		records:    records,
		dispatcher: dispatcher,
	}
}

// Stats 按状态统计记录数与完成总额
func (rc *RecordController) Stats(c *gin.Context) {
	stats, err := rc.records.Stats(c.Request.Context())
	if err != nil {
		response.ServerError(c, err, "统计查询失败")
		return
	}
	response.Data(c, stats)
}

// List 按状态分页列出支付记录
func (rc *RecordController) List(c *gin.Context) {
	status := payment.Status(c.DefaultQuery("status", string(payment.StatusPending)))
	limit := cast.ToInt(c.DefaultQuery("limit", "50"))
	offset := cast.ToInt(c.DefaultQuery("offset", "0"))

	records, err := rc.records.ListByStatus(c.Request.Context(), status, limit, offset)
	if err != nil {
		response.ServerError(c, err, "记录查询失败")
		return
	}
	response.Data(c, records)
}

// ByEmail 按客户邮箱列出记录
func (rc *RecordController) ByEmail(c *gin.Context) {
	email := c.Param("email")
	records, err := rc.records.ListByEmail(c.Request.Context(), email)
	if err != nil {
		response.ServerError(c, err, "记录查询失败")
		return
	}
	response.Data(c, records)
}

// Show 按会话 ID 查单条记录
func (rc *RecordController) Show(c *gin.Context) {
	sessionID := c.Param("session_id")
	record, err := rc.records.GetBySessionID(c.Request.Context(), sessionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			response.Abort404(c, "记录不存在")
			return
		}
		response.ServerError(c, err, "记录查询失败")
		return
	}
	response.Data(c, record)
}

// MismatchReport 金额复核报表
func (rc *RecordController) MismatchReport(c *gin.Context) {
	entries, err := rc.records.MismatchReport(c.Request.Context())
	if err != nil {
		response.ServerError(c, err, "报表生成失败")
		return
	}
	response.Data(c, entries)
}

// SweepOverdue 手动触发过期清扫
func (rc *RecordController) SweepOverdue(c *gin.Context) {
	affected, err := rc.records.SweepOverdue(c.Request.Context())
	if err != nil {
		response.ServerError(c, err, "过期清扫失败")
		return
	}
	response.Data(c, gin.H{"expired": affected})
}

// Metrics webhook 分发计数
func (rc *RecordController) Metrics(c *gin.Context) {
	response.Data(c, rc.dispatcher.Metrics().Snapshot())
}
