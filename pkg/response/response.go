package response

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "github.com/xiebiao/fastorder/pkg/errors"
	"github.com/xiebiao/fastorder/pkg/logger"
)

// Response 统一响应结构
// 设计说明：
// 1. Code是业务错误码（非HTTP状态码），方便客户端判断错误类型
// 2. Message是用户友好的提示信息
// 3. Data是业务数据，成功时返回，失败时为null
type Response struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// Success 成功响应（Code=0表示成功）
func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Code:    0,
		Message: "success",
		Data:    data,
	})
}

// Error 错误响应（自动处理AppError）
// 用法：
//
//	order, err := h.acceptOrder.Execute(ctx, req)
//	if err != nil {
//	    response.Error(c, err)
//	    return
//	}
func Error(c *gin.Context, err error) {
	appErr := apperrors.GetAppError(err)

	// 内部错误只写日志，不返回给客户端
	log := logger.Ctx(c.Request.Context())
	status := HTTPStatus(appErr.Code)
	if status >= http.StatusInternalServerError {
		log.Error().Err(err).Int("code", appErr.Code).Msg("请求处理失败")
	} else if appErr.Err != nil {
		log.Warn().Err(err).Int("code", appErr.Code).Msg("请求被拒绝")
	}

	c.JSON(status, Response{
		Code:    appErr.Code,
		Message: appErr.Message,
		Data:    nil,
	})
}

// ErrorWithCode 自定义错误码和消息
func ErrorWithCode(c *gin.Context, code int, message string) {
	c.JSON(HTTPStatus(code), Response{
		Code:    code,
		Message: message,
		Data:    nil,
	})
}

// HTTPStatus 业务错误码 → HTTP状态码
func HTTPStatus(code int) int {
	switch code {
	case 0:
		return http.StatusOK
	case apperrors.ErrCodeUnauthorized, apperrors.ErrCodeInvalidToken,
		apperrors.ErrCodeTokenExpired, apperrors.ErrCodeTokenRevoked:
		return http.StatusUnauthorized
	case apperrors.ErrCodeForbidden:
		return http.StatusForbidden
	case apperrors.ErrCodeInvalidTransition, apperrors.ErrCodeAlreadyPaid,
		apperrors.ErrCodeInsufficientStock, apperrors.ErrCodeConcurrentUpdate,
		apperrors.ErrCodeCancellationWindowExpired, apperrors.ErrCodeDuplicateEntry:
		return http.StatusConflict
	case apperrors.ErrCodeTooManyRequests:
		return http.StatusTooManyRequests
	case apperrors.ErrCodePaymentFailed:
		return http.StatusPaymentRequired
	case apperrors.ErrCodePaymentUnavailable:
		return http.StatusServiceUnavailable
	}

	switch {
	case code >= 40400 && code < 40500:
		return http.StatusNotFound
	case code >= 40000 && code < 50000:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// =========================================
// 分页响应结构
// =========================================

// PageData 分页数据封装
type PageData struct {
	List       interface{} `json:"list"`        // 数据列表
	Total      int64       `json:"total"`       // 总记录数
	Page       int         `json:"page"`        // 当前页码
	PageSize   int         `json:"page_size"`   // 每页大小
	TotalPages int         `json:"total_pages"` // 总页数
}

// NewPageData 创建分页数据
func NewPageData(list interface{}, total int64, page, pageSize int) *PageData {
	totalPages := 0
	if pageSize > 0 {
		totalPages = int(total) / pageSize
		if int(total)%pageSize != 0 {
			totalPages++
		}
	}

	return &PageData{
		List:       list,
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: totalPages,
	}
}

// SuccessWithPage 分页成功响应
func SuccessWithPage(c *gin.Context, list interface{}, total int64, page, pageSize int) {
	Success(c, NewPageData(list, total, page, pageSize))
}
