package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"pawnshop/internal/apperr"
)

const RequestIDHeader = "X-Request-ID"

func setResponseDefaults(r *Response) {
	if r.Message == "" {
		r.Message = "Success"
	}
	if r.Code == 0 {
		r.Code = http.StatusOK
	}
}

func logResponseError(log *zap.Logger, c *gin.Context, r Response) {
	if r.Error == nil {
		return
	}

	fields := []zap.Field{
		zap.String("requestId", c.GetString("requestId")),
		zap.String("path", c.Request.URL.Path),
		zap.Int("code", r.Code),
		zap.Error(r.Error),
	}
	if r.Code >= http.StatusInternalServerError {
		log.Error("request failed", fields...)
		return
	}
	log.Warn("request rejected", fields...)
}

func getStartTime(c *gin.Context) time.Time {
	if value, exists := c.Get("start-time"); exists {
		if t, ok := value.(time.Time); ok {
			return t
		}
	}
	return time.Now()
}

func buildDebugInfo(c *gin.Context, r Response) *ResponseAPIDebug {
	startTime := getStartTime(c)
	endTime := time.Now()

	debug := &ResponseAPIDebug{
		Version:   c.GetString("version"),
		StartTime: startTime,
		EndTime:   endTime,
		RuntimeMs: endTime.Sub(startTime).Milliseconds(),
	}
	if r.Error != nil {
		msg := r.Error.Error()
		debug.Error = &msg
	}
	return debug
}

func buildResponseAPI(c *gin.Context, r Response, shouldDebug bool) ResponseAPI {
	response := ResponseAPI{
		RequestID: c.GetString("requestId"),
		Message:   r.Message,
		Data:      r.Data,
	}

	if shouldDebug {
		response.Debug = buildDebugInfo(c, r)
	}

	return response
}

func send(log *zap.Logger, c *gin.Context, shouldDebug bool) func(r Response) {
	return func(r Response) {
		setResponseDefaults(&r)
		logResponseError(log, c, r)
		response := buildResponseAPI(c, r, shouldDebug)

		c.Abort()
		c.JSON(r.Code, response)
	}
}

// Fail turns a classified error into a response. Client errors carry the
// failed precondition as message; internal errors stay generic.
func Fail(err error) Response {
	code := apperr.HTTPStatus(err)
	msg := err.Error()
	if code >= http.StatusInternalServerError && !apperr.Is(err, apperr.KindUpstreamUnavailable) {
		msg = "Internal server error"
	}
	return Response{Code: code, Message: msg, Error: err}
}

func RequestInit() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(RequestIDHeader)
		if requestID == "" {
			requestID = uuid.New().String()
		}
		c.Set("requestId", requestID)
		c.Header(RequestIDHeader, requestID)

		version := c.Request.Header.Get("version")
		if version == "" {
			version = "1.0.0"
		}
		c.Set("version", version)
		c.Set("start-time", time.Now())
		c.Next()
	}
}

// sendStream writes the chunks of r as they arrive. An error before the first
// chunk becomes a regular error envelope; after it the body is cut short.
func sendStream(log *zap.Logger, c *gin.Context, shouldDebug bool) func(r StreamResponse) {
	return func(r StreamResponse) {
		if r.Code == 0 {
			r.Code = http.StatusOK
		}

		if r.Error != nil {
			send(log, c, shouldDebug)(Response{
				Code:    apperr.HTTPStatus(r.Error),
				Message: "Stream failed",
				Error:   r.Error,
			})
			return
		}

		requestID := c.GetString("requestId")
		writer := c.Writer
		started := false
		defer c.Abort()

		for chunk := range r.ChunkChan {
			if err := c.Request.Context().Err(); err != nil {
				log.Info("stream canceled", zap.String("requestId", requestID), zap.Error(err))
				drain(r)
				return
			}

			if chunk.Error != nil {
				if !started {
					send(log, c, shouldDebug)(Response{
						Code:    apperr.HTTPStatus(chunk.Error),
						Message: "Stream failed",
						Error:   chunk.Error,
					})
				} else {
					log.Error("stream aborted", zap.String("requestId", requestID), zap.Error(chunk.Error))
				}
				drain(r)
				return
			}

			if chunk.JSONBuf == nil {
				continue
			}
			if !started {
				c.Header("Content-Type", "application/json")
				if r.TotalCount >= 0 {
					c.Header("X-Total-Count", strconv.FormatInt(r.TotalCount, 10))
				}
				c.Status(r.Code)
				started = true
			}
			writer.Write(*chunk.JSONBuf)
			if r.Release != nil {
				r.Release(chunk.JSONBuf)
			}
			writer.Flush()
		}

		if shouldDebug {
			log.Debug("stream completed",
				zap.String("requestId", requestID),
				zap.Int64("runtimeMs", time.Since(getStartTime(c)).Milliseconds()),
				zap.Int64("totalCount", r.TotalCount),
			)
		}
	}
}

// drain lets the producer goroutine finish after the client went away.
func drain(r StreamResponse) {
	go func() {
		for chunk := range r.ChunkChan {
			if chunk.JSONBuf != nil && r.Release != nil {
				r.Release(chunk.JSONBuf)
			}
		}
	}()
}

func ResponseInit(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		shouldDebug := gin.Mode() == gin.DebugMode
		c.Set("send", send(log, c, shouldDebug))
		c.Set("sendStream", sendStream(log, c, shouldDebug))
		c.Next()
	}
}
