package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// maxLogBatch bounds the entries accepted per request
const maxLogBatch = 200

// UILogEntry is one log line forwarded by a shell UI
type UILogEntry struct {
	Level   string         `json:"level"`
	Message string         `json:"message"`
	AppID   string         `json:"app_id,omitempty"`
	Context map[string]any `json:"context,omitempty"`
}

// UILogBatch is the body of POST /logs
type UILogBatch struct {
	Source  string       `json:"source" binding:"required"`
	Entries []UILogEntry `json:"entries" binding:"required,min=1"`
}

// StreamLogs writes UI log entries into the daemon log so panel and dock
// problems show up next to the launch they relate to.
func (h *Handlers) StreamLogs(c *gin.Context) {
	var batch UILogBatch
	if err := c.ShouldBindJSON(&batch); err != nil {
		badRequest(c, "invalid log batch: "+err.Error())
		return
	}
	if len(batch.Entries) > maxLogBatch {
		badRequest(c, "too many log entries")
		return
	}

	logger := h.logger.Named("ui").With(zap.String("source", batch.Source))
	for _, entry := range batch.Entries {
		logger.Log(uiLevel(entry.Level), entry.Message, uiFields(entry)...)
	}

	c.JSON(http.StatusOK, gin.H{"accepted": len(batch.Entries)})
}

func uiLevel(level string) zapcore.Level {
	switch level {
	case "error":
		return zapcore.ErrorLevel
	case "warn":
		return zapcore.WarnLevel
	case "debug", "verbose":
		return zapcore.DebugLevel
	default:
		return zapcore.InfoLevel
	}
}

func uiFields(entry UILogEntry) []zap.Field {
	fields := make([]zap.Field, 0, len(entry.Context)+1)
	if entry.AppID != "" {
		fields = append(fields, zap.String("app_id", entry.AppID))
	}
	for key, value := range entry.Context {
		switch v := value.(type) {
		case string:
			fields = append(fields, zap.String(key, v))
		case float64:
			fields = append(fields, zap.Float64(key, v))
		case bool:
			fields = append(fields, zap.Bool(key, v))
		default:
			fields = append(fields, zap.Any(key, v))
		}
	}
	return fields
}
