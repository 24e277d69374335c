package server

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"cmdtrack/internal/record"
)

// executionView is the JSON shape of a record, using the same camelCase
// keys as the on-disk format.
type executionView struct {
	UUID             string         `json:"uuid"`
	PID              int            `json:"pid,omitempty"`
	Status           string         `json:"status"`
	ExitCode         *int           `json:"exitCode,omitempty"`
	Command          string         `json:"command"`
	LogPath          string         `json:"logPath,omitempty"`
	StartTime        time.Time      `json:"startTime"`
	EndTime          *time.Time     `json:"endTime,omitempty"`
	WorkingDirectory string         `json:"workingDirectory,omitempty"`
	Shell            string         `json:"shell,omitempty"`
	Platform         string         `json:"platform,omitempty"`
	Options          map[string]any `json:"options,omitempty"`
}

func newExecutionView(rec *record.Record) executionView {
	v := executionView{
		UUID:             rec.UUID,
		PID:              rec.PID,
		Status:           rec.Status.String(),
		ExitCode:         rec.ExitCode,
		Command:          rec.Command,
		LogPath:          rec.LogPath,
		StartTime:        rec.StartTime,
		EndTime:          rec.EndTime,
		WorkingDirectory: rec.WorkingDirectory,
		Shell:            rec.Shell,
		Platform:         rec.Platform,
	}
	if rec.Options != nil && rec.Options.Len() > 0 {
		opts := make(map[string]any, rec.Options.Len())
		for _, key := range rec.Options.Keys() {
			val, _ := rec.Options.Get(key)
			opts[key] = val
		}
		v.Options = opts
	}
	return v
}

func sanitizeBase(bp string) string {
	bp = strings.TrimSpace(bp)
	if bp == "" || bp == "/" {
		return ""
	}
	if !strings.HasPrefix(bp, "/") {
		bp = "/" + bp
	}
	return strings.TrimRight(bp, "/")
}

func writeJSON(c *gin.Context, code int, v any) {
	c.Header("Content-Type", "application/json")
	c.Status(code)
	_ = json.NewEncoder(c.Writer).Encode(v)
}
