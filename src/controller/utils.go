package controller

import (
	"context"
	"encoding/json"
	"runtime/debug"
	"time"

	"papertrader/src/model"
	"papertrader/src/repository"

	logger "github.com/sirupsen/logrus"
)

// Fault describes a failure worth keeping after the log line scrolls away.
type Fault struct {
	Service string
	Module  string
	Method  string
	Asset   string
	Level   string
	Err     error
	Extra   map[string]interface{}
}

func (f Fault) exception() *model.Exception {
	var extra string
	if len(f.Extra) > 0 {
		if b, err := json.Marshal(f.Extra); err == nil {
			extra = string(b)
		}
	}
	level := f.Level
	if level == "" {
		level = "error"
	}
	return &model.Exception{
		Service:   f.Service,
		Module:    f.Module,
		Method:    f.Method,
		Asset:     f.Asset,
		Message:   f.Err.Error(),
		Stack:     string(debug.Stack()),
		Level:     level,
		Context:   extra,
		CreatedAt: time.Now().UTC(),
	}
}

// Capture logs f and stores it through repo when one is configured.
// A nil Err is ignored.
func Capture(ctx context.Context, repo *repository.ExceptionRepository, f Fault) {
	if f.Err == nil {
		return
	}
	exc := f.exception()

	entry := logger.WithFields(logger.Fields{
		"module": f.Module,
		"method": f.Method,
		"asset":  f.Asset,
	}).WithError(f.Err)
	if lvl, err := logger.ParseLevel(exc.Level); err == nil && lvl > logger.ErrorLevel {
		entry.Log(lvl, "captured fault")
	} else {
		entry.Error("captured fault")
	}

	if repo == nil {
		return
	}
	if err := repo.Create(ctx, exc); err != nil {
		logger.WithError(err).Warn("fault not stored")
	}
}
