package goroutine

import (
	"context"
	"runtime/debug"

	"github.com/ignatzorin/exwork-backend/internal/logger"
	"github.com/sirupsen/logrus"
)

// SafeGo запускает горутину с обработкой panic.
func SafeGo(name string, fn func()) {
	go func() {
		defer Recover(name)
		fn()
	}()
}

// SafeGoWithContext запускает горутину с контекстом и обработкой panic.
func SafeGoWithContext(ctx context.Context, name string, fn func(context.Context)) {
	go func() {
		defer Recover(name)
		fn(ctx)
	}()
}

// Recover логирует panic вместо падения процесса. Вызывать только через defer.
func Recover(name string) {
	if r := recover(); r != nil {
		logger.Log.WithFields(logrus.Fields{
			"goroutine": name,
			"panic":     r,
			"stack":     string(debug.Stack()),
		}).Error("goroutine: перехвачена panic")
	}
}
