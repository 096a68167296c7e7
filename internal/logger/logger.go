package logger

import (
	"io"

	"github.com/sirupsen/logrus"
)

var Log = logrus.New()

// Init инициализирует структурированный логгер: JSON в production, текст в development.
func Init(level string, production bool) {
	Log = logrus.New()

	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	Log.SetLevel(lvl)

	if production {
		Log.SetFormatter(&logrus.JSONFormatter{})
		return
	}
	Log.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})
}

// Discard глушит вывод, используется в тестах.
func Discard() {
	Log.SetOutput(io.Discard)
}
