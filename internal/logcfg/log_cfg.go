package logcfg

import (
	"fmt"
	"io"
	"os"
	"path"
	"runtime"

	"github.com/natefinch/lumberjack"
	"github.com/sirupsen/logrus"
)

// RunLoggerConfig производит настройку logrus устанавливая уровень логирования,
// формат логируемой информации и настройки записи логов в файл.
// An unknown level falls back to info.
func RunLoggerConfig(envLogs, fileName string) {
	logrus.SetLevel(ParseLevel(envLogs))
	logrus.SetReportCaller(true)

	//Настраиваем формат логируемой информации
	logrus.SetFormatter(&logrus.TextFormatter{
		CallerPrettyfier: callerPrettyfier,
	})
	// Настраиваем запись логов в файл
	mw := io.MultiWriter(os.Stdout, &lumberjack.Logger{
		Filename:   fileName,
		MaxSize:    50,
		MaxBackups: 3,
		MaxAge:     30,
	})
	logrus.SetOutput(mw)
}

// ParseLevel returns the logrus level named by envLogs or info when the name is unknown.
func ParseLevel(envLogs string) logrus.Level {
	logLevel, err := logrus.ParseLevel(envLogs)
	if err != nil {
		logrus.WithError(err).Warnf("Unknown log level %q, using info", envLogs)
		return logrus.InfoLevel
	}
	return logLevel
}

func callerPrettyfier(f *runtime.Frame) (function string, file string) {
	_, filename := path.Split(f.File)
	filename = fmt.Sprintf("%s.%d.%s", filename, f.Line, f.Function)
	return "", filename
}
