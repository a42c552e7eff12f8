package logger

import (
	"github.com/projectdiscovery/gologger"
	"github.com/projectdiscovery/gologger/levels"
)

func Init(debug bool) {
	if debug {
		gologger.DefaultLogger.SetMaxLevel(levels.LevelDebug)
	}
}

func Debug(format string, v ...interface{}) {
	gologger.Debug().Msgf(format, v...)
}

func Info(format string, v ...interface{}) {
	gologger.Info().Msgf(format, v...)
}

func Warn(format string, v ...interface{}) {
	gologger.Warning().Msgf(format, v...)
}

func Error(format string, v ...interface{}) {
	gologger.Error().Msgf(format, v...)
}

func Fatal(format string, v ...interface{}) {
	gologger.Fatal().Msgf(format, v...)
}
