package logging

import (
	"io"
	"os"
	"strings"

	"github.com/labstack/gommon/log"
)

// Logger は echo.Logger と gommon の *log.Logger の共通部分。
type Logger interface {
	Debugf(format string, args ...interface{})
	Infof(format string, args ...interface{})
	Warnf(format string, args ...interface{})
	Errorf(format string, args ...interface{})
}

// New はレベル文字列からロガーを作る。echo にもこのロガーを渡す。
func New(prefix string, level string) *log.Logger {
	l := log.New(prefix)
	l.SetOutput(os.Stdout)
	l.SetHeader(`{"time":"${time_rfc3339}","level":"${level}","prefix":"${prefix}","file":"${short_file}","line":"${line}"}`)
	l.SetLevel(ParseLevel(level))
	return l
}

func ParseLevel(s string) log.Lvl {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return log.DEBUG
	case "warn":
		return log.WARN
	case "error":
		return log.ERROR
	case "off":
		return log.OFF
	}
	return log.INFO
}

// テスト用
func Discard() *log.Logger {
	l := log.New("test")
	l.SetOutput(io.Discard)
	return l
}
