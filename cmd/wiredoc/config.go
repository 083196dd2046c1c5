package wiredoc

import (
	"fmt"
	"log"
	"os"
	"strings"

	dblogger "github.com/lni/dragonboat/v4/logger"
)

const (
	// wrapWidth is the column the long-flag help text gets wrapped at.
	wrapWidth = 60
)

// wrapString wraps text at wrapWidth columns, the same ragged-help-text
// convention the teacher's cmd/util.WrapString applies to every flag.
func wrapString(text string) string {
	var lines []string
	var cur strings.Builder
	width := 0

	for _, word := range strings.Fields(text) {
		if width > 0 && width+1+len(word) > wrapWidth {
			lines = append(lines, cur.String())
			cur.Reset()
			width = 0
		}
		if width > 0 {
			cur.WriteString(" ")
			width++
		}
		cur.WriteString(word)
		width += len(word)
	}
	if cur.Len() > 0 {
		lines = append(lines, cur.String())
	}
	return strings.Join(lines, "\n")
}

// wiredocLogger implements dragonboat's logger.ILogger, the same custom
// formatter the teacher's rpc/common.dKVLogger provides, reused here for
// dragonboat's internal loggers and for journal/cluster's own log lines.
type wiredocLogger struct {
	name   string
	level  dblogger.LogLevel
	logger *log.Logger
}

func (l *wiredocLogger) SetLevel(level dblogger.LogLevel) { l.level = level }

func (l *wiredocLogger) Debugf(format string, args ...interface{}) {
	if l.level >= dblogger.DEBUG {
		l.log("DEBUG", format, args...)
	}
}

func (l *wiredocLogger) Infof(format string, args ...interface{}) {
	if l.level >= dblogger.INFO {
		l.log("INFO", format, args...)
	}
}

func (l *wiredocLogger) Warningf(format string, args ...interface{}) {
	if l.level >= dblogger.WARNING {
		l.log("WARN", format, args...)
	}
}

func (l *wiredocLogger) Errorf(format string, args ...interface{}) {
	if l.level >= dblogger.ERROR {
		l.log("ERROR", format, args...)
	}
}

func (l *wiredocLogger) Panicf(format string, args ...interface{}) {
	if l.level >= dblogger.CRITICAL {
		panic(fmt.Sprintf(format, args...))
	}
}

func (l *wiredocLogger) log(level, format string, args ...interface{}) {
	l.logger.Printf("%-5s | %-12s | %s", level, l.name, fmt.Sprintf(format, args...))
}

// createLogger is a dragonboat logger.Factory.
func createLogger(pkgName string) dblogger.ILogger {
	return &wiredocLogger{
		name:   pkgName,
		level:  dblogger.INFO,
		logger: log.New(os.Stdout, "", log.Ldate|log.Ltime),
	}
}

func parseLogLevel(level string) dblogger.LogLevel {
	switch strings.ToLower(level) {
	case "debug":
		return dblogger.DEBUG
	case "info":
		return dblogger.INFO
	case "warn", "warning":
		return dblogger.WARNING
	case "error":
		return dblogger.ERROR
	default:
		return dblogger.INFO
	}
}

// initLoggers installs createLogger as dragonboat's logger factory and sets
// every internal logger to level.
func initLoggers(level string) {
	dblogger.SetLoggerFactory(createLogger)
	l := parseLogLevel(level)
	for _, name := range []string{"raft", "raftdb", "rsm", "transport", "dragonboat", "grpc", "util", "logdb", "journal"} {
		dblogger.GetLogger(name).SetLevel(l)
	}
}
