package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	charmlog "github.com/charmbracelet/log"
)

// LogLevel определяет уровни логирования
type LogLevel int

const (
	TRACE LogLevel = iota
	DEBUG
	INFO
	WARN
	ERROR
)

// String возвращает строковое представление уровня логирования
func (l LogLevel) String() string {
	switch l {
	case TRACE:
		return "TRACE"
	case DEBUG:
		return "DEBUG"
	case INFO:
		return "INFO"
	case WARN:
		return "WARN"
	case ERROR:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// ParseLevel разбирает уровень из конфигурации; неизвестное имя даёт INFO
func ParseLevel(name string) LogLevel {
	switch strings.ToUpper(strings.TrimSpace(name)) {
	case "TRACE":
		return TRACE
	case "DEBUG":
		return DEBUG
	case "WARN", "WARNING":
		return WARN
	case "ERROR":
		return ERROR
	default:
		return INFO
	}
}

// charmLevel переводит уровень в уровень charmbracelet/log.
// TRACE у charm отсутствует и пишется как DEBUG.
func charmLevel(l LogLevel) charmlog.Level {
	switch l {
	case TRACE, DEBUG:
		return charmlog.DebugLevel
	case WARN:
		return charmlog.WarnLevel
	case ERROR:
		return charmlog.ErrorLevel
	default:
		return charmlog.InfoLevel
	}
}

// Logger - логгер компонента: консоль и, если задан каталог, файл
type Logger struct {
	component       string
	console         *charmlog.Logger
	file            *charmlog.Logger
	fileHandle      *os.File
	minConsoleLevel LogLevel
	minFileLevel    LogLevel
	mu              sync.Mutex
}

var (
	settingsMu    sync.RWMutex
	consoleOutput io.Writer = os.Stderr
	logDir        string
	consoleLevel  = INFO
)

// SetOutput перенаправляет консольный вывод новых логгеров (используется в тестах)
func SetOutput(w io.Writer) {
	settingsMu.Lock()
	consoleOutput = w
	settingsMu.Unlock()
	if defaultLogger != nil {
		defaultLogger.console.SetOutput(w)
	}
}

// SetLogDir включает запись в файлы для новых логгеров. Пустая строка выключает.
func SetLogDir(dir string) {
	settingsMu.Lock()
	logDir = dir
	settingsMu.Unlock()
}

// SetConsoleLevel задаёт минимальный уровень консоли для всех логгеров
func SetConsoleLevel(level LogLevel) {
	settingsMu.Lock()
	consoleLevel = level
	settingsMu.Unlock()
	if defaultLogger != nil {
		defaultLogger.setConsoleLevel(level)
	}
}

// NewLogger создаёт логгер компонента
func NewLogger(component string) (*Logger, error) {
	settingsMu.RLock()
	out, dir, level := consoleOutput, logDir, consoleLevel
	settingsMu.RUnlock()

	l := &Logger{
		component: component,
		console: charmlog.NewWithOptions(out, charmlog.Options{
			ReportTimestamp: true,
			TimeFormat:      time.TimeOnly,
			Prefix:          component,
			Level:           charmLevel(level),
		}),
		minConsoleLevel: level,
		minFileLevel:    TRACE,
	}

	if dir == "" {
		return l, nil
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("ошибка создания директории логов: %w", err)
	}
	timestamp := time.Now().Format("2006-01-02_15-04-05")
	filename := filepath.Join(dir, fmt.Sprintf("%s_%s.log", component, timestamp))
	file, err := os.OpenFile(filename, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("ошибка создания файла логов: %w", err)
	}

	l.fileHandle = file
	l.file = charmlog.NewWithOptions(file, charmlog.Options{
		ReportTimestamp: true,
		Prefix:          component,
		Level:           charmlog.DebugLevel,
		Formatter:       charmlog.LogfmtFormatter,
	})
	return l, nil
}

func (l *Logger) setConsoleLevel(level LogLevel) {
	l.mu.Lock()
	l.minConsoleLevel = level
	l.mu.Unlock()
	l.console.SetLevel(charmLevel(level))
}

// Close закрывает файл логов
func (l *Logger) Close() error {
	if l.fileHandle == nil {
		return nil
	}
	return l.fileHandle.Close()
}

// Component возвращает имя компонента
func (l *Logger) Component() string {
	return l.component
}

func (l *Logger) write(level LogLevel, format string, args ...interface{}) {
	if l == nil {
		return
	}
	msg := fmt.Sprintf(format, args...)

	l.mu.Lock()
	minConsole, minFile := l.minConsoleLevel, l.minFileLevel
	l.mu.Unlock()

	if level >= minConsole {
		emit(l.console, level, msg)
	}
	if l.file != nil && level >= minFile {
		emit(l.file, level, msg)
	}
}

func emit(target *charmlog.Logger, level LogLevel, msg string) {
	switch level {
	case TRACE:
		target.Debug(msg, "trace", true)
	case DEBUG:
		target.Debug(msg)
	case WARN:
		target.Warn(msg)
	case ERROR:
		target.Error(msg)
	default:
		target.Info(msg)
	}
}

// Trace логирует сообщение уровня TRACE
func (l *Logger) Trace(format string, args ...interface{}) { l.write(TRACE, format, args...) }

// Debug логирует сообщение уровня DEBUG
func (l *Logger) Debug(format string, args ...interface{}) { l.write(DEBUG, format, args...) }

// Info логирует сообщение уровня INFO
func (l *Logger) Info(format string, args ...interface{}) { l.write(INFO, format, args...) }

// Warn логирует сообщение уровня WARN
func (l *Logger) Warn(format string, args ...interface{}) { l.write(WARN, format, args...) }

// Error логирует сообщение уровня ERROR
func (l *Logger) Error(format string, args ...interface{}) { l.write(ERROR, format, args...) }

// Глобальный логгер по умолчанию
var defaultLogger *Logger

// InitDefaultLogger инициализирует глобальный логгер
func InitDefaultLogger(component string) error {
	l, err := NewLogger(component)
	if err != nil {
		return err
	}
	defaultLogger = l
	return nil
}

// CloseDefaultLogger закрывает глобальный логгер
func CloseDefaultLogger() {
	if defaultLogger != nil {
		_ = defaultLogger.Close()
	}
}

func current() *Logger {
	if defaultLogger == nil {
		l, _ := NewLogger("engine")
		defaultLogger = l
	}
	return defaultLogger
}

// Trace логирует через глобальный логгер
func Trace(format string, args ...interface{}) { current().Trace(format, args...) }

// Debug логирует через глобальный логгер
func Debug(format string, args ...interface{}) { current().Debug(format, args...) }

// Info логирует через глобальный логгер
func Info(format string, args ...interface{}) { current().Info(format, args...) }

// Warn логирует через глобальный логгер
func Warn(format string, args ...interface{}) { current().Warn(format, args...) }

// Error логирует через глобальный логгер
func Error(format string, args ...interface{}) { current().Error(format, args...) }
