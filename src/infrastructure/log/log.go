package log

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/sirupsen/logrus"
)

type loggerKeyType string

const correlationIDKey loggerKeyType = "loggerWithCorrelation"
const correlationIDValueKey loggerKeyType = "correlationId"

const WarnLevel = logrus.WarnLevel
const InfoLevel = logrus.InfoLevel

// Field describes one HTTP exchange for RequestResponse.
type Field struct {
	URL            string
	HostName       string
	HTTPStatusCode int
	Duration       int64
	RequestBody    string
	ResponseBody   string
	HTTPMethod     string
	Message        string
	Extra          map[string]any
}

type Logger interface {
	Info(ctx context.Context, message string)
	Warn(ctx context.Context, message string)
	Exception(ctx context.Context, message string, error error)
	Fatal(ctx context.Context, message string, error error)
	InfoWithExtra(ctx context.Context, message string, dictionary map[string]any)
	WarnWithExtra(ctx context.Context, message string, dictionary map[string]any)
	RequestResponse(ctx context.Context, withFields *Field)
	WithCorrelationID(ctx context.Context, id string) context.Context
}

type logger struct {
	logRus *logrus.Entry
	exit   func(code int)
}

func NewLogger() Logger {
	return NewLoggerWithOutput(os.Stdout, InfoLevel)
}

// NewLoggerWithOutput builds a JSON logger writing to out.
func NewLoggerWithOutput(out io.Writer, level logrus.Level) Logger {
	var log = logrus.New()
	log.SetOutput(out)
	log.SetFormatter(new(jsonFormatter))
	log.SetLevel(level)
	return &logger{logRus: logrus.NewEntry(log), exit: os.Exit}
}

func (l *logger) Info(ctx context.Context, message string) {
	l.withContext(ctx).WithFields(logrus.Fields{"DateTime": time.Now()}).Info(message)
}

func (l *logger) Warn(ctx context.Context, message string) {
	l.withContext(ctx).WithFields(logrus.Fields{"DateTime": time.Now()}).Warn(message)
}

func (l *logger) InfoWithExtra(ctx context.Context, message string, dictionary map[string]any) {
	l.withContext(ctx).WithFields(toFields(dictionary)).Info(message)
}

func (l *logger) WarnWithExtra(ctx context.Context, message string, dictionary map[string]any) {
	l.withContext(ctx).WithFields(toFields(dictionary)).Warn(message)
}

func (l *logger) Exception(ctx context.Context, message string, err error) {
	l.withContext(ctx).WithFields(logrus.Fields{
		"DateTime":  time.Now(),
		"Exception": err}).Error(message)
}

func (l *logger) Fatal(ctx context.Context, message string, err error) {
	l.Exception(ctx, message, err)
	l.exit(-1)
}

func (l *logger) RequestResponse(ctx context.Context, withFields *Field) {
	var fields = logrus.Fields{
		"DateTime":       time.Now(),
		"RequestBody":    withFields.RequestBody,
		"ResponseBody":   withFields.ResponseBody,
		"HttpMethod":     withFields.HTTPMethod,
		"HttpStatusCode": withFields.HTTPStatusCode,
		"Duration":       withFields.Duration,
		"HostName":       withFields.HostName,
		"Url":            withFields.URL,
	}

	for key, value := range withFields.Extra {
		fields[key] = value
	}

	entry := l.withContext(ctx).WithFields(fields)
	switch {
	case withFields.HTTPStatusCode >= 500:
		entry.Error(withFields.Message)
	case withFields.HTTPStatusCode >= 400:
		entry.Warn(withFields.Message)
	default:
		entry.Info(withFields.Message)
	}
}

func (l *logger) WithCorrelationID(ctx context.Context, id string) context.Context {
	ctx = context.WithValue(ctx, correlationIDValueKey, id)
	return context.WithValue(ctx, correlationIDKey, l.withContext(ctx).WithFields(logrus.Fields{"CorrelationId": id}))
}

// CorrelationID returns the id attached by WithCorrelationID, if any.
func CorrelationID(ctx context.Context) string {
	id, _ := ctx.Value(correlationIDValueKey).(string)
	return id
}

func (l *logger) withContext(ctx context.Context) *logrus.Entry {
	if ctx == nil {
		return l.logRus
	}
	entry, ok := ctx.Value(correlationIDKey).(*logrus.Entry)
	if !ok {
		return l.logRus
	}
	return entry
}

func toFields(dictionary map[string]any) logrus.Fields {
	var fields = logrus.Fields{"DateTime": time.Now()}
	for key, value := range dictionary {
		fields[key] = value
	}
	return fields
}

type jsonFormatter struct{}

func (*jsonFormatter) Format(entry *logrus.Entry) ([]byte, error) {
	data := make(logrus.Fields, len(entry.Data)+2)
	for key, value := range entry.Data {
		data[key] = value
	}
	data["Message"] = entry.Message
	data["Level"] = entry.Level.String()

	if exception, ok := data["Exception"]; ok {
		data["Exception"] = fmt.Sprint(exception)
	}

	serialized, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal fields to JSON, %w", err)
	}

	return append(serialized, '\n'), nil
}
