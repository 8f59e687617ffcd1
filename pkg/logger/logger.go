package logger

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Logger struct {
	logger *logrus.Logger
	fields logrus.Fields
}

type LogLevel string

const (
	DebugLevel LogLevel = "debug"
	InfoLevel  LogLevel = "info"
	WarnLevel  LogLevel = "warn"
	ErrorLevel LogLevel = "error"
)

type Config struct {
	Level      LogLevel `json:"level"`
	Format     string   `json:"format"` // json, text
	Output     string   `json:"output"` // stdout, stderr, file path
	TimeFormat string   `json:"time_format"`
}

func NewLogger(config *Config) (*Logger, error) {
	logger := logrus.New()

	level, err := logrus.ParseLevel(string(config.Level))
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	if config.Format == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: config.TimeFormat,
		})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{
			TimestampFormat: config.TimeFormat,
		})
	}

	switch config.Output {
	case "stderr":
		logger.SetOutput(os.Stderr)
	case "stdout", "":
		logger.SetOutput(os.Stdout)
	default:
		file, err := os.OpenFile(config.Output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
		if err != nil {
			return nil, err
		}
		logger.SetOutput(file)
	}

	return &Logger{
		logger: logger,
		fields: make(logrus.Fields),
	}, nil
}

func (l *Logger) WithField(key string, value interface{}) *Logger {
	newFields := make(logrus.Fields, len(l.fields)+1)
	for k, v := range l.fields {
		newFields[k] = v
	}
	newFields[key] = value

	return &Logger{
		logger: l.logger,
		fields: newFields,
	}
}

func (l *Logger) WithFields(fields map[string]interface{}) *Logger {
	newFields := make(logrus.Fields, len(l.fields)+len(fields))
	for k, v := range l.fields {
		newFields[k] = v
	}
	for k, v := range fields {
		newFields[k] = v
	}

	return &Logger{
		logger: l.logger,
		fields: newFields,
	}
}

func (l *Logger) WithError(err error) *Logger {
	return l.WithField("error", err.Error())
}

func (l *Logger) WithOrderID(orderID primitive.ObjectID) *Logger {
	return l.WithField("order_id", orderID.Hex())
}

func (l *Logger) WithRequestID(requestID string) *Logger {
	return l.WithField("request_id", requestID)
}

func (l *Logger) Debug(msg string)                          { l.logger.WithFields(l.fields).Debug(msg) }
func (l *Logger) Debugf(format string, args ...interface{}) { l.logger.WithFields(l.fields).Debugf(format, args...) }
func (l *Logger) Info(msg string)                           { l.logger.WithFields(l.fields).Info(msg) }
func (l *Logger) Infof(format string, args ...interface{})  { l.logger.WithFields(l.fields).Infof(format, args...) }
func (l *Logger) Warn(msg string)                           { l.logger.WithFields(l.fields).Warn(msg) }
func (l *Logger) Warnf(format string, args ...interface{})  { l.logger.WithFields(l.fields).Warnf(format, args...) }
func (l *Logger) Error(msg string)                          { l.logger.WithFields(l.fields).Error(msg) }
func (l *Logger) Errorf(format string, args ...interface{}) { l.logger.WithFields(l.fields).Errorf(format, args...) }
func (l *Logger) Fatal(msg string)                          { l.logger.WithFields(l.fields).Fatal(msg) }
func (l *Logger) Fatalf(format string, args ...interface{}) { l.logger.WithFields(l.fields).Fatalf(format, args...) }

// Structured event helpers

func (l *Logger) LogOrderEvent(orderID primitive.ObjectID, event string, details map[string]interface{}) {
	fields := map[string]interface{}{
		"order_id": orderID.Hex(),
		"event":    event,
		"type":     "order_event",
	}
	for k, v := range details {
		fields[k] = v
	}
	l.WithFields(fields).Info("Order event occurred")
}

func (l *Logger) LogPaymentEvent(paymentID primitive.ObjectID, event string, amount int64, currency string) {
	l.WithFields(map[string]interface{}{
		"payment_id": paymentID.Hex(),
		"event":      event,
		"amount":     amount,
		"currency":   currency,
		"type":       "payment_event",
	}).Info("Payment event occurred")
}

func (l *Logger) LogPromoEvent(code string, event string, details map[string]interface{}) {
	fields := map[string]interface{}{
		"promo_code": code,
		"event":      event,
		"type":       "promo_event",
	}
	for k, v := range details {
		fields[k] = v
	}
	l.WithFields(fields).Info("Promo event occurred")
}

func (l *Logger) SetOutput(output io.Writer) {
	l.logger.SetOutput(output)
}
