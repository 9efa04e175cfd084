package logger

import (
	"github.com/newrelic/go-agent/v3/newrelic"
	"go.uber.org/zap/zapcore"
)

// newRelicCore ships entries to New Relic Logs through the agent's
// RecordLog. Context fields are encoded once, when With is called.
type newRelicCore struct {
	zapcore.LevelEnabler
	app     *newrelic.Application
	service string
	context map[string]interface{}
}

func newNewRelicCore(app *newrelic.Application, level zapcore.LevelEnabler, service string) zapcore.Core {
	return &newRelicCore{LevelEnabler: level, app: app, service: service}
}

func (c *newRelicCore) With(fields []zapcore.Field) zapcore.Core {
	return &newRelicCore{
		LevelEnabler: c.LevelEnabler,
		app:          c.app,
		service:      c.service,
		context:      encodeFields(c.context, fields),
	}
}

func (c *newRelicCore) Check(e zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if !c.Enabled(e.Level) {
		return ce
	}
	return ce.AddCore(e, c)
}

func (c *newRelicCore) Write(e zapcore.Entry, fields []zapcore.Field) error {
	attrs := encodeFields(c.context, fields)
	attrs["service"] = c.service
	if e.Caller.Defined {
		attrs["caller"] = e.Caller.TrimmedPath()
	}
	if e.Stack != "" {
		attrs["stacktrace"] = e.Stack
	}

	c.app.RecordLog(newrelic.LogData{
		Timestamp:  e.Time.UnixMilli(),
		Severity:   e.Level.String(),
		Message:    e.Message,
		Attributes: attrs,
	})
	return nil
}

func (c *newRelicCore) Sync() error { return nil }

// encodeFields copies base and adds fields on top
func encodeFields(base map[string]interface{}, fields []zapcore.Field) map[string]interface{} {
	enc := zapcore.NewMapObjectEncoder()
	for k, v := range base {
		enc.Fields[k] = v
	}
	for _, f := range fields {
		f.AddTo(enc)
	}
	return enc.Fields
}
