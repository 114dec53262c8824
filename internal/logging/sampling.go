package logging

import (
	"go.uber.org/zap/zapcore"
)

// newSampledCore samples entries below error level. Errors always pass, so a
// burst of failed syncs is never thinned out.
func newSampledCore(core zapcore.Core, cfg SamplingConfig) zapcore.Core {
	if !cfg.Enabled {
		return core
	}

	errCore := &gatedCore{Core: core, gate: zapcore.ErrorLevel}
	rest := &gatedCore{Core: core, gate: zapcore.ErrorLevel, below: true}

	return zapcore.NewTee(
		errCore,
		zapcore.NewSamplerWithOptions(rest, cfg.Tick, cfg.Initial, cfg.Thereafter),
	)
}

// gatedCore passes entries at or above gate, or strictly below it when below is set.
type gatedCore struct {
	zapcore.Core
	gate  zapcore.Level
	below bool
}

func (c *gatedCore) Enabled(lvl zapcore.Level) bool {
	if (lvl < c.gate) != c.below {
		return false
	}
	return c.Core.Enabled(lvl)
}

func (c *gatedCore) Check(e zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if !c.Enabled(e.Level) {
		return ce
	}
	return c.Core.Check(e, ce)
}

func (c *gatedCore) With(fields []zapcore.Field) zapcore.Core {
	return &gatedCore{Core: c.Core.With(fields), gate: c.gate, below: c.below}
}
