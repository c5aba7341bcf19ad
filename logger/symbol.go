package logger

import (
	"github.com/teranos/cadence/sym"
	"go.uber.org/zap"
)

// Symbol-aware logger wrappers.
// The symbol is attached as a structured field, not in the message, which keeps
// messages clean and makes logs queryable by subsystem.
//
// Usage:
//
//	d.pulseLog = logger.AddPulseSymbol(baseLogger)
//	d.pulseLog.Infow("Driver run complete", "created", n)

// AddPulseSymbol wraps a logger with the Pulse symbol (꩜)
func AddPulseSymbol(l *zap.SugaredLogger) *zap.SugaredLogger {
	return OrNop(l).With(FieldSymbol, sym.Pulse)
}

// AddPulseOpenSymbol wraps a logger with the PulseOpen symbol (✿)
func AddPulseOpenSymbol(l *zap.SugaredLogger) *zap.SugaredLogger {
	return OrNop(l).With(FieldSymbol, sym.PulseOpen)
}

// AddPulseCloseSymbol wraps a logger with the PulseClose symbol (❀)
func AddPulseCloseSymbol(l *zap.SugaredLogger) *zap.SugaredLogger {
	return OrNop(l).With(FieldSymbol, sym.PulseClose)
}

// AddDBSymbol wraps a logger with the DB symbol (⊔)
func AddDBSymbol(l *zap.SugaredLogger) *zap.SugaredLogger {
	return OrNop(l).With(FieldSymbol, sym.DB)
}

// AddInstanceSymbol wraps a logger with the AT symbol (✦) used for instance lifecycle logs
func AddInstanceSymbol(l *zap.SugaredLogger) *zap.SugaredLogger {
	return OrNop(l).With(FieldSymbol, sym.AT)
}
