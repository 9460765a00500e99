// Package zap adapts a zap logger to stash.Logger.
package zap

import (
	"go.uber.org/zap"

	"github.com/unkn0wn-root/stash"
)

var _ stash.Logger = ZapLogger{}

// ZapLogger logs through L; a nil L discards everything.
// Error values are attached with zap.NamedError under their field name.
type ZapLogger struct{ L *zap.Logger }

func (z ZapLogger) Debug(msg string, f stash.Fields) { z.logger().Debug(msg, zf(f)...) }
func (z ZapLogger) Info(msg string, f stash.Fields)  { z.logger().Info(msg, zf(f)...) }
func (z ZapLogger) Warn(msg string, f stash.Fields)  { z.logger().Warn(msg, zf(f)...) }
func (z ZapLogger) Error(msg string, f stash.Fields) { z.logger().Error(msg, zf(f)...) }

func (z ZapLogger) logger() *zap.Logger {
	if z.L == nil {
		return zap.NewNop()
	}
	return z.L
}

func zf(f stash.Fields) []zap.Field {
	if len(f) == 0 {
		return nil
	}
	out := make([]zap.Field, 0, len(f))
	for k, v := range f {
		if err, ok := v.(error); ok {
			out = append(out, zap.NamedError(k, err))
			continue
		}
		out = append(out, zap.Any(k, v))
	}
	return out
}
