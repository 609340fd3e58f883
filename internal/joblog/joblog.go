// Package joblog builds the zap logger every cmd/ entrypoint shares:
// one line per event on stdout, written by zap's console encoder as an
// ISO8601 timestamp, the capitalized level and the message, followed by
// job, chain and run_id as key-value fields. Lines do not start with a
// bracketed `[ts][job][chain]` prefix. Jobs are short-lived processes run
// under an external supervisor, not long-running servers with their own
// log shipping.
package joblog

import (
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds a SugaredLogger tagged with job, chain, and a per-invocation
// run ID, so lines from concurrent per-chain runs of the same job binary
// can be told apart in aggregated log output.
func New(job, network string) (*zap.SugaredLogger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Encoding = "console"
	cfg.EncoderConfig = zapcore.EncoderConfig{
		TimeKey:     "ts",
		MessageKey:  "msg",
		LevelKey:    "level",
		EncodeTime:  zapcore.ISO8601TimeEncoder,
		EncodeLevel: zapcore.CapitalLevelEncoder,
		ConsoleSeparator: " ",
	}
	cfg.OutputPaths = []string{"stdout"}
	cfg.ErrorOutputPaths = []string{"stderr"}

	logger, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("joblog: build logger: %w", err)
	}
	return logger.Sugar().With("job", job, "chain", network, "run_id", uuid.NewString()), nil
}
