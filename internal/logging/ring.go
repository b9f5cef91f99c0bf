package logging

import (
	"os"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Ring keeps the most recent log lines in memory so the control surface can
// serve them over GET /logs. It is a zapcore.WriteSyncer; every encoded
// entry lands here as well as on stdout.
type Ring struct {
	mu    sync.Mutex
	lines []string
	max   int
}

func NewRing(max int) *Ring {
	if max <= 0 {
		max = 200
	}
	return &Ring{max: max}
}

func (r *Ring) Write(p []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	line := strings.TrimRight(string(p), "\n")
	r.lines = append(r.lines, line)
	if len(r.lines) > r.max {
		r.lines = r.lines[len(r.lines)-r.max:]
	}
	return len(p), nil
}

func (r *Ring) Sync() error { return nil }

// Lines returns a copy of the buffered lines, oldest first.
func (r *Ring) Lines() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.lines))
	copy(out, r.lines)
	return out
}

// NewLogger builds the production logger teed into the ring buffer.
func NewLogger(ring *Ring) *zap.Logger {
	encCfg := zap.NewProductionEncoderConfig()
	enc := zapcore.NewJSONEncoder(encCfg)
	core := zapcore.NewCore(enc, zapcore.Lock(os.Stdout), zapcore.InfoLevel)
	if ring != nil {
		core = zapcore.NewTee(core, zapcore.NewCore(enc, zapcore.AddSync(ring), zapcore.InfoLevel))
	}
	return zap.New(core)
}
