package workload

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// Target is a device that serves host requests.
type Target interface {
	WriteLBA(lba uint64, data []byte) error
	ReadLBA(lba uint64) ([]byte, error)
	Trim(lba uint64) error
}

// ErrMismatch is reported when a read returns something other than what was
// last written.
var ErrMismatch = errors.New("read mismatch")

// Result is the outcome of one replayed request.
type Result struct {
	Request Request
	Err     error

	// Got holds the data a read returned, with the zero padding removed.
	Got string
}

// Report sums up a replay.
type Report struct {
	Requests   int `json:"requests"`
	Writes     int `json:"writes"`
	Reads      int `json:"reads"`
	Trims      int `json:"trims"`
	Failures   int `json:"failures"`
	Mismatches int `json:"mismatches"`
}

// Replayer drives a target with a trace and checks every read against a
// shadow copy of what the trace has written.
type Replayer struct {
	target   Target
	locker   sync.Locker
	logger   *zap.Logger
	onResult func(Result)
	shadow   map[uint64]string
}

// NewReplayer creates a Replayer for a target.
func NewReplayer(target Target) *Replayer {
	return &Replayer{
		target: target,
		locker: noLock{},
		logger: zap.NewNop(),
		shadow: make(map[uint64]string),
	}
}

// WithLocker makes the replayer hold l around each request.
func (r *Replayer) WithLocker(l sync.Locker) *Replayer {
	r.locker = l
	return r
}

// WithLogger sets the logger failures are reported to.
func (r *Replayer) WithLogger(logger *zap.Logger) *Replayer {
	r.logger = logger
	return r
}

// OnResult registers a callback invoked after each request.
func (r *Replayer) OnResult(f func(Result)) *Replayer {
	r.onResult = f
	return r
}

// Replay runs the requests in order. Failed requests are counted and do not
// stop the replay; only a cancelled context does.
func (r *Replayer) Replay(ctx context.Context, reqs []Request) (Report, error) {
	var report Report

	for _, req := range reqs {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		res := r.do(req)
		report.count(res)

		if res.Err != nil {
			r.logger.Warn("request failed",
				zap.Stringer("op", req.Op),
				zap.Uint64("lba", req.LBA),
				zap.Int("line", req.Line),
				zap.Error(res.Err))
		}

		if r.onResult != nil {
			r.onResult(res)
		}
	}

	return report, nil
}

func (r *Replayer) do(req Request) Result {
	r.locker.Lock()
	defer r.locker.Unlock()

	res := Result{Request: req}

	switch req.Op {
	case OpWrite:
		value := req.Value
		if !req.HasValue {
			value = fmt.Sprintf("%d@%d", req.LBA, req.Line)
		}

		res.Err = r.target.WriteLBA(req.LBA, []byte(value))
		if res.Err == nil {
			r.shadow[req.LBA] = value
		}
	case OpRead:
		res.Got, res.Err = r.read(req)
	case OpTrim:
		res.Err = r.target.Trim(req.LBA)
		if res.Err == nil {
			delete(r.shadow, req.LBA)
		}
	default:
		res.Err = fmt.Errorf("%w: unknown op %s", ErrSyntax, req.Op)
	}

	return res
}

func (r *Replayer) read(req Request) (string, error) {
	expected, known := r.shadow[req.LBA]
	if req.HasValue {
		expected, known = req.Value, true
	}

	data, err := r.target.ReadLBA(req.LBA)
	if err != nil {
		if !known {
			return "", nil
		}

		return "", err
	}

	got := string(bytes.TrimRight(data, "\x00"))
	if !known || got != expected {
		return got, fmt.Errorf("%w: lba %d holds %q, want %q",
			ErrMismatch, req.LBA, got, expected)
	}

	return got, nil
}

func (rep *Report) count(res Result) {
	rep.Requests++

	switch res.Request.Op {
	case OpWrite:
		rep.Writes++
	case OpRead:
		rep.Reads++
	case OpTrim:
		rep.Trims++
	}

	switch {
	case errors.Is(res.Err, ErrMismatch):
		rep.Mismatches++
	case res.Err != nil:
		rep.Failures++
	}
}

type noLock struct{}

func (noLock) Lock()   {}
func (noLock) Unlock() {}
