// Package workload reads, writes, generates, and replays host request
// traces.
//
// A trace is a text file with one request per line:
//
//	W <lba> [value]     write value (or a generated one) to lba
//	R <lba> [expected]  read lba and compare it with expected
//	T <lba>             trim lba
//
// Blank lines and everything after '#' are ignored.
package workload

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Op is the kind of a request.
type Op byte

// All the request kinds.
const (
	OpWrite Op = 'W'
	OpRead  Op = 'R'
	OpTrim  Op = 'T'
)

func (o Op) String() string {
	switch o {
	case OpWrite:
		return "write"
	case OpRead:
		return "read"
	case OpTrim:
		return "trim"
	default:
		return fmt.Sprintf("Op(%d)", byte(o))
	}
}

// Request is one line of a trace.
type Request struct {
	Op    Op
	LBA   uint64
	Value string

	// HasValue tells an explicit empty value apart from no value.
	HasValue bool

	// Line is the 1-based line in the trace, or 0 for generated requests.
	Line int
}

// ErrSyntax is returned for malformed trace lines.
var ErrSyntax = errors.New("trace syntax error")

// Parse reads a whole trace.
func Parse(r io.Reader) ([]Request, error) {
	var reqs []Request

	scanner := bufio.NewScanner(r)
	line := 0

	for scanner.Scan() {
		line++

		text := scanner.Text()
		if i := strings.IndexByte(text, '#'); i >= 0 {
			text = text[:i]
		}

		fields := strings.Fields(text)
		if len(fields) == 0 {
			continue
		}

		req, err := parseFields(fields)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}

		req.Line = line
		reqs = append(reqs, req)
	}

	if err := scanner.Err(); err != nil {
		return nil, err
	}

	return reqs, nil
}

func parseFields(fields []string) (Request, error) {
	var req Request

	if len(fields[0]) != 1 {
		return req, fmt.Errorf("%w: unknown op %q", ErrSyntax, fields[0])
	}

	req.Op = Op(strings.ToUpper(fields[0])[0])

	maxFields := 3
	switch req.Op {
	case OpWrite, OpRead:
	case OpTrim:
		maxFields = 2
	default:
		return req, fmt.Errorf("%w: unknown op %q", ErrSyntax, fields[0])
	}

	if len(fields) < 2 || len(fields) > maxFields {
		return req, fmt.Errorf("%w: %s takes an lba and at most %d value",
			ErrSyntax, req.Op, maxFields-2)
	}

	lba, err := strconv.ParseUint(fields[1], 10, 64)
	if err != nil {
		return req, fmt.Errorf("%w: bad lba %q", ErrSyntax, fields[1])
	}

	req.LBA = lba

	if len(fields) == 3 {
		req.Value = fields[2]
		req.HasValue = true
	}

	return req, nil
}

// Format writes requests in trace syntax.
func Format(w io.Writer, reqs []Request) error {
	bw := bufio.NewWriter(w)

	for _, req := range reqs {
		var err error
		if req.HasValue {
			_, err = fmt.Fprintf(bw, "%c %d %s\n", req.Op, req.LBA, req.Value)
		} else {
			_, err = fmt.Fprintf(bw, "%c %d\n", req.Op, req.LBA)
		}

		if err != nil {
			return err
		}
	}

	return bw.Flush()
}
