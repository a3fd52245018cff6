package ftl

import "errors"

// Failures reported by the translation layer. They are wrapped with the
// request context, so test them with errors.Is.
var (
	// ErrInvalidLBA means the LBA is beyond the addressable capacity.
	ErrInvalidLBA = errors.New("invalid lba")

	// ErrNotWritten means the LBA holds no readable data, either because it
	// was never written or because it has been trimmed.
	ErrNotWritten = errors.New("lba not written")

	// ErrLogFull means the log block bound to a data block has no empty page.
	// The translation layer resolves it by merging.
	ErrLogFull = errors.New("log block full")

	// ErrNoLogSpace means no log block can be bound and no victim can be
	// reclaimed.
	ErrNoLogSpace = errors.New("no log space")

	// ErrEraseLimitExceeded means cleaning would need to erase a block that
	// has used up its erase budget and no spare block can take its place.
	ErrEraseLimitExceeded = errors.New("erase limit exceeded")
)

// Result tells how a reclamation pass ended.
type Result int

// All the reclamation results.
const (
	// Merged means the log block was folded back into its data block.
	Merged Result = iota

	// Relocated means the data block moved onto a spare block.
	Relocated

	// Exhausted means cleaning could not proceed without breaking the erase
	// budget.
	Exhausted
)

func (r Result) String() string {
	switch r {
	case Merged:
		return "merged"
	case Relocated:
		return "relocated"
	case Exhausted:
		return "exhausted"
	default:
		return "unknown"
	}
}

func isLogFull(err error) bool {
	return errors.Is(err, ErrLogFull)
}
