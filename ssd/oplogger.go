package ssd

import (
	"github.com/sarchlab/ftlsim/ftl"
	"github.com/sarchlab/ftlsim/hooking"
	"go.uber.org/zap"
)

// OpLogger is a hook that writes flash operations, host requests, and
// cleaning passes to a logger.
type OpLogger struct {
	logger *zap.Logger
}

// NewOpLogger creates an OpLogger writing at debug level.
func NewOpLogger(logger *zap.Logger) *OpLogger {
	return &OpLogger{logger: logger}
}

// Func logs the hook item.
func (h *OpLogger) Func(ctx hooking.HookCtx) {
	switch item := ctx.Item.(type) {
	case FlashOp:
		h.logger.Debug("flash op",
			zap.Stringer("op", item.Op),
			zap.Stringer("addr", item.Addr),
			zap.Int("block", item.Block),
			zap.Uint64("lba", item.LBA))
	case *HostRequest:
		if ctx.Pos != HookPosHostEnd {
			return
		}

		h.logger.Debug("host request",
			zap.String("id", item.ID),
			zap.String("op", string(item.Op)),
			zap.Uint64("lba", item.LBA),
			zap.Stringer("addr", item.Addr),
			zap.Error(item.Err))
	case ftl.MergeEvent:
		h.logger.Debug("cleaning",
			zap.String("pos", ctx.Pos.Name),
			zap.Stringer("kind", item.Kind),
			zap.Stringer("result", item.Result),
			zap.Int("data_block", item.DataBlock),
			zap.Int("log_block", item.LogBlock),
			zap.Int("erases", item.Erases))
	}
}
