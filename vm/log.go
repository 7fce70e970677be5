package vm

import "go.uber.org/zap"

// NewLogger builds the zap.Logger the CLI driver attaches to a VM. dev
// selects zap's human-readable development console encoder (colorized
// level, caller, stack traces on Warn+) over the production JSON encoder,
// which is used otherwise.
func NewLogger(dev bool) (*zap.Logger, error) {
	if dev {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
