package ftl

import (
	"fmt"

	"github.com/sarchlab/ftlsim/flash"
	"go.uber.org/zap"
)

// Builder can build translation layers.
type Builder struct {
	geometry         flash.Geometry
	eraseLimit       int
	overprovisioning int
	policyKind       PolicyKind
	policy           ReclamationPolicy
	logger           *zap.Logger
}

// MakeBuilder creates a builder with default parameters.
func MakeBuilder() Builder {
	return Builder{
		geometry: flash.Geometry{
			Packages:       1,
			DiesPerPackage: 1,
			PlanesPerDie:   1,
			BlocksPerPlane: 64,
			PagesPerBlock:  16,
		},
		eraseLimit:       1000,
		overprovisioning: 10,
		policyKind:       FIFO,
	}
}

// WithGeometry sets the shape of the device.
func (b Builder) WithGeometry(g flash.Geometry) Builder {
	b.geometry = g
	return b
}

// WithEraseLimit sets how many times each block can be erased.
func (b Builder) WithEraseLimit(n int) Builder {
	b.eraseLimit = n
	return b
}

// WithOverprovisioning sets the percent of the raw capacity kept for log,
// scratch, and spare blocks.
func (b Builder) WithOverprovisioning(percent int) Builder {
	b.overprovisioning = percent
	return b
}

// WithPolicy selects a built-in reclamation policy.
func (b Builder) WithPolicy(kind PolicyKind) Builder {
	b.policyKind = kind
	b.policy = nil

	return b
}

// WithReclamationPolicy sets a custom reclamation policy. It takes
// precedence over WithPolicy.
func (b Builder) WithReclamationPolicy(p ReclamationPolicy) Builder {
	b.policy = p
	return b
}

// WithLogger sets the logger.
func (b Builder) WithLogger(logger *zap.Logger) Builder {
	b.logger = logger
	return b
}

// Build creates a translation layer. It panics if the parameters cannot
// describe a working device.
func (b Builder) Build(name string) *FTL {
	if err := CheckLayout(b.geometry, b.eraseLimit, b.overprovisioning); err != nil {
		panic(err)
	}

	logger := b.logger
	if logger == nil {
		logger = zap.NewNop()
	}

	logger = logger.With(zap.String("ftl", name))

	policy := b.policy
	if policy == nil {
		policy = b.policyKind.New()
	}

	t := newTables(b.geometry, b.eraseLimit, b.overprovisioning)
	wear := wearLeveler{t: t, logger: logger}
	logs := logManager{t: t, wear: wear, logger: logger}

	return &FTL{
		name:   name,
		t:      t,
		wear:   wear,
		logs:   logs,
		logger: logger,
		gc: &collector{
			t:      t,
			wear:   wear,
			logs:   logs,
			policy: policy,
			logger: logger,
		},
	}
}

// CheckLayout reports why a set of parameters cannot describe a working
// device. The over-provisioned region must hold at least one log block and
// the scratch block.
func CheckLayout(g flash.Geometry, eraseLimit, overprovisioning int) error {
	if err := g.Validate(); err != nil {
		return err
	}

	if eraseLimit < 1 {
		return fmt.Errorf("erase limit must be positive, got %d", eraseLimit)
	}

	if overprovisioning < 0 || overprovisioning >= 100 {
		return fmt.Errorf("overprovisioning must be in [0, 100), got %d",
			overprovisioning)
	}

	ppb := uint64(g.PagesPerBlock)
	addressable := g.Addressable(overprovisioning)
	logStart := int((addressable + ppb - 1) / ppb)

	if reserved := g.NumBlocks() - logStart; reserved < 2 {
		return fmt.Errorf(
			"overprovisioning of %d%% reserves %d blocks, at least 2 needed",
			overprovisioning, reserved)
	}

	return nil
}
