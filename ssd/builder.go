package ssd

import (
	"github.com/sarchlab/ftlsim/flash"
	"github.com/sarchlab/ftlsim/ftl"
	"github.com/sarchlab/ftlsim/idgen"
	"go.uber.org/zap"
)

// Builder can build devices.
type Builder struct {
	ftlBuilder ftl.Builder
	geometry   flash.Geometry
	eraseLimit int
	pageSize   int
}

// MakeBuilder creates a builder with default parameters.
func MakeBuilder() Builder {
	return Builder{
		ftlBuilder: ftl.MakeBuilder(),
		geometry: flash.Geometry{
			Packages:       1,
			DiesPerPackage: 1,
			PlanesPerDie:   1,
			BlocksPerPlane: 64,
			PagesPerBlock:  16,
		},
		eraseLimit: 1000,
		pageSize:   4096,
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

// WithOverprovisioning sets the percent of raw capacity hidden from the host.
func (b Builder) WithOverprovisioning(percent int) Builder {
	b.ftlBuilder = b.ftlBuilder.WithOverprovisioning(percent)
	return b
}

// WithPolicy selects the reclamation policy.
func (b Builder) WithPolicy(kind ftl.PolicyKind) Builder {
	b.ftlBuilder = b.ftlBuilder.WithPolicy(kind)
	return b
}

// WithPageSize sets the number of bytes in a page.
func (b Builder) WithPageSize(n int) Builder {
	b.pageSize = n
	return b
}

// WithLogger sets the logger of the translation layer.
func (b Builder) WithLogger(logger *zap.Logger) Builder {
	b.ftlBuilder = b.ftlBuilder.WithLogger(logger)
	return b
}

// Build creates a device.
func (b Builder) Build(name string) *Device {
	b.ftlBuilder = b.ftlBuilder.WithGeometry(b.geometry).
		WithEraseLimit(b.eraseLimit)

	return &Device{
		name: name,
		ftl:  b.ftlBuilder.Build(name + ".FTL"),
		ctrl: NewController(name+".Controller",
			b.geometry, b.pageSize, b.eraseLimit),
		ids: idgen.NewSequential(),
	}
}
