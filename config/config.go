// Package config loads device configuration files.
//
// A file holds one key per line, as "KEY VALUE" or "KEY=VALUE". Lines
// starting with # are comments. Environment variables named FTLSIM_<KEY>
// override the file.
package config

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/sarchlab/ftlsim/flash"
	"github.com/sarchlab/ftlsim/ftl"
	"github.com/sarchlab/ftlsim/ssd"
)

// EnvPrefix is the prefix of environment variables overriding file values.
const EnvPrefix = "FTLSIM_"

// Keys of a configuration file.
const (
	KeySSDSize          = "SSD_SIZE"
	KeyPackageSize      = "PACKAGE_SIZE"
	KeyDieSize          = "DIE_SIZE"
	KeyPlaneSize        = "PLANE_SIZE"
	KeyBlockSize        = "BLOCK_SIZE"
	KeyBlockErases      = "BLOCK_ERASES"
	KeyOverprovisioning = "OVERPROVISIONING"
	KeyPolicy           = "SELECTED_GC_POLICY"
	KeyPageSize         = "PAGE_SIZE"
)

var keys = []string{
	KeySSDSize, KeyPackageSize, KeyDieSize, KeyPlaneSize, KeyBlockSize,
	KeyBlockErases, KeyOverprovisioning, KeyPolicy, KeyPageSize,
}

// Device is a device configuration.
type Device struct {
	Geometry         flash.Geometry
	EraseLimit       int
	Overprovisioning int
	Policy           ftl.PolicyKind
	PageSize         int
}

// Default returns the configuration used when no file is given.
func Default() Device {
	return Device{
		Geometry: flash.Geometry{
			Packages:       4,
			DiesPerPackage: 2,
			PlanesPerDie:   2,
			BlocksPerPlane: 64,
			PagesPerBlock:  64,
		},
		EraseLimit:       100,
		Overprovisioning: 10,
		Policy:           ftl.FIFO,
		PageSize:         4096,
	}
}

// Load reads a configuration file and applies environment overrides.
func Load(path string) (Device, error) {
	f, err := os.Open(path)
	if err != nil {
		return Device{}, err
	}
	defer f.Close()

	values, err := parse(f)
	if err != nil {
		return Device{}, fmt.Errorf("%s: %w", path, err)
	}

	applyEnv(values)

	d, err := FromMap(values)
	if err != nil {
		return Device{}, fmt.Errorf("%s: %w", path, err)
	}

	return d, nil
}

// Parse reads a configuration without environment overrides.
func Parse(r io.Reader) (Device, error) {
	values, err := parse(r)
	if err != nil {
		return Device{}, err
	}

	return FromMap(values)
}

// parse turns "KEY VALUE" lines into "KEY=VALUE" lines and hands them to
// godotenv. A key may appear only once.
func parse(r io.Reader) (map[string]string, error) {
	var normalized strings.Builder

	seen := make(map[string]int)
	scanner := bufio.NewScanner(r)

	for lineNum := 1; scanner.Scan(); lineNum++ {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		key, value, ok := strings.Cut(line, "=")
		if !ok {
			fields := strings.Fields(line)
			if len(fields) < 2 {
				return nil, fmt.Errorf("line %d: no value for %q", lineNum, line)
			}

			key, value = fields[0], fields[1]
		}

		key = strings.TrimSpace(key)
		if prev, dup := seen[key]; dup {
			return nil, fmt.Errorf("line %d: %s already defined on line %d",
				lineNum, key, prev)
		}

		seen[key] = lineNum
		fmt.Fprintf(&normalized, "%s=%s\n", key, strings.TrimSpace(value))
	}

	if err := scanner.Err(); err != nil {
		return nil, err
	}

	return godotenv.Unmarshal(normalized.String())
}

func applyEnv(values map[string]string) {
	for _, key := range keys {
		if v, ok := os.LookupEnv(EnvPrefix + key); ok {
			values[key] = v
		}
	}
}

// FromMap builds a configuration from key-value pairs. The policy and page
// size are optional.
func FromMap(values map[string]string) (Device, error) {
	d := Default()

	required := []struct {
		key string
		dst *int
	}{
		{KeySSDSize, &d.Geometry.Packages},
		{KeyPackageSize, &d.Geometry.DiesPerPackage},
		{KeyDieSize, &d.Geometry.PlanesPerDie},
		{KeyPlaneSize, &d.Geometry.BlocksPerPlane},
		{KeyBlockSize, &d.Geometry.PagesPerBlock},
		{KeyBlockErases, &d.EraseLimit},
		{KeyOverprovisioning, &d.Overprovisioning},
	}

	for _, r := range required {
		v, ok := values[r.key]
		if !ok {
			return Device{}, fmt.Errorf("missing key %s", r.key)
		}

		n, err := strconv.Atoi(v)
		if err != nil {
			return Device{}, fmt.Errorf("%s: %q is not an integer", r.key, v)
		}

		*r.dst = n
	}

	if v, ok := values[KeyPolicy]; ok {
		kind, err := ftl.ParsePolicyKind(v)
		if err != nil {
			return Device{}, fmt.Errorf("%s: %w", KeyPolicy, err)
		}

		d.Policy = kind
	}

	if v, ok := values[KeyPageSize]; ok {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return Device{}, fmt.Errorf("%s: %q is not a positive integer",
				KeyPageSize, v)
		}

		d.PageSize = n
	}

	if err := d.Validate(); err != nil {
		return Device{}, err
	}

	return d, nil
}

// Validate reports why a configuration cannot describe a working device.
func (d Device) Validate() error {
	return ftl.CheckLayout(d.Geometry, d.EraseLimit, d.Overprovisioning)
}

// Map returns the configuration as key-value pairs.
func (d Device) Map() map[string]string {
	return map[string]string{
		KeySSDSize:          strconv.Itoa(d.Geometry.Packages),
		KeyPackageSize:      strconv.Itoa(d.Geometry.DiesPerPackage),
		KeyDieSize:          strconv.Itoa(d.Geometry.PlanesPerDie),
		KeyPlaneSize:        strconv.Itoa(d.Geometry.BlocksPerPlane),
		KeyBlockSize:        strconv.Itoa(d.Geometry.PagesPerBlock),
		KeyBlockErases:      strconv.Itoa(d.EraseLimit),
		KeyOverprovisioning: strconv.Itoa(d.Overprovisioning),
		KeyPolicy:           strconv.Itoa(int(d.Policy)),
		KeyPageSize:         strconv.Itoa(d.PageSize),
	}
}

// Save writes the configuration in KEY=VALUE form.
func (d Device) Save(path string) error {
	return godotenv.Write(d.Map(), path)
}

// Builder returns a device builder carrying this configuration.
func (d Device) Builder() ssd.Builder {
	return ssd.MakeBuilder().
		WithGeometry(d.Geometry).
		WithEraseLimit(d.EraseLimit).
		WithOverprovisioning(d.Overprovisioning).
		WithPolicy(d.Policy).
		WithPageSize(d.PageSize)
}
