// Package registry is the static catalog of distribution variants and their
// runtime compatibility constraints.
package registry

import (
	"strconv"
	"strings"

	"github.com/conn-castle/variant-layer/internal/fault"
	"github.com/conn-castle/variant-layer/internal/messages"
)

// Convention identifies how a project loads modules.
type Convention string

const (
	// Sync is the CommonJS require() convention and the universal safe default.
	Sync Convention = "sync"
	// Async is the ES module import convention.
	Async Convention = "async"
)

// ID identifies a distribution variant.
type ID string

const (
	ModernAsync ID = "modern-async"
	ModernSync  ID = "modern-sync"
	Legacy16    ID = "legacy-16"
	Legacy14    ID = "legacy-14"
)

// Runtime version thresholds for the recommendation table.
const (
	// MinimumRuntimeMajor is the oldest Node major version any variant supports.
	MinimumRuntimeMajor   = 14
	midLegacyRuntimeMajor = 16
	modernRuntimeMajor    = 18
)

// Definition describes one pre-built variant. Definitions are immutable and
// compiled into the binary.
type Definition struct {
	ID                       ID
	DisplayName              string
	SupportedRuntimeVersions []int
	ModuleConvention         Convention
	ToolchainVersion         string
	DistDirName              string
}

var definitions = []Definition{
	{
		ID:                       ModernAsync,
		DisplayName:              "Modern (ES modules)",
		SupportedRuntimeVersions: []int{18, 19, 20, 21, 22, 23, 24},
		ModuleConvention:         Async,
		ToolchainVersion:         "3.4.1",
		DistDirName:              "modern-esm",
	},
	{
		ID:                       ModernSync,
		DisplayName:              "Modern (CommonJS)",
		SupportedRuntimeVersions: []int{18, 19, 20, 21, 22, 23, 24},
		ModuleConvention:         Sync,
		ToolchainVersion:         "3.4.1",
		DistDirName:              "modern-cjs",
	},
	{
		ID:                       Legacy16,
		DisplayName:              "Legacy (Node 16)",
		SupportedRuntimeVersions: []int{16, 17},
		ModuleConvention:         Sync,
		ToolchainVersion:         "2.11.0",
		DistDirName:              "legacy-16",
	},
	{
		ID:                       Legacy14,
		DisplayName:              "Legacy (Node 14)",
		SupportedRuntimeVersions: []int{14, 15},
		ModuleConvention:         Sync,
		ToolchainVersion:         "1.28.3",
		DistDirName:              "legacy-14",
	},
}

// Get returns the definition for id.
func Get(id ID) (Definition, error) {
	for _, def := range definitions {
		if def.ID == id {
			return def, nil
		}
	}
	return Definition{}, fault.New(fault.UnknownVariant, messages.RegistryUnknownVariantFmt, string(id), validIDList())
}

// All returns every variant definition in a stable order.
func All() []Definition {
	out := make([]Definition, len(definitions))
	copy(out, definitions)
	return out
}

// IsCompatible reports whether the variant supports the given runtime major version.
func IsCompatible(id ID, runtimeMajor int) (bool, error) {
	def, err := Get(id)
	if err != nil {
		return false, err
	}
	for _, v := range def.SupportedRuntimeVersions {
		if v == runtimeMajor {
			return true, nil
		}
	}
	return false, nil
}

// Recommend applies the fixed decision table, evaluated top-down with first
// match winning, and returns the variant id for the environment.
func Recommend(runtimeMajor int, convention Convention) (ID, error) {
	switch {
	case runtimeMajor < MinimumRuntimeMajor:
		return "", fault.New(fault.UnsupportedRuntime, messages.RegistryUnsupportedRuntimeFmt,
			runtimeMajor, MinimumRuntimeMajor, MinimumRuntimeMajor)
	case runtimeMajor >= modernRuntimeMajor:
		if convention == Async {
			return ModernAsync, nil
		}
		return ModernSync, nil
	case runtimeMajor >= midLegacyRuntimeMajor:
		return Legacy16, nil
	default:
		return Legacy14, nil
	}
}

// SupportedVersionsString renders a definition's supported majors for error text.
func SupportedVersionsString(def Definition) string {
	parts := make([]string, 0, len(def.SupportedRuntimeVersions))
	for _, v := range def.SupportedRuntimeVersions {
		parts = append(parts, strconv.Itoa(v))
	}
	return strings.Join(parts, ", ")
}

func validIDList() string {
	parts := make([]string, 0, len(definitions))
	for _, def := range definitions {
		parts = append(parts, string(def.ID))
	}
	return strings.Join(parts, ", ")
}
