package installer

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/conn-castle/variant-layer/internal/fsutil"
	"github.com/conn-castle/variant-layer/internal/messages"
	"github.com/conn-castle/variant-layer/internal/registry"
)

// contextSchemaVersion guards context.json against readers and writers from
// incompatible releases.
const contextSchemaVersion = 1

// Method records how an install was initiated.
type Method string

const (
	MethodDirect  Method = "direct"
	MethodWrapped Method = "wrapped"
	MethodManual  Method = "manual"
)

// HistoryEntry is one upgrade recorded in the context. Entries are appended,
// never rewritten.
type HistoryEntry struct {
	From registry.ID `json:"from"`
	To   registry.ID `json:"to"`
	At   time.Time   `json:"at"`
}

// Context is the persisted install record at .variant-layer/context.json.
// It is created on the first successful install and rewritten wholesale on
// every successful upgrade; it is never deleted. The orchestrator is the sole
// writer; external tooling reads it for diagnostics only.
type Context struct {
	SchemaVersion      int                 `json:"schema_version"`
	Variant            registry.ID         `json:"variant"`
	InstalledAt        time.Time           `json:"installed_at"`
	RuntimeVersion     int                 `json:"runtime_version"`
	RuntimeVersionFull string              `json:"runtime_version_full"`
	ModuleConvention   registry.Convention `json:"module_convention"`
	ToolchainVersion   string              `json:"toolchain_version"`
	PackageVersion     string              `json:"package_version"`
	InstallMethod      Method              `json:"install_method"`
	OverrideUsed       bool                `json:"override_used"`
	PreviousVariant    registry.ID         `json:"previous_variant,omitempty"`
	UpgradeHistory     []HistoryEntry      `json:"upgrade_history"`
}

// LoadContext reads and validates the install context at path. A missing file
// returns os.ErrNotExist unwrapped so callers can distinguish "not installed"
// from "corrupt".
func LoadContext(path string) (*Context, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
		return nil, fmt.Errorf(messages.InstallFailedReadFmt, path, err)
	}
	var ctx Context
	if err := json.Unmarshal(data, &ctx); err != nil {
		return nil, fmt.Errorf(messages.InstallContextMalformedFmt, path, err)
	}
	if err := ctx.validate(); err != nil {
		return nil, fmt.Errorf(messages.InstallContextMalformedFmt, path, err)
	}
	return &ctx, nil
}

func (c *Context) validate() error {
	if c.SchemaVersion != contextSchemaVersion {
		return fmt.Errorf(messages.ContextSchemaUnsupportedFmt, c.SchemaVersion, contextSchemaVersion)
	}
	if c.Variant == "" {
		return errors.New(messages.ContextVariantMissing)
	}
	if c.InstalledAt.IsZero() {
		return fmt.Errorf(messages.ContextInstalledAtInvalidFmt, c.InstalledAt, "zero timestamp")
	}
	if _, err := registry.Get(c.Variant); err != nil {
		return err
	}
	switch c.InstallMethod {
	case MethodDirect, MethodWrapped, MethodManual:
	default:
		return fmt.Errorf("invalid install_method %q", c.InstallMethod)
	}
	return nil
}

// writeContext persists ctx as pretty-printed JSON with an atomic rewrite.
func writeContext(path string, ctx *Context) error {
	if err := ctx.validate(); err != nil {
		return err
	}
	data, err := json.MarshalIndent(ctx, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal install context: %w", err)
	}
	data = append(data, '\n')
	if err := fsutil.WriteFileAtomic(path, data, 0o644); err != nil {
		return fmt.Errorf(messages.InstallFailedWriteFmt, path, err)
	}
	return nil
}
