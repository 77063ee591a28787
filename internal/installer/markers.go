package installer

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/conn-castle/variant-layer/internal/registry"
)

// UserConfigName is the user-owned configuration file that lives inside the
// runtime area. It survives every upgrade byte for byte.
const UserConfigName = "variant.config.json"

// guidanceFileName is the derived guidance artifact regenerated for each
// installed variant.
const guidanceFileName = "README.md"

// gitignoreName is the protection marker keeping ephemeral state out of
// version control.
const gitignoreName = ".gitignore"

// gitignoreContent lists the files under .variant-layer that must never be
// committed. context.json is deliberately not ignored: it documents the
// installed variant for the whole team.
const gitignoreContent = `install.log
install.log.1
install.lock
tmp/
`

// guidanceContent renders the per-variant guidance file placed inside the
// runtime area.
func guidanceContent(def registry.Definition) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s runtime files\n\n", def.DisplayName)
	fmt.Fprintf(&b, "These files were installed by `vl` for variant `%s` ", def.ID)
	fmt.Fprintf(&b, "(runtime-core %s, Node %s).\n\n", def.ToolchainVersion, supportedRange(def))
	b.WriteString("Do not edit them by hand; they are replaced wholesale on every\n")
	b.WriteString("`vl upgrade`. Project-specific settings belong in `")
	b.WriteString(UserConfigName)
	b.WriteString("`,\nwhich upgrades preserve.\n")
	return b.String()
}

func supportedRange(def registry.Definition) string {
	versions := def.SupportedRuntimeVersions
	if len(versions) == 1 {
		return fmt.Sprintf("%d", versions[0])
	}
	return fmt.Sprintf("%d-%d", versions[0], versions[len(versions)-1])
}

func guidancePath(runtimeDir string) string {
	return filepath.Join(runtimeDir, guidanceFileName)
}

func userConfigPath(runtimeDir string) string {
	return filepath.Join(runtimeDir, UserConfigName)
}
