package installer

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/aymanbagabas/go-udiff"

	"github.com/conn-castle/variant-layer/internal/config"
	"github.com/conn-castle/variant-layer/internal/detect"
	"github.com/conn-castle/variant-layer/internal/manifest"
	"github.com/conn-castle/variant-layer/internal/messages"
	"github.com/conn-castle/variant-layer/internal/registry"
)

const (
	// DefaultDiffMaxLines is the default maximum number of diff lines shown per file.
	DefaultDiffMaxLines = 40
	// diffLineCapFlagName is the CLI flag used to raise the per-file line cap.
	diffLineCapFlagName = "--diff-lines"
)

// FileDiff is a user-facing, per-file preview of one runtime file an upgrade
// would change.
type FileDiff struct {
	Path        string
	UnifiedDiff string
	Truncated   bool
}

// Plan describes what an upgrade of root would do without performing it.
// Building a plan is read-only and takes no lock.
type Plan struct {
	Current  registry.ID
	Target   registry.ID
	NoChange bool
	Warnings []string
	Diffs    []FileDiff
}

// PlanOptions controls plan construction.
type PlanOptions struct {
	Variant      registry.ID
	ArtifactsDir string
	DiffMaxLines int
	Runtime      detect.Runtime
}

// BuildPlan previews the upgrade that run would perform for root. It requires
// an existing install.
func BuildPlan(ctx context.Context, root string, opts PlanOptions) (Plan, error) {
	if root == "" {
		return Plan{}, errors.New(messages.InstallRootRequired)
	}
	if opts.Runtime == nil {
		opts.Runtime = detect.NodeRuntime{}
	}

	paths := config.DefaultPaths(root)
	current, err := LoadContext(paths.ContextPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Plan{}, fmt.Errorf(messages.InstallNotInstalledFmt, root)
		}
		return Plan{}, err
	}

	sel := detect.SelectVariant(ctx, root, opts.Variant, opts.Runtime, manifest.RealSystem{})
	if !sel.OK {
		return Plan{}, sel.Err
	}

	plan := Plan{Current: current.Variant, Target: sel.Variant, Warnings: sel.Warnings}
	if _, err := os.Stat(paths.LockPath); err == nil {
		plan.Warnings = append(plan.Warnings, messages.PlanDirtyWorkspaceWarn)
	}
	if sel.Variant == current.Variant {
		plan.NoChange = true
		return plan, nil
	}

	if opts.ArtifactsDir != "" {
		def, err := registry.Get(sel.Variant)
		if err != nil {
			return Plan{}, err
		}
		if err := verifyArtifacts(opts.ArtifactsDir, def); err != nil {
			return Plan{}, err
		}
		diffs, err := buildFileDiffs(artifactDir(opts.ArtifactsDir, def), paths.RuntimeDir, opts.DiffMaxLines)
		if err != nil {
			return Plan{}, err
		}
		plan.Diffs = diffs
	}
	return plan, nil
}

// buildFileDiffs diffs the installed runtime area against the target variant's
// distribution, one preview per changed path. The user config is never diffed;
// upgrades preserve it untouched.
func buildFileDiffs(distDir string, runtimeDir string, maxLines int) ([]FileDiff, error) {
	currentFiles, err := relativeFiles(runtimeDir)
	if err != nil {
		return nil, err
	}
	targetFiles, err := relativeFiles(distDir)
	if err != nil {
		return nil, err
	}

	union := make(map[string]struct{}, len(currentFiles)+len(targetFiles))
	for rel := range currentFiles {
		union[rel] = struct{}{}
	}
	for rel := range targetFiles {
		union[rel] = struct{}{}
	}
	delete(union, UserConfigName)
	delete(union, guidanceFileName)

	rels := make([]string, 0, len(union))
	for rel := range union {
		rels = append(rels, rel)
	}
	sort.Strings(rels)

	diffs := make([]FileDiff, 0, len(rels))
	for _, rel := range rels {
		from := ""
		if _, ok := currentFiles[rel]; ok {
			data, err := os.ReadFile(filepath.Join(runtimeDir, filepath.FromSlash(rel)))
			if err != nil {
				return nil, fmt.Errorf(messages.InstallFailedReadFmt, rel, err)
			}
			from = string(data)
		}
		to := ""
		if _, ok := targetFiles[rel]; ok {
			data, err := os.ReadFile(filepath.Join(distDir, filepath.FromSlash(rel)))
			if err != nil {
				return nil, fmt.Errorf(messages.InstallFailedReadFmt, rel, err)
			}
			to = string(data)
		}
		if from == to {
			continue
		}
		rendered, truncated := renderTruncatedUnifiedDiff(rel+" (installed)", rel+" (target)", from, to, maxLines)
		diffs = append(diffs, FileDiff{Path: rel, UnifiedDiff: rendered, Truncated: truncated})
	}
	return diffs, nil
}

// relativeFiles returns the slash-separated relative paths of the regular
// files under dir. A missing dir yields an empty set.
func relativeFiles(dir string) (map[string]struct{}, error) {
	out := map[string]struct{}{}
	err := filepath.WalkDir(dir, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil
			}
			return err
		}
		if !entry.Type().IsRegular() {
			return nil
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		out[filepath.ToSlash(rel)] = struct{}{}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// renderTruncatedUnifiedDiff renders a unified diff capped at maxLines lines
// per file (DefaultDiffMaxLines when maxLines is zero or negative). Output is
// empty for identical content and always newline-terminated otherwise.
func renderTruncatedUnifiedDiff(fromName string, toName string, fromContent string, toContent string, maxLines int) (string, bool) {
	limit := maxLines
	if limit <= 0 {
		limit = DefaultDiffMaxLines
	}

	diff := strings.TrimRight(udiff.Unified(fromName, toName, fromContent, toContent), "\n")
	if diff == "" {
		return "", false
	}
	lines := strings.Split(diff, "\n")
	if len(lines) <= limit {
		return diff + "\n", false
	}

	var b strings.Builder
	for _, line := range lines[:limit] {
		b.WriteString(line)
		b.WriteByte('\n')
	}
	fmt.Fprintf(&b, "... diff capped at %d lines; pass %s <n> for the full preview\n", limit, diffLineCapFlagName)
	return b.String(), true
}
