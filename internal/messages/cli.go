package messages

// CLI command descriptions and shared prompts.
const (
	RootUse   = "vl"
	RootShort = "Variant Layer installs the distribution variant matching your project's runtime"

	InstallUse   = "install [path]"
	InstallShort = "Install the variant matching the detected environment into a project"

	UpgradeUse   = "upgrade [path]"
	UpgradeShort = "Upgrade an existing install to the variant matching the current environment"

	PlanUse   = "plan [path]"
	PlanShort = "Preview the upgrade that would run, without changing the project"

	StatusUse   = "status [path]"
	StatusShort = "Show the installed variant and upgrade history"

	DetectUse   = "detect [path]"
	DetectShort = "Detect the runtime version and module convention for a project"

	FlagVariant       = "force a specific variant id instead of auto-detection"
	FlagForce         = "bypass already-installed and no-change checks"
	FlagYes           = "skip interactive confirmation prompts"
	FlagArtifacts     = "directory containing the pre-built variant distributions"
	FlagInstallMethod = "how this install was initiated (direct, wrapped, manual)"
	FlagJSON          = "emit machine-readable JSON output"
	FlagDiffLines     = "maximum diff lines shown per file in plan output"

	VersionTemplate  = "vl version {{.Version}}\n"
	VersionFullFmt   = "%s (%s)"
	VersionCommitFmt = "commit %s"
	VersionBuildFmt  = "built %s"

	TargetPathMissingFmt = "target path %s does not exist"
	TargetPathNotDirFmt  = "target path %s is not a directory"
	ResolveTargetPathFmt = "resolve target path %s: %w"

	InstallConfirmReinstallFmt     = "A %s install already exists in this project. Reinstall?"
	InstallAbortedByUser           = "install aborted"
	InstallRequiresTerminalOrFlags = "reinstalling over an existing install requires an interactive terminal, --force, or --yes"

	StatusNotInstalled   = "no variant-layer install found; run `vl install` first"
	StatusVariantFmt     = "variant:            %s\n"
	StatusInstalledAtFmt = "installed at:       %s\n"
	StatusRuntimeFmt     = "runtime:            Node %d (%s at install time)\n"
	StatusConventionFmt  = "module convention:  %s\n"
	StatusToolchainFmt   = "toolchain:          runtime-core %s\n"
	StatusMethodFmt      = "install method:     %s\n"
	StatusOverrideFmt    = "override used:      %t\n"
	StatusHistoryHeader  = "upgrade history:"
	StatusHistoryLineFmt = "  %s -> %s at %s\n"

	DetectRuntimeFmt    = "runtime:           Node %d (%s)\n"
	DetectConventionFmt = "module convention: %s\n"
	DetectVariantFmt    = "selected variant:  %s\n"

	InstallSuccessFmt  = "Installed %s into %s\n"
	UpgradeSuccessFmt  = "Upgraded %s -> %s in %s\n"
	UpgradeNoChangeFmt = "Already on %s; nothing to do (use --force to reinstall)\n"

	PlanHeaderFmt   = "Upgrade plan for %s:\n"
	PlanNoChangeFmt = "no change: %s is already installed and up to date\n"
	PlanChangeFmt   = "would replace %s with %s\n"
	PlanDiffFileFmt = "--- %s\n"
)
