package messages

// Installer and rollback messages.
const (
	// InstallRootRequired indicates the target root path is required.
	InstallRootRequired = "target root path is required"
	// InstallArtifactsDirRequired indicates no artifacts directory was resolved
	// from flags or settings.
	InstallArtifactsDirRequired = "artifacts directory is required; pass --artifacts or set artifacts.dir in config.toml"

	InstallCreateDirFailedFmt = "failed to create directory %s: %w"
	InstallFailedReadFmt      = "failed to read %s: %w"
	InstallFailedWriteFmt     = "failed to write %s: %w"
	InstallFailedStatFmt      = "failed to stat %s: %w"
	InstallFailedRemoveFmt    = "failed to remove %s: %w"
	InstallFailedCopyFmt      = "failed to copy %s to %s: %w"

	InstallAlreadyInstalledFmt = "a %s install already exists in %s; rerun with --force to replace it"
	InstallNotInstalledFmt     = "no install context found under %s; run `vl install` before `vl upgrade`"
	InstallContextMalformedFmt = "install context %s is malformed: %v; delete it and run `vl install --force` to reinstall"

	InstallMissingArtifactsFmt = "distribution directory %s for variant %s is missing or incomplete; run `npm run build:variants -- %s` to produce it"

	InstallRollbackSucceededFmt = "install failed during %s; all changes were rolled back"
	InstallRollbackPartialFmt   = "install failed during %s and rollback could not restore every path; manual cleanup required:\n%s"

	ContextSchemaUnsupportedFmt  = "unsupported context schema_version %d (expected %d)"
	ContextVariantMissing        = "context is missing a variant id"
	ContextInstalledAtInvalidFmt = "invalid installed_at %q: %v"

	UserConfigPreservedFmt = "preserved user configuration %s across upgrade"

	PlanDirtyWorkspaceWarn = "workspace has an unreleased lock file; a previous operation may have been interrupted"
)
