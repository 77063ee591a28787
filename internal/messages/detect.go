package messages

// Detection, registry, and lock messages.
const (
	DetectRuntimeVersionFailedFmt = "failed to read Node runtime version: %v; ensure `node` is on PATH"
	DetectRuntimeVersionEmptyFmt  = "runtime reported an empty version string (%q)"
	DetectRuntimeVersionParseFmt  = "cannot parse runtime version %q: %v"

	RegistryUnknownVariantFmt       = "unknown variant %q; valid variants: %s"
	RegistryUnsupportedRuntimeFmt   = "Node %d is below the minimum supported major version %d; upgrade Node to %d or newer"
	RegistryIncompatibleOverrideFmt = "variant %s does not support Node %d; it supports Node %s"

	DetectAsyncOverrideSyncWarnFmt = "manifest declares the async module convention but variant %s is sync-only; proceeding with the override"

	LockHeldFmt           = "another install is in progress (pid %d, started %s); wait for it to finish and retry"
	LockHeldUnreadableFmt = "another install appears to be starting (lock %s exists but is not yet readable); wait for it to finish and retry"
	LockRecordReadFmt     = "failed to read lock record %s: %w"
	LockCreateFmt         = "failed to create lock file %s: %w"
	LockReclaimRacedFmt   = "gave up reclaiming stale lock %s after %d attempts; another process keeps recreating it"
)
