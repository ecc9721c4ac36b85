// Package constants provides centralized domain-specific constants
// for the entire telemetryd application.
package constants

// =============================================================================
// Unknown Sentinel
// =============================================================================

const (
	// Unknown is written in place of a metric the agent did not report
	// or reported in a form that could not be parsed.
	Unknown = "unknown"

	// UnknownLegacy is the sentinel found in mirrors written by older servers.
	UnknownLegacy = "Desconhecido"
)

// IsUnknown reports whether s is one of the unknown sentinels.
func IsUnknown(s string) bool {
	return s == Unknown || s == UnknownLegacy || s == ""
}

// =============================================================================
// Mirror File Keys
// =============================================================================

// These names are part of the on-disk format and must not change.
const (
	MirrorKeyFreeDisk   = "espaco_livre_hd"
	MirrorKeyCPUCount   = "qtd_processadores"
	MirrorKeyFreeMemory = "espaco_memoria"
)

// =============================================================================
// Report Keys
// =============================================================================

const (
	// ReportKeyFreeDisk carries the free disk space, e.g. "120.5 GB".
	ReportKeyFreeDisk = "free_disk_space"

	// ReportKeyCPUCount carries the number of logical processors.
	ReportKeyCPUCount = "processor_count"

	// ReportKeyFreeMemory carries the free memory, e.g. "4.2 GB".
	ReportKeyFreeMemory = "free_memory"
)

// ReportAliases maps each report key to the keys accepted for it, in
// priority order. Agents that predate the English keys send the mirror keys.
var ReportAliases = map[string][]string{
	ReportKeyFreeDisk:   {ReportKeyFreeDisk, MirrorKeyFreeDisk},
	ReportKeyCPUCount:   {ReportKeyCPUCount, MirrorKeyCPUCount},
	ReportKeyFreeMemory: {ReportKeyFreeMemory, MirrorKeyFreeMemory},
}

// =============================================================================
// Units
// =============================================================================

const (
	// UnitGB is the unit every size is normalized to.
	UnitGB = "GB"

	// BytesPerGB is the decimal gigabyte.
	BytesPerGB = 1e9
)

// =============================================================================
// Console Commands
// =============================================================================

const (
	CommandList    = "list"
	CommandShow    = "show"
	CommandAverage = "average"
	CommandSummary = "summary"
	CommandStatus  = "status"
	CommandHelp    = "help"
	CommandQuit    = "quit"
	CommandExit    = "exit"
)
