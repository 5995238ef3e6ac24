package orchestration

import "bitbucket.org/mmdatafocus/grc_backend/models"

// WatchedTables is the fixed set of tables the orchestrator subscribes to.
var WatchedTables = []string{
	"incident_logs",
	"governance_policies",
	"controls",
	"kri_definitions",
	"business_functions",
	"third_party_profiles",
}

// sourceModuleByTable maps a watched table to the business module that owns it.
var sourceModuleByTable = map[string]string{
	"incident_logs":        "incident_management",
	"governance_policies":  "governance",
	"controls":             "controls_kri",
	"kri_definitions":      "controls_kri",
	"business_functions":   "business_continuity",
	"third_party_profiles": "third_party_risk",
}

// targetModulesByTable maps a watched table to the ordered set of modules
// whose data may need downstream action when it changes. An unmapped table
// produces no fan-out work at all.
var targetModulesByTable = map[string][]string{
	"incident_logs":        {"governance", "controls", "risk_appetite", "business_continuity"},
	"controls":             {"incident_management", "governance", "risk_appetite"},
	"governance_policies":  {"controls", "incident_management"},
	"kri_definitions":      {"risk_appetite", "governance"},
	"business_functions":   {"governance", "third_party_risk"},
	"third_party_profiles": {"governance", "controls", "business_continuity"},
}

// ResolveSourceModule returns the owning module, or "unknown" for an
// unmapped table.
func ResolveSourceModule(tableName string) string {
	if m, ok := sourceModuleByTable[tableName]; ok {
		return m
	}
	return models.SyncSourceUnknown
}

// ResolveTargetModules returns a copy of the fan-out targets; empty for an
// unmapped table.
func ResolveTargetModules(tableName string) []string {
	targets, ok := targetModulesByTable[tableName]
	if !ok {
		return []string{}
	}
	out := make([]string, len(targets))
	copy(out, targets)
	return out
}
