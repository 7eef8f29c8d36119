package types

import "errors"

// Config holds backend selection and integrity policy for a powdertrack
// store.
type Config struct {
	Backend string `json:"backend" yaml:"backend"`
	DataDir string `json:"data_dir" yaml:"data_dir"`

	// EnforceForeignKeys turns on the store's own foreign-key checks. With
	// it on, deleting a referenced record fails with ErrConflict regardless
	// of the guard's policy.
	EnforceForeignKeys bool `json:"enforce_foreign_keys" yaml:"enforce_foreign_keys"`

	// DeletePolicy is applied to every non-nullable reference rule. Empty
	// means PolicyWarn.
	DeletePolicy DeletePolicy `json:"delete_policy" yaml:"delete_policy"`

	// CompactionScope is applied to every slot array with a mandatory
	// prefix. Empty means ScopeMandatoryPrefix.
	CompactionScope CompactionScope `json:"compaction_scope" yaml:"compaction_scope"`
}

// Supported backend names.
const (
	BackendSQLite = "sqlite"
)

// Config validation errors.
var (
	ErrBackendEmpty           = errors.New("backend must not be empty")
	ErrBackendUnknown         = errors.New("unknown backend")
	ErrDeletePolicyUnknown    = errors.New("unknown delete policy")
	ErrCompactionScopeUnknown = errors.New("unknown compaction scope")
)

// knownBackends lists the backends that Validate accepts.
var knownBackends = map[string]bool{
	BackendSQLite: true,
}

// Validate checks that the Config is well-formed. It returns a sentinel error
// from this package on failure.
func (c Config) Validate() error {
	if c.Backend == "" {
		return ErrBackendEmpty
	}
	if !knownBackends[c.Backend] {
		return ErrBackendUnknown
	}
	if c.DeletePolicy != "" && !c.DeletePolicy.Valid() {
		return ErrDeletePolicyUnknown
	}
	if c.CompactionScope != "" && !c.CompactionScope.Valid() {
		return ErrCompactionScopeUnknown
	}
	return nil
}

// GetDeletePolicy returns the configured policy, defaulting to PolicyWarn.
func (c Config) GetDeletePolicy() DeletePolicy {
	if c.DeletePolicy == "" {
		return PolicyWarn
	}
	return c.DeletePolicy
}

// GetCompactionScope returns the configured scope, defaulting to
// ScopeMandatoryPrefix.
func (c Config) GetCompactionScope() CompactionScope {
	if c.CompactionScope == "" {
		return ScopeMandatoryPrefix
	}
	return c.CompactionScope
}
