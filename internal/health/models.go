package health

import (
	"encoding/json"
	"strconv"
)

const (
	prefix = "health:"

	prefixCheck = prefix + "check:"
)

// checkModel is the storage representation of one health-check result.
type checkModel struct {
	CheckResult
}

// StorageKey implements storage.Entity. Keys order per-deployment history
// chronologically.
func (m *checkModel) StorageKey() string {
	return prefixCheck + m.DeploymentID.String() + ":" + strconv.FormatInt(m.CheckedAt.UnixNano(), 10)
}

// StorageIndexes implements storage.Entity.
func (m *checkModel) StorageIndexes() []string {
	return nil
}

// MarshalStorage implements storage.Entity.
func (m *checkModel) MarshalStorage() ([]byte, error) {
	return json.Marshal(m.CheckResult)
}

// UnmarshalStorage implements storage.Entity.
func (m *checkModel) UnmarshalStorage(data []byte) error {
	return json.Unmarshal(data, &m.CheckResult)
}
