package store

import (
	"context"
	"fmt"
	"sort"
	"time"
)

// SyncDataType represents the kind of imported data being tracked.
type SyncDataType string

const (
	SyncTypeCandles SyncDataType = "candles"
	SyncTypeEvents  SyncDataType = "events"
)

// SyncStatus represents the current import status of a data type.
type SyncStatus struct {
	DataType SyncDataType
	LastSync time.Time
	IsStale  bool
	AgeHours int
}

// DataFreshness represents the freshness of stored data.
type DataFreshness struct {
	DataType    SyncDataType
	Symbol      string
	LastUpdated time.Time
	IsFresh     bool
	Age         time.Duration
}

// SyncConfig holds staleness thresholds.
type SyncConfig struct {
	// StaleThresholds defines how old an import can be before it's considered stale.
	StaleThresholds map[SyncDataType]time.Duration
	// MaxBarAge is how far the last stored bar may trail the clock. It spans
	// a long weekend so daily data is not flagged on Mondays.
	MaxBarAge time.Duration
}

// DefaultSyncConfig returns default sync configuration.
func DefaultSyncConfig() *SyncConfig {
	return &SyncConfig{
		StaleThresholds: map[SyncDataType]time.Duration{
			SyncTypeCandles: 24 * time.Hour,
			SyncTypeEvents:  7 * 24 * time.Hour,
		},
		MaxBarAge: 4 * 24 * time.Hour,
	}
}

// SyncTracker records when data was last imported and reports staleness.
type SyncTracker struct {
	store  DataStore
	config *SyncConfig
	now    func() time.Time
}

// NewSyncTracker creates a new sync tracker.
func NewSyncTracker(store DataStore, config *SyncConfig) *SyncTracker {
	if config == nil {
		config = DefaultSyncConfig()
	}
	return &SyncTracker{
		store:  store,
		config: config,
		now:    time.Now,
	}
}

func (st *SyncTracker) threshold(dataType SyncDataType) time.Duration {
	if d := st.config.StaleThresholds[dataType]; d > 0 {
		return d
	}
	return 24 * time.Hour
}

// MarkSynced marks a data type as imported now.
func (st *SyncTracker) MarkSynced(dataType SyncDataType) error {
	if err := st.store.SetLastSync(string(dataType), st.now()); err != nil {
		return fmt.Errorf("failed to mark %s as synced: %w", dataType, err)
	}
	return nil
}

// GetDataFreshness returns the freshness of an imported data type.
func (st *SyncTracker) GetDataFreshness(dataType SyncDataType) *DataFreshness {
	lastSync := st.store.GetLastSync(string(dataType))
	age := st.now().Sub(lastSync)

	return &DataFreshness{
		DataType:    dataType,
		LastUpdated: lastSync,
		IsFresh:     !lastSync.IsZero() && age < st.threshold(dataType),
		Age:         age,
	}
}

// IsDataStale checks if a specific data type is stale.
func (st *SyncTracker) IsDataStale(dataType SyncDataType) bool {
	return !st.GetDataFreshness(dataType).IsFresh
}

// GetSyncStatus returns the sync status for a data type.
func (st *SyncTracker) GetSyncStatus(dataType SyncDataType) *SyncStatus {
	f := st.GetDataFreshness(dataType)
	return &SyncStatus{
		DataType: dataType,
		LastSync: f.LastUpdated,
		IsStale:  !f.IsFresh,
		AgeHours: int(f.Age.Hours()),
	}
}

// GetAllSyncStatus returns sync status for all tracked data types, sorted
// by name.
func (st *SyncTracker) GetAllSyncStatus() []*SyncStatus {
	types := make([]SyncDataType, 0, len(st.config.StaleThresholds))
	for dataType := range st.config.StaleThresholds {
		types = append(types, dataType)
	}
	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })

	statuses := make([]*SyncStatus, 0, len(types))
	for _, dataType := range types {
		statuses = append(statuses, st.GetSyncStatus(dataType))
	}
	return statuses
}

// SymbolFreshness reports how far the last stored daily bar of a symbol
// trails the clock.
func (st *SyncTracker) SymbolFreshness(ctx context.Context, symbol string) (*DataFreshness, error) {
	last, err := st.store.GetCandlesFreshness(ctx, symbol, TimeframeDaily)
	if err != nil {
		return nil, err
	}
	age := st.now().Sub(last)
	return &DataFreshness{
		DataType:    SyncTypeCandles,
		Symbol:      symbol,
		LastUpdated: last,
		IsFresh:     !last.IsZero() && age <= st.config.MaxBarAge,
		Age:         age,
	}, nil
}

// FormatFreshness returns a human-readable freshness string.
func FormatFreshness(freshness *DataFreshness) string {
	if freshness.LastUpdated.IsZero() {
		return "Never synced"
	}

	age := freshness.Age
	var ageStr string

	switch {
	case age < time.Minute:
		ageStr = "just now"
	case age < time.Hour:
		ageStr = fmt.Sprintf("%d minutes ago", int(age.Minutes()))
	case age < 24*time.Hour:
		ageStr = fmt.Sprintf("%d hours ago", int(age.Hours()))
	default:
		ageStr = fmt.Sprintf("%d days ago", int(age.Hours()/24))
	}

	if freshness.IsFresh {
		return fmt.Sprintf("Updated %s", ageStr)
	}
	return fmt.Sprintf("Stale data - updated %s", ageStr)
}

// FormatSyncStatus returns a human-readable sync status string.
func FormatSyncStatus(status *SyncStatus) string {
	if status.LastSync.IsZero() {
		return fmt.Sprintf("%s: never synced", status.DataType)
	}

	timeStr := status.LastSync.Format("2006-01-02 15:04")
	if status.IsStale {
		return fmt.Sprintf("%s: stale (last sync: %s, %dh ago)", status.DataType, timeStr, status.AgeHours)
	}
	return fmt.Sprintf("%s: fresh (last sync: %s)", status.DataType, timeStr)
}
