package models

// RawSnapshot is one upstream query's decoded JSON array. Field names and
// value types are whatever the provider sent; nothing is assumed present.
type RawSnapshot []map[string]any

// First returns the first record of the snapshot, or an empty record.
func (s RawSnapshot) First() map[string]any {
	if len(s) == 0 {
		return map[string]any{}
	}
	if s[0] == nil {
		return map[string]any{}
	}
	return s[0]
}

// Empty reports whether the provider returned no records at all.
func (s RawSnapshot) Empty() bool {
	return len(s) == 0
}

// Snapshots bundles everything fetched for a single ticker lookup.
// Growth and Peers are best-effort; the other five are required.
type Snapshots struct {
	Symbol  string        `json:"symbol"`
	Profile RawSnapshot   `json:"profile"`
	Metrics RawSnapshot   `json:"metrics"`
	Ratios  RawSnapshot   `json:"ratios"`
	Quote   RawSnapshot   `json:"quote"`
	Income  RawSnapshot   `json:"income"`
	Growth  RawSnapshot   `json:"growth,omitempty"`
	Peers   RawSnapshot   `json:"peers,omitempty"`
}
