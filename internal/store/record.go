package store

import (
	"bytes"
	"encoding/json"
	"strconv"

	"github.com/xtxerr/telemetryd/internal/constants"
)

// Record is the latest metrics reported by one peer. A new report for the
// same address replaces the whole record.
type Record struct {
	FreeDiskGB   Metric
	CPUCount     Metric
	FreeMemoryGB Metric
}

// mirrorRecord is the on-disk shape of a Record. Field names and order
// are fixed by the mirror file format.
type mirrorRecord struct {
	FreeDisk   string `json:"espaco_livre_hd"`
	CPUCount   string `json:"qtd_processadores"`
	FreeMemory string `json:"espaco_memoria"`
}

// MarshalJSON writes the record in the mirror file format.
func (r Record) MarshalJSON() ([]byte, error) {
	return json.Marshal(mirrorRecord{
		FreeDisk:   FormatGigabytes(r.FreeDiskGB),
		CPUCount:   FormatCount(r.CPUCount),
		FreeMemory: FormatGigabytes(r.FreeMemoryGB),
	})
}

// UnmarshalJSON reads the mirror file format. Values may be strings or
// numbers; missing or unparseable values load as Unknown, and a null
// record loads with every metric Unknown.
func (r *Record) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	*r = Record{
		FreeDiskGB:   loadMetric(raw[constants.MirrorKeyFreeDisk], ParseGigabytes),
		CPUCount:     loadMetric(raw[constants.MirrorKeyCPUCount], ParseCount),
		FreeMemoryGB: loadMetric(raw[constants.MirrorKeyFreeMemory], ParseGigabytes),
	}
	return nil
}

func loadMetric(raw json.RawMessage, parse func(string) (Metric, error)) Metric {
	s, ok := ScalarString(raw)
	if !ok {
		return Unknown
	}
	m, err := parse(s)
	if err != nil {
		return Unknown
	}
	return m
}

// ScalarString returns the text of a JSON string or number. Anything else,
// including null and a missing value, reports false.
func ScalarString(raw json.RawMessage) (string, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return "", false
	}
	switch raw[0] {
	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return "", false
		}
		return s, true
	case '-', '0', '1', '2', '3', '4', '5', '6', '7', '8', '9':
		var n json.Number
		if err := json.Unmarshal(raw, &n); err != nil {
			return "", false
		}
		if _, err := strconv.ParseFloat(n.String(), 64); err != nil {
			return "", false
		}
		return n.String(), true
	default:
		return "", false
	}
}
