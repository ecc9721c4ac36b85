// Package wire implements the two on-the-wire formats of telemetryd:
// the JSON report an agent sends over TCP, and the discovery announcement
// broadcast over UDP.
//
// A connection carries exactly one report. Agents may close their side
// after writing or keep it open; the reader stops at end of stream, at the
// end of the first complete JSON value, or at the size limit, whichever
// comes first.
package wire

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"unicode/utf8"

	"github.com/xtxerr/telemetryd/config"
	"github.com/xtxerr/telemetryd/internal/constants"
	"github.com/xtxerr/telemetryd/internal/errors"
	"github.com/xtxerr/telemetryd/internal/store"
)

// =============================================================================
// Reading
// =============================================================================

// ReadReport reads one report payload of at most max bytes from r.
// max <= 0 uses config.DefaultMaxReportSize.
func ReadReport(r io.Reader, max int) ([]byte, error) {
	if max <= 0 {
		max = config.DefaultMaxReportSize
	}

	buf := make([]byte, 0, 512)
	chunk := make([]byte, 512)
	for {
		n, err := r.Read(chunk)
		if n > 0 {
			if len(buf)+n > max {
				return nil, fmt.Errorf("more than %d bytes: %w", max, errors.ErrReportTooLarge)
			}
			buf = append(buf, chunk[:n]...)
			if json.Valid(bytes.TrimSpace(buf)) {
				return buf, nil
			}
		}
		if err == io.EOF {
			return buf, nil
		}
		if err != nil {
			if len(buf) > 0 {
				return buf, fmt.Errorf("read after %d bytes: %w", len(buf), err)
			}
			return nil, fmt.Errorf("read report: %w", err)
		}
	}
}

// =============================================================================
// Reports
// =============================================================================

// Report is a decoded agent report.
type Report struct {
	Record store.Record

	// Rejected lists the fields that were present but could not be parsed.
	// They are stored as unknown.
	Rejected []string
}

// DecodeReport decodes a UTF-8 JSON object into a record. Missing fields
// become unknown; so do fields whose value cannot be parsed. Anything that
// is not a JSON object fails with errors.ErrMalformedReport.
func DecodeReport(data []byte) (*Report, error) {
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, errors.ErrEmptyReport
	}
	if !utf8.Valid(data) {
		return nil, errors.NewMalformed("payload is not valid UTF-8")
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, errors.NewMalformed(err.Error())
	}
	if fields == nil {
		return nil, errors.NewMalformed("payload is not a JSON object")
	}

	rep := &Report{}
	rep.Record.FreeDiskGB = rep.field(fields, constants.ReportKeyFreeDisk, store.ParseGigabytes)
	rep.Record.CPUCount = rep.field(fields, constants.ReportKeyCPUCount, store.ParseCount)
	rep.Record.FreeMemoryGB = rep.field(fields, constants.ReportKeyFreeMemory, store.ParseGigabytes)
	return rep, nil
}

func (rep *Report) field(fields map[string]json.RawMessage, key string, parse func(string) (store.Metric, error)) store.Metric {
	for _, alias := range constants.ReportAliases[key] {
		raw, ok := fields[alias]
		if !ok || string(bytes.TrimSpace(raw)) == "null" {
			continue
		}
		s, ok := store.ScalarString(raw)
		if !ok {
			rep.Rejected = append(rep.Rejected, alias)
			return store.Unknown
		}
		m, err := parse(s)
		if err != nil {
			rep.Rejected = append(rep.Rejected, alias)
			return store.Unknown
		}
		return m
	}
	return store.Unknown
}

// EncodeReport encodes a record the way agents send it.
func EncodeReport(rec store.Record) ([]byte, error) {
	return json.Marshal(struct {
		FreeDisk   string `json:"free_disk_space"`
		CPUCount   string `json:"processor_count"`
		FreeMemory string `json:"free_memory"`
	}{
		FreeDisk:   store.FormatGigabytes(rec.FreeDiskGB),
		CPUCount:   store.FormatCount(rec.CPUCount),
		FreeMemory: store.FormatGigabytes(rec.FreeMemoryGB),
	})
}
