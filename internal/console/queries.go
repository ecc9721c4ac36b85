package console

import (
	"fmt"
	"math"
	"sort"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/olekukonko/tablewriter"
	"github.com/xtxerr/telemetryd/internal/errors"
	"github.com/xtxerr/telemetryd/internal/store"
)

func (c *Console) newTable(header ...string) *tablewriter.Table {
	table := tablewriter.NewWriter(c.out)
	table.SetHeader(header)
	table.SetAutoFormatHeaders(false)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetBorder(false)
	table.SetColumnSeparator("")
	table.SetHeaderLine(false)
	table.SetTablePadding("  ")
	table.SetNoWhiteSpace(true)
	return table
}

func (c *Console) list() {
	records := c.cfg.Reader.ReadAll()
	if len(records) == 0 {
		c.dimColor.Fprintln(c.out, "no peers have reported yet")
		return
	}

	table := c.newTable("ADDRESS", "FREE DISK", "CPUS", "FREE MEMORY")
	for _, addr := range sortedKeys(records) {
		rec := records[addr]
		table.Append([]string{
			addr,
			store.FormatGigabytes(rec.FreeDiskGB),
			store.FormatCount(rec.CPUCount),
			store.FormatGigabytes(rec.FreeMemoryGB),
		})
	}
	table.Render()
	c.dimColor.Fprintf(c.out, "%s peer(s)\n", humanize.Comma(int64(len(records))))
}

func (c *Console) show(addr string) {
	rec, ok := c.cfg.Reader.ReadOne(addr)
	if !ok {
		if _, valid := store.NormalizeAddress(addr); !valid {
			c.errorf("%q is not an IP address", addr)
			return
		}
		c.queryFailed(errors.NewNotFound("peer", addr))
		return
	}

	table := c.newTable("METRIC", "VALUE")
	table.Append([]string{"free disk", store.FormatGigabytes(rec.FreeDiskGB)})
	table.Append([]string{"cpus", store.FormatCount(rec.CPUCount)})
	table.Append([]string{"free memory", store.FormatGigabytes(rec.FreeMemoryGB)})
	table.Render()
}

func (c *Console) average() {
	sum, err := c.cfg.Reader.Average()
	if err != nil {
		c.queryFailed(err)
		return
	}

	table := c.newTable("METRIC", "AVERAGE", "PEERS")
	table.Append(averageRow("free disk", sum.FreeDiskGB, formatGB))
	table.Append(averageRow("cpus", sum.CPUCount, formatPlain))
	table.Append(averageRow("free memory", sum.FreeMemoryGB, formatGB))
	table.Render()
}

func (c *Console) summary() {
	sum, err := c.cfg.Reader.Summary()
	if err != nil {
		c.queryFailed(err)
		return
	}

	table := c.newTable("METRIC", "PEERS", "MEAN", "MIN", "P50", "P90", "MAX")
	table.Append(summaryRow("free disk", sum.FreeDiskGB, formatGB))
	table.Append(summaryRow("cpus", sum.CPUCount, formatPlain))
	table.Append(summaryRow("free memory", sum.FreeMemoryGB, formatGB))
	table.Render()
	c.dimColor.Fprintf(c.out, "%d peer(s); percentiles are approximate\n", sum.Peers)
}

func (c *Console) status() {
	fmt.Fprintf(c.out, "peers:     %s\n", humanize.Comma(int64(len(c.cfg.Reader.Addresses()))))
	fmt.Fprintf(c.out, "up since:  %s\n", humanize.Time(c.started))

	if c.cfg.Stats == nil {
		return
	}
	st := c.cfg.Stats()
	fmt.Fprintf(c.out, "accepted:  %s\n", humanize.Comma(int64(st.Accepted)))
	fmt.Fprintf(c.out, "stored:    %s\n", humanize.Comma(int64(st.Stored)))
	fmt.Fprintf(c.out, "malformed: %s\n", humanize.Comma(int64(st.Malformed)))
	fmt.Fprintf(c.out, "blocked:   %s\n", humanize.Comma(int64(st.Blocked)))
	fmt.Fprintf(c.out, "timed out: %s\n", humanize.Comma(int64(st.TimedOut)))
	if st.PersistErrors > 0 {
		c.errColor.Fprintf(c.out, "persist errors: %s\n", humanize.Comma(int64(st.PersistErrors)))
	}
}

func (c *Console) queryFailed(err error) {
	switch {
	case errors.IsNoData(err):
		c.dimColor.Fprintln(c.out, "no data")
		return
	case errors.IsNotFound(err):
		c.dimColor.Fprintf(c.out, "no data: %v\n", err)
		return
	}
	c.errorf("%v", err)
}

// =============================================================================
// Formatting
// =============================================================================

func formatGB(v float64) string {
	return store.FormatGigabytes(store.Gigabytes(round2(v)))
}

func formatPlain(v float64) string {
	return strconv.FormatFloat(round2(v), 'f', -1, 64)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func sortedKeys(records map[string]store.Record) []string {
	keys := make([]string, 0, len(records))
	for k := range records {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func averageRow(name string, s store.Stat, format func(float64) string) []string {
	if !s.OK() {
		return []string{name, "no data", "0"}
	}
	return []string{name, format(s.Mean), strconv.Itoa(s.Count)}
}

func summaryRow(name string, s store.Stat, format func(float64) string) []string {
	if !s.OK() {
		return []string{name, "0", "no data", "-", "-", "-", "-"}
	}
	return []string{
		name,
		strconv.Itoa(s.Count),
		format(s.Mean),
		format(s.Min),
		format(s.P50),
		format(s.P90),
		format(s.Max),
	}
}
