package types

// Table is an ordered, uniform-shaped display table ready for a renderer or
// the excel exporter. Values are pre-formatted; analyzers keep the numeric
// originals internally and never re-parse these strings.
type Table struct {
	Columns []string   `json:"columns"`
	Rows    [][]string `json:"rows"`
}

func (t Table) Empty() bool { return len(t.Rows) == 0 }

// Head returns the table truncated to at most n rows.
func (t Table) Head(n int) Table {
	if n <= 0 || n >= len(t.Rows) {
		return t
	}
	return Table{Columns: t.Columns, Rows: t.Rows[:n]}
}

// SummaryItem is one labeled metric of a result summary; the slice keeps the
// display order stable.
type SummaryItem struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

// ResultBundle is the full output of one analyzer call: per-agent and
// per-store tables, a store→agent drill-down, ordered summary metrics and
// generated insight sentences. Each call produces an independent bundle.
type ResultBundle struct {
	ByAgent     Table            `json:"by_tcrew"`
	ByStore     Table            `json:"by_store"`
	StoreOrder  []string         `json:"store_order"`
	StoreDetail map[string]Table `json:"store_tcrew_detail"`
	Summary     []SummaryItem    `json:"summary"`
	Insights    []string         `json:"insights"`
}
