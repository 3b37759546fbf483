package slist

import "github.com/google/uuid"

// Fixed tab identities created on first run. Tabs are never destroyed,
// only cleared, so these ids stay valid for the life of a database.
const (
	TabMain    = "1"
	TabIssued  = "2"
	TabNotes   = "3"
	TabArchive = "4"
)

// ColumnCount is the fixed arity of every row's columns slice.
const ColumnCount = 5

// ItemKind discriminates data rows from section separators.
type ItemKind string

const (
	KindRow       ItemKind = "item"
	KindSeparator ItemKind = "separator"
)

// Align controls separator label placement.
type Align string

const (
	AlignLeft   Align = "left"
	AlignCenter Align = "center"
	AlignRight  Align = "right"
)

// ColumnStyle holds per-column text style overrides for a row.
type ColumnStyle struct {
	Bold     bool   `json:"bold,omitempty"`
	Italic   bool   `json:"italic,omitempty"`
	Strike   bool   `json:"strike,omitempty"`
	FontSize int    `json:"fontSize,omitempty"`
	Color    string `json:"color,omitempty"`
}

// Item is either a data row or a separator, discriminated by Kind.
// Rows always carry exactly ColumnCount column values; separators carry a
// label, a background color and an alignment instead.
type Item struct {
	ID      string        `json:"id"`
	Kind    ItemKind      `json:"type"`
	Columns []string      `json:"columns"`
	Styles  []ColumnStyle `json:"styles,omitempty"`
	Checked bool          `json:"checked"`

	// Issuance state. OriginalRowNumber is the 1-based position among the
	// main tab's rows (separators excluded) at the moment of issuance; it is
	// the correlation key that survives reordering on either side.
	Issued            bool   `json:"issued"`
	IssuedTo          string `json:"issuedTo,omitempty"`
	IssuedDate        string `json:"issuedDate,omitempty"`
	ReturnedDate      string `json:"returnedDate,omitempty"`
	OriginalRowNumber int    `json:"originalRowNumber,omitempty"`

	// Separator-only fields.
	Label     string `json:"separatorText,omitempty"`
	Color     string `json:"separatorColor,omitempty"`
	Align     Align  `json:"separatorAlign,omitempty"`
	Collapsed bool   `json:"collapsed,omitempty"`
}

// ArchiveEntry records one issuance event. It is created once per issue
// operation and mutated only to stamp a return date.
type ArchiveEntry struct {
	ID           string `json:"id"`
	Items        string `json:"items"` // e.g. "№ 3, 7-9"
	IssuedTo     string `json:"issuedTo"`
	IssuedDate   string `json:"issuedDate"`
	ReturnedDate string `json:"returnedDate,omitempty"`
}

// Tab is one named view: an ordered item list plus free-text notes, the
// issuance ledger and per-view column widths.
type Tab struct {
	ID           string          `json:"id"`
	Title        string          `json:"title"`
	Items        []*Item         `json:"items"`
	Notes        string          `json:"notes,omitempty"`
	Archive      []*ArchiveEntry `json:"archive"`
	ColumnWidths []int           `json:"columnWidths,omitempty"`
}

// Rows returns the tab's data rows in order, separators excluded.
func (t *Tab) Rows() []*Item {
	var rows []*Item
	for _, it := range t.Items {
		if it.Kind == KindRow {
			rows = append(rows, it)
		}
	}
	return rows
}

// CheckedRows returns the tab's checked data rows in order.
func (t *Tab) CheckedRows() []*Item {
	var rows []*Item
	for _, it := range t.Items {
		if it.Kind == KindRow && it.Checked {
			rows = append(rows, it)
		}
	}
	return rows
}

func (t *Tab) findItem(itemID string) *Item {
	for _, it := range t.Items {
		if it.ID == itemID {
			return it
		}
	}
	return nil
}

// NewRow builds an empty data row with the fixed column arity.
func NewRow() *Item {
	return &Item{
		ID:      uuid.NewString(),
		Kind:    KindRow,
		Columns: make([]string, ColumnCount),
		Styles:  make([]ColumnStyle, ColumnCount),
	}
}

// NewSeparator builds a separator with the default styling.
func NewSeparator(label string) *Item {
	return &Item{
		ID:    uuid.NewString(),
		Kind:  KindSeparator,
		Label: label,
		Color: "#e5e7eb",
		Align: AlignLeft,
	}
}

// DefaultTabs returns the four fixed views seeded on first run.
func DefaultTabs() []*Tab {
	widths := func() []int {
		w := make([]int, ColumnCount)
		for i := range w {
			w[i] = 20
		}
		return w
	}
	return []*Tab{
		{ID: TabMain, Title: "Main List", Items: []*Item{}, Archive: []*ArchiveEntry{}, ColumnWidths: widths()},
		{ID: TabIssued, Title: "Issued", Items: []*Item{}, Archive: []*ArchiveEntry{}, ColumnWidths: widths()},
		{ID: TabNotes, Title: "Notes", Items: []*Item{}, Archive: []*ArchiveEntry{}},
		{ID: TabArchive, Title: "Archive", Items: []*Item{}, Archive: []*ArchiveEntry{}},
	}
}
