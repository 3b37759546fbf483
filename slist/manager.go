package slist

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// DateFormat is the day.month.year layout used for all issue/return stamps.
const DateFormat = "02.01.2006"

// Manager owns the in-memory tab collection (the single source of truth for
// a session) and writes it through to the Database after every mutation.
type Manager struct {
	db   *Database
	tabs []*Tab

	// Session encryption key, derived on Unlock/SetPassword. Never persisted.
	key []byte

	now func() time.Time
}

// NewManager opens (or creates) the database at dbPath and loads the tab
// collection, seeding the four default views on first run.
func NewManager(dbPath string) (*Manager, error) {
	db, err := NewDatabase(dbPath)
	if err != nil {
		return nil, err
	}
	m := &Manager{db: db, now: time.Now}
	if err := m.load(); err != nil {
		db.Close()
		return nil, err
	}
	return m, nil
}

// Close closes the underlying database.
func (m *Manager) Close() error { return m.db.Close() }

func (m *Manager) load() error {
	tabs, err := m.db.GetTabs()
	if err != nil {
		// A broken read degrades to first-run behavior; write failures below
		// still surface.
		tabs = nil
	}
	if len(tabs) == 0 {
		m.tabs = DefaultTabs()
		return m.save()
	}
	m.tabs = tabs
	return nil
}

// save persists the current snapshot. Overlapping saves are self-correcting
// because every call rewrites the entire collection.
func (m *Manager) save() error { return m.db.SaveTabs(m.tabs) }

func (m *Manager) today() string { return m.now().Format(DateFormat) }

// ------------------ Tab access ------------------

// Tabs returns the live tab collection in order.
func (m *Manager) Tabs() []*Tab { return m.tabs }

// Tab returns the tab with the given id, or nil.
func (m *Manager) Tab(id string) *Tab {
	for _, t := range m.tabs {
		if t.ID == id {
			return t
		}
	}
	return nil
}

func (m *Manager) MainTab() *Tab    { return m.Tab(TabMain) }
func (m *Manager) IssuedTab() *Tab  { return m.Tab(TabIssued) }
func (m *Manager) NotesTab() *Tab   { return m.Tab(TabNotes) }
func (m *Manager) ArchiveTab() *Tab { return m.Tab(TabArchive) }

// ------------------ Item editing ------------------

// AddRow appends an empty row to the tab and persists.
func (m *Manager) AddRow(tabID string) (*Item, error) {
	tab := m.Tab(tabID)
	if tab == nil {
		return nil, fmt.Errorf("no such tab %q", tabID)
	}
	row := NewRow()
	tab.Items = append(tab.Items, row)
	return row, m.save()
}

// AddSeparator appends a separator to the tab and persists.
func (m *Manager) AddSeparator(tabID, label string) (*Item, error) {
	tab := m.Tab(tabID)
	if tab == nil {
		return nil, fmt.Errorf("no such tab %q", tabID)
	}
	sep := NewSeparator(label)
	tab.Items = append(tab.Items, sep)
	return sep, m.save()
}

// SetColumn updates one column value of a row.
func (m *Manager) SetColumn(tabID, itemID string, col int, text string) error {
	it, err := m.row(tabID, itemID)
	if err != nil {
		return err
	}
	if col < 0 || col >= len(it.Columns) {
		return fmt.Errorf("column %d out of range", col)
	}
	it.Columns[col] = text
	return m.save()
}

// SetColumnStyle updates one column's style overrides of a row.
func (m *Manager) SetColumnStyle(tabID, itemID string, col int, style ColumnStyle) error {
	it, err := m.row(tabID, itemID)
	if err != nil {
		return err
	}
	if col < 0 || col >= len(it.Styles) {
		return fmt.Errorf("column %d out of range", col)
	}
	it.Styles[col] = style
	return m.save()
}

// SetChecked sets a row's selection flag.
func (m *Manager) SetChecked(tabID, itemID string, checked bool) error {
	it, err := m.row(tabID, itemID)
	if err != nil {
		return err
	}
	it.Checked = checked
	return m.save()
}

// SetCollapsed folds or unfolds the rows beneath a separator.
func (m *Manager) SetCollapsed(tabID, itemID string, collapsed bool) error {
	tab := m.Tab(tabID)
	if tab == nil {
		return fmt.Errorf("no such tab %q", tabID)
	}
	it := tab.findItem(itemID)
	if it == nil || it.Kind != KindSeparator {
		return fmt.Errorf("no such separator %q", itemID)
	}
	it.Collapsed = collapsed
	return m.save()
}

// UpdateSeparator replaces a separator's label, color and alignment.
func (m *Manager) UpdateSeparator(tabID, itemID, label, color string, align Align) error {
	tab := m.Tab(tabID)
	if tab == nil {
		return fmt.Errorf("no such tab %q", tabID)
	}
	it := tab.findItem(itemID)
	if it == nil || it.Kind != KindSeparator {
		return fmt.Errorf("no such separator %q", itemID)
	}
	it.Label, it.Color, it.Align = label, color, align
	return m.save()
}

// SetNotes replaces a tab's free-text notes.
func (m *Manager) SetNotes(tabID, notes string) error {
	tab := m.Tab(tabID)
	if tab == nil {
		return fmt.Errorf("no such tab %q", tabID)
	}
	tab.Notes = notes
	return m.save()
}

// SetColumnWidths replaces a tab's default column widths.
func (m *Manager) SetColumnWidths(tabID string, widths []int) error {
	tab := m.Tab(tabID)
	if tab == nil {
		return fmt.Errorf("no such tab %q", tabID)
	}
	tab.ColumnWidths = widths
	return m.save()
}

// DeleteChecked removes every checked item from the tab. Pure list splice,
// no cross-tab effects. Returns the number of removed items.
func (m *Manager) DeleteChecked(tabID string) (int, error) {
	tab := m.Tab(tabID)
	if tab == nil {
		return 0, fmt.Errorf("no such tab %q", tabID)
	}
	kept := tab.Items[:0]
	removed := 0
	for _, it := range tab.Items {
		if it.Checked {
			removed++
			continue
		}
		kept = append(kept, it)
	}
	tab.Items = kept
	if removed == 0 {
		return 0, nil
	}
	return removed, m.save()
}

// MoveItem splices the item at fromIndex to toIndex within the tab.
func (m *Manager) MoveItem(tabID string, fromIndex, toIndex int) error {
	tab := m.Tab(tabID)
	if tab == nil {
		return fmt.Errorf("no such tab %q", tabID)
	}
	n := len(tab.Items)
	if fromIndex < 0 || fromIndex >= n || toIndex < 0 || toIndex >= n {
		return fmt.Errorf("index out of range")
	}
	if fromIndex == toIndex {
		return nil
	}
	moved := tab.Items[fromIndex]
	tab.Items = append(tab.Items[:fromIndex], tab.Items[fromIndex+1:]...)
	tab.Items = append(tab.Items[:toIndex], append([]*Item{moved}, tab.Items[toIndex:]...)...)
	return m.save()
}

func (m *Manager) row(tabID, itemID string) (*Item, error) {
	tab := m.Tab(tabID)
	if tab == nil {
		return nil, fmt.Errorf("no such tab %q", tabID)
	}
	it := tab.findItem(itemID)
	if it == nil || it.Kind != KindRow {
		return nil, fmt.Errorf("no such row %q", itemID)
	}
	return it, nil
}

// ------------------ Issue / return ------------------

// Issue moves the main tab's checked rows to the issued view as one logical
// transaction: the main rows are stamped issued and unchecked in place,
// copies carrying the original row numbers are appended to the issued tab,
// and a single archive entry summarizes the operation.
func (m *Manager) Issue(recipient string) (*ArchiveEntry, error) {
	main, issued, archive := m.MainTab(), m.IssuedTab(), m.ArchiveTab()
	if main == nil || issued == nil || archive == nil {
		return nil, fmt.Errorf("default tabs missing")
	}

	date := m.today()
	var numbers []int
	var copies []*Item

	// Row numbers are 1-based positions among rows only; separators never
	// count.
	rowNum := 0
	for _, it := range main.Items {
		if it.Kind != KindRow {
			continue
		}
		rowNum++
		if !it.Checked {
			continue
		}

		it.Issued = true
		it.IssuedTo = recipient
		it.IssuedDate = date
		it.ReturnedDate = ""
		it.Checked = false
		it.OriginalRowNumber = rowNum
		numbers = append(numbers, rowNum)

		dup := *it
		dup.ID = uuid.NewString()
		dup.Columns = append([]string(nil), it.Columns...)
		dup.Styles = append([]ColumnStyle(nil), it.Styles...)
		copies = append(copies, &dup)
	}

	if len(numbers) == 0 {
		return nil, fmt.Errorf("no rows selected")
	}

	issued.Items = append(issued.Items, copies...)

	entry := &ArchiveEntry{
		ID:         uuid.NewString(),
		Items:      FormatRowNumbers(numbers),
		IssuedTo:   recipient,
		IssuedDate: date,
	}
	archive.Archive = append(archive.Archive, entry)

	return entry, m.save()
}

// Return removes the issued tab's checked rows and restores the matching
// main rows, correlating by original row number. Every archive entry whose
// recipient and issue date match a returned row is stamped with the return
// date; duplicate (recipient, date) pairs all get stamped, the tuple is not
// unique. Returns the number of rows returned.
func (m *Manager) Return() (int, error) {
	main, issued, archive := m.MainTab(), m.IssuedTab(), m.ArchiveTab()
	if main == nil || issued == nil || archive == nil {
		return 0, fmt.Errorf("default tabs missing")
	}

	returned := issued.CheckedRows()
	if len(returned) == 0 {
		return 0, fmt.Errorf("no rows selected")
	}
	date := m.today()

	kept := issued.Items[:0]
	for _, it := range issued.Items {
		if it.Kind == KindRow && it.Checked {
			continue
		}
		kept = append(kept, it)
	}
	issued.Items = kept

	for _, ret := range returned {
		for _, it := range main.Items {
			if it.Kind != KindRow || !it.Issued || it.OriginalRowNumber != ret.OriginalRowNumber {
				continue
			}
			it.Issued = false
			it.ReturnedDate = date
			it.IssuedTo = ""
			it.IssuedDate = ""
			it.Checked = false
		}
		for _, entry := range archive.Archive {
			if entry.IssuedTo == ret.IssuedTo && entry.IssuedDate == ret.IssuedDate {
				entry.ReturnedDate = date
			}
		}
	}

	return len(returned), m.save()
}

// ClearArchive removes every archive entry. Irreversible; confirmation is
// the caller's concern.
func (m *Manager) ClearArchive() error {
	archive := m.ArchiveTab()
	if archive == nil {
		return fmt.Errorf("default tabs missing")
	}
	archive.Archive = []*ArchiveEntry{}
	return m.save()
}

// FormatRowNumbers renders issued row numbers for the archive ledger,
// compressing consecutive runs: [3 7 8 9] -> "№ 3, 7-9".
func FormatRowNumbers(nums []int) string {
	if len(nums) == 0 {
		return "№"
	}
	var parts []string
	start, prev := nums[0], nums[0]
	flush := func() {
		if start == prev {
			parts = append(parts, strconv.Itoa(start))
		} else {
			parts = append(parts, fmt.Sprintf("%d-%d", start, prev))
		}
	}
	for _, n := range nums[1:] {
		if n == prev+1 {
			prev = n
			continue
		}
		flush()
		start, prev = n, n
	}
	flush()
	return "№ " + strings.Join(parts, ", ")
}

// ------------------ Credential surface ------------------

// HasPassword reports whether the app has been set up with a password.
func (m *Manager) HasPassword() bool { return m.db.HasPassword() }

// SetPassword stores the password hash and derives the session key, since
// the cipher key is never persisted. Entry points enforce the length
// minimum; the store accepts any string.
func (m *Manager) SetPassword(password string) error {
	if err := m.db.SetPassword(password); err != nil {
		return err
	}
	m.key = DeriveKey(password)
	return nil
}

// Unlock verifies the password and, on success, derives the session key.
// Wrong passwords come back as false, never as an error.
func (m *Manager) Unlock(password string) bool {
	if !m.db.VerifyPassword(password) {
		return false
	}
	m.key = DeriveKey(password)
	return true
}

// ChangePassword atomically swaps the credential after verifying the old
// password. The session key is re-derived from the new password.
func (m *Manager) ChangePassword(oldPassword, newPassword string) error {
	if !m.db.VerifyPassword(oldPassword) {
		return fmt.Errorf("current password does not match")
	}
	return m.SetPassword(newPassword)
}

// Unlocked reports whether a session key is available for export/import.
func (m *Manager) Unlocked() bool { return m.key != nil }
