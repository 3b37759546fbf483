package slist

import (
	"path/filepath"
	"testing"
	"time"
)

func newManager(t *testing.T) *Manager {
	t.Helper()
	dir := t.TempDir()
	mgr, err := NewManager(filepath.Join(dir, "slist.db"))
	if err != nil {
		t.Fatalf("mgr: %v", err)
	}
	t.Cleanup(func() { mgr.Close() })
	return mgr
}

// addRow appends a row with the given first column and selection state.
func addRow(t *testing.T, mgr *Manager, name string, checked bool) *Item {
	t.Helper()
	row, err := mgr.AddRow(TabMain)
	if err != nil {
		t.Fatalf("add row: %v", err)
	}
	if err := mgr.SetColumn(TabMain, row.ID, 0, name); err != nil {
		t.Fatalf("set column: %v", err)
	}
	if checked {
		if err := mgr.SetChecked(TabMain, row.ID, true); err != nil {
			t.Fatalf("check: %v", err)
		}
	}
	return row
}

func TestFirstRunSeedsDefaultTabs(t *testing.T) {
	mgr := newManager(t)

	tabs := mgr.Tabs()
	if len(tabs) != 4 {
		t.Fatalf("want 4 default tabs, got %d", len(tabs))
	}
	for i, id := range []string{TabMain, TabIssued, TabNotes, TabArchive} {
		if tabs[i].ID != id {
			t.Fatalf("tab %d: want id %s got %s", i, id, tabs[i].ID)
		}
	}
	if mgr.MainTab() == nil || mgr.IssuedTab() == nil || mgr.NotesTab() == nil || mgr.ArchiveTab() == nil {
		t.Fatalf("fixed tab lookup failed")
	}
}

func TestIssueReturnRoundTrip(t *testing.T) {
	mgr := newManager(t)
	mgr.now = func() time.Time { return time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC) }
	today := "29.08.2026"

	rowA := addRow(t, mgr, "A", true)
	rowB := addRow(t, mgr, "B", false)
	rowC := addRow(t, mgr, "C", true)

	entry, err := mgr.Issue("Alice")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	// Main rows A and C stamped in place and unchecked.
	for _, row := range []*Item{rowA, rowC} {
		if !row.Issued || row.IssuedTo != "Alice" || row.IssuedDate != today || row.Checked {
			t.Fatalf("main row %s not stamped: %+v", row.Columns[0], row)
		}
	}
	if rowB.Issued {
		t.Fatalf("unchecked row was issued")
	}

	// Issued tab gains copies with fresh ids and the original row numbers.
	issued := mgr.IssuedTab().Rows()
	if len(issued) != 2 {
		t.Fatalf("want 2 issued rows, got %d", len(issued))
	}
	if issued[0].OriginalRowNumber != 1 || issued[1].OriginalRowNumber != 3 {
		t.Fatalf("original row numbers %d, %d; want 1, 3",
			issued[0].OriginalRowNumber, issued[1].OriginalRowNumber)
	}
	if issued[0].ID == rowA.ID || issued[1].ID == rowC.ID {
		t.Fatalf("issued copies reuse main row ids")
	}

	// One archive entry summarizing the operation.
	archive := mgr.ArchiveTab().Archive
	if len(archive) != 1 || archive[0] != entry {
		t.Fatalf("want exactly the returned archive entry, got %d", len(archive))
	}
	if entry.Items != "№ 1, 3" || entry.IssuedTo != "Alice" || entry.IssuedDate != today || entry.ReturnedDate != "" {
		t.Fatalf("archive entry wrong: %+v", entry)
	}

	// Check both issued rows and return them.
	for _, row := range issued {
		if err := mgr.SetChecked(TabIssued, row.ID, true); err != nil {
			t.Fatalf("check issued: %v", err)
		}
	}
	count, err := mgr.Return()
	if err != nil {
		t.Fatalf("return: %v", err)
	}
	if count != 2 {
		t.Fatalf("want 2 returned, got %d", count)
	}

	if len(mgr.IssuedTab().Rows()) != 0 {
		t.Fatalf("issued view should be empty after return")
	}
	for _, row := range []*Item{rowA, rowC} {
		if row.Issued || row.IssuedTo != "" || row.IssuedDate != "" || row.ReturnedDate != today || row.Checked {
			t.Fatalf("main row %s not restored: %+v", row.Columns[0], row)
		}
	}
	if entry.ReturnedDate != today {
		t.Fatalf("archive entry not stamped: %+v", entry)
	}
}

func TestIssueRowNumbersIgnoreSeparators(t *testing.T) {
	mgr := newManager(t)

	if _, err := mgr.AddSeparator(TabMain, "Section one"); err != nil {
		t.Fatalf("add separator: %v", err)
	}
	addRow(t, mgr, "A", false)
	if _, err := mgr.AddSeparator(TabMain, "Section two"); err != nil {
		t.Fatalf("add separator: %v", err)
	}
	addRow(t, mgr, "B", true)

	entry, err := mgr.Issue("Bob")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	// B is the 4th item but the 2nd row.
	if entry.Items != "№ 2" {
		t.Fatalf("want '№ 2', got %q", entry.Items)
	}
}

func TestIssueNumbersSurviveReordering(t *testing.T) {
	mgr := newManager(t)

	addRow(t, mgr, "A", false)
	rowB := addRow(t, mgr, "B", true)
	addRow(t, mgr, "C", false)

	if _, err := mgr.Issue("Carol"); err != nil {
		t.Fatalf("issue: %v", err)
	}

	// Reorder the main tab after issuing; the correlation key must not care.
	if err := mgr.MoveItem(TabMain, 1, 0); err != nil {
		t.Fatalf("move: %v", err)
	}

	issued := mgr.IssuedTab().Rows()
	if err := mgr.SetChecked(TabIssued, issued[0].ID, true); err != nil {
		t.Fatalf("check: %v", err)
	}
	if _, err := mgr.Return(); err != nil {
		t.Fatalf("return: %v", err)
	}
	if rowB.Issued || rowB.ReturnedDate == "" {
		t.Fatalf("row B not restored after reorder: %+v", rowB)
	}
}

func TestIssueRequiresSelection(t *testing.T) {
	mgr := newManager(t)
	addRow(t, mgr, "A", false)

	if _, err := mgr.Issue("Nobody"); err == nil {
		t.Fatalf("issuing zero rows should fail")
	}
	if _, err := mgr.Return(); err == nil {
		t.Fatalf("returning zero rows should fail")
	}
}

// Two issuances to the same person on the same day share the archive key;
// returning either batch stamps every matching entry.
func TestReturnStampsAllMatchingArchiveEntries(t *testing.T) {
	mgr := newManager(t)
	mgr.now = func() time.Time { return time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC) }

	addRow(t, mgr, "A", true)
	if _, err := mgr.Issue("Alice"); err != nil {
		t.Fatalf("issue 1: %v", err)
	}
	addRow(t, mgr, "B", true)
	if _, err := mgr.Issue("Alice"); err != nil {
		t.Fatalf("issue 2: %v", err)
	}

	issued := mgr.IssuedTab().Rows()
	if err := mgr.SetChecked(TabIssued, issued[0].ID, true); err != nil {
		t.Fatalf("check: %v", err)
	}
	if _, err := mgr.Return(); err != nil {
		t.Fatalf("return: %v", err)
	}

	for _, entry := range mgr.ArchiveTab().Archive {
		if entry.ReturnedDate == "" {
			t.Fatalf("entry %s not stamped; the non-unique key stamps all matches", entry.Items)
		}
	}
}

func TestClearArchive(t *testing.T) {
	mgr := newManager(t)
	addRow(t, mgr, "A", true)
	if _, err := mgr.Issue("Alice"); err != nil {
		t.Fatalf("issue: %v", err)
	}
	if len(mgr.ArchiveTab().Archive) != 1 {
		t.Fatalf("expected one archive entry")
	}

	if err := mgr.ClearArchive(); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if len(mgr.ArchiveTab().Archive) != 0 {
		t.Fatalf("archive should be empty")
	}
}

func TestDeleteChecked(t *testing.T) {
	mgr := newManager(t)
	addRow(t, mgr, "A", true)
	keep := addRow(t, mgr, "B", false)
	addRow(t, mgr, "C", true)

	removed, err := mgr.DeleteChecked(TabMain)
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if removed != 2 {
		t.Fatalf("want 2 removed, got %d", removed)
	}
	rows := mgr.MainTab().Rows()
	if len(rows) != 1 || rows[0].ID != keep.ID {
		t.Fatalf("wrong survivor: %+v", rows)
	}
}

func TestMoveItem(t *testing.T) {
	mgr := newManager(t)
	a := addRow(t, mgr, "A", false)
	b := addRow(t, mgr, "B", false)
	c := addRow(t, mgr, "C", false)

	if err := mgr.MoveItem(TabMain, 2, 0); err != nil {
		t.Fatalf("move: %v", err)
	}
	items := mgr.MainTab().Items
	if items[0].ID != c.ID || items[1].ID != a.ID || items[2].ID != b.ID {
		t.Fatalf("splice order wrong")
	}

	if err := mgr.MoveItem(TabMain, 0, 5); err == nil {
		t.Fatalf("out-of-range move should fail")
	}
}

// Every mutation writes through; a second manager on the same file sees it.
func TestWriteThroughPersistence(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "slist.db")

	mgr, err := NewManager(path)
	if err != nil {
		t.Fatalf("mgr: %v", err)
	}
	row, err := mgr.AddRow(TabMain)
	if err != nil {
		t.Fatalf("add row: %v", err)
	}
	if err := mgr.SetColumn(TabMain, row.ID, 0, "persisted"); err != nil {
		t.Fatalf("set column: %v", err)
	}
	if err := mgr.SetNotes(TabNotes, "remember this"); err != nil {
		t.Fatalf("notes: %v", err)
	}
	if err := mgr.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	reopened, err := NewManager(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()
	rows := reopened.MainTab().Rows()
	if len(rows) != 1 || rows[0].Columns[0] != "persisted" {
		t.Fatalf("row did not persist: %+v", rows)
	}
	if reopened.NotesTab().Notes != "remember this" {
		t.Fatalf("notes did not persist")
	}
}

func TestManagerCredentialSurface(t *testing.T) {
	mgr := newManager(t)

	if mgr.HasPassword() || mgr.Unlocked() {
		t.Fatalf("fresh manager should be locked with no credential")
	}
	if mgr.Unlock("anything") {
		t.Fatalf("unlock should fail with no credential")
	}

	if err := mgr.SetPassword("hunter2"); err != nil {
		t.Fatalf("set: %v", err)
	}
	if !mgr.Unlocked() {
		t.Fatalf("SetPassword should derive the session key")
	}
	if !mgr.Unlock("hunter2") || mgr.Unlock("wrong") {
		t.Fatalf("unlock verification wrong")
	}

	if err := mgr.ChangePassword("wrong", "next-pass"); err == nil {
		t.Fatalf("change with wrong current password should fail")
	}
	if err := mgr.ChangePassword("hunter2", "next-pass"); err != nil {
		t.Fatalf("change: %v", err)
	}
	if mgr.Unlock("hunter2") || !mgr.Unlock("next-pass") {
		t.Fatalf("credential not replaced")
	}
}

func TestFormatRowNumbers(t *testing.T) {
	cases := []struct {
		in   []int
		want string
	}{
		{[]int{1}, "№ 1"},
		{[]int{1, 3}, "№ 1, 3"},
		{[]int{3, 7, 8, 9}, "№ 3, 7-9"},
		{[]int{1, 2, 4, 6, 7}, "№ 1-2, 4, 6-7"},
	}
	for _, c := range cases {
		if got := FormatRowNumbers(c.in); got != c.want {
			t.Fatalf("FormatRowNumbers(%v) = %q, want %q", c.in, got, c.want)
		}
	}
}
