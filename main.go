package main

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"syscall"

	"slist/slist"

	"github.com/fatih/color"
	"golang.org/x/term"
)

const defaultDBFile = "slist.db"

var (
	separatorColor = color.New(color.FgCyan, color.Bold)
	issuedColor    = color.New(color.Faint)
	checkedColor   = color.New(color.FgGreen)
)

// readPassword securely reads a password with masking
func readPassword(prompt string) (string, error) {
	fmt.Print(prompt)
	bytePassword, err := term.ReadPassword(int(syscall.Stdin))
	if err != nil {
		return "", err
	}
	fmt.Println() // Add newline after password input
	return strings.TrimSpace(string(bytePassword)), nil
}

func dbFile() string {
	if path := strings.TrimSpace(os.Getenv("SLIST_DB")); path != "" {
		return path
	}
	return defaultDBFile
}

func main() {
	manager, err := slist.NewManager(dbFile())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening database: %v\n", err)
		os.Exit(1)
	}
	defer manager.Close()

	if !unlock(manager) {
		os.Exit(1)
	}

	scanner := bufio.NewScanner(os.Stdin)
	activeTab := slist.TabMain

	fmt.Println("Welcome to S-List!")
	fmt.Println("Available commands:")
	fmt.Println("  Views: tabs, tab, list, archive, notes, edit notes")
	fmt.Println("  Items: add row, add separator, set, check, uncheck, move, delete selected")
	fmt.Println("  Circulation: issue, return, clear archive")
	fmt.Println("  Backup: export, import, export text")
	fmt.Println("  System: change password, exit")

	for {
		fmt.Print("\n> ")
		if !scanner.Scan() {
			break
		}
		cmd := strings.TrimSpace(scanner.Text())

		switch cmd {
		case "tabs":
			handleTabs(manager, activeTab)
		case "tab":
			activeTab = handleSwitchTab(scanner, manager, activeTab)
		case "list":
			handleList(manager, activeTab)
		case "archive":
			handleArchive(manager)
		case "notes":
			handleNotes(manager)
		case "edit notes":
			handleEditNotes(scanner, manager)
		case "add row":
			handleAddRow(scanner, manager, activeTab)
		case "add separator":
			handleAddSeparator(scanner, manager, activeTab)
		case "set":
			handleSetColumn(scanner, manager, activeTab)
		case "check":
			handleCheck(scanner, manager, activeTab, true)
		case "uncheck":
			handleCheck(scanner, manager, activeTab, false)
		case "move":
			handleMove(scanner, manager, activeTab)
		case "delete selected":
			handleDeleteSelected(scanner, manager, activeTab)
		case "issue":
			handleIssue(scanner, manager)
		case "return":
			handleReturn(manager)
		case "clear archive":
			handleClearArchive(scanner, manager)
		case "export":
			handleExport(scanner, manager)
		case "import":
			handleImport(scanner, manager)
		case "export text":
			handleExportText(scanner, manager, activeTab)
		case "change password":
			handleChangePassword(manager)
		case "exit":
			fmt.Println("Goodbye!")
			return
		default:
			fmt.Println("Unknown command. Type one of the available commands listed above.")
		}
	}
}

// unlock runs the password gate: first run sets a password, later runs
// verify it. The session key for export/import is derived here.
func unlock(mgr *slist.Manager) bool {
	if !mgr.HasPassword() {
		fmt.Println("First run: choose a password to protect your data.")
		for {
			password, err := readPassword("New password (min 4 characters): ")
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error reading password: %v\n", err)
				return false
			}
			if len(password) < 4 {
				fmt.Println("Password must be at least 4 characters.")
				continue
			}
			confirm, err := readPassword("Repeat password: ")
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error reading password: %v\n", err)
				return false
			}
			if password != confirm {
				fmt.Println("Passwords do not match, try again.")
				continue
			}
			if err := mgr.SetPassword(password); err != nil {
				fmt.Fprintf(os.Stderr, "Error storing password: %v\n", err)
				return false
			}
			return true
		}
	}

	for attempt := 0; attempt < 3; attempt++ {
		password, err := readPassword("Password: ")
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error reading password: %v\n", err)
			return false
		}
		if mgr.Unlock(password) {
			return true
		}
		fmt.Println("Wrong password.")
	}
	fmt.Println("Too many attempts.")
	return false
}

func handleTabs(mgr *slist.Manager, activeTab string) {
	for _, tab := range mgr.Tabs() {
		marker := " "
		if tab.ID == activeTab {
			marker = "*"
		}
		fmt.Printf("%s %-3s %-20s %d item(s)\n", marker, tab.ID, tab.Title, len(tab.Items))
	}
}

func handleSwitchTab(sc *bufio.Scanner, mgr *slist.Manager, activeTab string) string {
	fmt.Print("Tab ID: ")
	if !sc.Scan() {
		return activeTab
	}
	id := strings.TrimSpace(sc.Text())
	if mgr.Tab(id) == nil {
		fmt.Printf("No tab with ID %s\n", id)
		return activeTab
	}
	fmt.Printf("Switched to '%s'\n", mgr.Tab(id).Title)
	return id
}

func handleList(mgr *slist.Manager, activeTab string) {
	tab := mgr.Tab(activeTab)
	if tab == nil {
		fmt.Println("No active tab.")
		return
	}
	fmt.Printf("%s\n", tab.Title)
	fmt.Println(strings.Repeat("-", 90))
	if len(tab.Items) == 0 {
		fmt.Println("(empty)")
		return
	}

	rowNum := 0
	collapsed := false
	for i, it := range tab.Items {
		if it.Kind == slist.KindSeparator {
			collapsed = it.Collapsed
			fold := ""
			if it.Collapsed {
				fold = " [+]"
			}
			separatorColor.Printf("[%d] --- %s ---%s\n", i, it.Label, fold)
			continue
		}
		rowNum++
		if collapsed {
			continue
		}
		mark := " "
		if it.Checked {
			mark = checkedColor.Sprint("x")
		}
		line := fmt.Sprintf("[%d] (%s) %3d. %s", i, mark, rowNum, strings.Join(it.Columns, " | "))
		if it.Issued {
			line += fmt.Sprintf("  -> %s (%s)", it.IssuedTo, it.IssuedDate)
			issuedColor.Println(line)
			continue
		}
		if it.ReturnedDate != "" {
			line += fmt.Sprintf("  (returned %s)", it.ReturnedDate)
		}
		fmt.Println(line)
	}
}

func handleArchive(mgr *slist.Manager) {
	archive := mgr.ArchiveTab()
	if archive == nil || len(archive.Archive) == 0 {
		fmt.Println("Archive is empty.")
		return
	}
	fmt.Printf("%-20s %-20s %-12s %-12s\n", "Items", "Issued To", "Issued", "Returned")
	fmt.Println(strings.Repeat("-", 70))
	for _, entry := range archive.Archive {
		returned := entry.ReturnedDate
		if returned == "" {
			returned = "-"
		}
		fmt.Printf("%-20s %-20s %-12s %-12s\n", entry.Items, entry.IssuedTo, entry.IssuedDate, returned)
	}
}

func handleNotes(mgr *slist.Manager) {
	notes := mgr.NotesTab()
	if notes == nil || strings.TrimSpace(notes.Notes) == "" {
		fmt.Println("No notes yet. Use 'edit notes' to write some.")
		return
	}
	fmt.Println(notes.Notes)
}

func handleEditNotes(sc *bufio.Scanner, mgr *slist.Manager) {
	fmt.Println("Enter notes, finish with a single '.' on its own line:")
	var lines []string
	for sc.Scan() {
		line := sc.Text()
		if line == "." {
			break
		}
		lines = append(lines, line)
	}
	if err := mgr.SetNotes(slist.TabNotes, strings.Join(lines, "\n")); err != nil {
		fmt.Printf("Error saving notes: %v\n", err)
		return
	}
	fmt.Println("Notes saved.")
}

func handleAddRow(sc *bufio.Scanner, mgr *slist.Manager, activeTab string) {
	row, err := mgr.AddRow(activeTab)
	if err != nil {
		fmt.Printf("Error adding row: %v\n", err)
		return
	}
	for i := range row.Columns {
		fmt.Printf("Column %d: ", i+1)
		if !sc.Scan() {
			return
		}
		text := strings.TrimSpace(sc.Text())
		if text == "" {
			continue
		}
		if err := mgr.SetColumn(activeTab, row.ID, i, text); err != nil {
			fmt.Printf("Error: %v\n", err)
			return
		}
	}
	fmt.Println("Row added.")
}

func handleAddSeparator(sc *bufio.Scanner, mgr *slist.Manager, activeTab string) {
	fmt.Print("Label: ")
	if !sc.Scan() {
		return
	}
	label := strings.TrimSpace(sc.Text())
	if label == "" {
		label = "New separator"
	}
	if _, err := mgr.AddSeparator(activeTab, label); err != nil {
		fmt.Printf("Error adding separator: %v\n", err)
		return
	}
	fmt.Println("Separator added.")
}

func handleSetColumn(sc *bufio.Scanner, mgr *slist.Manager, activeTab string) {
	index, ok := readIndex(sc, mgr, activeTab)
	if !ok {
		return
	}
	tab := mgr.Tab(activeTab)
	item := tab.Items[index]
	if item.Kind != slist.KindRow {
		fmt.Println("That is a separator; only rows have columns.")
		return
	}

	fmt.Printf("Column number (1-%d): ", len(item.Columns))
	if !sc.Scan() {
		return
	}
	col, err := strconv.Atoi(strings.TrimSpace(sc.Text()))
	if err != nil || col < 1 || col > len(item.Columns) {
		fmt.Println("Invalid column number.")
		return
	}

	fmt.Print("Value: ")
	if !sc.Scan() {
		return
	}
	if err := mgr.SetColumn(activeTab, item.ID, col-1, strings.TrimSpace(sc.Text())); err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	fmt.Println("Updated.")
}

func handleCheck(sc *bufio.Scanner, mgr *slist.Manager, activeTab string, checked bool) {
	index, ok := readIndex(sc, mgr, activeTab)
	if !ok {
		return
	}
	tab := mgr.Tab(activeTab)
	item := tab.Items[index]
	if item.Kind == slist.KindSeparator {
		// Checking a separator toggles its fold instead.
		if err := mgr.SetCollapsed(activeTab, item.ID, checked); err != nil {
			fmt.Printf("Error: %v\n", err)
		}
		return
	}
	if err := mgr.SetChecked(activeTab, item.ID, checked); err != nil {
		fmt.Printf("Error: %v\n", err)
	}
}

func handleMove(sc *bufio.Scanner, mgr *slist.Manager, activeTab string) {
	fmt.Print("From index: ")
	if !sc.Scan() {
		return
	}
	from, err := strconv.Atoi(strings.TrimSpace(sc.Text()))
	if err != nil {
		fmt.Println("Invalid index.")
		return
	}
	fmt.Print("To index: ")
	if !sc.Scan() {
		return
	}
	to, err := strconv.Atoi(strings.TrimSpace(sc.Text()))
	if err != nil {
		fmt.Println("Invalid index.")
		return
	}
	if err := mgr.MoveItem(activeTab, from, to); err != nil {
		fmt.Printf("Error moving item: %v\n", err)
		return
	}
	fmt.Println("Moved.")
}

func handleDeleteSelected(sc *bufio.Scanner, mgr *slist.Manager, activeTab string) {
	fmt.Print("Delete all checked items? (yes/no): ")
	if !sc.Scan() || strings.TrimSpace(sc.Text()) != "yes" {
		fmt.Println("Cancelled.")
		return
	}
	removed, err := mgr.DeleteChecked(activeTab)
	if err != nil {
		fmt.Printf("Error deleting: %v\n", err)
		return
	}
	fmt.Printf("Deleted %d item(s).\n", removed)
}

func handleIssue(sc *bufio.Scanner, mgr *slist.Manager) {
	main := mgr.MainTab()
	if main == nil || len(main.CheckedRows()) == 0 {
		fmt.Println("Check at least one row in the main list first.")
		return
	}
	fmt.Print("Issued to: ")
	if !sc.Scan() {
		return
	}
	recipient := strings.TrimSpace(sc.Text())
	if recipient == "" {
		fmt.Println("Recipient cannot be empty.")
		return
	}
	entry, err := mgr.Issue(recipient)
	if err != nil {
		fmt.Printf("Error issuing: %v\n", err)
		return
	}
	fmt.Printf("Issued %s to %s on %s.\n", entry.Items, entry.IssuedTo, entry.IssuedDate)
}

func handleReturn(mgr *slist.Manager) {
	issued := mgr.IssuedTab()
	if issued == nil || len(issued.CheckedRows()) == 0 {
		fmt.Println("Check at least one row in the issued view first.")
		return
	}
	count, err := mgr.Return()
	if err != nil {
		fmt.Printf("Error returning: %v\n", err)
		return
	}
	fmt.Printf("Returned %d row(s).\n", count)
}

func handleClearArchive(sc *bufio.Scanner, mgr *slist.Manager) {
	fmt.Print("Clear the entire archive? This cannot be undone (yes/no): ")
	if !sc.Scan() || strings.TrimSpace(sc.Text()) != "yes" {
		fmt.Println("Cancelled.")
		return
	}
	if err := mgr.ClearArchive(); err != nil {
		fmt.Printf("Error clearing archive: %v\n", err)
		return
	}
	fmt.Println("Archive cleared.")
}

func handleExport(sc *bufio.Scanner, mgr *slist.Manager) {
	fmt.Print("Output file: ")
	if !sc.Scan() {
		return
	}
	path := strings.TrimSpace(sc.Text())
	if path == "" {
		fmt.Println("File path cannot be empty.")
		return
	}
	blob, err := mgr.Export()
	if err != nil {
		fmt.Printf("Error exporting: %v\n", err)
		return
	}
	if err := os.WriteFile(path, []byte(blob), 0o600); err != nil {
		fmt.Printf("Error writing file: %v\n", err)
		return
	}
	fmt.Printf("Encrypted backup written to %s\n", path)
}

func handleImport(sc *bufio.Scanner, mgr *slist.Manager) {
	fmt.Print("Backup file: ")
	if !sc.Scan() {
		return
	}
	path := strings.TrimSpace(sc.Text())
	data, err := os.ReadFile(path)
	if err != nil {
		fmt.Printf("Error reading file: %v\n", err)
		return
	}
	if err := mgr.Import(string(data)); err != nil {
		switch {
		case errors.Is(err, slist.ErrDecryptionFailed):
			fmt.Println("Could not decrypt the backup: wrong password or corrupted file.")
		case errors.Is(err, slist.ErrInvalidImportFormat):
			fmt.Println("The backup decrypted but is not a valid export; nothing was changed.")
		default:
			fmt.Printf("Error importing: %v\n", err)
		}
		return
	}
	fmt.Println("Backup imported.")
}

func handleExportText(sc *bufio.Scanner, mgr *slist.Manager, activeTab string) {
	fmt.Print("Output file: ")
	if !sc.Scan() {
		return
	}
	path := strings.TrimSpace(sc.Text())
	text, err := mgr.ExportText(activeTab)
	if err != nil {
		fmt.Printf("Error exporting: %v\n", err)
		return
	}
	if err := os.WriteFile(path, []byte(text), 0o644); err != nil {
		fmt.Printf("Error writing file: %v\n", err)
		return
	}
	fmt.Printf("Text export written to %s\n", path)
}

func handleChangePassword(mgr *slist.Manager) {
	current, err := readPassword("Current password: ")
	if err != nil {
		fmt.Printf("Error reading password: %v\n", err)
		return
	}
	next, err := readPassword("New password (min 4 characters): ")
	if err != nil {
		fmt.Printf("Error reading password: %v\n", err)
		return
	}
	if len(next) < 4 {
		fmt.Println("Password must be at least 4 characters.")
		return
	}
	if err := mgr.ChangePassword(current, next); err != nil {
		fmt.Printf("Error changing password: %v\n", err)
		return
	}
	fmt.Println("Password changed. Future exports use the new key.")
}

func readIndex(sc *bufio.Scanner, mgr *slist.Manager, activeTab string) (int, bool) {
	tab := mgr.Tab(activeTab)
	if tab == nil {
		fmt.Println("No active tab.")
		return 0, false
	}
	fmt.Print("Item index (see 'list'): ")
	if !sc.Scan() {
		return 0, false
	}
	index, err := strconv.Atoi(strings.TrimSpace(sc.Text()))
	if err != nil || index < 0 || index >= len(tab.Items) {
		fmt.Println("Invalid index.")
		return 0, false
	}
	return index, true
}
