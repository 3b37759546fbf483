package slist

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ExportVersion is stamped into every backup document.
const ExportVersion = "1.0"

// exportDocument is the plaintext JSON shape of a backup before encryption.
type exportDocument struct {
	Tabs      []*Tab `json:"tabs"`
	Timestamp int64  `json:"timestamp"`
	Version   string `json:"version"`
}

// Export serializes the entire tab collection and seals it with the session
// key, returning the opaque blob that becomes the backup file's sole
// content. Requires a prior Unlock or SetPassword.
func (m *Manager) Export() (string, error) {
	if !m.Unlocked() {
		return "", fmt.Errorf("%w: encryption key not set", ErrCryptoUnavailable)
	}
	doc := exportDocument{
		Tabs:      m.tabs,
		Timestamp: m.now().UnixMilli(),
		Version:   ExportVersion,
	}
	payload, err := json.Marshal(doc)
	if err != nil {
		return "", fmt.Errorf("encode export: %w", err)
	}
	return Encrypt(m.key, string(payload))
}

// Import decrypts a backup blob and replaces the working tab collection
// wholesale. A payload that is not JSON or has no tabs array aborts with
// ErrInvalidImportFormat and no partial state applied.
func (m *Manager) Import(blob string) error {
	if !m.Unlocked() {
		return fmt.Errorf("%w: encryption key not set", ErrCryptoUnavailable)
	}
	payload, err := Decrypt(m.key, strings.TrimSpace(blob))
	if err != nil {
		return err
	}

	var doc exportDocument
	if err := json.Unmarshal([]byte(payload), &doc); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidImportFormat, err)
	}
	if doc.Tabs == nil {
		return fmt.Errorf("%w: missing tabs", ErrInvalidImportFormat)
	}
	for _, tab := range doc.Tabs {
		if tab.Items == nil {
			tab.Items = []*Item{}
		}
		if tab.Archive == nil {
			tab.Archive = []*ArchiveEntry{}
		}
	}

	if err := m.db.SaveTabs(doc.Tabs); err != nil {
		return err
	}
	m.tabs = doc.Tabs
	return nil
}

// ExportText renders one tab as a numbered plaintext report with separator
// banners and issuance annotations, suitable for printing or sharing.
func (m *Manager) ExportText(tabID string) (string, error) {
	tab := m.Tab(tabID)
	if tab == nil {
		return "", fmt.Errorf("no such tab %q", tabID)
	}

	var sb strings.Builder
	rowNum := 0
	for _, it := range tab.Items {
		if it.Kind == KindSeparator {
			label := it.Label
			if label == "" {
				label = "Section"
			}
			fmt.Fprintf(&sb, "\n--- %s ---\n\n", label)
			continue
		}
		rowNum++
		fmt.Fprintf(&sb, "%d. %s\n", rowNum, strings.Join(it.Columns, " | "))
		if it.IssuedTo != "" {
			fmt.Fprintf(&sb, "   Issued to: %s (%s)\n", it.IssuedTo, it.IssuedDate)
		}
		if it.ReturnedDate != "" {
			fmt.Fprintf(&sb, "   Returned: %s\n", it.ReturnedDate)
		}
		sb.WriteString("\n")
	}
	return sb.String(), nil
}
