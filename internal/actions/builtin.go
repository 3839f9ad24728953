package actions

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/chronicle-labs/chronicle/pkg/core"
)

// Builtin action names.
const (
	ActionDelete   = "Delete"
	ActionCopyID   = "Copy Object ID"
	ActionCopy     = "Copy"
	ActionSaveFile = "Save File To..."
)

// DeleteActioner deletes the selected objects after confirmation.
type DeleteActioner struct{}

func (DeleteActioner) Name() string { return "delete" }

func (DeleteActioner) Probe(sel Selection, actx Context) []string {
	if actx.Store() == nil || len(sel.AllRecords()) == 0 {
		return nil
	}
	return []string{ActionDelete}
}

func (DeleteActioner) Do(action string, sel Selection, actx Context) error {
	records := sel.AllRecords()
	if action != ActionDelete || len(records) == 0 {
		return nil
	}
	s := actx.Store()
	if s == nil {
		return fmt.Errorf("no store connected")
	}

	prompt := fmt.Sprintf("Delete %d object(s)?", len(records))
	if cf := actx.Confirmer(); cf != nil && !cf.Confirm(prompt) {
		return nil
	}

	ids := make([]string, len(records))
	for i, rec := range records {
		ids[i] = rec.ObjID
	}
	deleted, err := s.Delete(context.Background(), ids...)
	if err != nil {
		// An object already gone is a stale view, not a failure.
		if errors.Is(err, core.ErrNotFound) {
			actx.Notifier().Warn(fmt.Sprintf("delete skipped: %v", err))
			return nil
		}
		return err
	}

	actx.Notifier().Info(fmt.Sprintf("Deleted %d object(s)", len(deleted)))
	actx.OnDeleted()(deleted)
	return nil
}

// CopyActioner copies the selection to the clipboard: object ids for record
// selections, the printed value otherwise.
type CopyActioner struct{}

func (CopyActioner) Name() string { return "copy" }

func (CopyActioner) Probe(sel Selection, actx Context) []string {
	if actx.Clipboard() == nil {
		return nil
	}
	switch sel.Kind {
	case SingleRecord, RecordList:
		return []string{ActionCopyID}
	case Value:
		if sel.Value != nil {
			return []string{ActionCopy}
		}
	}
	return nil
}

func (CopyActioner) Do(action string, sel Selection, actx Context) error {
	var text string
	switch action {
	case ActionCopyID:
		ids := make([]string, 0, len(sel.AllRecords()))
		for _, rec := range sel.AllRecords() {
			ids = append(ids, rec.ObjID)
		}
		text = strings.Join(ids, "\n")
	case ActionCopy:
		text = core.FormatValue(sel.Value, 0)
	default:
		return nil
	}

	if err := actx.Clipboard().Write(text); err != nil {
		return fmt.Errorf("failed to copy to clipboard: %w", err)
	}
	return nil
}

// SaveFileActioner writes a selected file payload to disk. Offered only for
// records whose type helper marks them as files.
type SaveFileActioner struct{}

func (SaveFileActioner) Name() string { return "save-file" }

func (SaveFileActioner) Probe(sel Selection, actx Context) []string {
	if sel.Kind != SingleRecord || actx.Store() == nil {
		return nil
	}
	helper, err := actx.Store().Helper(sel.Record.TypeID)
	if err != nil || !helper.IsFile() {
		return nil
	}
	return []string{ActionSaveFile}
}

func (SaveFileActioner) Do(action string, sel Selection, actx Context) error {
	if action != ActionSaveFile {
		return nil
	}
	s := actx.Store()
	if s == nil {
		return fmt.Errorf("no store connected")
	}
	helper, err := s.Helper(sel.Record.TypeID)
	if err != nil {
		return err
	}

	name, ok := helper.Filename(sel.Record.State)
	if !ok {
		name = sel.Record.ObjID
	}
	content, ok := helper.Content(sel.Record.State)
	if !ok {
		return fmt.Errorf("record %s carries no file content", sel.Record.SnapshotID())
	}

	dest := filepath.Join(actx.SaveDir(), filepath.Base(name))
	if err := os.WriteFile(dest, content, 0o644); err != nil {
		return fmt.Errorf("failed to save file: %w", err)
	}
	actx.Notifier().Info(fmt.Sprintf("Saved %s", dest))
	return nil
}
