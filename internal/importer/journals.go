package importer

import (
	"context"
	"fmt"

	"github.com/lherron/advimport/internal/domain"
	"github.com/lherron/advimport/internal/export"
)

// ImportJournals upserts the journals in the export at rel into the folders
// mapped by folders. It returns the journal id map, pre-seeded from the
// mapped folders' current contents, and the ids of the journals written this
// run in the order they were written.
func (im *Importer) ImportJournals(ctx context.Context, rel string, folders IDMap, rep *Report) (IDMap, []string, error) {
	journals := IDMap{}

	data, err := im.fetch(ctx, rel)
	if err != nil {
		im.reporter.Error(err.Error())
		rep.fail(PhaseJournals, err)
		return journals, nil, err
	}

	im.seedJournals(folders, journals)

	records, err := export.DecodeJournals(data)
	if err != nil {
		ferr := &FileUnavailableError{Path: rel, Err: err}
		im.reporter.Error(ferr.Error())
		rep.fail(PhaseJournals, ferr)
		return journals, nil, ferr
	}
	if len(records) == 0 {
		im.logger.Info("journal export is empty", "path", rel)
		rep.EmptyImport = true
		return journals, nil, nil
	}

	var touched []string
	seen := make(map[string]bool)
	for i, rec := range records {
		if id, ok := im.importJournal(rec, folders, journals, rep); ok && !seen[id] {
			seen[id] = true
			touched = append(touched, id)
		}
		im.reporter.Progress(LabelJournals, fraction(i+1, len(records)))
	}

	im.reporter.Notify(fmt.Sprintf("done importing %d journals", len(touched)))
	return journals, touched, nil
}

// seedJournals registers the journals already stored in every mapped folder.
func (im *Importer) seedJournals(folders, journals IDMap) {
	for _, ext := range folders.Keys() {
		docs, err := im.store.ListContents(folders[ext])
		if err != nil {
			im.logger.Warn("list folder contents failed", "folder", ext, "error", err)
			continue
		}
		for _, doc := range docs {
			if doc.ExternalID != "" {
				journals[doc.ExternalID] = doc.ID
			}
		}
	}
}

func (im *Importer) importJournal(rec export.JournalRecord, folders, journals IDMap, rep *Report) (string, bool) {
	if rec.Malformed() {
		rep.add(journalEntry(rec, OutcomeSkippedMalformed, "", "record has no name"))
		return "", false
	}
	name := *rec.Name

	folderID, ok := folders[rec.FolderExternalID]
	if !ok {
		msg := fmt.Sprintf("folder missing for import of adventure %s for journal %s", rec.FolderExternalID, name)
		im.reporter.Error(msg)
		rep.add(journalEntry(rec, OutcomeSkippedUnresolvedFolder, "", msg))
		return "", false
	}
	if rec.ExternalID == "" {
		rep.add(journalEntry(rec, OutcomeSkippedMalformed, "", "record has no external id"))
		return "", false
	}

	existing, err := im.existing(domain.KindJournal, rec.ExternalID, journals)
	if err != nil {
		im.recordFailure(PhaseJournals, domain.KindJournal, rec.Index, rec.ExternalID, name, err, rep)
		return "", false
	}

	var doc *domain.Document
	outcome := OutcomeUpdated
	if existing != "" {
		im.logger.Debug("update journal", "name", name, "external_id", rec.ExternalID, "id", existing)
		doc, err = im.store.Update(domain.KindJournal, existing, domain.Fields{
			domain.FieldName:    name,
			domain.FieldParent:  folderID,
			domain.FieldContent: rec.Content,
			domain.FieldExtra:   rec.Extra,
		})
	} else {
		im.logger.Debug("import journal", "name", name, "external_id", rec.ExternalID)
		outcome = OutcomeCreated
		doc, err = im.store.Create(domain.KindJournal, domain.Record{
			Name:       name,
			ExternalID: rec.ExternalID,
			ParentID:   folderID,
			Content:    rec.Content,
			Extra:      rec.Extra,
		})
	}
	if err != nil {
		im.recordFailure(PhaseJournals, domain.KindJournal, rec.Index, rec.ExternalID, name, err, rep)
		return "", false
	}

	journals[rec.ExternalID] = doc.ID
	rep.add(journalEntry(rec, outcome, doc.ID, ""))
	return doc.ID, true
}

func journalEntry(rec export.JournalRecord, outcome Outcome, id, detail string) Entry {
	e := Entry{
		Phase:      PhaseJournals,
		Kind:       domain.KindJournal,
		Index:      rec.Index,
		ExternalID: rec.ExternalID,
		Outcome:    outcome,
		ID:         id,
		Detail:     detail,
	}
	if rec.Name != nil {
		e.Name = *rec.Name
	}
	return e
}
