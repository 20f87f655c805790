package importer

import (
	"context"
	"fmt"

	"github.com/lherron/advimport/internal/domain"
	"github.com/lherron/advimport/internal/export"
)

type pendingParent struct {
	rec export.FolderRecord
	id  string
}

// ImportFolders upserts every folder in the export at rel and returns the
// external to internal id map. A fetch or decode failure is reported and
// returned with an empty map.
func (im *Importer) ImportFolders(ctx context.Context, rel string, rep *Report) (IDMap, error) {
	folders := IDMap{}

	data, err := im.fetch(ctx, rel)
	if err != nil {
		im.reporter.Error(err.Error())
		rep.fail(PhaseFolders, err)
		return folders, err
	}
	records, err := export.DecodeFolders(data)
	if err != nil {
		ferr := &FileUnavailableError{Path: rel, Err: err}
		im.reporter.Error(ferr.Error())
		rep.fail(PhaseFolders, ferr)
		return folders, ferr
	}

	var pending []pendingParent
	count := 0
	for i, rec := range records {
		if id, ok := im.importFolder(rec, folders, rep); ok {
			count++
			if rec.ParentExternalID != "" && !im.assignParent(rec, id, folders, rep) {
				pending = append(pending, pendingParent{rec: rec, id: id})
			}
		}
		im.reporter.Progress(LabelFolders, fraction(i+1, len(records)))
	}

	for _, p := range pending {
		if im.opts.DeferParents {
			if parentID, ok := folders[p.rec.ParentExternalID]; ok {
				if im.setParent(p.rec, p.id, parentID, rep) {
					rep.add(folderEntry(p.rec, OutcomeParentDeferred, p.id, parentID))
				}
				continue
			}
		}
		rep.add(folderEntry(p.rec, OutcomeParentUnresolved, p.id,
			fmt.Sprintf("parent %s not imported before this folder", p.rec.ParentExternalID)))
	}

	im.reporter.Notify(fmt.Sprintf("done importing %d folders", count))
	return folders, nil
}

// importFolder upserts one record and registers it in folders.
func (im *Importer) importFolder(rec export.FolderRecord, folders IDMap, rep *Report) (string, bool) {
	if rec.Malformed() {
		rep.add(folderEntry(rec, OutcomeSkippedMalformed, "", "record has no name"))
		return "", false
	}
	name := *rec.Name
	if rec.ExternalID == "" {
		rep.add(folderEntry(rec, OutcomeSkippedMalformed, "", "record has no external id"))
		return "", false
	}

	existing, err := im.existing(domain.KindFolder, rec.ExternalID, folders)
	if err != nil {
		im.recordFailure(PhaseFolders, domain.KindFolder, rec.Index, rec.ExternalID, name, err, rep)
		return "", false
	}

	var doc *domain.Document
	outcome := OutcomeUpdated
	if existing != "" {
		im.logger.Debug("update folder", "name", name, "external_id", rec.ExternalID, "id", existing)
		doc, err = im.store.Update(domain.KindFolder, existing, domain.Fields{
			domain.FieldName:  name,
			domain.FieldExtra: rec.Extra,
		})
	} else {
		im.logger.Debug("import folder", "name", name, "external_id", rec.ExternalID)
		outcome = OutcomeCreated
		doc, err = im.store.Create(domain.KindFolder, domain.Record{
			Name:       name,
			ExternalID: rec.ExternalID,
			Extra:      rec.Extra,
		})
	}
	if err != nil {
		im.recordFailure(PhaseFolders, domain.KindFolder, rec.Index, rec.ExternalID, name, err, rep)
		return "", false
	}

	folders[rec.ExternalID] = doc.ID
	rep.add(folderEntry(rec, outcome, doc.ID, ""))
	return doc.ID, true
}

// assignParent links id to its parent when the parent is already mapped.
// It reports false when the parent is not yet known.
func (im *Importer) assignParent(rec export.FolderRecord, id string, folders IDMap, rep *Report) bool {
	parentID, ok := folders[rec.ParentExternalID]
	if !ok {
		return false
	}
	im.setParent(rec, id, parentID, rep)
	return true
}

func (im *Importer) setParent(rec export.FolderRecord, id, parentID string, rep *Report) bool {
	if _, err := im.store.Update(domain.KindFolder, id, domain.Fields{domain.FieldParent: parentID}); err != nil {
		im.recordFailure(PhaseFolders, domain.KindFolder, rec.Index, rec.ExternalID, *rec.Name,
			fmt.Errorf("set parent %s: %w", rec.ParentExternalID, err), rep)
		return false
	}
	return true
}

// existing returns the internal id already bound to externalID, checking the
// run's map before the store.
func (im *Importer) existing(kind domain.Kind, externalID string, ids IDMap) (string, error) {
	if id, ok := ids[externalID]; ok {
		return id, nil
	}
	doc, err := im.store.FindByExternalID(kind, externalID)
	if err != nil {
		return "", fmt.Errorf("lookup %s %s: %w", kind, externalID, err)
	}
	if doc == nil {
		return "", nil
	}
	return doc.ID, nil
}

func (im *Importer) recordFailure(phase Phase, kind domain.Kind, index int, externalID, name string, err error, rep *Report) {
	im.logger.Warn("import failed", "phase", phase, "kind", kind, "external_id", externalID, "error", err)
	im.reporter.Error(fmt.Sprintf("cannot import %s %s: %v", kind, name, err))
	rep.add(Entry{
		Phase:      phase,
		Kind:       kind,
		Index:      index,
		ExternalID: externalID,
		Name:       name,
		Outcome:    OutcomeFailed,
		Detail:     err.Error(),
	})
}

func folderEntry(rec export.FolderRecord, outcome Outcome, id, detail string) Entry {
	e := Entry{
		Phase:      PhaseFolders,
		Kind:       domain.KindFolder,
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
