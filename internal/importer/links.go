package importer

import (
	"fmt"

	"github.com/lherron/advimport/internal/domain"
	"github.com/lherron/advimport/internal/markup"
)

// RewriteLinks resolves the cross-reference tokens in each touched journal
// against journals and saves the rewritten content. Unresolved tokens are
// left as they are.
func (im *Importer) RewriteLinks(journals IDMap, touched []string, rep *Report) {
	unresolved := 0
	for _, id := range touched {
		doc, err := im.store.Get(domain.KindJournal, id)
		if err != nil {
			im.recordFailure(PhaseLinks, domain.KindJournal, 0, "", id, err, rep)
			continue
		}

		content, refs := markup.Rewrite(doc.Content, journals.Resolve)
		for _, ref := range refs {
			e := Entry{
				Phase:      PhaseLinks,
				Kind:       domain.KindJournal,
				ExternalID: ref.ExternalID,
				Name:       doc.Name,
				ID:         doc.ID,
			}
			if ref.Resolved {
				e.Outcome = OutcomeLinkResolved
				e.Detail = ref.ID
			} else {
				e.Outcome = OutcomeLinkUnresolved
				e.Detail = fmt.Sprintf("no journal with external id %s", ref.ExternalID)
				unresolved++
				im.logger.Warn("unresolved link", "journal", doc.Name, "external_id", ref.ExternalID)
			}
			rep.add(e)
		}

		if content == doc.Content {
			continue
		}
		if _, err := im.store.Update(domain.KindJournal, id, domain.Fields{domain.FieldContent: content}); err != nil {
			im.recordFailure(PhaseLinks, domain.KindJournal, 0, doc.ExternalID, doc.Name, err, rep)
			continue
		}
		rep.Rewrites = append(rep.Rewrites, Rewrite{JournalID: id, Name: doc.Name, Before: doc.Content, After: content})
	}

	if unresolved > 0 {
		im.reporter.Error(fmt.Sprintf("%d links could not be resolved", unresolved))
	}
}
