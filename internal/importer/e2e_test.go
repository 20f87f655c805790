package importer_test

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lherron/advimport/internal/domain"
	"github.com/lherron/advimport/internal/importer"
	"github.com/lherron/advimport/internal/source"
	"github.com/lherron/advimport/internal/testutil"
)

const saltmarshFolders = `[
	{"name": "Saltmarsh", "flags": {"zdnd": {"id": "saltmarsh"}}, "color": "#224466"},
	{"name": "Haunted House", "flags": {"zdnd": {"id": "house", "pid": "saltmarsh"}}},
	{"name": "Cellar", "flags": {"zdnd": {"id": "cellar", "pid": "house"}}}
]`

const saltmarshJournals = `[
	{"name": "Smuggled Goods", "flags": {"zdnd": {"id": "SmuggledGoods", "folder": "cellar"}},
	 "content": "<p>Crates of brandy.</p>"},
	{"name": "Cellar Entrance", "flags": {"zdnd": {"id": "CellarEntrance", "folder": "cellar"}},
	 "content": "<p>See <span class=\"zlink\">@JournalEntry[zid=SmuggledGoods]{Smuggled Goods}</span> and <span class=\"zlink\">@JournalEntry[zid=Ghost]{The Ghost}</span>.</p>"},
	{"name": "Stray", "flags": {"zdnd": {"id": "Stray", "folder": "attic"}}, "content": ""}
]`

func TestRun_EndToEndWithSQLiteStore(t *testing.T) {
	s := testutil.TempStore(t)
	root := t.TempDir()
	testutil.WriteExport(t, root, "saltmarsh", saltmarshFolders, saltmarshJournals)

	rec := &testutil.Recorder{}
	im := importer.New(s.Documents("importer"), source.NewDir(root), rec, importer.Options{}, nil)

	rep, err := im.Run(context.Background(), "saltmarsh")
	require.NoError(t, err)

	// hierarchy
	house, err := s.Folders.FindByExternalID("house")
	require.NoError(t, err)
	require.NotNil(t, house)
	require.NotNil(t, house.ParentUUID)
	assert.Equal(t, rep.FolderMap["saltmarsh"], *house.ParentUUID)
	assert.Contains(t, house.Extra, `"flags"`)

	root1, _ := s.Folders.FindByExternalID("saltmarsh")
	assert.Contains(t, root1.Extra, `"color":"#224466"`)

	// journals
	all, err := s.Journals.List()
	require.NoError(t, err)
	assert.Len(t, all, 2)
	assert.Contains(t, rec.Errors, "folder missing for import of adventure attic for journal Stray")

	// links
	entrance, err := s.Journals.FindByExternalID("CellarEntrance")
	require.NoError(t, err)
	goods := rep.JournalMap["SmuggledGoods"]
	assert.Equal(t,
		`<p>See <span class="zlink">@JournalEntry[`+goods+`]{Smuggled Goods}</span> and <span class="zlink">@JournalEntry[zid=Ghost]{The Ghost}</span>.</p>`,
		entrance.Content)
	assert.Equal(t, rep.FolderMap["cellar"], entrance.FolderUUID)

	s1 := rep.Summary()
	assert.Equal(t, 3, s1.Folders)
	assert.Equal(t, 2, s1.Journals)
	assert.Equal(t, 1, s1.Skipped)
	assert.Equal(t, 1, s1.LinksResolved)
	assert.Equal(t, 1, s1.LinksUnresolved)
}

func TestRun_ReimportUpdatesInPlace(t *testing.T) {
	s := testutil.TempStore(t)
	root := t.TempDir()
	testutil.WriteExport(t, root, "saltmarsh", saltmarshFolders, saltmarshJournals)

	im := importer.New(s.Documents("importer"), source.NewDir(root), nil, importer.Options{}, nil)

	first, err := im.Run(context.Background(), "saltmarsh")
	require.NoError(t, err)

	edited := strings.Replace(saltmarshJournals, "Crates of brandy.", "Crates of rum.", 1)
	testutil.WriteExport(t, root, "saltmarsh", "", edited)

	second, err := im.Run(context.Background(), "saltmarsh")
	require.NoError(t, err)

	folders, _ := s.Folders.List()
	journals, _ := s.Journals.List()
	assert.Len(t, folders, 3)
	assert.Len(t, journals, 2)
	assert.Equal(t, first.FolderMap, second.FolderMap)
	assert.Equal(t, first.JournalMap, second.JournalMap)
	assert.Zero(t, second.Count("", importer.OutcomeCreated))

	goods, _ := s.Journals.FindByExternalID("SmuggledGoods")
	assert.Equal(t, "<p>Crates of rum.</p>", goods.Content)
	assert.Greater(t, goods.ETag, int64(1))

	entrance, _ := s.Journals.FindByExternalID("CellarEntrance")
	assert.Contains(t, entrance.Content, "@JournalEntry["+goods.UUID+"]{Smuggled Goods}")
}

func TestRun_ReimportIntoPopulatedFolder(t *testing.T) {
	s := testutil.TempStore(t)
	docs := s.Documents("importer")

	folder, err := docs.Create(domain.KindFolder, domain.Record{Name: "Town", ExternalID: "F1"})
	require.NoError(t, err)
	prior, err := docs.Create(domain.KindJournal, domain.Record{Name: "Notice", ExternalID: "J9", ParentID: folder.ID, Content: "old"})
	require.NoError(t, err)

	root := t.TempDir()
	testutil.WriteExport(t, root, "town",
		`[{"name": "Town", "externalId": "F1"}]`,
		`[{"name": "Notice", "externalId": "J9", "folderExternalId": "F1", "content": "new"}]`)

	im := importer.New(docs, source.NewDir(root), nil, importer.Options{}, nil)
	rep, err := im.Run(context.Background(), "town")
	require.NoError(t, err)

	journals, _ := s.Journals.List()
	require.Len(t, journals, 1)
	assert.Equal(t, prior.ID, journals[0].UUID)
	assert.Equal(t, "new", journals[0].Content)
	assert.Equal(t, 1, rep.Count(importer.PhaseJournals, importer.OutcomeUpdated))
}

func TestRun_ReversedFoldersAgainstSQLiteStore(t *testing.T) {
	s := testutil.TempStore(t)
	root := t.TempDir()
	testutil.WriteExport(t, root, "rev",
		`[{"name": "Child", "externalId": "F2", "parentExternalId": "F1"}, {"name": "Parent", "externalId": "F1"}]`,
		`[]`)

	im := importer.New(s.Documents("importer"), source.NewDir(root), nil, importer.Options{}, nil)
	_, err := im.Run(context.Background(), "rev")
	require.NoError(t, err)

	child, _ := s.Folders.FindByExternalID("F2")
	assert.Nil(t, child.ParentUUID)

	deferred := importer.New(s.Documents("importer"), source.NewDir(root), nil, importer.Options{DeferParents: true}, nil)
	_, err = deferred.Run(context.Background(), "rev")
	require.NoError(t, err)

	child, _ = s.Folders.FindByExternalID("F2")
	parent, _ := s.Folders.FindByExternalID("F1")
	require.NotNil(t, child.ParentUUID)
	assert.Equal(t, parent.UUID, *child.ParentUUID)
}
