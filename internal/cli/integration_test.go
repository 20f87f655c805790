package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"

	"github.com/lherron/advimport/internal/cli/appctx"
	"github.com/lherron/advimport/internal/config"
	"github.com/lherron/advimport/internal/db"
	"github.com/lherron/advimport/internal/importer"
	"github.com/lherron/advimport/internal/render"
	"github.com/lherron/advimport/internal/store"
	"github.com/lherron/advimport/internal/testutil"
	"github.com/spf13/cobra"
)

const testFolders = `[
	{"name": "Saltmarsh", "flags": {"zdnd": {"id": "saltmarsh"}}},
	{"name": "NPCs", "flags": {"zdnd": {"id": "npcs", "pid": "saltmarsh"}}}
]`

const testJournals = `[
	{"name": "Skerrit", "flags": {"zdnd": {"id": "Skerrit", "folder": "npcs"}},
	 "content": "<p>Works with <span class=\"zlink\">@JournalEntry[zid=Sanbalet]{Sanbalet}</span> and fears <span class=\"zlink\">@JournalEntry[zid=Ghost]{the ghost}</span>.</p>"},
	{"name": "Sanbalet", "flags": {"zdnd": {"id": "Sanbalet", "folder": "npcs"}},
	 "content": "<p>An illusionist.</p>"}
]`

// setupTestApp creates a migrated database, an imports root holding the
// saltmarsh export, and an App wired to both.
func setupTestApp(t *testing.T) *appctx.App {
	t.Helper()

	database, dbPath := testutil.TempDB(t)
	root := t.TempDir()
	testutil.WriteExport(t, root, "saltmarsh", testFolders, testJournals)

	resetFlags()
	t.Cleanup(resetFlags)

	return &appctx.App{
		Config: &config.Config{
			DBPath:         dbPath,
			ImportsDir:     root,
			TriggerCommand: "/zobs",
			Output:         "table",
		},
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		DB:     database,
		Store:  store.New(database),
		Actor:  "test-actor",
	}
}

func resetFlags() {
	runDir, runURL = "", ""
	runDiff, runDeferParents = false, false
	runQuiet, runContinue = true, false
	shellCommand = ""
	catRefs = false
	treeDepth, treeFolders = 0, false
	logLimit, logCursor = 50, ""
	whoamiJSON = false
}

// newTestCmd returns a command carrying the persistent flags, with output
// captured in the returned buffers.
func newTestCmd(output string) (*cobra.Command, *bytes.Buffer, *bytes.Buffer) {
	cmd := &cobra.Command{}
	cmd.Flags().String("output", "", "Output format")
	cmd.Flags().String("as", "", "Actor")
	if output != "" {
		cmd.Flags().Set("output", output)
	}
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	return cmd, &stdout, &stderr
}

func importSaltmarsh(t *testing.T, app *appctx.App) {
	t.Helper()
	cmd, _, _ := newTestCmd("json")
	if err := runRun(app, cmd, []string{"saltmarsh"}); err != nil {
		t.Fatalf("import failed: %v", err)
	}
}

func TestRunCommand_JSONReport(t *testing.T) {
	app := setupTestApp(t)
	cmd, stdout, _ := newTestCmd("json")

	if err := runRun(app, cmd, []string{"saltmarsh"}); err != nil {
		t.Fatalf("runRun failed: %v", err)
	}

	var rep importer.Report
	if err := json.Unmarshal(stdout.Bytes(), &rep); err != nil {
		t.Fatalf("report is not JSON: %v\n%s", err, stdout.String())
	}
	if rep.Target != "saltmarsh" {
		t.Errorf("Target = %q, want saltmarsh", rep.Target)
	}
	if len(rep.FolderMap) != 2 || len(rep.JournalMap) != 2 {
		t.Errorf("maps = %d folders, %d journals; want 2 and 2", len(rep.FolderMap), len(rep.JournalMap))
	}
	if got := rep.Count(importer.PhaseLinks, importer.OutcomeLinkResolved); got != 1 {
		t.Errorf("resolved links = %d, want 1", got)
	}
	if got := rep.Count(importer.PhaseLinks, importer.OutcomeLinkUnresolved); got != 1 {
		t.Errorf("unresolved links = %d, want 1", got)
	}

	journal, err := app.Store.Journals.FindByExternalID("Skerrit")
	if err != nil || journal == nil {
		t.Fatalf("Skerrit not stored: %v", err)
	}
	if journal.CreatedBy != "test-actor" {
		t.Errorf("CreatedBy = %q, want test-actor", journal.CreatedBy)
	}
	if !strings.Contains(journal.Content, "["+rep.JournalMap["Sanbalet"]+"]") {
		t.Errorf("link not rewritten: %s", journal.Content)
	}
}

func TestRunCommand_TableAndDiff(t *testing.T) {
	app := setupTestApp(t)
	runDiff = true
	cmd, stdout, _ := newTestCmd("")

	if err := runRun(app, cmd, []string{"saltmarsh"}); err != nil {
		t.Fatalf("runRun failed: %v", err)
	}

	out := stdout.String()
	for _, want := range []string{"PHASE", "link_resolved", "--- Skerrit (", `-<p>Works with <span class="zlink">@JournalEntry[zid=Sanbalet]{Sanbalet}`} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestRunCommand_Reimport(t *testing.T) {
	app := setupTestApp(t)
	importSaltmarsh(t, app)

	cmd, stdout, _ := newTestCmd("ndjson")
	if err := runRun(app, cmd, []string{"saltmarsh"}); err != nil {
		t.Fatalf("second run failed: %v", err)
	}

	for _, line := range strings.Split(strings.TrimSpace(stdout.String()), "\n") {
		var e importer.Entry
		if err := json.Unmarshal([]byte(line), &e); err != nil {
			t.Fatalf("bad ndjson line %q: %v", line, err)
		}
		if e.Outcome == importer.OutcomeCreated {
			t.Errorf("re-import created %s %s", e.Kind, e.ExternalID)
		}
	}

	journals, _ := app.Store.Journals.List()
	if len(journals) != 2 {
		t.Errorf("journals after re-import = %d, want 2", len(journals))
	}
}

func TestRunCommand_ExitCodes(t *testing.T) {
	app := setupTestApp(t)

	cmd, _, _ := newTestCmd("json")
	err := runRun(app, cmd, nil)
	if !errors.Is(err, importer.ErrNoTarget) {
		t.Fatalf("expected ErrNoTarget, got %v", err)
	}
	if code := ExitCode(err); code != 2 {
		t.Errorf("ExitCode = %d, want 2", code)
	}

	cmd, stdout, _ := newTestCmd("json")
	err = runRun(app, cmd, []string{"tomb"})
	var unavailable *importer.FileUnavailableError
	if !errors.As(err, &unavailable) {
		t.Fatalf("expected FileUnavailableError, got %v", err)
	}
	if code := ExitCode(err); code != 1 {
		t.Errorf("ExitCode = %d, want 1", code)
	}
	if !strings.Contains(stdout.String(), `"aborted": true`) {
		t.Errorf("report should be rendered as aborted:\n%s", stdout.String())
	}
}

func TestRunCommand_MultipleTargets(t *testing.T) {
	app := setupTestApp(t)

	cmd, _, _ := newTestCmd("ndjson")
	err := runRun(app, cmd, []string{"tomb", "saltmarsh"})
	if code := ExitCode(err); code != 1 {
		t.Fatalf("failing first target should stop the batch with 1, got %d (%v)", code, err)
	}
	if journal, _ := app.Store.Journals.FindByExternalID("Skerrit"); journal != nil {
		t.Error("saltmarsh should have been skipped")
	}

	runContinue = true
	runQuiet = false
	cmd, _, stderr := newTestCmd("ndjson")
	err = runRun(app, cmd, []string{"tomb", "saltmarsh"})
	if code := ExitCode(err); code != 5 {
		t.Fatalf("partial batch should exit 5, got %d (%v)", code, err)
	}
	if journal, _ := app.Store.Journals.FindByExternalID("Skerrit"); journal == nil {
		t.Error("saltmarsh should have been imported")
	}
	if !strings.Contains(stderr.String(), "saltmarsh: success") || !strings.Contains(stderr.String(), "Partial success") {
		t.Errorf("missing batch summary:\n%s", stderr.String())
	}
}

func TestRunCommand_BadOutputFormat(t *testing.T) {
	app := setupTestApp(t)
	cmd, _, _ := newTestCmd("xml")

	err := runRun(app, cmd, []string{"saltmarsh"})
	if code := ExitCode(err); code != 2 {
		t.Errorf("ExitCode = %d, want 2 (err %v)", code, err)
	}
	folders, _ := app.Store.Folders.List()
	if len(folders) != 0 {
		t.Errorf("nothing should be imported on a usage error, got %d folders", len(folders))
	}
}

func TestShellCommand(t *testing.T) {
	app := setupTestApp(t)
	cmd, stdout, stderr := newTestCmd("")
	cmd.SetIn(strings.NewReader("hello table\n/zobs saltmarsh\n/zobs\n/zobsx saltmarsh\ngoodnight\n"))

	if err := runShell(app, cmd, nil); err != nil {
		t.Fatalf("runShell failed: %v", err)
	}

	if got, want := stdout.String(), "hello table\n/zobsx saltmarsh\ngoodnight\n"; got != want {
		t.Errorf("passthrough = %q, want %q", got, want)
	}
	if !strings.Contains(stderr.String(), "saltmarsh: 2 folders, 2 journals, 1 links resolved, 1 unresolved, 0 failed") {
		t.Errorf("missing run summary:\n%s", stderr.String())
	}
	if !strings.Contains(stderr.String(), "no adventure import folder provided") {
		t.Errorf("missing no-target error:\n%s", stderr.String())
	}

	journals, _ := app.Store.Journals.List()
	if len(journals) != 2 {
		t.Errorf("journals = %d, want 2", len(journals))
	}
}

func TestShellCommand_CustomTrigger(t *testing.T) {
	app := setupTestApp(t)
	shellCommand = "/import"
	cmd, stdout, _ := newTestCmd("")
	cmd.SetIn(strings.NewReader("/zobs saltmarsh\n/import saltmarsh\n"))

	if err := runShell(app, cmd, nil); err != nil {
		t.Fatalf("runShell failed: %v", err)
	}
	if stdout.String() != "/zobs saltmarsh\n" {
		t.Errorf("passthrough = %q", stdout.String())
	}
	folders, _ := app.Store.Folders.List()
	if len(folders) != 2 {
		t.Errorf("folders = %d, want 2", len(folders))
	}
}

func TestLsCommand(t *testing.T) {
	app := setupTestApp(t)
	importSaltmarsh(t, app)

	cmd, stdout, _ := newTestCmd("json")
	if err := runLs(app, cmd, nil); err != nil {
		t.Fatalf("runLs failed: %v", err)
	}
	var roots []lsEntry
	if err := json.Unmarshal(stdout.Bytes(), &roots); err != nil {
		t.Fatalf("bad JSON: %v", err)
	}
	if len(roots) != 1 || roots[0].Name != "Saltmarsh" || roots[0].Path != "saltmarsh" {
		t.Fatalf("roots = %+v", roots)
	}

	for _, ref := range []string{"npcs", "saltmarsh/npcs", roots[0].ID} {
		cmd, stdout, _ = newTestCmd("json")
		if err := runLs(app, cmd, []string{ref}); err != nil {
			t.Fatalf("runLs %s failed: %v", ref, err)
		}
		var entries []lsEntry
		if err := json.Unmarshal(stdout.Bytes(), &entries); err != nil {
			t.Fatalf("bad JSON: %v", err)
		}
		if ref == roots[0].ID {
			if len(entries) != 1 || entries[0].Path != "saltmarsh/npcs" {
				t.Errorf("ls %s = %+v", ref, entries)
			}
			continue
		}
		if len(entries) != 2 || entries[0].ExternalID != "Skerrit" || entries[1].ExternalID != "Sanbalet" {
			t.Errorf("ls %s = %+v", ref, entries)
		}
	}

	cmd, _, _ = newTestCmd("")
	err := runLs(app, cmd, []string{"saltmarsh/crypt"})
	if code := ExitCode(err); code != 3 {
		t.Errorf("missing folder ExitCode = %d, want 3 (err %v)", code, err)
	}
}

func TestTreeCommand(t *testing.T) {
	app := setupTestApp(t)
	importSaltmarsh(t, app)

	cmd, stdout, _ := newTestCmd("")
	if err := runTree(app, cmd, nil); err != nil {
		t.Fatalf("runTree failed: %v", err)
	}
	out := stdout.String()
	for _, want := range []string{".\n", "└── Saltmarsh/  F-00001", "    └── NPCs/  F-00002", "        ├── Skerrit  J-00001", "        └── Sanbalet  J-00002"} {
		if !strings.Contains(out, want) {
			t.Errorf("tree missing %q:\n%s", want, out)
		}
	}

	treeDepth = 1
	cmd, stdout, _ = newTestCmd("")
	if err := runTree(app, cmd, nil); err != nil {
		t.Fatalf("runTree failed: %v", err)
	}
	if strings.Contains(stdout.String(), "NPCs") {
		t.Errorf("depth 1 should stop at the root folders:\n%s", stdout.String())
	}
}

func TestCatCommand(t *testing.T) {
	app := setupTestApp(t)
	importSaltmarsh(t, app)

	cmd, stdout, _ := newTestCmd("")
	if err := runCat(app, cmd, []string{"Sanbalet"}); err != nil {
		t.Fatalf("runCat failed: %v", err)
	}
	if stdout.String() != "<p>An illusionist.</p>\n" {
		t.Errorf("content = %q", stdout.String())
	}

	catRefs = true
	cmd, stdout, _ = newTestCmd("json")
	if err := runCat(app, cmd, []string{"J-00001"}); err != nil {
		t.Fatalf("runCat --refs failed: %v", err)
	}
	var refs []refRow
	if err := json.Unmarshal(stdout.Bytes(), &refs); err != nil {
		t.Fatalf("bad JSON: %v", err)
	}
	if len(refs) != 1 || refs[0].ExternalID != "Ghost" || refs[0].Resolvable {
		t.Errorf("refs = %+v", refs)
	}
}

func TestLogCommand(t *testing.T) {
	app := setupTestApp(t)
	importSaltmarsh(t, app)

	cmd, stdout, _ := newTestCmd("")
	if err := runLog(app, cmd, []string{"Skerrit"}); err != nil {
		t.Fatalf("runLog failed: %v", err)
	}
	out := stdout.String()
	// created, then updated by the link rewrite
	if !strings.Contains(out, "journal.created") || !strings.Contains(out, "journal.updated") {
		t.Errorf("log missing events:\n%s", out)
	}
	if strings.Index(out, "journal.updated") > strings.Index(out, "journal.created") {
		t.Errorf("log should be newest first:\n%s", out)
	}

	cmd, _, _ = newTestCmd("")
	if err := runLog(app, cmd, []string{"nope"}); ExitCode(err) != 3 {
		t.Errorf("unknown ref should exit 3, got %v", err)
	}
}

func TestLogCommand_Pagination(t *testing.T) {
	app := setupTestApp(t)
	importSaltmarsh(t, app)

	logLimit = 1
	cmd, stdout, stderr := newTestCmd("")
	if err := runLog(app, cmd, []string{"Skerrit"}); err != nil {
		t.Fatalf("runLog failed: %v", err)
	}
	if !strings.Contains(stdout.String(), "journal.updated") || strings.Contains(stdout.String(), "journal.created") {
		t.Errorf("first page should hold only the newest event:\n%s", stdout.String())
	}
	line := strings.TrimSpace(stderr.String())
	if !strings.HasPrefix(line, "next cursor: ") {
		t.Fatalf("expected a next cursor, got %q", line)
	}

	logCursor = strings.TrimPrefix(line, "next cursor: ")
	cmd, stdout, stderr = newTestCmd("")
	if err := runLog(app, cmd, []string{"Skerrit"}); err != nil {
		t.Fatalf("runLog with cursor failed: %v", err)
	}
	if !strings.Contains(stdout.String(), "journal.created") {
		t.Errorf("second page missing journal.created:\n%s", stdout.String())
	}
	if stderr.Len() != 0 {
		t.Errorf("last page should not print a cursor, got %q", stderr.String())
	}

	cmd, _, _ = newTestCmd("")
	if err := runLog(app, cmd, []string{"Sanbalet"}); ExitCode(err) != 2 {
		t.Errorf("cursor for another journal should exit 2, got %v", err)
	}
}

func TestSnapshotDatabase(t *testing.T) {
	app := setupTestApp(t)
	importSaltmarsh(t, app)

	out := filepath.Join(t.TempDir(), "snap.db")
	m, err := snapshotDatabase(app.Config.DBPath, out)
	if err != nil {
		t.Fatalf("snapshotDatabase failed: %v", err)
	}
	if m.Folders != 2 || m.Journals != 2 || m.Events == 0 || m.Migrations == 0 {
		t.Errorf("unexpected manifest: %+v", m)
	}

	var buf bytes.Buffer
	printSnapshotManifest(&buf, m)
	if !strings.Contains(buf.String(), "2 folders, 2 journals") {
		t.Errorf("unexpected summary:\n%s", buf.String())
	}

	if _, err := snapshotDatabase(app.Config.DBPath, out); err == nil || !strings.Contains(err.Error(), "already exists") {
		t.Errorf("expected refusal to overwrite, got %v", err)
	}
	if _, err := snapshotDatabase(filepath.Join(t.TempDir(), "missing.db"), out+"2"); err == nil {
		t.Error("expected error for missing source")
	}
}

func TestMigrationListing(t *testing.T) {
	database, err := db.Open(filepath.Join(t.TempDir(), "fresh.db"))
	if err != nil {
		t.Fatalf("open failed: %v", err)
	}
	defer database.Close()

	var buf bytes.Buffer
	if err := listMigrations(render.NewRenderer(&buf, render.Options{Format: render.FormatJSON}), database, true); err != nil {
		t.Fatalf("listMigrations failed: %v", err)
	}
	var pending []migrationRow
	if err := json.Unmarshal(buf.Bytes(), &pending); err != nil {
		t.Fatalf("bad JSON: %v\n%s", err, buf.String())
	}
	if len(pending) == 0 || pending[0].Applied {
		t.Fatalf("fresh database should list pending migrations, got %+v", pending)
	}

	buf.Reset()
	if err := applyMigrations(&buf, database); err != nil {
		t.Fatalf("applyMigrations failed: %v", err)
	}
	if !strings.Contains(buf.String(), fmt.Sprintf("Applied %d migration(s).", len(pending))) {
		t.Errorf("unexpected apply output:\n%s", buf.String())
	}

	buf.Reset()
	if err := listMigrations(render.NewRenderer(&buf, render.Options{Format: render.FormatTable}), database, false); err != nil {
		t.Fatalf("listMigrations failed: %v", err)
	}
	if strings.Contains(buf.String(), "pending") || !strings.Contains(buf.String(), "applied") {
		t.Errorf("all migrations should be applied:\n%s", buf.String())
	}

	buf.Reset()
	if err := applyMigrations(&buf, database); err != nil {
		t.Fatalf("second applyMigrations failed: %v", err)
	}
	if !strings.Contains(buf.String(), "up to date") {
		t.Errorf("expected up to date, got:\n%s", buf.String())
	}
}

func TestDoctorChecks(t *testing.T) {
	app := setupTestApp(t)
	importSaltmarsh(t, app)

	report := runDoctorChecks(app.Config.DBPath)
	if report.Errors != 0 {
		t.Fatalf("unexpected errors: %+v", report.Checks)
	}
	var pending *checkResultAdm
	for i := range report.Checks {
		if report.Checks[i].Name == "pending_links" {
			pending = &report.Checks[i]
		}
	}
	if pending == nil || pending.Status != "warning" {
		t.Fatalf("pending_links = %+v", pending)
	}
	if len(pending.Details) != 1 || !strings.Contains(pending.Details[0], "Ghost") {
		t.Errorf("details = %v", pending.Details)
	}

	missing := runDoctorChecks(app.Config.DBPath + ".missing")
	if missing.OverallStatus != "error" {
		t.Errorf("missing database should be an error, got %s", missing.OverallStatus)
	}
}

func TestDiagnoseConfig(t *testing.T) {
	cfg := &config.Config{
		DBPath:         "/nonexistent/advimport.db",
		ImportsDir:     t.TempDir(),
		ImportsURL:     "ftp://example.com/imports",
		TriggerCommand: "/zobs now",
		DefaultActor:   "importer",
		LogLevel:       "loud",
		Output:         "json",
		WebhookURLs:    []string{"http://example.com/hook", "not a url"},
	}
	t.Setenv("ADVIMPORT_ACTOR", "")

	report := diagnoseConfig(cfg, false)
	invalid := map[string]bool{}
	for _, v := range report.Config {
		if !v.Valid {
			invalid[v.Key] = true
		}
	}
	for _, key := range []string{"db_path", "imports_url", "trigger_command", "log_level", "webhook_urls"} {
		if !invalid[key] {
			t.Errorf("%s should be invalid", key)
		}
	}
	for _, key := range []string{"imports_dir", "actor", "output", "defer_parents"} {
		if invalid[key] {
			t.Errorf("%s should be valid", key)
		}
	}
	if len(report.Warnings) != len(invalid) {
		t.Errorf("warnings = %d, want %d", len(report.Warnings), len(invalid))
	}
}

func TestWhoamiCommand(t *testing.T) {
	app := setupTestApp(t)
	t.Setenv("ADVIMPORT_ACTOR", "")

	cmd, stdout, _ := newTestCmd("")
	if err := runWhoami(app, cmd, nil); err != nil {
		t.Fatalf("runWhoami failed: %v", err)
	}
	if stdout.String() != "test-actor (config default_actor)\n" {
		t.Errorf("unexpected output %q", stdout.String())
	}

	whoamiJSON = true
	cmd, stdout, _ = newTestCmd("")
	cmd.Flags().Set("as", "test-actor")
	if err := runWhoami(app, cmd, nil); err != nil {
		t.Fatalf("runWhoami failed: %v", err)
	}
	var got map[string]string
	if err := json.Unmarshal(stdout.Bytes(), &got); err != nil {
		t.Fatalf("bad JSON: %v", err)
	}
	if got["actor"] != "test-actor" || got["source"] != "command-line flag --as" {
		t.Errorf("unexpected whoami JSON: %v", got)
	}
}

func TestPrintVersion(t *testing.T) {
	var buf bytes.Buffer
	if err := printVersion(&buf, "advimport", false, nil); err != nil {
		t.Fatalf("printVersion failed: %v", err)
	}
	if !strings.HasPrefix(buf.String(), "advimport version "+Version+"\n") {
		t.Errorf("unexpected text output:\n%s", buf.String())
	}

	buf.Reset()
	if err := printVersion(&buf, "advimportadm", true, []string{"init", "migrate"}); err != nil {
		t.Fatalf("printVersion failed: %v", err)
	}
	var got struct {
		Binary   string   `json:"binary"`
		Commands []string `json:"supported_commands"`
	}
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("bad JSON: %v", err)
	}
	if got.Binary != "advimportadm" || len(got.Commands) != 2 {
		t.Errorf("unexpected version JSON: %+v", got)
	}
}

func TestExitCode(t *testing.T) {
	if ExitCode(nil) != 0 {
		t.Error("nil error should exit 0")
	}
	if ExitCode(errors.New("plain")) != 1 {
		t.Error("plain error should exit 1")
	}
	wrapped := errors.Join(errors.New("context"), exitError(3, errors.New("missing")))
	if ExitCode(wrapped) != 3 {
		t.Error("wrapped exit error should keep its code")
	}
}
