package resolving

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/contre95/snapsaver/src/features/notifying"
	"github.com/contre95/snapsaver/src/infra/files"
	"github.com/contre95/snapsaver/src/infra/suppress"
	"github.com/contre95/snapsaver/src/media"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countingFiles wraps a FileManager and counts calls. copyErr makes Copy fail.
// When marks is set, every Rename or Copy target not yet marked lands in unmarked.
type countingFiles struct {
	media.FileManager
	mu       sync.Mutex
	calls    []string
	copyErr  error
	marks    *suppress.Set
	unmarked []string
}

func (c *countingFiles) Rename(src, dst string) error {
	c.add("rename")
	c.checkMarked(dst)
	return c.FileManager.Rename(src, dst)
}

func (c *countingFiles) Copy(src, dst string) error {
	c.add("copy")
	c.checkMarked(dst)
	if c.copyErr != nil {
		return c.copyErr
	}
	return c.FileManager.Copy(src, dst)
}

func (c *countingFiles) Delete(path string) error {
	c.add("delete")
	return c.FileManager.Delete(path)
}

func (c *countingFiles) checkMarked(path string) {
	if c.marks == nil || c.marks.Contains(path) {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.unmarked = append(c.unmarked, path)
}

func (c *countingFiles) add(op string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = append(c.calls, op)
}

type staticConfig struct {
	cfg media.WatchConfiguration
}

func (s staticConfig) Snapshot(ctx context.Context) (media.WatchConfiguration, error) {
	return s.cfg, nil
}

type fakePending struct {
	mu   sync.Mutex
	file *media.DetectedFile
}

func (f *fakePending) set(path string) media.DetectedFile {
	f.mu.Lock()
	defer f.mu.Unlock()
	file := media.NewDetectedFile(path)
	f.file = &file
	return file
}

func (f *fakePending) Lookup(id string) (media.DetectedFile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.file == nil {
		return media.DetectedFile{}, media.ErrNoPendingFile
	}
	if id != "" && id != f.file.ID {
		return media.DetectedFile{}, media.ErrStaleDecision
	}
	return *f.file, nil
}

func (f *fakePending) ClearPending(id string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.file != nil && f.file.ID == id {
		f.file = nil
	}
}

type fakePublisher struct {
	mu   sync.Mutex
	sent []notifying.Notification
}

func (f *fakePublisher) Publish(n notifying.Notification) notifying.Notification {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, n)
	return n
}

func (f *fakePublisher) last() notifying.Notification {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sent[len(f.sent)-1]
}

type memHistory struct {
	mu      sync.Mutex
	records []media.Record
}

func (m *memHistory) AddRecord(ctx context.Context, record media.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append(m.records, record)
	return nil
}

func (m *memHistory) ListRecords(ctx context.Context, limit int) ([]media.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]media.Record, 0, len(m.records))
	for i := len(m.records) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, m.records[i])
	}
	return out, nil
}

type fixture struct {
	service    *Service
	files      *countingFiles
	suppressed *suppress.Set
	pending    *fakePending
	publisher  *fakePublisher
	history    *memHistory
	watchDir   string
	saveDir    string
	copyDir    string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	root := t.TempDir()
	f := &fixture{
		files:      &countingFiles{FileManager: files.NewOrganizer()},
		suppressed: suppress.NewSet(suppress.DefaultWindow, nil),
		pending:    &fakePending{},
		publisher:  &fakePublisher{},
		history:    &memHistory{},
		watchDir:   filepath.Join(root, "watch"),
		saveDir:    filepath.Join(root, "save"),
		copyDir:    filepath.Join(root, "copy"),
	}
	f.files.marks = f.suppressed
	for _, dir := range []string{f.watchDir, f.saveDir, f.copyDir} {
		require.NoError(t, os.MkdirAll(dir, 0o755))
	}
	cfg := staticConfig{cfg: media.WatchConfiguration{WatchPath: f.watchDir, SavePath: f.saveDir, CopyPath: f.copyDir}}
	f.service = NewService(f.files, f.suppressed, cfg, f.pending, f.publisher, f.history, nil, nil)
	return f
}

func (f *fixture) write(t *testing.T, name string) string {
	t.Helper()
	path := filepath.Join(f.watchDir, name)
	require.NoError(t, os.WriteFile(path, []byte("image bytes"), 0o644))
	return path
}

func entries(t *testing.T, dir string) []string {
	t.Helper()
	list, err := os.ReadDir(dir)
	require.NoError(t, err)
	names := make([]string, 0, len(list))
	for _, e := range list {
		names = append(names, e.Name())
	}
	return names
}

func TestRenameKeepsSourceExtension(t *testing.T) {
	f := newFixture(t)
	src := f.write(t, "IMG_001.MOV")

	outcome, err := f.service.Resolve(context.Background(), src, media.Rename("vacation.mp4"))
	require.NoError(t, err)

	assert.Equal(t, []string{"vacation.MOV"}, entries(t, f.watchDir))
	assert.Equal(t, filepath.Join(f.watchDir, "vacation.MOV"), outcome.RenamedPath)
	assert.Equal(t, "File renamed to vacation.MOV", outcome.Message)
	assert.True(t, f.suppressed.Contains(outcome.RenamedPath))
	assert.Equal(t, notifying.KindSuccess, f.publisher.last().Kind)
}

func TestRenameOntoExistingTargetFails(t *testing.T) {
	f := newFixture(t)
	src := f.write(t, "IMG_002.jpg")
	f.write(t, "taken.jpg")

	_, err := f.service.Resolve(context.Background(), src, media.Rename("taken"))
	assert.ErrorIs(t, err, media.ErrRename)
	assert.ErrorIs(t, err, os.ErrExist)
	assert.ElementsMatch(t, []string{"IMG_002.jpg", "taken.jpg"}, entries(t, f.watchDir))
	assert.Equal(t, notifying.KindError, f.publisher.last().Kind)
	// Marks outlive the failure and expire with the window.
	assert.True(t, f.suppressed.Contains(filepath.Join(f.watchDir, "taken.jpg")))
}

func TestRenameMissingSourceFails(t *testing.T) {
	f := newFixture(t)
	_, err := f.service.Resolve(context.Background(), filepath.Join(f.watchDir, "gone.png"), media.Rename("x"))
	assert.ErrorIs(t, err, media.ErrRename)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestCopyMoveLeavesExactlyOneCopy(t *testing.T) {
	f := newFixture(t)
	src := f.write(t, "IMG_003.png")

	outcome, err := f.service.Resolve(context.Background(), src, media.CopyMove("beach", f.saveDir))
	require.NoError(t, err)

	assert.Empty(t, entries(t, f.watchDir))
	assert.Equal(t, []string{"beach.png"}, entries(t, f.saveDir))
	assert.Equal(t, filepath.Join(f.saveDir, "beach.png"), outcome.DestPath)
	assert.Equal(t, "File moved to beach.png", outcome.Message)
	assert.Equal(t, []string{"rename", "copy", "delete"}, f.files.calls)
}

func TestCopyKeepKeepsRenamedOriginal(t *testing.T) {
	f := newFixture(t)
	src := f.write(t, "IMG_004.gif")

	outcome, err := f.service.Resolve(context.Background(), src, media.CopyKeep("cat", ""))
	require.NoError(t, err)

	assert.Equal(t, []string{"cat.gif"}, entries(t, f.watchDir))
	assert.Equal(t, []string{"cat.gif"}, entries(t, f.copyDir))
	assert.Equal(t, "File copied to cat.gif", outcome.Message)
	assert.True(t, f.suppressed.Contains(filepath.Join(f.watchDir, "cat.gif")))
	assert.True(t, f.suppressed.Contains(filepath.Join(f.copyDir, "cat.gif")))
}

func TestCopyMessageNamesDestinationBasename(t *testing.T) {
	f := newFixture(t)
	src := f.write(t, "IMG_001.MOV")

	outcome, err := f.service.Resolve(context.Background(), src, media.CopyKeep("vacation", ""))
	require.NoError(t, err)
	assert.Equal(t, "File copied to vacation.MOV", outcome.Message)
	assert.Equal(t, "File copied to vacation.MOV", f.publisher.last().Message)
}

func TestTargetsAreMarkedBeforeMutation(t *testing.T) {
	for _, decision := range []media.Decision{
		media.Rename("lake"),
		media.CopyKeep("lake", ""),
		media.CopyMove("lake", ""),
	} {
		t.Run(string(decision.Kind), func(t *testing.T) {
			f := newFixture(t)
			src := f.write(t, "IMG_020.jpg")

			_, err := f.service.Resolve(context.Background(), src, decision)
			require.NoError(t, err)
			assert.NotEmpty(t, f.files.calls)
			assert.Empty(t, f.files.unmarked)
		})
	}
}

func TestRelativeDestinationIsResolvedAndMarked(t *testing.T) {
	f := newFixture(t)
	wd, err := os.Getwd()
	require.NoError(t, err)
	rel, err := filepath.Rel(wd, f.copyDir)
	require.NoError(t, err)
	src := f.write(t, "IMG_021.jpg")

	outcome, err := f.service.Resolve(context.Background(), src, media.CopyKeep("harbor", rel))
	require.NoError(t, err)

	dest := filepath.Join(f.copyDir, "harbor.jpg")
	assert.Equal(t, dest, outcome.DestPath)
	assert.True(t, filepath.IsAbs(outcome.DestPath))
	assert.True(t, f.suppressed.Contains(dest))
	assert.Empty(t, f.files.unmarked)
}

func TestInvalidDestinationIsConfigurationError(t *testing.T) {
	f := newFixture(t)
	notDir := f.write(t, "notes.txt")
	for name, dir := range map[string]string{
		"missing":       filepath.Join(f.copyDir, "nope"),
		"not directory": notDir,
	} {
		t.Run(name, func(t *testing.T) {
			src := f.write(t, "IMG_022.jpg")

			_, err := f.service.Resolve(context.Background(), src, media.CopyMove("pier", dir))
			assert.ErrorIs(t, err, media.ErrConfiguration)
			assert.Empty(t, f.files.calls)
			assert.Equal(t, 0, f.suppressed.Len())
			assert.FileExists(t, src)
		})
	}
}

func TestSaveAlreadyInPlaceIsReported(t *testing.T) {
	f := newFixture(t)
	src := filepath.Join(f.saveDir, "beach.png")
	require.NoError(t, os.WriteFile(src, []byte("image bytes"), 0o644))

	outcome, err := f.service.Resolve(context.Background(), src, media.CopyMove("beach", ""))
	require.NoError(t, err)
	assert.Equal(t, "File already saved as beach.png", outcome.Message)
	assert.Equal(t, []string{"rename"}, f.files.calls)
	assert.Equal(t, []string{"beach.png"}, entries(t, f.saveDir))
}

func TestCopyMoveDefaultsToSaveFolder(t *testing.T) {
	f := newFixture(t)
	src := f.write(t, "IMG_005.jpeg")

	_, err := f.service.Resolve(context.Background(), src, media.CopyMove("dog", ""))
	require.NoError(t, err)
	assert.Equal(t, []string{"dog.jpeg"}, entries(t, f.saveDir))
}

func TestCopyFailureLeavesRenamedFileOnly(t *testing.T) {
	for _, decision := range []media.Decision{
		media.CopyKeep("party", ""),
		media.CopyMove("party", ""),
	} {
		t.Run(string(decision.Kind), func(t *testing.T) {
			f := newFixture(t)
			f.files.copyErr = errors.New("no space left on device")
			src := f.write(t, "IMG_006.jpg")

			_, err := f.service.Resolve(context.Background(), src, decision)
			assert.ErrorIs(t, err, media.ErrCopy)

			assert.Equal(t, []string{"party.jpg"}, entries(t, f.watchDir))
			assert.Empty(t, entries(t, f.saveDir))
			assert.Empty(t, entries(t, f.copyDir))
			assert.Equal(t, []string{"rename", "copy"}, f.files.calls)
		})
	}
}

func TestCopyIntoUnwritableFolderLeavesNoDestination(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("root ignores directory permissions")
	}
	f := newFixture(t)
	locked := filepath.Join(t.TempDir(), "locked")
	require.NoError(t, os.Mkdir(locked, 0o555))
	src := f.write(t, "IMG_007.png")

	_, err := f.service.Resolve(context.Background(), src, media.CopyMove("sunset", locked))
	assert.ErrorIs(t, err, media.ErrCopy)
	assert.Equal(t, []string{"sunset.png"}, entries(t, f.watchDir))
	assert.Empty(t, entries(t, locked))
}

func TestCopyWithoutDestinationIsConfigurationError(t *testing.T) {
	f := newFixture(t)
	f.service.config = staticConfig{}
	src := f.write(t, "IMG_008.png")

	_, err := f.service.Resolve(context.Background(), src, media.CopyKeep("x", ""))
	assert.ErrorIs(t, err, media.ErrConfiguration)
	assert.Empty(t, f.files.calls)
	assert.Equal(t, []string{"IMG_008.png"}, entries(t, f.watchDir))
	assert.Equal(t, 0, f.suppressed.Len())
}

func TestEmptyNameIsConfigurationError(t *testing.T) {
	f := newFixture(t)
	src := f.write(t, "IMG_009.png")

	_, err := f.service.Resolve(context.Background(), src, media.Rename(".png"))
	assert.ErrorIs(t, err, media.ErrConfiguration)
	assert.Empty(t, f.files.calls)
}

func TestDeleteTwiceSurfacesDeleteError(t *testing.T) {
	f := newFixture(t)
	src := f.write(t, "IMG_010.mov")

	outcome, err := f.service.Resolve(context.Background(), src, media.Delete())
	require.NoError(t, err)
	assert.Equal(t, "File deleted successfully", outcome.Message)
	assert.Empty(t, entries(t, f.watchDir))
	assert.Equal(t, []string{"delete"}, f.files.calls)
	assert.Equal(t, 0, f.suppressed.Len())

	_, err = f.service.Resolve(context.Background(), src, media.Delete())
	assert.ErrorIs(t, err, media.ErrDelete)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestDismissTouchesNothing(t *testing.T) {
	f := newFixture(t)
	src := f.write(t, "IMG_011.jpg")
	file := f.pending.set(src)

	outcome, err := f.service.ResolvePending(context.Background(), file.ID, media.Dismiss())
	require.NoError(t, err)
	assert.Equal(t, "File dismissed", outcome.Message)
	assert.Empty(t, f.files.calls)
	assert.Equal(t, []string{"IMG_011.jpg"}, entries(t, f.watchDir))

	_, err = f.pending.Lookup("")
	assert.ErrorIs(t, err, media.ErrNoPendingFile)
}

func TestResolvePendingRejectsStaleAndMissing(t *testing.T) {
	f := newFixture(t)

	_, err := f.service.ResolvePending(context.Background(), "", media.Delete())
	assert.ErrorIs(t, err, media.ErrNoPendingFile)

	f.pending.set(f.write(t, "IMG_012.jpg"))
	_, err = f.service.ResolvePending(context.Background(), "old-id", media.Delete())
	assert.ErrorIs(t, err, media.ErrStaleDecision)
	assert.Empty(t, f.files.calls)
	assert.Equal(t, notifying.KindError, f.publisher.last().Kind)
}

func TestResolvePendingKeepsFileAfterUserError(t *testing.T) {
	f := newFixture(t)
	file := f.pending.set(f.write(t, "IMG_013.jpg"))

	_, err := f.service.ResolvePending(context.Background(), file.ID, media.Rename("   "))
	assert.ErrorIs(t, err, media.ErrConfiguration)
	_, err = f.pending.Lookup(file.ID)
	assert.NoError(t, err)

	_, err = f.service.ResolvePending(context.Background(), file.ID, media.Rename("fixed"))
	require.NoError(t, err)
	_, err = f.pending.Lookup("")
	assert.ErrorIs(t, err, media.ErrNoPendingFile)
}

func TestDeleteFileClearsMatchingPending(t *testing.T) {
	f := newFixture(t)
	src := f.write(t, "IMG_014.png")
	f.pending.set(src)

	_, err := f.service.DeleteFile(context.Background(), src)
	require.NoError(t, err)
	_, err = f.pending.Lookup("")
	assert.ErrorIs(t, err, media.ErrNoPendingFile)

	_, err = f.service.DeleteFile(context.Background(), "")
	assert.ErrorIs(t, err, media.ErrConfiguration)
}

func TestHistoryRecordsOutcomes(t *testing.T) {
	f := newFixture(t)
	src := f.write(t, "IMG_015.png")

	_, err := f.service.Resolve(context.Background(), src, media.Rename("one"))
	require.NoError(t, err)
	_, err = f.service.Resolve(context.Background(), src, media.Delete())
	require.Error(t, err)

	records, err := f.service.History(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.True(t, records[0].Failed)
	assert.Equal(t, media.DecisionDelete, records[0].Decision)
	assert.False(t, records[1].Failed)
	assert.Equal(t, filepath.Join(f.watchDir, "one.png"), records[1].ResultPath)
}

func TestAsciifyIsReadPerDecision(t *testing.T) {
	f := newFixture(t)
	asciify := false
	f.service.asciify = func() bool { return asciify }

	src := f.write(t, "IMG_016.jpg")
	asciify = true
	_, err := f.service.Resolve(context.Background(), src, media.Rename("Café"))
	require.NoError(t, err)
	assert.Equal(t, []string{"Cafe.jpg"}, entries(t, f.watchDir))
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, 409, statusFor(media.ErrNoPendingFile))
	assert.Equal(t, 409, statusFor(media.ErrStaleDecision))
	assert.Equal(t, 400, statusFor(media.ErrConfiguration))
	assert.Equal(t, 500, statusFor(media.ErrCopy))
}

func TestParseCallback(t *testing.T) {
	action, id, ok := parseCallback("resolve_copymove_0b6f7c2e-1d2a-4c55-9a0e-2f1b3c4d5e6f")
	require.True(t, ok)
	assert.Equal(t, actionCopyMove, action)
	assert.Equal(t, "0b6f7c2e-1d2a-4c55-9a0e-2f1b3c4d5e6f", id)
	assert.LessOrEqual(t, len("resolve_copymove_0b6f7c2e-1d2a-4c55-9a0e-2f1b3c4d5e6f"), 64)

	_, _, ok = parseCallback("menu_back")
	assert.False(t, ok)
	_, _, ok = parseCallback("resolve_save")
	assert.False(t, ok)
}
