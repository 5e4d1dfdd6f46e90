package app

import (
	"bytes"
	"errors"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FengZhongShaoNian/sticky/internal/events"
	"github.com/FengZhongShaoNian/sticky/internal/geometry"
	"github.com/FengZhongShaoNian/sticky/internal/hotkeys"
	"github.com/FengZhongShaoNian/sticky/internal/imagecodec"
	"github.com/FengZhongShaoNian/sticky/internal/ipc"
	"github.com/FengZhongShaoNian/sticky/internal/source"
	"github.com/FengZhongShaoNian/sticky/internal/windows"
)

type fakeManager struct {
	mu      sync.Mutex
	counter windows.Counter
	images  map[windows.Identity]*imagecodec.Image
	paths   map[windows.Identity]string
	sizes   map[windows.Identity]geometry.Size
	openErr error
}

func newFakeManager() *fakeManager {
	return &fakeManager{
		images: map[windows.Identity]*imagecodec.Image{},
		paths:  map[windows.Identity]string{},
		sizes:  map[windows.Identity]geometry.Size{},
	}
}

func (m *fakeManager) Open(img *imagecodec.Image, path string) (windows.Identity, error) {
	if m.openErr != nil {
		return "", m.openErr
	}
	id := m.counter.Next()
	m.mu.Lock()
	defer m.mu.Unlock()
	m.images[id] = img
	m.paths[id] = path
	return id, nil
}

func (m *fakeManager) Close(id windows.Identity) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.images[id]; !ok {
		return windows.ErrUnknownWindow
	}
	delete(m.images, id)
	return nil
}

func (m *fakeManager) CloseAll() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.images = map[windows.Identity]*imagecodec.Image{}
	return nil
}

func (m *fakeManager) List() []windows.Info {
	m.mu.Lock()
	defer m.mu.Unlock()
	infos := make([]windows.Info, 0, len(m.images))
	for id, img := range m.images {
		infos = append(infos, windows.Info{Identity: id, Path: m.paths[id], MIMEType: img.MIMEType})
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Identity < infos[j].Identity })
	return infos
}

func (m *fakeManager) SetFixedSize(id windows.Identity, logical geometry.Size) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.images[id]; !ok {
		return windows.ErrUnknownWindow
	}
	m.sizes[id] = logical
	return nil
}

func (m *fakeManager) Image(id windows.Identity) (*imagecodec.Image, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	img, ok := m.images[id]
	return img, ok
}

func (m *fakeManager) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.images)
}

type fakeResolver struct {
	result source.Result
	calls  []string
}

func (r *fakeResolver) ResolveDetailed(path string) source.Result {
	r.calls = append(r.calls, path)
	return r.result
}

type fakeClipboard struct {
	mu      sync.Mutex
	written []*imagecodec.Image
	err     error
}

func (c *fakeClipboard) WriteImage(img *imagecodec.Image) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return c.err
	}
	c.written = append(c.written, img)
	return nil
}

type fakeNotifier struct {
	mu     sync.Mutex
	events []string
}

func (n *fakeNotifier) add(s string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, s)
	return nil
}

func (n *fakeNotifier) Saved(path string) error             { return n.add("saved:" + filepath.Base(path)) }
func (n *fakeNotifier) Copied() error                       { return n.add("copied") }
func (n *fakeNotifier) Failed(action string, _ error) error { return n.add("failed:" + action) }
func (n *fakeNotifier) FellBack(path, _ string) error       { return n.add("fellback:" + path) }

func (n *fakeNotifier) snapshot() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.events...)
}

type fixture struct {
	app       *App
	manager   *fakeManager
	resolver  *fakeResolver
	clipboard *fakeClipboard
	notifier  *fakeNotifier
	bus       *events.Bus
	quits     *int
}

func pngImage(t *testing.T, w, h int) *imagecodec.Image {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewNRGBA(image.Rect(0, 0, w, h))))
	img, err := imagecodec.Decode(buf.Bytes())
	require.NoError(t, err)
	return img
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		manager:   newFakeManager(),
		resolver:  &fakeResolver{},
		clipboard: &fakeClipboard{},
		notifier:  &fakeNotifier{},
		bus:       events.NewBus(4),
		quits:     new(int),
	}
	t.Cleanup(f.bus.Close)

	a, err := New(Config{
		Manager:       f.manager,
		Resolver:      f.resolver,
		Clipboard:     f.clipboard,
		Notifier:      f.notifier,
		Events:        f.bus,
		SaveDir:       filepath.Join(t.TempDir(), "Pictures"),
		ScaleOverride: "2",
		Version:       "test",
		Quit:          func() { *f.quits++ },
	})
	require.NoError(t, err)
	a.now = func() time.Time { return time.Date(2026, 10, 19, 17, 40, 5, 0, time.UTC) }
	f.app = a
	return f
}

func TestNew_RequiresCollaborators(t *testing.T) {
	_, err := New(Config{})
	assert.Error(t, err)

	_, err = New(Config{Manager: newFakeManager()})
	assert.Error(t, err)

	_, err = New(Config{Manager: newFakeManager(), Resolver: &fakeResolver{}})
	assert.Error(t, err)
}

func TestOpenPath_File(t *testing.T) {
	f := newFixture(t)
	img := pngImage(t, 4, 4)
	f.resolver.result = source.Result{Image: img, Origin: source.OriginFile, Path: "/p/a.png"}

	res := f.app.OpenPath("/p/a.png")
	require.NoError(t, res.Err)
	assert.Equal(t, windows.Identity("main-0"), res.Identity)
	assert.Equal(t, source.OriginFile, res.Origin)
	assert.Equal(t, "/p/a.png", f.manager.paths["main-0"])
	assert.Empty(t, f.notifier.snapshot())
}

func TestOpenPath_FallbackIsNotified(t *testing.T) {
	f := newFixture(t)
	f.resolver.result = source.Result{
		Image:          pngImage(t, 2, 2),
		Origin:         source.OriginClipboard,
		FallbackReason: "no such file",
	}

	res := f.app.OpenPath("/missing.png")
	require.NoError(t, res.Err)
	assert.Equal(t, source.OriginClipboard, res.Origin)
	assert.Equal(t, []string{"fellback:/missing.png"}, f.notifier.snapshot())
	// Clipboard images have no source path.
	assert.Equal(t, "", f.manager.paths[res.Identity])
}

func TestOpenPath_NothingAvailableIsNoop(t *testing.T) {
	f := newFixture(t)
	f.resolver.result = source.Result{Origin: source.OriginNone}

	res := f.app.OpenPath("")
	assert.NoError(t, res.Err)
	assert.Equal(t, source.OriginNone, res.Origin)
	assert.Equal(t, 0, f.manager.Count())
}

func TestOpenPath_ManagerErrorIsReturned(t *testing.T) {
	f := newFixture(t)
	f.resolver.result = source.Result{Image: pngImage(t, 1, 1), Origin: source.OriginClipboard}
	f.manager.openErr = errors.New("no display")

	res := f.app.OpenPath("")
	assert.EqualError(t, res.Err, "no display")
}

func TestOpenAsync(t *testing.T) {
	f := newFixture(t)
	f.resolver.result = source.Result{Image: pngImage(t, 1, 1), Origin: source.OriginClipboard}

	select {
	case res := <-f.app.OpenAsync(""):
		require.NoError(t, res.Err)
		assert.Equal(t, windows.Identity("main-0"), res.Identity)
	case <-time.After(2 * time.Second):
		t.Fatal("OpenAsync did not deliver a result")
	}
}

func TestOpen_ForwardedInvocationResolvesAgainstCwd(t *testing.T) {
	f := newFixture(t)
	f.resolver.result = source.Result{Image: pngImage(t, 1, 1), Origin: source.OriginFile, Path: "/home/u/a.png"}

	data, err := f.app.Open(ipc.OpenPayload{Args: []string{"a.png"}, Cwd: "/home/u"})
	require.NoError(t, err)
	assert.Equal(t, []string{"/home/u/a.png"}, f.resolver.calls)
	assert.Equal(t, "main-0", data.Identity)
	assert.Equal(t, "file", data.Origin)

	_, err = f.app.Open(ipc.OpenPayload{Args: []string{"a.png", "b.png"}, Cwd: "/"})
	assert.Error(t, err)
}

func TestCopyWindow(t *testing.T) {
	f := newFixture(t)
	img := pngImage(t, 3, 3)
	id, err := f.manager.Open(img, "")
	require.NoError(t, err)

	require.NoError(t, f.app.CopyWindow(id))
	assert.Equal(t, []*imagecodec.Image{img}, f.clipboard.written)
	assert.Equal(t, []string{"copied"}, f.notifier.snapshot())

	assert.ErrorIs(t, f.app.CopyWindow("main-99"), windows.ErrUnknownWindow)
}

func TestCopyWindow_FailureIsNotified(t *testing.T) {
	f := newFixture(t)
	f.clipboard.err = errors.New("no clipboard owner")
	id, err := f.manager.Open(pngImage(t, 1, 1), "")
	require.NoError(t, err)

	assert.Error(t, f.app.CopyWindow(id))
	assert.Equal(t, []string{"failed:copy image"}, f.notifier.snapshot())
}

func TestSaveWindow(t *testing.T) {
	f := newFixture(t)
	img := pngImage(t, 5, 5)
	id, err := f.manager.Open(img, "")
	require.NoError(t, err)

	first, err := f.app.SaveWindow(id)
	require.NoError(t, err)
	assert.Equal(t, "sticky-20261019-174005.png", filepath.Base(first))

	data, err := os.ReadFile(first)
	require.NoError(t, err)
	assert.Equal(t, img.Bytes, data)

	// Same second: the name gets a counter instead of overwriting.
	second, err := f.app.SaveWindow(id)
	require.NoError(t, err)
	assert.Equal(t, "sticky-20261019-174005-1.png", filepath.Base(second))

	assert.Equal(t, []string{
		"saved:sticky-20261019-174005.png",
		"saved:sticky-20261019-174005-1.png",
	}, f.notifier.snapshot())
}

func TestWriteImage(t *testing.T) {
	f := newFixture(t)
	img := pngImage(t, 2, 3)
	path := filepath.Join(t.TempDir(), "out.png")

	require.NoError(t, f.app.WriteImage(path, imagecodec.EncodeTransport(img)))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, img.Bytes, data)

	// Bare base64 is accepted too.
	require.NoError(t, f.app.WriteImage(path, "AQID"))
	data, err = os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3}, data)

	err = f.app.WriteImage(path, "***")
	assert.ErrorIs(t, err, imagecodec.ErrInvalidEncoding)

	err = f.app.WriteImage(filepath.Join(t.TempDir(), "missing", "x.png"), "AQID")
	assert.Error(t, err)
}

func TestReadImage(t *testing.T) {
	f := newFixture(t)
	img := pngImage(t, 7, 2)
	path := filepath.Join(t.TempDir(), "in.png")
	require.NoError(t, os.WriteFile(path, img.Bytes, 0o644))

	got, err := f.app.ReadImage(path)
	require.NoError(t, err)
	assert.Equal(t, img.Dimensions, got.Dimensions)

	_, err = f.app.ReadImage(filepath.Join(t.TempDir(), "nope.png"))
	assert.ErrorIs(t, err, imagecodec.ErrIO)
}

func TestCopyImage(t *testing.T) {
	f := newFixture(t)
	img := pngImage(t, 2, 2)

	require.NoError(t, f.app.CopyImage(imagecodec.EncodeTransport(img)))
	require.Len(t, f.clipboard.written, 1)
	assert.Equal(t, img.Bytes, f.clipboard.written[0].Bytes)

	assert.Error(t, f.app.CopyImage("AQID"))
}

func TestSetFixedSizeAndClose(t *testing.T) {
	f := newFixture(t)
	id, err := f.manager.Open(pngImage(t, 1, 1), "")
	require.NoError(t, err)

	require.NoError(t, f.app.SetFixedSize(ipc.SetFixedSizePayload{Identity: string(id), Width: 20, Height: 10}))
	assert.Equal(t, geometry.Size{Width: 20, Height: 10}, f.manager.sizes[id])

	assert.Error(t, f.app.SetFixedSize(ipc.SetFixedSizePayload{Identity: "bogus", Width: 1, Height: 1}))

	require.NoError(t, f.app.CloseWindow(id))
	assert.Empty(t, f.app.ListWindows())
}

func TestEmitPublishesOnBus(t *testing.T) {
	f := newFixture(t)

	require.NoError(t, f.app.Emit(events.Ready{Identity: "main-4"}))
	select {
	case m := <-f.bus.Messages():
		assert.Equal(t, events.Ready{Identity: "main-4"}, m)
	case <-time.After(time.Second):
		t.Fatal("message not published")
	}

	f.bus.Close()
	assert.ErrorIs(t, f.app.Emit(events.Ready{Identity: "main-5"}), events.ErrBusClosed)
}

type fixedPending int

func (p fixedPending) Armed() int { return int(p) }

func TestStatus(t *testing.T) {
	f := newFixture(t)
	f.app.pending = fixedPending(2)
	_, err := f.manager.Open(pngImage(t, 1, 1), "")
	require.NoError(t, err)

	st := f.app.Status()
	assert.Equal(t, os.Getpid(), st.PID)
	assert.Equal(t, "test", st.Version)
	assert.Equal(t, 1, st.OpenWindows)
	assert.Equal(t, 2, st.PendingDeliveries)
	assert.Equal(t, "2", st.ScaleOverride)
}

func TestQuitRunsOnce(t *testing.T) {
	f := newFixture(t)
	f.app.Quit()
	f.app.Quit()
	assert.Equal(t, 1, *f.quits)
}

func TestHandleAction(t *testing.T) {
	f := newFixture(t)
	id, err := f.manager.Open(pngImage(t, 1, 1), "")
	require.NoError(t, err)

	f.app.HandleAction(string(id), hotkeys.ActionCopy)
	f.app.HandleAction(string(id), hotkeys.ActionSave)
	f.app.HandleAction("not-a-window", hotkeys.ActionSave)
	f.app.wg.Wait()

	got := f.notifier.snapshot()
	sort.Strings(got)
	assert.Equal(t, []string{"copied", "saved:sticky-20261019-174005.png"}, got)

	f.app.HandleAction(string(id), hotkeys.ActionClose)
	f.app.wg.Wait()
	assert.Equal(t, 0, f.manager.Count())
}

func TestShutdownClosesEverything(t *testing.T) {
	f := newFixture(t)
	for i := 0; i < 3; i++ {
		_, err := f.manager.Open(pngImage(t, 1, 1), "")
		require.NoError(t, err)
	}
	require.NoError(t, f.app.Shutdown())
	assert.Equal(t, 0, f.manager.Count())
}

var _ Publisher = (*events.Bus)(nil)
