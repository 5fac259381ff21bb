package avatar_test

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/png"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/flashpaperhq/flashpaper/internal/avatar"
	"github.com/flashpaperhq/flashpaper/internal/store"
)

type fakeStore struct {
	user store.User
	ref  store.AvatarRef
	sets int
}

func newFakeStore() *fakeStore {
	return &fakeStore{user: store.User{ID: uuid.New(), Username: "alice"}}
}

func (f *fakeStore) GetUserByUsername(_ context.Context, username string) (store.User, error) {
	if username != f.user.Username {
		return store.User{}, store.ErrNotFound
	}
	return f.user, nil
}

func (f *fakeStore) GetStatus(_ context.Context, _ uuid.UUID) (store.StatusRecord, store.AvatarRef, error) {
	return store.StatusRecord{}, f.ref, nil
}

func (f *fakeStore) SetAvatar(_ context.Context, _ uuid.UUID, location string, cacheKey int64, now time.Time) (time.Time, error) {
	f.sets++
	f.ref = store.AvatarRef{Location: location, CacheKey: cacheKey, Valid: true}
	return now.UTC().Truncate(time.Second), nil
}

type fakeBlobs struct {
	objects map[string][]byte
}

func newFakeBlobs() *fakeBlobs { return &fakeBlobs{objects: make(map[string][]byte)} }

func (f *fakeBlobs) Put(_ context.Context, key string, reader io.Reader) error {
	data, err := io.ReadAll(reader)
	if err != nil {
		return err
	}
	f.objects[key] = data
	return nil
}

func (f *fakeBlobs) Open(_ context.Context, key string) (io.ReadCloser, error) {
	data, ok := f.objects[key]
	if !ok {
		return nil, errors.New("no such object")
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (f *fakeBlobs) Delete(_ context.Context, key string) error {
	delete(f.objects, key)
	return nil
}


func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, w, h))); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

func TestSetAcceptsSquarePNG(t *testing.T) {
	fs := newFakeStore()
	blobs := newFakeBlobs()
	svc := avatar.NewService(nil, fs, blobs, 1<<20, nil)

	err := svc.Set(context.Background(), "alice", "alice", bytes.NewReader(pngBytes(t, 64, 64)))
	if err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if fs.sets != 1 {
		t.Errorf("sets = %d, want 1", fs.sets)
	}
	if fs.ref.Location != avatar.LocationPrefix+"alice" {
		t.Errorf("location = %q", fs.ref.Location)
	}
	if _, ok := blobs.objects["alice"]; !ok {
		t.Error("image bytes not stored")
	}
}

func TestSetRejectsNonSquare(t *testing.T) {
	svc := avatar.NewService(nil, newFakeStore(), newFakeBlobs(), 1<<20, nil)
	err := svc.Set(context.Background(), "alice", "alice", bytes.NewReader(pngBytes(t, 64, 32)))
	if !errors.Is(err, avatar.ErrBadImage) {
		t.Errorf("err = %v, want ErrBadImage", err)
	}
}

func TestSetRejectsNonImage(t *testing.T) {
	svc := avatar.NewService(nil, newFakeStore(), newFakeBlobs(), 1<<20, nil)
	err := svc.Set(context.Background(), "alice", "alice", bytes.NewReader([]byte("<html>not an image</html>")))
	if !errors.Is(err, avatar.ErrBadImage) {
		t.Errorf("err = %v, want ErrBadImage", err)
	}
}

// countingReader tracks how much of the body the service consumed.
type countingReader struct {
	r io.Reader
	n int
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += n
	return n, err
}

func TestSetSniffsBeforeConsumingBody(t *testing.T) {
	svc := avatar.NewService(nil, newFakeStore(), newFakeBlobs(), 1<<20, nil)

	// A large non-image body must be rejected off its prefix alone.
	body := append([]byte("<html>not an image</html>"), bytes.Repeat([]byte{'a'}, 1<<19)...)
	cr := &countingReader{r: bytes.NewReader(body)}
	err := svc.Set(context.Background(), "alice", "alice", cr)
	if !errors.Is(err, avatar.ErrBadImage) {
		t.Fatalf("err = %v, want ErrBadImage", err)
	}
	if cr.n > 512 {
		t.Errorf("consumed %d bytes before rejecting, want at most the sniff prefix", cr.n)
	}
}

func TestSetRejectsOversized(t *testing.T) {
	data := pngBytes(t, 64, 64)
	svc := avatar.NewService(nil, newFakeStore(), newFakeBlobs(), int64(len(data)-1), nil)
	err := svc.Set(context.Background(), "alice", "alice", bytes.NewReader(data))
	if !errors.Is(err, avatar.ErrTooLarge) {
		t.Errorf("err = %v, want ErrTooLarge", err)
	}
}

func TestSetOwnership(t *testing.T) {
	svc := avatar.NewService(nil, newFakeStore(), newFakeBlobs(), 1<<20, nil)
	err := svc.Set(context.Background(), "alice", "mallory", bytes.NewReader(pngBytes(t, 8, 8)))
	if !errors.Is(err, avatar.ErrForbidden) {
		t.Errorf("err = %v, want ErrForbidden", err)
	}
}

func TestOpenSniffsContentType(t *testing.T) {
	fs := newFakeStore()
	blobs := newFakeBlobs()
	svc := avatar.NewService(nil, fs, blobs, 1<<20, nil)

	data := pngBytes(t, 16, 16)
	if err := svc.Set(context.Background(), "alice", "alice", bytes.NewReader(data)); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	rc, contentType, err := svc.Open(context.Background(), "alice")
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer rc.Close()
	if contentType != "image/png" {
		t.Errorf("contentType = %q, want image/png", contentType)
	}
	got, err := io.ReadAll(rc)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !bytes.Equal(got, data) {
		t.Errorf("served bytes differ from stored bytes")
	}
}

func TestOpenNoAvatar(t *testing.T) {
	svc := avatar.NewService(nil, newFakeStore(), newFakeBlobs(), 1<<20, nil)
	_, _, err := svc.Open(context.Background(), "alice")
	if !errors.Is(err, avatar.ErrNoAvatar) {
		t.Errorf("err = %v, want ErrNoAvatar", err)
	}
}
