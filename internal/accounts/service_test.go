package accounts_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"

	"github.com/google/uuid"

	"github.com/flashpaperhq/flashpaper/internal/accounts"
	"github.com/flashpaperhq/flashpaper/internal/store"
)

type fakeStore struct {
	users map[string]store.User
}

func newFakeStore() *fakeStore {
	return &fakeStore{users: make(map[string]store.User)}
}

func (f *fakeStore) GetUserByUsername(_ context.Context, username string) (store.User, error) {
	user, ok := f.users[username]
	if !ok {
		return store.User{}, store.ErrNotFound
	}
	return user, nil
}

func (f *fakeStore) CreateUser(_ context.Context, username, passwordHash string) (store.User, error) {
	user := store.User{ID: uuid.New(), Username: username, PasswordHash: passwordHash}
	f.users[username] = user
	return user, nil
}

func (f *fakeStore) DeleteUser(_ context.Context, username string) error {
	if _, ok := f.users[username]; !ok {
		return store.ErrNotFound
	}
	delete(f.users, username)
	return nil
}

func (f *fakeStore) UpdateUserPassword(_ context.Context, username, passwordHash string) error {
	user, ok := f.users[username]
	if !ok {
		return store.ErrNotFound
	}
	user.PasswordHash = passwordHash
	f.users[username] = user
	return nil
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

func TestCreateAndVerify(t *testing.T) {
	fs := newFakeStore()
	svc := accounts.NewService(nil, fs, nil)

	user, err := svc.Create(context.Background(), "alice", "hunter2")
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if user.PasswordHash == "hunter2" {
		t.Error("password stored in the clear")
	}

	if _, err := svc.Verify(context.Background(), "alice", "hunter2"); err != nil {
		t.Errorf("Verify with right password: %v", err)
	}
	if _, err := svc.Verify(context.Background(), "alice", "wrong"); !errors.Is(err, accounts.ErrBadCredentials) {
		t.Errorf("Verify with wrong password: err = %v", err)
	}
	if _, err := svc.Verify(context.Background(), "nobody", "x"); !errors.Is(err, accounts.ErrBadCredentials) {
		t.Errorf("Verify unknown user: err = %v, want indistinguishable ErrBadCredentials", err)
	}
}

func TestCreateBadUsername(t *testing.T) {
	svc := accounts.NewService(nil, newFakeStore(), nil)
	for _, username := range []string{"", "with space", "über", "a@b"} {
		if _, err := svc.Create(context.Background(), username, "pw"); !errors.Is(err, accounts.ErrBadUsername) {
			t.Errorf("Create(%q): err = %v, want ErrBadUsername", username, err)
		}
	}
}

func TestDelete(t *testing.T) {
	fs := newFakeStore()
	svc := accounts.NewService(nil, fs, nil)

	if _, err := svc.Create(context.Background(), "alice", "pw"); err != nil {
		t.Fatal(err)
	}
	if err := svc.Delete(context.Background(), "alice"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if err := svc.Delete(context.Background(), "alice"); !errors.Is(err, accounts.ErrNotFound) {
		t.Errorf("second delete: err = %v, want ErrNotFound", err)
	}
}

func TestDeleteRemovesAvatarBlob(t *testing.T) {
	fs := newFakeStore()
	blobs := newFakeBlobs()
	svc := accounts.NewService(nil, fs, blobs)

	if _, err := svc.Create(context.Background(), "alice", "pw"); err != nil {
		t.Fatal(err)
	}
	blobs.objects["alice"] = []byte("avatar bytes")

	if err := svc.Delete(context.Background(), "alice"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, ok := blobs.objects["alice"]; ok {
		t.Error("avatar blob survived account removal")
	}
}

func TestSetPassword(t *testing.T) {
	fs := newFakeStore()
	svc := accounts.NewService(nil, fs, nil)

	if _, err := svc.Create(context.Background(), "alice", "old"); err != nil {
		t.Fatal(err)
	}
	if err := svc.SetPassword(context.Background(), "alice", "new"); err != nil {
		t.Fatalf("SetPassword() error = %v", err)
	}
	if _, err := svc.Verify(context.Background(), "alice", "old"); err == nil {
		t.Error("old password still accepted")
	}
	if _, err := svc.Verify(context.Background(), "alice", "new"); err != nil {
		t.Errorf("new password rejected: %v", err)
	}
	if err := svc.SetPassword(context.Background(), "ghost", "x"); !errors.Is(err, accounts.ErrNotFound) {
		t.Errorf("SetPassword unknown user: err = %v", err)
	}
}
