package app

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	"noted/pkg/domain"
	"noted/pkg/store"
)

const testPassword = "Str0ngPass!"

// fakeObjectStore records object operations and can be told to fail.
type fakeObjectStore struct {
	mu       sync.Mutex
	objects  map[string][]byte
	puts     []string
	deletes  []string
	presigns []string
	putErr   error
	delErr   error
}

func newFakeObjectStore() *fakeObjectStore {
	return &fakeObjectStore{objects: make(map[string][]byte)}
}

func (f *fakeObjectStore) Put(_ context.Context, key string, r io.Reader, _ int64, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.putErr != nil {
		return f.putErr
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	f.objects[key] = data
	f.puts = append(f.puts, key)
	return nil
}

func (f *fakeObjectStore) PresignGet(_ context.Context, key, downloadName string, _ time.Duration) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.objects[key]; !ok {
		return "", fmt.Errorf("object %s not found", key)
	}
	f.presigns = append(f.presigns, key)
	return "https://files.test/" + key + "?dl=" + downloadName, nil
}

func (f *fakeObjectStore) Delete(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.delErr != nil {
		return f.delErr
	}
	delete(f.objects, key)
	f.deletes = append(f.deletes, key)
	return nil
}

type testApp struct {
	*App
	store   *store.MemoryStore
	objects *fakeObjectStore
}

func newTestApp(t *testing.T, emailDomain string) *testApp {
	t.Helper()
	memStore := store.NewMemoryStore()
	objects := newFakeObjectStore()
	a, err := New(Config{
		Store:              memStore,
		Sessions:           store.NewMemorySessionStore(),
		RefreshTokens:      store.NewMemoryRefreshTokenStore(),
		Objects:            objects,
		AllowedEmailDomain: emailDomain,
	})
	if err != nil {
		t.Fatalf("new app: %v", err)
	}
	return &testApp{App: a, store: memStore, objects: objects}
}

func signUpUser(t *testing.T, a *testApp, email string) domain.User {
	t.Helper()
	user, _, _, err := a.SignUp(email, testPassword)
	if err != nil {
		t.Fatalf("sign up %s: %v", email, err)
	}
	return user
}

func pdfUpload() (*bytes.Reader, int64) {
	data := []byte("%PDF-1.4\n1 0 obj\n<<>>\nendobj\n%%EOF\n")
	return bytes.NewReader(data), int64(len(data))
}

func uploadTestNote(t *testing.T, a *testApp, owner domain.User, title, course string, price int64) domain.Note {
	t.Helper()
	f, size := pdfUpload()
	note, err := a.UploadNote(owner, title, course, price, "notes.pdf", f, size)
	if err != nil {
		t.Fatalf("upload note: %v", err)
	}
	return note
}

func TestSignUpFirstUserBecomesAdmin(t *testing.T) {
	a := newTestApp(t, "")

	first, access, refresh, err := a.SignUp("alice@binus.ac.id", testPassword)
	if err != nil {
		t.Fatalf("sign up: %v", err)
	}
	if first.Role != domain.RoleAdmin {
		t.Fatalf("first user must be admin, got %q", first.Role)
	}
	if access == "" || refresh == "" {
		t.Fatalf("expected token pair on sign up")
	}

	second := signUpUser(t, a, "bob@binus.ac.id")
	if second.Role != domain.RoleUser {
		t.Fatalf("second user must not be admin, got %q", second.Role)
	}
}

func TestSignUpEnforcesEmailDomain(t *testing.T) {
	a := newTestApp(t, "binus.ac.id")

	if _, _, _, err := a.SignUp("mallory@gmail.com", testPassword); !errors.Is(err, ErrEmailDomainNotAllowed) {
		t.Fatalf("expected domain rejection, got: %v", err)
	}
	if _, _, _, err := a.SignUp("alice@binus.ac.id", testPassword); err != nil {
		t.Fatalf("allowed domain rejected: %v", err)
	}
}

func TestSignUpRejectsDuplicateEmail(t *testing.T) {
	a := newTestApp(t, "")
	signUpUser(t, a, "alice@binus.ac.id")

	if _, _, _, err := a.SignUp("Alice@Binus.ac.id", testPassword); !errors.Is(err, ErrEmailAlreadyExists) {
		t.Fatalf("expected duplicate email rejection, got: %v", err)
	}
}

func TestLoginAndUserFromToken(t *testing.T) {
	a := newTestApp(t, "")
	user := signUpUser(t, a, "alice@binus.ac.id")

	got, access, refresh, err := a.Login("alice@binus.ac.id", testPassword)
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if got.ID != user.ID || access == "" || refresh == "" {
		t.Fatalf("unexpected login result: user=%s access=%q refresh=%q", got.ID, access, refresh)
	}

	resolved, ok := a.UserFromToken(access)
	if !ok || resolved.ID != user.ID {
		t.Fatalf("token did not resolve to user: ok=%v id=%s", ok, resolved.ID)
	}

	if _, _, _, err := a.Login("alice@binus.ac.id", "WrongPass123!"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected invalid credentials, got: %v", err)
	}
	if _, _, _, err := a.Login("nobody@binus.ac.id", testPassword); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("unknown email must yield invalid credentials, got: %v", err)
	}
}

func TestRefreshRotatesTokens(t *testing.T) {
	a := newTestApp(t, "")
	user, _, refresh, err := a.SignUp("alice@binus.ac.id", testPassword)
	if err != nil {
		t.Fatalf("sign up: %v", err)
	}

	got, access2, refresh2, err := a.Refresh(refresh)
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if got.ID != user.ID || access2 == "" || refresh2 == "" || refresh2 == refresh {
		t.Fatalf("unexpected refresh result")
	}

	// The consumed token is revoked; reusing it revokes the family.
	if _, _, _, err := a.Refresh(refresh); !errors.Is(err, ErrInvalidRefreshToken) {
		t.Fatalf("expected invalid refresh token on reuse, got: %v", err)
	}
	if _, _, _, err := a.Refresh(refresh2); !errors.Is(err, ErrInvalidRefreshToken) {
		t.Fatalf("expected family revoked after reuse, got: %v", err)
	}
}

func TestLogoutInvalidatesSession(t *testing.T) {
	a := newTestApp(t, "")
	_, access, refresh, err := a.SignUp("alice@binus.ac.id", testPassword)
	if err != nil {
		t.Fatalf("sign up: %v", err)
	}
	if err := a.Logout(access, refresh); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if _, ok := a.UserFromToken(access); ok {
		t.Fatalf("access token still valid after logout")
	}
	if _, _, _, err := a.Refresh(refresh); !errors.Is(err, ErrInvalidRefreshToken) {
		t.Fatalf("refresh token still valid after logout, got: %v", err)
	}
}

func TestChangePasswordRevokesRefreshTokens(t *testing.T) {
	a := newTestApp(t, "")
	user, _, refresh, err := a.SignUp("alice@binus.ac.id", testPassword)
	if err != nil {
		t.Fatalf("sign up: %v", err)
	}

	const newPassword = "N3wStr0ngPass!"
	if err := a.ChangePassword(user.ID, testPassword, newPassword); err != nil {
		t.Fatalf("change password: %v", err)
	}

	if _, _, _, err := a.Login("alice@binus.ac.id", testPassword); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("old password still works, got: %v", err)
	}
	if _, _, _, err := a.Login("alice@binus.ac.id", newPassword); err != nil {
		t.Fatalf("new password rejected: %v", err)
	}
	if _, _, _, err := a.Refresh(refresh); !errors.Is(err, ErrInvalidRefreshToken) {
		t.Fatalf("refresh token survived password change, got: %v", err)
	}
}

func TestChangePasswordRequiresCurrentPassword(t *testing.T) {
	a := newTestApp(t, "")
	user := signUpUser(t, a, "alice@binus.ac.id")

	if err := a.ChangePassword(user.ID, "", "N3wStr0ngPass!"); !errors.Is(err, ErrCurrentPasswordRequired) {
		t.Fatalf("expected current password required, got: %v", err)
	}
	if err := a.ChangePassword(user.ID, "WrongPass123!", "N3wStr0ngPass!"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected invalid credentials, got: %v", err)
	}
}

func TestSaveProfileValidatesMajor(t *testing.T) {
	a := newTestApp(t, "")
	user := signUpUser(t, a, "alice@binus.ac.id")

	if _, err := a.SaveProfile(user, "Alice", "Astrology"); !errors.Is(err, ErrInvalidMajor) {
		t.Fatalf("expected invalid major, got: %v", err)
	}
	if _, err := a.SaveProfile(user, "", "Computer Science"); !errors.Is(err, ErrDisplayNameRequired) {
		t.Fatalf("expected display name required, got: %v", err)
	}

	profile, err := a.SaveProfile(user, "Alice", "Computer Science")
	if err != nil {
		t.Fatalf("save profile: %v", err)
	}
	if profile.Major != "Computer Science" {
		t.Fatalf("unexpected profile: %+v", profile)
	}
}

func TestSaveProfileKeepsCreatedAtOnUpdate(t *testing.T) {
	a := newTestApp(t, "")
	user := signUpUser(t, a, "alice@binus.ac.id")

	first, err := a.SaveProfile(user, "Alice", "Computer Science")
	if err != nil {
		t.Fatalf("save profile: %v", err)
	}
	second, err := a.SaveProfile(user, "Alice W", "Information Systems")
	if err != nil {
		t.Fatalf("update profile: %v", err)
	}
	if !second.CreatedAt.Equal(first.CreatedAt) {
		t.Fatalf("createdAt changed on update: %v vs %v", second.CreatedAt, first.CreatedAt)
	}
	if second.DisplayName != "Alice W" || second.Major != "Information Systems" {
		t.Fatalf("profile not updated: %+v", second)
	}
}

func TestGetProfileMissing(t *testing.T) {
	a := newTestApp(t, "")
	user := signUpUser(t, a, "alice@binus.ac.id")

	if _, err := a.GetProfile(user); !errors.Is(err, ErrProfileNotFound) {
		t.Fatalf("expected profile not found, got: %v", err)
	}
}
