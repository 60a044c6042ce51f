package user

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"tour-booking-api/internal/auth"
	domainUser "tour-booking-api/internal/domain/user"
	appErrors "tour-booking-api/pkg/errors"
	"tour-booking-api/pkg/utils"
)

// memRepo is an in-memory credential store.
type memRepo struct {
	mu    sync.Mutex
	users map[uuid.UUID]*domainUser.User
}

func newMemRepo() *memRepo {
	return &memRepo{users: map[uuid.UUID]*domainUser.User{}}
}

func (r *memRepo) view(u *domainUser.User, opts []domainUser.LookupOption) *domainUser.User {
	cp := *u
	if !domainUser.ApplyLookup(opts...).WithPassword {
		cp.PasswordHash = ""
	}
	return &cp
}

func (r *memRepo) Create(_ context.Context, u *domainUser.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.users {
		if existing.Email == u.Email {
			return domainUser.ErrUserAlreadyExists
		}
	}
	u.AssignID()
	u.CreatedAt = time.Now()
	cp := *u
	r.users[u.ID] = &cp
	return nil
}

func (r *memRepo) GetByID(_ context.Context, id uuid.UUID, opts ...domainUser.LookupOption) (*domainUser.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok || !u.Active {
		return nil, domainUser.ErrUserNotFound
	}
	return r.view(u, opts), nil
}

func (r *memRepo) GetByEmail(_ context.Context, email string, opts ...domainUser.LookupOption) (*domainUser.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == email && u.Active {
			return r.view(u, opts), nil
		}
	}
	return nil, domainUser.ErrUserNotFound
}

func (r *memRepo) Update(_ context.Context, u *domainUser.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.users[u.ID]
	if !ok || !stored.Active {
		return domainUser.ErrUserNotFound
	}
	for id, other := range r.users {
		if id != u.ID && other.Email == u.Email {
			return domainUser.ErrUserAlreadyExists
		}
	}
	stored.Name, stored.Email, stored.Photo = u.Name, u.Email, u.Photo
	return nil
}

func (r *memRepo) UpdatePassword(_ context.Context, id uuid.UUID, hash string, changedAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok || !u.Active {
		return domainUser.ErrUserNotFound
	}
	u.PasswordHash = hash
	u.PasswordChangedAt = &changedAt
	return nil
}

func (r *memRepo) Deactivate(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok || !u.Active {
		return domainUser.ErrUserNotFound
	}
	u.Active = false
	return nil
}

func (r *memRepo) SetResetToken(_ context.Context, id uuid.UUID, hash string, expiry time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return domainUser.ErrUserNotFound
	}
	u.ResetTokenHash = &hash
	u.ResetTokenExpiry = &expiry
	return nil
}

func (r *memRepo) ClearResetToken(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u, ok := r.users[id]; ok {
		u.ResetTokenHash, u.ResetTokenExpiry = nil, nil
	}
	return nil
}

func (r *memRepo) ConsumeResetToken(_ context.Context, hash string) (*domainUser.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Active && u.ResetTokenHash != nil && *u.ResetTokenHash == hash {
			cp := *u
			cp.PasswordHash = ""
			u.ResetTokenHash, u.ResetTokenExpiry = nil, nil
			return &cp, nil
		}
	}
	return nil, domainUser.ErrUserNotFound
}

func (r *memRepo) ClearExpiredResetTokens(_ context.Context, now time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, u := range r.users {
		if u.ResetTokenExpiry != nil && !u.ResetTokenExpiry.After(now) {
			u.ResetTokenHash, u.ResetTokenExpiry = nil, nil
			n++
		}
	}
	return n, nil
}

func (r *memRepo) stored(email string) *domainUser.User {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == email {
			cp := *u
			return &cp
		}
	}
	return nil
}

type sentMessage struct {
	recipient, subject, body string
}

type fakeNotifier struct {
	sent []sentMessage
	err  error
}

func (n *fakeNotifier) Notify(_ context.Context, recipient, subject, body string) error {
	if n.err != nil {
		return n.err
	}
	n.sent = append(n.sent, sentMessage{recipient, subject, body})
	return nil
}

type fixture struct {
	svc      *Service
	repo     *memRepo
	notifier *fakeNotifier
	clock    time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		repo:     newMemRepo(),
		notifier: &fakeNotifier{},
		clock:    time.Date(2025, 5, 1, 10, 0, 0, 0, time.UTC),
	}
	now := func() time.Time { return f.clock }
	f.svc = NewService(
		f.repo,
		utils.NewBcryptHasher(bcrypt.MinCost),
		auth.NewSessionTokens("test-secret", 90*24*time.Hour, auth.WithSessionClock(now)),
		auth.NewResetTokens(10*time.Minute, auth.WithResetClock(now)),
		f.notifier,
		WithClock(now),
	)
	return f
}

func (f *fixture) advance(d time.Duration) {
	f.clock = f.clock.Add(d)
}

func (f *fixture) signUp(t *testing.T, email, password string) *Session {
	t.Helper()
	session, err := f.svc.SignUp(context.Background(), &SignUpRequest{
		Name:            "A",
		Email:           email,
		Password:        password,
		PasswordConfirm: password,
	})
	require.NoError(t, err)
	return session
}

var tokenInURL = regexp.MustCompile(`/([0-9a-f]{64})`)

func (f *fixture) lastResetToken(t *testing.T) string {
	t.Helper()
	require.NotEmpty(t, f.notifier.sent)
	m := tokenInURL.FindStringSubmatch(f.notifier.sent[len(f.notifier.sent)-1].body)
	require.Len(t, m, 2)
	return m[1]
}

func TestSignUp(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	session := f.signUp(t, "  A@X.com ", "secret1")
	require.NotEmpty(t, session.Token)
	assert.Equal(t, "a@x.com", session.User.Email)
	assert.Equal(t, domainUser.RoleUser, session.User.Role)
	assert.Empty(t, session.User.PasswordHash)

	principal, err := f.svc.Authenticate(ctx, "Bearer "+session.Token)
	require.NoError(t, err)
	assert.Equal(t, session.User.ID, principal.ID)

	stored := f.repo.stored("a@x.com")
	require.NotNil(t, stored)
	assert.NotEqual(t, "secret1", stored.PasswordHash)
	assert.NotContains(t, stored.PasswordHash, "secret1")
	assert.True(t, strings.HasPrefix(stored.PasswordHash, "$2"))
}

func TestSignUp_Validation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.SignUp(ctx, &SignUpRequest{Name: "A", Email: "a@x.com", Password: "secret1", PasswordConfirm: "secret2"})
	require.ErrorIs(t, err, appErrors.ErrValidation)
	appErr, _ := appErrors.AsAppError(err)
	assert.Equal(t, []string{"Passwords do not match"}, appErr.Fields["passwordConfirm"])

	_, err = f.svc.SignUp(ctx, &SignUpRequest{Email: "not-an-email", Password: "secret1", PasswordConfirm: "secret1"})
	require.ErrorIs(t, err, appErrors.ErrValidation)
	appErr, _ = appErrors.AsAppError(err)
	assert.Contains(t, appErr.Fields, "name")
	assert.Contains(t, appErr.Fields, "email")
}

func TestSignUp_DuplicateEmail(t *testing.T) {
	f := newFixture(t)
	f.signUp(t, "a@x.com", "secret1")

	_, err := f.svc.SignUp(context.Background(), &SignUpRequest{Name: "B", Email: "A@x.com", Password: "secret2", PasswordConfirm: "secret2"})
	assert.ErrorIs(t, err, appErrors.ErrUserAlreadyExists)
}

func TestLogin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.signUp(t, "a@x.com", "secret1")

	session, err := f.svc.Login(ctx, &LoginRequest{Email: "a@x.com", Password: "secret1"})
	require.NoError(t, err)
	assert.NotEmpty(t, session.Token)
	assert.Empty(t, session.User.PasswordHash)
}

func TestLogin_MissingCredentials(t *testing.T) {
	f := newFixture(t)

	for _, req := range []*LoginRequest{{}, {Email: "a@x.com"}, {Password: "secret1"}} {
		_, err := f.svc.Login(context.Background(), req)
		assert.ErrorIs(t, err, appErrors.ErrMissingCredentials)
	}
}

func TestLogin_FailuresAreIndistinguishable(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	session := f.signUp(t, "a@x.com", "secret1")
	f.signUp(t, "inactive@x.com", "secret1")
	inactive := f.repo.stored("inactive@x.com")
	require.NoError(t, f.repo.Deactivate(ctx, inactive.ID))

	_, wrongPassword := f.svc.Login(ctx, &LoginRequest{Email: "a@x.com", Password: "wrong"})
	_, unknownEmail := f.svc.Login(ctx, &LoginRequest{Email: "nobody@x.com", Password: "secret1"})
	_, deactivated := f.svc.Login(ctx, &LoginRequest{Email: "inactive@x.com", Password: "secret1"})

	for _, err := range []error{wrongPassword, unknownEmail, deactivated} {
		require.ErrorIs(t, err, appErrors.ErrInvalidCredentials)
		assert.Equal(t, wrongPassword.Error(), err.Error())
	}
	assert.Equal(t, "Incorrect email or password", wrongPassword.Error())
	assert.NotEmpty(t, session.Token)
}

func TestAuthenticate_Failures(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	session := f.signUp(t, "a@x.com", "secret1")

	_, err := f.svc.Authenticate(ctx, "")
	assert.ErrorIs(t, err, appErrors.ErrMissingToken)
	_, err = f.svc.Authenticate(ctx, session.Token)
	assert.ErrorIs(t, err, appErrors.ErrMissingToken, "bearer scheme is required")
	_, err = f.svc.Authenticate(ctx, "Bearer ")
	assert.ErrorIs(t, err, appErrors.ErrMissingToken)

	_, err = f.svc.Authenticate(ctx, "Bearer garbage")
	assert.ErrorIs(t, err, appErrors.ErrInvalidToken)

	f.advance(91 * 24 * time.Hour)
	_, err = f.svc.Authenticate(ctx, "Bearer "+session.Token)
	assert.ErrorIs(t, err, appErrors.ErrExpiredToken)
}

func TestAuthenticate_UnknownSubject(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	session := f.signUp(t, "a@x.com", "secret1")

	require.NoError(t, f.svc.DeleteMe(ctx, session.User))

	_, err := f.svc.Authenticate(ctx, "Bearer "+session.Token)
	assert.ErrorIs(t, err, appErrors.ErrUnknownSubject)
}

func TestChangePassword_InvalidatesEarlierTokens(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	old := f.signUp(t, "a@x.com", "secret1")

	f.advance(5 * time.Second)
	principal, err := f.svc.Authenticate(ctx, "Bearer "+old.Token)
	require.NoError(t, err)

	fresh, err := f.svc.ChangePassword(ctx, principal, &ChangePasswordRequest{
		PasswordCurrent: "secret1",
		Password:        "secret2",
		PasswordConfirm: "secret2",
	})
	require.NoError(t, err)

	_, err = f.svc.Authenticate(ctx, "Bearer "+old.Token)
	assert.ErrorIs(t, err, appErrors.ErrStaleSession)

	_, err = f.svc.Authenticate(ctx, "Bearer "+fresh.Token)
	assert.NoError(t, err, "token minted right after the change is valid")

	f.advance(time.Minute)
	_, err = f.svc.Authenticate(ctx, "Bearer "+fresh.Token)
	assert.NoError(t, err)

	_, err = f.svc.Login(ctx, &LoginRequest{Email: "a@x.com", Password: "secret1"})
	assert.ErrorIs(t, err, appErrors.ErrInvalidCredentials)
	_, err = f.svc.Login(ctx, &LoginRequest{Email: "a@x.com", Password: "secret2"})
	assert.NoError(t, err)
}

func TestChangePassword_StaleWithinSameSecond(t *testing.T) {
	for _, gap := range []time.Duration{time.Millisecond, 500 * time.Millisecond, 1500 * time.Millisecond} {
		t.Run(gap.String(), func(t *testing.T) {
			f := newFixture(t)
			ctx := context.Background()
			f.advance(200 * time.Millisecond)
			old := f.signUp(t, "a@x.com", "secret1")

			f.advance(gap)
			fresh, err := f.svc.ChangePassword(ctx, old.User, &ChangePasswordRequest{
				PasswordCurrent: "secret1",
				Password:        "secret2",
				PasswordConfirm: "secret2",
			})
			require.NoError(t, err)

			_, err = f.svc.Authenticate(ctx, "Bearer "+old.Token)
			assert.ErrorIs(t, err, appErrors.ErrStaleSession)

			_, err = f.svc.Authenticate(ctx, "Bearer "+fresh.Token)
			assert.NoError(t, err)
		})
	}
}

func TestChangePassword_WrongCurrent(t *testing.T) {
	f := newFixture(t)
	session := f.signUp(t, "a@x.com", "secret1")

	_, err := f.svc.ChangePassword(context.Background(), session.User, &ChangePasswordRequest{
		PasswordCurrent: "nope",
		Password:        "secret2",
		PasswordConfirm: "secret2",
	})
	assert.ErrorIs(t, err, appErrors.ErrInvalidCredentials)
	assert.Nil(t, f.repo.stored("a@x.com").PasswordChangedAt)
}

func TestPasswordReset_SucceedsExactlyOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.signUp(t, "a@x.com", "secret1")

	require.NoError(t, f.svc.ForgotPassword(ctx, &ForgotPasswordRequest{Email: "a@x.com"}, "http://localhost:8080/api/v1/users/resetPassword"))
	require.Len(t, f.notifier.sent, 1)
	assert.Equal(t, "a@x.com", f.notifier.sent[0].recipient)
	raw := f.lastResetToken(t)

	stored := f.repo.stored("a@x.com")
	require.NotNil(t, stored.ResetTokenHash)
	assert.NotEqual(t, raw, *stored.ResetTokenHash, "only the hash is stored")
	assert.True(t, stored.ResetTokenExpiry.Equal(f.clock.Add(10*time.Minute)))

	f.advance(5 * time.Minute)
	req := &ResetPasswordRequest{Password: "newpass1", PasswordConfirm: "newpass1"}
	session, err := f.svc.ResetPassword(ctx, raw, req)
	require.NoError(t, err)
	assert.NotEmpty(t, session.Token)

	after := f.repo.stored("a@x.com")
	assert.Nil(t, after.ResetTokenHash)
	assert.Nil(t, after.ResetTokenExpiry)

	_, err = f.svc.ResetPassword(ctx, raw, req)
	assert.ErrorIs(t, err, appErrors.ErrInvalidOrExpiredToken)

	_, err = f.svc.Login(ctx, &LoginRequest{Email: "a@x.com", Password: "newpass1"})
	assert.NoError(t, err)
}

func TestPasswordReset_ExpiredTokenFails(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.signUp(t, "a@x.com", "secret1")

	require.NoError(t, f.svc.ForgotPassword(ctx, &ForgotPasswordRequest{Email: "a@x.com"}, "http://h/api/v1/users/resetPassword"))
	raw := f.lastResetToken(t)

	f.advance(11 * time.Minute)
	_, err := f.svc.ResetPassword(ctx, raw, &ResetPasswordRequest{Password: "newpass1", PasswordConfirm: "newpass1"})
	assert.ErrorIs(t, err, appErrors.ErrInvalidOrExpiredToken)

	after := f.repo.stored("a@x.com")
	assert.Nil(t, after.ResetTokenHash, "redemption clears the token even when it fails")
	assert.Nil(t, after.PasswordChangedAt)
}

func TestPasswordReset_InvalidatesEarlierSessions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	old := f.signUp(t, "a@x.com", "secret1")

	f.advance(time.Minute)
	require.NoError(t, f.svc.ForgotPassword(ctx, &ForgotPasswordRequest{Email: "a@x.com"}, "http://h/api/v1/users/resetPassword"))
	fresh, err := f.svc.ResetPassword(ctx, f.lastResetToken(t), &ResetPasswordRequest{Password: "newpass1", PasswordConfirm: "newpass1"})
	require.NoError(t, err)

	_, err = f.svc.Authenticate(ctx, "Bearer "+old.Token)
	assert.ErrorIs(t, err, appErrors.ErrStaleSession)
	_, err = f.svc.Authenticate(ctx, "Bearer "+fresh.Token)
	assert.NoError(t, err)
}

func TestPasswordReset_Validation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.signUp(t, "a@x.com", "secret1")
	require.NoError(t, f.svc.ForgotPassword(ctx, &ForgotPasswordRequest{Email: "a@x.com"}, "http://h/r"))
	raw := f.lastResetToken(t)

	_, err := f.svc.ResetPassword(ctx, raw, &ResetPasswordRequest{Password: "newpass1", PasswordConfirm: "other"})
	require.ErrorIs(t, err, appErrors.ErrValidation)
	assert.NotNil(t, f.repo.stored("a@x.com").ResetTokenHash, "a rejected payload does not burn the token")

	_, err = f.svc.ResetPassword(ctx, "", &ResetPasswordRequest{Password: "newpass1", PasswordConfirm: "newpass1"})
	assert.ErrorIs(t, err, appErrors.ErrInvalidOrExpiredToken)
}

func TestForgotPassword_UnknownEmail(t *testing.T) {
	f := newFixture(t)

	err := f.svc.ForgotPassword(context.Background(), &ForgotPasswordRequest{Email: "nobody@x.com"}, "http://h/r")
	assert.ErrorIs(t, err, appErrors.ErrUserNotFound)
	assert.Empty(t, f.notifier.sent)
}

func TestForgotPassword_DeliveryFailureWithdrawsToken(t *testing.T) {
	f := newFixture(t)
	f.signUp(t, "a@x.com", "secret1")
	f.notifier.err = errors.New("smtp down")

	err := f.svc.ForgotPassword(context.Background(), &ForgotPasswordRequest{Email: "a@x.com"}, "http://h/r")
	require.ErrorIs(t, err, appErrors.ErrDeliveryFailure)

	stored := f.repo.stored("a@x.com")
	assert.Nil(t, stored.ResetTokenHash)
	assert.Nil(t, stored.ResetTokenExpiry)
}

func TestUpdateMe(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	session := f.signUp(t, "a@x.com", "secret1")
	f.signUp(t, "taken@x.com", "secret1")

	name := "Alice"
	email := "ALICE@x.com"
	updated, err := f.svc.UpdateMe(ctx, session.User, &UpdateMeRequest{Name: &name, Email: &email})
	require.NoError(t, err)
	assert.Equal(t, "Alice", updated.Name)
	assert.Equal(t, "alice@x.com", updated.Email)

	password := "sneaky1"
	_, err = f.svc.UpdateMe(ctx, session.User, &UpdateMeRequest{Password: &password})
	assert.ErrorIs(t, err, appErrors.ErrPasswordUpdateNotAllowed)

	taken := "taken@x.com"
	_, err = f.svc.UpdateMe(ctx, session.User, &UpdateMeRequest{Email: &taken})
	assert.ErrorIs(t, err, appErrors.ErrUserAlreadyExists)
}

func TestCreateUser(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	guide, err := f.svc.CreateUser(ctx, &CreateUserRequest{
		Name: "Guide", Email: "guide@x.com", Role: domainUser.RoleGuide,
		Password: "secret1", PasswordConfirm: "secret1",
	})
	require.NoError(t, err)
	assert.Equal(t, domainUser.RoleGuide, guide.Role)

	plain, err := f.svc.CreateUser(ctx, &CreateUserRequest{
		Name: "Plain", Email: "plain@x.com", Password: "secret1", PasswordConfirm: "secret1",
	})
	require.NoError(t, err)
	assert.Equal(t, domainUser.RoleUser, plain.Role)

	_, err = f.svc.CreateUser(ctx, &CreateUserRequest{
		Name: "Bad", Email: "bad@x.com", Role: "superuser", Password: "secret1", PasswordConfirm: "secret1",
	})
	assert.ErrorIs(t, err, appErrors.ErrValidation)

	_, err = f.svc.Login(ctx, &LoginRequest{Email: "guide@x.com", Password: "secret1"})
	assert.NoError(t, err)
}

func TestCleanupExpiredResetTokens(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.signUp(t, "a@x.com", "secret1")
	require.NoError(t, f.svc.ForgotPassword(ctx, &ForgotPasswordRequest{Email: "a@x.com"}, "http://h/r"))

	f.svc.cleanupExpiredResetTokens(ctx)
	assert.NotNil(t, f.repo.stored("a@x.com").ResetTokenHash)

	f.advance(10 * time.Minute)
	f.svc.cleanupExpiredResetTokens(ctx)
	assert.Nil(t, f.repo.stored("a@x.com").ResetTokenHash)
}

func TestStartResetTokenCleanupJob_StopsWithContext(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		f.svc.StartResetTokenCleanupJob(ctx, time.Hour)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("cleanup job did not stop")
	}
}
