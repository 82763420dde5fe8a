package auth

import (
	"context"
	"encoding/base64"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/estateplan/apiv1/models"
	"github.com/estateplan/apiv1/notifier"
	"github.com/estateplan/apiv1/store"
	"github.com/estateplan/apiv1/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- helpers ---

type fakeNotifier struct {
	mu   sync.Mutex
	sent []notifier.Message
	fail bool
}

func (f *fakeNotifier) Send(ctx context.Context, msg notifier.Message) notifier.Result {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, msg)
	if f.fail {
		return notifier.Result{Err: errors.New("smtp down")}
	}
	return notifier.Result{Success: true, MessageID: "test"}
}

func (f *fakeNotifier) sentTo(subject string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	count := 0
	for _, msg := range f.sent {
		if msg.Subject == subject {
			count++
		}
	}
	return count
}

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func newTestService(t *testing.T) (*Service, *store.MemoryStore, *fakeNotifier, *fakeClock) {
	t.Helper()
	t.Setenv(utils.JWT_SECRET_KEY_ACCESS, base64.StdEncoding.EncodeToString([]byte("test-access-secret")))
	t.Setenv(utils.JWT_SECRET_KEY_ACCESS_OLD, "")
	t.Setenv(utils.JWT_SECRET_KEY_REFRESH, base64.StdEncoding.EncodeToString([]byte("test-refresh-secret")))
	t.Setenv(utils.JWT_SECRET_KEY_REFRESH_OLD, "")
	memStore := store.NewMemoryStore()
	fake := &fakeNotifier{}
	clock := &fakeClock{t: time.Now().UTC()}
	svc := NewService(memStore, fake)
	svc.now = clock.Now
	return svc, memStore, fake, clock
}

func registerUser(t *testing.T, svc *Service, email, password string) *models.User {
	t.Helper()
	user, _, _, err := svc.Register(context.Background(), email, "Test User", password)
	require.NoError(t, err)
	return user
}

func enableTwoFactor(t *testing.T, memStore *store.MemoryStore, email string) {
	t.Helper()
	_, err := memStore.Mutate(context.Background(), email, func(u *models.User) error {
		u.TwoFactorEnabled = true
		return nil
	})
	require.NoError(t, err)
}

func storedUser(t *testing.T, memStore *store.MemoryStore, email string) *models.User {
	t.Helper()
	user, err := memStore.FindByEmail(context.Background(), email)
	require.NoError(t, err)
	return user
}

// --- registration ---

func TestRegisterRejectsWeakPassword(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	_, _, _, err := svc.Register(context.Background(), "alice@example.com", "Alice", "short")
	require.Error(t, err)
	assert.ErrorIs(t, err, utils.ErrWeakPassword)
	assert.Contains(t, err.Error(), "an uppercase letter")
	assert.Contains(t, err.Error(), "a digit")
}

func TestRegisterDuplicateEmail(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	registerUser(t, svc, "alice@example.com", "Aa1!aaaa")
	_, _, _, err := svc.Register(context.Background(), "alice@example.com", "Alice", "Aa1!aaaa")
	assert.ErrorIs(t, err, ErrEmailTaken)
}

func TestRegisterNormalizesEmail(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	user := registerUser(t, svc, "  Alice@Example.COM ", "Aa1!aaaa")
	assert.Equal(t, "alice@example.com", user.Email)

	result, err := svc.Login(context.Background(), "ALICE@example.com", "Aa1!aaaa")
	require.NoError(t, err)
	assert.NotEmpty(t, result.AccessToken)
}

// --- login, failed-attempt tracking, lockout ---

func TestLoginUnknownEmail(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	_, err := svc.Login(context.Background(), "nobody@example.com", "Aa1!aaaa")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestLoginLocksAfterFiveFailures(t *testing.T) {
	svc, memStore, fake, _ := newTestService(t)
	registerUser(t, svc, "alice@example.com", "Aa1!aaaa")

	for i := 1; i <= 4; i++ {
		_, err := svc.Login(context.Background(), "alice@example.com", "wrong-password")
		assert.ErrorIs(t, err, ErrInvalidCredentials, "attempt %d", i)
	}
	// the fifth attempt trips the threshold and reports the lockout itself
	_, err := svc.Login(context.Background(), "alice@example.com", "wrong-password")
	assert.ErrorIs(t, err, ErrAccountLocked)

	user := storedUser(t, memStore, "alice@example.com")
	assert.True(t, user.AccountLocked)
	assert.Equal(t, 5, user.FailedLoginAttempts)
	require.NotNil(t, user.LockoutExpiry)
	require.NotNil(t, user.LastFailedAttempt)

	// a sixth attempt with the correct password is still rejected as locked
	_, err = svc.Login(context.Background(), "alice@example.com", "Aa1!aaaa")
	assert.ErrorIs(t, err, ErrAccountLocked)

	// exactly one lockout notice went out
	assert.Equal(t, 1, fake.sentTo("Your account has been locked"))
}

func TestLoginSuccessResetsCounter(t *testing.T) {
	svc, memStore, _, _ := newTestService(t)
	registerUser(t, svc, "alice@example.com", "Aa1!aaaa")

	for i := 0; i < 3; i++ {
		_, _ = svc.Login(context.Background(), "alice@example.com", "wrong-password")
	}
	_, err := svc.Login(context.Background(), "alice@example.com", "Aa1!aaaa")
	require.NoError(t, err)

	user := storedUser(t, memStore, "alice@example.com")
	assert.Equal(t, 0, user.FailedLoginAttempts)
	assert.Nil(t, user.LastFailedAttempt)
}

func TestLockoutExpiresLazily(t *testing.T) {
	svc, memStore, _, clock := newTestService(t)
	registerUser(t, svc, "alice@example.com", "Aa1!aaaa")

	for i := 0; i < 5; i++ {
		_, _ = svc.Login(context.Background(), "alice@example.com", "wrong-password")
	}
	assert.True(t, storedUser(t, memStore, "alice@example.com").AccountLocked)

	clock.Advance(30*time.Minute + time.Second)

	// the next attempt clears the lockout as a side effect of the check
	result, err := svc.Login(context.Background(), "alice@example.com", "Aa1!aaaa")
	require.NoError(t, err)
	assert.NotEmpty(t, result.AccessToken)

	user := storedUser(t, memStore, "alice@example.com")
	assert.False(t, user.AccountLocked)
	assert.Nil(t, user.LockoutExpiry)
	assert.Equal(t, 0, user.FailedLoginAttempts)
}

func TestLockoutExpiryResetsCounterEvenOnWrongPassword(t *testing.T) {
	svc, memStore, _, clock := newTestService(t)
	registerUser(t, svc, "alice@example.com", "Aa1!aaaa")

	for i := 0; i < 5; i++ {
		_, _ = svc.Login(context.Background(), "alice@example.com", "wrong-password")
	}
	clock.Advance(31 * time.Minute)

	_, err := svc.Login(context.Background(), "alice@example.com", "wrong-password")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	user := storedUser(t, memStore, "alice@example.com")
	assert.False(t, user.AccountLocked)
	assert.Equal(t, 1, user.FailedLoginAttempts)
}

func TestLockoutCommitsWhenNotifierFails(t *testing.T) {
	svc, memStore, fake, _ := newTestService(t)
	fake.fail = true
	registerUser(t, svc, "alice@example.com", "Aa1!aaaa")

	for i := 0; i < 5; i++ {
		_, _ = svc.Login(context.Background(), "alice@example.com", "wrong-password")
	}
	assert.True(t, storedUser(t, memStore, "alice@example.com").AccountLocked)
}

func TestLoginDeactivatedAccount(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	user := registerUser(t, svc, "alice@example.com", "Aa1!aaaa")
	require.NoError(t, svc.DeactivateAccount(context.Background(), user.ID))

	_, err := svc.Login(context.Background(), "alice@example.com", "Aa1!aaaa")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

// --- two factor ---

func TestTwoFactorFlow(t *testing.T) {
	svc, memStore, fake, _ := newTestService(t)
	registerUser(t, svc, "bob@example.com", "Aa1!aaaa")
	enableTwoFactor(t, memStore, "bob@example.com")

	result, err := svc.Login(context.Background(), "bob@example.com", "Aa1!aaaa")
	require.NoError(t, err)
	assert.True(t, result.RequiresTwoFactor)
	assert.NotEmpty(t, result.TempToken)
	assert.Empty(t, result.AccessToken)
	assert.Equal(t, 1, fake.sentTo("Your verification code"))

	pending := storedUser(t, memStore, "bob@example.com")
	require.NotNil(t, pending.TwoFactorCode)
	require.NotNil(t, pending.TwoFactorCodeExpiry)

	verified, err := svc.VerifyTwoFactor(context.Background(), "bob@example.com", *pending.TwoFactorCode, result.TempToken)
	require.NoError(t, err)
	assert.NotEmpty(t, verified.AccessToken)

	cleared := storedUser(t, memStore, "bob@example.com")
	assert.Nil(t, cleared.TwoFactorCode)
	assert.Nil(t, cleared.TwoFactorCodeExpiry)
}

func TestTwoFactorCodeSingleUse(t *testing.T) {
	svc, memStore, _, _ := newTestService(t)
	registerUser(t, svc, "bob@example.com", "Aa1!aaaa")
	enableTwoFactor(t, memStore, "bob@example.com")

	result, err := svc.Login(context.Background(), "bob@example.com", "Aa1!aaaa")
	require.NoError(t, err)
	code := *storedUser(t, memStore, "bob@example.com").TwoFactorCode

	_, err = svc.VerifyTwoFactor(context.Background(), "bob@example.com", code, result.TempToken)
	require.NoError(t, err)
	_, err = svc.VerifyTwoFactor(context.Background(), "bob@example.com", code, result.TempToken)
	assert.ErrorIs(t, err, ErrCodeMismatch)
}

func TestTwoFactorWrongCode(t *testing.T) {
	svc, memStore, _, _ := newTestService(t)
	registerUser(t, svc, "bob@example.com", "Aa1!aaaa")
	enableTwoFactor(t, memStore, "bob@example.com")

	result, err := svc.Login(context.Background(), "bob@example.com", "Aa1!aaaa")
	require.NoError(t, err)
	code := *storedUser(t, memStore, "bob@example.com").TwoFactorCode
	wrong := "123456"
	if wrong == code {
		wrong = "654321"
	}

	_, err = svc.VerifyTwoFactor(context.Background(), "bob@example.com", wrong, result.TempToken)
	assert.ErrorIs(t, err, ErrCodeMismatch)

	// a wrong guess does not burn the stored code
	_, err = svc.VerifyTwoFactor(context.Background(), "bob@example.com", code, result.TempToken)
	assert.NoError(t, err)
}

func TestTwoFactorCodeExpiryBoundary(t *testing.T) {
	svc, memStore, _, clock := newTestService(t)
	registerUser(t, svc, "bob@example.com", "Aa1!aaaa")
	enableTwoFactor(t, memStore, "bob@example.com")

	result, err := svc.Login(context.Background(), "bob@example.com", "Aa1!aaaa")
	require.NoError(t, err)
	code := *storedUser(t, memStore, "bob@example.com").TwoFactorCode

	// one second before expiry the correct code still works
	clock.Advance(10*time.Minute - time.Second)
	_, err = svc.VerifyTwoFactor(context.Background(), "bob@example.com", code, result.TempToken)
	require.NoError(t, err)

	// fresh code, one second past expiry fails with Expired and clears it
	result, err = svc.Login(context.Background(), "bob@example.com", "Aa1!aaaa")
	require.NoError(t, err)
	code = *storedUser(t, memStore, "bob@example.com").TwoFactorCode
	clock.Advance(10*time.Minute + time.Second)
	_, err = svc.VerifyTwoFactor(context.Background(), "bob@example.com", code, result.TempToken)
	assert.ErrorIs(t, err, ErrCodeExpired)
	assert.Nil(t, storedUser(t, memStore, "bob@example.com").TwoFactorCode)
}

func TestTwoFactorRejectsForeignTempToken(t *testing.T) {
	svc, memStore, _, _ := newTestService(t)
	registerUser(t, svc, "bob@example.com", "Aa1!aaaa")
	registerUser(t, svc, "eve@example.com", "Aa1!aaaa")
	enableTwoFactor(t, memStore, "bob@example.com")
	enableTwoFactor(t, memStore, "eve@example.com")

	bobResult, err := svc.Login(context.Background(), "bob@example.com", "Aa1!aaaa")
	require.NoError(t, err)
	_, err = svc.Login(context.Background(), "eve@example.com", "Aa1!aaaa")
	require.NoError(t, err)
	eveCode := *storedUser(t, memStore, "eve@example.com").TwoFactorCode

	// eve cannot redeem her code with bob's temp token
	_, err = svc.VerifyTwoFactor(context.Background(), "eve@example.com", eveCode, bobResult.TempToken)
	assert.ErrorIs(t, err, utils.ErrTokenInvalid)
}

// --- password reset ---

func TestForgotPasswordUnknownEmailIsSilent(t *testing.T) {
	svc, _, fake, _ := newTestService(t)
	err := svc.ForgotPassword(context.Background(), "nobody@example.com")
	assert.NoError(t, err)
	assert.Empty(t, fake.sent)
}

func TestForgotPasswordOverwritesOutstandingToken(t *testing.T) {
	svc, memStore, _, _ := newTestService(t)
	registerUser(t, svc, "alice@example.com", "Aa1!aaaa")

	require.NoError(t, svc.ForgotPassword(context.Background(), "alice@example.com"))
	first := *storedUser(t, memStore, "alice@example.com").PasswordResetToken
	require.NoError(t, svc.ForgotPassword(context.Background(), "alice@example.com"))
	second := *storedUser(t, memStore, "alice@example.com").PasswordResetToken
	assert.NotEqual(t, first, second)

	// only the latest token is redeemable
	_, err := svc.ResetPassword(context.Background(), first, "NewPass1!")
	assert.ErrorIs(t, err, ErrResetTokenInvalid)
	_, err = svc.ResetPassword(context.Background(), second, "NewPass1!")
	assert.NoError(t, err)
}

func TestResetPasswordSingleUse(t *testing.T) {
	svc, memStore, _, _ := newTestService(t)
	registerUser(t, svc, "alice@example.com", "Aa1!aaaa")
	require.NoError(t, svc.ForgotPassword(context.Background(), "alice@example.com"))
	token := *storedUser(t, memStore, "alice@example.com").PasswordResetToken

	_, err := svc.ResetPassword(context.Background(), token, "NewPass1!")
	require.NoError(t, err)
	_, err = svc.ResetPassword(context.Background(), token, "NewPass2!")
	assert.ErrorIs(t, err, ErrResetTokenInvalid)
}

func TestResetPasswordUnlocksAccount(t *testing.T) {
	svc, memStore, _, _ := newTestService(t)
	registerUser(t, svc, "alice@example.com", "Aa1!aaaa")

	for i := 0; i < 5; i++ {
		_, _ = svc.Login(context.Background(), "alice@example.com", "wrong-password")
	}
	require.True(t, storedUser(t, memStore, "alice@example.com").AccountLocked)

	require.NoError(t, svc.ForgotPassword(context.Background(), "alice@example.com"))
	token := *storedUser(t, memStore, "alice@example.com").PasswordResetToken
	_, err := svc.ResetPassword(context.Background(), token, "NewPass1!")
	require.NoError(t, err)

	user := storedUser(t, memStore, "alice@example.com")
	assert.False(t, user.AccountLocked)
	assert.Equal(t, 0, user.FailedLoginAttempts)
	assert.Nil(t, user.LockoutExpiry)
	assert.Nil(t, user.PasswordResetToken)
	assert.Nil(t, user.PasswordResetExpiry)

	result, err := svc.Login(context.Background(), "alice@example.com", "NewPass1!")
	require.NoError(t, err)
	assert.NotEmpty(t, result.AccessToken)
}

func TestResetPasswordRevokesRefreshTokens(t *testing.T) {
	svc, memStore, _, _ := newTestService(t)
	user := registerUser(t, svc, "alice@example.com", "Aa1!aaaa")
	loginResult, err := svc.Login(context.Background(), "alice@example.com", "Aa1!aaaa")
	require.NoError(t, err)

	require.NoError(t, svc.ForgotPassword(context.Background(), "alice@example.com"))
	token := *storedUser(t, memStore, "alice@example.com").PasswordResetToken
	_, err = svc.ResetPassword(context.Background(), token, "NewPass1!")
	require.NoError(t, err)

	_, err = memStore.FindRefreshToken(context.Background(), user.ID, loginResult.RefreshToken)
	assert.ErrorIs(t, err, store.ErrNotFound)
	_, err = svc.Refresh(context.Background(), loginResult.RefreshToken)
	assert.ErrorIs(t, err, ErrRefreshInvalid)
}

func TestResetTokenExpiry(t *testing.T) {
	svc, memStore, _, clock := newTestService(t)
	registerUser(t, svc, "alice@example.com", "Aa1!aaaa")
	require.NoError(t, svc.ForgotPassword(context.Background(), "alice@example.com"))
	token := *storedUser(t, memStore, "alice@example.com").PasswordResetToken

	clock.Advance(time.Hour + time.Second)
	_, err := svc.ResetPassword(context.Background(), token, "NewPass1!")
	assert.ErrorIs(t, err, ErrResetTokenInvalid)
	assert.Nil(t, storedUser(t, memStore, "alice@example.com").PasswordResetToken)
}

func TestValidateResetTokenIsReadOnly(t *testing.T) {
	svc, memStore, _, _ := newTestService(t)
	registerUser(t, svc, "alice@example.com", "Aa1!aaaa")
	require.NoError(t, svc.ForgotPassword(context.Background(), "alice@example.com"))
	token := *storedUser(t, memStore, "alice@example.com").PasswordResetToken

	user, err := svc.ValidateResetToken(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", user.Email)

	// validation did not consume the token
	_, err = svc.ResetPassword(context.Background(), token, "NewPass1!")
	assert.NoError(t, err)
}

func TestValidateResetTokenClearsExpired(t *testing.T) {
	svc, memStore, _, clock := newTestService(t)
	registerUser(t, svc, "alice@example.com", "Aa1!aaaa")
	require.NoError(t, svc.ForgotPassword(context.Background(), "alice@example.com"))
	token := *storedUser(t, memStore, "alice@example.com").PasswordResetToken

	clock.Advance(2 * time.Hour)
	_, err := svc.ValidateResetToken(context.Background(), token)
	assert.ErrorIs(t, err, ErrResetTokenInvalid)
	assert.Nil(t, storedUser(t, memStore, "alice@example.com").PasswordResetToken)
}

// --- sessions ---

func TestVerifySessionRoundTrip(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	registerUser(t, svc, "alice@example.com", "Aa1!aaaa")
	result, err := svc.Login(context.Background(), "alice@example.com", "Aa1!aaaa")
	require.NoError(t, err)

	user, err := svc.VerifySession(context.Background(), result.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", user.Email)
}

func TestVerifySessionDeactivatedAccount(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	user := registerUser(t, svc, "alice@example.com", "Aa1!aaaa")
	result, err := svc.Login(context.Background(), "alice@example.com", "Aa1!aaaa")
	require.NoError(t, err)

	require.NoError(t, svc.DeactivateAccount(context.Background(), user.ID))
	_, err = svc.VerifySession(context.Background(), result.AccessToken)
	assert.ErrorIs(t, err, ErrAccountDeactivated)
}

func TestRefreshIssuesNewAccessToken(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	registerUser(t, svc, "alice@example.com", "Aa1!aaaa")
	result, err := svc.Login(context.Background(), "alice@example.com", "Aa1!aaaa")
	require.NoError(t, err)

	accessToken, err := svc.Refresh(context.Background(), result.RefreshToken)
	require.NoError(t, err)
	user, err := svc.VerifySession(context.Background(), accessToken)
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", user.Email)

	// an access token is not a refresh token
	_, err = svc.Refresh(context.Background(), result.AccessToken)
	assert.ErrorIs(t, err, utils.ErrTokenInvalid)
}
