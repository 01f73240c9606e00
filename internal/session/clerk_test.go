package session

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/clerk/clerk-sdk-go/v2"
	jose "github.com/go-jose/go-jose/v3"
	josejwt "github.com/go-jose/go-jose/v3/jwt"
	"github.com/hfdm/hfdm/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr(s string) *string { return &s }

const testKeyID = "ins_test_1"

var (
	testKeyOnce sync.Once
	testKey     *rsa.PrivateKey
	otherKey    *rsa.PrivateKey
)

func signingKeyPair(t *testing.T) (*rsa.PrivateKey, *rsa.PrivateKey) {
	t.Helper()
	testKeyOnce.Do(func() {
		var err error
		testKey, err = rsa.GenerateKey(rand.Reader, 2048)
		if err != nil {
			panic(err)
		}
		otherKey, err = rsa.GenerateKey(rand.Reader, 2048)
		if err != nil {
			panic(err)
		}
	})
	return testKey, otherKey
}

// signToken issues a Clerk-shaped session JWT signed with key under kid.
func signToken(t *testing.T, key *rsa.PrivateKey, kid, subject string, expiry time.Time) string {
	t.Helper()

	signer, err := jose.NewSigner(
		jose.SigningKey{Algorithm: jose.RS256, Key: key},
		(&jose.SignerOptions{}).WithType("JWT").WithHeader("kid", kid),
	)
	require.NoError(t, err)

	token, err := josejwt.Signed(signer).Claims(josejwt.Claims{
		Issuer:   "https://clerk.hfdm.test",
		Subject:  subject,
		IssuedAt: josejwt.NewNumericDate(time.Now().Add(-time.Minute)),
		Expiry:   josejwt.NewNumericDate(expiry),
	}).CompactSerialize()
	require.NoError(t, err)
	return token
}

func validToken(t *testing.T, subject string) string {
	key, _ := signingKeyPair(t)
	return signToken(t, key, testKeyID, subject, time.Now().Add(time.Minute))
}

// fakeKeySet serves the test public key and counts fetches.
type fakeKeySet struct {
	calls atomic.Int32
	err   error
}

func (f *fakeKeySet) Fetch(context.Context) (*clerk.JSONWebKeySet, error) {
	f.calls.Add(1)
	if f.err != nil {
		return nil, f.err
	}
	return &clerk.JSONWebKeySet{
		Keys: []*clerk.JSONWebKey{
			{KeyID: testKeyID, Algorithm: "RS256", Use: "sig", Key: &testKey.PublicKey},
		},
	}, nil
}

func fakeClerkUser(id string) *clerk.User {
	return &clerk.User{
		ID:                    id,
		FirstName:             ptr("Grace"),
		LastName:              ptr("Hopper"),
		PrimaryEmailAddressID: ptr("em_2"),
		EmailAddresses: []*clerk.EmailAddress{
			{ID: "em_1", EmailAddress: "other@example.com"},
			{ID: "em_2", EmailAddress: "grace@example.com"},
		},
	}
}

func newTestClerkProvider(t *testing.T, keys *fakeKeySet, getUser func(context.Context, string) (*clerk.User, error), users UserSyncer) *ClerkProvider {
	t.Helper()

	signingKeyPair(t)
	if keys == nil {
		keys = &fakeKeySet{}
	}
	p := NewClerkProvider(ClerkOptions{
		FetchKeys: keys.Fetch,
		GetUser:   getUser,
		Users:     users,
	})
	t.Cleanup(p.Close)
	return p
}

func requestWithToken(token string) *http.Request {
	req := httptest.NewRequest("GET", "/", nil)
	if token != "" {
		req.AddCookie(&http.Cookie{Name: "__session", Value: token})
	}
	return req
}

func returnUser(_ context.Context, id string) (*clerk.User, error) {
	return fakeClerkUser(id), nil
}

func TestClerkProvider_NoToken(t *testing.T) {
	p := newTestClerkProvider(t, nil, func(context.Context, string) (*clerk.User, error) {
		t.Fatal("user lookup should not happen without a token")
		return nil, nil
	}, nil)

	s, err := p.Current(context.Background(), requestWithToken(""))
	assert.NoError(t, err)
	assert.Nil(t, s)
}

func TestClerkProvider_InvalidTokenIsAbsent(t *testing.T) {
	p := newTestClerkProvider(t, nil, func(context.Context, string) (*clerk.User, error) {
		return fakeClerkUser("user_1"), nil
	}, nil)

	_, wrongKey := signingKeyPair(t)
	tokens := map[string]string{
		"not a jwt":       "forged",
		"expired":         signToken(t, testKey, testKeyID, "user_1", time.Now().Add(-time.Hour)),
		"wrong signature": signToken(t, wrongKey, testKeyID, "user_1", time.Now().Add(time.Minute)),
		"unknown key id":  signToken(t, testKey, "ins_rotated", "user_1", time.Now().Add(time.Minute)),
	}

	for name, token := range tokens {
		t.Run(name, func(t *testing.T) {
			s, err := p.Current(context.Background(), requestWithToken(token))
			assert.NoError(t, err)
			assert.Nil(t, s)
		})
	}
}

func TestClerkProvider_KeyFetchFailurePropagates(t *testing.T) {
	boom := errors.New("dial tcp api.clerk.com:443: connect: connection refused")
	keys := &fakeKeySet{err: boom}
	p := newTestClerkProvider(t, keys, func(context.Context, string) (*clerk.User, error) {
		t.Fatal("user lookup should not happen without signing keys")
		return nil, nil
	}, nil)

	s, err := p.Current(context.Background(), requestWithToken(validToken(t, "user_1")))
	assert.ErrorIs(t, err, boom)
	assert.Nil(t, s)
}

func TestClerkProvider_CachesSigningKeys(t *testing.T) {
	keys := &fakeKeySet{}
	p := newTestClerkProvider(t, keys, returnUser, nil)

	for i := 0; i < 3; i++ {
		s, err := p.Current(context.Background(), requestWithToken(validToken(t, "user_1")))
		require.NoError(t, err)
		require.True(t, s.Authenticated())
	}
	assert.Equal(t, int32(1), keys.calls.Load())

	// An unknown kid triggers at most one refetch per refresh interval.
	rotated := signToken(t, testKey, "ins_rotated", "user_1", time.Now().Add(time.Minute))
	for i := 0; i < 3; i++ {
		s, err := p.Current(context.Background(), requestWithToken(rotated))
		require.NoError(t, err)
		assert.Nil(t, s)
	}
	assert.Equal(t, int32(1), keys.calls.Load())

	p.keys.now = func() time.Time { return time.Now().Add(2 * time.Minute) }
	_, err := p.Current(context.Background(), requestWithToken(rotated))
	require.NoError(t, err)
	assert.Equal(t, int32(2), keys.calls.Load())
}

func TestClerkProvider_ResolvesUser(t *testing.T) {
	p := newTestClerkProvider(t, nil, func(_ context.Context, id string) (*clerk.User, error) {
		return fakeClerkUser(id), nil
	}, nil)

	s, err := p.Current(context.Background(), requestWithToken(validToken(t, "user_1")))
	require.NoError(t, err)
	require.True(t, s.Authenticated())
	assert.Equal(t, "user_1", s.User.ID)
	assert.Equal(t, "grace@example.com", s.User.Email)
	assert.Equal(t, "Grace Hopper", s.User.Name)
	assert.False(t, s.ExpiresAt.IsZero())
}

func TestClerkProvider_SyncsToStorage(t *testing.T) {
	store, cleanup, err := storage.NewTestStorage()
	require.NoError(t, err)
	t.Cleanup(cleanup)

	p := newTestClerkProvider(t, nil, func(_ context.Context, id string) (*clerk.User, error) {
		return fakeClerkUser(id), nil
	}, store)

	s, err := p.Current(context.Background(), requestWithToken(validToken(t, "user_1")))
	require.NoError(t, err)
	require.True(t, s.Authenticated())
	assert.Equal(t, "user_1", s.User.ExternalID)
	assert.NotEqual(t, "user_1", s.User.ID, "session should carry the local user id")

	stored, err := store.Queries.GetUserByExternalID(context.Background(), "user_1")
	require.NoError(t, err)
	assert.Equal(t, stored.ID, s.User.ID)
	assert.Equal(t, "grace@example.com", stored.Email)
}

func TestClerkProvider_LookupFailurePropagates(t *testing.T) {
	boom := errors.New("clerk unavailable")
	p := newTestClerkProvider(t, nil, func(context.Context, string) (*clerk.User, error) {
		return nil, boom
	}, nil)

	s, err := p.Current(context.Background(), requestWithToken(validToken(t, "user_1")))
	assert.ErrorIs(t, err, boom)
	assert.Nil(t, s)
}

func TestClerkProvider_CachesAndCollapsesLookups(t *testing.T) {
	var calls atomic.Int32
	release := make(chan struct{})
	p := newTestClerkProvider(t, nil, func(_ context.Context, id string) (*clerk.User, error) {
		calls.Add(1)
		<-release
		return fakeClerkUser(id), nil
	}, nil)
	token := validToken(t, "user_1")

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s, err := p.Current(context.Background(), requestWithToken(token))
			assert.NoError(t, err)
			assert.True(t, s.Authenticated())
		}()
	}

	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	_, err := p.Current(context.Background(), requestWithToken(token))
	require.NoError(t, err)
	assert.LessOrEqual(t, calls.Load(), int32(8))
	callsAfterCache := calls.Load()

	_, err = p.Current(context.Background(), requestWithToken(token))
	require.NoError(t, err)
	assert.Equal(t, callsAfterCache, calls.Load(), "cached user should not be fetched again")

	p.Invalidate("user_1")
	_, err = p.Current(context.Background(), requestWithToken(token))
	require.NoError(t, err)
	assert.Equal(t, callsAfterCache+1, calls.Load())
}

func TestClerkProvider_CancelledCallerDoesNotFailOthers(t *testing.T) {
	var calls atomic.Int32
	started := make(chan struct{})
	release := make(chan struct{})
	p := newTestClerkProvider(t, nil, func(ctx context.Context, id string) (*clerk.User, error) {
		if calls.Add(1) == 1 {
			close(started)
		}
		<-release
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return fakeClerkUser(id), nil
	}, nil)

	token := validToken(t, "user_1")

	ctxA, cancelA := context.WithCancel(context.Background())
	errA := make(chan error, 1)
	go func() {
		_, err := p.Current(ctxA, requestWithToken(token))
		errA <- err
	}()
	<-started

	type result struct {
		s   *Session
		err error
	}
	resB := make(chan result, 1)
	go func() {
		s, err := p.Current(context.Background(), requestWithToken(token))
		resB <- result{s, err}
	}()

	cancelA()
	assert.ErrorIs(t, <-errA, context.Canceled)

	time.Sleep(20 * time.Millisecond)
	close(release)

	b := <-resB
	require.NoError(t, b.err)
	assert.True(t, b.s.Authenticated())
	assert.Equal(t, int32(1), calls.Load())
}

func TestClerkProvider_Clear(t *testing.T) {
	p := newTestClerkProvider(t, nil, nil, nil)

	w := httptest.NewRecorder()
	p.Clear(w)

	var names []string
	for _, c := range w.Result().Cookies() {
		names = append(names, c.Name)
		assert.Equal(t, -1, c.MaxAge)
	}
	assert.ElementsMatch(t, clerkCookies, names)
}

func TestUserCache_Expiry(t *testing.T) {
	c := newUserCache(time.Minute)
	t.Cleanup(c.Stop)

	now := time.Now()
	c.now = func() time.Time { return now }
	c.Set("a", User{ID: "a"})

	u, ok := c.Get("a")
	require.True(t, ok)
	assert.Equal(t, "a", u.ID)

	c.now = func() time.Time { return now.Add(2 * time.Minute) }
	_, ok = c.Get("a")
	assert.False(t, ok)

	c.sweep()
	assert.Equal(t, 0, c.Len())
}
