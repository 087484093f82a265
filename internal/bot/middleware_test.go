package bot

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tele "gopkg.in/telebot.v3"

	"telegram-grower-bot/internal/config"
)

// fakeContext implements the parts of tele.Context the middlewares use.
type fakeContext struct {
	tele.Context

	sender   *tele.User
	chat     *tele.Chat
	callback *tele.Callback
	store    map[string]any

	replies   []string
	responses int
}

func newFakeContext(uid, chatID int64, chatType tele.ChatType) *fakeContext {
	return &fakeContext{
		sender: &tele.User{ID: uid, Username: "user"},
		chat:   &tele.Chat{ID: chatID, Type: chatType},
		store:  map[string]any{},
	}
}

func (c *fakeContext) Sender() *tele.User       { return c.sender }
func (c *fakeContext) Chat() *tele.Chat         { return c.chat }
func (c *fakeContext) Callback() *tele.Callback { return c.callback }
func (c *fakeContext) Text() string             { return "/grow" }
func (c *fakeContext) Set(key string, v any)    { c.store[key] = v }
func (c *fakeContext) Get(key string) any       { return c.store[key] }

func (c *fakeContext) Reply(what any, _ ...any) error {
	c.replies = append(c.replies, what.(string))
	return nil
}

func (c *fakeContext) Respond(_ ...*tele.CallbackResponse) error {
	c.responses++
	return nil
}

func counting(calls *int) tele.HandlerFunc {
	return func(tele.Context) error {
		*calls++
		return nil
	}
}

func TestWhitelistMiddleware(t *testing.T) {
	cfg := &config.Config{Whitelist: config.WhitelistConfig{Chats: []int64{-100}}}
	users, err := NewPrivateUsers(10)
	require.NoError(t, err)

	calls := 0
	h := WhitelistMiddleware(cfg, users)(counting(&calls))

	require.NoError(t, h(newFakeContext(1, 7, tele.ChatPrivate)))
	assert.Equal(t, 0, calls, "unknown user in private chat")

	require.NoError(t, h(newFakeContext(1, -200, tele.ChatGroup)))
	assert.Equal(t, 0, calls, "chat outside the whitelist")

	require.NoError(t, h(newFakeContext(1, -100, tele.ChatSuperGroup)))
	assert.Equal(t, 1, calls)

	require.NoError(t, h(newFakeContext(1, 7, tele.ChatPrivate)))
	assert.Equal(t, 2, calls, "user seen in a whitelisted group")
}

func TestAdminMiddleware(t *testing.T) {
	cfg := &config.Config{Admin: config.AdminConfig{IDs: []int64{42}}}
	calls := 0
	h := AdminMiddleware(cfg)(counting(&calls))

	c := newFakeContext(1, -100, tele.ChatGroup)
	require.NoError(t, h(c))
	assert.Equal(t, 0, calls)
	require.Len(t, c.replies, 1)
	assert.Contains(t, c.replies[0], "admin only")

	require.NoError(t, h(newFakeContext(42, -100, tele.ChatGroup)))
	assert.Equal(t, 1, calls)
}

func TestRateLimiterMiddleware(t *testing.T) {
	rl, err := NewRateLimiter(1e-9, 1, 10)
	require.NoError(t, err)
	calls := 0
	h := rl.Middleware()(counting(&calls))

	require.NoError(t, h(newFakeContext(1, -100, tele.ChatGroup)))
	require.NoError(t, h(newFakeContext(1, -100, tele.ChatGroup)))
	assert.Equal(t, 1, calls)

	press := newFakeContext(1, -100, tele.ChatGroup)
	press.callback = &tele.Callback{Data: "top:page:1"}
	require.NoError(t, h(press))
	assert.Equal(t, 1, calls)
	assert.Equal(t, 1, press.responses)
}

func TestRateLimiterDisabled(t *testing.T) {
	rl, err := NewRateLimiter(0, 0, 10)
	require.NoError(t, err)
	for range 100 {
		require.True(t, rl.Allow(1))
	}
}

func TestLoggingMiddlewareSetsRequestID(t *testing.T) {
	boom := errors.New("boom")
	c := newFakeContext(1, -100, tele.ChatGroup)

	err := LoggingMiddleware()(func(c tele.Context) error {
		assert.NotEmpty(t, c.Get(requestIDKey))
		return boom
	})(c)
	assert.ErrorIs(t, err, boom)
}

func TestRecoveryMiddleware(t *testing.T) {
	c := newFakeContext(1, -100, tele.ChatGroup)
	err := RecoveryMiddleware()(func(tele.Context) error {
		panic("handler bug")
	})(c)
	require.NoError(t, err)
	require.Len(t, c.replies, 1)
	assert.Contains(t, c.replies[0], "Internal error")
}
