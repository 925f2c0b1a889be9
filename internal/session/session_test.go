package session

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/RichardoC/coding-agent/internal/catalog"
	"github.com/RichardoC/coding-agent/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func msg(role, content string) models.ChatMessage {
	return models.ChatMessage{Role: role, Content: content, Timestamp: time.Now()}
}

func TestNewState(t *testing.T) {
	s := NewState()
	assert.Equal(t, catalog.DefaultModel, s.Model())
	assert.Zero(t, s.Len())
	assert.False(t, s.DarkMode())
}

func TestState_TransitionsArePure(t *testing.T) {
	s0 := NewState()
	s1 := s0.AppendMessage(msg(models.RoleUser, "hi"))
	s2 := s1.AppendMessage(msg(models.RoleAssistant, "hello"))

	assert.Zero(t, s0.Len())
	assert.Equal(t, 1, s1.Len())
	assert.Equal(t, 2, s2.Len())

	// a sibling append from s1 must not clobber s2's second element
	s3 := s1.AppendMessage(msg(models.RoleUser, "other"))
	assert.Equal(t, "hello", s2.History()[1].Content)
	assert.Equal(t, "other", s3.History()[1].Content)
}

func TestState_HistoryIsACopy(t *testing.T) {
	s := NewState().AppendMessage(models.ChatMessage{
		Role:        models.RoleUser,
		Content:     "pic",
		Attachments: []models.Attachment{{Type: models.AttachmentImage, Data: "/uploads/a"}},
	})

	h := s.History()
	h[0].Content = "changed"
	h[0].Attachments[0].Data = "changed"

	assert.Equal(t, "pic", s.History()[0].Content)
	assert.Equal(t, "/uploads/a", s.History()[0].Attachments[0].Data)
}

func TestState_AppendOnlyUntilClear(t *testing.T) {
	s := NewState()
	prev := 0
	for i := 0; i < 10; i++ {
		s = s.AppendMessage(msg(models.RoleUser, "m"))
		require.GreaterOrEqual(t, s.Len(), prev)
		prev = s.Len()
	}
	assert.Zero(t, s.ClearHistory().Len())
}

func TestState_ToggleDarkModeTwice(t *testing.T) {
	for _, start := range []bool{false, true} {
		s := NewState()
		if start {
			s = s.ToggleDarkMode()
		}
		assert.Equal(t, start, s.ToggleDarkMode().ToggleDarkMode().DarkMode())
		assert.Equal(t, !start, s.ToggleDarkMode().DarkMode())
	}
}

func TestState_ModelAndKeys(t *testing.T) {
	keys := models.APIKeys{GoogleAPIKey: "g-123456", OpenAIAPIKey: "sk-abcdef"}
	s := NewState().WithModel("claude:claude-3-haiku-20240307").WithAPIKeys(keys)

	assert.Equal(t, "claude:claude-3-haiku-20240307", s.Model())
	assert.Equal(t, keys, s.APIKeys())

	snap := s.Snapshot()
	assert.Equal(t, "****3456", snap.APIKeys.GoogleAPIKey)
	assert.Equal(t, "", snap.APIKeys.AnthropicAPIKey)
	assert.Equal(t, "****cdef", snap.APIKeys.OpenAIAPIKey)
	assert.NotNil(t, snap.ChatHistory)
}

func TestState_ReplaceHistory(t *testing.T) {
	src := []models.ChatMessage{msg(models.RoleUser, "a"), msg(models.RoleAssistant, "b")}
	s := NewState().AppendMessage(msg(models.RoleUser, "old")).ReplaceHistory(src)

	src[0].Content = "mutated"
	require.Equal(t, 2, s.Len())
	assert.Equal(t, "a", s.History()[0].Content)
}

func TestStore_CreateGetUpdate(t *testing.T) {
	st := NewStore()
	id := st.Create()

	_, after, err := st.Update(id, func(s State) State { return s.ToggleDarkMode() })
	require.NoError(t, err)
	assert.True(t, after.DarkMode())

	got, err := st.Get(id)
	require.NoError(t, err)
	assert.True(t, got.DarkMode())

	_, err = st.Get("missing")
	assert.ErrorIs(t, err, ErrNotFound)
	_, _, err = st.Update("missing", func(s State) State { return s })
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStore_ConcurrentAppends(t *testing.T) {
	st := NewStore()
	id := st.Create()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, _ = st.Update(id, func(s State) State {
				return s.AppendMessage(msg(models.RoleUser, "x"))
			})
		}()
	}
	wg.Wait()

	s, err := st.Get(id)
	require.NoError(t, err)
	assert.Equal(t, 50, s.Len())
}

func TestStore_Prune(t *testing.T) {
	st := NewStore()
	now := time.Now()
	st.now = func() time.Time { return now }
	old := st.Create()

	now = now.Add(2 * time.Hour)
	fresh := st.Create()

	assert.Equal(t, []string{old}, st.Prune(time.Hour))
	assert.Empty(t, st.Prune(time.Hour))
	_, err := st.Get(old)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = st.Get(fresh)
	assert.NoError(t, err)
}

func TestStore_Resolve(t *testing.T) {
	st := NewStore()

	rec := httptest.NewRecorder()
	id := st.Resolve(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	require.NotEmpty(t, id)

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, CookieName, cookies[0].Name)
	assert.Equal(t, id, cookies[0].Value)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(cookies[0])
	rec2 := httptest.NewRecorder()
	assert.Equal(t, id, st.Resolve(rec2, req))
	assert.Empty(t, rec2.Result().Cookies())

	stale := httptest.NewRequest(http.MethodGet, "/", nil)
	stale.AddCookie(&http.Cookie{Name: CookieName, Value: "gone"})
	assert.NotEqual(t, "gone", st.Resolve(httptest.NewRecorder(), stale))
	assert.Equal(t, 2, st.Len())
}
