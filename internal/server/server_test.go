package server

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"image"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AyuTriphasari/zlk-ai/pkg/agent"
	"github.com/AyuTriphasari/zlk-ai/pkg/config"
	"github.com/AyuTriphasari/zlk-ai/pkg/llm"
	"github.com/AyuTriphasari/zlk-ai/pkg/media"
	"github.com/AyuTriphasari/zlk-ai/pkg/mediacache"
)

// fakeChat — подменный цикл оркестрации.
type fakeChat struct {
	result   agent.Result
	err      error
	gotModel string
	gotKey   string
	gotMsgs  []llm.Message
}

func (f *fakeChat) Run(ctx context.Context, messages []llm.Message, model, apiKey string) (agent.Result, error) {
	f.gotMsgs = messages
	f.gotModel = model
	f.gotKey = apiKey
	return f.result, f.err
}

// fakeMedia — подменный клиент генерации.
type fakeMedia struct {
	result media.Result
	err    error
	gotReq media.GenerateRequest
	edited bool
}

func (f *fakeMedia) Generate(ctx context.Context, req media.GenerateRequest) (media.Result, error) {
	f.gotReq = req
	return f.result, f.err
}

func (f *fakeMedia) Edit(ctx context.Context, req media.GenerateRequest) (media.Result, error) {
	f.gotReq = req
	f.edited = true
	return f.result, f.err
}

type fakeUploader struct {
	url string
	err error
}

func (f *fakeUploader) Upload(ctx context.Context, data []byte, filename, contentType string) (string, error) {
	return f.url, f.err
}

func testConfig() config.AppConfig {
	return config.AppConfig{
		Upstream: config.UpstreamConfig{APIKey: "server-key", DefaultModel: "openai"},
		Agent:    config.AgentConfig{HistoryWindow: 10},
		Upload:   config.UploadConfig{MaxWidth: 2048, Quality: 85},
	}
}

func newTestServer(chat *fakeChat, mediaClient *fakeMedia) (*Server, *mediacache.Cache) {
	cache := mediacache.New(time.Hour)
	return New(testConfig(), chat, mediaClient, cache, nil), cache
}

func postJSON(t *testing.T, handler http.Handler, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) errorBody {
	t.Helper()
	var body errorBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

// sseData разбирает тело SSE ответа в список data-полезных нагрузок.
func sseData(t *testing.T, body string) []string {
	t.Helper()
	var out []string
	scanner := bufio.NewScanner(strings.NewReader(body))
	for scanner.Scan() {
		line := scanner.Text()
		if strings.HasPrefix(line, "data: ") {
			out = append(out, strings.TrimPrefix(line, "data: "))
		}
	}
	return out
}

func TestChatStreamsResult(t *testing.T) {
	chat := &fakeChat{result: agent.Result{
		Answer:       "It's sunny.",
		StatusLabels: []string{"Getting weather data..."},
	}}
	srv, _ := newTestServer(chat, &fakeMedia{})

	rec := postJSON(t, srv.Handler(), "/api/chat", map[string]any{
		"messages": []map[string]any{{"role": "user", "content": "weather?"}},
	})

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))

	frames := sseData(t, rec.Body.String())
	require.Equal(t, []string{
		`{"status":"Getting weather data..."}`,
		`{"statusCleared":true}`,
		`{"content":"It's sunny."}`,
		`[DONE]`,
	}, frames)

	// Модель по умолчанию и серверный ключ
	assert.Equal(t, "openai", chat.gotModel)
	assert.Equal(t, "server-key", chat.gotKey)
	// Нормализация уже применена: первым идёт системный preamble
	require.NotEmpty(t, chat.gotMsgs)
	assert.Equal(t, llm.RoleSystem, chat.gotMsgs[0].Role)
}

func TestChatEmptyMessages(t *testing.T) {
	srv, _ := newTestServer(&fakeChat{}, &fakeMedia{})

	rec := postJSON(t, srv.Handler(), "/api/chat", map[string]any{
		"messages": []map[string]any{},
	})

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Messages array is required", decodeError(t, rec).Error)
}

func TestChatInvalidBody(t *testing.T) {
	srv, _ := newTestServer(&fakeChat{}, &fakeMedia{})

	req := httptest.NewRequest(http.MethodPost, "/api/chat", strings.NewReader("{broken"))
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestChatNoAPIKey(t *testing.T) {
	cfg := testConfig()
	cfg.Upstream.APIKey = ""
	chat := &fakeChat{}
	srv := New(cfg, chat, &fakeMedia{}, mediacache.New(time.Hour), nil)

	rec := postJSON(t, srv.Handler(), "/api/chat", map[string]any{
		"messages": []map[string]any{{"role": "user", "content": "hi"}},
	})

	// Конфигурационная ошибка: до upstream не дошли
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "API key not configured", decodeError(t, rec).Error)
	assert.Nil(t, chat.gotMsgs)
}

func TestChatUserKeyOverrides(t *testing.T) {
	chat := &fakeChat{result: agent.Result{Answer: "hi"}}
	srv, _ := newTestServer(chat, &fakeMedia{})

	rec := postJSON(t, srv.Handler(), "/api/chat?apiKey=user-key", map[string]any{
		"messages": []map[string]any{{"role": "user", "content": "hi"}},
	})

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "user-key", chat.gotKey)
}

func TestChatVisionModelCoercion(t *testing.T) {
	chat := &fakeChat{result: agent.Result{Answer: "a cat"}}
	srv, _ := newTestServer(chat, &fakeMedia{})

	rec := postJSON(t, srv.Handler(), "/api/chat", map[string]any{
		"model": "mistral",
		"messages": []map[string]any{{
			"role": "user",
			"content": []map[string]any{
				{"type": "text", "text": "what is this?"},
				{"type": "image_url", "image_url": map[string]any{"url": "data:image/png;base64,xx"}},
			},
		}},
	})

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "openai", chat.gotModel)
}

func TestChatUpstreamFailure(t *testing.T) {
	chat := &fakeChat{err: errors.New("upstream chat failed: 502")}
	srv, _ := newTestServer(chat, &fakeMedia{})

	rec := postJSON(t, srv.Handler(), "/api/chat", map[string]any{
		"messages": []map[string]any{{"role": "user", "content": "hi"}},
	})

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	body := decodeError(t, rec)
	assert.Equal(t, "Failed to process chat request", body.Error)
	assert.Contains(t, body.Detail, "502")
}

func TestImageGenerateAndView(t *testing.T) {
	mediaClient := &fakeMedia{result: media.Result{
		Data:        []byte("png bytes"),
		ContentType: "image/png",
	}}
	srv, _ := newTestServer(&fakeChat{}, mediaClient)

	req := httptest.NewRequest(http.MethodGet, "/api/image?prompt=a+fox&width=512", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "a fox", body["prompt"])
	assert.Equal(t, "flux", body["model"])

	assert.Equal(t, 512, mediaClient.gotReq.Width)
	assert.Equal(t, int64(-1), mediaClient.gotReq.Seed)

	// Отданная ссылка действительно отдаёт байты
	viewURL, _ := body["url"].(string)
	require.True(t, strings.HasPrefix(viewURL, "/api/view?id="))

	viewReq := httptest.NewRequest(http.MethodGet, viewURL, nil)
	viewRec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(viewRec, viewReq)

	require.Equal(t, http.StatusOK, viewRec.Code)
	assert.Equal(t, "image/png", viewRec.Header().Get("Content-Type"))
	assert.Equal(t, "png bytes", viewRec.Body.String())
}

func TestImageMissingPrompt(t *testing.T) {
	srv, _ := newTestServer(&fakeChat{}, &fakeMedia{})

	req := httptest.NewRequest(http.MethodGet, "/api/image", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Prompt is required", decodeError(t, rec).Error)
}

func TestImageUpstreamFailure(t *testing.T) {
	mediaClient := &fakeMedia{err: errors.New("status 502")}
	srv, _ := newTestServer(&fakeChat{}, mediaClient)

	req := httptest.NewRequest(http.MethodGet, "/api/image?prompt=x", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "Failed to generate image", decodeError(t, rec).Error)
}

func TestVideoPassesOptions(t *testing.T) {
	mediaClient := &fakeMedia{result: media.Result{Data: []byte("mp4"), ContentType: "video/mp4"}}
	srv, _ := newTestServer(&fakeChat{}, mediaClient)

	req := httptest.NewRequest(http.MethodGet,
		"/api/video?prompt=waves&duration=5&aspectRatio=16:9", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, media.DefaultVideoModel, mediaClient.gotReq.Model)
	assert.Equal(t, "5", mediaClient.gotReq.Duration)
	assert.Equal(t, "16:9", mediaClient.gotReq.AspectRatio)
}

func TestEdit(t *testing.T) {
	mediaClient := &fakeMedia{result: media.Result{Data: []byte("edited"), ContentType: "image/png"}}
	srv, _ := newTestServer(&fakeChat{}, mediaClient)

	rec := postJSON(t, srv.Handler(), "/api/edit", map[string]any{
		"prompt":   "make it blue",
		"imageUrl": "https://cdn.example.com/a.png",
	})

	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, mediaClient.edited)
	assert.Equal(t, "klein", mediaClient.gotReq.Model)
	assert.Equal(t, "https://cdn.example.com/a.png", mediaClient.gotReq.SourceImageURL)
	assert.NotZero(t, mediaClient.gotReq.Seed)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "klein", body["model"])
}

func TestEditInvalidModel(t *testing.T) {
	srv, _ := newTestServer(&fakeChat{}, &fakeMedia{})

	rec := postJSON(t, srv.Handler(), "/api/edit", map[string]any{
		"prompt":   "x",
		"imageUrl": "https://e/a.png",
		"model":    "dalle",
	})

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decodeError(t, rec).Error, "Invalid model")
}

func TestEditMissingFields(t *testing.T) {
	srv, _ := newTestServer(&fakeChat{}, &fakeMedia{})

	rec := postJSON(t, srv.Handler(), "/api/edit", map[string]any{"prompt": "x"})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Image URL is required", decodeError(t, rec).Error)

	rec = postJSON(t, srv.Handler(), "/api/edit", map[string]any{"imageUrl": "https://e/a.png"})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Prompt is required", decodeError(t, rec).Error)
}

func TestEditModelList(t *testing.T) {
	srv, _ := newTestServer(&fakeChat{}, &fakeMedia{})

	req := httptest.NewRequest(http.MethodGet, "/api/edit", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Models []string `json:"models"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, []string{"klein", "klein-large", "gptimage", "seedream", "nanobanana"}, body.Models)
}

func TestViewMissingAndExpired(t *testing.T) {
	srv, _ := newTestServer(&fakeChat{}, &fakeMedia{})

	req := httptest.NewRequest(http.MethodGet, "/api/view", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/api/view?id=gone", nil)
	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func multipartBody(t *testing.T, filename, contentType string, data []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	header := textproto.MIMEHeader{}
	header.Set("Content-Disposition", `form-data; name="file"; filename="`+filename+`"`)
	header.Set("Content-Type", contentType)
	part, err := writer.CreatePart(header)
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, writer.Close())
	return &buf, writer.FormDataContentType()
}

func TestUpload(t *testing.T) {
	uploader := &fakeUploader{url: "https://cdn.example.com/uploads/1-abc-a.png"}
	srv := New(testConfig(), &fakeChat{}, &fakeMedia{}, mediacache.New(time.Hour), uploader)

	body, contentType := multipartBody(t, "a.png", "image/png", pngBytes(t))
	req := httptest.NewRequest(http.MethodPost, "/api/upload", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, uploader.url, resp["url"])
}

func TestUploadNoFile(t *testing.T) {
	uploader := &fakeUploader{url: "https://x"}
	srv := New(testConfig(), &fakeChat{}, &fakeMedia{}, mediacache.New(time.Hour), uploader)

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	require.NoError(t, writer.WriteField("other", "value"))
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/upload", &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "No file", decodeError(t, rec).Error)
}

func TestUploadStorageNotConfigured(t *testing.T) {
	srv, _ := newTestServer(&fakeChat{}, &fakeMedia{})

	body, contentType := multipartBody(t, "a.png", "image/png", pngBytes(t))
	req := httptest.NewRequest(http.MethodPost, "/api/upload", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "Storage not configured", decodeError(t, rec).Error)
}

func TestHealthz(t *testing.T) {
	srv, _ := newTestServer(&fakeChat{}, &fakeMedia{})

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}
