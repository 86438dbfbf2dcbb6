package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bgwastu/ai-website-generator-sub000/internal/deploy"
	"github.com/bgwastu/ai-website-generator-sub000/internal/generator"
	"github.com/bgwastu/ai-website-generator-sub000/internal/objectstore"
	"github.com/bgwastu/ai-website-generator-sub000/internal/project"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeRegistry struct {
	failRegister error
}

func (f *fakeRegistry) Register(ctx context.Context, hostname string) error   { return f.failRegister }
func (f *fakeRegistry) Unregister(ctx context.Context, hostname string) error { return nil }

type fakeGen struct {
	reply string
	err   error

	lastInstructions string
	lastSection      string
	lastDocument     string
	lastAssets       []generator.AssetRef
}

func (f *fakeGen) Generate(ctx context.Context, currentDocument, instructions, chatContext string, assets []generator.AssetRef) (string, error) {
	f.lastDocument, f.lastInstructions, f.lastAssets = currentDocument, instructions, assets
	return f.reply, f.err
}

func (f *fakeGen) PatchSection(ctx context.Context, currentDocument, sectionName, instructions, chatContext string, assets []generator.AssetRef) (string, error) {
	f.lastDocument, f.lastSection, f.lastInstructions, f.lastAssets = currentDocument, sectionName, instructions, assets
	return f.reply, f.err
}

type fakeCaptioner struct{}

func (fakeCaptioner) Caption(ctx context.Context, imageBytes []byte, contentType string) (string, error) {
	return "a test image", nil
}

type fixture struct {
	router  *gin.Engine
	store   *project.FileStore
	objects *objectstore.Memory
	gen     *fakeGen
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store, err := project.OpenFileStore(filepath.Join(t.TempDir(), "projects.json"))
	require.NoError(t, err)
	objects := objectstore.NewMemory()
	gen := &fakeGen{reply: "<html>generated</html>"}

	versions := project.NewVersions(store)
	assets := project.NewAssets(store, objects, fakeCaptioner{})
	coord := deploy.NewCoordinator(store, objects, &fakeRegistry{}, nil, "example")
	h := NewHandler(store, versions, assets, coord, gen, objects, nil)

	r := gin.New()
	h.RegisterSite(r)
	h.Register(r.Group("/api/v1/projects"))
	return &fixture{router: r, store: store, objects: objects, gen: gen}
}

func (f *fixture) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func (f *fixture) createProject(t *testing.T) (id, domain string) {
	t.Helper()
	w := f.do(t, http.MethodPost, "/api/v1/projects", nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	body := decode(t, w)
	proj := body["project"].(map[string]any)
	return proj["id"].(string), proj["domain"].(string)
}

func TestCreateProject(t *testing.T) {
	f := newFixture(t)
	w := f.do(t, http.MethodPost, "/api/v1/projects", nil)
	require.Equal(t, http.StatusCreated, w.Code)
	body := decode(t, w)
	assert.Equal(t, true, body["ok"])
	proj := body["project"].(map[string]any)
	assert.NotEmpty(t, proj["id"])
	assert.Contains(t, proj["domain"], ".example")
	assert.Nil(t, proj["deployed_index"])
}

func TestCreateProject_RegistryDown(t *testing.T) {
	f := newFixture(t)
	store := f.store

	h := NewHandler(store, project.NewVersions(store), nil,
		deploy.NewCoordinator(store, f.objects, &fakeRegistry{failRegister: fmt.Errorf("down")}, nil, "example"),
		f.gen, f.objects, nil)
	r := gin.New()
	h.Register(r.Group("/api/v1/projects"))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/projects", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, false, decode(t, w)["ok"])
}

func TestGetProject(t *testing.T) {
	f := newFixture(t)
	id, domain := f.createProject(t)

	w := f.do(t, http.MethodGet, "/api/v1/projects/"+id, nil)
	require.Equal(t, http.StatusOK, w.Code)
	proj := decode(t, w)["project"].(map[string]any)
	assert.Equal(t, domain, proj["domain"])

	w = f.do(t, http.MethodGet, "/api/v1/projects/missing", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestListProjects(t *testing.T) {
	f := newFixture(t)
	f.createProject(t)
	f.createProject(t)

	w := f.do(t, http.MethodGet, "/api/v1/projects?page=1&page_size=1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, float64(2), body["total"])
	assert.Len(t, body["projects"], 1)
}

func TestChat(t *testing.T) {
	f := newFixture(t)
	id, _ := f.createProject(t)

	w := f.do(t, http.MethodPost, "/api/v1/projects/"+id+"/chat", gin.H{"message": "make a bakery site"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body := decode(t, w)
	assert.Equal(t, true, body["ok"])
	assert.NotEmpty(t, body["version_id"])
	assert.Equal(t, "make a bakery site", f.gen.lastInstructions)
	assert.Empty(t, f.gen.lastDocument, "first generation starts from nothing")

	p, err := f.store.Get(context.Background(), id)
	require.NoError(t, err)
	require.Len(t, p.Versions, 1)
	assert.Equal(t, "<html>generated</html>", p.Versions[0].Content)
	assert.Nil(t, p.DeployedIndex, "chat never deploys")

	var transcript []transcriptEntry
	require.NoError(t, json.Unmarshal(p.Conversation, &transcript))
	require.Len(t, transcript, 2)
	assert.Equal(t, "user", transcript[0].Role)
	assert.Equal(t, "assistant", transcript[1].Role)

	// Second message is seeded with the latest version.
	w = f.do(t, http.MethodPost, "/api/v1/projects/"+id+"/chat", gin.H{"message": "darker"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "<html>generated</html>", f.gen.lastDocument)
}

func TestChat_SectionPatches(t *testing.T) {
	f := newFixture(t)
	id, _ := f.createProject(t)

	w := f.do(t, http.MethodPost, "/api/v1/projects/"+id+"/chat",
		gin.H{"message": "bigger headline", "section": "hero"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "hero", f.gen.lastSection)
}

func TestChat_StripsCodeFences(t *testing.T) {
	f := newFixture(t)
	id, _ := f.createProject(t)
	f.gen.reply = "```html\n<html>fenced</html>\n```"

	w := f.do(t, http.MethodPost, "/api/v1/projects/"+id+"/chat", gin.H{"message": "go"})
	require.Equal(t, http.StatusOK, w.Code)

	p, err := f.store.Get(context.Background(), id)
	require.NoError(t, err)
	require.Len(t, p.Versions, 1)
	assert.Equal(t, "<html>fenced</html>", p.Versions[0].Content)
}

// A conversation blob written by some other system is opaque here: chat
// must still work but may not overwrite what it cannot parse.
func TestChat_ForeignTranscriptSurvives(t *testing.T) {
	f := newFixture(t)
	id, _ := f.createProject(t)

	foreign := json.RawMessage(`{"vendor":"external","blob":"keep me"}`)
	_, err := f.store.Update(context.Background(), id, project.Patch{Conversation: foreign})
	require.NoError(t, err)

	w := f.do(t, http.MethodPost, "/api/v1/projects/"+id+"/chat", gin.H{"message": "go"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	p, err := f.store.Get(context.Background(), id)
	require.NoError(t, err)
	assert.JSONEq(t, string(foreign), string(p.Conversation))
	assert.Len(t, p.Versions, 1, "generation itself still happens")
}

func TestChat_GeneratorDown(t *testing.T) {
	f := newFixture(t)
	id, _ := f.createProject(t)
	f.gen.err = fmt.Errorf("provider down")

	w := f.do(t, http.MethodPost, "/api/v1/projects/"+id+"/chat", gin.H{"message": "go"})
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	p, err := f.store.Get(context.Background(), id)
	require.NoError(t, err)
	assert.Empty(t, p.Versions, "failed generation records nothing")
}

func TestChat_EmptyMessage(t *testing.T) {
	f := newFixture(t)
	id, _ := f.createProject(t)
	w := f.do(t, http.MethodPost, "/api/v1/projects/"+id+"/chat", gin.H{"message": "  "})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestVersions(t *testing.T) {
	f := newFixture(t)
	id, _ := f.createProject(t)

	w := f.do(t, http.MethodPost, "/api/v1/projects/"+id+"/chat", gin.H{"message": "go"})
	require.Equal(t, http.StatusOK, w.Code)
	versionID := decode(t, w)["version_id"].(string)

	w = f.do(t, http.MethodGet, "/api/v1/projects/"+id+"/versions", nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Len(t, body["versions"], 1)
	assert.Nil(t, body["deployed_index"])

	w = f.do(t, http.MethodGet, "/api/v1/projects/"+id+"/versions/"+versionID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	ver := decode(t, w)["version"].(map[string]any)
	assert.Equal(t, "<html>generated</html>", ver["content"])

	w = f.do(t, http.MethodGet, "/api/v1/projects/"+id+"/versions/unknown", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestEditVersion(t *testing.T) {
	f := newFixture(t)
	id, _ := f.createProject(t)
	require.Equal(t, http.StatusOK, f.do(t, http.MethodPost, "/api/v1/projects/"+id+"/chat", gin.H{"message": "go"}).Code)

	w := f.do(t, http.MethodPut, "/api/v1/projects/"+id+"/versions/0", gin.H{"content": "<html>edited</html>"})
	require.Equal(t, http.StatusOK, w.Code)

	p, err := f.store.Get(context.Background(), id)
	require.NoError(t, err)
	require.Len(t, p.Versions, 1, "edit overwrites in place")
	assert.Equal(t, "<html>edited</html>", p.Versions[0].Content)

	w = f.do(t, http.MethodPut, "/api/v1/projects/"+id+"/versions/5", gin.H{"content": "x"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = f.do(t, http.MethodPut, "/api/v1/projects/"+id+"/versions/nope", gin.H{"content": "x"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = f.do(t, http.MethodPut, "/api/v1/projects/"+id+"/versions/0", gin.H{"content": "   "})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPublishAndServe(t *testing.T) {
	f := newFixture(t)
	id, domain := f.createProject(t)
	require.Equal(t, http.StatusOK, f.do(t, http.MethodPost, "/api/v1/projects/"+id+"/chat", gin.H{"message": "go"}).Code)

	w := f.do(t, http.MethodPost, "/api/v1/projects/"+id+"/publish", gin.H{"version_index": 0})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	res := decode(t, w)["result"].(map[string]any)
	assert.Equal(t, true, res["success"])
	assert.Equal(t, "https://"+domain, res["url"])

	w = f.do(t, http.MethodGet, "/site/"+domain, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "<html>generated</html>", w.Body.String())
	assert.Contains(t, w.Header().Get("Content-Type"), "text/html")
}

func TestPublish_BadIndex(t *testing.T) {
	f := newFixture(t)
	id, _ := f.createProject(t)

	w := f.do(t, http.MethodPost, "/api/v1/projects/"+id+"/publish", gin.H{"version_index": 0})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPublish_StorageDown(t *testing.T) {
	f := newFixture(t)
	id, _ := f.createProject(t)
	require.Equal(t, http.StatusOK, f.do(t, http.MethodPost, "/api/v1/projects/"+id+"/chat", gin.H{"message": "go"}).Code)

	f.objects.FailPut = func(key string) error { return fmt.Errorf("storage down") }
	w := f.do(t, http.MethodPost, "/api/v1/projects/"+id+"/publish", gin.H{"version_index": 0})
	assert.Equal(t, http.StatusBadGateway, w.Code)
}

func TestServeSite_Unpublished(t *testing.T) {
	f := newFixture(t)
	w := f.do(t, http.MethodGet, "/site/nothing-here-0000.example", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "no published site")
}

func TestDeleteProject(t *testing.T) {
	f := newFixture(t)
	id, domain := f.createProject(t)
	require.Equal(t, http.StatusOK, f.do(t, http.MethodPost, "/api/v1/projects/"+id+"/chat", gin.H{"message": "go"}).Code)
	require.Equal(t, http.StatusOK, f.do(t, http.MethodPost, "/api/v1/projects/"+id+"/publish", gin.H{"version_index": 0}).Code)

	w := f.do(t, http.MethodDelete, "/api/v1/projects/"+id, nil)
	require.Equal(t, http.StatusOK, w.Code)
	res := decode(t, w)["result"].(map[string]any)
	assert.Equal(t, true, res["success"])

	assert.Equal(t, http.StatusNotFound, f.do(t, http.MethodGet, "/api/v1/projects/"+id, nil).Code)
	assert.Equal(t, http.StatusNotFound, f.do(t, http.MethodGet, "/site/"+domain, nil).Code)
	assert.Equal(t, http.StatusNotFound, f.do(t, http.MethodDelete, "/api/v1/projects/"+id, nil).Code)
}

// Teardown reports success even when storage cleanup fails; the message
// carries what was left behind.
func TestDeleteProject_StorageDownStillSucceeds(t *testing.T) {
	f := newFixture(t)
	id, _ := f.createProject(t)
	require.Equal(t, http.StatusOK, f.do(t, http.MethodPost, "/api/v1/projects/"+id+"/chat", gin.H{"message": "go"}).Code)
	require.Equal(t, http.StatusOK, f.do(t, http.MethodPost, "/api/v1/projects/"+id+"/publish", gin.H{"version_index": 0}).Code)

	f.objects.FailDelete = func(key string) error { return fmt.Errorf("storage down") }
	w := f.do(t, http.MethodDelete, "/api/v1/projects/"+id, nil)
	require.Equal(t, http.StatusOK, w.Code)
	res := decode(t, w)["result"].(map[string]any)
	assert.Equal(t, true, res["success"])
	assert.Contains(t, res["message"], "cleanup failed")

	assert.Equal(t, http.StatusNotFound, f.do(t, http.MethodGet, "/api/v1/projects/"+id, nil).Code)
}

func pngUpload(t *testing.T) (body *bytes.Buffer, contentType string) {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 8, 6))
	for y := 0; y < 6; y++ {
		for x := 0; x < 8; x++ {
			img.Set(x, y, color.RGBA{R: 200, G: 100, B: 50, A: 255})
		}
	}
	var raw bytes.Buffer
	require.NoError(t, png.Encode(&raw, img))

	body = &bytes.Buffer{}
	mw := multipart.NewWriter(body)
	hdr := make(map[string][]string)
	hdr["Content-Disposition"] = []string{`form-data; name="file"; filename="My Photo.PNG"`}
	hdr["Content-Type"] = []string{"image/png"}
	part, err := mw.CreatePart(hdr)
	require.NoError(t, err)
	_, err = part.Write(raw.Bytes())
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	return body, mw.FormDataContentType()
}

func TestUploadAsset(t *testing.T) {
	f := newFixture(t)
	id, domain := f.createProject(t)

	body, contentType := pngUpload(t)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/projects/"+id+"/assets", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)

	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	asset := decode(t, w)["asset"].(map[string]any)
	assert.Equal(t, "my-photo.jpg", asset["filename"])
	assert.Equal(t, "image/jpeg", asset["content_type"])
	assert.Contains(t, asset["description"], "a test image")

	stored, err := f.objects.Get(context.Background(), project.AssetKey(domain, "my-photo.jpg"))
	require.NoError(t, err)
	assert.Equal(t, []byte{0xFF, 0xD8}, stored[:2], "normalized to JPEG")

	// Delete through the API removes record and bytes.
	aid := asset["id"].(string)
	require.Equal(t, http.StatusOK, f.do(t, http.MethodDelete, "/api/v1/projects/"+id+"/assets/"+aid, nil).Code)
	_, err = f.objects.Get(context.Background(), project.AssetKey(domain, "my-photo.jpg"))
	assert.ErrorIs(t, err, objectstore.ErrObjectNotFound)

	assert.Equal(t, http.StatusNotFound, f.do(t, http.MethodDelete, "/api/v1/projects/"+id+"/assets/"+aid, nil).Code)
}

func TestUploadAsset_MissingFile(t *testing.T) {
	f := newFixture(t)
	id, _ := f.createProject(t)
	w := f.do(t, http.MethodPost, "/api/v1/projects/"+id+"/assets", gin.H{"nope": true})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
