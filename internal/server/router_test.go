package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vente/apiserver/config"
	"github.com/vente/apiserver/internal/auth"
	"github.com/vente/apiserver/internal/storage"
	"github.com/vente/apiserver/internal/store/memstore"
	"github.com/vente/apiserver/types"
)

type memObjects struct {
	mu   sync.Mutex
	data map[string][]byte
}

func (m *memObjects) Put(_ context.Context, key string, r io.Reader, _ int64, _ string) error {
	b, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = b
	return nil
}

func (m *memObjects) Get(_ context.Context, key string) (io.ReadCloser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.data[key]
	if !ok {
		return nil, storage.ErrObjectNotFound
	}
	return io.NopCloser(bytes.NewReader(b)), nil
}

func (m *memObjects) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

type capturedEvents struct {
	mu     sync.Mutex
	events []types.CatalogEvent
}

func (c *capturedEvents) Publish(_ context.Context, _ string, data []byte, _ map[string]string) (string, error) {
	var event types.CatalogEvent
	if err := json.Unmarshal(data, &event); err != nil {
		return "", err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, event)
	return "1", nil
}

type testAPI struct {
	t       *testing.T
	router  *chi.Mux
	store   *memstore.Store
	objects *memObjects
	events  *capturedEvents
	users   map[string]types.User
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()

	logger, _ := logtest.NewNullLogger()
	st := memstore.New()
	api := &testAPI{
		t:       t,
		store:   st,
		objects: &memObjects{data: map[string][]byte{}},
		events:  &capturedEvents{},
		users:   map[string]types.User{},
	}

	cfg := config.Config{
		APIPrefix:   "/api/v1",
		CORSOrigins: []string{"http://shop.test"},
		Auth:        config.AuthConfig{JWTSecret: "test-secret", TokenTTLMinutes: 30, BcryptCost: 4},
		Storage:     config.StorageConfig{KeyPrefix: "products"},
		MQ:          config.MQConfig{Channel: "catalog-events"},
	}
	router, err := NewRouter(Dependencies{
		Config:  cfg,
		Logger:  logger,
		Users:   st.Users(),
		Catalog: st,
		Objects: api.objects,
		Events:  api.events,
	})
	require.NoError(t, err)
	api.router = router

	hasher := auth.NewPasswordHasher(4)
	for _, u := range []struct {
		name      string
		active    bool
		superuser bool
	}{
		{"alice", true, false},
		{"bob", true, false},
		{"root", true, true},
		{"dormant", false, false},
	} {
		hash, err := hasher.Hash("secret")
		require.NoError(t, err)
		created, err := st.Users().Create(context.Background(), types.User{
			Username:     u.name,
			Email:        u.name + "@example.com",
			PasswordHash: hash,
			IsActive:     u.active,
			IsSuperuser:  u.superuser,
		})
		require.NoError(t, err)
		api.users[u.name] = created
	}
	return api
}

func (a *testAPI) do(method, target, token string, body io.Reader, contentType string) *httptest.ResponseRecorder {
	a.t.Helper()
	req := httptest.NewRequest(method, target, body)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)
	return rec
}

func (a *testAPI) doJSON(method, target, token string, payload any) *httptest.ResponseRecorder {
	a.t.Helper()
	var body io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		require.NoError(a.t, err)
		body = bytes.NewReader(b)
	}
	return a.do(method, target, token, body, "application/json")
}

func (a *testAPI) login(username, password string) *httptest.ResponseRecorder {
	a.t.Helper()
	form := url.Values{"username": {username}, "password": {password}}
	return a.do(http.MethodPost, "/api/v1/auth/login", "", strings.NewReader(form.Encode()), "application/x-www-form-urlencoded")
}

func (a *testAPI) token(username string) string {
	a.t.Helper()
	rec := a.login(username, "secret")
	require.Equal(a.t, http.StatusOK, rec.Code, rec.Body.String())
	var resp struct {
		AccessToken string `json:"access_token"`
		TokenType   string `json:"token_type"`
	}
	require.NoError(a.t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(a.t, "bearer", resp.TokenType)
	return resp.AccessToken
}

func (a *testAPI) createCategory(token, name string) types.Category {
	a.t.Helper()
	rec := a.doJSON(http.MethodPost, "/api/v1/products/categories/", token, map[string]any{"name": name})
	require.Equal(a.t, http.StatusOK, rec.Code, rec.Body.String())
	var category types.Category
	require.NoError(a.t, json.Unmarshal(rec.Body.Bytes(), &category))
	return category
}

func decodeProduct(t *testing.T, rec *httptest.ResponseRecorder) types.Product {
	t.Helper()
	var product types.Product
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &product))
	return product
}

func categoryIDsOf(p types.Product) []int {
	ids := make([]int, 0, len(p.Categories))
	for _, c := range p.Categories {
		ids = append(ids, c.ID)
	}
	return ids
}

func detailOf(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Detail string `json:"detail"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body.Detail
}

func TestLoginAndOwnRecord(t *testing.T) {
	api := newTestAPI(t)
	alice := api.users["alice"]
	token := api.token("alice")

	rec := api.doJSON(http.MethodGet, fmt.Sprintf("/api/v1/users/%d", alice.ID), token, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var raw map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &raw))
	assert.Equal(t, "alice", raw["username"])
	assert.NotContains(t, raw, "hashed_password")
	assert.NotContains(t, raw, "password")

	rec = api.doJSON(http.MethodGet, fmt.Sprintf("/api/v1/users/%d", api.users["bob"].ID), token, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "The user doesn't have enough privileges", detailOf(t, rec))

	rec = api.doJSON(http.MethodGet, "/api/v1/auth/me", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"username":"alice"`)
}

func TestLoginFailures(t *testing.T) {
	api := newTestAPI(t)

	for _, tc := range []struct{ username, password string }{
		{"alice", "wrong"},
		{"nobody", "secret"},
	} {
		rec := api.login(tc.username, tc.password)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, "Bearer", rec.Header().Get("WWW-Authenticate"))
		assert.Equal(t, "incorrect username or password", detailOf(t, rec))
	}

	rec := api.login("", "")
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestLoginMultipartForm(t *testing.T) {
	api := newTestAPI(t)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	require.NoError(t, mw.WriteField("username", "alice"))
	require.NoError(t, mw.WriteField("password", "secret"))
	require.NoError(t, mw.Close())

	rec := api.do(http.MethodPost, "/api/v1/auth/login", "", &body, mw.FormDataContentType())
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"token_type":"bearer"`)

	rec = api.do(http.MethodPost, "/api/v1/auth/login", "", strings.NewReader("username=alice"), "multipart/form-data")
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	api := newTestAPI(t)

	rec := api.doJSON(http.MethodGet, "/api/v1/auth/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Bearer", rec.Header().Get("WWW-Authenticate"))

	rec = api.doJSON(http.MethodGet, "/api/v1/auth/me", "not-a-token", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	tokens := auth.NewTokenService("other-secret", time.Minute)
	forged, err := tokens.Issue(api.users["root"].ID, 0)
	require.NoError(t, err)
	rec = api.doJSON(http.MethodGet, "/api/v1/users/", forged, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestDeletedAccountTokenIsRejected(t *testing.T) {
	api := newTestAPI(t)
	token := api.token("bob")

	rec := api.doJSON(http.MethodDelete, fmt.Sprintf("/api/v1/users/%d", api.users["bob"].ID), api.token("root"), nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = api.doJSON(http.MethodGet, "/api/v1/auth/me", token, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "could not validate credentials", detailOf(t, rec))
}

func TestInactiveAccount(t *testing.T) {
	api := newTestAPI(t)
	token := api.token("dormant")

	rec := api.doJSON(http.MethodGet, "/api/v1/auth/me", token, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Inactive user", detailOf(t, rec))
}

func TestUserManagement(t *testing.T) {
	api := newTestAPI(t)
	alice := api.users["alice"]
	aliceToken := api.token("alice")
	rootToken := api.token("root")

	rec := api.doJSON(http.MethodGet, "/api/v1/users/", aliceToken, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = api.doJSON(http.MethodGet, "/api/v1/users/?limit=2", rootToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var users []types.User
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &users))
	assert.Len(t, users, 2)

	rec = api.doJSON(http.MethodGet, "/api/v1/users/?skip=-1", rootToken, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	path := fmt.Sprintf("/api/v1/users/%d", alice.ID)
	rec = api.doJSON(http.MethodPut, path, aliceToken, map[string]any{"is_superuser": true})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = api.doJSON(http.MethodPut, path, aliceToken, map[string]any{"email": "not-an-email"})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = api.doJSON(http.MethodPut, path, aliceToken, map[string]any{"email": "bob@example.com"})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = api.doJSON(http.MethodPut, path, aliceToken, map[string]any{"password": "n3w-pass"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, http.StatusUnauthorized, api.login("alice", "secret").Code)
	assert.Equal(t, http.StatusOK, api.login("alice", "n3w-pass").Code)

	stored, err := api.store.Users().GetByID(context.Background(), alice.ID)
	require.NoError(t, err)
	assert.NotEqual(t, "n3w-pass", stored.PasswordHash)

	rec = api.doJSON(http.MethodPut, fmt.Sprintf("/api/v1/users/%d", api.users["bob"].ID), rootToken, map[string]any{"is_active": false})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"is_active":false`)

	rec = api.doJSON(http.MethodDelete, "/api/v1/users/9999", rootToken, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "user 9999 not found", detailOf(t, rec))
}

func TestProductCategoryReplacement(t *testing.T) {
	api := newTestAPI(t)
	root := api.token("root")

	c1 := api.createCategory(root, "shoes")
	c2 := api.createCategory(root, "sale")
	c3 := api.createCategory(root, "summer")

	rec := api.doJSON(http.MethodPost, "/api/v1/products/", root, map[string]any{
		"name":         "Sneaker",
		"price":        "49.90",
		"stock":        3,
		"category_ids": []int{c1.ID, c2.ID},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	created := decodeProduct(t, rec)
	assert.Equal(t, []int{c1.ID, c2.ID}, categoryIDsOf(created))
	require.NotNil(t, created.CreatedBy)
	assert.Equal(t, api.users["root"].ID, *created.CreatedBy)

	productPath := fmt.Sprintf("/api/v1/products/%d", created.ID)
	rec = api.doJSON(http.MethodGet, productPath, "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []int{c1.ID, c2.ID}, categoryIDsOf(decodeProduct(t, rec)))

	rec = api.doJSON(http.MethodPut, productPath, root, map[string]any{"category_ids": []int{c3.ID}})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = api.doJSON(http.MethodGet, productPath, "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	got := decodeProduct(t, rec)
	assert.Equal(t, []int{c3.ID}, categoryIDsOf(got))
	assert.Equal(t, "Sneaker", got.Name)

	rec = api.doJSON(http.MethodPut, productPath+"/categories", root, map[string]any{"categoryIds": []int{c1.ID}})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code, rec.Body.String())
	rec = api.doJSON(http.MethodGet, productPath+"/categories", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var kept []types.Category
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &kept))
	require.Len(t, kept, 1)
	assert.Equal(t, c3.ID, kept[0].ID)

	rec = api.doJSON(http.MethodPut, productPath+"/categories", root, map[string]any{"category_ids": []int{}})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Empty(t, decodeProduct(t, rec).Categories)

	rec = api.doJSON(http.MethodPut, productPath, root, map[string]any{"category_ids": []int{c1.ID, 999}})
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "category 999 not found", detailOf(t, rec))
}

func TestProductWritesRequireSuperuser(t *testing.T) {
	api := newTestAPI(t)
	alice := api.token("alice")

	rec := api.doJSON(http.MethodPost, "/api/v1/products/", alice, map[string]any{"name": "x", "price": "1"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = api.doJSON(http.MethodPost, "/api/v1/products/", "", map[string]any{"name": "x", "price": "1"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = api.doJSON(http.MethodPost, "/api/v1/products/categories/", alice, map[string]any{"name": "x"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestProductValidation(t *testing.T) {
	api := newTestAPI(t)
	root := api.token("root")

	rec := api.doJSON(http.MethodPost, "/api/v1/products/", root, map[string]any{"name": "no price"})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = api.doJSON(http.MethodPost, "/api/v1/products/", root, map[string]any{"name": "neg", "price": "-1"})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = api.doJSON(http.MethodPost, "/api/v1/products/", root, map[string]any{"price": "1"})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "name: field required", detailOf(t, rec))

	rec = api.doJSON(http.MethodPost, "/api/v1/products/", root, map[string]any{"name": "x", "price": "1", "category_ids": []int{404}})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = api.doJSON(http.MethodGet, "/api/v1/products/", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, "[]", rec.Body.String())

	rec = api.doJSON(http.MethodGet, "/api/v1/products/?limit=0", "", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = api.doJSON(http.MethodGet, "/api/v1/products/?min_price=cheap", "", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = api.doJSON(http.MethodGet, "/api/v1/products/abc", "", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = api.doJSON(http.MethodGet, "/api/v1/products/77", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestProductSearchFilters(t *testing.T) {
	api := newTestAPI(t)
	root := api.token("root")
	shoes := api.createCategory(root, "shoes")

	for _, p := range []map[string]any{
		{"name": "Red Sneaker", "price": "50", "category_ids": []int{shoes.ID}},
		{"name": "Blue sneaker", "price": "80"},
		{"name": "Hat", "price": "20", "category_ids": []int{shoes.ID}},
	} {
		rec := api.doJSON(http.MethodPost, "/api/v1/products/", root, p)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	}

	search := func(query string) []string {
		rec := api.doJSON(http.MethodGet, "/api/v1/products/?"+query, "", nil)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var products []types.Product
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &products))
		names := make([]string, 0, len(products))
		for _, p := range products {
			names = append(names, p.Name)
		}
		return names
	}

	assert.Equal(t, []string{"Red Sneaker", "Blue sneaker"}, search("search=SNEAKER"))
	assert.Equal(t, []string{"Red Sneaker", "Hat"}, search(fmt.Sprintf("category_id=%d", shoes.ID)))
	assert.Equal(t, []string{"Red Sneaker"}, search(fmt.Sprintf("category_id=%d&min_price=30", shoes.ID)))
	assert.Equal(t, []string{"Red Sneaker", "Hat"}, search("max_price=50"))
	assert.Empty(t, search("min_price=90&max_price=10"))
	assert.Equal(t, []string{"Blue sneaker"}, search("skip=1&limit=1"))
}

func TestDeleteProductAndCategoryRemoveLinks(t *testing.T) {
	api := newTestAPI(t)
	root := api.token("root")
	a := api.createCategory(root, "a")
	b := api.createCategory(root, "b")

	rec := api.doJSON(http.MethodPost, "/api/v1/products/", root, map[string]any{"name": "p1", "price": "1", "category_ids": []int{a.ID, b.ID}})
	require.Equal(t, http.StatusOK, rec.Code)
	p1 := decodeProduct(t, rec)
	rec = api.doJSON(http.MethodPost, "/api/v1/products/", root, map[string]any{"name": "p2", "price": "1", "category_ids": []int{a.ID}})
	require.Equal(t, http.StatusOK, rec.Code)
	p2 := decodeProduct(t, rec)

	rec = api.doJSON(http.MethodDelete, fmt.Sprintf("/api/v1/products/%d", p1.ID), root, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "p1", decodeProduct(t, rec).Name)
	for _, link := range api.store.LinkRows() {
		assert.NotEqual(t, p1.ID, link.ProductID)
	}

	rec = api.doJSON(http.MethodDelete, fmt.Sprintf("/api/v1/products/categories/%d", a.ID), root, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	for _, link := range api.store.LinkRows() {
		assert.NotEqual(t, a.ID, link.CategoryID)
	}

	rec = api.doJSON(http.MethodGet, fmt.Sprintf("/api/v1/products/%d/categories", p2.ID), "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, "[]", rec.Body.String())

	rec = api.doJSON(http.MethodGet, fmt.Sprintf("/api/v1/products/categories/%d", a.ID), "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCategoryUpdate(t *testing.T) {
	api := newTestAPI(t)
	root := api.token("root")
	c := api.createCategory(root, "old")
	assert.True(t, c.IsActive)

	rec := api.doJSON(http.MethodPut, fmt.Sprintf("/api/v1/products/categories/%d", c.ID), root, map[string]any{"name": "new", "is_active": false})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var updated types.Category
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &updated))
	assert.Equal(t, "new", updated.Name)
	assert.False(t, updated.IsActive)

	rec = api.doJSON(http.MethodGet, "/api/v1/products/categories/", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"name":"new"`)
}

func TestProductImageUploadAndDownload(t *testing.T) {
	api := newTestAPI(t)
	root := api.token("root")

	rec := api.doJSON(http.MethodPost, "/api/v1/products/", root, map[string]any{"name": "lamp", "price": "12"})
	require.Equal(t, http.StatusOK, rec.Code)
	product := decodeProduct(t, rec)
	imagePath := fmt.Sprintf("/api/v1/products/%d/image", product.ID)

	upload := func(contentType string, payload []byte) *httptest.ResponseRecorder {
		var body bytes.Buffer
		mw := multipart.NewWriter(&body)
		header := make(textproto.MIMEHeader)
		header.Set("Content-Disposition", `form-data; name="image"; filename="lamp.png"`)
		header.Set("Content-Type", contentType)
		part, err := mw.CreatePart(header)
		require.NoError(t, err)
		_, err = part.Write(payload)
		require.NoError(t, err)
		require.NoError(t, mw.Close())
		return api.do(http.MethodPut, imagePath, root, &body, mw.FormDataContentType())
	}

	rec = upload("text/plain", []byte("nope"))
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = upload("image/png", []byte("first"))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	first := decodeProduct(t, rec).ImageURL
	assert.True(t, strings.HasPrefix(first, fmt.Sprintf("products/%d/", product.ID)), first)

	rec = upload("image/png", []byte("second"))
	require.Equal(t, http.StatusOK, rec.Code)
	second := decodeProduct(t, rec).ImageURL
	assert.NotEqual(t, first, second)
	assert.NotContains(t, api.objects.data, first)

	rec = api.do(http.MethodGet, imagePath, "", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
	assert.Equal(t, "second", rec.Body.String())

	rec = api.do(http.MethodGet, "/api/v1/products/999/image", "", nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = api.doJSON(http.MethodDelete, fmt.Sprintf("/api/v1/products/%d", product.ID), root, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.NotContains(t, api.objects.data, second)
}

func TestCatalogEventsArePublished(t *testing.T) {
	api := newTestAPI(t)
	root := api.token("root")
	c := api.createCategory(root, "c")

	rec := api.doJSON(http.MethodPost, "/api/v1/products/", root, map[string]any{"name": "p", "price": "1", "category_ids": []int{c.ID}})
	require.Equal(t, http.StatusOK, rec.Code)

	api.events.mu.Lock()
	defer api.events.mu.Unlock()
	require.Len(t, api.events.events, 2)
	assert.Equal(t, types.CategoryCreated, api.events.events[0].Type)
	assert.Equal(t, types.ProductCreated, api.events.events[1].Type)
	assert.Equal(t, []int{c.ID}, api.events.events[1].CategoryIDs)
}

func TestHealthAndMetrics(t *testing.T) {
	api := newTestAPI(t)

	rec := api.do(http.MethodGet, "/", "", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "message")

	rec = api.do(http.MethodGet, "/health", "", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"healthy","api_version":"0.1.0","db_connection":"not configured"}`, rec.Body.String())

	rec = api.do(http.MethodGet, "/metrics", "", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `route="/health"`)

	rec = api.do(http.MethodGet, "/nowhere", "", nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Not Found", detailOf(t, rec))
}

func TestCORS(t *testing.T) {
	api := newTestAPI(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/products/", nil)
	req.Header.Set("Origin", "http://shop.test")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	api.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "http://shop.test", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, rec.Header().Get("Access-Control-Allow-Headers"), "Authorization")

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Origin", "http://evil.test")
	rec = httptest.NewRecorder()
	api.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestNewRouterRequiresSecret(t *testing.T) {
	st := memstore.New()
	_, err := NewRouter(Dependencies{Users: st.Users(), Catalog: st})
	assert.Error(t, err)
}
