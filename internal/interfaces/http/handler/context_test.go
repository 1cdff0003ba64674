package handler

import (
	"net/http"
	"testing"

	"z-novel-context-api/internal/application/contextprovider"
	"z-novel-context-api/internal/interfaces/http/dto"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newContextEngine(a *fakeAssembler) *gin.Engine {
	h := NewContextHandler(a)
	r := gin.New()
	r.POST("/v1/novels/:nid/context", h.Preview)
	return r
}

func TestContextPreview(t *testing.T) {
	a := &fakeAssembler{result: &contextprovider.AssemblyResult{
		Markup: "<novel_basic_info/>\n<chapter/>",
		Tokens: 18,
		Fragments: []contextprovider.Fragment{
			{Kind: contextprovider.KindNovelBasicInfo, ContextID: "novel_basic_info", Markup: "<novel_basic_info/>"},
			{Kind: contextprovider.KindChapter, ContextID: "chapter:c1", Markup: "<chapter/>"},
		},
		Skipped:   []contextprovider.ContextRef{{Kind: "unknown", ID: "x"}},
		Truncated: []contextprovider.ContextRef{{Kind: contextprovider.KindScene, ID: "s9"}},
	}}

	rec := perform(t, newContextEngine(a), http.MethodPost, "/v1/novels/n1/context", map[string]any{
		"refs":               []string{"novel_basic_info", "chapter:c1", "unknown:x", "scene:s9"},
		"current_chapter_id": "c1",
		"include_ids":        true,
		"max_tokens":         20,
	}, UserIDHeader, "u1")

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	_, data := decode[dto.ContextPreviewResponse](t, rec)
	assert.Equal(t, "<novel_basic_info/>\n<chapter/>", data.Markup)
	assert.Equal(t, 18, data.Tokens)
	require.Len(t, data.Fragments, 2)
	assert.Equal(t, "<chapter/>", data.Fragments[1].Markup)
	assert.Equal(t, "chapter", data.Fragments[1].Kind)
	assert.Len(t, data.Skipped, 1)
	assert.Len(t, data.Truncated, 1)

	require.NotNil(t, a.req)
	assert.Equal(t, "n1", a.req.NovelID)
	assert.Equal(t, "c1", a.req.CurrentChapterID)
	assert.Equal(t, "u1", a.req.UserID)
	assert.True(t, a.req.IncludeIDs)
	assert.Equal(t, 20, a.req.MaxTokens)
	assert.Len(t, a.req.Refs, 4)
}

func TestContextPreviewRequiresRefs(t *testing.T) {
	a := &fakeAssembler{}
	rec := perform(t, newContextEngine(a), http.MethodPost, "/v1/novels/n1/context", map[string]any{})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Nil(t, a.req)
}
