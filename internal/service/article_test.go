package service

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xaenox/threadpress/internal/models"
	"github.com/xaenox/threadpress/internal/storage"
)

func newArticleService(t *testing.T, token string) (*ArticleService, storage.Storage, *fakeGenerator, *fakePublisher) {
	t.Helper()
	store := newTestStore(t)
	gen := newFakeGenerator()
	pub := &fakePublisher{url: "https://qiita.com/user/items/abc"}
	return NewArticleService(store, gen, pub, token, zap.NewNop()), store, gen, pub
}

func TestGenerateArticleRewritesDraft(t *testing.T) {
	svc, store, gen, _ := newArticleService(t, "")
	ctx := context.Background()
	thread := seedThread(t, store, strPtr("雑談"),
		models.ChatTurn{Role: models.RoleUser, Content: "Q"},
		models.ChatTurn{Role: models.RoleAssistant, Content: "A"},
	)

	first, err := svc.GenerateArticle(ctx, thread.ID)
	require.NoError(t, err)
	assert.Equal(t, "Go入門", first.Title)
	assert.Equal(t, models.ArticleDraft, first.Status)
	assert.Equal(t, "Q\n\nA", gen.transcript)

	gen.article = "本文だけ"
	second, err := svc.GenerateArticle(ctx, thread.ID)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, "雑談", second.Title)
	assert.Equal(t, "本文だけ", second.Content)

	articles, err := svc.ListByThread(ctx, thread.ID)
	require.NoError(t, err)
	assert.Len(t, articles, 1)
}

func TestGenerateArticleErrors(t *testing.T) {
	svc, store, gen, _ := newArticleService(t, "")
	ctx := context.Background()

	_, err := svc.GenerateArticle(ctx, uuid.NewString())
	assert.ErrorIs(t, err, models.ErrNotFound)

	empty := seedThread(t, store, nil)
	_, err = svc.GenerateArticle(ctx, empty.ID)
	assert.ErrorIs(t, err, models.ErrValidation)

	thread := seedThread(t, store, nil, models.ChatTurn{Role: models.RoleUser, Content: "Q"})
	gen.genErr = models.ErrGeneration
	_, err = svc.GenerateArticle(ctx, thread.ID)
	assert.ErrorIs(t, err, models.ErrGeneration)

	articles, err := svc.ListByThread(ctx, thread.ID)
	require.NoError(t, err)
	assert.Empty(t, articles)
}

func TestArticleTitleFallback(t *testing.T) {
	untitled := &models.Thread{}
	assert.Equal(t, DefaultArticleTitle, articleTitle("no heading", untitled))
	assert.Equal(t, "見出し", articleTitle("前置き\n## 小見出し\n# 見出し\n", untitled))
	assert.Equal(t, DefaultArticleTitle, articleTitle("#   \n", untitled))
}

func TestCreateArticle(t *testing.T) {
	svc, store, _, _ := newArticleService(t, "")
	ctx := context.Background()

	_, err := svc.CreateArticle(ctx, ArticleInput{Title: "t", Content: "c", ThreadID: strPtr(uuid.NewString())})
	assert.ErrorIs(t, err, models.ErrNotFound)

	_, err = svc.CreateArticle(ctx, ArticleInput{Title: "t", Content: "c", Status: "archived"})
	assert.ErrorIs(t, err, models.ErrValidation)

	thread := seedThread(t, store, nil)
	article, err := svc.CreateArticle(ctx, ArticleInput{Title: " t ", Content: "c", ThreadID: &thread.ID})
	require.NoError(t, err)
	assert.Equal(t, "t", article.Title)
	assert.Equal(t, models.ArticleDraft, article.Status)

	got, err := svc.GetArticle(ctx, article.ID)
	require.NoError(t, err)
	assert.Equal(t, article.ID, got.ID)
}

func TestPostToQiitaPublishesOnce(t *testing.T) {
	svc, _, _, pub := newArticleService(t, "secret")
	ctx := context.Background()
	article, err := svc.CreateArticle(ctx, ArticleInput{Title: "Go入門", Content: "golang の話 #Tips"})
	require.NoError(t, err)

	result, err := svc.PostToQiita(ctx, article.ID, nil)
	require.NoError(t, err)
	assert.False(t, result.AlreadyPublished)
	assert.Equal(t, "https://qiita.com/user/items/abc", result.URL)
	assert.Equal(t, models.ArticlePublished, result.Article.Status)
	require.NotNil(t, result.Article.QiitaURL)
	assert.Equal(t, result.URL, *result.Article.QiitaURL)

	require.Equal(t, 1, pub.calls)
	assert.Equal(t, "secret", pub.token)
	assert.Equal(t, "Go入門", pub.items[0].Title)
	assert.Equal(t, []string{"Tips", "Go"}, pub.items[0].Tags)

	again, err := svc.PostToQiita(ctx, article.ID, []string{"Other"})
	require.NoError(t, err)
	assert.True(t, again.AlreadyPublished)
	assert.Equal(t, result.URL, again.URL)
	assert.Equal(t, 1, pub.calls)
}

func TestPostToQiitaExplicitTags(t *testing.T) {
	svc, _, _, pub := newArticleService(t, "secret")
	ctx := context.Background()
	article, err := svc.CreateArticle(ctx, ArticleInput{Title: "t", Content: "c"})
	require.NoError(t, err)

	_, err = svc.PostToQiita(ctx, article.ID, []string{"Go", "go", "Docker"})
	require.NoError(t, err)
	assert.Equal(t, []string{"Go", "Docker"}, pub.items[0].Tags)
}

func TestPostToQiitaErrors(t *testing.T) {
	ctx := context.Background()

	t.Run("missing article", func(t *testing.T) {
		svc, _, _, pub := newArticleService(t, "secret")
		_, err := svc.PostToQiita(ctx, uuid.NewString(), nil)
		assert.ErrorIs(t, err, models.ErrNotFound)
		assert.Zero(t, pub.calls)
	})

	t.Run("missing token", func(t *testing.T) {
		svc, _, _, pub := newArticleService(t, "")
		article, err := svc.CreateArticle(ctx, ArticleInput{Title: "t", Content: "c"})
		require.NoError(t, err)
		_, err = svc.PostToQiita(ctx, article.ID, nil)
		assert.ErrorIs(t, err, models.ErrConfiguration)
		assert.Zero(t, pub.calls)
	})

	t.Run("rejected", func(t *testing.T) {
		svc, _, _, pub := newArticleService(t, "secret")
		pub.err = errors.New("403 forbidden")
		article, err := svc.CreateArticle(ctx, ArticleInput{Title: "t", Content: "c"})
		require.NoError(t, err)

		_, err = svc.PostToQiita(ctx, article.ID, nil)
		assert.ErrorIs(t, err, models.ErrPublish)

		got, err := svc.GetArticle(ctx, article.ID)
		require.NoError(t, err)
		assert.Equal(t, models.ArticleDraft, got.Status)
		assert.Nil(t, got.QiitaURL)
	})
}

func TestGenerateArticleAfterPublishStartsNewDraft(t *testing.T) {
	svc, store, _, _ := newArticleService(t, "secret")
	ctx := context.Background()
	thread := seedThread(t, store, nil, models.ChatTurn{Role: models.RoleUser, Content: "Q"})

	first, err := svc.GenerateArticle(ctx, thread.ID)
	require.NoError(t, err)
	_, err = svc.PostToQiita(ctx, first.ID, nil)
	require.NoError(t, err)

	second, err := svc.GenerateArticle(ctx, thread.ID)
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)

	published, err := svc.GetArticle(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ArticlePublished, published.Status)
}

func TestListArticlesByUnknownThread(t *testing.T) {
	svc, _, _, _ := newArticleService(t, "")

	_, err := svc.ListByThread(context.Background(), uuid.NewString())
	assert.ErrorIs(t, err, models.ErrNotFound)
}
