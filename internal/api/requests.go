package api

import (
	"errors"
	"fmt"
	"io"

	"github.com/gin-gonic/gin"
	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"

	"github.com/xaenox/threadpress/internal/models"
	"github.com/xaenox/threadpress/internal/storage"
)

const maxTitleLength = 255

type validatable interface {
	Validate() error
}

// bindRequest decodes the JSON body into req and validates it. An empty body
// decodes as the zero request.
func bindRequest(c *gin.Context, req validatable) error {
	if err := c.ShouldBindJSON(req); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("%w: malformed JSON body: %v", models.ErrValidation, err)
	}
	if err := req.Validate(); err != nil {
		return fmt.Errorf("%w: %v", models.ErrValidation, err)
	}
	return nil
}

var errEmptyPatch = errors.New("at least one field must be provided")

type threadRequest struct {
	Title *string `json:"title"`
}

func (r *threadRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Title, validation.RuneLength(0, maxTitleLength)),
	)
}

// updateThreadRequest requires the title key; an explicit null clears it.
type updateThreadRequest struct {
	Title optionalString `json:"title"`
}

func (r *updateThreadRequest) Validate() error {
	if !r.Title.Present {
		return errEmptyPatch
	}
	return validation.Errors{
		"title": validation.Validate(r.Title.Value, validation.RuneLength(0, maxTitleLength)),
	}.Filter()
}

type messageRequest struct {
	Content string      `json:"content"`
	Role    models.Role `json:"role"`
}

func (r *messageRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Content, validation.Required),
		validation.Field(&r.Role, validation.Required, validation.In(models.RoleUser, models.RoleAssistant)),
	)
}

type generateTitleRequest struct {
	Content string `json:"content"`
}

func (r *generateTitleRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Content, validation.Required),
	)
}

var summaryStatuses = []any{models.SummaryPending, models.SummaryApproved, models.SummarySaved}

type createSummaryRequest struct {
	Title   string               `json:"title"`
	Content string               `json:"content"`
	Status  models.SummaryStatus `json:"status"`
}

func (r *createSummaryRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Title, validation.Required, validation.RuneLength(1, maxTitleLength)),
		validation.Field(&r.Content, validation.Required),
		validation.Field(&r.Status, validation.In(summaryStatuses...)),
	)
}

type updateSummaryRequest struct {
	Title     *string               `json:"title"`
	Content   *string               `json:"content"`
	Status    *models.SummaryStatus `json:"status"`
	NotionURL *string               `json:"notionUrl"`
}

func (r *updateSummaryRequest) Validate() error {
	if r.Title == nil && r.Content == nil && r.Status == nil && r.NotionURL == nil {
		return errEmptyPatch
	}
	return validation.ValidateStruct(r,
		validation.Field(&r.Title, validation.NilOrNotEmpty, validation.RuneLength(1, maxTitleLength)),
		validation.Field(&r.Status, validation.In(summaryStatuses...)),
		validation.Field(&r.NotionURL, is.URL),
	)
}

func (r *updateSummaryRequest) patch() storage.SummaryPatch {
	return storage.SummaryPatch{Title: r.Title, Content: r.Content, Status: r.Status, NotionURL: r.NotionURL}
}

type createArticleRequest struct {
	Title    string               `json:"title"`
	Content  string               `json:"content"`
	Status   models.ArticleStatus `json:"status"`
	ThreadID *string              `json:"threadId"`
}

func (r *createArticleRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Title, validation.Required, validation.RuneLength(1, maxTitleLength)),
		validation.Field(&r.Content, validation.Required),
		validation.Field(&r.Status, validation.In(models.ArticleDraft, models.ArticlePublished)),
		validation.Field(&r.ThreadID, is.UUID),
	)
}

type updateArticleRequest struct {
	Title    *string               `json:"title"`
	Content  *string               `json:"content"`
	Status   *models.ArticleStatus `json:"status"`
	QiitaURL *string               `json:"qiitaUrl"`
}

// Status and qiitaUrl are accepted only to be rejected: they change
// together when an article is published to Qiita.
func (r *updateArticleRequest) Validate() error {
	if r.Title == nil && r.Content == nil && r.Status == nil && r.QiitaURL == nil {
		return errEmptyPatch
	}
	return validation.ValidateStruct(r,
		validation.Field(&r.Title, validation.NilOrNotEmpty, validation.RuneLength(1, maxTitleLength)),
		validation.Field(&r.Status, validation.Nil.Error(errSetByPublish)),
		validation.Field(&r.QiitaURL, validation.Nil.Error(errSetByPublish)),
	)
}

const errSetByPublish = "is set by publishing to Qiita"

func (r *updateArticleRequest) patch() storage.ArticlePatch {
	return storage.ArticlePatch{Title: r.Title, Content: r.Content}
}

type publishRequest struct {
	Tags []string `json:"tags"`
}

func (r *publishRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Tags, validation.Each(validation.RuneLength(0, 64))),
	)
}

type createSlideRequest struct {
	Title    string  `json:"title"`
	Content  string  `json:"content"`
	ThreadID *string `json:"threadId"`
}

func (r *createSlideRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Title, validation.Required, validation.RuneLength(1, maxTitleLength)),
		validation.Field(&r.Content, validation.Required),
		validation.Field(&r.ThreadID, is.UUID),
	)
}

type updateSlideRequest struct {
	Title   *string `json:"title"`
	Content *string `json:"content"`
}

func (r *updateSlideRequest) Validate() error {
	if r.Title == nil && r.Content == nil {
		return errEmptyPatch
	}
	return validation.ValidateStruct(r,
		validation.Field(&r.Title, validation.NilOrNotEmpty, validation.RuneLength(1, maxTitleLength)),
	)
}

func (r *updateSlideRequest) patch() storage.SlidePatch {
	return storage.SlidePatch{Title: r.Title, Content: r.Content}
}
