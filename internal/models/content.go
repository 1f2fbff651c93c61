package models

// ContentType enumerates the kinds of content the platform indexes and generates.
type ContentType string

const (
	ContentTypeBlogPost           ContentType = "blog_post"
	ContentTypeSocialMedia        ContentType = "social_media"
	ContentTypeEmailNewsletter    ContentType = "email_newsletter"
	ContentTypeProductDescription ContentType = "product_description"
	ContentTypeLandingPage        ContentType = "landing_page"
)

// Valid reports whether t is one of the supported content types.
func (t ContentType) Valid() bool {
	switch t {
	case ContentTypeBlogPost, ContentTypeSocialMedia, ContentTypeEmailNewsletter,
		ContentTypeProductDescription, ContentTypeLandingPage:
		return true
	}
	return false
}

// Platform enumerates external publishing destinations.
type Platform string

const (
	PlatformLinkedIn  Platform = "linkedin"
	PlatformTwitter   Platform = "twitter"
	PlatformFacebook  Platform = "facebook"
	PlatformEmail     Platform = "email"
	PlatformBlog      Platform = "blog"
	PlatformWordPress Platform = "wordpress"
)

// Well-known metadata keys on indexed content.
const (
	MetaKeyContentType     = "content_type"
	MetaKeyTitle           = "title"
	MetaKeyAuthor          = "author"
	MetaKeyTags            = "tags"
	MetaKeyPlatform        = "platform"
	MetaKeyBrandVoiceScore = "brand_voice_score"
)

// ContentItem is a unit of indexed content. Immutable once indexed except for
// metadata and brand voice score updates; the index holds a query-only copy
// together with the item's embedding vector.
type ContentItem struct {
	ID              string                 `json:"id"`
	Title           string                 `json:"title"`
	Text            string                 `json:"text"`
	ContentType     ContentType            `json:"content_type"`
	Metadata        map[string]interface{} `json:"metadata,omitempty"`
	BrandVoiceScore *float64               `json:"brand_voice_score,omitempty"`
}

// RetrievalResult is produced per query and never persisted; its lifetime is
// the request that produced it.
type RetrievalResult struct {
	Item                 *ContentItem `json:"item"`
	SimilarityScore      float64      `json:"similarity_score"`
	RelevanceExplanation string       `json:"relevance_explanation"`
	MatchedCollection    string       `json:"matched_collection"`
}
