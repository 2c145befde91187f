// Package listing defines the product data model flowing through the
// pipeline: optimizer output, CDN upload results, generated copy, and the
// publish payload, plus the per-folder audit record.
package listing

import "time"

// ProcessedImage describes one optimizer output.
type ProcessedImage struct {
	SourcePath       string   `json:"source_path"`
	OutputPath       string   `json:"output_path"`
	ThumbnailPath    string   `json:"thumbnail_path,omitempty"`
	Format           string   `json:"format"`
	OriginalWidth    int      `json:"original_width"`
	OriginalHeight   int      `json:"original_height"`
	Width            int      `json:"width"`
	Height           int      `json:"height"`
	OriginalBytes    int64    `json:"original_bytes"`
	Bytes            int64    `json:"bytes"`
	CompressionRatio float64  `json:"compression_ratio"`
	OriginalDeleted  bool     `json:"original_deleted"`
	Warnings         []string `json:"warnings,omitempty"`
}

// UploadedImage is the CDN's record of a stored asset.
type UploadedImage struct {
	URL          string `json:"url"`
	ThumbnailURL string `json:"thumbnail_url,omitempty"`
	FileID       string `json:"file_id,omitempty"`
	Name         string `json:"name,omitempty"`
}

// ProductImage is one entry of the publish payload's image list.
type ProductImage struct {
	URL   string `json:"url"`
	Alt   string `json:"alt,omitempty"`
	Order int    `json:"order"`
}

// GeneratedContent is the AI service's listing copy for a product. Models
// answer the price under either "recommended" or "recommended_price"; both
// keys are kept and Price resolves the precedence.
type GeneratedContent struct {
	Description      string   `json:"description"`
	SEOTitle         string   `json:"seo_title,omitempty"`
	SEODescription   string   `json:"seo_description,omitempty"`
	SuggestedTitle   string   `json:"suggested_title,omitempty"`
	Keywords         []string `json:"keywords,omitempty"`
	Recommended      float64  `json:"recommended,omitempty"`
	RecommendedPrice float64  `json:"recommended_price,omitempty"`
	Condition        string   `json:"condition,omitempty"`
	Era              string   `json:"era,omitempty"`
	Origin           string   `json:"origin,omitempty"`
	Materials        []string `json:"materials,omitempty"`
}

// Price returns the model's price suggestion: "recommended" wins over
// "recommended_price", and zero means no recommendation was made.
func (g GeneratedContent) Price() float64 {
	if g.Recommended > 0 {
		return g.Recommended
	}
	return g.RecommendedPrice
}

// ProductPayload is the body submitted to the marketplace publish endpoint.
type ProductPayload struct {
	Title           string         `json:"title"`
	SKU             string         `json:"sku"`
	Category        string         `json:"category"`
	Description     string         `json:"description"`
	DescriptionHTML string         `json:"description_html,omitempty"`
	Price           float64        `json:"price"`
	Condition       string         `json:"condition,omitempty"`
	Era             string         `json:"era,omitempty"`
	Origin          string         `json:"origin,omitempty"`
	Materials       []string       `json:"materials,omitempty"`
	Images          []ProductImage `json:"images"`
	SEOTitle        string         `json:"seo_title,omitempty"`
	SEODescription  string         `json:"seo_description,omitempty"`
	Keywords        []string       `json:"keywords,omitempty"`
}

// PublishResult is the marketplace's acknowledgement of a created listing.
type PublishResult struct {
	ListingID  string `json:"listing_id,omitempty"`
	ListingURL string `json:"listing_url,omitempty"`
	Created    bool   `json:"created"`
}

// AuditRecord captures everything the pipeline did to a folder. It is written
// into the folder before the terminal move so the archived directory is
// self-describing.
type AuditRecord struct {
	SKU            string            `json:"sku"`
	Category       string            `json:"category"`
	ProductData    *ProductPayload   `json:"product_data,omitempty"`
	AIResult       *GeneratedContent `json:"ai_result,omitempty"`
	UploadedImages []UploadedImage   `json:"uploaded_images,omitempty"`
	ProcessedAt    time.Time         `json:"processed_at"`
	Status         string            `json:"status"`
	Error          string            `json:"error,omitempty"`
}
