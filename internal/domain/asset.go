package domain

// ImageDescriptor is the simplified view of a stock image returned to callers.
type ImageDescriptor struct {
	ID           string   `json:"id"`
	Description  string   `json:"description,omitempty"`
	ThumbnailURL string   `json:"thumbnailUrl"`
	FullURL      string   `json:"fullUrl"`
	Tags         []string `json:"tags"`
}

// AssetFormat enumerates the encodings a generated asset may have.
type AssetFormat string

const (
	AssetFormatPNG  AssetFormat = "png"
	AssetFormatJPEG AssetFormat = "jpeg"
)

// GeneratedAsset is one image produced by the generation upstream. URL is
// either the upstream-hosted URL or a data: URL when the upstream returned
// inline bytes.
type GeneratedAsset struct {
	URL    string      `json:"url"`
	Format AssetFormat `json:"format"`
	Width  int         `json:"width"`
	Height int         `json:"height"`

	// Data holds the decoded bytes when the upstream returned them inline.
	Data []byte `json:"-"`
}

// Collection is a curated Shutterstock collection.
type Collection struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	Description    string `json:"description,omitempty"`
	TotalItemCount int    `json:"totalItemCount"`
}
