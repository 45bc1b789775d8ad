package models

// SearchQuery selects assets under Group, newest first. An empty Tag matches
// every asset.
type SearchQuery struct {
	Group string
	Tag   string
	Limit int
}

// TransformHints are applied by the asset store when it accepts bytes.
type TransformHints struct {
	// MaxDimension caps both width and height; 0 leaves size alone.
	MaxDimension int
	// Quality is the stored JPEG quality; 0 lets the store choose.
	Quality int
}

type UploadRequest struct {
	Group string
	Data  []byte
	Tags  []string
	Hints TransformHints
}
