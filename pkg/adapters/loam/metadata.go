package loam

// DocumentMetadata is the front matter stored next to the encoded pattern document.
type DocumentMetadata struct {
	// Format is the serialization the body was written in ("json" or "yaml").
	Format string `json:"format" mapstructure:"format"`
	// Encoding describes how the body is stored. Only "base64" is written.
	Encoding string `json:"encoding" mapstructure:"encoding"`
	Size     int    `json:"size" mapstructure:"size"`
	// Checksum is the hex sha256 of the decoded body.
	Checksum string `json:"checksum" mapstructure:"checksum"`
	SavedAt  string `json:"saved_at" mapstructure:"saved_at"`
}
