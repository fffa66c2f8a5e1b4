package model

import "time"

// TextStrategy is the closed set of text variation strategies.
// Adding a strategy means adding a constant here and a handler in textgen's
// dispatch table.
type TextStrategy string

const (
	// Title strategies.
	StrategyAssist           TextStrategy = "assist"
	StrategyWordSubstitution TextStrategy = "word_substitution"
	StrategyAffixInjection   TextStrategy = "affix_injection"
	StrategyWordOrder        TextStrategy = "word_order"
	StrategySymbolInsertion  TextStrategy = "symbol_insertion"

	// Description strategies.
	StrategyFullRewrite         TextStrategy = "full_rewrite"
	StrategyElementSubstitution TextStrategy = "element_substitution"
	StrategySymbolVariation     TextStrategy = "symbol_variation"
	StrategyStructuralReorder   TextStrategy = "structural_reorder"

	// Deterministic last resort; unique by construction.
	StrategyTimestampSuffix TextStrategy = "timestamp_suffix"
)

// TextKind distinguishes title variants from description variants in the ledger.
type TextKind string

const (
	TextTitle       TextKind = "title"
	TextDescription TextKind = "description"
)

// TextVariant is one issued text variation, recorded in the ledger so it is
// never issued again for the same original.
type TextVariant struct {
	AccountID  string       `json:"account_id"`
	OriginalID string       `json:"original_id"`
	Kind       TextKind     `json:"kind"`
	Text       string       `json:"text"`
	Strategy   TextStrategy `json:"strategy"`
	CreatedAt  time.Time    `json:"created_at"`
}

// CropKind is the closed set of crop placement strategies.
type CropKind string

const (
	CropCenter       CropKind = "center"
	CropTopLeft      CropKind = "top_left"
	CropTopRight     CropKind = "top_right"
	CropBottomLeft   CropKind = "bottom_left"
	CropBottomRight  CropKind = "bottom_right"
	CropContentAware CropKind = "content_aware"
)

// CropRect is the applied crop rectangle in source pixel coordinates.
type CropRect struct {
	Left   int `json:"left"`
	Top    int `json:"top"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// FabricatedMetadata is the synthesized replacement for stripped EXIF.
// No field here may originate from the source image's own metadata.
type FabricatedMetadata struct {
	DeviceMake  string    `json:"device_make"`
	DeviceModel string    `json:"device_model"`
	Region      string    `json:"region"`
	Latitude    float64   `json:"latitude"`
	Longitude   float64   `json:"longitude"`
	CapturedAt  time.Time `json:"captured_at"`
}

// AppliedTransform records every parameter that shaped an image derivative,
// so the (dimension, quality) tuple can be checked against history and the
// exact output can be reproduced from a seed in tests.
type AppliedTransform struct {
	Crop       CropRect           `json:"crop"`
	CropKind   CropKind           `json:"crop_kind"`
	Scale      float64            `json:"scale"`
	Brightness float64            `json:"brightness"`
	Contrast   float64            `json:"contrast"`
	Quality    int                `json:"quality"`
	Metadata   FabricatedMetadata `json:"metadata"`
}

// ImageDerivative is the output of one image derivation: new bytes plus the
// transform that produced them. The ledger references it; the pipeline
// invocation that created it owns the bytes.
type ImageDerivative struct {
	SourceSHA256 string           `json:"source_sha256"`
	Width        int              `json:"width"`
	Height       int              `json:"height"`
	Transform    AppliedTransform `json:"transform"`
	Bytes        []byte           `json:"-"`
	CreatedAt    time.Time        `json:"created_at"`
}

// ListingEvent is the input from the automation/UI layer: a new post or a
// relist of previously stored content.
type ListingEvent struct {
	AccountID   string
	Title       string
	Description string
	Images      [][]byte
}

// VariantBundle is what the orchestrator hands back to the automation layer:
// one fresh text/image representation of the original.
type VariantBundle struct {
	OriginalID  string            `json:"original_id"`
	Title       TextVariant       `json:"title"`
	Description TextVariant       `json:"description"`
	Images      []ImageDerivative `json:"images"`
	Skipped     int               `json:"skipped_images"`
}
