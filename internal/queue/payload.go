package queue

import (
	"encoding/json"
	"strings"

	"relic/internal/listing"
)

// The JSON columns below carry stage outputs between pipeline stages. Each
// accessor tolerates an empty column and returns the zero value.

// Images returns the discovered source image paths.
func (i *Item) Images() []string {
	return decodeSlice[string](i.ImagesJSON)
}

// SetImages stores the discovered source image paths.
func (i *Item) SetImages(paths []string) error {
	return encodeInto(&i.ImagesJSON, paths)
}

// Processed returns the optimizer's per-image output records.
func (i *Item) Processed() []listing.ProcessedImage {
	return decodeSlice[listing.ProcessedImage](i.ProcessedJSON)
}

// SetProcessed stores the optimizer's per-image output records.
func (i *Item) SetProcessed(images []listing.ProcessedImage) error {
	return encodeInto(&i.ProcessedJSON, images)
}

// Uploaded returns the CDN upload results.
func (i *Item) Uploaded() []listing.UploadedImage {
	return decodeSlice[listing.UploadedImage](i.UploadedJSON)
}

// SetUploaded stores the CDN upload results.
func (i *Item) SetUploaded(images []listing.UploadedImage) error {
	return encodeInto(&i.UploadedJSON, images)
}

// AIResult returns the generated listing copy, or nil when absent.
func (i *Item) AIResult() *listing.GeneratedContent {
	return decodePtr[listing.GeneratedContent](i.AIResultJSON)
}

// SetAIResult stores the generated listing copy.
func (i *Item) SetAIResult(content *listing.GeneratedContent) error {
	return encodeInto(&i.AIResultJSON, content)
}

// Payload returns the assembled publish payload, or nil when absent.
func (i *Item) Payload() *listing.ProductPayload {
	return decodePtr[listing.ProductPayload](i.PayloadJSON)
}

// SetPayload stores the assembled publish payload.
func (i *Item) SetPayload(payload *listing.ProductPayload) error {
	return encodeInto(&i.PayloadJSON, payload)
}

func decodeSlice[T any](raw string) []T {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	var out []T
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return nil
	}
	return out
}

func decodePtr[T any](raw string) *T {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	out := new(T)
	if err := json.Unmarshal([]byte(raw), out); err != nil {
		return nil
	}
	return out
}

func encodeInto(dst *string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	*dst = string(data)
	return nil
}
