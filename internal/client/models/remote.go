package models

import (
	"encoding/json"
	"fmt"
)

// RemoteRecord is the authoritative descriptor of one record as listed by
// the remote source. Decoding fails closed: a descriptor missing its
// mandatory fields is an error, never a half-filled struct.
type RemoteRecord struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	CategoryID  string   `json:"category_id"`
	Version     int      `json:"version"`
	ScanCode    string   `json:"scan_code"`
	Status      string   `json:"status"`
	ImageURL    string   `json:"image_url"`
	VideoURL    string   `json:"video_url"`
	HologramURL string   `json:"hologram_url"`
	AudioURLs   []string `json:"audio_urls"`
	Stories     []Story  `json:"stories"`
	Deleted     bool     `json:"deleted"`
}

// Validate checks the mandatory fields of a remote record descriptor.
func (r RemoteRecord) Validate() error {
	if r.ID == "" {
		return fmt.Errorf("remote record: missing id")
	}
	if r.ScanCode == "" {
		return fmt.Errorf("remote record %s: missing scan_code", r.ID)
	}
	if r.Name == "" {
		return fmt.Errorf("remote record %s: missing name", r.ID)
	}
	if r.Version < 0 {
		return fmt.Errorf("remote record %s: negative version", r.ID)
	}
	return nil
}

// RemoteMedia is the authoritative descriptor of one media asset.
type RemoteMedia struct {
	ID          string `json:"id"`
	RecordID    string `json:"record_id"`
	Kind        string `json:"kind"`
	URL         string `json:"url"`
	SizeBytes   int64  `json:"size_bytes"`
	ContentType string `json:"content_type"`
	Deleted     bool   `json:"deleted"`
}

// Validate checks the mandatory fields of a remote media descriptor.
func (m RemoteMedia) Validate() error {
	if m.ID == "" {
		return fmt.Errorf("remote media: missing id")
	}
	if m.RecordID == "" {
		return fmt.Errorf("remote media %s: missing record_id", m.ID)
	}
	if m.URL == "" {
		return fmt.Errorf("remote media %s: missing url", m.ID)
	}
	switch MediaKind(m.Kind) {
	case MediaKindImage, MediaKindVideo, MediaKindHologram, MediaKindAudio:
	default:
		return fmt.Errorf("remote media %s: unknown kind %q", m.ID, m.Kind)
	}
	return nil
}

// DecodeRemoteRecords parses and validates a remote record listing.
func DecodeRemoteRecords(data []byte) ([]RemoteRecord, error) {
	var items []RemoteRecord
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("failed to decode remote records: %w", err)
	}
	for _, item := range items {
		if err := item.Validate(); err != nil {
			return nil, err
		}
	}
	return items, nil
}

// DecodeRemoteMedia parses and validates a remote media listing.
func DecodeRemoteMedia(data []byte) ([]RemoteMedia, error) {
	var items []RemoteMedia
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("failed to decode remote media: %w", err)
	}
	for _, item := range items {
		if err := item.Validate(); err != nil {
			return nil, err
		}
	}
	return items, nil
}
