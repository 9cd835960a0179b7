// Package models contains domain types for the LocalSend web download page.
package models

import "sort"

// DeviceInfo describes the sender that offers a download session.
type DeviceInfo struct {
	Alias       string  `json:"alias" msgpack:"alias"`
	Version     string  `json:"version" msgpack:"version"`
	DeviceModel *string `json:"deviceModel,omitempty" msgpack:"deviceModel,omitempty"`
	DeviceType  *string `json:"deviceType,omitempty" msgpack:"deviceType,omitempty"`
	Fingerprint string  `json:"fingerprint" msgpack:"fingerprint"`
	Download    *bool   `json:"download,omitempty" msgpack:"download,omitempty"`
}

// FileMetadata holds optional timestamps reported by the sender.
type FileMetadata struct {
	Modified string `json:"modified,omitempty" msgpack:"modified,omitempty"`
	Accessed string `json:"accessed,omitempty" msgpack:"accessed,omitempty"`
}

// FileDescriptor is the metadata record for one downloadable file.
// FileName is the full path as sent by the sender and may contain "/".
type FileDescriptor struct {
	FileName string        `json:"fileName" msgpack:"fileName"`
	Size     int64         `json:"size" msgpack:"size"`
	FileType string        `json:"fileType" msgpack:"fileType"`
	SHA256   *string       `json:"sha256,omitempty" msgpack:"sha256,omitempty"`
	Preview  *string       `json:"preview,omitempty" msgpack:"preview,omitempty"`
	Metadata *FileMetadata `json:"metadata,omitempty" msgpack:"metadata,omitempty"`
}

// Manifest is the prepare-download response: sender info plus files keyed by file id.
type Manifest struct {
	Info      DeviceInfo                `json:"info" msgpack:"info"`
	SessionID string                    `json:"sessionId" msgpack:"sessionId"`
	Files     map[string]FileDescriptor `json:"files" msgpack:"files"`
}

// FileIDs returns the manifest's file ids ordered by file name, then id.
func (m *Manifest) FileIDs() []string {
	ids := make([]string, 0, len(m.Files))
	for id := range m.Files {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		a, b := m.Files[ids[i]], m.Files[ids[j]]
		if a.FileName != b.FileName {
			return a.FileName < b.FileName
		}
		return ids[i] < ids[j]
	})
	return ids
}

// TotalSize sums the size of every file in the manifest.
func (m *Manifest) TotalSize() int64 {
	var total int64
	for _, f := range m.Files {
		total += f.Size
	}
	return total
}

// StringValue dereferences an optional string, returning "" for nil.
func StringValue(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
