package blobstore

import (
	"errors"
	"testing"
)

func TestIsBlobRef(t *testing.T) {
	tests := []struct {
		ref  string
		want bool
	}{
		{"img_11111111-2222-4333-8444-555555555555", true},
		{"img_legacy", true},
		{"data:image/png;base64,AAAA", false},
		{"https://example.com/a.png", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := IsBlobRef(tt.ref); got != tt.want {
			t.Errorf("IsBlobRef(%q) = %v, want %v", tt.ref, got, tt.want)
		}
	}
}

func TestIsValidID(t *testing.T) {
	if !IsValidID(NewID()) {
		t.Error("NewID() is not a valid id")
	}
	if IsValidID("img_legacy") {
		t.Error("IsValidID accepted a malformed id")
	}
}

func TestDecodeDataURI(t *testing.T) {
	mime, data, err := DecodeDataURI("data:image/jpeg;base64,aGVsbG8=")
	if err != nil {
		t.Fatalf("DecodeDataURI: %v", err)
	}
	if mime != "image/jpeg" || string(data) != "hello" {
		t.Errorf("DecodeDataURI = (%q, %q)", mime, data)
	}

	bad := []string{
		"https://example.com",
		"data:image/png;base64",
		"data:image/png;base64,%%%",
	}
	for _, uri := range bad {
		if _, _, err := DecodeDataURI(uri); !errors.Is(err, ErrBadDataURI) {
			t.Errorf("DecodeDataURI(%q) error = %v, want ErrBadDataURI", uri, err)
		}
	}
}

func TestExtension(t *testing.T) {
	tests := []struct {
		contentType string
		want        string
	}{
		{"image/png", "png"},
		{"image/jpeg", "jpg"},
		{"image/webp", "webp"},
		{"image/gif", "gif"},
		{"application/x-unknown-thing", "png"},
		{"text/plain; charset=utf-8", "png"},
	}
	for _, tt := range tests {
		if got := Extension(tt.contentType); got != tt.want {
			t.Errorf("Extension(%q) = %q, want %q", tt.contentType, got, tt.want)
		}
	}
}

func TestPlaceholder(t *testing.T) {
	p := Placeholder()
	if DetectContentType(p.Data) != "image/png" {
		t.Errorf("placeholder sniffs as %q", DetectContentType(p.Data))
	}
	p.Data[0] = 0
	if Placeholder().Data[0] == 0 {
		t.Error("Placeholder shares its backing array")
	}
}

func TestIDSet(t *testing.T) {
	s := NewIDSet("b", "a")
	s.Add("c")
	if !s.Has("a") || s.Has("z") {
		t.Errorf("Has mismatch: %v", s)
	}
	got := s.Sorted()
	if len(got) != 3 || got[0] != "a" || got[2] != "c" {
		t.Errorf("Sorted = %v", got)
	}
}
