package vision

import (
	"testing"
)

func TestDetectImageType(t *testing.T) {
	// Minimal valid PNG header.
	pngHeader := []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A, 0, 0, 0, 0}

	tests := []struct {
		name    string
		data    []byte
		path    string
		want    string
		wantErr bool
	}{
		{
			name: "png magic bytes",
			data: pngHeader,
			path: "/tmp/picture.dat",
			want: "image/png",
		},
		{
			name: "extension fallback",
			data: []byte("not really an image"),
			path: "/tmp/photo.webp",
			want: "image/webp",
		},
		{
			name:    "neither magic nor extension",
			data:    []byte("plain text"),
			path:    "/tmp/notes.txt",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := detectImageType(tt.data, tt.path)
			if tt.wantErr {
				if err == nil {
					t.Errorf("detectImageType() = %q, want error", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("detectImageType() error: %v", err)
			}
			if got != tt.want {
				t.Errorf("detectImageType() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestVideoMIMEType(t *testing.T) {
	tests := []struct {
		path    string
		want    string
		wantErr bool
	}{
		{path: "/videos/demo.mp4", want: "video/mp4"},
		{path: "/videos/clip.MOV", want: "video/quicktime"},
		{path: "/videos/rec.webm", want: "video/webm"},
		{path: "/videos/unknown.xyz", wantErr: true},
		{path: "/videos/noext", wantErr: true},
	}

	for _, tt := range tests {
		got, err := videoMIMEType(tt.path)
		if tt.wantErr {
			if err == nil {
				t.Errorf("videoMIMEType(%q) = %q, want error", tt.path, got)
			}
			continue
		}
		if err != nil {
			t.Errorf("videoMIMEType(%q) error: %v", tt.path, err)
			continue
		}
		if got != tt.want {
			t.Errorf("videoMIMEType(%q) = %q, want %q", tt.path, got, tt.want)
		}
	}
}
