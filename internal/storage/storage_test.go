package storage

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLocalSave(t *testing.T) {
	dir := t.TempDir()
	l := NewLocal(dir, "/uploads/")

	url, err := l.Save(context.Background(), "front.png", strings.NewReader("png-bytes"))
	if err != nil {
		t.Fatal(err)
	}

	if !strings.HasPrefix(url, "/uploads/") || !strings.HasSuffix(url, "_front.png") {
		t.Errorf("url = %q", url)
	}

	data, err := os.ReadFile(filepath.Join(dir, strings.TrimPrefix(url, "/uploads/")))
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "png-bytes" {
		t.Errorf("stored bytes = %q", data)
	}
}

func TestLocalSaveCreatesDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "uploads")
	l := NewLocal(dir, "/uploads")

	if _, err := l.Save(context.Background(), "a.png", strings.NewReader("x")); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(dir); err != nil {
		t.Errorf("upload dir not created: %v", err)
	}
}

func TestSameNameDoesNotCollide(t *testing.T) {
	l := NewLocal(t.TempDir(), "/uploads/")

	a, err := l.Save(context.Background(), "card.png", strings.NewReader("one"))
	if err != nil {
		t.Fatal(err)
	}
	b, err := l.Save(context.Background(), "card.png", strings.NewReader("two"))
	if err != nil {
		t.Fatal(err)
	}
	if a == b {
		t.Errorf("identical names produced the same reference %q", a)
	}
}

func TestObjectName(t *testing.T) {
	tests := []struct {
		name     string
		filename string
		suffix   string
	}{
		{"plain", "front.png", "_front.png"},
		{"path stripped", "../../etc/passwd", "_passwd"},
		{"spaces replaced", "my card.png", "_my-card.png"},
		{"empty falls back", "", "_upload"},
		{"dot falls back", ".", "_upload"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := objectName(tt.filename)
			if !strings.HasSuffix(got, tt.suffix) {
				t.Errorf("objectName(%q) = %q, want suffix %q", tt.filename, got, tt.suffix)
			}
			if strings.ContainsAny(got, "/\\ ") {
				t.Errorf("objectName(%q) = %q contains unsafe characters", tt.filename, got)
			}
		})
	}
}
