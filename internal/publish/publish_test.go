package publish

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

type fakeS3 struct {
	inputs []*s3.PutObjectInput
	bodies []string
	err    error
}

func (f *fakeS3) PutObject(ctx context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	body, _ := io.ReadAll(in.Body)
	f.inputs = append(f.inputs, in)
	f.bodies = append(f.bodies, string(body))
	return &s3.PutObjectOutput{}, nil
}

func TestDirStore(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	s, err := NewDirStore(dir)
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()

	if err := s.Put(ctx, "index.html", []byte("v1"), "text/html"); err != nil {
		t.Fatal(err)
	}
	if err := s.Put(ctx, "nested/page.html", []byte("v2"), "text/html"); err != nil {
		t.Fatal(err)
	}
	if err := s.Put(ctx, "index.html", []byte("v3"), "text/html"); err != nil {
		t.Fatal(err)
	}
	for name, want := range map[string]string{"index.html": "v3", "nested/page.html": "v2"} {
		got, err := os.ReadFile(filepath.Join(dir, filepath.FromSlash(name)))
		if err != nil || string(got) != want {
			t.Errorf("%s = %q, %v; want %q", name, got, err, want)
		}
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 2 {
		t.Errorf("dir has %d entries, want 2 (no temp files left)", len(entries))
	}
}

func TestKeysMustStayInside(t *testing.T) {
	s, _ := NewDirStore(t.TempDir())
	for _, key := range []string{"", "../escape.html", "a/../../b", `..\win`, "a//b"} {
		if err := s.Put(context.Background(), key, nil, ""); !errors.Is(err, ErrInvalidKey) {
			t.Errorf("Put(%q) error = %v, want ErrInvalidKey", key, err)
		}
	}
}

func TestS3Store(t *testing.T) {
	fake := &fakeS3{}
	s := NewS3Store(fake, "bucket", "site/live")
	if err := s.Put(context.Background(), "index.html", []byte("<p>x</p>"), "text/html; charset=utf-8"); err != nil {
		t.Fatal(err)
	}
	if len(fake.inputs) != 1 {
		t.Fatalf("PutObject called %d times", len(fake.inputs))
	}
	in := fake.inputs[0]
	if aws.ToString(in.Bucket) != "bucket" || aws.ToString(in.Key) != "site/live/index.html" {
		t.Errorf("object = %s/%s", aws.ToString(in.Bucket), aws.ToString(in.Key))
	}
	if aws.ToString(in.ContentType) != "text/html; charset=utf-8" || fake.bodies[0] != "<p>x</p>" {
		t.Errorf("content = %q %q", aws.ToString(in.ContentType), fake.bodies[0])
	}
	if in.Metadata["publish-time"] == "" {
		t.Error("publish-time metadata missing")
	}
	if s.String() != "s3://bucket/site/live" {
		t.Errorf("String() = %q", s.String())
	}

	fake.err = errors.New("denied")
	if err := s.Put(context.Background(), "index.html", nil, ""); !errors.Is(err, fake.err) {
		t.Errorf("Put() error = %v, want wrapped denied", err)
	}
}

func TestOpen(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		target string
		want   string
		err    bool
	}{
		{filepath.Join(dir, "a"), "file://", false},
		{"file://" + filepath.ToSlash(filepath.Join(dir, "b")), "file://", false},
		{"s3://bucket/prefix", "s3://bucket/prefix", false},
		{"s3:///prefix", "", true},
		{"ftp://host/dir", "", true},
	}
	for _, tt := range tests {
		s, err := Open(tt.target, Options{Region: "eu-west-1", Endpoint: "http://127.0.0.1:9000"})
		if tt.err {
			if err == nil {
				t.Errorf("Open(%q) succeeded", tt.target)
			}
			continue
		}
		if err != nil {
			t.Errorf("Open(%q) error = %v", tt.target, err)
			continue
		}
		if got := s.String(); len(got) < len(tt.want) || got[:len(tt.want)] != tt.want {
			t.Errorf("Open(%q) = %s, want prefix %s", tt.target, got, tt.want)
		}
	}
}

func TestEnvCredentials(t *testing.T) {
	t.Setenv("AWS_ACCESS_KEY_ID", "")
	t.Setenv("AWS_SECRET_ACCESS_KEY", "")
	if _, err := envCredentials(context.Background()); err == nil {
		t.Error("envCredentials() without keys succeeded")
	}
	t.Setenv("AWS_ACCESS_KEY_ID", "AKID")
	t.Setenv("AWS_SECRET_ACCESS_KEY", "secret")
	creds, err := envCredentials(context.Background())
	if err != nil || creds.AccessKeyID != "AKID" || creds.SecretAccessKey != "secret" {
		t.Errorf("envCredentials() = %+v, %v", creds, err)
	}
}
