package storage

import (
	"context"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/reelcraft/backend/internal/models"
)

type listerStub struct {
	pages []*s3.ListObjectsV2Output
	calls int
}

func (s *listerStub) ListObjectsV2(_ context.Context, _ *s3.ListObjectsV2Input, _ ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	out := s.pages[s.calls]
	s.calls++
	return out, nil
}

func TestListTemplates(t *testing.T) {
	stub := &listerStub{pages: []*s3.ListObjectsV2Output{
		{
			Contents: []s3types.Object{
				{Key: aws.String("templates/dance1.mp4")},
				{Key: aws.String("templates/slow_zoom.mp4")},
				{Key: aws.String("templates/readme.txt")},
			},
			NextContinuationToken: aws.String("next"),
		},
		{
			Contents: []s3types.Object{
				{Key: aws.String("templates/money.webm")},
			},
		},
	}}

	lib := (&S3TemplateLibrary{bucket: "clips", prefix: "templates/", baseURL: "https://cdn.example.com"}).WithClient(stub)

	templates, err := lib.ListTemplates(context.Background())
	if err != nil {
		t.Fatalf("list: %v", err)
	}

	if stub.calls != 2 {
		t.Fatalf("expected pagination across 2 calls, got %d", stub.calls)
	}
	if len(templates) != 3 {
		t.Fatalf("expected 3 templates (non-video keys skipped), got %d", len(templates))
	}

	byID := map[string]models.TemplateVideo{}
	for _, tpl := range templates {
		byID[tpl.ID] = tpl
	}

	dance := byID["dance1"]
	if dance.Category != models.TemplateCategoryPremium {
		t.Fatalf("dance1 must be premium, got %s", dance.Category)
	}
	if dance.VideoURL != "https://cdn.example.com/templates/dance1.mp4" {
		t.Fatalf("unexpected url %q", dance.VideoURL)
	}

	zoom := byID["slow_zoom"]
	if zoom.Category != models.TemplateCategoryBasic {
		t.Fatalf("slow_zoom must be basic, got %s", zoom.Category)
	}
	if zoom.Name != "Slow Zoom" {
		t.Fatalf("unexpected display name %q", zoom.Name)
	}

	if byID["money"].Category != models.TemplateCategoryPremium {
		t.Fatal("money must be premium")
	}
}
