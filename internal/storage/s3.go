package storage

import (
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/reelcraft/backend/internal/config"
	"github.com/reelcraft/backend/internal/models"
	"github.com/reelcraft/backend/internal/videogen"
)

// ObjectLister is the slice of the S3 API the template library uses.
type ObjectLister interface {
	ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
}

// S3TemplateLibrary implements videogen.TemplateLister over an S3-compatible
// bucket: every video object under the configured prefix is one template
// clip, classified into its pricing tier by name.
type S3TemplateLibrary struct {
	client  ObjectLister
	bucket  string
	prefix  string
	baseURL string
}

// NewS3TemplateLibrary configures a lister targeting the provided object store.
func NewS3TemplateLibrary(ctx context.Context, cfg config.ObjectStoreConfig) (*S3TemplateLibrary, error) {
	if strings.TrimSpace(cfg.Bucket) == "" {
		return nil, fmt.Errorf("s3 templates: bucket is required")
	}

	loadOpts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}

	if strings.TrimSpace(cfg.Endpoint) != "" {
		resolver := aws.EndpointResolverWithOptionsFunc(func(service, region string, _ ...interface{}) (aws.Endpoint, error) {
			if service == s3.ServiceID {
				return aws.Endpoint{
					URL:           cfg.Endpoint,
					SigningRegion: cfg.Region,
				}, nil
			}
			return aws.Endpoint{}, &aws.EndpointNotFoundError{}
		})
		loadOpts = append(loadOpts, awsconfig.WithEndpointResolverWithOptions(resolver))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = true
	})

	return &S3TemplateLibrary{
		client:  client,
		bucket:  cfg.Bucket,
		prefix:  cfg.Prefix,
		baseURL: strings.TrimSuffix(cfg.PublicBaseURL, "/"),
	}, nil
}

// WithClient overrides the S3 client. Useful for tests.
func (l *S3TemplateLibrary) WithClient(client ObjectLister) *S3TemplateLibrary {
	l.client = client
	return l
}

// ListTemplates walks the bucket prefix and returns one TemplateVideo per
// video object found.
func (l *S3TemplateLibrary) ListTemplates(ctx context.Context) ([]models.TemplateVideo, error) {
	var templates []models.TemplateVideo

	input := &s3.ListObjectsV2Input{
		Bucket: aws.String(l.bucket),
		Prefix: aws.String(l.prefix),
	}

	for {
		out, err := l.client.ListObjectsV2(ctx, input)
		if err != nil {
			return nil, fmt.Errorf("list template objects: %w", err)
		}

		for _, obj := range out.Contents {
			key := aws.ToString(obj.Key)
			template, ok := l.templateFromKey(key)
			if !ok {
				continue
			}
			templates = append(templates, template)
		}

		if out.NextContinuationToken == nil {
			break
		}
		input.ContinuationToken = out.NextContinuationToken
	}

	return templates, nil
}

func (l *S3TemplateLibrary) templateFromKey(key string) (models.TemplateVideo, bool) {
	base := path.Base(key)
	ext := path.Ext(base)
	if ext != ".mp4" && ext != ".mov" && ext != ".webm" {
		return models.TemplateVideo{}, false
	}

	id := strings.TrimSuffix(base, ext)
	if id == "" {
		return models.TemplateVideo{}, false
	}

	videoURL := key
	if l.baseURL != "" {
		videoURL = l.baseURL + "/" + strings.TrimLeft(key, "/")
	}

	category := videogen.TemplateCategory(id)
	return models.TemplateVideo{
		ID:          id,
		Name:        displayName(id),
		VideoURL:    videoURL,
		Category:    category,
		Description: fmt.Sprintf("%s template (%s)", displayName(id), category),
	}, true
}

// displayName turns a key stem such as "dance1" or "slow_zoom" into a label.
func displayName(id string) string {
	parts := strings.FieldsFunc(id, func(r rune) bool {
		return r == '_' || r == '-'
	})
	for i, part := range parts {
		if part == "" {
			continue
		}
		parts[i] = strings.ToUpper(part[:1]) + part[1:]
	}
	return strings.Join(parts, " ")
}
