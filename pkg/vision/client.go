// Package vision wraps Amazon Rekognition label detection behind an optional
// client: when credentials are absent the client constructs disabled and the
// image-search fallback tier is skipped.
package vision

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/rekognition"
	rektypes "github.com/aws/aws-sdk-go-v2/service/rekognition/types"
	"github.com/fabrichouse/inventory-backend/pkg/config"
	"github.com/fabrichouse/inventory-backend/pkg/logger"
)

type labelDetector interface {
	DetectLabels(ctx context.Context, params *rekognition.DetectLabelsInput, optFns ...func(*rekognition.Options)) (*rekognition.DetectLabelsOutput, error)
}

// Client compares images by their detected label sets.
type Client struct {
	api           labelDetector
	maxLabels     int32
	minConfidence float32
}

// Comparison is the outcome of comparing two images.
type Comparison struct {
	Similarity  int    `json:"similarity"`
	Explanation string `json:"explanation"`
}

// New builds a Rekognition-backed client. Missing or skipped credentials
// yield a disabled client rather than an error so the rest of the system
// keeps functioning.
func New(ctx context.Context, cfg config.AWSConfig, search config.SearchConfig, logg *logger.Logger) *Client {
	client := &Client{
		maxLabels:     search.VisionMaxLabels,
		minConfidence: search.VisionMinConfidence,
	}

	if cfg.SkipRekognition {
		if logg != nil {
			logg.Info(ctx, "rekognition disabled via config")
		}
		return client
	}
	if !cfg.HasCredentials() {
		if logg != nil {
			logg.Warn(ctx, "aws credentials not configured, image search fallback disabled")
		}
		return client
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.Region),
		awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		),
	)
	if err != nil {
		if logg != nil {
			logg.Error(ctx, "failed to initialize rekognition, fallback disabled", err)
		}
		return client
	}

	client.api = rekognition.NewFromConfig(awsCfg)
	if logg != nil {
		logg.Info(ctx, "rekognition client initialized")
	}
	return client
}

// NewWithAPI wires an explicit detector; used by tests.
func NewWithAPI(api labelDetector, maxLabels int32, minConfidence float32) *Client {
	return &Client{api: api, maxLabels: maxLabels, minConfidence: minConfidence}
}

// Available reports whether label detection can be called.
func (c *Client) Available() bool {
	return c != nil && c.api != nil
}

// DetectLabels returns the labels Rekognition finds in the image bytes.
func (c *Client) DetectLabels(ctx context.Context, data []byte) ([]Label, error) {
	if !c.Available() {
		return nil, fmt.Errorf("rekognition is not available")
	}

	out, err := c.api.DetectLabels(ctx, &rekognition.DetectLabelsInput{
		Image:         &rektypes.Image{Bytes: data},
		MaxLabels:     aws.Int32(c.maxLabels),
		MinConfidence: aws.Float32(c.minConfidence),
	})
	if err != nil {
		return nil, fmt.Errorf("detect labels: %w", err)
	}

	labels := make([]Label, 0, len(out.Labels))
	for _, l := range out.Labels {
		if l.Name == nil {
			continue
		}
		confidence := float64(0)
		if l.Confidence != nil {
			confidence = float64(*l.Confidence)
		}
		labels = append(labels, Label{Name: *l.Name, Confidence: confidence})
	}
	return labels, nil
}

// Compare scores two images by label overlap and explains the result.
func (c *Client) Compare(ctx context.Context, a, b []byte) (*Comparison, error) {
	labelsA, err := c.DetectLabels(ctx, a)
	if err != nil {
		return nil, err
	}
	labelsB, err := c.DetectLabels(ctx, b)
	if err != nil {
		return nil, err
	}

	explanation := "No significant common features detected"
	if common := CommonLabels(labelsA, labelsB); len(common) > 0 {
		explanation = "Common features: " + strings.Join(common, ", ")
	}

	return &Comparison{
		Similarity:  Similarity(labelsA, labelsB),
		Explanation: explanation,
	}, nil
}

// Describe renders the detected labels as human-readable text.
func (c *Client) Describe(ctx context.Context, data []byte) (string, error) {
	labels, err := c.DetectLabels(ctx, data)
	if err != nil {
		return "", err
	}
	if len(labels) == 0 {
		return "No significant features detected", nil
	}

	parts := make([]string, 0, len(labels))
	for _, l := range labels {
		parts = append(parts, fmt.Sprintf("%s (%.0f%% confidence)", l.Name, l.Confidence))
	}
	return strings.Join(parts, ", "), nil
}
