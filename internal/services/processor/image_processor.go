package processor

import (
	"fmt"
	"image"

	"github.com/phambaophuc/watermark-tool/internal/models"
	"go.uber.org/zap"
)

const (
	DefaultOpacity    = 0.7
	DefaultScaleRatio = 0.3
)

// Compositor applies the watermark asset to input images. Its fields are
// set at construction and never change, so one Compositor can serve
// concurrent requests.
type Compositor struct {
	asset          *WatermarkAsset
	defaultOpacity float64
	scaleRatio     float64
	rand           Rand
	logger         *zap.Logger
}

type Option func(*Compositor)

func WithDefaultOpacity(opacity float64) Option {
	return func(c *Compositor) {
		c.defaultOpacity = opacity
	}
}

// WithScaleRatio sets the fraction of the input's smallest dimension used when
// scaling the watermark.
func WithScaleRatio(ratio float64) Option {
	return func(c *Compositor) {
		if ratio > 0 {
			c.scaleRatio = ratio
		}
	}
}

func WithRand(r Rand) Option {
	return func(c *Compositor) {
		if r != nil {
			c.rand = r
		}
	}
}

func WithLogger(logger *zap.Logger) Option {
	return func(c *Compositor) {
		if logger != nil {
			c.logger = logger
		}
	}
}

func NewCompositor(asset *WatermarkAsset, opts ...Option) *Compositor {
	c := &Compositor{
		asset:          asset,
		defaultOpacity: DefaultOpacity,
		scaleRatio:     DefaultScaleRatio,
		rand:           globalRand{},
		logger:         zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Apply runs the whole watermark pipeline for one request. It never fails:
// every problem is reported as an INVALID_INPUT error result.
func (c *Compositor) Apply(params models.WatermarkParameters) *models.CompositeResult {
	messageID := NewMessageID(c.rand)

	imageURI, err := c.apply(params)
	if err != nil {
		c.logger.Debug("Watermark request rejected",
			zap.String("message_id", messageID),
			zap.String("user_id", params.UserID),
			zap.String("project_id", params.ProjectID),
			zap.Error(err))
		return models.NewErrorResult(messageID, params.UserID, params.ProjectID, params.InputImageURI, err)
	}

	return models.NewSuccessResult(messageID, params.UserID, params.ProjectID, imageURI)
}

func (c *Compositor) apply(params models.WatermarkParameters) (uri string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("watermark processing failed: %v", r)
		}
	}()

	if err := ValidateParameters(params); err != nil {
		return "", err
	}

	input, err := DecodeDataURI(params.InputImageURI)
	if err != nil {
		return "", err
	}

	watermarked, _, err := c.Composite(input, c.resolveOpacity(params.ConfigValue))
	if err != nil {
		return "", err
	}

	return EncodeDataURI(flatten(watermarked), FormatPNG)
}

// Composite scales a copy of the watermark to input, fades it by opacity,
// places it at a random offset and blends it over a copy of input. The
// returned image keeps its alpha channel.
func (c *Compositor) Composite(input image.Image, opacity float64) (*image.NRGBA, Placement, error) {
	if c.asset == nil {
		return nil, Placement{}, fmt.Errorf("no watermark asset loaded")
	}
	if input == nil {
		return nil, Placement{}, fmt.Errorf("%w: nil input image", ErrInvalidParameters)
	}

	canvas := input.Bounds().Size()
	size, err := scaledWatermarkSize(canvas, c.asset.Size(), c.scaleRatio)
	if err != nil {
		return nil, Placement{}, err
	}

	// Resize allocates a new image; the shared asset stays untouched.
	wm := resizeWatermark(c.asset.img, size)
	applyOpacity(wm, opacity)

	placement := ChoosePlacement(c.rand, canvas, size)
	return compositeOver(input, wm, placement.Offset), placement, nil
}

func (c *Compositor) resolveOpacity(override *models.ConfigValue) float64 {
	if override != nil {
		return override.Float64()
	}
	return c.defaultOpacity
}
