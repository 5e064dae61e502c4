package videogen

import (
	"errors"
	"strings"

	"github.com/reelcraft/backend/internal/models"
)

// Coin costs per generation mode.
const (
	CostBasic   int64 = 30
	CostPremium int64 = 55
)

// ErrInsufficientCoins signals the user's balance does not cover the
// requested generation. No engine call is made when this fires.
var ErrInsufficientCoins = errors.New("videogen: insufficient coin balance")

// premiumTemplates is the fixed set of reference clips billed at the
// premium rate.
var premiumTemplates = map[string]struct{}{
	"dance1": {},
	"dance2": {},
	"dance3": {},
	"hug":    {},
	"kiss":   {},
	"muscle": {},
	"money":  {},
}

// Mode identifies which of the three generation flavors a request uses.
type Mode string

const (
	// ModeText generates from the prompt alone.
	ModeText Mode = "text"
	// ModeTemplate drives a reference clip with the user's image.
	ModeTemplate Mode = "template"
	// ModeImage animates the user's image guided by the prompt.
	ModeImage Mode = "image"
)

// Request is a generation request after mode resolution and costing.
type Request struct {
	Mode       Mode
	PromptText string
	ImageURL   string
	Template   string
	Cost       int64
}

// BuildRequest resolves the three mutually exclusive generation modes by
// precedence: no image wins text mode; an image with an explicitly selected
// template wins template mode (the prompt is cleared); an image alone wins
// image-plus-prompt mode.
func BuildRequest(prompt, imageURL, template string) Request {
	prompt = strings.TrimSpace(prompt)
	imageURL = strings.TrimSpace(imageURL)
	template = strings.TrimSpace(template)

	if imageURL == "" {
		return Request{Mode: ModeText, PromptText: prompt, Cost: CostBasic}
	}

	if template != "" {
		return Request{
			Mode:     ModeTemplate,
			ImageURL: imageURL,
			Template: template,
			Cost:     TemplateCost(template),
		}
	}

	return Request{Mode: ModeImage, PromptText: prompt, ImageURL: imageURL, Cost: CostBasic}
}

// TemplateCost returns the coin price of one template-driven generation.
func TemplateCost(template string) int64 {
	if IsPremiumTemplate(template) {
		return CostPremium
	}
	return CostBasic
}

// IsPremiumTemplate reports whether the template belongs to the fixed
// premium set.
func IsPremiumTemplate(template string) bool {
	_, ok := premiumTemplates[template]
	return ok
}

// TemplateCategory classifies a template id into its pricing tier.
func TemplateCategory(template string) models.TemplateCategory {
	if IsPremiumTemplate(template) {
		return models.TemplateCategoryPremium
	}
	return models.TemplateCategoryBasic
}
