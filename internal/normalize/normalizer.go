// Package normalize turns untrusted candidate records into catalog tools.
package normalize

import (
	stdErrors "errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/angelmondragon/aitools-scraper/internal/candidate"
	"github.com/angelmondragon/aitools-scraper/internal/slug"
	"github.com/angelmondragon/aitools-scraper/pkg/db/models"
	"github.com/angelmondragon/aitools-scraper/pkg/enums"
	pkgerrors "github.com/angelmondragon/aitools-scraper/pkg/errors"
	"github.com/angelmondragon/aitools-scraper/pkg/types"
)

const (
	DefaultTagline     = "Tagline not found."
	DefaultDescription = "Description not found."
)

// ErrMissingRequiredField is matched with errors.Is on normalization failures
// caused by an absent name or websiteUrl.
var ErrMissingRequiredField = stdErrors.New("missing required field")

// Normalizer applies the catalog defaults. It holds no per-record state and is
// safe for concurrent use.
type Normalizer struct {
	status   enums.ToolStatus
	validate *validator.Validate
}

// New builds a normalizer that stamps scraped tools with status. An empty
// status falls back to approved.
func New(status enums.ToolStatus) (*Normalizer, error) {
	if status == "" {
		status = enums.ToolStatusApproved
	}
	if !status.IsValid() {
		return nil, fmt.Errorf("normalize: invalid default status %q", status)
	}
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		tag := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if tag == "" || tag == "-" {
			return f.Name
		}
		return tag
	})
	return &Normalizer{status: status, validate: v}, nil
}

// Normalize maps rec onto a Tool. Slug is set to the base derived from the
// name; uniqueness against the store is resolved by the caller.
func (n *Normalizer) Normalize(rec candidate.Record) (*models.Tool, error) {
	name := strings.TrimSpace(rec.Name)
	if name == "" {
		return nil, missingField("name")
	}
	website := strings.TrimSpace(rec.WebsiteURL)
	if website == "" {
		return nil, missingField("websiteUrl")
	}

	tool := &models.Tool{
		Name:         name,
		Tagline:      orDefault(rec.Tagline, DefaultTagline),
		Description:  orDefault(rec.Description, DefaultDescription),
		Slug:         slug.Make(name),
		WebsiteURL:   website,
		Tags:         types.Tags(rec.Tags.Clean()),
		AppStoreURL:  strings.TrimSpace(rec.AppStoreURL),
		PlayStoreURL: strings.TrimSpace(rec.PlayStoreURL),
		LogoURL:      strings.TrimSpace(rec.LogoURL),
		Status:       n.status,
		IsFeatured:   false,
		Source:       enums.ToolSourceScraped,
		Analytics:    types.Analytics{},
		CommentStats: types.CommentStats{},
		MediaStats:   types.MediaStats{},
		Visual:       normalizeVisual(rec.Visual),
	}

	if err := n.validate.Struct(tool); err != nil {
		return nil, validationError(err)
	}
	return tool, nil
}

func normalizeVisual(v types.Visual) types.Visual {
	out := types.Visual{
		Type:  strings.TrimSpace(v.Type),
		Color: strings.TrimSpace(v.Color),
	}
	for _, item := range v.Content {
		item.Icon = strings.TrimSpace(item.Icon)
		item.Text = strings.TrimSpace(item.Text)
		if item.Icon == "" && item.Text == "" {
			continue
		}
		out.Content = append(out.Content, item)
	}
	return out.WithDefaults()
}

func orDefault(value, fallback string) string {
	if v := strings.TrimSpace(value); v != "" {
		return v
	}
	return fallback
}

func missingField(field string) error {
	return pkgerrors.Wrap(
		pkgerrors.CodeNormalization,
		fmt.Errorf("%w: %s", ErrMissingRequiredField, field),
		"missing required field",
	).WithDetails(map[string]string{"field": field})
}

func validationError(err error) error {
	var fieldErrs validator.ValidationErrors
	if stdErrors.As(err, &fieldErrs) {
		details := map[string]string{}
		for _, fe := range fieldErrs {
			details[fe.Field()] = fe.Tag()
		}
		return pkgerrors.Wrap(pkgerrors.CodeNormalization, err, "tool failed validation").WithDetails(details)
	}
	return pkgerrors.Wrap(pkgerrors.CodeNormalization, err, "tool failed validation")
}
