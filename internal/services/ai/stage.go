package ai

import (
	"context"
	"log/slog"
	"strings"

	"relic/internal/catalog"
	"relic/internal/config"
	"relic/internal/listing"
	"relic/internal/logging"
	"relic/internal/queue"
	"relic/internal/services"
	"relic/internal/stage"
)

// Stage generates listing copy and assembles the publish payload.
type Stage struct {
	client   *Client
	cfg      *config.Config
	detector *catalog.Detector
	logger   *slog.Logger
}

// NewStage constructs the generation stage handler.
func NewStage(client *Client, cfg *config.Config, logger *slog.Logger) *Stage {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Stage{
		client:   client,
		cfg:      cfg,
		detector: catalog.NewDetector(cfg),
		logger:   logger.With(logging.String(logging.FieldComponent, "ai")),
	}
}

func (s *Stage) Prepare(ctx context.Context, item *queue.Item) error {
	if len(item.Uploaded()) == 0 {
		return services.Wrap(services.ErrValidation, "generating", "validate inputs",
			"no uploaded images recorded; upload must run first", nil)
	}
	item.ErrorMessage = ""
	return nil
}

func (s *Stage) Execute(ctx context.Context, item *queue.Item) error {
	logger := logging.WithContext(ctx, s.logger)

	categoryID, category := s.detector.Category(item.CategoryID)
	displayTitle := catalog.DisplayTitle(item.FolderName)

	paths := make([]string, 0, len(item.Processed()))
	for _, img := range item.Processed() {
		paths = append(paths, img.OutputPath)
	}

	generated, err := s.client.Generate(ctx, Request{
		Title:      displayTitle,
		Category:   category.Name,
		ImagePaths: paths,
	})
	if err != nil {
		return err
	}
	if err := item.SetAIResult(generated); err != nil {
		return services.Wrap(services.ErrTransient, "generating", "record results", "encode generated content", err)
	}

	payload := BuildPayload(item, generated, category.Name)
	if err := item.SetPayload(payload); err != nil {
		return services.Wrap(services.ErrTransient, "generating", "record results", "encode publish payload", err)
	}

	logger.Info("listing copy generated",
		logging.String("category", categoryID),
		logging.String("title", payload.Title),
		logging.Float64("price", payload.Price))
	item.Status = queue.StatusGenerated
	return nil
}

func (s *Stage) HealthCheck(ctx context.Context) stage.Health {
	const name = "ai"
	if err := s.client.HealthCheck(ctx); err != nil {
		return stage.Unhealthy(name, services.Details(err).Message)
	}
	return stage.Healthy(name)
}

// BuildPayload assembles the publish payload. Title falls back from the
// model's suggestion through the display title to the raw folder name, and
// price defaults to zero when no recommendation was made.
func BuildPayload(item *queue.Item, generated *listing.GeneratedContent, categoryName string) *listing.ProductPayload {
	title := strings.TrimSpace(generated.SuggestedTitle)
	if title == "" {
		title = catalog.DisplayTitle(item.FolderName)
	}
	if title == "" {
		title = item.FolderName
	}

	uploaded := item.Uploaded()
	images := make([]listing.ProductImage, 0, len(uploaded))
	for idx, img := range uploaded {
		images = append(images, listing.ProductImage{
			URL:   img.URL,
			Alt:   title,
			Order: idx + 1,
		})
	}

	return &listing.ProductPayload{
		Title:           title,
		SKU:             item.SKU,
		Category:        categoryName,
		Description:     generated.Description,
		DescriptionHTML: descriptionHTML(generated.Description),
		Price:           generated.Price(),
		Condition:       generated.Condition,
		Era:             generated.Era,
		Origin:          generated.Origin,
		Materials:       generated.Materials,
		Images:          images,
		SEOTitle:        generated.SEOTitle,
		SEODescription:  generated.SEODescription,
		Keywords:        generated.Keywords,
	}
}

// descriptionHTML renders the plain description as minimal paragraph markup.
func descriptionHTML(description string) string {
	description = strings.TrimSpace(description)
	if description == "" {
		return ""
	}
	paragraphs := strings.Split(description, "\n\n")
	var b strings.Builder
	for _, para := range paragraphs {
		para = strings.TrimSpace(para)
		if para == "" {
			continue
		}
		b.WriteString("<p>")
		b.WriteString(htmlEscape(para))
		b.WriteString("</p>")
	}
	return b.String()
}

func htmlEscape(s string) string {
	replacer := strings.NewReplacer(
		"&", "&amp;",
		"<", "&lt;",
		">", "&gt;",
	)
	return replacer.Replace(s)
}
