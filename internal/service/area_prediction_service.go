package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/config"
	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/gemini"
	"github.com/spec-kit/helpdesk-service/internal/repository"
)

// PredictionCache stores prediction results. *persistence.Redis satisfies it.
type PredictionCache interface {
	GetString(ctx context.Context, key string) (string, error)
	SetString(ctx context.Context, key, value string, ttl time.Duration) error
}

// AreaPredictionService suggests which area a new ticket belongs to, based on
// the chosen category. The suggestion is advisory: any failure along the way
// degrades to a lexical heuristic and, past that, to an empty result. It never
// blocks ticket creation.
type AreaPredictionService struct {
	areas     repository.AreaRepository
	generator gemini.Generator
	cache     PredictionCache
	cfg       config.GeminiConfig
	logger    *zap.Logger
}

// NewAreaPredictionService constructs the service. cache may be nil.
func NewAreaPredictionService(areas repository.AreaRepository, generator gemini.Generator, cache PredictionCache, cfg config.GeminiConfig, logger *zap.Logger) *AreaPredictionService {
	return &AreaPredictionService{areas: areas, generator: generator, cache: cache, cfg: cfg, logger: logger}
}

var (
	strictAnswerRe = regexp.MustCompile(`\{\s*"area_id"\s*:\s*"([0-9a-fA-F-]{36})"\s*\}`)
	looseUUIDRe    = regexp.MustCompile(`[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}`)
)

// PredictArea returns the id of the most plausible area for the category, or
// an empty string when the company has no active areas. The returned error is
// only ever a repository failure; model trouble is logged and absorbed.
func (s *AreaPredictionService) PredictArea(ctx context.Context, companyID, categoryName, categoryDescription string) (string, error) {
	areas, err := s.areas.ListActiveByCompany(ctx, companyID)
	if err != nil {
		return "", err
	}
	if len(areas) == 0 {
		s.logger.Info("no active areas to predict against", zap.String("company_id", companyID))
		return "", nil
	}

	cacheKey := fmt.Sprintf("area_prediction:%s:%s", companyID, strings.ToLower(strings.TrimSpace(categoryName)))
	if s.cache != nil {
		if cached, err := s.cache.GetString(ctx, cacheKey); err == nil && cached != "" {
			if areaByID(areas, cached) != nil {
				return cached, nil
			}
		}
	}

	text := s.callModel(ctx, companyID, categoryName, categoryDescription, areas)
	areaID := s.resolve(text, categoryName, categoryDescription, areas)

	if areaID != "" && s.cache != nil {
		if err := s.cache.SetString(ctx, cacheKey, areaID, s.cfg.CacheTTL()); err != nil {
			s.logger.Warn("prediction cache write failed", zap.Error(err))
		}
	}
	return areaID, nil
}

// callModel runs the primary generation and, when the model returns a body
// with no usable text, one escalation attempt with a reduced prompt and
// stricter limits. Returns an empty string when the model is unreachable.
func (s *AreaPredictionService) callModel(ctx context.Context, companyID, categoryName, categoryDescription string, areas []domain.Area) string {
	prompt := buildPredictionPrompt(categoryName, categoryDescription, areas)
	text, err := s.generator.GenerateContent(ctx, prompt, gemini.GenerationConfig{
		Temperature:     0.3,
		MaxOutputTokens: 8192,
		Timeout:         s.cfg.Timeout(),
	})
	if err == nil {
		return text
	}

	if errors.Is(err, gemini.ErrEmptyResponse) {
		s.logger.Warn("empty model response, retrying with short prompt",
			zap.String("company_id", companyID))
		text, err = s.generator.GenerateContent(ctx, buildShortPredictionPrompt(categoryName, areas), gemini.GenerationConfig{
			Temperature:     0,
			MaxOutputTokens: 512,
			Timeout:         s.cfg.RetryTimeout(),
		})
		if err == nil {
			return text
		}
	}

	s.logger.Warn("area prediction model call failed, falling back to heuristic",
		zap.String("company_id", companyID),
		zap.String("category", categoryName),
		zap.Error(err))
	return ""
}

// resolve runs the extraction strategies in order and returns the first hit.
// Every extracted id must belong to the candidate set.
func (s *AreaPredictionService) resolve(text, categoryName, categoryDescription string, areas []domain.Area) string {
	type strategy struct {
		name string
		fn   func() (string, bool)
	}
	strategies := []strategy{
		{"strict_json", func() (string, bool) { return matchStrictJSON(text, areas) }},
		{"json_decode", func() (string, bool) { return matchJSONDecode(text, areas) }},
		{"loose_uuid", func() (string, bool) { return matchLooseUUID(text, areas) }},
		{"exact_name", func() (string, bool) { return matchExactName(text, areas) }},
		{"category_name", func() (string, bool) { return matchCategoryName(categoryName, areas) }},
		{"token_overlap", func() (string, bool) { return matchTokenOverlap(categoryName, categoryDescription, areas) }},
		{"first_area", func() (string, bool) { return areas[0].ID, true }},
	}
	for _, st := range strategies {
		if id, ok := st.fn(); ok {
			s.logger.Debug("area resolved",
				zap.String("strategy", st.name),
				zap.String("area_id", id))
			return id
		}
	}
	return ""
}

func buildPredictionPrompt(categoryName, categoryDescription string, areas []domain.Area) string {
	var b strings.Builder
	b.WriteString("You are a support ticket routing assistant.\n")
	b.WriteString("A new ticket was filed under the following category:\n\n")
	fmt.Fprintf(&b, "Category: %s\n", categoryName)
	if strings.TrimSpace(categoryDescription) != "" {
		fmt.Fprintf(&b, "Category description: %s\n", categoryDescription)
	}
	b.WriteString("\nThese are the available areas (ID | Name | Description):\n")
	for _, area := range areas {
		fmt.Fprintf(&b, "- %s | %s | %s\n", area.ID, area.Name, area.Description)
	}
	b.WriteString("\nThink step by step about which area best handles this category.\n")
	b.WriteString("Then answer with exactly one line of JSON in the form {\"area_id\":\"<uuid>\"} ")
	b.WriteString("using an ID from the list above. Do not invent IDs.\n")
	return b.String()
}

// buildShortPredictionPrompt drops descriptions and reasoning instructions so
// the answer fits a small token budget.
func buildShortPredictionPrompt(categoryName string, areas []domain.Area) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Pick the best area for the ticket category %q.\n", categoryName)
	b.WriteString("Areas (ID | Name):\n")
	for _, area := range areas {
		fmt.Fprintf(&b, "- %s | %s\n", area.ID, area.Name)
	}
	b.WriteString("Answer with one line: {\"area_id\":\"<uuid>\"}\n")
	return b.String()
}

func matchStrictJSON(text string, areas []domain.Area) (string, bool) {
	m := strictAnswerRe.FindStringSubmatch(text)
	if m == nil {
		return "", false
	}
	if area := areaByID(areas, m[1]); area != nil {
		return area.ID, true
	}
	return "", false
}

func matchJSONDecode(text string, areas []domain.Area) (string, bool) {
	var payload struct {
		AreaID string `json:"area_id"`
	}
	if err := json.Unmarshal([]byte(strings.TrimSpace(text)), &payload); err != nil {
		return "", false
	}
	if area := areaByID(areas, payload.AreaID); area != nil {
		return area.ID, true
	}
	return "", false
}

func matchLooseUUID(text string, areas []domain.Area) (string, bool) {
	for _, candidate := range looseUUIDRe.FindAllString(text, -1) {
		if area := areaByID(areas, candidate); area != nil {
			return area.ID, true
		}
	}
	return "", false
}

func matchExactName(text string, areas []domain.Area) (string, bool) {
	lower := strings.ToLower(text)
	for i := range areas {
		name := strings.ToLower(strings.TrimSpace(areas[i].Name))
		if name != "" && strings.Contains(lower, name) {
			return areas[i].ID, true
		}
	}
	return "", false
}

// matchCategoryName picks the area whose name equals the category name,
// case-insensitively. Runs before token overlap so short names like "IT"
// still resolve when the model gave nothing usable.
func matchCategoryName(categoryName string, areas []domain.Area) (string, bool) {
	name := strings.TrimSpace(categoryName)
	if name == "" {
		return "", false
	}
	for i := range areas {
		if strings.EqualFold(strings.TrimSpace(areas[i].Name), name) {
			return areas[i].ID, true
		}
	}
	return "", false
}

// matchTokenOverlap is the lexical heuristic used when the model gave nothing
// usable: score each area by how many category tokens (3+ chars) appear in
// its name or description, and take the best non-zero score.
func matchTokenOverlap(categoryName, categoryDescription string, areas []domain.Area) (string, bool) {
	tokens := tokenize(categoryName + " " + categoryDescription)
	if len(tokens) == 0 {
		return "", false
	}

	bestID := ""
	bestScore := 0
	for i := range areas {
		haystack := strings.ToLower(areas[i].Name + " " + areas[i].Description)
		score := 0
		for _, token := range tokens {
			if strings.Contains(haystack, token) {
				score++
			}
		}
		if score > bestScore {
			bestScore = score
			bestID = areas[i].ID
		}
	}
	return bestID, bestID != ""
}

func tokenize(s string) []string {
	fields := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !(r >= 'a' && r <= 'z') && !(r >= '0' && r <= '9')
	})
	var tokens []string
	for _, f := range fields {
		if len(f) >= 3 {
			tokens = append(tokens, f)
		}
	}
	return tokens
}

func areaByID(areas []domain.Area, id string) *domain.Area {
	for i := range areas {
		if strings.EqualFold(areas[i].ID, id) {
			return &areas[i]
		}
	}
	return nil
}
