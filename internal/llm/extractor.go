package llm

import (
	"context"
	"encoding/json"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/shamsaravaiah/receiptdrop/constants"
	"github.com/shamsaravaiah/receiptdrop/internal/entity"
)

// TagExtractor turns normalized receipt text into a TagSet via one call to
// the extraction service. It never returns an error: a service failure, an
// unparsable response or a schema miss degrades to the fallback TagSet with
// degraded=true, so the pipeline is never aborted by extraction.
type TagExtractor struct {
	gen    Generator
	logger *slog.Logger
}

func NewTagExtractor(gen Generator, logger *slog.Logger) *TagExtractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &TagExtractor{gen: gen, logger: logger}
}

// Extract calls the extraction service once and parses its response.
// The second return reports whether the result is the degraded fallback.
func (x *TagExtractor) Extract(ctx context.Context, normalizedText string) (entity.TagSet, bool) {
	start := time.Now()
	prompt := BuildTagPrompt(normalizedText)

	raw, err := x.gen.Generate(ctx, prompt)
	if err != nil {
		x.logger.Warn("llm.extract.generate_failed", "error", err,
			"elapsed_ms", time.Since(start).Milliseconds())
		return entity.UnknownTags(), true
	}

	payload, ok := sliceJSONObject(raw)
	if !ok {
		x.logger.Warn("llm.extract.no_json_object", "raw_bytes", len(raw))
		return entity.UnknownTags(), true
	}

	var m map[string]any
	if err := json.Unmarshal([]byte(payload), &m); err != nil {
		x.logger.Warn("llm.extract.decode_failed", "error", err, "payload", payload)
		return entity.UnknownTags(), true
	}

	if err := ValidateJSONAgainstSchema(BuildTagSetJSONSchema(), []byte(payload)); err != nil {
		x.logger.Warn("llm.extract.schema_validation_failed", "error", err)
		return entity.UnknownTags(), true
	}

	tags := entity.TagSet{
		Vendor:           stringField(m, "vendor"),
		ProductOrService: stringField(m, "product_or_service"),
		Price:            coercePrice(m["price"]),
	}

	x.logger.Info("llm.extract.ok",
		"vendor", tags.Vendor,
		"price", tags.Price,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return tags, false
}

// sliceJSONObject cuts the substring between the first '{' and the last '}'
// inclusive, tolerating conversational wrapping around the JSON payload.
func sliceJSONObject(raw string) (string, bool) {
	startIdx := strings.Index(raw, "{")
	endIdx := strings.LastIndex(raw, "}")
	if startIdx < 0 || endIdx < startIdx {
		return "", false
	}
	return raw[startIdx : endIdx+1], true
}

func stringField(m map[string]any, key string) string {
	if v, ok := m[key].(string); ok {
		if s := strings.TrimSpace(v); s != "" {
			return s
		}
	}
	return constants.UnknownValue
}

// coercePrice forces the price into a non-negative float64, 0 on any failure.
func coercePrice(v any) float64 {
	var price float64
	switch t := v.(type) {
	case float64:
		price = t
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return 0
		}
		price = f
	default:
		return 0
	}
	if price < 0 {
		return 0
	}
	return price
}
