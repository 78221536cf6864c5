package services

import (
	"context"
	"errors"
	"fmt"

	log "github.com/sirupsen/logrus"
	"google.golang.org/genai"
)

const DefaultStrategyModel = "gemini-2.5-flash-lite"

const strategySystemPrompt = `Sen Otoil araç bakım merkezi için günlük iş stratejileri üreten bir asistansın.
Kullanıcı sana işletmenin hizmet kayıtları özetini (ciro, günlük/aylık veriler, son işlemler) verecek.
Buna göre:
- Kısa, uygulanabilir günlük iş geliştirme stratejileri öner (maddeler halinde, 4-6 madde).
- Türkçe yaz, samimi ve profesyonel bir dil kullan.
- Ciro verilerine göre gerçekçi öneriler sun (örn. düşük günlerde müşteri hatırlatma, yüksek günlerde tekrarlayan hizmet vurgulama).
- Ekstra başlık veya "İşte stratejileriniz" gibi giriş cümlesi yazma, doğrudan maddelere geç.`

var ErrEmptyStrategy = errors.New("Gemini yanıt üretemedi.")

// Strategy is the generated advice. FinishReason MAX_TOKENS means the text
// was cut off.
type Strategy struct {
	Text         string `json:"text"`
	FinishReason string `json:"finishReason,omitempty"`
}

// StrategyAdvisor turns a plain-text business summary into strategy bullets.
type StrategyAdvisor interface {
	Advise(ctx context.Context, summary string) (Strategy, error)
}

type contentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// GeminiAdvisor makes exactly one Gemini call per request. Quota errors are
// returned to the caller, never retried.
type GeminiAdvisor struct {
	models contentGenerator
	model  string
	logger *log.Entry
}

func NewGeminiAdvisor(ctx context.Context, apiKey, model string) (*GeminiAdvisor, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("gemini client: %w", err)
	}
	return newGeminiAdvisor(client.Models, model), nil
}

func newGeminiAdvisor(models contentGenerator, model string) *GeminiAdvisor {
	if model == "" {
		model = DefaultStrategyModel
	}
	return &GeminiAdvisor{models: models, model: model, logger: log.WithField("component", "strategy")}
}

func (g *GeminiAdvisor) Advise(ctx context.Context, summary string) (Strategy, error) {
	prompt := strategySystemPrompt + "\n\n---\n\n" +
		"Aşağıda Otoil araç bakım merkezinin güncel kayıt özeti var. Buna göre bugün için iş geliştirme stratejilerini maddeler halinde yaz.\n\n" +
		summary

	resp, err := g.models.GenerateContent(ctx, g.model, genai.Text(prompt), &genai.GenerateContentConfig{
		Temperature:     genai.Ptr[float32](0.7),
		MaxOutputTokens: 2048,
	})
	if err != nil {
		g.logger.WithError(err).Error("gemini request failed")
		return Strategy{}, fmt.Errorf("Gemini hatası: %w", err)
	}

	text := resp.Text()
	if text == "" {
		g.logger.Warn("gemini returned no text")
		return Strategy{}, ErrEmptyStrategy
	}
	strategy := Strategy{Text: text}
	if len(resp.Candidates) > 0 {
		strategy.FinishReason = string(resp.Candidates[0].FinishReason)
	}
	return strategy, nil
}
