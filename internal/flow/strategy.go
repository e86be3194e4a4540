package flow

import (
	"strings"

	"github.com/kiarakitana/Thesis-Chatbot/internal/models"
)

// Plutchik fine-grained emotion labels grouped into their basic categories.
// Shame and guilt are treated as fear blends.
var emotionCategories = map[string]string{
	"rage": "anger", "anger": "anger", "annoyance": "anger",
	"vigilance": "anticipation", "anticipation": "anticipation", "interest": "anticipation",
	"ecstasy": "joy", "joy": "joy", "serenity": "joy",
	"admiration": "trust", "trust": "trust", "acceptance": "trust",
	"terror": "fear", "fear": "fear", "apprehension": "fear", "shame": "fear", "guilt": "fear",
	"amazement": "surprise", "surprise": "surprise", "distraction": "surprise",
	"grief": "sadness", "sadness": "sadness", "pensiveness": "sadness",
	"loathing": "disgust", "disgust": "disgust", "boredom": "disgust",
	"calm": "neutral", "neutral": "neutral",
}

// BaseEmotion maps a fine-grained Plutchik label to its basic category.
// Unrecognized labels fall back to neutral.
func BaseEmotion(label string) string {
	if base, ok := emotionCategories[strings.ToLower(strings.TrimSpace(label))]; ok {
		return base
	}
	return "neutral"
}

// strategyPair returns the first strategy for a basic emotion category and
// whether the second strategy must be resolved to a reappraisal subtype by the
// classifier. When needsSubtype is false, second is already final.
func strategyPair(base string) (first, second models.Strategy, needsSubtype bool) {
	switch base {
	case "fear", "surprise", "sadness", "anger":
		return models.StrategyAttentionalDeployment, "", true
	case "joy", "trust":
		return models.StrategyAttentionalDeployment, models.StrategyResponseModulation, false
	case "disgust":
		return models.StrategySituationModification, "", true
	default:
		// anticipation and neutral
		return models.StrategyAttentionalDeployment, "", true
	}
}
