package collector

import (
	"encoding/json"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/guregu/null/v6"
)

var validate = validator.New()

// PredictionPayload is the body returned by /api/analyse_prediction.
type PredictionPayload struct {
	Prediction PredictionData `json:"prediction"`
}

// PredictionData carries the model output for one symbol.
type PredictionData struct {
	Direction          string                `json:"direction" validate:"required"`
	BullishProbability float64               `json:"bullish_probability" validate:"gte=0,lte=1"`
	PredictedPrice     float64               `json:"predicted_price" validate:"gt=0"`
	CurrentPrice       null.Float            `json:"current_price"`
	ClosestSupport     null.Float            `json:"closest_support"`
	ClosestResistance  null.Float            `json:"closest_resistance"`
	Indicators         map[string]null.Float `json:"indicators,omitempty"`
}

// DecodePrediction unmarshals and validates a prediction body.
func DecodePrediction(body []byte) (*PredictionPayload, error) {
	var p PredictionPayload
	if err := json.Unmarshal(body, &p); err != nil {
		return nil, fmt.Errorf("decode prediction: %w", err)
	}
	if err := validate.Struct(&p); err != nil {
		return nil, fmt.Errorf("invalid prediction: %w", err)
	}
	return &p, nil
}
