// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package classifier turns a validated soil photograph into a soil category
// and a four-way probability distribution using a frozen, externally served
// model.
package classifier

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"math"
	"time"

	"github.com/olegiv/soilstation/internal/imaging"
	"github.com/olegiv/soilstation/internal/metrics"
	"github.com/olegiv/soilstation/internal/model"
)

// InputSize is the square spatial resolution the model expects.
const InputSize = 220

// Channels is the number of colour channels in the model input.
const Channels = 3

// SumTolerance bounds how far the rounded percentages may drift from 100.
const SumTolerance = 0.02

var (
	// ErrDecode is returned when the image cannot be decoded.
	ErrDecode = errors.New("image decode failed")
	// ErrInvalidOutput is returned when the model output is not a usable
	// probability vector.
	ErrInvalidOutput = errors.New("invalid model output")
)

// Tensor is one image in height x width x channel order with values in [0,1].
type Tensor [][][]float32

// Model is a frozen four-class model. Implementations must be safe for
// concurrent use.
type Model interface {
	Predict(ctx context.Context, input Tensor) ([]float64, error)
}

// ModelFunc adapts an ordinary function to the Model interface.
type ModelFunc func(ctx context.Context, input Tensor) ([]float64, error)

// Predict implements Model.
func (f ModelFunc) Predict(ctx context.Context, input Tensor) ([]float64, error) {
	return f(ctx, input)
}

// Classifier wraps a Model with preprocessing, a bounded timeout and
// post-processing of the probability vector.
type Classifier struct {
	model   Model
	timeout time.Duration
}

// New creates a Classifier. A zero timeout disables the bound.
func New(m Model, timeout time.Duration) *Classifier {
	return &Classifier{model: m, timeout: timeout}
}

// Classify decodes data, runs the model and returns the prediction.
// Errors wrap ErrDecode, ErrInvalidOutput, the model's own error or
// context.DeadlineExceeded.
func (c *Classifier) Classify(ctx context.Context, data []byte) (model.Prediction, error) {
	img, err := imaging.Decode(data)
	if err != nil {
		return model.Prediction{}, fmt.Errorf("%w: %w", ErrDecode, err)
	}

	input := Preprocess(img)

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	start := time.Now()
	probs, err := c.model.Predict(ctx, input)
	if err == nil {
		// A model that ignores ctx still must not report success late.
		err = ctx.Err()
	}
	if err != nil {
		metrics.ObserveInference("error", time.Since(start))
		return model.Prediction{}, fmt.Errorf("inference: %w", err)
	}
	metrics.ObserveInference("ok", time.Since(start))

	return FromProbabilities(probs)
}

// Preprocess resizes img to InputSize x InputSize with nearest-neighbour
// sampling and scales RGB intensities into [0,1]. Alpha is dropped without
// premultiplying.
func Preprocess(img image.Image) Tensor {
	resized := imaging.Resize(img, InputSize, InputSize)
	b := resized.Bounds()

	t := make(Tensor, InputSize)
	for y := 0; y < InputSize; y++ {
		row := make([][]float32, InputSize)
		for x := 0; x < InputSize; x++ {
			c := color.NRGBAModel.Convert(resized.At(b.Min.X+x, b.Min.Y+y)).(color.NRGBA)
			row[x] = []float32{
				float32(c.R) / 255,
				float32(c.G) / 255,
				float32(c.B) / 255,
			}
		}
		t[y] = row
	}
	return t
}

// FromProbabilities validates a raw model output and builds a Prediction.
// The vector is normalised by its sum, the argmax picks the category with
// ties going to the lowest index, and percentages are p*100 rounded half
// away from zero to two decimals.
func FromProbabilities(raw []float64) (model.Prediction, error) {
	if len(raw) != model.NumSoilCategories {
		return model.Prediction{}, fmt.Errorf("%w: got %d values, want %d", ErrInvalidOutput, len(raw), model.NumSoilCategories)
	}

	var sum float64
	for i, v := range raw {
		if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
			return model.Prediction{}, fmt.Errorf("%w: value %d is %v", ErrInvalidOutput, i, v)
		}
		sum += v
	}
	if sum <= 0 {
		return model.Prediction{}, fmt.Errorf("%w: probabilities sum to zero", ErrInvalidOutput)
	}

	var p model.Prediction
	best := 0
	for i, v := range raw {
		p.Probabilities[i] = v / sum
		p.Percentages[i] = RoundPercent(p.Probabilities[i])
		if p.Probabilities[i] > p.Probabilities[best] {
			best = i
		}
	}

	cat, _ := model.SoilCategoryFromIndex(best)
	p.Category = cat
	p.Label = cat.Label()
	return p, nil
}

// RoundPercent converts a probability to a percentage with two decimals,
// rounding half away from zero.
func RoundPercent(p float64) float64 {
	return math.Round(p*10000) / 100
}
