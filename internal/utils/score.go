package utils

type ScoreConfig struct {
	RatingFactor   float64 // share of each primary rating (0.5)
	WeightUpvote   float64 // 1.0
	WeightDownvote float64 // 1.0
	Floor          float64
	Ceiling        float64
}

var DefaultScoreConfig = ScoreConfig{
	RatingFactor:   0.5,
	WeightUpvote:   1.0,
	WeightDownvote: 1.0,
	Floor:          0,
	Ceiling:        100,
}

// Combine reduces primary rating scores and feedback counts into one
// combined score clamped to [Floor, Ceiling].
func (c ScoreConfig) Combine(ratingScores []float64, up, down int) float64 {
	primary := 0.0
	for _, s := range ratingScores {
		primary += s * c.RatingFactor
	}
	feedback := float64(up)*c.WeightUpvote - float64(down)*c.WeightDownvote
	return Clamp(primary+feedback, c.Floor, c.Ceiling)
}

func Clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
