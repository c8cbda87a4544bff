package cli

import "quizbuzz-service/internal/domain"

// sampleQuestions is the starter pool used by the demo server and the seed command.
func sampleQuestions() []domain.Question {
	return []domain.Question{
		{
			ID:          "q-arith",
			Type:        domain.MultipleChoice,
			Description: "What is 2 + 2?",
			Choices: []domain.Choice{
				{ID: "q-arith-a", Value: "3"},
				{ID: "q-arith-b", Value: "4"},
				{ID: "q-arith-c", Value: "5"},
			},
			CorrectChoiceID: "q-arith-b",
		},
		{
			ID:          "q-planet",
			Type:        domain.MultipleChoice,
			Description: "Which planet is known as the red planet?",
			Choices: []domain.Choice{
				{ID: "q-planet-a", Value: "Venus"},
				{ID: "q-planet-b", Value: "Mars"},
				{ID: "q-planet-c", Value: "Jupiter"},
				{ID: "q-planet-d", Value: "Saturn"},
			},
			CorrectChoiceID: "q-planet-b",
		},
		{
			ID:          "q-boil",
			Type:        domain.TrueOrFalse,
			Description: "Water boils at 100 degrees Celsius at sea level.",
			Choices: []domain.Choice{
				{ID: "q-boil-t", Value: "True"},
				{ID: "q-boil-f", Value: "False"},
			},
			CorrectChoiceID: "q-boil-t",
		},
		{
			ID:          "q-capital",
			Type:        domain.Identification,
			Description: "What is the capital of France?",
			CorrectText: "Paris",
		},
	}
}

var sampleNicknames = []string{"ana", "ben", "cho"}
