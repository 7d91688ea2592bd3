package conversation

import (
	"testing"

	"github.com/imobia/leadpipe/internal/funnel"
	"github.com/imobia/leadpipe/internal/models"
)

func inbound(text string) *models.Message {
	return &models.Message{Direction: models.DirectionIncoming, Content: text}
}

func TestDetectStageProgression(t *testing.T) {
	qualified := &models.Lead{
		BudgetMax: fptr(500000),
		Location:  sptr("Centro"),
		Rooms:     iptr(2),
	}
	tests := []struct {
		name    string
		stage   string
		lead    *models.Lead
		message *models.Message
		want    string
	}{
		{"data collection complete", funnel.StageDataCollection, qualified, inbound("ok"), funnel.StageMatching},
		{"data collection incomplete", funnel.StageDataCollection, &models.Lead{}, inbound("oi"), funnel.StageDataCollection},
		{"presentation visit interest", funnel.StagePresentation, qualified, inbound("quero ver esse"), funnel.StageInterest},
		{"presentation conhecer", funnel.StagePresentation, qualified, inbound("posso conhecer o imóvel?"), funnel.StageInterest},
		{"presentation no signal", funnel.StagePresentation, qualified, inbound("vou pensar"), funnel.StagePresentation},
		{"interest scheduling", funnel.StageInterest, qualified, inbound("quando posso visitar?"), funnel.StageScheduling},
		{"interest marcar", funnel.StageInterest, qualified, inbound("podemos marcar?"), funnel.StageScheduling},
		{"interest no signal", funnel.StageInterest, qualified, inbound("legal"), funnel.StageInterest},
		{"no match retry", funnel.StageNoMatch, qualified, inbound("sim, vamos tentar"), funnel.StageRefinement},
		{"no match silence", funnel.StageNoMatch, qualified, nil, funnel.StageNoMatch},
		{"stage without case is unchanged", funnel.StageNegotiation, qualified, inbound("sim quero agendar"), funnel.StageNegotiation},
		{"unknown stage is unchanged", "lead_novo", qualified, inbound("sim"), "lead_novo"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := DetectStageProgression(tc.stage, tc.lead, tc.message)
			if got != tc.want {
				t.Errorf("DetectStageProgression(%q) = %q, want %q", tc.stage, got, tc.want)
			}
		})
	}
}

func TestDetectStageProgressionPrefersTranscription(t *testing.T) {
	msg := &models.Message{
		Direction:     models.DirectionIncoming,
		Content:       "",
		Transcription: "quero agendar uma visita",
	}
	got := DetectStageProgression(funnel.StageInterest, &models.Lead{}, msg)
	if got != funnel.StageScheduling {
		t.Errorf("transcription should drive progression, got %q", got)
	}
}
