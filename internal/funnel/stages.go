// Package funnel implements the lead qualification pipeline: the fixed
// 17-stage catalog, the legal transition table and the per-stage automatic
// progression rules.
//
// Everything in this package is pure computation over immutable tables built
// at init time. Unknown stage keys degrade to zero values; nothing here
// panics or returns an error.
package funnel

import "sort"

// Stage keys for the lead qualification funnel.
const (
	StageWelcome        = "boas_vindas"
	StageDataCollection = "coleta_dados"
	StageAwaitingInfo   = "aguardando_info"
	StageMatching       = "matching"
	StagePresentation   = "apresentacao"
	StageNoMatch        = "sem_match"
	StageRefinement     = "refinamento"
	StageInterest       = "interesse"
	StageScheduling     = "agendamento"
	StageVisitScheduled = "visita_agendada"
	StagePostVisit      = "pos_visita"
	StageNegotiation    = "negociacao"
	StageProposal       = "proposta"
	StageCreditReview   = "analise_credito"
	StageDocumentation  = "documentacao"
	StageClosing        = "finalizacao"
	StageHumanHandoff   = "atendimento_humano"
)

// Stage describes one step of the funnel. Order controls presentation only;
// transition legality lives exclusively in the transition table.
type Stage struct {
	Key         string `json:"key"`
	Label       string `json:"label"`
	Description string `json:"description"`
	Color       string `json:"color"`
	Order       int    `json:"order"`
	Automated   bool   `json:"automated"`
}

// stages is the fixed catalog, keyed by stage key. Built once, never mutated.
var stages = map[string]Stage{
	StageWelcome:        {Key: StageWelcome, Label: "Boas-vindas", Description: "Primeiro contato com o lead", Color: "#2ECC71", Order: 1, Automated: true},
	StageDataCollection: {Key: StageDataCollection, Label: "Coleta de dados", Description: "Levantamento de orçamento, região e perfil do imóvel", Color: "#3498DB", Order: 2, Automated: true},
	StageAwaitingInfo:   {Key: StageAwaitingInfo, Label: "Aguardando informações", Description: "Lead parou de responder durante a qualificação", Color: "#95A5A6", Order: 3, Automated: true},
	StageMatching:       {Key: StageMatching, Label: "Buscando imóveis", Description: "Cruzando o perfil do lead com a carteira de imóveis", Color: "#9B59B6", Order: 4, Automated: true},
	StagePresentation:   {Key: StagePresentation, Label: "Apresentação", Description: "Imóveis compatíveis enviados para avaliação", Color: "#F1C40F", Order: 5, Automated: true},
	StageNoMatch:        {Key: StageNoMatch, Label: "Sem correspondência", Description: "Nenhum imóvel compatível com os critérios atuais", Color: "#E67E22", Order: 6, Automated: true},
	StageRefinement:     {Key: StageRefinement, Label: "Refinamento", Description: "Ajustando os critérios de busca com o lead", Color: "#1ABC9C", Order: 7, Automated: true},
	StageInterest:       {Key: StageInterest, Label: "Interesse", Description: "Lead demonstrou interesse em um imóvel", Color: "#E74C3C", Order: 8, Automated: false},
	StageScheduling:     {Key: StageScheduling, Label: "Agendamento", Description: "Combinando data e horário da visita", Color: "#34495E", Order: 9, Automated: false},
	StageVisitScheduled: {Key: StageVisitScheduled, Label: "Visita agendada", Description: "Visita confirmada com o corretor", Color: "#16A085", Order: 10, Automated: false},
	StagePostVisit:      {Key: StagePostVisit, Label: "Pós-visita", Description: "Coletando feedback após a visita", Color: "#27AE60", Order: 11, Automated: false},
	StageNegotiation:    {Key: StageNegotiation, Label: "Negociação", Description: "Negociando condições e valores", Color: "#8E44AD", Order: 12, Automated: false},
	StageProposal:       {Key: StageProposal, Label: "Proposta", Description: "Proposta formal em elaboração ou enviada", Color: "#2980B9", Order: 13, Automated: false},
	StageCreditReview:   {Key: StageCreditReview, Label: "Análise de crédito", Description: "Documentos em análise pela instituição financeira", Color: "#D35400", Order: 14, Automated: false},
	StageDocumentation:  {Key: StageDocumentation, Label: "Documentação", Description: "Reunindo documentação para o fechamento", Color: "#7F8C8D", Order: 15, Automated: false},
	StageClosing:        {Key: StageClosing, Label: "Finalização", Description: "Contrato assinado, venda concluída", Color: "#C0392B", Order: 16, Automated: false},
	StageHumanHandoff:   {Key: StageHumanHandoff, Label: "Atendimento humano", Description: "Conversa assumida por um corretor", Color: "#000000", Order: 17, Automated: false},
}

// transitions is the single source of truth for transition legality. Every
// stage appears as a source; the human handoff stage is terminal (empty set)
// and is reachable from every other stage.
var transitions = map[string][]string{
	StageWelcome:        {StageDataCollection, StageHumanHandoff},
	StageDataCollection: {StageMatching, StageAwaitingInfo, StageHumanHandoff},
	StageAwaitingInfo:   {StageDataCollection, StageHumanHandoff},
	StageMatching:       {StagePresentation, StageNoMatch, StageHumanHandoff},
	StagePresentation:   {StageInterest, StageRefinement, StageNoMatch, StageHumanHandoff},
	StageNoMatch:        {StageRefinement, StageHumanHandoff},
	StageRefinement:     {StageMatching, StageHumanHandoff},
	StageInterest:       {StageScheduling, StageRefinement, StageHumanHandoff},
	StageScheduling:     {StageVisitScheduled, StageHumanHandoff},
	StageVisitScheduled: {StagePostVisit, StageHumanHandoff},
	StagePostVisit:      {StageNegotiation, StageRefinement, StageHumanHandoff},
	StageNegotiation:    {StageProposal, StageHumanHandoff},
	StageProposal:       {StageCreditReview, StageNegotiation, StageHumanHandoff},
	StageCreditReview:   {StageDocumentation, StageHumanHandoff},
	StageDocumentation:  {StageClosing, StageHumanHandoff},
	StageClosing:        {StageHumanHandoff},
	StageHumanHandoff:   {},
}

// stageMessages holds the fixed human-readable status line per stage.
var stageMessages = map[string]string{
	StageWelcome:        "Lead recebido, iniciando atendimento",
	StageDataCollection: "Coletando orçamento, região e perfil do imóvel",
	StageAwaitingInfo:   "Aguardando o lead enviar mais informações",
	StageMatching:       "Buscando imóveis compatíveis na carteira",
	StagePresentation:   "Imóveis enviados, aguardando avaliação do lead",
	StageNoMatch:        "Nenhum imóvel compatível encontrado",
	StageRefinement:     "Refinando os critérios de busca",
	StageInterest:       "Lead interessado em um imóvel",
	StageScheduling:     "Agendando visita ao imóvel",
	StageVisitScheduled: "Visita agendada com o corretor",
	StagePostVisit:      "Coletando feedback da visita",
	StageNegotiation:    "Negociação em andamento",
	StageProposal:       "Proposta em andamento",
	StageCreditReview:   "Análise de crédito em andamento",
	StageDocumentation:  "Documentação em andamento",
	StageClosing:        "Venda concluída",
	StageHumanHandoff:   "Atendimento transferido para um corretor",
}

// stageProgress maps each stage to its funnel completion percentage.
var stageProgress = map[string]int{
	StageWelcome:        5,
	StageDataCollection: 10,
	StageAwaitingInfo:   10,
	StageMatching:       20,
	StagePresentation:   30,
	StageNoMatch:        25,
	StageRefinement:     25,
	StageInterest:       40,
	StageScheduling:     50,
	StageVisitScheduled: 60,
	StagePostVisit:      65,
	StageNegotiation:    70,
	StageProposal:       80,
	StageCreditReview:   85,
	StageDocumentation:  90,
	StageClosing:        100,
	StageHumanHandoff:   0,
}

// IsValidTransition reports whether moving from current to target is allowed
// by the transition table. Unknown keys on either side return false.
func IsValidTransition(current, target string) bool {
	if current == "" || target == "" {
		return false
	}
	targets, ok := transitions[current]
	if !ok {
		return false
	}
	if _, known := stages[target]; !known {
		return false
	}
	for _, t := range targets {
		if t == target {
			return true
		}
	}
	return false
}

// StageInfo returns the descriptor for a stage key, or nil for unknown keys.
func StageInfo(key string) *Stage {
	if s, ok := stages[key]; ok {
		return &s
	}
	return nil
}

// AllStages returns the full catalog sorted by ascending order.
func AllStages() []Stage {
	all := make([]Stage, 0, len(stages))
	for _, s := range stages {
		all = append(all, s)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Order < all[j].Order })
	return all
}

// IsAutomatedStage reports whether the system may move a lead out of the
// given stage without human action. Unknown keys return false.
func IsAutomatedStage(key string) bool {
	return stages[key].Automated
}

// StageMessage returns the fixed status line for a stage, with a generic
// fallback for unknown keys.
func StageMessage(key string) string {
	if msg, ok := stageMessages[key]; ok {
		return msg
	}
	return "Etapa: " + key
}

// FunnelProgress returns the completion percentage for a stage, 0 for
// unknown keys.
func FunnelProgress(key string) int {
	return stageProgress[key]
}
