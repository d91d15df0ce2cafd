package types

// ClassifierVersion is stamped into every analysis so stored records can be
// traced back to the prompt/schema revision that produced them.
const ClassifierVersion = "v1.3"

// ValidTopics is the closed topic taxonomy. Anything outside it is folded
// into FallbackTopic during normalization.
var ValidTopics = []string{
	"Economia/Fiscal",
	"Segurança Pública",
	"Reforma Urbana/Habitação",
	"Política Institucional",
	"Geração Z/Juventude",
	"Liberalismo/Valores",
	"Justiça/Judiciário",
	"Corrupção/Escândalos",
	"Mídia/Narrativa",
	"Política Local",
	"Direitos Sociais/Minorias",
	"Outros/Não Político",
}

const FallbackTopic = "Outros/Não Político"

// Content types. ATAQUE carries severity_score, COLLAB carries
// amplification_score, the rest carry neither.
const (
	ContentAttack      = "ATAQUE"
	ContentCollab      = "COLLAB"
	ContentProposal    = "PROPOSTA"
	ContentInformative = "INFORMATIVO"
	ContentNeutral     = "NEUTRO"
)

var ValidContentTypes = []string{
	ContentAttack, ContentCollab, ContentProposal, ContentInformative, ContentNeutral,
}

// Action recommendations.
const (
	ActionRespondUrgent = "RESPONDER URGENTE"
	ActionMonitor       = "MONITORAR"
	ActionAmplify       = "AMPLIFICAR"
	ActionPartnership   = "PARCERIA"
	ActionAnalyze       = "ANALISAR"
	ActionArchive       = "ARQUIVAR"
)

var ValidActions = []string{
	ActionRespondUrgent, ActionMonitor, ActionAmplify,
	ActionPartnership, ActionAnalyze, ActionArchive,
}

// CacheEntry holds every content-derived field of an analysis. It is what
// the disk cache stores, keyed by the transcript hash: two posts with the
// same transcript share one entry regardless of who posted them.
type CacheEntry struct {
	PrimaryTopic         string   `json:"primary_topic"`
	SecondaryTopics      []string `json:"secondary_topics"`
	ContentType          string   `json:"content_type"`
	SeverityScore        *float64 `json:"severity_score"`
	AmplificationScore   *float64 `json:"amplification_score"`
	ConfidenceScore      float64  `json:"confidence_score"`
	Target               *string  `json:"target"`
	AttackAngle          *string  `json:"attack_angle"`
	Alignment            *string  `json:"alignment"`
	ProposalSummary      *string  `json:"proposal_summary"`
	AlignmentStatus      *string  `json:"alignment_status"`
	InfoSummary          *string  `json:"info_summary"`
	KeyQuotes            []string `json:"key_quotes"`
	ActionRecommendation string   `json:"action_recommendation"`
	Reasoning            string   `json:"reasoning"`
	AnalyzedAt           string   `json:"analyzed_at"`
	ClassifierVersion    string   `json:"classifier_version"`
	LatencySeconds       *float64 `json:"latency_seconds"`
}

// Analysis is the full record returned to callers: the cached content
// fields plus the caller context (who posted it, where).
type Analysis struct {
	Username string `json:"username"`
	URL      string `json:"url"`
	CacheEntry
}

// IsValidTopic reports whether t is a member of the closed topic taxonomy.
func IsValidTopic(t string) bool {
	for _, v := range ValidTopics {
		if v == t {
			return true
		}
	}
	return false
}

// IsValidContentType reports whether ct is one of the five content types.
func IsValidContentType(ct string) bool {
	for _, v := range ValidContentTypes {
		if v == ct {
			return true
		}
	}
	return false
}

// IsValidAction reports whether a is one of the six recommended actions.
func IsValidAction(a string) bool {
	for _, v := range ValidActions {
		if v == a {
			return true
		}
	}
	return false
}
