package types

// InboundType identifies a frame sent by the client.
type InboundType string

const (
	InboundMessage InboundType = "message" // InboundMessage carries chat text.
	InboundApprove InboundType = "approve" // InboundApprove accepts a pending build proposal.
	InboundChange  InboundType = "change"  // InboundChange requests changes to a pending proposal.
)

// InboundFrame is a JSON frame received from the client.
type InboundFrame struct {
	Type    InboundType `json:"type"`
	Content string      `json:"content"`
}

// OutboundType identifies a frame sent to the client.
type OutboundType string

const (
	OutboundResponse OutboundType = "response" // OutboundResponse streams assistant text.
	OutboundQuestion OutboundType = "question" // OutboundQuestion asks the user something.
	OutboundProposal OutboundType = "proposal" // OutboundProposal presents a full build.
	OutboundError    OutboundType = "error"    // OutboundError carries a user-safe failure message.
	OutboundStatus   OutboundType = "status"   // OutboundStatus reports progress of a long operation.
)

// ProposalPart is one line of a build proposal as shown to the client.
type ProposalPart struct {
	Category  string  `json:"category"`
	Name      string  `json:"name"`
	Price     float64 `json:"price"`
	Reasoning string  `json:"reasoning"`
	URL       string  `json:"url,omitempty"`
}

// OutboundFrame is a JSON frame sent to the client. Only the fields relevant
// to Type are populated.
type OutboundFrame struct {
	Type    OutboundType `json:"type"`
	Content string       `json:"content"`

	// Done marks the end of a streamed response turn.
	Done *bool `json:"done,omitempty"`

	// Parts is set on every proposal frame, as an empty list when the
	// proposal has no parts.
	Parts                *[]ProposalPart `json:"parts,omitempty"`
	Total                *float64        `json:"total,omitempty"`
	Budget               *float64        `json:"budget,omitempty"`
	OverBudget           *bool           `json:"overBudget,omitempty"`
	OverBudgetAmount     *float64        `json:"overBudgetAmount,omitempty"`
	OverBudgetPercentage *float64        `json:"overBudgetPercentage,omitempty"`
}

// NewResponseChunk creates a partial response frame.
func NewResponseChunk(text string) OutboundFrame {
	done := false
	return OutboundFrame{Type: OutboundResponse, Content: text, Done: &done}
}

// NewResponseDone creates the empty frame that marks turn completion.
func NewResponseDone() OutboundFrame {
	done := true
	return OutboundFrame{Type: OutboundResponse, Content: "", Done: &done}
}

// NewQuestionFrame creates a question frame.
func NewQuestionFrame(question string) OutboundFrame {
	return OutboundFrame{Type: OutboundQuestion, Content: question}
}

// NewErrorFrame creates an error frame. The content must already be safe
// to show to a user.
func NewErrorFrame(message string) OutboundFrame {
	return OutboundFrame{Type: OutboundError, Content: message}
}

// NewStatusFrame creates a progress frame.
func NewStatusFrame(message string) OutboundFrame {
	return OutboundFrame{Type: OutboundStatus, Content: message}
}

// NewProposalFrame creates a build proposal frame.
func NewProposalFrame(parts []ProposalPart, total, budget float64, over bool, overAmount, overPct float64) OutboundFrame {
	if parts == nil {
		parts = []ProposalPart{}
	}
	return OutboundFrame{
		Type:                 OutboundProposal,
		Parts:                &parts,
		Total:                &total,
		Budget:               &budget,
		OverBudget:           &over,
		OverBudgetAmount:     &overAmount,
		OverBudgetPercentage: &overPct,
	}
}
