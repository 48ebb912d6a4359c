package dto

// Review actions a transport may render as interactive controls.
const (
	ReviewActionInspect         = "view"
	ReviewActionApprove         = "approve"
	ReviewActionRequestRevision = "reject"
)

// ReviewItem pairs a submission with the actions available to the reviewer.
type ReviewItem struct {
	Submission SubmissionResponse `json:"submission"`
	Actions    []string           `json:"actions"`
}

// FileDelivery describes an out-of-band file hand-off to a reviewer.
type FileDelivery struct {
	Recipient int64  `json:"recipient"`
	FileRef   string `json:"file_ref"`
	Caption   string `json:"caption"`
}
