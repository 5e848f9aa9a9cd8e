// internal/models/enquiry.go
package models

import "time"

// EnquiryReply is the single answer attached to an enquiry. Once present the
// enquiry content is frozen.
type EnquiryReply struct {
	Text          string    `json:"text"`
	ResponderNRIC string    `json:"responderNric"`
	RepliedAt     time.Time `json:"repliedAt"`
}

// Enquiry is an applicant-authored question scoped to a project.
type Enquiry struct {
	ID            string        `json:"id" db:"id"`
	ApplicantNRIC string        `json:"applicantNric" db:"applicant_nric"`
	ProjectName   string        `json:"projectName" db:"project_name"`
	Content       string        `json:"content" db:"content"`
	Reply         *EnquiryReply `json:"reply,omitempty" db:"reply"`
	CreatedAt     time.Time     `json:"createdAt" db:"created_at"`
	UpdatedAt     time.Time     `json:"updatedAt" db:"updated_at"`
}

// Replied reports whether the enquiry has been answered.
func (e *Enquiry) Replied() bool {
	return e.Reply != nil
}

// Clone returns a copy safe to stage mutations on.
func (e *Enquiry) Clone() *Enquiry {
	cp := *e
	if e.Reply != nil {
		r := *e.Reply
		cp.Reply = &r
	}
	return &cp
}
