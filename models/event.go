package models

// EventInquirySubmitted is published once per stored inquiry.
const EventInquirySubmitted = "inquiry_submitted"

type InquiryEvent struct {
	ID    string  `json:"id"`
	Event string  `json:"event"`
	Data  Inquiry `json:"data"`
}
