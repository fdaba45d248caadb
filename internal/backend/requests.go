package backend

// Request bodies use the backend's snake_case field names.

type FieldNotesRequest struct {
	ProjectID string `json:"project_id"`
	Keyword   string `json:"keyword"`
	Limit     int    `json:"limit"`
}

type LaborDetailRequest struct {
	ProjectID string `json:"project_id"`
	SOVLineID string `json:"sov_line_id"`
}

type ChangeOrderRequest struct {
	ProjectID string `json:"project_id"`
	CONumber  string `json:"co_number"`
}

type RFIRequest struct {
	ProjectID string `json:"project_id"`
	RFINumber string `json:"rfi_number"`
}

type WhatIfMarginRequest struct {
	ProjectID      string  `json:"project_id"`
	RecoveryAmount float64 `json:"recovery_amount"`
}

type EmailRequest struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}
